package batch

import (
	"github.com/MeKo-Tech/barscan/internal/pipeline"
)

// buildPipeline creates the shared decode pipeline. Region sweeps inside
// one image get the workers that file-level parallelism leaves unused.
func buildPipeline(config *Config) (*pipeline.Pipeline, error) {
	b := pipeline.NewBuilderFrom(config.Pipeline)
	if config.Pipeline.Parallel.MaxWorkers == 0 && config.Workers > 1 {
		b = b.WithMaxWorkers(regionWorkers(config.Workers))
	}
	return b.Build()
}

// regionWorkers splits the CPU budget between files and regions.
func regionWorkers(fileWorkers int) int {
	return max(1, pipeline.DefaultParallelConfig().MaxWorkers/max(1, fileWorkers))
}
