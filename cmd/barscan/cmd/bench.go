package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/barscan/internal/benchmark"
	"github.com/MeKo-Tech/barscan/internal/pipeline"
)

var benchCmd = &cobra.Command{
	Use:   "bench [images...]",
	Short: "Measure decode latency for different angle steps and detectors",
	Long: `Decode each image repeatedly with every combination of --steps and
--detectors and report latency percentiles, allocations and barcode counts.

Examples:
  barscan bench shelf.jpg --steps 15,30,45
  barscan bench *.png --detectors gradient,fullframe --iterations 20`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: bindFlags(pipelineFlags),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		base := cfg.ToPipelineConfig()

		steps, _ := cmd.Flags().GetFloat64Slice("steps")
		if len(steps) == 0 {
			steps = []float64{base.AngleStep}
		}
		detectors, _ := cmd.Flags().GetStringSlice("detectors")
		if len(detectors) == 0 {
			detectors = []string{base.Detector.Kind}
		}
		iterations, _ := cmd.Flags().GetInt("iterations")

		inputs := make([]benchmark.Input, 0, len(args))
		for _, file := range args {
			data, err := os.ReadFile(file) //nolint:gosec // G304: user supplied input path
			if err != nil {
				return fmt.Errorf("cannot read %s: %w", file, err)
			}
			inputs = append(inputs, benchmark.Input{Name: filepath.Base(file), Data: data})
		}

		suite, closeAll, err := benchmark.NewPipelineSuite(benchVariants(base, detectors, steps), inputs)
		if err != nil {
			return err
		}
		defer closeAll()

		results := suite.RunAll(commandContext(cmd), iterations)
		benchmark.PrintResults(cmd.OutOrStdout(), results)
		return nil
	},
}

func benchVariants(base pipeline.Config, detectors []string, steps []float64) []benchmark.Variant {
	variants := make([]benchmark.Variant, 0, len(detectors)*len(steps))
	for _, det := range detectors {
		for _, step := range steps {
			c := base
			c.Detector.Kind = det
			c.AngleStep = step
			variants = append(variants, benchmark.Variant{
				Name:   det + "@" + strconv.FormatFloat(step, 'f', -1, 64),
				Config: c,
			})
		}
	}
	return variants
}

func init() {
	rootCmd.AddCommand(benchCmd)
	addPipelineFlags(benchCmd.Flags())
	benchCmd.Flags().Float64Slice("steps", nil, "angle steps to compare (default: --step)")
	benchCmd.Flags().StringSlice("detectors", nil, "detectors to compare (default: --detector)")
	benchCmd.Flags().IntP("iterations", "n", 5, "decodes per image and variant")
}
