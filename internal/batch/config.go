package batch

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MeKo-Tech/barscan/internal/pipeline"
)

// Config holds all configuration for batch processing.
type Config struct {
	Pipeline pipeline.Config

	// Workers bounds how many files are decoded at once.
	Workers         int
	ContinueOnError bool
	Timeout         time.Duration // per file; 0 disables

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Output settings
	Format     string
	OutputFile string
	OverlayDir string

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ProgressInterval time.Duration
	Progress         io.Writer // stderr when nil
}

// DefaultConfig returns four workers, recursive discovery and
// continue-on-error.
func DefaultConfig() *Config {
	return &Config{
		Pipeline:         pipeline.DefaultConfig(),
		Workers:          4,
		ContinueOnError:  true,
		Recursive:        true,
		Format:           pipeline.FormatText,
		ProgressInterval: 100 * time.Millisecond,
	}
}

// ItemResult is the outcome for one file. Exactly one of Result and Error
// is set.
type ItemResult struct {
	File   string           `json:"file" yaml:"file"`
	Result *pipeline.Result `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string           `json:"error,omitempty" yaml:"error,omitempty"`
}

// Result holds the result of batch processing in discovery order.
type Result struct {
	Items       []ItemResult  `json:"items" yaml:"items"`
	Duration    time.Duration `json:"-" yaml:"-"`
	WorkerCount int           `json:"workers" yaml:"workers"`
}

// Stats summarizes a batch run.
type Stats struct {
	Files     int
	Succeeded int
	Failed    int
	WithCodes int
	Barcodes  int
	Duration  time.Duration
	PerFile   time.Duration
	PerSecond float64
}

// Stats computes the summary counts.
func (r *Result) Stats() Stats {
	s := Stats{Files: len(r.Items), Duration: r.Duration}
	for _, it := range r.Items {
		if it.Error != "" {
			s.Failed++
			continue
		}
		s.Succeeded++
		if n := len(it.Result.Results); n > 0 {
			s.WithCodes++
			s.Barcodes += n
		}
	}
	if s.Files > 0 {
		s.PerFile = r.Duration / time.Duration(s.Files)
	}
	if secs := r.Duration.Seconds(); secs > 0 {
		s.PerSecond = float64(s.Files) / secs
	}
	return s
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r, format)
}

// SaveResults writes the formatted results to outputFile, or to w when
// outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
		}
		return nil
	}
	_, err = fmt.Fprint(w, output)
	return err
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer) {
	s := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total files: %d\n", s.Files)
	_, _ = fmt.Fprintf(w, "  Decoded: %d\n", s.Succeeded)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "  With barcodes: %d\n", s.WithCodes)
	_, _ = fmt.Fprintf(w, "  Barcodes: %d\n", s.Barcodes)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", r.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", s.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Avg per file: %v\n", s.PerFile.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f files/sec\n", s.PerSecond)
}
