package cmd

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/barscan/internal/batch"
	"github.com/MeKo-Tech/barscan/internal/config"
)

var batchFlags = map[string]string{
	"workers":           "batch.workers",
	"recursive":         "batch.recursive",
	"include":           "batch.include",
	"exclude":           "batch.exclude",
	"continue-on-error": "batch.continue_on_error",
}

// batchCmd represents the batch command for parallel image processing.
var batchCmd = &cobra.Command{
	Use:   "batch [files or directories...]",
	Short: "Decode barcodes in many images in parallel",
	Long: `Decode barcodes in many image files using a pool of workers that
share one decode pipeline. Directories are expanded into the supported
image files they contain.

Examples:
  barscan batch *.jpg *.png
  barscan batch scans/ --workers 8 --format csv --output codes.csv
  barscan batch scans/ --include '*.tif' --exclude 'draft_*' --stats`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: bindFlags(merge(pipelineFlags, outputFlags, batchFlags)),
	RunE:    runBatchCommand,
}

// configToBatchConfig maps the resolved configuration plus the CLI-only
// progress flags onto batch.Config.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) *batch.Config {
	bc := batch.DefaultConfig()
	bc.Pipeline = cfg.ToPipelineConfig()

	bc.Workers = cfg.Batch.Workers
	bc.ContinueOnError = cfg.Batch.ContinueOnError
	bc.Recursive = cfg.Batch.Recursive
	bc.IncludePatterns = cfg.Batch.Include
	bc.ExcludePatterns = cfg.Batch.Exclude

	bc.Format = cfg.Output.Format
	bc.OutputFile = cfg.Output.File
	bc.OverlayDir = cfg.Output.OverlayDir

	bc.Timeout, _ = cmd.Flags().GetDuration("timeout")
	bc.ShowProgress, _ = cmd.Flags().GetBool("progress")
	bc.Quiet, _ = cmd.Flags().GetBool("quiet")
	bc.ProgressInterval, _ = cmd.Flags().GetDuration("progress-interval")
	bc.Progress = cmd.ErrOrStderr()
	return bc
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	bc := configToBatchConfig(cfg, cmd)

	files, err := batch.Discover(args, bc)
	if err != nil {
		return err
	}
	if !bc.Quiet {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Processing %d files...\n", len(files))
	}

	result, err := batch.ProcessBatch(commandContext(cmd), args, bc)
	if err != nil {
		return err
	}

	if err := result.SaveResults(cmd.OutOrStdout(), bc.Format, bc.OutputFile, bc.Quiet); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	if stats, _ := cmd.Flags().GetBool("stats"); stats && !bc.Quiet {
		result.PrintStats(cmd.ErrOrStderr())
	}
	return nil
}

func init() {
	rootCmd.AddCommand(batchCmd)

	d := config.DefaultConfig().Batch
	addPipelineFlags(batchCmd.Flags())
	addOutputFlags(batchCmd)

	batchCmd.Flags().IntP("workers", "w", d.Workers,
		fmt.Sprintf("files decoded concurrently (machine has %d CPUs)", runtime.NumCPU()))
	batchCmd.Flags().Bool("continue-on-error", d.ContinueOnError, "keep going when a file cannot be decoded")
	batchCmd.Flags().Duration("timeout", 0, "per-file decode timeout (0 = none)")

	batchCmd.Flags().BoolP("recursive", "r", d.Recursive, "recursively scan directories")
	batchCmd.Flags().StringSlice("include", d.Include, "file patterns to include")
	batchCmd.Flags().StringSlice("exclude", d.Exclude, "file patterns to exclude")

	batchCmd.Flags().Bool("progress", false, "show progress on stderr")
	batchCmd.Flags().BoolP("quiet", "q", false, "suppress progress and status output")
	batchCmd.Flags().Bool("stats", false, "print processing statistics")
	batchCmd.Flags().Duration("progress-interval", 500*time.Millisecond, "progress update interval")
}
