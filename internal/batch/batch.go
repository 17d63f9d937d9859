// Package batch decodes barcodes in many image files with one shared
// pipeline.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/barscan/internal/pipeline"
)

// ErrNoImages is returned when discovery finds nothing to decode.
var ErrNoImages = errors.New("no image files found")

// ProcessBatch discovers the images under paths and decodes them.
func ProcessBatch(ctx context.Context, paths []string, config *Config) (*Result, error) {
	files, err := Discover(paths, config)
	if err != nil {
		return nil, err
	}

	pl, err := buildPipeline(config)
	if err != nil {
		return nil, fmt.Errorf("failed to build decode pipeline: %w", err)
	}
	defer func() {
		if err := pl.Close(); err != nil {
			slog.Error("Error closing pipeline", "error", err)
		}
	}()

	return Process(ctx, pl, files, config)
}

// Discover expands paths into the image files a batch would process.
func Discover(paths []string, config *Config) ([]string, error) {
	files, err := discoverImageFiles(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoImages
	}
	return files, nil
}

// Process decodes files with runner.
func Process(ctx context.Context, runner Runner, files []string, config *Config) (*Result, error) {
	if len(files) == 0 {
		return nil, ErrNoImages
	}

	var progress pipeline.ProgressCallback
	if config.ShowProgress && !config.Quiet {
		w := config.Progress
		if w == nil {
			w = os.Stderr
		}
		progress = pipeline.NewConsoleProgressCallback(w, "Decoding: ").
			WithUpdateInterval(config.ProgressInterval)
	}

	slog.Debug("Starting batch", "files", len(files), "workers", config.Workers,
		"continue_on_error", config.ContinueOnError)
	res, err := processFiles(ctx, runner, files, config, progress)
	if err != nil {
		return nil, fmt.Errorf("batch processing failed: %w", err)
	}
	return res, nil
}
