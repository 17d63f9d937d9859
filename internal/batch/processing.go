package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/barscan/internal/pipeline"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// Runner decodes barcodes in a loaded image. *pipeline.Pipeline satisfies it.
type Runner interface {
	RunImage(ctx context.Context, img image.Image) (*pipeline.Result, error)
}

// loadAndValidateImage loads an image and validates it meets constraints.
func loadAndValidateImage(path string) (image.Image, utils.ImageMetadata, error) {
	img, meta, err := utils.LoadImage(path)
	if err != nil {
		return nil, utils.ImageMetadata{}, fmt.Errorf("failed to load %s: %w", path, err)
	}
	if err := utils.ValidateImageConstraints(img, utils.DefaultImageConstraints()); err != nil {
		return nil, utils.ImageMetadata{}, &pipeline.IngestError{Err: err}
	}
	return img, meta, nil
}

// saveOverlay writes <name>_overlay.png into overlayDir.
func saveOverlay(img image.Image, res *pipeline.Result, path, overlayDir string) error {
	ov := pipeline.RenderOverlay(img, res, res.Regions, pipeline.DefaultOverlayColors())
	if ov == nil {
		return errors.New("overlay rendering failed")
	}
	if err := os.MkdirAll(overlayDir, 0o750); err != nil {
		return err
	}
	base := filepath.Base(path)
	out := filepath.Join(overlayDir, strings.TrimSuffix(base, filepath.Ext(base))+"_overlay.png")
	return imaging.Save(ov, out)
}

// processSingleImage loads path and runs it through runner.
func processSingleImage(ctx context.Context, runner Runner, path string, config *Config) (*pipeline.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, _, err := loadAndValidateImage(path)
	if err != nil {
		return nil, err
	}

	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	res, err := runner.RunImage(ctx, img)
	if err != nil {
		return nil, err
	}

	if config.OverlayDir != "" {
		if err := saveOverlay(img, res, path, config.OverlayDir); err != nil {
			slog.Warn("Failed to save overlay", "file", path, "error", err)
		}
	}
	return res, nil
}

// processFiles decodes files on at most config.Workers goroutines. Items
// keep the order of files. Without ContinueOnError the first failure stops
// the run; cancellation of ctx always does.
func processFiles(ctx context.Context, runner Runner, files []string, config *Config,
	progress pipeline.ProgressCallback,
) (*Result, error) {
	workers := max(1, min(config.Workers, len(files)))
	items := make([]ItemResult, len(files))

	if progress != nil {
		progress.OnStart(len(files))
		defer progress.OnComplete()
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	var done atomic.Int64

	for i, file := range files {
		g.Go(func() error {
			items[i].File = file
			res, err := processSingleImage(gctx, runner, file, config)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if !config.ContinueOnError {
					return fmt.Errorf("%s: %w", file, err)
				}
				items[i].Error = err.Error()
				slog.Warn("Failed to decode file", "file", file, "error", err)
				if progress != nil {
					progress.OnError(i, err)
				}
			} else {
				items[i].Result = res
			}
			if progress != nil {
				progress.OnProgress(int(done.Add(1)), len(files))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Result{Items: items, Duration: time.Since(start), WorkerCount: workers}, nil
}
