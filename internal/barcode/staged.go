package barcode

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
)

// Staged adapts a FileDecoder to the in-memory Decoder interface.
//
// Each Decode call encodes the image into its own uniquely named temporary
// PNG and removes it before returning, whether decoding succeeded, failed,
// or the encoder errored half way.
type Staged struct {
	File FileDecoder
	// Dir is the directory for staging files; empty uses os.TempDir.
	Dir string
}

// Decode implements Decoder.
func (s *Staged) Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error) {
	if s.File == nil {
		return nil, fmt.Errorf("staged decoder: %w", ErrDecoderUnavailable)
	}

	path, err := s.stage(img)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			slog.Warn("Failed to remove staging file", "path", path, "error", rmErr)
		}
	}()

	return s.File.DecodeFile(ctx, path, opts)
}

// stage writes img to a new temp file and returns its path. On failure the
// partially written file is removed before returning.
func (s *Staged) stage(img image.Image) (string, error) {
	f, err := os.CreateTemp(s.Dir, "barscan-stage-*.png")
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	path := f.Name()

	encErr := png.Encode(f, img)
	closeErr := f.Close()
	if encErr != nil || closeErr != nil {
		_ = os.Remove(path)
		if encErr != nil {
			return "", fmt.Errorf("encode staging file: %w", encErr)
		}
		return "", fmt.Errorf("close staging file: %w", closeErr)
	}
	return path, nil
}
