package pipeline

import (
	"context"
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// stubDetector returns fixed regions and counts calls.
type stubDetector struct {
	regions []utils.Region
	err     error
	calls   atomic.Int32
	closed  atomic.Bool
}

func (s *stubDetector) Detect(context.Context, image.Image) ([]utils.Region, error) {
	s.calls.Add(1)
	return s.regions, s.err
}

func (s *stubDetector) Close() error {
	s.closed.Store(true)
	return nil
}

// angleImage tags an image with the sweep angle that produced it.
type angleImage struct {
	image.Image
	angle float64
}

// recordingRotate skips pixel work and remembers every requested angle.
type recordingRotate struct {
	mu     sync.Mutex
	angles []float64
}

func (r *recordingRotate) rotate(img image.Image, angle float64, _ color.Color) image.Image {
	r.mu.Lock()
	r.angles = append(r.angles, angle)
	r.mu.Unlock()
	return angleImage{Image: img, angle: angle}
}

func (r *recordingRotate) seen() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.angles...)
}

func result(payload string) []barcode.Result {
	return []barcode.Result{{Format: barcode.FormatCode128, Payload: payload}}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Parallel.MaxWorkers = 4
	return cfg
}
