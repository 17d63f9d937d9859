// Package detector proposes rectangular regions of an image that are likely
// to contain a barcode.
package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/onnx"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// Detector finds candidate barcode regions. Implementations must be safe for
// concurrent use because one instance is shared by all requests.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]utils.Region, error)
	Close() error
}

// Kinds of detectors understood by New.
const (
	KindONNX      = "onnx"
	KindGradient  = "gradient"
	KindLocator   = "locator"
	KindFullFrame = "fullframe"
	KindRemote    = "remote"
)

// Kinds lists the detector kinds accepted by New.
func Kinds() []string {
	return []string{KindONNX, KindGradient, KindLocator, KindFullFrame, KindRemote}
}

// ErrUnknownDetector is returned by New for an unsupported kind.
var ErrUnknownDetector = errors.New("detector: unknown kind")

// DetectionError reports a failure of the detection capability itself, as
// opposed to an image that simply contains nothing.
type DetectionError struct {
	Detector string
	Err      error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("detection failed (%s): %v", e.Detector, e.Err)
}

func (e *DetectionError) Unwrap() error { return e.Err }

// Config selects and tunes a detector.
type Config struct {
	Kind string

	// ONNX model settings.
	ModelPath     string
	InputSize     int     // square model input side when the model has dynamic axes
	ConfThreshold float64 // minimum box score
	NMSThreshold  float64 // IoU above which lower scored boxes are dropped
	Objectness    bool    // model output carries an objectness column (YOLOv5 layout)
	NumThreads    int
	GPU           onnx.GPUConfig

	// Post-processing shared by all detectors.
	PaddingRatio  float64 // grow each region by this fraction of its size per side
	MinRegionSize int     // drop regions whose shorter side is below this
	MaxRegions    int     // keep at most this many regions, 0 = unlimited

	// FallbackFullFrame returns the whole image as one region when the
	// detector finds nothing.
	FallbackFullFrame bool

	Gradient GradientConfig

	RemoteURL     string
	RemoteTimeout time.Duration
	RemoteClasses []string // accepted class labels, empty accepts all
}

// DefaultConfig returns settings that work for typical phone photos.
func DefaultConfig() Config {
	return Config{
		Kind:              KindGradient,
		InputSize:         640,
		ConfThreshold:     0.25,
		NMSThreshold:      0.45,
		PaddingRatio:      0.1,
		MinRegionSize:     12,
		MaxRegions:        32,
		FallbackFullFrame: true,
		Gradient:          DefaultGradientConfig(),
		RemoteTimeout:     10 * time.Second,
		GPU:               onnx.DefaultGPUConfig(),
	}
}

// Validate checks the configuration for the selected kind.
func (c Config) Validate() error {
	kind := strings.ToLower(c.Kind)
	if !slices.Contains(Kinds(), kind) {
		return fmt.Errorf("%w: %q", ErrUnknownDetector, c.Kind)
	}
	if c.ConfThreshold < 0 || c.ConfThreshold > 1 {
		return fmt.Errorf("conf threshold must be in [0,1], got %v", c.ConfThreshold)
	}
	if c.NMSThreshold < 0 || c.NMSThreshold > 1 {
		return fmt.Errorf("nms threshold must be in [0,1], got %v", c.NMSThreshold)
	}
	if c.PaddingRatio < 0 {
		return fmt.Errorf("padding ratio must be >= 0, got %v", c.PaddingRatio)
	}
	switch kind {
	case KindONNX:
		if c.ModelPath == "" {
			return errors.New("onnx detector requires a model path")
		}
		if err := onnx.ValidateGPUConfig(c.GPU); err != nil {
			return err
		}
	case KindRemote:
		if c.RemoteURL == "" {
			return errors.New("remote detector requires a URL")
		}
	}
	return nil
}

// New builds the configured detector. dec is used by the locator detector
// and may be nil for the others.
func New(cfg Config, dec barcode.Decoder) (Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		d   Detector
		err error
	)
	switch strings.ToLower(cfg.Kind) {
	case KindONNX:
		d, err = NewONNXDetector(cfg)
	case KindGradient:
		d = NewGradientDetector(cfg)
	case KindLocator:
		if dec == nil {
			return nil, errors.New("locator detector requires a barcode decoder")
		}
		d = NewLocatorDetector(dec, cfg)
	case KindFullFrame:
		return FullFrame{}, nil
	case KindRemote:
		d = NewRemoteDetector(cfg)
	}
	if err != nil {
		return nil, err
	}
	if cfg.FallbackFullFrame {
		d = &Fallback{Primary: d, Secondary: FullFrame{}}
	}
	return d, nil
}

// finalize pads, clamps and filters raw regions. Order is preserved.
func finalize(regions []utils.Region, bounds image.Rectangle, cfg Config) []utils.Region {
	out := make([]utils.Region, 0, len(regions))
	for _, r := range regions {
		r = r.PadRatio(cfg.PaddingRatio).Clamp(bounds)
		if r.Empty() || min(r.Width(), r.Height()) < cfg.MinRegionSize {
			continue
		}
		out = append(out, r)
		if cfg.MaxRegions > 0 && len(out) == cfg.MaxRegions {
			break
		}
	}
	return out
}

// sortReadingOrder orders regions top to bottom, then left to right.
func sortReadingOrder(regions []utils.Region) {
	slices.SortStableFunc(regions, func(a, b utils.Region) int {
		if a.Y1 != b.Y1 {
			return a.Y1 - b.Y1
		}
		return a.X1 - b.X1
	})
}
