package pipeline

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"runtime"
	"strings"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/detector"
	"github.com/MeKo-Tech/barscan/internal/models"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// Sweep defaults: twelve 30 degree steps on a white canvas.
const (
	DefaultAngleStep = 30.0

	// MinAngleStep keeps a sweep at no more than 360 attempts per region.
	MinAngleStep = 1.0
	DefaultFillColor = "#FFFFFF"
)

// ParallelConfig bounds region-level concurrency.
type ParallelConfig struct {
	MaxWorkers       int              // regions decoded at once (0 = runtime.NumCPU())
	ProgressCallback ProgressCallback // optional, reports per region
}

// DefaultParallelConfig uses one worker per CPU.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

// Config holds configuration for the decode pipeline and its components.
type Config struct {
	ModelsDir string
	Detector  detector.Config

	DecoderKind string   // zxing | zbar
	TempDir     string   // staging directory for file based decoders ("" = os.TempDir())
	TryHarder   bool     // slower, more thorough decode per angle
	Formats     []string // symbologies to accept, empty = all

	AngleStep float64 // degrees between sweep attempts, 1 <= step < 360
	FillColor string  // fill for corners exposed by rotation

	Constraints utils.ImageConstraints
	Parallel    ParallelConfig
}

// DefaultConfig returns a default pipeline config with component defaults.
func DefaultConfig() Config {
	return Config{
		ModelsDir:   models.GetModelsDir(""),
		Detector:    detector.DefaultConfig(),
		DecoderKind: barcode.KindZXing,
		AngleStep:   DefaultAngleStep,
		FillColor:   DefaultFillColor,
		Constraints: utils.DefaultImageConstraints(),
		Parallel:    DefaultParallelConfig(),
	}
}

// ValidateAngleStep rejects steps outside [MinAngleStep, 360).
func ValidateAngleStep(step float64) error {
	if !(step >= MinAngleStep && step < 360) {
		return fmt.Errorf("angle step must be in [%v, 360), got %v", MinAngleStep, step)
	}
	return nil
}

// Validate checks the configuration without touching the filesystem except
// for the ONNX model path.
func (c Config) Validate() error {
	if err := ValidateAngleStep(c.AngleStep); err != nil {
		return err
	}
	if _, err := utils.ParseColor(c.FillColor); err != nil {
		return fmt.Errorf("invalid fill color: %w", err)
	}
	formats, unknown := barcode.ParseFormats(c.Formats)
	if len(unknown) > 0 {
		return fmt.Errorf("unknown barcode formats: %s", strings.Join(unknown, ", "))
	}
	switch strings.ToLower(c.DecoderKind) {
	case "", barcode.KindZXing, "gozxing", barcode.KindZBar:
	default:
		return fmt.Errorf("%w: %q", barcode.ErrUnknownDecoder, c.DecoderKind)
	}
	if err := barcode.CheckFormats(c.DecoderKind, formats); err != nil {
		return err
	}
	if c.Parallel.MaxWorkers < 0 {
		return errors.New("max workers must be >= 0")
	}
	if err := c.Detector.Validate(); err != nil {
		return err
	}
	if strings.EqualFold(c.Detector.Kind, detector.KindONNX) {
		if err := models.ValidateModelExists(c.Detector.ModelPath); err != nil {
			return err
		}
	}
	if c.TempDir != "" {
		if info, err := os.Stat(c.TempDir); err != nil || !info.IsDir() {
			return fmt.Errorf("temp dir not usable: %s", c.TempDir)
		}
	}
	return nil
}

// fill returns the parsed fill color, white if unparsable.
func (c Config) fill() color.NRGBA {
	col, err := utils.ParseColor(c.FillColor)
	if err != nil {
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
	return col
}

func (c Config) decodeOptions() barcode.Options {
	formats, _ := barcode.ParseFormats(c.Formats)
	return barcode.Options{Formats: formats, TryHarder: c.TryHarder}
}

func (c Config) workers() int {
	if c.Parallel.MaxWorkers <= 0 {
		return runtime.NumCPU()
	}
	return c.Parallel.MaxWorkers
}
