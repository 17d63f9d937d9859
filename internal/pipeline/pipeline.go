// Package pipeline turns image bytes into decoded barcodes: detect regions,
// crop each one, sweep rotations until the decoder reads a payload, and
// aggregate the per-region outcomes in detection order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/common"
	"github.com/MeKo-Tech/barscan/internal/detector"
	"github.com/MeKo-Tech/barscan/internal/models"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// Pipeline wires together the region detector and the decode capability.
// One Pipeline serves concurrent runs.
type Pipeline struct {
	cfg      Config
	detector detector.Detector
	decoder  barcode.Decoder
	angles   []float64

	// closers are components the pipeline constructed and therefore owns.
	closers []func() error
}

// Overrides adjust a single run without touching the shared config.
// Zero values keep the configured behaviour.
type Overrides struct {
	AngleStep float64
	Fill      color.Color
	Formats   []barcode.Format
}

// New builds the detector and decoder named in cfg.
func New(cfg Config) (*Pipeline, error) {
	cfg = cfg.resolved()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}

	dec, err := barcode.New(cfg.DecoderKind, cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	det, err := detector.New(cfg.Detector, dec)
	if err != nil {
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}

	p, err := NewWithComponents(cfg, det, dec)
	if err != nil {
		_ = det.Close()
		return nil, err
	}
	p.closers = append(p.closers, det.Close)
	return p, nil
}

// NewWithComponents uses caller supplied components. The caller keeps
// ownership of det; Close will not close it.
func NewWithComponents(cfg Config, det detector.Detector, dec barcode.Decoder) (*Pipeline, error) {
	if det == nil {
		return nil, errors.New("detector is required")
	}
	if dec == nil {
		return nil, errors.New("decoder is required")
	}
	angles, err := Angles(cfg.AngleStep)
	if err != nil {
		return nil, err
	}
	if _, err := utils.ParseColor(cfg.FillColor); err != nil {
		return nil, fmt.Errorf("invalid fill color: %w", err)
	}
	slog.Debug("Pipeline ready",
		"detector", cfg.Detector.Kind, "decoder", cfg.DecoderKind,
		"angle_step", cfg.AngleStep, "angles", len(angles), "workers", cfg.workers())
	return &Pipeline{cfg: cfg, detector: det, decoder: dec, angles: angles}, nil
}

// resolved fills in derived settings such as the model path.
func (c Config) resolved() Config {
	if strings.EqualFold(c.Detector.Kind, detector.KindONNX) {
		c.Detector.ModelPath = models.ResolveModelPath(c.ModelsDir, c.Detector.ModelPath)
	}
	return c
}

// Config returns a copy of the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Run decodes every barcode found in data. Undecodable bytes yield an
// *IngestError before any detection happens. A failing detector yields a
// *detector.DetectionError. Regions that cannot be decoded are simply
// absent from the result; an empty result is a success.
func (p *Pipeline) Run(ctx context.Context, data []byte) (*Result, error) {
	return p.RunWith(ctx, data, Overrides{})
}

// RunWith is Run with per-request overrides.
func (p *Pipeline) RunWith(ctx context.Context, data []byte, o Overrides) (*Result, error) {
	sw := common.NewStopwatch()
	img, format, err := utils.DecodeImageBytesWithin(data, p.cfg.Constraints)
	if err != nil {
		return nil, &IngestError{Err: err}
	}
	decodeImage := sw.Lap("decode_image")

	res, err := p.run(ctx, img, o, sw)
	if err != nil {
		return nil, err
	}
	res.Format = format
	res.Processing.DecodeImageMs = common.Milliseconds(decodeImage)
	return res, nil
}

// RunImage runs detection and decoding on an already decoded image.
func (p *Pipeline) RunImage(ctx context.Context, img image.Image) (*Result, error) {
	return p.RunImageWith(ctx, img, Overrides{})
}

// RunImageWith is RunImage with per-request overrides.
func (p *Pipeline) RunImageWith(ctx context.Context, img image.Image, o Overrides) (*Result, error) {
	if img == nil {
		return nil, &IngestError{Err: errors.New("nil image")}
	}
	return p.run(ctx, img, o, common.NewStopwatch())
}

func (p *Pipeline) run(ctx context.Context, img image.Image, o Overrides, sw *common.Stopwatch) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sweeper, step, err := p.sweeper(o)
	if err != nil {
		return nil, err
	}

	regions, err := p.detector.Detect(ctx, img)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var de *detector.DetectionError
		if !errors.As(err, &de) {
			err = &detector.DetectionError{Detector: p.cfg.Detector.Kind, Err: err}
		}
		slog.Error("Detection failed", "error", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	detect := sw.Lap("detect")
	slog.Debug("Detection completed", "regions", len(regions), "duration_ms", common.Milliseconds(detect))

	outcomes := p.decodeRegions(ctx, img, regions, sweeper, step)
	sweep := sw.Lap("sweep")

	perRegion := make([]*DecodeResult, len(outcomes))
	anglesTried, incomplete := 0, false
	for i, oc := range outcomes {
		anglesTried += oc.sweep.AnglesTried
		incomplete = incomplete || oc.cancelled
		if r := oc.sweep.Result; r != nil {
			r.Region = oc.region
			r.RegionIndex = i
			perRegion[i] = r
		}
	}

	agg := Aggregate(perRegion)
	b := img.Bounds()
	agg.Width, agg.Height = b.Dx(), b.Dy()
	agg.RegionsDetected = len(regions)
	agg.Regions = regions
	agg.AnglesTried = anglesTried
	agg.Incomplete = incomplete
	agg.Processing = Timing{
		DetectMs: common.Milliseconds(detect),
		SweepMs:  common.Milliseconds(sweep),
		TotalMs:  common.Milliseconds(sw.Elapsed()),
	}
	slog.Debug("Pipeline run completed",
		"regions", len(regions), "decoded", len(agg.Results),
		"angles_tried", agg.AnglesTried, "incomplete", agg.Incomplete, "stages", sw.String())
	return agg, nil
}

// sweeper builds the rotation decoder and step for one run.
func (p *Pipeline) sweeper(o Overrides) (*RotationDecoder, float64, error) {
	step := p.cfg.AngleStep
	if o.AngleStep != 0 {
		if err := ValidateAngleStep(o.AngleStep); err != nil {
			return nil, 0, err
		}
		step = o.AngleStep
	}
	var fill color.Color = p.cfg.fill()
	if o.Fill != nil {
		fill = o.Fill
	}
	opts := p.cfg.decodeOptions()
	if len(o.Formats) > 0 {
		if err := barcode.CheckFormats(p.cfg.DecoderKind, o.Formats); err != nil {
			return nil, 0, err
		}
		opts.Formats = o.Formats
	}
	return NewRotationDecoder(p.decoder, opts, fill), step, nil
}

// Close releases components the pipeline created.
func (p *Pipeline) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}

// Info summarizes the active configuration.
type Info struct {
	Detector   string    `json:"detector" yaml:"detector"`
	Decoder    string    `json:"decoder" yaml:"decoder"`
	AngleStep  float64   `json:"angle_step" yaml:"angle_step"`
	Angles     []float64 `json:"angles" yaml:"angles"`
	FillColor  string    `json:"fill_color" yaml:"fill_color"`
	Formats    []string  `json:"formats,omitempty" yaml:"formats,omitempty"`
	TryHarder  bool      `json:"try_harder" yaml:"try_harder"`
	MaxWorkers int       `json:"max_workers" yaml:"max_workers"`
}

// Info returns a description of the pipeline.
func (p *Pipeline) Info() Info {
	return Info{
		Detector:   p.cfg.Detector.Kind,
		Decoder:    p.cfg.DecoderKind,
		AngleStep:  p.cfg.AngleStep,
		Angles:     append([]float64(nil), p.angles...),
		FillColor:  utils.ColorHex(p.cfg.fill()),
		Formats:    p.cfg.Formats,
		TryHarder:  p.cfg.TryHarder,
		MaxWorkers: p.cfg.workers(),
	}
}
