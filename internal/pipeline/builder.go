package pipeline

import (
	"strings"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/detector"
)

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg      Config
	detector detector.Detector
	decoder  barcode.Decoder
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// NewBuilderFrom starts from an existing config.
func NewBuilderFrom(cfg Config) *Builder { return &Builder{cfg: cfg} }

// WithAngleStep sets the degrees between sweep attempts.
func (b *Builder) WithAngleStep(step float64) *Builder {
	if step > 0 {
		b.cfg.AngleStep = step
	}
	return b
}

// WithFillColor sets the rotation fill, e.g. "#FFFFFF" or "white".
func (b *Builder) WithFillColor(fill string) *Builder {
	if fill != "" {
		b.cfg.FillColor = fill
	}
	return b
}

// WithDetector injects a ready detector. The pipeline will not close it.
func (b *Builder) WithDetector(d detector.Detector) *Builder {
	b.detector = d
	return b
}

// WithDecoder injects a ready decode capability.
func (b *Builder) WithDecoder(d barcode.Decoder) *Builder {
	b.decoder = d
	return b
}

// WithDetectorKind selects a built-in detector.
func (b *Builder) WithDetectorKind(kind string) *Builder {
	if kind != "" {
		b.cfg.Detector.Kind = strings.ToLower(kind)
	}
	return b
}

// WithDecoderKind selects a built-in decoder.
func (b *Builder) WithDecoderKind(kind string) *Builder {
	if kind != "" {
		b.cfg.DecoderKind = strings.ToLower(kind)
	}
	return b
}

// WithModelsDir sets the directory used to resolve model names.
func (b *Builder) WithModelsDir(dir string) *Builder {
	if dir != "" {
		b.cfg.ModelsDir = dir
	}
	return b
}

// WithModelPath sets the ONNX detection model (file name or path).
func (b *Builder) WithModelPath(path string) *Builder {
	if path != "" {
		b.cfg.Detector.ModelPath = path
	}
	return b
}

// WithRemoteDetector points the remote detector at url.
func (b *Builder) WithRemoteDetector(url string) *Builder {
	if url != "" {
		b.cfg.Detector.Kind = detector.KindRemote
		b.cfg.Detector.RemoteURL = url
	}
	return b
}

// WithConfidence sets the detector confidence threshold.
func (b *Builder) WithConfidence(th float64) *Builder {
	if th > 0 {
		b.cfg.Detector.ConfThreshold = th
	}
	return b
}

// WithMinRegionSize drops detections whose shorter side is below px.
func (b *Builder) WithMinRegionSize(px int) *Builder {
	if px >= 0 {
		b.cfg.Detector.MinRegionSize = px
	}
	return b
}

// WithFullFrameFallback toggles decoding the whole image when nothing is detected.
func (b *Builder) WithFullFrameFallback(enabled bool) *Builder {
	b.cfg.Detector.FallbackFullFrame = enabled
	return b
}

// WithFormats restricts accepted symbologies.
func (b *Builder) WithFormats(formats ...string) *Builder {
	b.cfg.Formats = formats
	return b
}

// WithTryHarder enables the slower decode mode for each angle.
func (b *Builder) WithTryHarder(enabled bool) *Builder {
	b.cfg.TryHarder = enabled
	return b
}

// WithTempDir sets where file based decoders stage images.
func (b *Builder) WithTempDir(dir string) *Builder {
	b.cfg.TempDir = dir
	return b
}

// WithMaxWorkers bounds how many regions are decoded concurrently.
func (b *Builder) WithMaxWorkers(n int) *Builder {
	if n > 0 {
		b.cfg.Parallel.MaxWorkers = n
	}
	return b
}

// WithThreads sets ONNX intra-op threads.
func (b *Builder) WithThreads(n int) *Builder {
	if n > 0 {
		b.cfg.Detector.NumThreads = n
	}
	return b
}

// WithGPU enables CUDA for the ONNX detector.
func (b *Builder) WithGPU(enabled bool) *Builder {
	b.cfg.Detector.GPU.UseGPU = enabled
	return b
}

// WithProgressCallback reports per-region progress.
func (b *Builder) WithProgressCallback(cb ProgressCallback) *Builder {
	b.cfg.Parallel.ProgressCallback = cb
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Build creates the pipeline. Injected components take precedence over the
// kinds named in the config.
func (b *Builder) Build() (*Pipeline, error) {
	switch {
	case b.detector == nil && b.decoder == nil:
		return New(b.cfg)
	case b.detector != nil && b.decoder != nil:
		return NewWithComponents(b.cfg, b.detector, b.decoder)
	}

	cfg := b.cfg.resolved()
	dec := b.decoder
	if dec == nil {
		var err error
		if dec, err = barcode.New(cfg.DecoderKind, cfg.TempDir); err != nil {
			return nil, err
		}
	}
	if b.detector != nil {
		return NewWithComponents(cfg, b.detector, dec)
	}

	det, err := detector.New(cfg.Detector, dec)
	if err != nil {
		return nil, err
	}
	p, err := NewWithComponents(cfg, det, dec)
	if err != nil {
		_ = det.Close()
		return nil, err
	}
	p.closers = append(p.closers, det.Close)
	return p, nil
}
