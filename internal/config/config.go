package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/detector"
	"github.com/MeKo-Tech/barscan/internal/models"
	"github.com/MeKo-Tech/barscan/internal/onnx"
	"github.com/MeKo-Tech/barscan/internal/pipeline"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ModelsDir: models.DefaultModelsDir,
		LogLevel:  "info",
		Pipeline: PipelineConfig{
			Detector: defaultDetectorConfig(),
			Decoder:  DecoderConfig{Kind: barcode.KindZXing},
			Rotation: RotationConfig{
				AngleStep: pipeline.DefaultAngleStep,
				FillColor: pipeline.DefaultFillColor,
			},
			Parallel: ParallelConfig{MaxWorkers: pipeline.DefaultParallelConfig().MaxWorkers},
		},
		Output: OutputConfig{Format: pipeline.FormatText},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			CORSOrigin:      "*",
			MaxUploadMB:     20,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 120,
				Burst:             20,
			},
		},
		Batch: BatchConfig{
			Workers:         4,
			Recursive:       true,
			ContinueOnError: true,
		},
		GPU: GPUConfig{
			Enabled:     false,
			Device:      0,
			MemoryLimit: "auto",
		},
	}
}

// defaultDetectorConfig mirrors detector.DefaultConfig in file form.
func defaultDetectorConfig() DetectorConfig {
	cfg := detector.DefaultConfig()
	return DetectorConfig{
		Kind:              cfg.Kind,
		ModelPath:         models.DetectionNano,
		InputSize:         cfg.InputSize,
		ConfThreshold:     cfg.ConfThreshold,
		NMSThreshold:      cfg.NMSThreshold,
		NumThreads:        cfg.NumThreads,
		PaddingRatio:      cfg.PaddingRatio,
		MinRegionSize:     cfg.MinRegionSize,
		MaxRegions:        cfg.MaxRegions,
		FallbackFullFrame: cfg.FallbackFullFrame,
		RemoteTimeoutSec:  int(cfg.RemoteTimeout / time.Second),
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.Output.Format != "" && !contains(pipeline.OutputFormats(), c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)",
			c.Output.Format, strings.Join(pipeline.OutputFormats(), ", "))
	}

	if !contains(detector.Kinds(), strings.ToLower(c.Pipeline.Detector.Kind)) {
		return fmt.Errorf("invalid detector kind: %s (must be one of: %s)",
			c.Pipeline.Detector.Kind, strings.Join(detector.Kinds(), ", "))
	}
	validDecoders := []string{barcode.KindZXing, barcode.KindZBar}
	if !contains(validDecoders, strings.ToLower(c.Pipeline.Decoder.Kind)) {
		return fmt.Errorf("invalid decoder kind: %s (must be one of: %s)",
			c.Pipeline.Decoder.Kind, strings.Join(validDecoders, ", "))
	}
	if _, unknown := barcode.ParseFormats(c.Pipeline.Decoder.Formats); len(unknown) > 0 {
		return fmt.Errorf("invalid decoder formats: %s", strings.Join(unknown, ", "))
	}

	if err := validateThreshold(c.Pipeline.Detector.ConfThreshold, "detector.conf_threshold"); err != nil {
		return err
	}
	if err := validateThreshold(c.Pipeline.Detector.NMSThreshold, "detector.nms_threshold"); err != nil {
		return err
	}
	if c.Pipeline.Detector.PaddingRatio < 0 {
		return fmt.Errorf("invalid detector padding ratio: %.2f (must not be negative)", c.Pipeline.Detector.PaddingRatio)
	}
	if strings.EqualFold(c.Pipeline.Detector.Kind, detector.KindRemote) && c.Pipeline.Detector.RemoteURL == "" {
		return fmt.Errorf("detector.remote_url is required for the %s detector", detector.KindRemote)
	}

	if err := pipeline.ValidateAngleStep(c.Pipeline.Rotation.AngleStep); err != nil {
		return fmt.Errorf("invalid rotation.angle_step: %w", err)
	}
	if c.Pipeline.Rotation.FillColor == "" {
		return fmt.Errorf("invalid rotation.fill_color: must not be empty")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("invalid rate limit: %d requests per minute (must be positive)", c.Server.RateLimit.RequestsPerMinute)
	}
	if c.Pipeline.Parallel.MaxWorkers <= 0 {
		return fmt.Errorf("invalid parallel max workers: %d (must be positive)", c.Pipeline.Parallel.MaxWorkers)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}

	if _, err := parseMemoryLimit(c.GPU.MemoryLimit); err != nil {
		return fmt.Errorf("invalid GPU memory limit: %w", err)
	}

	return nil
}

// ToPipelineConfig converts the config to the internal pipeline configuration format.
func (c *Config) ToPipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	if c.ModelsDir != "" {
		cfg.ModelsDir = c.ModelsDir
	}
	cfg.Detector = c.toDetectorConfig()
	cfg.DecoderKind = strings.ToLower(c.Pipeline.Decoder.Kind)
	cfg.Formats = c.Pipeline.Decoder.Formats
	cfg.TryHarder = c.Pipeline.Decoder.TryHarder
	cfg.TempDir = c.Pipeline.Decoder.TempDir
	cfg.AngleStep = c.Pipeline.Rotation.AngleStep
	cfg.FillColor = c.Pipeline.Rotation.FillColor
	cfg.Parallel.MaxWorkers = c.Pipeline.Parallel.MaxWorkers
	return cfg
}

// toDetectorConfig converts to detector.Config.
func (c *Config) toDetectorConfig() detector.Config {
	d := c.Pipeline.Detector
	cfg := detector.DefaultConfig()
	cfg.Kind = strings.ToLower(d.Kind)
	cfg.ModelPath = d.ModelPath
	if d.InputSize > 0 {
		cfg.InputSize = d.InputSize
	}
	cfg.ConfThreshold = d.ConfThreshold
	cfg.NMSThreshold = d.NMSThreshold
	cfg.NumThreads = d.NumThreads
	cfg.PaddingRatio = d.PaddingRatio
	cfg.MinRegionSize = d.MinRegionSize
	cfg.MaxRegions = d.MaxRegions
	cfg.FallbackFullFrame = d.FallbackFullFrame
	cfg.RemoteURL = d.RemoteURL
	if d.RemoteTimeoutSec > 0 {
		cfg.RemoteTimeout = time.Duration(d.RemoteTimeoutSec) * time.Second
	}
	cfg.RemoteClasses = d.RemoteClasses
	cfg.GPU = c.toGPUConfig()
	return cfg
}

// toGPUConfig converts to onnx.GPUConfig.
func (c *Config) toGPUConfig() onnx.GPUConfig {
	cfg := onnx.DefaultGPUConfig()
	cfg.UseGPU = c.GPU.Enabled
	cfg.DeviceID = c.GPU.Device
	if limit, err := parseMemoryLimit(c.GPU.MemoryLimit); err == nil {
		cfg.GPUMemLimit = limit
	}
	return cfg
}

// Helper functions

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}

// parseMemoryLimit converts "512MB", "2GB" etc. to bytes. "" and "auto"
// mean unlimited and return 0.
func parseMemoryLimit(limit string) (uint64, error) {
	if limit == "" || strings.EqualFold(limit, "auto") {
		return 0, nil
	}

	upper := strings.ToUpper(strings.TrimSpace(limit))
	units := []struct {
		suffix string
		mult   float64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	}
	for _, u := range units {
		if !strings.HasSuffix(upper, u.suffix) {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSuffix(upper, u.suffix), 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid number in memory limit: %s", limit)
		}
		return uint64(n * u.mult), nil
	}
	return 0, fmt.Errorf("memory limit must end with one of: B, KB, MB, GB")
}
