//nolint:lll
package config

// Config represents the complete configuration for barscan.
// It includes settings for all commands (image, pdf, serve, batch) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output" json:"output"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server" json:"server"`
	Batch    BatchConfig    `mapstructure:"batch" yaml:"batch" json:"batch"`
	GPU      GPUConfig      `mapstructure:"gpu" yaml:"gpu" json:"gpu"`
}

// PipelineConfig contains decode pipeline settings.
type PipelineConfig struct {
	Detector DetectorConfig `mapstructure:"detector" yaml:"detector" json:"detector"`
	Decoder  DecoderConfig  `mapstructure:"decoder" yaml:"decoder" json:"decoder"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation" json:"rotation"`
	Parallel ParallelConfig `mapstructure:"parallel" yaml:"parallel" json:"parallel"`
}

// DetectorConfig contains region detection settings.
type DetectorConfig struct {
	Kind              string  `mapstructure:"kind" yaml:"kind" json:"kind"`
	ModelPath         string  `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	InputSize         int     `mapstructure:"input_size" yaml:"input_size" json:"input_size"`
	ConfThreshold     float64 `mapstructure:"conf_threshold" yaml:"conf_threshold" json:"conf_threshold"`
	NMSThreshold      float64 `mapstructure:"nms_threshold" yaml:"nms_threshold" json:"nms_threshold"`
	NumThreads        int     `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
	PaddingRatio      float64 `mapstructure:"padding_ratio" yaml:"padding_ratio" json:"padding_ratio"`
	MinRegionSize     int     `mapstructure:"min_region_size" yaml:"min_region_size" json:"min_region_size"`
	MaxRegions        int     `mapstructure:"max_regions" yaml:"max_regions" json:"max_regions"`
	FallbackFullFrame bool    `mapstructure:"fallback_full_frame" yaml:"fallback_full_frame" json:"fallback_full_frame"`

	// Remote detection service
	RemoteURL        string   `mapstructure:"remote_url" yaml:"remote_url" json:"remote_url"`
	RemoteTimeoutSec int      `mapstructure:"remote_timeout_sec" yaml:"remote_timeout_sec" json:"remote_timeout_sec"`
	RemoteClasses    []string `mapstructure:"remote_classes" yaml:"remote_classes" json:"remote_classes"`
}

// DecoderConfig contains decode capability settings.
type DecoderConfig struct {
	Kind      string   `mapstructure:"kind" yaml:"kind" json:"kind"`
	Formats   []string `mapstructure:"formats" yaml:"formats" json:"formats"`
	TryHarder bool     `mapstructure:"try_harder" yaml:"try_harder" json:"try_harder"`
	TempDir   string   `mapstructure:"temp_dir" yaml:"temp_dir" json:"temp_dir"`
}

// RotationConfig contains rotation sweep settings.
type RotationConfig struct {
	AngleStep float64 `mapstructure:"angle_step" yaml:"angle_step" json:"angle_step"`
	FillColor string  `mapstructure:"fill_color" yaml:"fill_color" json:"fill_color"`
}

// ParallelConfig contains parallel processing settings.
type ParallelConfig struct {
	MaxWorkers int `mapstructure:"max_workers" yaml:"max_workers" json:"max_workers"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format     string `mapstructure:"format" yaml:"format" json:"format"`
	File       string `mapstructure:"file" yaml:"file" json:"file"`
	OverlayDir string `mapstructure:"overlay_dir" yaml:"overlay_dir" json:"overlay_dir"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	OverlayEnabled  bool            `mapstructure:"overlay_enabled" yaml:"overlay_enabled" json:"overlay_enabled"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	Burst             int  `mapstructure:"burst" yaml:"burst" json:"burst"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}

// GPUConfig contains GPU acceleration settings.
type GPUConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Device      int    `mapstructure:"device" yaml:"device" json:"device"`
	MemoryLimit string `mapstructure:"memory_limit" yaml:"memory_limit" json:"memory_limit"`
}
