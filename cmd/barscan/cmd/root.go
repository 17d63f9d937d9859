package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/barscan/internal/config"
	"github.com/MeKo-Tech/barscan/internal/models"
	"github.com/MeKo-Tech/barscan/internal/version"
)

// Configuration file path.
var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "barscan",
	Short: "Detect and decode barcodes in images",
	Long: `barscan finds barcode regions in an image, rotates each region until a
decoder reads it and reports every payload in detection order.

It runs as a one-shot CLI over images, directories and PDFs, or as an HTTP
service compatible with the /decode-barcode API.

Examples:
  barscan image label.png
  barscan batch ./scans --format csv --output codes.csv
  barscan pdf invoice.pdf --pages 1-2
  barscan serve --port 8000`,
	Version:       versionString(),
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/barscan, /etc/barscan)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	defaultModelsDir := models.DefaultModelsDir
	if envDir := os.Getenv(models.EnvModelsDir); envDir != "" {
		defaultModelsDir = envDir
	}
	rootCmd.PersistentFlags().String("models-dir", defaultModelsDir,
		"directory containing ONNX models (can also be set via "+models.EnvModelsDir+")")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("models_dir", rootCmd.PersistentFlags().Lookup("models-dir"))

	rootCmd.SetVersionTemplate("barscan {{.Version}}\n")
}

func versionString() string {
	v, commit, date := version.Info()
	return fmt.Sprintf("%s (commit: %s, built: %s)", v, commit, date)
}

// setupLogging installs a JSON slog handler on stderr at the configured
// level. Stdout is left for results.
func setupLogging() {
	level := slog.LevelInfo
	if cfg, err := config.NewLoader().LoadWithFileWithoutValidation(cfgFile); err == nil {
		level = parseLogLevel(cfg.LogLevel)
		if cfg.Verbose {
			level = slog.LevelDebug
		}
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadConfig resolves flags, environment, config file and defaults and
// validates the result. Command flags must be bound before calling it.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoader()
	cfg, err := loader.LoadWithFile(cfgFile)
	if err != nil {
		return nil, err
	}
	slog.Debug("Configuration loaded", "file", loader.GetConfigFileUsed())
	return cfg, nil
}

// bindFlags binds command flags to config keys when the command runs, so
// commands sharing a flag name do not steal each other's binding.
func bindFlags(bindings map[string]string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		for flag, key := range bindings {
			f := cmd.Flags().Lookup(flag)
			if f == nil {
				return fmt.Errorf("unknown flag %q bound to %s", flag, key)
			}
			if err := viper.BindPFlag(key, f); err != nil {
				return err
			}
		}
		return nil
	}
}

// pipelineFlags are shared by every command that decodes.
var pipelineFlags = map[string]string{
	"step":        "pipeline.rotation.angle_step",
	"fill":        "pipeline.rotation.fill_color",
	"detector":    "pipeline.detector.kind",
	"decoder":     "pipeline.decoder.kind",
	"formats":     "pipeline.decoder.formats",
	"try-harder":  "pipeline.decoder.try_harder",
	"model":       "pipeline.detector.model_path",
	"remote-url":  "pipeline.detector.remote_url",
	"confidence":  "pipeline.detector.conf_threshold",
	"max-workers": "pipeline.parallel.max_workers",
	"gpu":         "gpu.enabled",
}

func addPipelineFlags(fs *pflag.FlagSet) {
	d := config.DefaultConfig().Pipeline
	fs.Float64("step", d.Rotation.AngleStep, "rotation step in degrees, 1 <= step < 360")
	fs.String("fill", d.Rotation.FillColor, "canvas fill color for rotated regions")
	fs.String("detector", d.Detector.Kind, "region detector (gradient, onnx, remote, locator, fullframe)")
	fs.String("decoder", d.Decoder.Kind, "barcode decoder (zxing, zbar)")
	fs.StringSlice("formats", nil, "restrict symbologies, e.g. qr,code128 (default all)")
	fs.Bool("try-harder", false, "spend more time per decode attempt")
	fs.String("model", "", "ONNX detector model path (relative to --models-dir)")
	fs.String("remote-url", "", "remote detector endpoint")
	fs.Float64("confidence", d.Detector.ConfThreshold, "minimum detector confidence")
	fs.Int("max-workers", 0, "regions decoded concurrently (0 = CPU count)")
	fs.Bool("gpu", false, "use CUDA for the ONNX detector")
}

// merge returns the union of binding maps.
func merge(bindings ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, m := range bindings {
		maps.Copy(out, m)
	}
	return out
}

// commandContext returns the command's context, or a background context
// when RunE is invoked directly.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
