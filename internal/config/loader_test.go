package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate moves the test into an empty directory and hides the user's
// home and XDG config so only the test's files are found.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	require.NotNil(t, l)
	assert.Same(t, viper.GetViper(), l.v)

	own := viper.New()
	assert.Same(t, own, NewLoaderWith(own).v)
}

func TestLoadWithNoConfigFile(t *testing.T) {
	isolate(t)

	l := NewLoaderWith(viper.New())
	cfg, err := l.Load()
	require.NoError(t, err)
	want := DefaultConfig()
	assert.Equal(t, want.LogLevel, cfg.LogLevel)
	assert.Equal(t, want.Server, cfg.Server)
	assert.Equal(t, want.Pipeline.Rotation, cfg.Pipeline.Rotation)
	assert.Equal(t, want.Pipeline.Detector.Kind, cfg.Pipeline.Detector.Kind)
	assert.Equal(t, want.Pipeline.Parallel, cfg.Pipeline.Parallel)
	assert.Empty(t, l.GetConfigFileUsed())
}

func TestLoadFindsFileInWorkingDirectory(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "barscan.yaml"), "server:\n  port: 9100\n")

	l := NewLoaderWith(viper.New())
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "barscan.yaml", filepath.Base(l.GetConfigFileUsed()))
}

func TestLoadWithValidYAMLFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, `
log_level: debug
verbose: true
models_dir: /custom/models
server:
  host: 127.0.0.1
  port: 9090
  rate_limit:
    enabled: true
    requests_per_minute: 30
pipeline:
  detector:
    kind: locator
    conf_threshold: 0.4
  decoder:
    formats: [qr, code128]
  rotation:
    angle_step: 15
    fill_color: "#000000"
batch:
  exclude: ["*.tmp"]
`)

	cfg, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "/custom/models", cfg.ModelsDir)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, 30, cfg.Server.RateLimit.RequestsPerMinute)
	assert.Equal(t, 20, cfg.Server.RateLimit.Burst)
	assert.Equal(t, "locator", cfg.Pipeline.Detector.Kind)
	assert.InDelta(t, 0.4, cfg.Pipeline.Detector.ConfThreshold, 1e-9)
	assert.Equal(t, []string{"qr", "code128"}, cfg.Pipeline.Decoder.Formats)
	assert.InDelta(t, 15.0, cfg.Pipeline.Rotation.AngleStep, 1e-9)
	assert.Equal(t, "#000000", cfg.Pipeline.Rotation.FillColor)
	assert.Equal(t, []string{"*.tmp"}, cfg.Batch.Exclude)
	// untouched keys keep defaults
	assert.Equal(t, 30, cfg.Server.TimeoutSec)
}

func TestLoadWithInvalidYAMLFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yaml")
	writeFile(t, path, "server: [port: 1\n")

	_, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadWithNonExistentFile(t *testing.T) {
	isolate(t)
	_, err := NewLoaderWith(viper.New()).LoadWithFile("/does/not/exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoadWithValidationFailure(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "invalid.yaml")
	writeFile(t, path, "pipeline:\n  rotation:\n    angle_step: 400\n")

	_, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")

	cfg, err := NewLoaderWith(viper.New()).LoadWithFileWithoutValidation(path)
	require.NoError(t, err)
	assert.InDelta(t, 400.0, cfg.Pipeline.Rotation.AngleStep, 1e-9)
}

func TestEnvironmentVariableOverride(t *testing.T) {
	isolate(t)
	t.Setenv("BARSCAN_LOG_LEVEL", "warn")
	t.Setenv("BARSCAN_SERVER_PORT", "9999")
	t.Setenv("BARSCAN_PIPELINE_ROTATION_ANGLE_STEP", "45")
	t.Setenv("BARSCAN_PIPELINE_DETECTOR_KIND", "fullframe")
	t.Setenv("BARSCAN_SERVER_RATE_LIMIT_ENABLED", "true")

	cfg, err := NewLoaderWith(viper.New()).Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.InDelta(t, 45.0, cfg.Pipeline.Rotation.AngleStep, 1e-9)
	assert.Equal(t, "fullframe", cfg.Pipeline.Detector.Kind)
	assert.True(t, cfg.Server.RateLimit.Enabled)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "barscan.yaml")
	writeFile(t, path, "server:\n  port: 9090\n")
	t.Setenv("BARSCAN_SERVER_PORT", "9191")

	cfg, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestGetResolvedConfig(t *testing.T) {
	l := NewLoaderWith(viper.New())
	l.setDefaults()
	settings := l.GetResolvedConfig()
	assert.Contains(t, settings, "pipeline")
	assert.Contains(t, settings, "server")
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "generated.yaml")
	require.NoError(t, GenerateDefaultConfigFile(path))

	cfg, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.InDelta(t, 30.0, cfg.Pipeline.Rotation.AngleStep, 1e-9)
}

func TestGenerateDefaultConfigFileWithEmptyFilename(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, GenerateDefaultConfigFile(""))
	_, err := os.Stat(filepath.Join(dir, "barscan.yaml"))
	assert.NoError(t, err)
}

func TestGetConfigSearchPaths(t *testing.T) {
	dir := isolate(t)
	paths := GetConfigSearchPaths()
	assert.Equal(t, ".", paths[0])
	assert.Contains(t, paths, dir)
	assert.Contains(t, paths, filepath.Join(dir, "xdg", "barscan"))
	assert.Equal(t, "/etc/barscan", paths[len(paths)-1])
}

func TestPrintConfigInfo(t *testing.T) {
	var buf bytes.Buffer
	NewLoaderWith(viper.New()).PrintConfigInfo(&buf)
	assert.Contains(t, buf.String(), "Environment prefix: BARSCAN")
}
