package batch

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.Recursive)
	assert.True(t, cfg.ContinueOnError)
	assert.Equal(t, "text", cfg.Format)
	assert.NoError(t, cfg.Pipeline.Validate())
}

func TestResult_Stats(t *testing.T) {
	s := sampleResult().Stats()
	assert.Equal(t, Stats{
		Files: 3, Succeeded: 2, Failed: 1, WithCodes: 1, Barcodes: 2,
		Duration: 2 * time.Second, PerFile: 2 * time.Second / 3, PerSecond: 1.5,
	}, s)

	assert.Equal(t, Stats{}, (&Result{}).Stats())
}

func TestResult_SaveResults(t *testing.T) {
	res := sampleResult()

	var stdout bytes.Buffer
	require.NoError(t, res.SaveResults(&stdout, "csv", "", false))
	assert.Contains(t, stdout.String(), "a.png")

	out := filepath.Join(t.TempDir(), "results.json")
	stdout.Reset()
	require.NoError(t, res.SaveResults(&stdout, "json", out, false))
	assert.Contains(t, stdout.String(), "Results written to")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"two, with comma"`)

	stdout.Reset()
	require.NoError(t, res.SaveResults(&stdout, "json", out, true))
	assert.Empty(t, stdout.String())

	assert.Error(t, res.SaveResults(&stdout, "xml", "", false))
}

func TestResult_PrintStats(t *testing.T) {
	var buf bytes.Buffer
	sampleResult().PrintStats(&buf)
	out := buf.String()
	assert.Contains(t, out, "Total files: 3")
	assert.Contains(t, out, "Failed: 1")
	assert.Contains(t, out, "Barcodes: 2")
	assert.Contains(t, out, "Throughput: 1.5 files/sec")
}
