package cmd

import (
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/testutil"
)

func TestBatchCommandDecodesDirectory(t *testing.T) {
	dir := t.TempDir()
	testutil.SaveImage(t, testutil.PasteCenter(testutil.Code128(t, "BATCH-CLI", 400, 120), testutil.MediumSize),
		filepath.Join(dir, "a.png"))
	testutil.SaveImage(t, testutil.CreateTestImage(120, 80, color.White), filepath.Join(dir, "b.png"))

	output, err := executeCommandAndCaptureOutput(t, rootCmd, []string{
		"batch", dir, "--detector", "fullframe", "--format", "csv", "--quiet", "--workers", "2",
	})
	require.NoError(t, err)

	lines := strings.Split(output, "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "file,"))
	assert.Contains(t, output, "BATCH-CLI")
}

func TestBatchCommandNoImages(t *testing.T) {
	_, err := executeCommandAndCaptureOutput(t, rootCmd, []string{"batch", t.TempDir(), "--quiet"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no image files found")
}
