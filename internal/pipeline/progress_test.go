package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

type countingProgress struct {
	mu        sync.Mutex
	started   int
	total     int
	progress  []int
	errors    int
	completed bool
}

func (c *countingProgress) OnStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started++
	c.total = total
}

func (c *countingProgress) OnProgress(current, _ int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress = append(c.progress, current)
}

func (c *countingProgress) OnComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed = true
}

func (c *countingProgress) OnError(int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors++
}

func TestPipeline_ReportsRegionProgress(t *testing.T) {
	regions := []utils.Region{
		utils.NewRegion(0, 0, 10, 10),
		utils.NewRegion(10, 0, 22, 10),
		utils.NewRegion(22, 0, 30, 10),
	}
	dec := barcode.DecoderFunc(func(_ context.Context, img image.Image, _ barcode.Options) ([]barcode.Result, error) {
		if img.Bounds().Dx() == 12 {
			return nil, errors.New("bad region")
		}
		return result("ok"), nil
	})
	cb := &countingProgress{}
	cfg := testConfig()
	cfg.Parallel.ProgressCallback = cb
	p, err := NewWithComponents(cfg, &stubDetector{regions: regions}, dec)
	require.NoError(t, err)

	_, err = p.RunImage(context.Background(), image.NewGray(image.Rect(0, 0, 30, 10)))
	require.NoError(t, err)
	assert.Equal(t, 1, cb.started)
	assert.Equal(t, 3, cb.total)
	assert.ElementsMatch(t, []int{1, 2, 3}, cb.progress)
	assert.Equal(t, 1, cb.errors)
	assert.True(t, cb.completed)
}

func TestConsoleProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	cb := NewConsoleProgressCallback(&buf, "files ")
	cb.OnStart(4)
	cb.OnProgress(4, 4)
	cb.OnError(2, errors.New("unreadable"))
	cb.OnComplete()

	out := buf.String()
	assert.Contains(t, out, "files 0/4")
	assert.Contains(t, out, "4/4")
	assert.Contains(t, out, "item 2: unreadable")
	assert.Contains(t, out, "done in")
}

func TestLogProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cb := NewLogProgressCallback(logger, slog.LevelInfo, 2)
	cb.OnStart(3)
	cb.OnProgress(1, 3)
	cb.OnProgress(2, 3)
	cb.OnProgress(3, 3)
	cb.OnError(1, errors.New("x"))
	cb.OnComplete()

	out := buf.String()
	assert.Contains(t, out, "Processing started")
	assert.Contains(t, out, "current=2")
	assert.Contains(t, out, "current=3")
	assert.NotContains(t, out, "current=1 ")
	assert.Contains(t, out, "Item failed")
	assert.Contains(t, out, "Processing completed")
}

func TestMultiProgressCallback(t *testing.T) {
	a, b := &countingProgress{}, &countingProgress{}
	m := MultiProgressCallback{a, b}
	m.OnStart(2)
	m.OnProgress(1, 2)
	m.OnError(0, errors.New("x"))
	m.OnComplete()
	for _, c := range []*countingProgress{a, b} {
		assert.Equal(t, 2, c.total)
		assert.Equal(t, []int{1}, c.progress)
		assert.Equal(t, 1, c.errors)
		assert.True(t, c.completed)
	}
}
