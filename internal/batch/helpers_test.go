package batch

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MeKo-Tech/barscan/internal/pipeline"
	"github.com/MeKo-Tech/barscan/internal/testutil"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// widthRunner answers by image width: widths listed in failWidths fail,
// everything else decodes to a payload naming the width.
type widthRunner struct {
	failWidths map[int]error
	delay      func(width int) time.Duration

	mu      sync.Mutex
	active  int
	maxSeen int
	calls   atomic.Int32
}

func (r *widthRunner) RunImage(ctx context.Context, img image.Image) (*pipeline.Result, error) {
	r.calls.Add(1)
	r.mu.Lock()
	r.active++
	r.maxSeen = max(r.maxSeen, r.active)
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.active--
		r.mu.Unlock()
	}()

	w := img.Bounds().Dx()
	if r.delay != nil {
		select {
		case <-time.After(r.delay(w)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := r.failWidths[w]; ok {
		return nil, err
	}
	region := utils.NewRegion(0, 0, w, img.Bounds().Dy())
	return &pipeline.Result{
		Results: []pipeline.DecodeResult{{
			Payload: "w" + strconv.Itoa(w), Format: "QR_CODE", Region: region,
		}},
		Width: w, Height: img.Bounds().Dy(), RegionsDetected: 1,
		Regions: []utils.Region{region},
	}, nil
}

func (r *widthRunner) peak() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxSeen
}

var errDecodeFailed = errors.New("decoder crashed")

// writeImages saves one blank PNG per width into dir and returns the paths
// in the same order.
func writeImages(t *testing.T, dir string, widths ...int) []string {
	t.Helper()
	paths := make([]string, len(widths))
	for i, w := range widths {
		paths[i] = filepath.Join(dir, "img_"+strconv.Itoa(100+i)+".png")
		testutil.SaveImage(t, testutil.CreateTestImage(w, 40, color.White), paths[i])
	}
	return paths
}
