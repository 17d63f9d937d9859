package pdf

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/detector"
	"github.com/MeKo-Tech/barscan/internal/pipeline"
	"github.com/MeKo-Tech/barscan/internal/testutil"
)

// fakeRunner answers by image width.
type fakeRunner struct {
	mu      sync.Mutex
	widths  []int
	results map[int]*pipeline.Result
	errs    map[int]error
}

func (f *fakeRunner) RunImage(_ context.Context, img image.Image) (*pipeline.Result, error) {
	w := img.Bounds().Dx()
	f.mu.Lock()
	f.widths = append(f.widths, w)
	f.mu.Unlock()
	if err := f.errs[w]; err != nil {
		return nil, err
	}
	if r := f.results[w]; r != nil {
		return r, nil
	}
	return &pipeline.Result{Results: []pipeline.DecodeResult{}}, nil
}

func TestProcessor_ProcessFile(t *testing.T) {
	path := buildPDF(t,
		testutil.CreateTestImage(200, 200, image.White),
		testutil.CreateTestImage(300, 120, image.White),
	)
	runner := &fakeRunner{
		results: map[int]*pipeline.Result{
			300: {Results: []pipeline.DecodeResult{{Payload: "ON-PAGE-2", Format: "CODE_128"}}},
		},
	}

	doc, err := NewProcessor(runner).ProcessFile(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(path), doc.Filename)
	assert.Equal(t, 2, doc.TotalPages)
	require.Len(t, doc.Pages, 2)
	assert.Equal(t, 1, doc.Pages[0].PageNumber)
	assert.Empty(t, doc.Pages[0].Images[0].Barcodes)
	assert.Equal(t, 300, doc.Pages[1].Images[0].Width)
	assert.Equal(t, 1, doc.Count())
	assert.Equal(t, []string{"ON-PAGE-2"}, doc.Payloads())
}

func TestProcessor_ImageErrorsAreReported(t *testing.T) {
	path := buildPDF(t, testutil.CreateTestImage(200, 200, image.White))
	runner := &fakeRunner{errs: map[int]error{200: &pipeline.IngestError{Err: errors.New("too small")}}}

	doc, err := NewProcessor(runner).ProcessFile(context.Background(), path, "")
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)
	assert.Contains(t, doc.Pages[0].Images[0].Error, "too small")
	assert.Zero(t, doc.Count())
}

func TestProcessor_DetectionFailureAborts(t *testing.T) {
	path := buildPDF(t, testutil.CreateTestImage(200, 200, image.White))
	runner := &fakeRunner{errs: map[int]error{
		200: &detector.DetectionError{Detector: "remote", Err: errors.New("service down")},
	}}

	_, err := NewProcessor(runner).ProcessFile(context.Background(), path, "")
	require.Error(t, err)
	assert.True(t, pipeline.IsDetectionError(err))
}

func TestProcessor_MissingFile(t *testing.T) {
	_, err := NewProcessor(&fakeRunner{}).ProcessFile(context.Background(), filepath.Join(t.TempDir(), "x.pdf"), "")
	assert.Error(t, err)
}

func TestDecrypt_Unencrypted(t *testing.T) {
	path := buildPDF(t, testutil.CreateTestImage(50, 50, image.White))
	got, cleanup, err := Decrypt(path, Credentials{})
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, path, got)
}

func TestCredentials_Empty(t *testing.T) {
	assert.True(t, Credentials{}.Empty())
	assert.False(t, Credentials{UserPassword: "x"}.Empty())
	conf := Credentials{UserPassword: "u", OwnerPassword: "o"}.configuration()
	assert.Equal(t, "u", conf.UserPW)
	assert.Equal(t, "o", conf.OwnerPW)
}
