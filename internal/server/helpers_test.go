package server

import (
	"bytes"
	"context"
	"image"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/pipeline"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// stubPipeline returns canned results and records the overrides it saw.
type stubPipeline struct {
	mu     sync.Mutex
	res    *pipeline.Result
	err    error
	run    func(ctx context.Context) (*pipeline.Result, error)
	calls  int
	last   pipeline.Overrides
	closed bool
}

func (p *stubPipeline) RunWith(ctx context.Context, _ []byte, o pipeline.Overrides) (*pipeline.Result, error) {
	return p.do(ctx, o)
}

func (p *stubPipeline) RunImageWith(ctx context.Context, _ image.Image, o pipeline.Overrides) (*pipeline.Result, error) {
	return p.do(ctx, o)
}

func (p *stubPipeline) do(ctx context.Context, o pipeline.Overrides) (*pipeline.Result, error) {
	p.mu.Lock()
	p.calls++
	p.last = o
	run, res, err := p.run, p.res, p.err
	p.mu.Unlock()
	if run != nil {
		return run(ctx)
	}
	return res, err
}

func (p *stubPipeline) Info() pipeline.Info {
	return pipeline.Info{Detector: "gradient", Decoder: "zxing", AngleStep: 30, FillColor: "#ffffff"}
}

func (p *stubPipeline) Close() error {
	p.closed = true
	return nil
}

func (p *stubPipeline) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *stubPipeline) overrides() pipeline.Overrides {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// foundResult holds two barcodes in detection order.
func foundResult() *pipeline.Result {
	return &pipeline.Result{
		Results: []pipeline.DecodeResult{
			{Payload: "first", Format: "QR_CODE", Angle: 0, Region: utils.NewRegion(0, 0, 40, 40), RegionIndex: 0},
			{Payload: "second", Format: "CODE_128", Angle: 90, Region: utils.NewRegion(50, 0, 90, 40), RegionIndex: 1},
		},
		Width: 100, Height: 50, RegionsDetected: 2,
		Regions: []utils.Region{utils.NewRegion(0, 0, 40, 40), utils.NewRegion(50, 0, 90, 40)},
	}
}

func newTestServer(t *testing.T, pl decodePipeline, mutate ...func(*Config)) *Server {
	t.Helper()
	cfg := Config{}
	for _, m := range mutate {
		m(&cfg)
	}
	s := NewWithPipeline(cfg, pl)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// multipartRequest builds a POST with data in the given file field.
func multipartRequest(t *testing.T, target, field string, data []byte, values map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		fw, err := mw.CreateFormFile(field, "upload.bin")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}
