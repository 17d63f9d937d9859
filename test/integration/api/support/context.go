// Package support holds the godog step definitions for the HTTP API suite.
package support

import (
	"bytes"
	"fmt"
	"image"
	"mime/multipart"
	"net/http"
	"net/http/httptest"

	"github.com/MeKo-Tech/barscan/internal/detector"
	"github.com/MeKo-Tech/barscan/internal/pipeline"
	"github.com/MeKo-Tech/barscan/internal/server"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	Config server.Config
	Server *httptest.Server
	api    *server.Server

	// Upload is the image about to be sent; Body overrides it with raw bytes.
	Upload image.Image
	Body   []byte

	LastStatus  int
	LastBody    []byte
	LastHeaders http.Header
}

// NewTestContext returns a context for a server running the full-frame
// detector with default limits.
func NewTestContext() *TestContext {
	cfg := pipeline.DefaultConfig()
	cfg.Detector.Kind = detector.KindFullFrame
	return &TestContext{Config: server.Config{PipelineConfig: cfg, TimeoutSec: 30}}
}

// ensureServer starts the server on first use so Given steps can still
// change its configuration.
func (tc *TestContext) ensureServer() error {
	if tc.Server != nil {
		return nil
	}
	api, err := server.NewServer(tc.Config)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	tc.api = api
	tc.Server = httptest.NewServer(api.Handler())
	return nil
}

// Cleanup stops the server.
func (tc *TestContext) Cleanup() error {
	if tc.Server != nil {
		tc.Server.Close()
		tc.Server = nil
	}
	if tc.api != nil {
		err := tc.api.Close()
		tc.api = nil
		return err
	}
	return nil
}

func (tc *TestContext) payload() ([]byte, error) {
	if tc.Body != nil {
		return tc.Body, nil
	}
	if tc.Upload == nil {
		return nil, nil
	}
	return encodePNG(tc.Upload)
}

// multipartBody wraps data in a form with one "image" file part.
func multipartBody(data []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "upload.png")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
