package detector

import (
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/utils"
)

func remoteConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.Kind = KindRemote
	cfg.RemoteURL = url
	cfg.PaddingRatio = 0
	cfg.FallbackFullFrame = false
	return cfg
}

func TestRemoteDetector_Detect(t *testing.T) {
	var gotWidth int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.UserAgent(), "barscan/")
		file, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		img, err := png.Decode(file)
		if assert.NoError(t, err) {
			gotWidth = img.Bounds().Dx()
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(remoteResponse{Detections: []remoteBox{
			{X: 10, Y: 10, Width: 50, Height: 30, Class: "barcode", Confidence: 0.9},
			{X: 12, Y: 11, Width: 50, Height: 30, Class: "barcode", Confidence: 0.6},  // duplicate
			{X: 100, Y: 100, Width: 40, Height: 40, Class: "qr", Confidence: 0.8},     // other class
			{X: 150, Y: 20, Width: 40, Height: 40, Class: "barcode", Confidence: 0.1}, // too weak
			{X: 180, Y: 150, Width: 50, Height: 50, Class: "barcode", Confidence: 0.5},
		}})
	}))
	defer srv.Close()

	cfg := remoteConfig(srv.URL)
	cfg.RemoteClasses = []string{"barcode"}
	d := NewRemoteDetector(cfg)
	defer d.Close()

	regions, err := d.Detect(context.Background(), image.NewGray(image.Rect(0, 0, 200, 180)))
	require.NoError(t, err)
	assert.Equal(t, 200, gotWidth)
	assert.Equal(t, []utils.Region{
		utils.NewRegion(10, 10, 60, 40),
		utils.NewRegion(180, 150, 200, 180),
	}, regions)
}

func TestRemoteDetector_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewRemoteDetector(remoteConfig(srv.URL)).Detect(context.Background(), image.NewGray(image.Rect(0, 0, 20, 20)))
	var de *DetectionError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestRemoteDetector_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	_, err := NewRemoteDetector(remoteConfig(srv.URL)).Detect(context.Background(), image.NewGray(image.Rect(0, 0, 20, 20)))
	var de *DetectionError
	assert.ErrorAs(t, err, &de)
}

func TestRemoteDetector_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewRemoteDetector(remoteConfig(url)).Detect(context.Background(), image.NewGray(image.Rect(0, 0, 20, 20)))
	var de *DetectionError
	assert.ErrorAs(t, err, &de)
}

func TestRemoteDetector_CheckHealth(t *testing.T) {
	healthy := true
	mux := http.NewServeMux()
	mux.HandleFunc("/detect/health", func(w http.ResponseWriter, _ *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d := NewRemoteDetector(remoteConfig(srv.URL + "/detect"))
	assert.NoError(t, d.CheckHealth(context.Background()))

	healthy = false
	assert.Error(t, d.CheckHealth(context.Background()))
}
