package server

import (
	"context"
	"image"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/MeKo-Tech/barscan/internal/pipeline"
)

// decodePipeline is what the server needs from *pipeline.Pipeline.
type decodePipeline interface {
	RunWith(ctx context.Context, data []byte, o pipeline.Overrides) (*pipeline.Result, error)
	RunImageWith(ctx context.Context, img image.Image, o pipeline.Overrides) (*pipeline.Result, error)
	Info() pipeline.Info
	Close() error
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline       decodePipeline
	corsOrigin     string
	maxUploadMB    int64
	timeout        time.Duration
	overlayEnabled bool
	rateLimiter    *RateLimiter
	validate       *validator.Validate
}

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	CORSOrigin     string
	MaxUploadMB    int64
	TimeoutSec     int
	OverlayEnabled bool
	PipelineConfig pipeline.Config

	// RateLimitPerMinute enables per-client limiting when positive.
	RateLimitPerMinute int
	RateLimitBurst     int
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Time     string `json:"time"`
	Detector string `json:"detector,omitempty"`
	Decoder  string `json:"decoder,omitempty"`
}

// DecodeResponse is returned when at least one barcode was decoded.
type DecodeResponse struct {
	Barcodes        []pipeline.DecodeResult `json:"barcodes"`
	Count           int                     `json:"count"`
	Width           int                     `json:"width"`
	Height          int                     `json:"height"`
	RegionsDetected int                     `json:"regions_detected"`
	Incomplete      bool                    `json:"incomplete,omitempty"`
	ProcessingMs    float64                 `json:"processing_ms"`
	RequestID       string                  `json:"request_id,omitempty"`
}

// MessageResponse carries a plain message, e.g. when nothing was found.
type MessageResponse struct {
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse describes a failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// NoBarcodesMessage is the body message of a 404 decode response.
const NoBarcodesMessage = "No barcodes detected"

// NewServer builds the pipeline from config and wraps it in a server.
func NewServer(config Config) (*Server, error) {
	pl, err := pipeline.New(config.PipelineConfig)
	if err != nil {
		return nil, err
	}
	return NewWithPipeline(config, pl), nil
}

// NewWithPipeline creates a server around an existing pipeline. The server
// takes ownership and closes it in Close.
func NewWithPipeline(config Config, pl decodePipeline) *Server {
	if config.CORSOrigin == "" {
		config.CORSOrigin = "*"
	}
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 20
	}
	if config.TimeoutSec <= 0 {
		config.TimeoutSec = 30
	}

	s := &Server{
		pipeline:       pl,
		corsOrigin:     config.CORSOrigin,
		maxUploadMB:    config.MaxUploadMB,
		timeout:        time.Duration(config.TimeoutSec) * time.Second,
		overlayEnabled: config.OverlayEnabled,
		validate:       newValidator(),
	}
	if config.RateLimitPerMinute > 0 {
		s.rateLimiter = NewRateLimiter(config.RateLimitPerMinute, config.RateLimitBurst)
	}
	return s
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.pipeline != nil {
		return s.pipeline.Close()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/api/v1/info", s.corsMiddleware(s.infoHandler))
	mux.Handle("/metrics", metricsHandler())

	decode := s.corsMiddleware(s.requestIDMiddleware(s.rateLimitMiddleware(s.decodeHandler)))
	mux.HandleFunc("/decode-barcode", decode)
	mux.HandleFunc("/api/v1/decode", decode)
	mux.HandleFunc("/api/v1/decode-pdf",
		s.corsMiddleware(s.requestIDMiddleware(s.rateLimitMiddleware(s.decodePDFHandler))))
	mux.HandleFunc("/ws/decode", s.requestIDMiddleware(s.decodeWebSocketHandler))
}

// Handler returns a mux with all routes installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}
