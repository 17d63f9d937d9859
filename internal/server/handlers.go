package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/MeKo-Tech/barscan/internal/pipeline"
	"github.com/MeKo-Tech/barscan/internal/utils"
	"github.com/MeKo-Tech/barscan/internal/version"
)

const (
	imageField    = "image"
	formatOverlay = "overlay"
)

// InfoResponse is returned by /api/v1/info.
type InfoResponse struct {
	Version       string        `json:"version"`
	Pipeline      pipeline.Info `json:"pipeline"`
	OutputFormats []string      `json:"output_formats"`
	MaxUploadMB   int64         `json:"max_upload_mb"`
	TimeoutSec    float64       `json:"timeout_sec"`
}

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	if s.pipeline != nil {
		info := s.pipeline.Info()
		response.Detector, response.Decoder = info.Detector, info.Decoder
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) infoHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	formats := pipeline.OutputFormats()
	if s.overlayEnabled {
		formats = append(formats, formatOverlay)
	}
	writeJSON(w, http.StatusOK, InfoResponse{
		Version:       version.Version,
		Pipeline:      s.pipeline.Info(),
		OutputFormats: formats,
		MaxUploadMB:   s.maxUploadMB,
		TimeoutSec:    s.timeout.Seconds(),
	})
}

// decodeHandler accepts an image either as the multipart field "image" or
// as the raw request body and answers with the decoded barcodes.
func (s *Server) decodeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, form, err := s.readUpload(w, r, imageField)
	if err != nil {
		s.writeUploadError(w, r, err)
		decodeRequestsTotal.WithLabelValues("http", "invalid").Inc()
		return
	}
	uploadSizeBytes.Observe(float64(len(data)))

	opts, err := parseDecodeOptions(r.URL.Query(), form)
	if err == nil {
		err = s.check(opts)
	}
	var ov pipeline.Overrides
	if err == nil {
		ov, err = opts.overrides()
	}
	if err != nil {
		decodeRequestsTotal.WithLabelValues("http", "invalid").Inc()
		s.writeError(w, r, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	if opts.Format == formatOverlay && !s.overlayEnabled {
		s.writeError(w, r, http.StatusForbidden, "overlay_disabled", "overlay output disabled")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	start := time.Now()
	res, err := s.pipeline.RunWith(ctx, data, ov)
	decodeDuration.WithLabelValues("http").Observe(time.Since(start).Seconds())
	if err != nil {
		status, code := classifyError(err)
		decodeRequestsTotal.WithLabelValues("http", outcomeFor(status)).Inc()
		if status >= http.StatusInternalServerError {
			slog.Error("Decode failed", "request_id", requestIDFrom(r.Context()), "error", err)
		}
		s.writeError(w, r, status, code, err.Error())
		return
	}
	observeResult(res)

	if res.Empty() {
		if res.Incomplete {
			decodeRequestsTotal.WithLabelValues("http", "timeout").Inc()
			s.writeError(w, r, http.StatusGatewayTimeout, "timeout",
				"decoding did not finish before the deadline")
			return
		}
		decodeRequestsTotal.WithLabelValues("http", "none").Inc()
		writeJSON(w, http.StatusNotFound, MessageResponse{
			Message:   NoBarcodesMessage,
			RequestID: requestIDFrom(r.Context()),
		})
		return
	}
	decodeRequestsTotal.WithLabelValues("http", "found").Inc()

	switch opts.Format {
	case "", pipeline.FormatJSON:
		writeJSON(w, http.StatusOK, DecodeResponse{
			Barcodes:        res.Results,
			Count:           len(res.Results),
			Width:           res.Width,
			Height:          res.Height,
			RegionsDetected: res.RegionsDetected,
			Incomplete:      res.Incomplete,
			ProcessingMs:    res.Processing.TotalMs,
			RequestID:       requestIDFrom(r.Context()),
		})
	case formatOverlay:
		s.writeOverlay(w, r, data, res)
	default:
		out, err := pipeline.FormatResult(res, opts.Format)
		if err != nil {
			s.writeError(w, r, http.StatusInternalServerError, "format_failed", err.Error())
			return
		}
		w.Header().Set("Content-Type", contentTypeFor(opts.Format))
		_, _ = io.WriteString(w, out)
	}
}

// writeOverlay draws the result on the uploaded image and returns a PNG.
func (s *Server) writeOverlay(w http.ResponseWriter, r *http.Request, data []byte, res *pipeline.Result) {
	img, _, err := utils.DecodeImageBytes(data)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "overlay_failed", err.Error())
		return
	}
	ov := pipeline.RenderOverlay(img, res, res.Regions, pipeline.DefaultOverlayColors())
	if ov == nil {
		s.writeError(w, r, http.StatusInternalServerError, "overlay_failed", "overlay failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, ov); err != nil {
		slog.Error("Failed to encode overlay", "error", err)
	}
}

// readUpload returns the named multipart file, or the raw body for any
// other content type, along with a form value lookup. Bodies larger than
// the upload limit yield *http.MaxBytesError.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, field string) ([]byte, func(string) string, error) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, nil, err
		}
		if len(data) == 0 {
			return nil, nil, errMissingUpload{field: field}
		}
		return data, nil, nil
	}

	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, nil, err
	}
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, nil, errMissingUpload{field: field}
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, err
	}
	if len(data) == 0 {
		return nil, nil, errMissingUpload{field: field}
	}
	return data, r.FormValue, nil
}

type errMissingUpload struct{ field string }

func (e errMissingUpload) Error() string {
	return fmt.Sprintf("no %s file provided", e.field)
}

func (s *Server) writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large") {
		s.writeError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large",
			fmt.Sprintf("upload exceeds %d MB", s.maxUploadMB))
		return
	}
	var missing errMissingUpload
	if errors.As(err, &missing) {
		s.writeError(w, r, http.StatusBadRequest, "missing_file", err.Error())
		return
	}
	s.writeError(w, r, http.StatusBadRequest, "invalid_request", "Failed to parse form data")
}

// classifyError maps a pipeline failure to an HTTP status and error code.
func classifyError(err error) (int, string) {
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge, "payload_too_large"
	case pipeline.IsIngestError(err):
		return http.StatusBadRequest, "invalid_image"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "cancelled"
	case pipeline.IsDetectionError(err):
		return http.StatusInternalServerError, "detection_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func outcomeFor(status int) string {
	switch {
	case status == http.StatusGatewayTimeout:
		return "timeout"
	case status < http.StatusInternalServerError:
		return "invalid"
	default:
		return "error"
	}
}

func observeResult(res *pipeline.Result) {
	regionsDetected.Observe(float64(res.RegionsDetected))
	barcodesDecoded.Observe(float64(len(res.Results)))
	anglesTried.Observe(float64(res.AnglesTried))
}

func contentTypeFor(format string) string {
	switch strings.ToLower(format) {
	case pipeline.FormatCSV:
		return "text/csv"
	case pipeline.FormatYAML:
		return "application/yaml"
	case pipeline.FormatText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: requestIDFrom(r.Context()),
	})
}
