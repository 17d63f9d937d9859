package server

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/MeKo-Tech/barscan/internal/pdf"
	"github.com/MeKo-Tech/barscan/internal/pipeline"
)

const pdfField = "pdf"

// PDFResponse is returned by /api/v1/decode-pdf.
type PDFResponse struct {
	Document  *pdf.DocumentResult `json:"document"`
	Count     int                 `json:"count"`
	RequestID string              `json:"request_id,omitempty"`
}

// overrideRunner applies request overrides to every embedded image.
type overrideRunner struct {
	pl decodePipeline
	ov pipeline.Overrides
}

func (o overrideRunner) RunImage(ctx context.Context, img image.Image) (*pipeline.Result, error) {
	return o.pl.RunImageWith(ctx, img, o.ov)
}

// decodePDFHandler scans the images embedded in an uploaded PDF. The
// optional "pages" value selects pages, "password" opens encrypted files.
func (s *Server) decodePDFHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, form, err := s.readUpload(w, r, pdfField)
	if err != nil {
		decodeRequestsTotal.WithLabelValues("pdf", "invalid").Inc()
		s.writeUploadError(w, r, err)
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
		decodeRequestsTotal.WithLabelValues("pdf", "invalid").Inc()
		s.writeError(w, r, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	lookup := func(key string) string {
		if v := r.URL.Query().Get(key); v != "" {
			return v
		}
		if form != nil {
			return form(key)
		}
		return ""
	}

	tmp, err := os.CreateTemp("", "barscan-upload-*.pdf")
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to buffer upload")
		return
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to buffer upload")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	proc := pdf.NewProcessor(overrideRunner{pl: s.pipeline, ov: ov})
	if pw := lookup("password"); pw != "" {
		proc.SetCredentials(pdf.Credentials{UserPassword: pw, OwnerPassword: pw})
	}

	start := time.Now()
	doc, err := proc.ProcessFile(ctx, tmp.Name(), strings.TrimSpace(lookup("pages")))
	decodeDuration.WithLabelValues("pdf").Observe(time.Since(start).Seconds())
	if err != nil {
		status, code := classifyPDFError(err)
		decodeRequestsTotal.WithLabelValues("pdf", outcomeFor(status)).Inc()
		if status >= http.StatusInternalServerError {
			slog.Error("PDF decode failed", "request_id", requestIDFrom(r.Context()), "error", err)
		}
		s.writeError(w, r, status, code, err.Error())
		return
	}

	count := doc.Count()
	barcodesDecoded.Observe(float64(count))
	if count == 0 {
		decodeRequestsTotal.WithLabelValues("pdf", "none").Inc()
		writeJSON(w, http.StatusNotFound, MessageResponse{
			Message:   NoBarcodesMessage,
			RequestID: requestIDFrom(r.Context()),
		})
		return
	}
	decodeRequestsTotal.WithLabelValues("pdf", "found").Inc()
	writeJSON(w, http.StatusOK, PDFResponse{
		Document:  doc,
		Count:     count,
		RequestID: requestIDFrom(r.Context()),
	})
}

// classifyPDFError treats unreadable documents and wrong passwords as
// client errors.
func classifyPDFError(err error) (int, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled),
		pipeline.IsDetectionError(err):
		return classifyError(err)
	case pdf.IsPasswordError(err):
		return http.StatusBadRequest, "invalid_password"
	default:
		return http.StatusBadRequest, "invalid_pdf"
	}
}
