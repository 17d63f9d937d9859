package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"

	"github.com/MeKo-Tech/barscan/internal/utils"
	"github.com/MeKo-Tech/barscan/internal/version"
)

// RemoteDetector posts the image to an HTTP detection service and reads
// back bounding boxes:
//
//	POST <url>         multipart field "file"
//	GET  <url>/health  liveness
//	200 {"detections":[{"x":..,"y":..,"width":..,"height":..,"class":"barcode","confidence":0.9}]}
type RemoteDetector struct {
	url    string
	client *http.Client
	cfg    Config
}

type remoteBox struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

type remoteResponse struct {
	Detections []remoteBox `json:"detections"`
}

// NewRemoteDetector returns a client for cfg.RemoteURL.
func NewRemoteDetector(cfg Config) *RemoteDetector {
	return &RemoteDetector{
		url:    strings.TrimRight(cfg.RemoteURL, "/"),
		client: &http.Client{Timeout: cfg.RemoteTimeout},
		cfg:    cfg,
	}
}

// Detect implements Detector. Transport failures and non-200 responses are
// detection failures.
func (d *RemoteDetector) Detect(ctx context.Context, img image.Image) ([]utils.Region, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "image.png")
	if err != nil {
		return nil, &DetectionError{Detector: KindRemote, Err: err}
	}
	if err := png.Encode(part, img); err != nil {
		return nil, &DetectionError{Detector: KindRemote, Err: fmt.Errorf("encode image: %w", err)}
	}
	if err := writer.Close(); err != nil {
		return nil, &DetectionError{Detector: KindRemote, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, body)
	if err != nil {
		return nil, &DetectionError{Detector: KindRemote, Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &DetectionError{Detector: KindRemote, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &DetectionError{
			Detector: KindRemote,
			Err:      fmt.Errorf("service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
		}
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &DetectionError{Detector: KindRemote, Err: fmt.Errorf("decode response: %w", err)}
	}

	bounds := img.Bounds()
	cands := make([]Candidate, 0, len(out.Detections))
	for _, det := range out.Detections {
		if det.Confidence < d.cfg.ConfThreshold {
			continue
		}
		if len(d.cfg.RemoteClasses) > 0 && !slices.Contains(d.cfg.RemoteClasses, det.Class) {
			continue
		}
		r := utils.NewRegion(det.X, det.Y, det.X+det.Width, det.Y+det.Height).Clamp(bounds)
		if !r.Empty() {
			cands = append(cands, Candidate{Region: r, Score: det.Confidence})
		}
	}
	kept := NonMaxSuppression(cands, d.cfg.NMSThreshold)
	return finalize(regionsOf(kept), bounds, d.cfg), nil
}

// CheckHealth calls GET <url>/health.
func (d *RemoteDetector) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("detection service unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("detection service unhealthy: %d", resp.StatusCode)
	}
	return nil
}

// Close implements Detector.
func (d *RemoteDetector) Close() error {
	d.client.CloseIdleConnections()
	return nil
}
