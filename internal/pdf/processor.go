package pdf

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"

	"github.com/MeKo-Tech/barscan/internal/common"
	"github.com/MeKo-Tech/barscan/internal/pipeline"
)

// ImageRunner decodes barcodes in an already decoded image.
// *pipeline.Pipeline satisfies it.
type ImageRunner interface {
	RunImage(ctx context.Context, img image.Image) (*pipeline.Result, error)
}

// Processor scans the embedded images of PDF documents for barcodes.
type Processor struct {
	runner      ImageRunner
	credentials Credentials
}

// NewProcessor creates a processor backed by runner.
func NewProcessor(runner ImageRunner) *Processor {
	return &Processor{runner: runner}
}

// SetCredentials sets the passwords used for encrypted documents.
func (p *Processor) SetCredentials(creds Credentials) {
	p.credentials = creds
}

// ProcessFile decodes every embedded image on the selected pages. Images
// that fail to decode are reported per image and do not fail the document;
// a detection failure or cancellation does.
func (p *Processor) ProcessFile(ctx context.Context, filename, pageRange string) (*DocumentResult, error) {
	sw := common.NewStopwatch()

	path, cleanup, err := Decrypt(filename, p.credentials)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	total, err := PageCount(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	images, err := ExtractImages(ctx, path, pageRange)
	if err != nil {
		return nil, err
	}
	extract := sw.Lap("extract")
	slog.Debug("Extracted PDF images", "file", filename, "images", len(images), "duration_ms", common.Milliseconds(extract))

	doc := &DocumentResult{Filename: filepath.Base(filename), TotalPages: total}
	for _, pi := range images {
		ir, err := p.processImage(ctx, pi)
		if err != nil {
			return nil, fmt.Errorf("page %d image %d: %w", pi.Page, pi.Index, err)
		}
		if n := len(doc.Pages); n == 0 || doc.Pages[n-1].PageNumber != pi.Page {
			doc.Pages = append(doc.Pages, PageResult{PageNumber: pi.Page})
		}
		last := &doc.Pages[len(doc.Pages)-1]
		last.Images = append(last.Images, ir)
	}
	decode := sw.Lap("decode")

	doc.Processing = ProcessingInfo{
		ExtractionTimeMs: common.Milliseconds(extract),
		DecodeTimeMs:     common.Milliseconds(decode),
		TotalTimeMs:      common.Milliseconds(sw.Elapsed()),
	}
	return doc, nil
}

func (p *Processor) processImage(ctx context.Context, pi PageImage) (ImageResult, error) {
	b := pi.Image.Bounds()
	ir := ImageResult{ImageIndex: pi.Index, Width: b.Dx(), Height: b.Dy(), Barcodes: []pipeline.DecodeResult{}}

	res, err := p.runner.RunImage(ctx, pi.Image)
	switch {
	case err == nil:
		ir.Barcodes = res.Results
		ir.Incomplete = res.Incomplete
		return ir, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), pipeline.IsDetectionError(err):
		return ir, err
	default:
		// tiny or otherwise unusable embedded images
		ir.Error = err.Error()
		return ir, nil
	}
}
