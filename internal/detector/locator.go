package detector

import (
	"context"
	"image"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// LocatorDetector runs a multi-symbol decode on the whole image and uses
// the result points of each hit as a region. Linear symbologies only
// report points along the scan line, so their regions are grown
// vertically to cover the bars.
type LocatorDetector struct {
	dec  barcode.Decoder
	opts barcode.Options
	cfg  Config
}

// NewLocatorDetector wraps dec.
func NewLocatorDetector(dec barcode.Decoder, cfg Config) *LocatorDetector {
	return &LocatorDetector{
		dec:  dec,
		opts: barcode.Options{Multi: true, TryHarder: true},
		cfg:  cfg,
	}
}

// Detect implements Detector. Decoder errors are detection failures.
func (d *LocatorDetector) Detect(ctx context.Context, img image.Image) ([]utils.Region, error) {
	results, err := d.dec.Decode(ctx, img, d.opts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &DetectionError{Detector: KindLocator, Err: err}
	}

	bounds := img.Bounds()
	regions := make([]utils.Region, 0, len(results))
	for _, r := range results {
		reg := utils.RegionFromRect(r.BBox)
		if reg.Empty() && len(r.Points) > 0 {
			reg = utils.BoundingRegion(r.Points)
		}
		// Scan-line results collapse to a sliver.
		if minSide := max(reg.Width(), reg.Height()) / 4; reg.Height() < minSide {
			grow := (minSide - reg.Height() + 1) / 2
			reg.Y1 -= grow
			reg.Y2 += grow
		} else if reg.Width() < minSide {
			grow := (minSide - reg.Width() + 1) / 2
			reg.X1 -= grow
			reg.X2 += grow
		}
		reg = reg.Clamp(bounds)
		if !reg.Empty() {
			regions = append(regions, reg)
		}
	}
	sortReadingOrder(regions)
	return finalize(regions, bounds, d.cfg), nil
}

// Close implements Detector.
func (d *LocatorDetector) Close() error { return nil }
