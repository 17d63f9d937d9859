package detector

import (
	"context"
	"image"

	"github.com/MeKo-Tech/barscan/internal/utils"
)

// FullFrame proposes the whole image as a single region.
type FullFrame struct{}

func (FullFrame) Detect(ctx context.Context, img image.Image) ([]utils.Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := utils.RegionFromRect(img.Bounds())
	if r.Empty() {
		return nil, nil
	}
	return []utils.Region{r}, nil
}

func (FullFrame) Close() error { return nil }

// Fallback runs Secondary only when Primary succeeds with no regions.
// Primary errors are returned unchanged.
type Fallback struct {
	Primary   Detector
	Secondary Detector
}

func (f *Fallback) Detect(ctx context.Context, img image.Image) ([]utils.Region, error) {
	regions, err := f.Primary.Detect(ctx, img)
	if err != nil || len(regions) > 0 {
		return regions, err
	}
	return f.Secondary.Detect(ctx, img)
}

func (f *Fallback) Close() error {
	err := f.Primary.Close()
	if err2 := f.Secondary.Close(); err == nil {
		err = err2
	}
	return err
}
