package detector

import (
	"context"
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/barscan/internal/utils"
)

// GradientConfig tunes the model-free detector.
type GradientConfig struct {
	MaxDimension int     // downscale so the longer side is at most this, 0 disables
	BlurRadius   float64 // box blur applied to the gradient map
	ThresholdK   float64 // binarize at mean + K*stddev of the blurred gradient
	CloseRadius  float64 // dilate then erode to merge bars into one blob
	OpenRadius   float64 // erode then dilate to drop speckle, 0 disables
	MinAreaRatio float64 // minimum blob area relative to the image
	MinContrast  float64 // below this stddev the image is treated as flat
}

// DefaultGradientConfig returns values tuned on printed labels.
func DefaultGradientConfig() GradientConfig {
	return GradientConfig{
		MaxDimension: 1024,
		BlurRadius:   3,
		ThresholdK:   1.0,
		CloseRadius:  5,
		OpenRadius:   2,
		MinAreaRatio: 0.002,
		MinContrast:  2,
	}
}

// GradientDetector finds dense high-gradient blobs, the signature of bar
// and module patterns, without a model. It is stateless and safe for
// concurrent use.
type GradientDetector struct {
	cfg Config
}

// NewGradientDetector returns a gradient detector using cfg.Gradient and the
// shared post-processing settings of cfg.
func NewGradientDetector(cfg Config) *GradientDetector {
	return &GradientDetector{cfg: cfg}
}

// Detect implements Detector.
func (d *GradientDetector) Detect(ctx context.Context, img image.Image) ([]utils.Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, nil
	}
	g := d.cfg.Gradient

	work := img
	scale := 1.0
	if g.MaxDimension > 0 && max(bounds.Dx(), bounds.Dy()) > g.MaxDimension {
		work = imaging.Fit(img, g.MaxDimension, g.MaxDimension, imaging.Linear)
		scale = float64(bounds.Dx()) / float64(work.Bounds().Dx())
	}

	grad := gradientMagnitude(effect.Grayscale(work))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	blurred := blur.Box(grad, g.BlurRadius)

	mean, std := channelStats(blurred.Pix)
	if std < g.MinContrast {
		return nil, nil
	}
	level := math.Ceil(mean + g.ThresholdK*std)
	level = math.Max(1, math.Min(254, level))
	mask := segment.Threshold(blurred, uint8(level))

	closed := effect.Erode(effect.Dilate(mask, g.CloseRadius), g.CloseRadius)
	if g.OpenRadius > 0 {
		closed = effect.Dilate(effect.Erode(closed, g.OpenRadius), g.OpenRadius)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wb := work.Bounds()
	minArea := int(g.MinAreaRatio * float64(wb.Dx()*wb.Dy()))
	comps := labelComponents(closed)

	regions := make([]utils.Region, 0, len(comps))
	for _, c := range comps {
		if c.area < minArea {
			continue
		}
		regions = append(regions, utils.NewBox(
			float64(c.minX)*scale+float64(bounds.Min.X),
			float64(c.minY)*scale+float64(bounds.Min.Y),
			float64(c.maxX+1)*scale+float64(bounds.Min.X),
			float64(c.maxY+1)*scale+float64(bounds.Min.Y),
		).ToRegion(bounds))
	}
	sortReadingOrder(regions)
	return finalize(regions, bounds, d.cfg), nil
}

// Close implements Detector.
func (d *GradientDetector) Close() error { return nil }

// gradientMagnitude computes |gx|+|gy| with central differences over the
// first channel of a grayscale RGBA image, as produced by effect.Grayscale.
// The result is indexed from (0,0).
func gradientMagnitude(src *image.RGBA) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	at := func(x, y int) int {
		x = clamp(x, 0, w-1)
		y = clamp(y, 0, h-1)
		return int(src.Pix[y*src.Stride+x*4])
	}
	for y := range h {
		for x := range w {
			gx := at(x+1, y) - at(x-1, y)
			gy := at(x, y+1) - at(x, y-1)
			v := abs(gx) + abs(gy)
			out.Pix[y*out.Stride+x] = uint8(min(v, 255))
		}
	}
	return out
}

// channelStats returns the mean and standard deviation of the first
// channel of an RGBA pixel buffer.
func channelStats(pix []uint8) (float64, float64) {
	n := len(pix) / 4
	if n == 0 {
		return 0, 0
	}
	var sum, sq float64
	for i := 0; i < len(pix); i += 4 {
		v := float64(pix[i])
		sum += v
		sq += v * v
	}
	mean := sum / float64(n)
	variance := sq/float64(n) - mean*mean
	return mean, math.Sqrt(math.Max(0, variance))
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
