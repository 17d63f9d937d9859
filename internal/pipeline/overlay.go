package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/MeKo-Tech/barscan/internal/utils"
)

// OverlayColors are the colors RenderOverlay draws with.
type OverlayColors struct {
	Decoded  color.Color // boxes of regions that produced a payload
	Rejected color.Color // boxes of regions that decoded nothing
	Label    color.Color
}

// DefaultOverlayColors draws green for hits and red for misses.
func DefaultOverlayColors() OverlayColors {
	return OverlayColors{
		Decoded:  color.NRGBA{G: 200, A: 255},
		Rejected: color.NRGBA{R: 220, A: 255},
		Label:    color.White,
	}
}

// RenderOverlay copies img and draws every detected region on it. Regions
// that decoded are labelled with their format and sweep angle. regions may
// be nil, in which case only decoded regions are drawn.
func RenderOverlay(img image.Image, res *Result, regions []utils.Region, colors OverlayColors) *image.RGBA {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	shift := func(r utils.Region) image.Rectangle {
		return r.Rect().Sub(b.Min)
	}

	decoded := make(map[int]DecodeResult)
	if res != nil {
		for _, d := range res.Results {
			decoded[d.RegionIndex] = d
		}
	}
	for i, r := range regions {
		if _, ok := decoded[i]; !ok {
			utils.DrawRect(dst, shift(r), colors.Rejected, 2)
		}
	}
	if res == nil {
		return dst
	}
	for _, d := range res.Results {
		rect := shift(d.Region)
		utils.DrawRect(dst, rect, colors.Decoded, 2)
		label := fmt.Sprintf("%s %g", d.Format, d.Angle)
		utils.DrawLabel(dst, label, rect.Min.X, rect.Min.Y-14, colors.Label, colors.Decoded)
	}
	return dst
}
