package utils

import (
	"fmt"
	"image"
	"math"
)

// Region is an axis-aligned rectangle in integer pixel coordinates with
// exclusive maximum edges: a valid region satisfies X1 < X2 and Y1 < Y2.
type Region struct {
	X1 int `json:"x1" yaml:"x1"`
	Y1 int `json:"y1" yaml:"y1"`
	X2 int `json:"x2" yaml:"x2"`
	Y2 int `json:"y2" yaml:"y2"`
}

// NewRegion builds a Region, swapping coordinates so that X1<=X2, Y1<=Y2.
func NewRegion(x1, y1, x2, y2 int) Region {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Region{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// RegionFromRect converts an image.Rectangle.
func RegionFromRect(r image.Rectangle) Region {
	r = r.Canon()
	return Region{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle { return image.Rect(r.X1, r.Y1, r.X2, r.Y2) }

func (r Region) Width() int  { return r.X2 - r.X1 }
func (r Region) Height() int { return r.Y2 - r.Y1 }

// Area returns the pixel area, or 0 for an empty region.
func (r Region) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width() * r.Height()
}

// Empty reports whether the region contains no pixels.
func (r Region) Empty() bool { return r.X2 <= r.X1 || r.Y2 <= r.Y1 }

// Clamp restricts the region to bounds. The result may be empty when the
// region lies entirely outside.
func (r Region) Clamp(bounds image.Rectangle) Region {
	r = NewRegion(r.X1, r.Y1, r.X2, r.Y2)
	return Region{
		X1: clampInt(r.X1, bounds.Min.X, bounds.Max.X),
		Y1: clampInt(r.Y1, bounds.Min.Y, bounds.Max.Y),
		X2: clampInt(r.X2, bounds.Min.X, bounds.Max.X),
		Y2: clampInt(r.Y2, bounds.Min.Y, bounds.Max.Y),
	}
}

// Pad grows the region by px on every side. Callers clamp afterwards.
func (r Region) Pad(px int) Region {
	return Region{X1: r.X1 - px, Y1: r.Y1 - px, X2: r.X2 + px, Y2: r.Y2 + px}
}

// PadRatio grows the region by a fraction of its own size on every side.
func (r Region) PadRatio(ratio float64) Region {
	if ratio <= 0 {
		return r
	}
	dx := int(math.Round(float64(r.Width()) * ratio))
	dy := int(math.Round(float64(r.Height()) * ratio))
	return Region{X1: r.X1 - dx, Y1: r.Y1 - dy, X2: r.X2 + dx, Y2: r.Y2 + dy}
}

// IoU returns the intersection over union of two regions.
func (r Region) IoU(o Region) float64 {
	inter := r.Rect().Intersect(o.Rect())
	if inter.Empty() {
		return 0
	}
	ia := inter.Dx() * inter.Dy()
	union := r.Area() + o.Area() - ia
	if union <= 0 {
		return 0
	}
	return float64(ia) / float64(union)
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.X1, r.Y1, r.X2, r.Y2)
}

// Box is an axis-aligned box in float coordinates, as produced by models.
type Box struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// NewBox constructs a Box from min/max coordinates ensuring ordering.
func NewBox(x1, y1, x2, y2 float64) Box {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Box{MinX: x1, MinY: y1, MaxX: x2, MaxY: y2}
}

func (b Box) Width() float64  { return b.MaxX - b.MinX }
func (b Box) Height() float64 { return b.MaxY - b.MinY }

// ToRegion rounds the box outwards and clamps it to bounds.
func (b Box) ToRegion(bounds image.Rectangle) Region {
	return Region{
		X1: int(math.Floor(b.MinX)),
		Y1: int(math.Floor(b.MinY)),
		X2: int(math.Ceil(b.MaxX)),
		Y2: int(math.Ceil(b.MaxY)),
	}.Clamp(bounds)
}

// BoundingRegion returns the smallest region containing all points.
func BoundingRegion(pts []image.Point) Region {
	if len(pts) == 0 {
		return Region{}
	}
	r := Region{X1: pts[0].X, Y1: pts[0].Y, X2: pts[0].X, Y2: pts[0].Y}
	for _, p := range pts[1:] {
		r.X1 = min(r.X1, p.X)
		r.Y1 = min(r.Y1, p.Y)
		r.X2 = max(r.X2, p.X)
		r.Y2 = max(r.Y2, p.Y)
	}
	return r
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
