package detector

import (
	"image"

	"github.com/MeKo-Tech/barscan/internal/mempool"
)

type component struct {
	minX, minY int
	maxX, maxY int
	area       int
}

// labelComponents finds 8-connected foreground blobs in a binary RGBA
// mask. Foreground is any pixel whose first channel exceeds 127.
func labelComponents(mask *image.RGBA) []component {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}
	fg := func(x, y int) bool {
		return mask.Pix[y*mask.Stride+x*4] > 127
	}

	visited := mempool.Bools.Get(w * h)
	defer mempool.Bools.Put(visited)
	var comps []component
	queue := make([]image.Point, 0, 256)

	for y := range h {
		for x := range w {
			if visited[y*w+x] || !fg(x, y) {
				continue
			}
			c := component{minX: x, minY: y, maxX: x, maxY: y}
			visited[y*w+x] = true
			queue = append(queue[:0], image.Pt(x, y))
			for len(queue) > 0 {
				p := queue[len(queue)-1]
				queue = queue[:len(queue)-1]
				c.area++
				c.minX, c.maxX = min(c.minX, p.X), max(c.maxX, p.X)
				c.minY, c.maxY = min(c.minY, p.Y), max(c.maxY, p.Y)
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := p.X+dx, p.Y+dy
						if nx < 0 || ny < 0 || nx >= w || ny >= h {
							continue
						}
						if visited[ny*w+nx] || !fg(nx, ny) {
							continue
						}
						visited[ny*w+nx] = true
						queue = append(queue, image.Pt(nx, ny))
					}
				}
			}
			comps = append(comps, c)
		}
	}
	return comps
}
