package onnx

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/MeKo-Tech/barscan/internal/mempool"
)

// Tensor is a float32 tensor in row-major order, NCHW for images.
type Tensor struct {
	Data  []float32
	Shape []int64
}

// NewImageTensor converts img into a [1, 3, H, W] tensor with RGB values
// scaled to [0, 1]. Alpha is ignored. The data buffer is pooled; call
// Release once the tensor is no longer referenced.
func NewImageTensor(img image.Image) (Tensor, error) {
	if img == nil {
		return Tensor{}, errors.New("nil image")
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return Tensor{}, fmt.Errorf("empty image %dx%d", w, h)
	}

	rgba, ok := img.(*image.NRGBA)
	if !ok || rgba.Bounds().Min != (image.Point{}) {
		rgba = image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	plane := w * h
	data := mempool.Float32s.Get(3 * plane)
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+4*w]
		for x := 0; x < w; x++ {
			i := y*w + x
			data[i] = float32(row[4*x]) / 255
			data[plane+i] = float32(row[4*x+1]) / 255
			data[2*plane+i] = float32(row[4*x+2]) / 255
		}
	}
	return Tensor{Data: data, Shape: []int64{1, 3, int64(h), int64(w)}}, nil
}

// Release hands the data buffer back to the pool.
func (t *Tensor) Release() {
	mempool.Float32s.Put(t.Data)
	t.Data = nil
}

// ValidateNCHW ensures a shape is [N, C, H, W] with positive dimensions.
func ValidateNCHW(shape []int64) error {
	if len(shape) != 4 {
		return fmt.Errorf("shape rank %d != 4", len(shape))
	}
	for i, v := range shape {
		if v <= 0 {
			return fmt.Errorf("dimension %d must be > 0, got %d", i, v)
		}
	}
	return nil
}

// VerifyImageTensor checks data length matches the NCHW shape.
func VerifyImageTensor(t Tensor) error {
	if err := ValidateNCHW(t.Shape); err != nil {
		return err
	}
	expected := int(t.Shape[0] * t.Shape[1] * t.Shape[2] * t.Shape[3])
	if len(t.Data) != expected {
		return fmt.Errorf("tensor data length %d != expected %d for shape %v", len(t.Data), expected, t.Shape)
	}
	return nil
}
