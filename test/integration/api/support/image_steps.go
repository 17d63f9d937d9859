package support

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// RegisterImageSteps registers the steps that prepare an upload.
func (tc *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a Code 128 barcode encoding "([^"]*)"$`, tc.aCode128Barcode)
	sc.Step(`^a QR code encoding "([^"]*)"$`, tc.aQRCode)
	sc.Step(`^the image is rotated by (\d+) degrees$`, tc.theImageIsRotated)
	sc.Step(`^a blank (\d+)x(\d+) image$`, tc.aBlankImage)
	sc.Step(`^the raw upload "([^"]*)"$`, tc.theRawUpload)
	sc.Step(`^(\d+) MB of random bytes$`, tc.randomBytes)
}

func (tc *TestContext) aCode128Barcode(payload string) error {
	m, err := oned.NewCode128Writer().Encode(payload, gozxing.BarcodeFormat_CODE_128, 400, 120, nil)
	if err != nil {
		return err
	}
	tc.Upload = onCanvas(m, 640, 480)
	return nil
}

func (tc *TestContext) aQRCode(payload string) error {
	m, err := qrcode.NewQRCodeWriter().Encode(payload, gozxing.BarcodeFormat_QR_CODE, 240, 240, nil)
	if err != nil {
		return err
	}
	tc.Upload = onCanvas(m, 640, 480)
	return nil
}

func (tc *TestContext) theImageIsRotated(deg int) error {
	if tc.Upload == nil {
		return fmt.Errorf("no image to rotate")
	}
	tc.Upload = imaging.Rotate(tc.Upload, float64(deg), color.White)
	return nil
}

func (tc *TestContext) aBlankImage(w, h int) error {
	tc.Upload = imaging.New(w, h, color.White)
	return nil
}

func (tc *TestContext) theRawUpload(s string) error {
	tc.Body = []byte(s)
	return nil
}

func (tc *TestContext) randomBytes(mb int) error {
	tc.Body = make([]byte, mb<<20)
	_, err := rand.Read(tc.Body)
	return err
}

// onCanvas centres the symbol on a white w x h canvas.
func onCanvas(m *gozxing.BitMatrix, w, h int) image.Image {
	sym := image.NewGray(image.Rect(0, 0, m.GetWidth(), m.GetHeight()))
	for y := 0; y < m.GetHeight(); y++ {
		for x := 0; x < m.GetWidth(); x++ {
			if m.Get(x, y) {
				sym.SetGray(x, y, color.Gray{Y: 0})
			} else {
				sym.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return imaging.PasteCenter(imaging.New(w, h, color.White), sym)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
