package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/MeKo-Tech/barscan/internal/onnx"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// letterboxPad is the grey YOLO-family models are trained with.
var letterboxPad = color.NRGBA{R: 114, G: 114, B: 114, A: 255}

// ONNXDetector runs a YOLO-style barcode detection model. Outputs of shape
// [1, N, K] or [1, K, N] are accepted, where each of the N rows holds
// cx, cy, w, h in model input pixels followed by an optional objectness
// column and per-class scores.
type ONNXDetector struct {
	cfg        Config
	inputName  string
	outputName string
	inputSize  int

	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

// NewONNXDetector loads the model and prepares a session.
func NewONNXDetector(cfg Config) (*ONNXDetector, error) {
	if err := onnx.InitEnvironment(cfg.GPU.UseGPU); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, fmt.Errorf("expected 1 input and at least 1 output, got %d and %d", len(inputs), len(outputs))
	}
	size, err := modelInputSize(inputs[0].Dimensions, cfg.InputSize)
	if err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() {
		if err := opts.Destroy(); err != nil {
			slog.Warn("Failed to destroy session options", "error", err)
		}
	}()
	if cfg.NumThreads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}
	if err := onnx.ConfigureSessionForGPU(opts, cfg.GPU); err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("Loaded detection model",
		"path", cfg.ModelPath, "input", inputs[0].Name, "output", outputs[0].Name,
		"input_size", size, "gpu", cfg.GPU.UseGPU)

	return &ONNXDetector{
		cfg:        cfg,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
		inputSize:  size,
		session:    session,
	}, nil
}

// modelInputSize returns the square side the model expects. Dynamic axes
// (<= 0) fall back to the configured size.
func modelInputSize(dims ort.Shape, fallback int) (int, error) {
	if len(dims) != 4 {
		return 0, fmt.Errorf("expected NCHW input, got %d dimensions", len(dims))
	}
	if dims[1] > 0 && dims[1] != 3 {
		return 0, fmt.Errorf("expected 3 input channels, got %d", dims[1])
	}
	h, w := dims[2], dims[3]
	switch {
	case h > 0 && w > 0 && h != w:
		return 0, fmt.Errorf("non-square model input %dx%d is not supported", w, h)
	case h > 0:
		return int(h), nil
	case fallback > 0:
		return fallback, nil
	default:
		return 0, errors.New("model input has dynamic size and no input size configured")
	}
}

// Detect implements Detector.
func (d *ONNXDetector) Detect(ctx context.Context, img image.Image) ([]utils.Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	boxed, lb, err := utils.LetterboxResize(img, d.inputSize, letterboxPad)
	if err != nil {
		return nil, &DetectionError{Detector: KindONNX, Err: err}
	}
	t, err := onnx.NewImageTensor(boxed)
	if err != nil {
		return nil, &DetectionError{Detector: KindONNX, Err: err}
	}

	data, shape, err := d.infer(t)
	t.Release()
	if err != nil {
		return nil, &DetectionError{Detector: KindONNX, Err: err}
	}

	boxes, err := decodeBoxes(data, shape, d.cfg.ConfThreshold, d.cfg.Objectness)
	if err != nil {
		return nil, &DetectionError{Detector: KindONNX, Err: err}
	}

	bounds := img.Bounds()
	cands := make([]Candidate, 0, len(boxes))
	for _, b := range boxes {
		x1, y1 := lb.ToSource(b.box.MinX, b.box.MinY)
		x2, y2 := lb.ToSource(b.box.MaxX, b.box.MaxY)
		r := utils.NewBox(x1+float64(bounds.Min.X), y1+float64(bounds.Min.Y),
			x2+float64(bounds.Min.X), y2+float64(bounds.Min.Y)).ToRegion(bounds)
		if !r.Empty() {
			cands = append(cands, Candidate{Region: r, Score: b.score})
		}
	}
	kept := NonMaxSuppression(cands, d.cfg.NMSThreshold)
	return finalize(regionsOf(kept), bounds, d.cfg), nil
}

func (d *ONNXDetector) infer(t onnx.Tensor) ([]float32, []int64, error) {
	input, err := ort.NewTensor(ort.NewShape(t.Shape...), t.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer func() {
		if err := input.Destroy(); err != nil {
			slog.Warn("Failed to destroy input tensor", "error", err)
		}
	}()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return nil, nil, errors.New("detector is closed")
	}

	outputs := []ort.Value{nil}
	if err := d.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, nil, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		if outputs[0] != nil {
			if err := outputs[0].Destroy(); err != nil {
				slog.Warn("Failed to destroy output tensor", "error", err)
			}
		}
	}()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, nil, fmt.Errorf("unexpected output type %T", outputs[0])
	}
	data := append([]float32(nil), out.GetData()...)
	return data, []int64(out.GetShape()), nil
}

// Close releases the session.
func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return nil
	}
	err := d.session.Destroy()
	d.session = nil
	return err
}

type scoredBox struct {
	box   utils.Box
	score float64
}

// decodeBoxes turns a raw detection head into boxes above conf. The layout
// is inferred from the shape: the smaller of the two trailing axes holds
// the per-box attributes.
func decodeBoxes(data []float32, shape []int64, conf float64, objectness bool) ([]scoredBox, error) {
	if len(shape) == 2 {
		shape = append([]int64{1}, shape...)
	}
	if len(shape) != 3 || shape[0] != 1 {
		return nil, fmt.Errorf("unexpected output shape %v", shape)
	}
	a, b := int(shape[1]), int(shape[2])
	if a*b != len(data) {
		return nil, fmt.Errorf("output shape %v does not match %d values", shape, len(data))
	}

	n, k := a, b
	transposed := false
	if a < b {
		n, k = b, a
		transposed = true
	}
	first := 4
	if objectness {
		first = 5
	}
	if k <= first {
		return nil, fmt.Errorf("each box needs at least %d values, got %d", first+1, k)
	}

	at := func(i, j int) float64 {
		if transposed {
			return float64(data[j*n+i])
		}
		return float64(data[i*k+j])
	}

	var out []scoredBox
	for i := range n {
		best := 0.0
		for j := first; j < k; j++ {
			best = max(best, at(i, j))
		}
		if objectness {
			best *= at(i, 4)
		}
		if best < conf {
			continue
		}
		cx, cy, w, h := at(i, 0), at(i, 1), at(i, 2), at(i, 3)
		if w <= 0 || h <= 0 {
			continue
		}
		out = append(out, scoredBox{
			box:   utils.NewBox(cx-w/2, cy-h/2, cx+w/2, cy+h/2),
			score: best,
		})
	}
	return out, nil
}
