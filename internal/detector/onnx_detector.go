package detector

import (
	"context"
	"fmt"
	"math"
	"sort"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/reident/internal/reidmodel"
)

// strides mirrors the anchor-based, multi-stride decode used by the
// teacher's RetinaFace face detector (internal/vision/detect.go),
// generalized here to a single-class person detector: the same
// stride-8/16/32 anchor grid, but decoding only a box + score per anchor
// (no facial landmarks).
var strides = []int{8, 16, 32}

const anchorsPerStride = 2

// ONNXDetector runs a RetinaFace-style anchor detector against the
// "person" class. It implements Detector.
type ONNXDetector struct {
	session       *ort.AdvancedSession
	inputTensor   *ort.Tensor[float32]
	outputTensors []*ort.Tensor[float32]
	threshold     float32
	inputW        int
	inputH        int
}

// NewONNXDetector loads a person-detector ONNX model using the same
// anchor-output layout as the teacher's det_10g RetinaFace model.
func NewONNXDetector(modelPath string, threshold float32, opts *ort.SessionOptions) (*ONNXDetector, error) {
	inputW, inputH := 640, 640

	inputShape := ort.NewShape(1, 3, int64(inputH), int64(inputW))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	type outputSpec struct {
		name  string
		shape ort.Shape
	}
	outputs := []outputSpec{
		{"448", ort.NewShape(12800, 1)}, // scores stride 8
		{"471", ort.NewShape(3200, 1)},  // scores stride 16
		{"494", ort.NewShape(800, 1)},   // scores stride 32
		{"451", ort.NewShape(12800, 4)}, // bboxes stride 8
		{"474", ort.NewShape(3200, 4)},  // bboxes stride 16
		{"497", ort.NewShape(800, 4)},   // bboxes stride 32
	}

	outputNames := make([]string, len(outputs))
	outputTensors := make([]*ort.Tensor[float32], len(outputs))
	outputValues := make([]ort.Value, len(outputs))

	for i, spec := range outputs {
		outputNames[i] = spec.name
		t, err := ort.NewEmptyTensor[float32](spec.shape)
		if err != nil {
			for j := 0; j < i; j++ {
				outputTensors[j].Destroy()
			}
			inputTensor.Destroy()
			return nil, fmt.Errorf("create output tensor %d (%s): %w", i, spec.name, err)
		}
		outputTensors[i] = t
		outputValues[i] = t
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input.1"},
		outputNames,
		[]ort.Value{inputTensor},
		outputValues,
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		for _, t := range outputTensors {
			t.Destroy()
		}
		return nil, fmt.Errorf("create detector session: %w", err)
	}

	return &ONNXDetector{
		session:       session,
		inputTensor:   inputTensor,
		outputTensors: outputTensors,
		threshold:     threshold,
		inputW:        inputW,
		inputH:        inputH,
	}, nil
}

// Detect implements Detector.
func (d *ONNXDetector) Detect(ctx context.Context, frame Frame) ([]Box, error) {
	if len(frame.CHW) == 0 {
		return nil, fmt.Errorf("detect: empty frame data")
	}

	inputSlice := d.inputTensor.GetData()
	copy(inputSlice, frame.CHW)

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run detection: %w", err)
	}

	boxes := d.parseBoxes(frame.Width, frame.Height)
	boxes = nms(boxes, 0.4)

	return boxes, nil
}

func (d *ONNXDetector) parseBoxes(origW, origH int) []Box {
	var boxes []Box

	scaleW := float32(origW) / float32(d.inputW)
	scaleH := float32(origH) / float32(d.inputH)

	for si, stride := range strides {
		scores := d.outputTensors[si].GetData()
		bboxes := d.outputTensors[si+3].GetData()

		fmW := d.inputW / stride
		fmH := d.inputH / stride

		idx := 0
		for cy := 0; cy < fmH; cy++ {
			for cx := 0; cx < fmW; cx++ {
				for a := 0; a < anchorsPerStride; a++ {
					score := scores[idx]
					if score >= d.threshold {
						anchorX := float32(cx) * float32(stride)
						anchorY := float32(cy) * float32(stride)
						st := float32(stride)

						x1 := (anchorX - bboxes[idx*4+0]*st) * scaleW
						y1 := (anchorY - bboxes[idx*4+1]*st) * scaleH
						x2 := (anchorX + bboxes[idx*4+2]*st) * scaleW
						y2 := (anchorY + bboxes[idx*4+3]*st) * scaleH

						x1 = clampF(x1, 0, float32(origW))
						y1 = clampF(y1, 0, float32(origH))
						x2 = clampF(x2, 0, float32(origW))
						y2 = clampF(y2, 0, float32(origH))

						boxes = append(boxes, Box{
							BBox: reidmodel.BBox{
								X1: float64(x1), Y1: float64(y1),
								X2: float64(x2), Y2: float64(y2),
							},
							Confidence: float64(score),
						})
					}
					idx++
				}
			}
		}
	}

	return boxes
}

// InputSize returns the model's expected input dimensions.
func (d *ONNXDetector) InputSize() (int, int) {
	return d.inputW, d.inputH
}

func (d *ONNXDetector) Close() {
	if d.session != nil {
		d.session.Destroy()
	}
	if d.inputTensor != nil {
		d.inputTensor.Destroy()
	}
	for _, t := range d.outputTensors {
		if t != nil {
			t.Destroy()
		}
	}
}

func nms(boxes []Box, iouThreshold float32) []Box {
	if len(boxes) == 0 {
		return boxes
	}

	sort.Slice(boxes, func(i, j int) bool {
		return boxes[i].Confidence > boxes[j].Confidence
	})

	keep := make([]bool, len(boxes))
	for i := range keep {
		keep[i] = true
	}

	for i := 0; i < len(boxes); i++ {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(boxes); j++ {
			if !keep[j] {
				continue
			}
			if iou(boxes[i].BBox, boxes[j].BBox) > iouThreshold {
				keep[j] = false
			}
		}
	}

	var result []Box
	for i, b := range boxes {
		if keep[i] {
			result = append(result, b)
		}
	}
	return result
}

func iou(a, b reidmodel.BBox) float32 {
	x1 := math.Max(a.X1, b.X1)
	y1 := math.Max(a.Y1, b.Y1)
	x2 := math.Min(a.X2, b.X2)
	y2 := math.Min(a.Y2, b.Y2)

	intersection := math.Max(0, x2-x1) * math.Max(0, y2-y1)
	areaA := a.Width() * a.Height()
	areaB := b.Width() * b.Height()
	union := areaA + areaB - intersection

	if union <= 0 {
		return 0
	}
	return float32(intersection / union)
}

func clampF(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
