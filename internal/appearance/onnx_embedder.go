package appearance

import (
	"context"
	"fmt"
	"math"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXEmbedder runs an ArcFace-style 512-D embedding model, adapted
// directly from the teacher's internal/vision.Embedder. The same struct
// serves both body-appearance and face-appearance models: only the
// model file and input size passed to NewONNXEmbedder differ.
type ONNXEmbedder struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	inputW       int
	inputH       int
	embDim       int
	frameW       float64
	frameH       float64
}

// NewONNXEmbedder loads an embedding ONNX model. inputW/inputH are the
// model's expected crop size (112x112 for the teacher's ArcFace model).
func NewONNXEmbedder(modelPath string, inputW, inputH int, opts *ort.SessionOptions) (*ONNXEmbedder, error) {
	embDim := 512

	inputShape := ort.NewShape(1, 3, int64(inputH), int64(inputW))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, int64(embDim))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input.1"},
		[]string{"683"},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create embedder session: %w", err)
	}

	return &ONNXEmbedder{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		inputW:       inputW,
		inputH:       inputH,
		embDim:       embDim,
	}, nil
}

// Embed implements Embedder.
func (e *ONNXEmbedder) Embed(ctx context.Context, crop Crop) (Result, error) {
	side := math.Min(crop.BBox.Width(), crop.BBox.Height())
	if side < MinCropSide {
		return Result{}, nil
	}

	inputSlice := e.inputTensor.GetData()
	copy(inputSlice, crop.CHW)

	if err := e.session.Run(); err != nil {
		return Result{}, fmt.Errorf("run embedding: %w", err)
	}

	outputData := e.outputTensor.GetData()
	embedding := make([]float32, e.embDim)
	copy(embedding, outputData)
	normalize(embedding)

	return Result{
		Embedding: embedding,
		Quality:   QualityFromBBox(crop.BBox, e.frameW, e.frameH),
	}, nil
}

// InputSize returns the expected crop dimensions.
func (e *ONNXEmbedder) InputSize() (int, int) { return e.inputW, e.inputH }

func (e *ONNXEmbedder) Close() {
	if e.session != nil {
		e.session.Destroy()
	}
	if e.inputTensor != nil {
		e.inputTensor.Destroy()
	}
	if e.outputTensor != nil {
		e.outputTensor.Destroy()
	}
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := float32(math.Sqrt(sum))
	if norm > 0 {
		for i := range v {
			v[i] /= norm
		}
	}
}
