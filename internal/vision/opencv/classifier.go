package opencv

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"

	"gocv.io/x/gocv"

	"github.com/mrogowski/videolitic/internal/vision"
)

// classifierInputSize is the side length the face crop is resized to
// before the forward pass.
const classifierInputSize = 64

// Classifier maps a cropped face to the highest-scoring label of a fixed
// label list. The network's output layer must have one score per label.
type Classifier struct {
	mu     sync.Mutex
	net    gocv.Net
	labels []string
}

func NewClassifier(modelPath string, labels []string) (*Classifier, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("classifier needs a label list")
	}
	net, err := loadNet(modelPath, "")
	if err != nil {
		return nil, err
	}
	return &Classifier{net: net, labels: labels}, nil
}

func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net.Close()
}

// Classify runs one forward pass over the face crop and returns the
// argmax label with a softmax confidence in [0, 1].
func (c *Classifier) Classify(ctx context.Context, face []byte) (vision.Label, error) {
	if err := ctx.Err(); err != nil {
		return vision.Label{}, err
	}

	mat, err := gocv.IMDecode(face, gocv.IMReadColor)
	if err != nil {
		return vision.Label{}, fmt.Errorf("decode face: %v", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return vision.Label{}, fmt.Errorf("decoded face is empty")
	}

	scores, err := c.forward(mat)
	if err != nil {
		return vision.Label{}, err
	}

	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return vision.Label{
		Name:       c.labels[best],
		Confidence: softmaxAt(scores, best),
	}, nil
}

func (c *Classifier) forward(mat gocv.Mat) ([]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	blob := gocv.BlobFromImage(mat, 1.0/255.0,
		image.Pt(classifierInputSize, classifierInputSize),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	c.net.SetInput(blob, "")
	output := c.net.Forward("")
	defer output.Close()

	flat := output.Reshape(1, 1)
	defer flat.Close()

	if flat.Cols() != len(c.labels) {
		return nil, fmt.Errorf("model emits %d scores for %d labels", flat.Cols(), len(c.labels))
	}

	scores := make([]float64, flat.Cols())
	for i := range scores {
		scores[i] = float64(flat.GetFloatAt(0, i))
	}
	return scores, nil
}

// softmaxAt computes the softmax probability of index i without
// materializing the whole distribution.
func softmaxAt(scores []float64, i int) float64 {
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	var sum float64
	for _, s := range scores {
		sum += math.Exp(s - max)
	}
	if sum == 0 {
		return 0
	}
	return math.Exp(scores[i]-max) / sum
}
