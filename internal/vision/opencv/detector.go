package opencv

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/mrogowski/videolitic/internal/vision"
)

// detectionThreshold is the minimum confidence for a face candidate.
const detectionThreshold = 0.5

// Detector runs an SSD face model over JPEG frames. DNN forward passes
// are not goroutine safe, so every detection holds the mutex.
type Detector struct {
	mu  sync.Mutex
	net gocv.Net
}

// NewDetector loads the SSD face model at modelPath (with optional
// configPath for caffe prototxt or TF pbtxt).
func NewDetector(modelPath, configPath string) (*Detector, error) {
	net, err := loadNet(modelPath, configPath)
	if err != nil {
		return nil, err
	}
	return &Detector{net: net}, nil
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// DetectFaces finds faces in a JPEG frame. A non-nil roi restricts the
// search to that region of the frame; returned regions are always in
// full-frame normalized coordinates regardless of roi.
func (d *Detector) DetectFaces(ctx context.Context, img []byte, roi *vision.Region) ([]vision.Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.IMDecode(img, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %v", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("decoded frame is empty")
	}

	search := mat
	window := vision.Region{X: 0, Y: 0, Width: 1, Height: 1}
	if roi != nil && !roi.Empty() {
		rect := image.Rect(
			int(roi.X*float64(mat.Cols())),
			int(roi.Y*float64(mat.Rows())),
			int((roi.X+roi.Width)*float64(mat.Cols())),
			int((roi.Y+roi.Height)*float64(mat.Rows())),
		).Intersect(image.Rect(0, 0, mat.Cols(), mat.Rows()))
		if rect.Empty() {
			return nil, nil
		}
		crop := mat.Region(rect)
		defer crop.Close()
		search = crop
		window = *roi
	}

	faces := d.forward(search)

	// Map crop-relative coordinates back into the full frame.
	for i := range faces {
		faces[i].Region = vision.Region{
			X:      window.X + faces[i].Region.X*window.Width,
			Y:      window.Y + faces[i].Region.Y*window.Height,
			Width:  faces[i].Region.Width * window.Width,
			Height: faces[i].Region.Height * window.Height,
		}
	}
	return faces, nil
}

// forward runs one SSD pass. The output is rows of 7 floats:
// [batch, class, confidence, x1, y1, x2, y2] with corners normalized to
// the input image.
func (d *Detector) forward(mat gocv.Mat) []vision.Face {
	d.mu.Lock()
	defer d.mu.Unlock()

	blob := gocv.BlobFromImage(mat, 1.0, image.Pt(300, 300),
		gocv.NewScalar(104, 177, 123, 0), false, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	rows := output.Reshape(1, output.Total()/7)
	defer rows.Close()

	var faces []vision.Face
	for i := 0; i < rows.Rows(); i++ {
		confidence := float64(rows.GetFloatAt(i, 2))
		if confidence < detectionThreshold {
			continue
		}
		x1 := clamp01(float64(rows.GetFloatAt(i, 3)))
		y1 := clamp01(float64(rows.GetFloatAt(i, 4)))
		x2 := clamp01(float64(rows.GetFloatAt(i, 5)))
		y2 := clamp01(float64(rows.GetFloatAt(i, 6)))
		if x2 <= x1 || y2 <= y1 {
			continue
		}
		faces = append(faces, vision.Face{
			Region:     vision.Region{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1},
			Confidence: confidence,
		})
	}
	return faces
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
