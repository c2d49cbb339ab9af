package opencv

import (
	"fmt"
	"image"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/mrogowski/videolitic/internal/vision"
)

// TrackerFactory seeds MIL trackers from detected regions. Each tracker
// gets a fresh uuid: trackers are replaced on re-detection, never
// re-seeded, so the id doubles as the detection-to-participant key.
type TrackerFactory struct{}

func (TrackerFactory) NewTracker(img []byte, seed vision.Region) (vision.Tracker, error) {
	mat, err := gocv.IMDecode(img, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode seed frame: %v", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("seed frame is empty")
	}

	rect := denormalize(seed, mat.Cols(), mat.Rows())
	if rect.Empty() {
		return nil, fmt.Errorf("seed region is empty")
	}

	inner := gocv.NewTrackerMIL()
	if !inner.Init(mat, rect) {
		inner.Close()
		return nil, fmt.Errorf("tracker init failed")
	}

	return &milTracker{
		id:     uuid.NewString(),
		inner:  inner,
		region: seed,
		live:   true,
	}, nil
}

// milTracker wraps a gocv MIL tracker. It remembers the last region in
// normalized coordinates so region queries need no frame in hand.
type milTracker struct {
	id     string
	inner  gocv.Tracker
	region vision.Region
	live   bool
}

func (t *milTracker) ID() string { return t.id }

func (t *milTracker) Update(img []byte) (vision.Region, bool, error) {
	if !t.live {
		return vision.Region{}, false, nil
	}

	mat, err := gocv.IMDecode(img, gocv.IMReadColor)
	if err != nil {
		return vision.Region{}, false, fmt.Errorf("decode frame: %v", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return vision.Region{}, false, fmt.Errorf("decoded frame is empty")
	}

	rect, ok := t.inner.Update(mat)
	if !ok || rect.Empty() {
		t.live = false
		t.inner.Close()
		return vision.Region{}, false, nil
	}

	t.region = normalize(rect, mat.Cols(), mat.Rows())
	return t.region, true, nil
}

func (t *milTracker) LastRegion() (vision.Region, bool) {
	if !t.live {
		return vision.Region{}, false
	}
	return t.region, true
}

func (t *milTracker) MarkLastFrame() {
	if t.live {
		t.live = false
		t.inner.Close()
	}
}

func denormalize(r vision.Region, cols, rows int) image.Rectangle {
	return image.Rect(
		int(r.X*float64(cols)),
		int(r.Y*float64(rows)),
		int((r.X+r.Width)*float64(cols)),
		int((r.Y+r.Height)*float64(rows)),
	).Intersect(image.Rect(0, 0, cols, rows))
}

func normalize(rect image.Rectangle, cols, rows int) vision.Region {
	return vision.Region{
		X:      float64(rect.Min.X) / float64(cols),
		Y:      float64(rect.Min.Y) / float64(rows),
		Width:  float64(rect.Dx()) / float64(cols),
		Height: float64(rect.Dy()) / float64(rows),
	}
}
