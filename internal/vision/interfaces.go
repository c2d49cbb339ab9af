package vision

import "context"

// FaceLocator finds face regions in a JPEG-encoded image. A nil roi means
// the whole frame is searched; otherwise detection is restricted to the
// given region and returned regions are still in full-frame coordinates.
// Finding no faces is not an error.
type FaceLocator interface {
	DetectFaces(ctx context.Context, img []byte, roi *Region) ([]Face, error)
}

// Tracker follows a previously detected region frame-to-frame without
// re-running full detection. A tracker is owned by exactly one participant
// and is replaced, never shared, on every re-detection.
type Tracker interface {
	// ID is the tracker's stable identity, used to resolve a detection
	// back to the participant that owns this tracker.
	ID() string

	// Update advances the tracker to a new frame. It returns the refreshed
	// region, or ok=false when tracking was lost. An error aborts the
	// whole tracking run.
	Update(img []byte) (Region, bool, error)

	// LastRegion returns the most recent region, or ok=false if the
	// tracker has lost its target.
	LastRegion() (Region, bool)

	// MarkLastFrame tells the tracker the stream is exhausted.
	MarkLastFrame()
}

// TrackerFactory creates a tracker seeded from a freshly detected region.
type TrackerFactory interface {
	NewTracker(img []byte, seed Region) (Tracker, error)
}

// Classifier produces a single label for a cropped face image.
type Classifier interface {
	Classify(ctx context.Context, face []byte) (Label, error)
}

// Engine bundles the capabilities the tracking pipeline consumes. Concrete
// implementations (OpenCV, test doubles) are selected at construction time.
type Engine struct {
	Locator     FaceLocator
	Trackers    TrackerFactory
	Classifiers map[Attribute]Classifier
}
