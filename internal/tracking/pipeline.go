package tracking

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"sync"
	"sync/atomic"

	"github.com/mrogowski/videolitic/internal/media"
	"github.com/mrogowski/videolitic/internal/vision"
)

var (
	// ErrFirstFrameUnavailable means the very first frame could not be
	// read; the run never starts.
	ErrFirstFrameUnavailable = errors.New("first frame unavailable")

	// ErrDetectingCancelled means the run was stopped cooperatively. It is
	// intentional, but still terminal: no partial result is surfaced.
	ErrDetectingCancelled = errors.New("detecting cancelled")

	// ErrObjectTrackingFailed means a tracker batch update errored, which
	// aborts the run.
	ErrObjectTrackingFailed = errors.New("object tracking failed")
)

// FrameSource yields the frames of one video in presentation order and
// knows the cadence at which detection should be refreshed.
type FrameSource interface {
	NextFrame() (*media.Frame, bool)
	RefreshInterval() int
}

// Pipeline drives the frame loop for one video-processing run: detection
// at a controlled cadence, tracker upkeep, and detection-triggered
// classification into the participant registry. A pipeline is single-use.
type Pipeline struct {
	source   FrameSource
	engine   vision.Engine
	registry *Registry

	progress chan<- media.Frame

	stopped atomic.Bool
	started atomic.Bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithProgress publishes each processed frame to ch for progress display.
// Sends never block; frames are dropped when the channel is full.
func WithProgress(ch chan<- media.Frame) Option {
	return func(p *Pipeline) { p.progress = ch }
}

func NewPipeline(source FrameSource, engine vision.Engine, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:   source,
		engine:   engine,
		registry: NewRegistry(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stop requests cooperative cancellation. The loop finishes the work it
// has already dispatched for the current frame, then fails with
// ErrDetectingCancelled.
func (p *Pipeline) Stop() {
	p.stopped.Store(true)
}

// Run consumes every frame exactly once, in order, and returns the
// participants observed across the whole stream. On any terminal error the
// caller receives no participants, even if the registry holds partial
// observations.
func (p *Pipeline) Run(ctx context.Context) ([]*Participant, error) {
	if p.started.Swap(true) {
		return nil, fmt.Errorf("pipeline is single-use and was already run")
	}

	first, ok := p.source.NextFrame()
	if !ok {
		return nil, ErrFirstFrameUnavailable
	}
	p.publish(first)

	interval := p.source.RefreshInterval()
	if interval < 1 {
		interval = 1
	}

	f := 1
	for {
		if p.stopped.Load() || ctx.Err() != nil {
			return nil, ErrDetectingCancelled
		}

		frame, ok := p.source.NextFrame()
		if !ok {
			for _, participant := range p.registry.Participants() {
				if t := participant.Tracker(); t != nil {
					t.MarkLastFrame()
				}
			}
			break
		}

		p.publish(frame)
		f++

		if p.registry.Len() == 0 {
			// Nobody tracked yet: full-frame detection seeds the registry.
			p.detectAndReconcile(ctx, frame, nil, "")
			continue
		}

		if f%interval == 0 {
			p.refreshDetection(ctx, frame)
		}

		if err := p.updateTrackers(frame); err != nil {
			return nil, err
		}
	}

	return p.registry.Participants(), nil
}

// Registry exposes the pipeline's participant registry. It must be treated
// as read-only once Run has returned.
func (p *Pipeline) Registry() *Registry { return p.registry }

// refreshDetection re-runs face detection around every live tracker's last
// region to correct drift. Trackers that no longer report a region are
// dropped; the participant's history stays in the registry.
func (p *Pipeline) refreshDetection(ctx context.Context, frame *media.Frame) {
	for _, participant := range p.registry.Participants() {
		t := participant.Tracker()
		if t == nil {
			continue
		}
		region, ok := t.LastRegion()
		if !ok {
			participant.DropTracker()
			continue
		}
		roi := region.Expand()
		p.detectAndReconcile(ctx, frame, &roi, t.ID())
	}
}

// detectAndReconcile runs face detection on one frame and folds each found
// face into an existing or new participant. Classification runs here, once
// per detected face: tracking-only frames never reclassify.
func (p *Pipeline) detectAndReconcile(ctx context.Context, frame *media.Frame, roi *vision.Region, trackerID string) {
	faces, err := p.engine.Locator.DetectFaces(ctx, frame.Data, roi)
	if err != nil {
		log.Printf("[PIPE] face detection failed on frame %d: %v", frame.Index, err)
		return
	}

	for _, face := range faces {
		participant, created := p.registry.Upsert(trackerID)
		if created {
			log.Printf("[PIPE] new participant %s at t=%.2fs", participant.ID(), frame.Timestamp)
		}

		crop, err := cropFace(frame.Data, face.Region)
		if err != nil {
			log.Printf("[PIPE] face crop failed on frame %d: %v", frame.Index, err)
			continue
		}

		participant.UpdateAvatar(crop, face.Confidence)

		tracker, err := p.engine.Trackers.NewTracker(frame.Data, face.Region)
		if err != nil {
			log.Printf("[PIPE] tracker seed failed on frame %d: %v", frame.Index, err)
		} else {
			participant.SetTracker(tracker)
		}

		p.classify(ctx, participant, crop, frame.Timestamp, face.Region)
	}
}

// classify runs all four attribute classifiers over one cropped face in
// parallel and joins before returning: the frame loop never advances while
// a face's classifications are pending. A failed classifier just omits its
// sample.
func (p *Pipeline) classify(ctx context.Context, participant *Participant, crop []byte, timestamp float64, bounds vision.Region) {
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, attr := range vision.Attributes() {
		classifier, ok := p.engine.Classifiers[attr]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(attr vision.Attribute, classifier vision.Classifier) {
			defer wg.Done()
			label, err := classifier.Classify(ctx, crop)
			if err != nil {
				log.Printf("[PIPE] %s classification failed at t=%.2fs: %v", attr, timestamp, err)
				return
			}
			mu.Lock()
			participant.AddSample(Sample{
				Attribute:  attr,
				Label:      label.Name,
				Confidence: label.Confidence,
				Timestamp:  timestamp,
				Bounds:     bounds,
			})
			mu.Unlock()
		}(attr, classifier)
	}

	wg.Wait()
}

// updateTrackers advances every live tracker to the new frame in one
// batch. A lost target leaves the tracker in place to be dropped on the
// next refresh; an update error aborts the run.
func (p *Pipeline) updateTrackers(frame *media.Frame) error {
	for _, participant := range p.registry.Participants() {
		t := participant.Tracker()
		if t == nil {
			continue
		}
		if _, _, err := t.Update(frame.Data); err != nil {
			return fmt.Errorf("%w: %v", ErrObjectTrackingFailed, err)
		}
	}
	return nil
}

func (p *Pipeline) publish(frame *media.Frame) {
	if p.progress == nil {
		return
	}
	select {
	case p.progress <- *frame:
	default:
	}
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// cropFace cuts the face region out of a JPEG frame and re-encodes it.
func cropFace(frame []byte, region vision.Region) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	b := img.Bounds()
	rect := image.Rect(
		b.Min.X+int(region.X*float64(b.Dx())),
		b.Min.Y+int(region.Y*float64(b.Dy())),
		b.Min.X+int((region.X+region.Width)*float64(b.Dx())),
		b.Min.Y+int((region.Y+region.Height)*float64(b.Dy())),
	).Intersect(b)
	if rect.Empty() {
		return nil, fmt.Errorf("face region %+v is outside the frame", region)
	}

	si, ok := img.(subImager)
	if !ok {
		return nil, fmt.Errorf("image type %T does not support cropping", img)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, si.SubImage(rect), &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}
	return buf.Bytes(), nil
}
