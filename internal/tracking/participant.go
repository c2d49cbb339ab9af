package tracking

import (
	"github.com/google/uuid"

	"github.com/mrogowski/videolitic/internal/vision"
)

// Sample is a single classification outcome for one participant on one
// frame. Immutable once created. Samples for a participant are appended in
// frame order, so each attribute's sequence is timestamp-sorted.
type Sample struct {
	Attribute  vision.Attribute `json:"attribute"`
	Label      string           `json:"label"`
	Confidence float64          `json:"confidence"`
	Timestamp  float64          `json:"timestamp"`
	Bounds     vision.Region    `json:"bounds"`
}

// Participant is one tracked individual across a video's frame sequence.
// It exists from its first detection until the end of the run; losing the
// tracker stops updates but never deletes the participant.
type Participant struct {
	id string

	samples map[vision.Attribute][]Sample

	avatar           []byte
	avatarConfidence float64

	tracker vision.Tracker
}

func newParticipant() *Participant {
	return &Participant{
		id:      uuid.New().String(),
		samples: make(map[vision.Attribute][]Sample),
	}
}

// ID is the participant's stable opaque identity within one video.
func (p *Participant) ID() string { return p.id }

// AddSample appends one classification sample in frame order.
func (p *Participant) AddSample(s Sample) {
	p.samples[s.Attribute] = append(p.samples[s.Attribute], s)
}

// Samples returns the ordered sample sequence for one attribute kind.
func (p *Participant) Samples(attr vision.Attribute) []Sample {
	return p.samples[attr]
}

// UpdateAvatar stores the face image if its detector confidence beats the
// best seen so far. Reports whether the avatar was replaced.
func (p *Participant) UpdateAvatar(img []byte, confidence float64) bool {
	if len(img) == 0 || confidence <= p.avatarConfidence {
		return false
	}
	p.avatar = img
	p.avatarConfidence = confidence
	return true
}

// Avatar returns the highest-confidence face image seen so far, or nil.
func (p *Participant) Avatar() ([]byte, float64) {
	return p.avatar, p.avatarConfidence
}

// Tracker returns the participant's current tracker handle, or nil when
// the participant has no live tracker.
func (p *Participant) Tracker() vision.Tracker { return p.tracker }

// SetTracker replaces the participant's tracker handle. Handles are owned
// exclusively; a re-detection always installs a fresh tracker.
func (p *Participant) SetTracker(t vision.Tracker) { p.tracker = t }

// DropTracker detaches a stale tracker. The participant's history remains.
func (p *Participant) DropTracker() { p.tracker = nil }
