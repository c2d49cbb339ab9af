package result

import (
	"github.com/mrogowski/videolitic/internal/media"
	"github.com/mrogowski/videolitic/internal/vision"
)

// Emotion is one emotion observation projected out of a participant's
// classification samples. Confidence is scaled to 0-100.
type Emotion struct {
	Bounds        vision.Region `json:"bounds"`
	Confidence    float64       `json:"confidence"`
	Identifier    string        `json:"identifier"`
	ParticipantID string        `json:"participant_id"`
	Timestamp     float64       `json:"timestamp"`
}

// Sentence is a speech segment enriched with an end-of-sentence flag and
// the emotions observed during its time window.
type Sentence struct {
	Timestamp       float64   `json:"timestamp"`
	Duration        float64   `json:"duration"`
	Text            string    `json:"text"`
	Confidence      float64   `json:"confidence"`
	IsEndOfSentence bool      `json:"is_end_of_sentence"`
	Emotions        []Emotion `json:"emotions"`
}

// UnknownLabel is reported for gender/race when a participant has no
// samples of that attribute.
const UnknownLabel = "unknown"

// ParticipantSummary is the demographic aggregate for one participant.
// Age is nil when no age samples exist: callers must treat that as
// unknown, never as a numeric answer.
type ParticipantSummary struct {
	ID     string   `json:"id"`
	Age    *float64 `json:"age,omitempty"`
	Gender string   `json:"gender"`
	Race   string   `json:"race"`
	Avatar []byte   `json:"avatar,omitempty"`
}

// Result is the complete outcome of one video-processing run. It is built
// once, after both the frame stream and the transcription finished, and is
// never mutated afterward.
type Result struct {
	ID           string               `json:"id"`
	Participants []ParticipantSummary `json:"participants"`
	Sentences    []Sentence           `json:"sentences"`
	Orientation  media.Orientation    `json:"orientation"`
	VideoPath    string               `json:"video_path,omitempty"`
	AudioPath    string               `json:"audio_path,omitempty"`
}
