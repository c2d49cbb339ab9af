package speech

import "context"

// Segment is one timestamped piece of transcribed speech. Segments are
// ordered by timestamp and non-overlapping by construction.
type Segment struct {
	Timestamp  float64 `json:"timestamp"`
	Duration   float64 `json:"duration"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Transcriber converts an exported audio file into ordered speech
// segments. Implementations are typically remote engines, so Transcribe
// may take a long time and must honor the context.
type Transcriber interface {
	// Authorized reports whether the transcriber is able to run at all.
	// Processing is gated on this before any video work starts.
	Authorized() bool

	Transcribe(ctx context.Context, audioPath string) ([]Segment, error)
}
