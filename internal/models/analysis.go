package models

import (
	"time"

	"github.com/google/uuid"
)

// Analysis statuses. An analysis moves pending -> running -> complete or
// failed, never backwards.
const (
	AnalysisPending  = "pending"
	AnalysisRunning  = "running"
	AnalysisComplete = "complete"
	AnalysisFailed   = "failed"
)

// Analysis is one processing run over a video. The demographic and
// transcript payloads are stored as JSON and only populated on completion.
type Analysis struct {
	ID          string     `json:"id"`
	VideoID     string     `json:"video_id"`
	Status      string     `json:"status"`
	Orientation string     `json:"orientation,omitempty"`
	AudioPath   string     `json:"audio_path,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func NewAnalysis(videoID string) *Analysis {
	return &Analysis{
		ID:        uuid.New().String(),
		VideoID:   videoID,
		Status:    AnalysisPending,
		CreatedAt: time.Now(),
	}
}
