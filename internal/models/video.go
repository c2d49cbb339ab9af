package models

import (
	"time"

	"github.com/google/uuid"
)

// Video is an uploaded asset awaiting or undergoing analysis.
type Video struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Duration    float64   `json:"duration"`
	UploadTime  time.Time `json:"upload_time"`
}

func NewVideo(title, filename, contentType string, size int64) *Video {
	return &Video{
		ID:          uuid.New().String(),
		Title:       title,
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		UploadTime:  time.Now(),
	}
}
