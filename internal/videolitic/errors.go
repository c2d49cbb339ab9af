package videolitic

import (
	"errors"

	"github.com/mrogowski/videolitic/internal/media"
	"github.com/mrogowski/videolitic/internal/tracking"
)

// The error taxonomy for a whole processing run. Every fatal condition
// maps to exactly one of these kinds; the caller receives either one
// complete result or one terminal error naming the stage that failed.
var (
	// Setup errors.
	ErrNoVideoTrack = media.ErrNoVideoTrack

	// Authorization errors: the transcriber is unavailable or denied.
	ErrNotAuthorized = errors.New("speech recognition not authorized")

	// Export errors.
	ErrExportUnavailable = media.ErrExportUnavailable
	ErrExportCancelled   = media.ErrExportCancelled
	ErrExportFailed      = media.ErrExportFailed

	// Detection/tracking errors.
	ErrFirstFrameUnavailable = tracking.ErrFirstFrameUnavailable
	ErrDetectingCancelled    = tracking.ErrDetectingCancelled
	ErrObjectTrackingFailed  = tracking.ErrObjectTrackingFailed

	// Transcription errors.
	ErrTranscriptionFailed = errors.New("transcription failed")
)
