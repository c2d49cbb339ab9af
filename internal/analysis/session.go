package analysis

import (
	"context"
	"sync"
	"time"
)

// Session statuses.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Update types carried over a session's Updates channel.
const (
	UpdateProgress = "progress"
	UpdateComplete = "complete"
	UpdateError    = "error"
)

// Session is one live analysis run. Updates carries progress events and
// exactly one terminal event, then closes.
type Session struct {
	ID         string
	VideoID    string
	AnalysisID string
	StartedAt  time.Time

	Updates chan SessionUpdate

	mu          sync.RWMutex
	Status      string
	CompletedAt *time.Time

	processing Run
	cancel     context.CancelFunc
}

type SessionUpdate struct {
	Type string
	Data interface{}
}

type ProgressData struct {
	Timestamp  float64 `json:"timestamp"`
	FrameIndex int     `json:"frame_index"`
}

type ErrorData struct {
	Message string `json:"message"`
}

func (s *Session) CurrentStatus() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

func (s *Session) setStatus(status string) {
	s.mu.Lock()
	s.Status = status
	s.mu.Unlock()
}

// publish never blocks: a slow or absent subscriber drops progress
// events.
func (s *Session) publish(update SessionUpdate) {
	select {
	case s.Updates <- update:
	default:
	}
}

// publishTerminal guarantees delivery of the terminal event by evicting
// buffered progress events if the subscriber fell behind.
func (s *Session) publishTerminal(update SessionUpdate) {
	for {
		select {
		case s.Updates <- update:
			return
		default:
			select {
			case <-s.Updates:
			default:
			}
		}
	}
}
