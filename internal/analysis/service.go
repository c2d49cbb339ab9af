package analysis

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mrogowski/videolitic/internal/database"
	"github.com/mrogowski/videolitic/internal/media"
	"github.com/mrogowski/videolitic/internal/models"
	"github.com/mrogowski/videolitic/internal/storage"
	"github.com/mrogowski/videolitic/internal/videolitic"
)

// Run is a live processing run: a progress stream plus exactly one
// terminal outcome. *videolitic.Processing satisfies it.
type Run interface {
	Frames() <-chan media.Frame
	Result() <-chan videolitic.Outcome
	Stop()
}

// Processor starts one video-processing run.
type Processor interface {
	Process(ctx context.Context, videoPath string) (Run, error)
}

// VideoProcessor adapts *videolitic.Service to the Processor interface.
type VideoProcessor struct {
	svc *videolitic.Service
}

func NewVideoProcessor(svc *videolitic.Service) VideoProcessor {
	return VideoProcessor{svc: svc}
}

func (p VideoProcessor) Process(ctx context.Context, videoPath string) (Run, error) {
	processing, err := p.svc.Process(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	return processing, nil
}

// Service owns the in-flight analysis sessions: it starts runs, streams
// their progress to subscribers, and persists terminal outcomes.
type Service struct {
	processor    Processor
	videoRepo    *database.VideoRepository
	analysisRepo *database.AnalysisRepository
	store        storage.Storage

	sessions   map[string]*Session
	sessionsMu sync.RWMutex
}

func NewService(processor Processor, videoRepo *database.VideoRepository, analysisRepo *database.AnalysisRepository, store storage.Storage) *Service {
	return &Service{
		processor:    processor,
		videoRepo:    videoRepo,
		analysisRepo: analysisRepo,
		store:        store,
		sessions:     make(map[string]*Session),
	}
}

// StartAnalysis kicks off a run over the stored video. Setup failures
// (missing video, unauthorized transcriber, broken export) are returned
// synchronously; everything later flows through the session's Updates.
func (s *Service) StartAnalysis(ctx context.Context, videoID string) (*Session, error) {
	video, err := s.videoRepo.GetVideoByID(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("getting video: %w", err)
	}

	videoPath, err := s.store.Path(video.Filename)
	if err != nil {
		return nil, fmt.Errorf("resolving video path: %w", err)
	}

	record := models.NewAnalysis(video.ID)
	if err := s.analysisRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("creating analysis record: %w", err)
	}

	// The run outlives the request context.
	runCtx, cancel := context.WithCancel(context.Background())

	processing, err := s.processor.Process(runCtx, videoPath)
	if err != nil {
		cancel()
		if markErr := s.analysisRepo.MarkFailed(context.Background(), record.ID, err); markErr != nil {
			log.Printf("[ANALYSIS] Failed to record setup failure: %v", markErr)
		}
		return nil, err
	}

	session := &Session{
		ID:         uuid.New().String(),
		VideoID:    video.ID,
		AnalysisID: record.ID,
		Status:     StatusRunning,
		StartedAt:  time.Now(),
		Updates:    make(chan SessionUpdate, 100),
		processing: processing,
		cancel:     cancel,
	}

	s.sessionsMu.Lock()
	s.sessions[session.ID] = session
	s.sessionsMu.Unlock()

	go s.runSession(session)

	return session, nil
}

func (s *Service) GetSession(sessionID string) (*Session, bool) {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()

	session, exists := s.sessions[sessionID]
	return session, exists
}

// StopAnalysis cancels a running session. The session still terminates
// through its Updates channel, with a cancellation error.
func (s *Service) StopAnalysis(sessionID string) error {
	s.sessionsMu.RLock()
	session, exists := s.sessions[sessionID]
	s.sessionsMu.RUnlock()

	if !exists {
		return fmt.Errorf("session not found")
	}

	log.Printf("[ANALYSIS] Stopping session %s", sessionID)
	session.processing.Stop()
	session.cancel()
	return nil
}

// runSession relays progress frames and the terminal outcome of one run,
// persisting the outcome before notifying subscribers.
func (s *Service) runSession(session *Session) {
	defer close(session.Updates)
	defer session.cancel()

	log.Printf("[ANALYSIS] Session %s started for video %s", session.ID, session.VideoID)

	if err := s.analysisRepo.MarkRunning(context.Background(), session.AnalysisID); err != nil {
		log.Printf("[ANALYSIS] Failed to mark analysis running: %v", err)
	}

	frames := session.processing.Frames()
	outcomes := session.processing.Result()

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			session.publish(SessionUpdate{
				Type: UpdateProgress,
				Data: ProgressData{Timestamp: frame.Timestamp, FrameIndex: frame.Index},
			})

		case outcome := <-outcomes:
			s.finishSession(session, outcome)
			return
		}
	}
}

func (s *Service) finishSession(session *Session, outcome videolitic.Outcome) {
	now := time.Now()
	session.mu.Lock()
	session.CompletedAt = &now
	session.mu.Unlock()

	if outcome.Err != nil {
		session.setStatus(StatusFailed)
		if err := s.analysisRepo.MarkFailed(context.Background(), session.AnalysisID, outcome.Err); err != nil {
			log.Printf("[ANALYSIS] Failed to persist failure: %v", err)
		}
		log.Printf("[ANALYSIS] Session %s failed: %v", session.ID, outcome.Err)
		session.publishTerminal(SessionUpdate{
			Type: UpdateError,
			Data: ErrorData{Message: outcome.Err.Error()},
		})
		return
	}

	session.setStatus(StatusComplete)
	if err := s.analysisRepo.MarkComplete(context.Background(), session.AnalysisID, outcome.Result); err != nil {
		log.Printf("[ANALYSIS] Failed to persist result: %v", err)
	}
	log.Printf("[ANALYSIS] Session %s complete: %d participant(s), %d sentence(s)",
		session.ID, len(outcome.Result.Participants), len(outcome.Result.Sentences))

	// The assembled result is never mutated; subscribers get a copy keyed
	// by the analysis id so the streamed payload matches what a later
	// fetch of the analysis returns.
	published := *outcome.Result
	published.ID = session.AnalysisID
	session.publishTerminal(SessionUpdate{
		Type: UpdateComplete,
		Data: &published,
	})
}
