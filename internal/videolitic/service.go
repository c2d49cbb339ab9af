package videolitic

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync/atomic"

	"github.com/mrogowski/videolitic/internal/media"
	"github.com/mrogowski/videolitic/internal/result"
	"github.com/mrogowski/videolitic/internal/speech"
	"github.com/mrogowski/videolitic/internal/tracking"
	"github.com/mrogowski/videolitic/internal/vision"
)

// frameSourceFactory opens the frame stream for one run. Swappable so
// tests can feed scripted frames instead of spawning ffmpeg.
type frameSourceFactory func(ctx context.Context, videoPath string, info *media.Info) (frameSource, error)

type frameSource interface {
	tracking.FrameSource
	Orientation() media.Orientation
	Close() error
}

// Service is the single entry point for processing a video: it fans out
// into speech transcription and face tracking and joins the two timelines
// into one result.
type Service struct {
	engine      vision.Engine
	transcriber speech.Transcriber
	workDir     string

	probe      func(ctx context.Context, path string) (*media.Info, error)
	export     func(ctx context.Context, videoPath, destDir string) (string, error)
	openSource frameSourceFactory
}

func NewService(engine vision.Engine, transcriber speech.Transcriber, workDir string) *Service {
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &Service{
		engine:      engine,
		transcriber: transcriber,
		workDir:     workDir,
		probe:       media.Probe,
		export:      media.ExportAudio,
		openSource: func(ctx context.Context, videoPath string, info *media.Info) (frameSource, error) {
			return media.NewReader(ctx, videoPath, info)
		},
	}
}

// Outcome is the terminal value of one run: exactly one of Result or Err.
type Outcome struct {
	Result *result.Result
	Err    error
}

// Processing is a handle on one in-flight run. Result delivers exactly one
// outcome; Frames carries progress previews only and may be ignored.
type Processing struct {
	outcome chan Outcome
	frames  chan media.Frame

	pipeline *tracking.Pipeline
	cancel   context.CancelFunc
	stopped  atomic.Bool
}

// Result returns the channel carrying the run's single terminal outcome.
func (p *Processing) Result() <-chan Outcome { return p.outcome }

// Frames returns the progress stream. Frames are dropped when the
// consumer is slow; the stream is for display only.
func (p *Processing) Frames() <-chan media.Frame { return p.frames }

// Stop requests cooperative cancellation. The run terminates with
// ErrDetectingCancelled and surfaces no partial result.
func (p *Processing) Stop() {
	p.stopped.Store(true)
	p.pipeline.Stop()
	p.cancel()
}

// Process starts analyzing the video at videoPath. Setup, authorization
// and audio-export failures are reported synchronously, before any frame
// is read; everything after that arrives through the Processing handle.
func (s *Service) Process(ctx context.Context, videoPath string) (*Processing, error) {
	info, err := s.probe(ctx, videoPath)
	if err != nil {
		return nil, err
	}

	if !s.transcriber.Authorized() {
		return nil, ErrNotAuthorized
	}

	audioPath, err := s.export(ctx, videoPath, s.workDir)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)

	source, err := s.openSource(runCtx, videoPath, info)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open frame source: %w", err)
	}

	frames := make(chan media.Frame, 1)
	pipeline := tracking.NewPipeline(source, s.engine, tracking.WithProgress(frames))

	proc := &Processing{
		outcome:  make(chan Outcome, 1),
		frames:   frames,
		pipeline: pipeline,
		cancel:   cancel,
	}

	type transcriptionResult struct {
		segments []speech.Segment
		err      error
	}
	type trackingResult struct {
		participants []*tracking.Participant
		err          error
	}

	transcriptionCh := make(chan transcriptionResult, 1)
	trackingCh := make(chan trackingResult, 1)

	go func() {
		segments, err := s.transcriber.Transcribe(runCtx, audioPath)
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
		}
		transcriptionCh <- transcriptionResult{segments: segments, err: err}
	}()

	go func() {
		participants, err := pipeline.Run(runCtx)
		trackingCh <- trackingResult{participants: participants, err: err}
	}()

	go func() {
		defer cancel()
		defer close(frames)
		defer source.Close()

		var transcription transcriptionResult
		var tracked trackingResult
		var firstErr error

		// Zero-or-one-shot join: wait for both streams. The first error
		// cancels the other side and becomes the run's terminal failure;
		// induced cancellations of the surviving side are not reported.
		haveTranscription, haveTracking := false, false
		for !haveTranscription || !haveTracking {
			var err error
			select {
			case transcription = <-transcriptionCh:
				haveTranscription = true
				err = transcription.err
			case tracked = <-trackingCh:
				haveTracking = true
				err = tracked.err
			}
			if err != nil && firstErr == nil {
				firstErr = err
				pipeline.Stop()
				cancel()
			}
		}

		if firstErr != nil {
			// A user-requested Stop races with the run context: whichever
			// side is blocked on the context fails first, before the
			// pipeline notices its stop flag. The stop request, not the
			// induced failure, names the terminal error.
			if proc.stopped.Load() {
				firstErr = ErrDetectingCancelled
			}
			proc.outcome <- Outcome{Err: firstErr}
			return
		}

		res := result.Assemble(tracked.participants, transcription.segments, result.Meta{
			Orientation: source.Orientation(),
			VideoPath:   videoPath,
			AudioPath:   audioPath,
		})

		log.Printf("[VIDEOLITIC] run complete: %d participant(s), %d sentence(s)",
			len(res.Participants), len(res.Sentences))
		proc.outcome <- Outcome{Result: res}
	}()

	return proc, nil
}
