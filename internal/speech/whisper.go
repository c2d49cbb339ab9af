package speech

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// WhisperTranscriber transcribes audio with the OpenAI Whisper API using
// the verbose JSON response format, which carries per-segment timestamps.
type WhisperTranscriber struct {
	client *openai.Client
	model  string
	apiKey string
}

// NewWhisperTranscriber builds a transcriber for the given API key. An
// empty key yields an unauthorized transcriber; processing will refuse to
// start rather than fail mid-run.
func NewWhisperTranscriber(apiKey string) *WhisperTranscriber {
	var client *openai.Client
	if apiKey != "" {
		client = openai.NewClient(apiKey)
	}
	return &WhisperTranscriber{
		client: client,
		model:  openai.Whisper1,
		apiKey: apiKey,
	}
}

func (t *WhisperTranscriber) Authorized() bool {
	return t.apiKey != ""
}

func (t *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) ([]Segment, error) {
	if t.client == nil {
		return nil, fmt.Errorf("transcriber not authorized: missing API key")
	}

	log.Printf("[SPEECH] Transcribing %s with model %s", audioPath, t.model)

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}

	segments := segmentsFromResponse(resp)
	log.Printf("[SPEECH] Transcription complete: %d segment(s)", len(segments))
	return segments, nil
}

// segmentsFromResponse maps the verbose API segments to Segments, dropping
// empty text and deriving a 0-1 confidence from the average log
// probability.
func segmentsFromResponse(resp openai.AudioResponse) []Segment {
	segments := make([]Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			Timestamp:  s.Start,
			Duration:   s.End - s.Start,
			Text:       text,
			Confidence: confidenceFromLogprob(s.AvgLogprob),
		})
	}
	return segments
}

func confidenceFromLogprob(avgLogprob float64) float64 {
	c := math.Exp(avgLogprob)
	if c > 1 {
		c = 1
	}
	if c < 0 {
		c = 0
	}
	return c
}
