package result

import (
	"math"
	"strconv"

	"github.com/google/uuid"

	"github.com/mrogowski/videolitic/internal/media"
	"github.com/mrogowski/videolitic/internal/speech"
	"github.com/mrogowski/videolitic/internal/tracking"
	"github.com/mrogowski/videolitic/internal/vision"
)

// pauseBetweenSentences is the silence gap, in seconds, beyond which a
// segment is treated as ending a sentence.
const pauseBetweenSentences = 0.2

// Meta carries the run-level facts the assembler copies into the result.
type Meta struct {
	Orientation media.Orientation
	VideoPath   string
	AudioPath   string
}

// Assemble fuses the frozen participant registry with the transcript into
// one immutable result. It is total over its inputs: empty participant or
// segment lists are valid and produce an empty result.
func Assemble(participants []*tracking.Participant, segments []speech.Segment, meta Meta) *Result {
	res := &Result{
		ID:           uuid.New().String(),
		Participants: make([]ParticipantSummary, 0, len(participants)),
		Sentences:    fuse(participants, segments),
		Orientation:  meta.Orientation,
		VideoPath:    meta.VideoPath,
		AudioPath:    meta.AudioPath,
	}

	for _, p := range participants {
		res.Participants = append(res.Participants, summarize(p))
	}

	return res
}

// summarize derives the demographic aggregate for one participant.
func summarize(p *tracking.Participant) ParticipantSummary {
	avatar, _ := p.Avatar()
	return ParticipantSummary{
		ID:     p.ID(),
		Age:    meanAge(p.Samples(vision.AttrAge)),
		Gender: mostFrequentLabel(p.Samples(vision.AttrGender)),
		Race:   mostFrequentLabel(p.Samples(vision.AttrRace)),
		Avatar: avatar,
	}
}

// meanAge averages the integer-parsed age labels. Labels that do not
// parse contribute nothing to the sum but still count toward the mean's
// denominator. Nil when no age samples exist at all.
func meanAge(samples []tracking.Sample) *float64 {
	if len(samples) == 0 {
		return nil
	}
	sum := 0
	for _, s := range samples {
		if age, err := strconv.Atoi(s.Label); err == nil {
			sum += age
		}
	}
	mean := float64(sum) / float64(len(samples))
	return &mean
}

// mostFrequentLabel picks the label with the highest sample count. Ties
// break toward the label encountered first, so the outcome is
// deterministic.
func mostFrequentLabel(samples []tracking.Sample) string {
	if len(samples) == 0 {
		return UnknownLabel
	}

	counts := make(map[string]int, len(samples))
	var order []string
	for _, s := range samples {
		if counts[s.Label] == 0 {
			order = append(order, s.Label)
		}
		counts[s.Label]++
	}

	best := order[0]
	for _, label := range order[1:] {
		if counts[label] > counts[best] {
			best = label
		}
	}
	return best
}

// fuse partitions each participant's emotion samples into per-segment
// buckets. Windows are half-open [segment start, next segment start): a
// sample exactly at the next segment's timestamp belongs to the next
// segment. The last segment absorbs everything from its start to the end
// of the video.
func fuse(participants []*tracking.Participant, segments []speech.Segment) []Sentence {
	sentences := make([]Sentence, 0, len(segments))

	for i, seg := range segments {
		end := math.Inf(1)
		last := i+1 >= len(segments)
		endOfSentence := last
		if !last {
			next := segments[i+1]
			end = next.Timestamp
			endOfSentence = next.Timestamp-(seg.Timestamp+seg.Duration) > pauseBetweenSentences
		}

		var emotions []Emotion
		for _, p := range participants {
			for _, s := range emotionWindow(p.Samples(vision.AttrEmotion), seg.Timestamp, end) {
				emotions = append(emotions, Emotion{
					Bounds:        s.Bounds,
					Confidence:    s.Confidence * 100.0,
					Identifier:    s.Label,
					ParticipantID: p.ID(),
					Timestamp:     s.Timestamp,
				})
			}
		}

		text := seg.Text
		if endOfSentence {
			text += "."
		}

		sentences = append(sentences, Sentence{
			Timestamp:       seg.Timestamp,
			Duration:        seg.Duration,
			Text:            text,
			Confidence:      seg.Confidence,
			IsEndOfSentence: endOfSentence,
			Emotions:        emotions,
		})
	}

	return sentences
}

// emotionWindow returns the samples with start <= timestamp < end. The
// sample list is timestamp-ordered, so one forward scan suffices.
func emotionWindow(samples []tracking.Sample, start, end float64) []tracking.Sample {
	var out []tracking.Sample
	for _, s := range samples {
		if s.Timestamp < start {
			continue
		}
		if s.Timestamp >= end {
			break
		}
		out = append(out, s)
	}
	return out
}
