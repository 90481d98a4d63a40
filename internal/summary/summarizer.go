package summary

import (
	"errors"
	"fmt"

	"framewatch/internal/model"
)

var (
	// ErrFinalized signals an update or record after Finalize. This is
	// an integration bug, not a recoverable condition.
	ErrFinalized = errors.New("summary: already finalized")
	// ErrFrameOrder signals a frame index at or below the last observed
	// one. State is append-only and never rolled back, so out-of-order
	// input fails loudly instead of corrupting counters.
	ErrFrameOrder = errors.New("summary: frame index not increasing")
	// ErrEventBounds signals an event referencing frames that were
	// never observed.
	ErrEventBounds = errors.New("summary: event references unobserved frame")
)

// Summarizer folds the per-frame observation stream plus the emitted
// event streams into one Summary. Events are recorded as they arrive,
// so a run stopped mid-stream still yields a consistent partial result.
//
// Not safe for concurrent use; the caller serializes calls in frame
// order.
type Summarizer struct {
	runID string

	framesTotal        int
	lastFrame          int
	seenAny            bool
	facesTotal         int
	maxFaces           int
	framesWithFaces    int
	framesWithoutFaces int
	emotions           map[string]int
	activities         []model.ActivityEvent
	anomalies          []model.AnomalyEvent

	final *model.Summary
}

func NewSummarizer(runID string) *Summarizer {
	return &Summarizer{
		runID:    runID,
		emotions: make(map[string]int),
	}
}

// Update folds one frame observation into the running counters.
func (s *Summarizer) Update(obs model.FrameObservation) error {
	if s.final != nil {
		return ErrFinalized
	}
	if s.seenAny && obs.FrameIndex <= s.lastFrame {
		return fmt.Errorf("%w: frame %d after %d", ErrFrameOrder, obs.FrameIndex, s.lastFrame)
	}
	s.lastFrame = obs.FrameIndex
	s.seenAny = true
	s.framesTotal++

	n := len(obs.Faces)
	s.facesTotal += n
	if n > s.maxFaces {
		s.maxFaces = n
	}
	if n > 0 {
		s.framesWithFaces++
	} else {
		s.framesWithoutFaces++
	}
	for _, face := range obs.Faces {
		label := face.Emotion
		if label == "" {
			label = model.EmotionUnknown
		}
		s.emotions[label]++
	}
	return nil
}

func (s *Summarizer) RecordActivity(ev model.ActivityEvent) error {
	if s.final != nil {
		return ErrFinalized
	}
	if ev.EndFrame < ev.StartFrame {
		return fmt.Errorf("%w: activity %q ends at %d before start %d",
			ErrEventBounds, ev.Label, ev.EndFrame, ev.StartFrame)
	}
	if !s.seenAny || ev.EndFrame > s.lastFrame {
		return fmt.Errorf("%w: activity %q ends at %d, last observed %d",
			ErrEventBounds, ev.Label, ev.EndFrame, s.lastFrame)
	}
	s.activities = append(s.activities, ev)
	return nil
}

func (s *Summarizer) RecordAnomaly(ev model.AnomalyEvent) error {
	if s.final != nil {
		return ErrFinalized
	}
	if !s.seenAny || ev.FrameIndex > s.lastFrame {
		return fmt.Errorf("%w: anomaly on %q at frame %d, last observed %d",
			ErrEventBounds, ev.MetricName, ev.FrameIndex, s.lastFrame)
	}
	s.anomalies = append(s.anomalies, ev)
	return nil
}

// FramesTotal reports the number of Update calls so far.
func (s *Summarizer) FramesTotal() int { return s.framesTotal }

// Snapshot builds a consistent view of the accumulated state without
// finalizing. Safe to call mid-stream between observations.
func (s *Summarizer) Snapshot() *model.Summary {
	if s.final != nil {
		return s.final
	}
	return s.build()
}

// Finalize computes the derived fields and returns the Summary.
// Idempotent: repeated calls return the identical object.
func (s *Summarizer) Finalize() *model.Summary {
	if s.final == nil {
		s.final = s.build()
	}
	return s.final
}

func (s *Summarizer) build() *model.Summary {
	avg := 0.0
	if s.framesTotal > 0 {
		avg = float64(s.facesTotal) / float64(s.framesTotal)
	}
	emotions := make(map[string]int, len(s.emotions))
	for label, count := range s.emotions {
		emotions[label] = count
	}
	timeline := make([]model.ActivityEvent, len(s.activities))
	copy(timeline, s.activities)
	byLabel := make(map[string]int, 4)
	for _, ev := range s.activities {
		byLabel[ev.Label]++
	}
	bySeverity := map[model.Severity]int{
		model.SeverityLow:    0,
		model.SeverityMedium: 0,
		model.SeverityHigh:   0,
	}
	for _, ev := range s.anomalies {
		bySeverity[ev.Severity]++
	}
	return &model.Summary{
		RunID:          s.runID,
		FramesTotal:    s.framesTotal,
		AnomaliesTotal: len(s.anomalies),
		FacesStats: model.FaceStats{
			TotalDetections:    s.facesTotal,
			AvgFacesPerFrame:   avg,
			MaxFacesInFrame:    s.maxFaces,
			FramesWithFaces:    s.framesWithFaces,
			FramesWithoutFaces: s.framesWithoutFaces,
		},
		EmotionsDistribution: emotions,
		ActivitiesTimeline:   timeline,
		ActivitiesByLabel:    byLabel,
		AnomaliesBySeverity:  bySeverity,
	}
}
