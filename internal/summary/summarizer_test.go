package summary

import (
	"encoding/json"
	"errors"
	"testing"

	"framewatch/internal/model"
)

func faceObs(frame, faces int, emotion string) model.FrameObservation {
	obs := model.FrameObservation{FrameIndex: frame}
	for i := 0; i < faces; i++ {
		obs.Faces = append(obs.Faces, model.FaceDetection{
			Confidence:        0.9,
			Emotion:           emotion,
			EmotionConfidence: 0.8,
		})
	}
	return obs
}

func TestSummarizeRun(t *testing.T) {
	s := NewSummarizer("run-1")
	// 60 frames with one happy face, then 40 empty frames.
	for i := 0; i < 60; i++ {
		if err := s.Update(faceObs(i, 1, "happy")); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}
	for i := 60; i < 100; i++ {
		if err := s.Update(faceObs(i, 0, "")); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}
	if err := s.RecordActivity(model.ActivityEvent{Label: "walking", StartFrame: 0, EndFrame: 50, Score: 0.8}); err != nil {
		t.Fatalf("record activity: %v", err)
	}
	if err := s.RecordAnomaly(model.AnomalyEvent{MetricName: "faces_count", FrameIndex: 61, ZScore: -3.2, Severity: model.SeverityMedium}); err != nil {
		t.Fatalf("record anomaly: %v", err)
	}

	got := s.Finalize()
	if got.RunID != "run-1" {
		t.Fatalf("run id: %s", got.RunID)
	}
	if got.FramesTotal != 100 || got.AnomaliesTotal != 1 {
		t.Fatalf("totals: frames %d anomalies %d", got.FramesTotal, got.AnomaliesTotal)
	}
	fs := got.FacesStats
	if fs.TotalDetections != 60 || fs.FramesWithFaces != 60 || fs.FramesWithoutFaces != 40 {
		t.Fatalf("face stats: %+v", fs)
	}
	if fs.MaxFacesInFrame != 1 || fs.AvgFacesPerFrame != 0.6 {
		t.Fatalf("face stats: %+v", fs)
	}
	if got.EmotionsDistribution["happy"] != 60 || len(got.EmotionsDistribution) != 1 {
		t.Fatalf("emotions: %+v", got.EmotionsDistribution)
	}
	if len(got.ActivitiesTimeline) != 1 || got.ActivitiesByLabel["walking"] != 1 {
		t.Fatalf("activities: %+v", got.ActivitiesTimeline)
	}
	if got.AnomaliesBySeverity[model.SeverityMedium] != 1 || got.AnomaliesBySeverity[model.SeverityHigh] != 0 {
		t.Fatalf("severities: %+v", got.AnomaliesBySeverity)
	}
}

func TestEmptyRun(t *testing.T) {
	got := NewSummarizer("run-empty").Finalize()
	if got.FramesTotal != 0 || got.AnomaliesTotal != 0 {
		t.Fatalf("totals: %+v", got)
	}
	if got.FacesStats.AvgFacesPerFrame != 0 {
		t.Fatalf("avg on empty run: %v", got.FacesStats.AvgFacesPerFrame)
	}
	// Severity keys are always present so consumers can index directly.
	if len(got.AnomaliesBySeverity) != 3 {
		t.Fatalf("severity keys: %+v", got.AnomaliesBySeverity)
	}
}

func TestUnknownEmotionFallback(t *testing.T) {
	s := NewSummarizer("run-1")
	if err := s.Update(faceObs(0, 2, "")); err != nil {
		t.Fatalf("update: %v", err)
	}
	got := s.Finalize()
	if got.EmotionsDistribution[model.EmotionUnknown] != 2 {
		t.Fatalf("emotions: %+v", got.EmotionsDistribution)
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	s := NewSummarizer("run-1")
	for i := 0; i < 10; i++ {
		if err := s.Update(faceObs(i, 1, "neutral")); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	first, _ := json.Marshal(s.Finalize())
	second, _ := json.Marshal(s.Finalize())
	if string(first) != string(second) {
		t.Fatalf("finalize not idempotent:\n%s\n%s", first, second)
	}
	if err := s.Update(faceObs(10, 1, "neutral")); !errors.Is(err, ErrFinalized) {
		t.Fatalf("update after finalize: %v", err)
	}
	if err := s.RecordActivity(model.ActivityEvent{Label: "walking", EndFrame: 5}); !errors.Is(err, ErrFinalized) {
		t.Fatalf("record after finalize: %v", err)
	}
}

func TestSnapshotDoesNotFinalize(t *testing.T) {
	s := NewSummarizer("run-1")
	if err := s.Update(faceObs(0, 1, "happy")); err != nil {
		t.Fatalf("update: %v", err)
	}
	snap := s.Snapshot()
	if snap.FramesTotal != 1 {
		t.Fatalf("snapshot frames: %d", snap.FramesTotal)
	}
	if err := s.Update(faceObs(1, 1, "happy")); err != nil {
		t.Fatalf("update after snapshot: %v", err)
	}
	if snap.FramesTotal != 1 {
		t.Fatalf("snapshot mutated by later update: %d", snap.FramesTotal)
	}
	if s.Snapshot().FramesTotal != 2 {
		t.Fatalf("second snapshot stale")
	}
}

func TestFrameOrderEnforced(t *testing.T) {
	s := NewSummarizer("run-1")
	if err := s.Update(faceObs(5, 0, "")); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.Update(faceObs(5, 0, "")); !errors.Is(err, ErrFrameOrder) {
		t.Fatalf("duplicate frame: %v", err)
	}
	if err := s.Update(faceObs(2, 0, "")); !errors.Is(err, ErrFrameOrder) {
		t.Fatalf("regressing frame: %v", err)
	}
	if s.FramesTotal() != 1 {
		t.Fatalf("rejected frames counted: %d", s.FramesTotal())
	}
}

func TestEventBoundsEnforced(t *testing.T) {
	s := NewSummarizer("run-1")
	if err := s.RecordAnomaly(model.AnomalyEvent{MetricName: "m", FrameIndex: 0}); !errors.Is(err, ErrEventBounds) {
		t.Fatalf("anomaly before any frame: %v", err)
	}
	if err := s.Update(faceObs(10, 0, "")); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.RecordAnomaly(model.AnomalyEvent{MetricName: "m", FrameIndex: 11}); !errors.Is(err, ErrEventBounds) {
		t.Fatalf("anomaly beyond last frame: %v", err)
	}
	if err := s.RecordActivity(model.ActivityEvent{Label: "walking", StartFrame: 5, EndFrame: 3}); !errors.Is(err, ErrEventBounds) {
		t.Fatalf("inverted interval: %v", err)
	}
	if err := s.RecordActivity(model.ActivityEvent{Label: "walking", StartFrame: 0, EndFrame: 11}); !errors.Is(err, ErrEventBounds) {
		t.Fatalf("interval beyond last frame: %v", err)
	}
	if err := s.RecordActivity(model.ActivityEvent{Label: "walking", StartFrame: 0, EndFrame: 10}); err != nil {
		t.Fatalf("valid interval rejected: %v", err)
	}
}
