package model

import "time"

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// EmotionUnknown is the fallback label substituted when emotion
// classification fails for a detected face. It is a valid observation,
// not an anomaly signal.
const EmotionUnknown = "unknown"

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type FaceDetection struct {
	Box               BoundingBox `json:"box"`
	Confidence        float64     `json:"confidence"`
	Emotion           string      `json:"emotion"`
	EmotionConfidence float64     `json:"emotion_confidence"`
}

// PoseSignal carries the keypoints extracted by the external pose
// detector for one frame, keyed by landmark name ("left_ankle", ...).
type PoseSignal struct {
	Keypoints map[string]Point `json:"keypoints"`
}

// FrameObservation is the per-frame input to the analysis engine.
// It is produced once per processed frame by the surrounding pipeline
// and never mutated afterwards.
type FrameObservation struct {
	FrameIndex    int                `json:"frame_index"`
	Timestamp     float64            `json:"timestamp"`
	Faces         []FaceDetection    `json:"faces,omitempty"`
	Pose          *PoseSignal        `json:"pose,omitempty"`
	ScalarMetrics map[string]float64 `json:"scalar_metrics,omitempty"`
}

// ActivityEvent is a labeled interval during which an activity rule
// held. Immutable once closed by the recognizer.
type ActivityEvent struct {
	Label      string  `json:"label"`
	StartFrame int     `json:"start_frame"`
	EndFrame   int     `json:"end_frame"`
	Score      float64 `json:"score"`
}

func (e ActivityEvent) Duration() int {
	return e.EndFrame - e.StartFrame + 1
}

type AnomalyEvent struct {
	MetricName  string   `json:"metric_name"`
	FrameIndex  int      `json:"frame_index"`
	Value       float64  `json:"value"`
	ZScore      float64  `json:"z_score"`
	Severity    Severity `json:"severity"`
	ExpectedMin float64  `json:"expected_min"`
	ExpectedMax float64  `json:"expected_max"`
}

type FaceStats struct {
	TotalDetections    int     `json:"total_detections"`
	AvgFacesPerFrame   float64 `json:"avg_faces_per_frame"`
	MaxFacesInFrame    int     `json:"max_faces_in_frame"`
	FramesWithFaces    int     `json:"frames_with_faces"`
	FramesWithoutFaces int     `json:"frames_without_faces"`
}

// Summary is the aggregated result of one processing run.
// FramesTotal and AnomaliesTotal are contractual: they must always be
// present regardless of what the run observed.
type Summary struct {
	RunID                string           `json:"run_id"`
	FramesTotal          int              `json:"frames_total"`
	AnomaliesTotal       int              `json:"anomalies_total"`
	FacesStats           FaceStats        `json:"faces_stats"`
	EmotionsDistribution map[string]int   `json:"emotions_distribution"`
	ActivitiesTimeline   []ActivityEvent  `json:"activities_timeline"`
	ActivitiesByLabel    map[string]int   `json:"activities_by_label"`
	AnomaliesBySeverity  map[Severity]int `json:"anomalies_by_severity"`
}

// Report wraps a finalized summary for persisted output.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Summary     *Summary  `json:"summary"`
}
