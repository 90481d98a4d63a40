package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"framewatch/internal/model"
)

var (
	ErrEmptyPayload  = errors.New("empty payload")
	ErrMissingFrame  = errors.New("missing frame_index")
	ErrNegativeFrame = errors.New("negative frame_index")
)

type wireFace struct {
	Box               *model.BoundingBox `json:"box"`
	Confidence        float64            `json:"confidence"`
	Emotion           string             `json:"emotion"`
	EmotionConfidence float64            `json:"emotion_confidence"`
}

type wireObservation struct {
	FrameIndex *int                   `json:"frame_index"`
	Timestamp  float64                `json:"timestamp"`
	Faces      []wireFace             `json:"faces"`
	Pose       map[string]model.Point `json:"pose"`
	Metrics    map[string]float64     `json:"metrics"`
}

// ParseObservation decodes one JSON frame observation and sanitizes it:
// confidences are clamped to [0, 1], an empty emotion becomes the
// unknown label, and non-finite scalar metrics are dropped.
func ParseObservation(data []byte) (*model.FrameObservation, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrEmptyPayload
	}
	var wire wireObservation
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode observation: %w", err)
	}
	return fromWire(wire)
}

func fromWire(wire wireObservation) (*model.FrameObservation, error) {
	if wire.FrameIndex == nil {
		return nil, ErrMissingFrame
	}
	if *wire.FrameIndex < 0 {
		return nil, ErrNegativeFrame
	}
	obs := &model.FrameObservation{
		FrameIndex: *wire.FrameIndex,
		Timestamp:  wire.Timestamp,
	}
	for _, f := range wire.Faces {
		face := model.FaceDetection{
			Confidence:        clamp01(f.Confidence),
			Emotion:           f.Emotion,
			EmotionConfidence: clamp01(f.EmotionConfidence),
		}
		if f.Box != nil {
			face.Box = *f.Box
		}
		if strings.TrimSpace(face.Emotion) == "" {
			face.Emotion = model.EmotionUnknown
		}
		obs.Faces = append(obs.Faces, face)
	}
	if len(wire.Pose) > 0 {
		obs.Pose = &model.PoseSignal{Keypoints: wire.Pose}
	}
	for name, v := range wire.Metrics {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if obs.ScalarMetrics == nil {
			obs.ScalarMetrics = make(map[string]float64, len(wire.Metrics))
		}
		obs.ScalarMetrics[name] = v
	}
	return obs, nil
}

// ParseObservationMap converts an already-decoded JSON object, used by
// the REST ingest path for array payloads.
func ParseObservationMap(obj map[string]interface{}) (*model.FrameObservation, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	return ParseObservation(data)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
