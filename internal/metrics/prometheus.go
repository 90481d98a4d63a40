package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "framewatch_frames_processed_total",
			Help: "Total number of frame observations processed",
		},
	)

	FaceDetections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "framewatch_face_detections_total",
			Help: "Total number of face detections observed",
		},
	)

	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framewatch_anomalies_detected_total",
			Help: "Total number of anomaly events emitted",
		},
		[]string{"metric", "severity"},
	)

	ActivityEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framewatch_activity_events_total",
			Help: "Total number of closed activity events",
		},
		[]string{"label"},
	)

	CurrentZScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "framewatch_current_zscore",
			Help: "Most recent z-score per scalar metric",
		},
		[]string{"metric"},
	)

	ObservationsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framewatch_observations_ingested_total",
			Help: "Frame observations accepted per ingest source",
		},
		[]string{"source"},
	)

	ObservationsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framewatch_observations_rejected_total",
			Help: "Frame observations dropped as unparseable per ingest source",
		},
		[]string{"source"},
	)
)
