package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"framewatch/internal/activity"
	"framewatch/internal/anomaly"
	"framewatch/internal/config"
	"framewatch/internal/events"
	"framewatch/internal/metrics"
	"framewatch/internal/model"
	"framewatch/internal/stats"
	"framewatch/internal/storage"
	"framewatch/internal/summary"
)

// Derived per-frame scalar metrics injected when the observation does
// not already carry them.
const (
	MetricFacesCount      = "faces_count"
	MetricAvgEmotionScore = "avg_emotion_score"
)

const anomalyLogInterval = 2 * time.Second

// Pipeline is the ordered merge point of the analysis core: every frame
// observation is passed to the summarizer, activity recognizer and
// anomaly detector in frame order, and emitted events are recorded,
// published and persisted as they arrive. The internal mutex serializes
// callers; the core components themselves are single-threaded.
type Pipeline struct {
	logger         *slog.Logger
	cfg            *config.Config
	store          storage.Store
	baselines      *stats.Store
	anomalyEvents  *events.Store[model.AnomalyEvent]
	activityEvents *events.Store[model.ActivityEvent]

	mu         sync.Mutex
	runID      string
	recognizer *activity.Recognizer
	detector   *anomaly.Detector
	summarizer *summary.Summarizer
	throttle   *LogThrottle
	finished   bool
}

func New(cfg *config.Config, logger *slog.Logger, baselines *stats.Store,
	anomalyEvents *events.Store[model.AnomalyEvent],
	activityEvents *events.Store[model.ActivityEvent],
	store storage.Store) (*Pipeline, error) {

	p := &Pipeline{
		logger:         logger,
		cfg:            cfg,
		store:          store,
		baselines:      baselines,
		anomalyEvents:  anomalyEvents,
		activityEvents: activityEvents,
	}
	if err := p.rebuild(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) rebuild() error {
	recognizer, err := activity.NewRecognizer(activity.Config{
		WindowSize: p.cfg.Activity.WindowSize,
		Stride:     p.cfg.Activity.Stride,
		Thresholds: p.cfg.Activity.Thresholds,
	})
	if err != nil {
		return err
	}
	detector, err := anomaly.NewDetector(anomaly.Config{
		WindowSize: p.cfg.Anomaly.WindowSize,
		MinSamples: p.cfg.Anomaly.MinSamples,
		LowZ:       p.cfg.Anomaly.LowZ,
		MediumZ:    p.cfg.Anomaly.MediumZ,
		HighZ:      p.cfg.Anomaly.HighZ,
	})
	if err != nil {
		return err
	}
	p.runID = uuid.NewString()
	p.recognizer = recognizer
	p.detector = detector
	p.summarizer = summary.NewSummarizer(p.runID)
	p.throttle = NewLogThrottle()
	p.finished = false
	return nil
}

func (p *Pipeline) RunID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runID
}

// Start consumes observations from in until ctx is cancelled or the
// channel is closed, then finishes the run.
func (p *Pipeline) Start(ctx context.Context, in <-chan model.FrameObservation) {
	go func() {
		for {
			select {
			case obs, ok := <-in:
				if !ok {
					if _, err := p.Finish(context.Background()); err != nil && p.logger != nil {
						p.logger.Error("finish failed", "err", err)
					}
					return
				}
				if _, _, err := p.ProcessObservation(obs); err != nil {
					if p.logger != nil {
						p.logger.Warn("observation rejected", "frame", obs.FrameIndex, "err", err)
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// ProcessObservation drives all three core components for one frame and
// returns the events it closed or emitted.
func (p *Pipeline) ProcessObservation(obs model.FrameObservation) ([]model.ActivityEvent, []model.AnomalyEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return nil, nil, summary.ErrFinalized
	}

	if err := p.summarizer.Update(obs); err != nil {
		return nil, nil, err
	}
	metrics.FramesProcessed.Inc()
	metrics.FaceDetections.Add(float64(len(obs.Faces)))

	acts, err := p.recognizer.Observe(obs.FrameIndex, obs.Pose)
	if err != nil {
		// Summarizer accepted the frame, so this is an integration bug.
		return nil, nil, err
	}
	anoms := p.detector.ObserveFrame(obs.FrameIndex, p.scalarMetrics(obs))
	if p.baselines != nil {
		p.baselines.Update(p.detector.Baselines())
	}

	for _, ev := range acts {
		p.recordActivity(ev)
	}
	for _, ev := range anoms {
		if err := p.summarizer.RecordAnomaly(ev); err != nil {
			return acts, anoms, err
		}
		p.anomalyEvents.Add(ev)
		metrics.AnomaliesDetected.WithLabelValues(ev.MetricName, string(ev.Severity)).Inc()
		metrics.CurrentZScore.WithLabelValues(ev.MetricName).Set(ev.ZScore)
		if p.logger != nil && p.throttle.Allow("anomaly|"+ev.MetricName, anomalyLogInterval) {
			p.logger.Warn("anomaly detected",
				"metric", ev.MetricName,
				"frame", ev.FrameIndex,
				"value", ev.Value,
				"z_score", ev.ZScore,
				"severity", ev.Severity,
			)
		}
		if p.store != nil {
			_ = p.store.SaveAnomaly(context.Background(), p.runID, ev)
		}
	}
	return acts, anoms, nil
}

// Finish flushes the recognizer, finalizes the summary and persists it.
// Idempotent: a second call returns the same summary.
func (p *Pipeline) Finish(ctx context.Context) (*model.Summary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return p.summarizer.Finalize(), nil
	}
	for _, ev := range p.recognizer.Flush() {
		p.recordActivity(ev)
	}
	s := p.summarizer.Finalize()
	p.finished = true
	if p.store != nil {
		if err := p.store.SaveSummary(ctx, s); err != nil && p.logger != nil {
			p.logger.Error("summary persist failed", "err", err)
		}
	}
	if p.logger != nil {
		p.logger.Info("run finished",
			"run_id", s.RunID,
			"frames_total", s.FramesTotal,
			"anomalies_total", s.AnomaliesTotal,
			"activities", len(s.ActivitiesTimeline),
		)
	}
	return s, nil
}

// Snapshot returns a consistent partial summary of the run so far.
func (p *Pipeline) Snapshot() *model.Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.summarizer.Snapshot()
}

// Reset discards all rolling state and starts a fresh run.
func (p *Pipeline) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.rebuild(); err != nil {
		return err
	}
	if p.baselines != nil {
		p.baselines.Clear()
	}
	p.anomalyEvents.Clear()
	p.activityEvents.Clear()
	return nil
}

func (p *Pipeline) recordActivity(ev model.ActivityEvent) {
	if err := p.summarizer.RecordActivity(ev); err != nil {
		if p.logger != nil {
			p.logger.Error("activity record failed", "label", ev.Label, "err", err)
		}
		return
	}
	p.activityEvents.Add(ev)
	metrics.ActivityEvents.WithLabelValues(ev.Label).Inc()
	if p.logger != nil {
		p.logger.Info("activity closed",
			"label", ev.Label,
			"start_frame", ev.StartFrame,
			"end_frame", ev.EndFrame,
			"score", ev.Score,
		)
	}
	if p.store != nil {
		_ = p.store.SaveActivity(context.Background(), p.runID, ev)
	}
}

// scalarMetrics merges the observation's own metrics with the derived
// per-frame ones the detectors do not supply themselves.
func (p *Pipeline) scalarMetrics(obs model.FrameObservation) map[string]float64 {
	out := make(map[string]float64, len(obs.ScalarMetrics)+2)
	for name, v := range obs.ScalarMetrics {
		out[name] = v
	}
	if _, ok := out[MetricFacesCount]; !ok {
		out[MetricFacesCount] = float64(len(obs.Faces))
	}
	if _, ok := out[MetricAvgEmotionScore]; !ok && len(obs.Faces) > 0 {
		var sum float64
		for _, f := range obs.Faces {
			sum += f.EmotionConfidence
		}
		out[MetricAvgEmotionScore] = sum / float64(len(obs.Faces))
	}
	return out
}
