package anomaly

import (
	"fmt"
	"math"
	"sort"

	"framewatch/internal/model"
	"framewatch/internal/window"
)

type Config struct {
	// WindowSize bounds the per-metric rolling baseline.
	WindowSize int
	// MinSamples is the cold-start guard: no evaluation happens until a
	// metric's window holds at least this many samples.
	MinSamples int
	// Severity bands over |z|, strictly ascending. LowZ is the trigger
	// threshold; below it no event is emitted.
	LowZ    float64
	MediumZ float64
	HighZ   float64
}

func DefaultConfig() Config {
	return Config{
		WindowSize: 50,
		MinSamples: 10,
		LowZ:       2.5,
		MediumZ:    3.0,
		HighZ:      4.0,
	}
}

func (c Config) validate() error {
	if c.WindowSize < 2 {
		return fmt.Errorf("anomaly: window_size must be >= 2, got %d", c.WindowSize)
	}
	if c.MinSamples < 2 || c.MinSamples > c.WindowSize {
		return fmt.Errorf("anomaly: min_samples must be in [2, window_size], got %d", c.MinSamples)
	}
	if c.LowZ <= 0 || c.MediumZ <= c.LowZ || c.HighZ <= c.MediumZ {
		return fmt.Errorf("anomaly: severity bands must be strictly ascending, got %v/%v/%v",
			c.LowZ, c.MediumZ, c.HighZ)
	}
	return nil
}

// Baseline is the published rolling state of one metric stream.
type Baseline struct {
	MetricName string  `json:"metric_name"`
	Samples    int     `json:"samples"`
	Mean       float64 `json:"mean"`
	Stddev     float64 `json:"stddev"`
	LastValue  float64 `json:"last_value"`
	LastZ      float64 `json:"last_z"`
}

type metricState struct {
	win   *window.Ring[float64]
	sum   float64
	sumSq float64
	last  float64
	lastZ float64
}

func (m *metricState) push(v float64) {
	if evicted, wasFull := m.win.Append(v); wasFull {
		m.sum -= evicted
		m.sumSq -= evicted * evicted
	}
	m.sum += v
	m.sumSq += v * v
}

// stats returns the running mean and sample standard deviation. The
// windowed sums keep each observation O(1); the variance is clamped at
// zero against floating-point cancellation.
func (m *metricState) stats() (mean, stddev float64) {
	n := m.win.Len()
	if n == 0 {
		return 0, 0
	}
	mean = m.sum / float64(n)
	if n < 2 {
		return mean, 0
	}
	variance := (m.sumSq - m.sum*m.sum/float64(n)) / float64(n-1)
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

// Detector flags statistically atypical scalar metrics against a
// per-metric rolling baseline. Each metric stream is independent.
//
// Not safe for concurrent use; the caller serializes observations in
// frame order.
type Detector struct {
	cfg     Config
	metrics map[string]*metricState
}

func NewDetector(cfg Config) (*Detector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg, metrics: make(map[string]*metricState)}, nil
}

// Observe appends one value to the metric's window and returns an event
// when the value deviates from the baseline. The baseline excludes the
// incoming value: it is evaluated against the window, then appended.
// Zero-variance (flat) baselines never trigger.
func (d *Detector) Observe(name string, value float64, frameIndex int) *model.AnomalyEvent {
	st, ok := d.metrics[name]
	if !ok {
		st = &metricState{win: window.NewRing[float64](d.cfg.WindowSize)}
		d.metrics[name] = st
	}

	var ev *model.AnomalyEvent
	if st.win.Len() >= d.cfg.MinSamples {
		mean, stddev := st.stats()
		if stddev > 0 {
			z := (value - mean) / stddev
			st.lastZ = z
			if math.Abs(z) >= d.cfg.LowZ {
				ev = &model.AnomalyEvent{
					MetricName:  name,
					FrameIndex:  frameIndex,
					Value:       value,
					ZScore:      z,
					Severity:    d.severityFor(math.Abs(z)),
					ExpectedMin: mean - 2*stddev,
					ExpectedMax: mean + 2*stddev,
				}
			}
		} else {
			st.lastZ = 0
		}
	}
	st.push(value)
	st.last = value
	return ev
}

// ObserveFrame evaluates all of a frame's metrics in metric-name order,
// so events within one frame are emitted deterministically.
func (d *Detector) ObserveFrame(frameIndex int, values map[string]float64) []model.AnomalyEvent {
	if len(values) == 0 {
		return nil
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	var out []model.AnomalyEvent
	for _, name := range names {
		if ev := d.Observe(name, values[name], frameIndex); ev != nil {
			out = append(out, *ev)
		}
	}
	return out
}

// Baselines returns the current rolling state of every metric, sorted
// by name.
func (d *Detector) Baselines() []Baseline {
	out := make([]Baseline, 0, len(d.metrics))
	for name, st := range d.metrics {
		mean, stddev := st.stats()
		out = append(out, Baseline{
			MetricName: name,
			Samples:    st.win.Len(),
			Mean:       mean,
			Stddev:     stddev,
			LastValue:  st.last,
			LastZ:      st.lastZ,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MetricName < out[j].MetricName })
	return out
}

func (d *Detector) severityFor(absZ float64) model.Severity {
	switch {
	case absZ >= d.cfg.HighZ:
		return model.SeverityHigh
	case absZ >= d.cfg.MediumZ:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}
