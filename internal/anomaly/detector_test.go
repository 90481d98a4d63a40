package anomaly

import (
	"math"
	"testing"

	"framewatch/internal/model"
)

// seedAlternating feeds n alternating samples of 10 and 10.5, giving a
// baseline with mean 10.25 and a small positive stddev.
func seedAlternating(t *testing.T, d *Detector, name string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		v := 10.0
		if i%2 == 1 {
			v = 10.5
		}
		if ev := d.Observe(name, v, i); ev != nil {
			t.Fatalf("unexpected anomaly while seeding at %d: %+v", i, ev)
		}
	}
}

func TestDetectSpike(t *testing.T) {
	d, err := NewDetector(DefaultConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	seedAlternating(t, d, "faces_count", 12)

	ev := d.Observe("faces_count", 20, 12)
	if ev == nil {
		t.Fatalf("expected anomaly on spike")
	}
	if ev.Severity != model.SeverityHigh {
		t.Fatalf("severity: %s (z=%v)", ev.Severity, ev.ZScore)
	}
	if ev.MetricName != "faces_count" || ev.FrameIndex != 12 || ev.Value != 20 {
		t.Fatalf("event fields: %+v", ev)
	}
	if ev.ZScore <= 0 {
		t.Fatalf("positive deviation should give positive z, got %v", ev.ZScore)
	}
	if ev.ExpectedMin >= ev.ExpectedMax || ev.Value <= ev.ExpectedMax {
		t.Fatalf("expected range wrong: [%v, %v] for value %v", ev.ExpectedMin, ev.ExpectedMax, ev.Value)
	}
}

func TestNegativeDeviation(t *testing.T) {
	d, err := NewDetector(DefaultConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	seedAlternating(t, d, "m", 12)
	ev := d.Observe("m", 1, 12)
	if ev == nil {
		t.Fatalf("expected anomaly on drop")
	}
	if ev.ZScore >= 0 {
		t.Fatalf("drop should give negative z, got %v", ev.ZScore)
	}
	if ev.Severity != model.SeverityHigh {
		t.Fatalf("severity by magnitude: %s", ev.Severity)
	}
}

func TestSeverityBands(t *testing.T) {
	// Baseline mean 10.25, sample stddev ~0.2611 after 12 samples.
	cases := []struct {
		sigma float64
		want  model.Severity
	}{
		{2.7, model.SeverityLow},
		{3.5, model.SeverityMedium},
		{5.0, model.SeverityHigh},
	}
	for _, tc := range cases {
		d, err := NewDetector(DefaultConfig())
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		seedAlternating(t, d, "m", 12)
		stddev := 0.26112
		ev := d.Observe("m", 10.25+tc.sigma*stddev, 12)
		if ev == nil {
			t.Fatalf("no event at %v sigma", tc.sigma)
		}
		if ev.Severity != tc.want {
			t.Fatalf("%v sigma: got %s want %s (z=%v)", tc.sigma, ev.Severity, tc.want, ev.ZScore)
		}
	}
}

func TestBelowTriggerNoEvent(t *testing.T) {
	d, err := NewDetector(DefaultConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	seedAlternating(t, d, "m", 12)
	if ev := d.Observe("m", 10.25+2.0*0.26112, 12); ev != nil {
		t.Fatalf("2 sigma should not trigger: %+v", ev)
	}
}

func TestColdStart(t *testing.T) {
	d, err := NewDetector(DefaultConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	// Fewer than min_samples in the window: even a huge jump stays quiet.
	for i := 0; i < 9; i++ {
		v := 10.0
		if i%2 == 1 {
			v = 10.5
		}
		d.Observe("m", v, i)
	}
	if ev := d.Observe("m", 1000, 9); ev != nil {
		t.Fatalf("cold start should not trigger: %+v", ev)
	}
}

func TestFlatBaselineNeverTriggers(t *testing.T) {
	d, err := NewDetector(DefaultConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for i := 0; i < 30; i++ {
		if ev := d.Observe("m", 5.0, i); ev != nil {
			t.Fatalf("flat stream triggered at %d: %+v", i, ev)
		}
	}
	// The outlier itself is evaluated against a zero-variance window.
	if ev := d.Observe("m", 500, 30); ev != nil {
		t.Fatalf("zero variance must not trigger: %+v", ev)
	}
}

func TestIndependentMetricStreams(t *testing.T) {
	d, err := NewDetector(DefaultConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	seedAlternating(t, d, "a", 12)
	for i := 0; i < 12; i++ {
		d.Observe("b", 100, i)
	}
	if ev := d.Observe("b", 10.25, 12); ev != nil {
		t.Fatalf("flat stream b must not trigger: %+v", ev)
	}
	if ev := d.Observe("a", 20, 13); ev == nil {
		t.Fatalf("stream a baseline should be unaffected by b")
	}
}

func TestObserveFrameOrder(t *testing.T) {
	d, err := NewDetector(DefaultConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for i := 0; i < 12; i++ {
		va, vb := 10.0, 10.0
		if i%2 == 1 {
			va, vb = 10.5, 10.5
		}
		d.ObserveFrame(i, map[string]float64{"b_metric": vb, "a_metric": va})
	}
	events := d.ObserveFrame(12, map[string]float64{"b_metric": 20, "a_metric": 20})
	if len(events) != 2 {
		t.Fatalf("expected both metrics to trigger, got %d", len(events))
	}
	if events[0].MetricName != "a_metric" || events[1].MetricName != "b_metric" {
		t.Fatalf("events not in metric-name order: %s, %s", events[0].MetricName, events[1].MetricName)
	}
}

func TestWindowSlides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowSize = 10
	cfg.MinSamples = 5
	d, err := NewDetector(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	// Old regime far from the new one; after the window slides past it,
	// the new regime becomes the baseline and stops triggering.
	frame := 0
	for ; frame < 10; frame++ {
		v := 10.0
		if frame%2 == 1 {
			v = 10.5
		}
		d.Observe("m", v, frame)
	}
	triggered := false
	for i := 0; i < 30; i++ {
		v := 100.0
		if i%2 == 1 {
			v = 100.5
		}
		if ev := d.Observe("m", v, frame); ev != nil {
			triggered = true
		}
		frame++
	}
	if !triggered {
		t.Fatalf("regime change should trigger at least once")
	}
	if ev := d.Observe("m", 100, frame); ev != nil {
		t.Fatalf("new regime should be the baseline by now: %+v", ev)
	}
}

func TestBaselinesSorted(t *testing.T) {
	d, err := NewDetector(DefaultConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	d.Observe("zeta", 1, 0)
	d.Observe("alpha", 2, 0)
	d.Observe("mid", 3, 0)
	baselines := d.Baselines()
	if len(baselines) != 3 {
		t.Fatalf("baselines: %d", len(baselines))
	}
	if baselines[0].MetricName != "alpha" || baselines[2].MetricName != "zeta" {
		t.Fatalf("not sorted: %+v", baselines)
	}
	if baselines[0].Samples != 1 || baselines[0].LastValue != 2 {
		t.Fatalf("baseline fields: %+v", baselines[0])
	}
}

func TestBaselineStats(t *testing.T) {
	d, err := NewDetector(DefaultConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	seedAlternating(t, d, "m", 12)
	baselines := d.Baselines()
	if len(baselines) != 1 {
		t.Fatalf("baselines: %d", len(baselines))
	}
	b := baselines[0]
	if math.Abs(b.Mean-10.25) > 1e-9 {
		t.Fatalf("mean: %v", b.Mean)
	}
	if math.Abs(b.Stddev-0.26112) > 1e-3 {
		t.Fatalf("stddev: %v", b.Stddev)
	}
}

func TestConfigValidation(t *testing.T) {
	bad := []Config{
		{WindowSize: 1, MinSamples: 1, LowZ: 2.5, MediumZ: 3, HighZ: 4},
		{WindowSize: 50, MinSamples: 60, LowZ: 2.5, MediumZ: 3, HighZ: 4},
		{WindowSize: 50, MinSamples: 10, LowZ: 3, MediumZ: 2.5, HighZ: 4},
		{WindowSize: 50, MinSamples: 10, LowZ: 0, MediumZ: 3, HighZ: 4},
	}
	for i, cfg := range bad {
		if _, err := NewDetector(cfg); err == nil {
			t.Fatalf("case %d accepted", i)
		}
	}
	if _, err := NewDetector(DefaultConfig()); err != nil {
		t.Fatalf("default rejected: %v", err)
	}
}
