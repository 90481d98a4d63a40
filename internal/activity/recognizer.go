package activity

import (
	"errors"
	"fmt"

	"framewatch/internal/model"
	"framewatch/internal/window"
)

const (
	LabelWalking   = "walking"
	LabelSitting   = "sitting"
	LabelGesturing = "gesturing"
)

var ErrOutOfOrder = errors.New("activity: frame index not increasing")

type Config struct {
	// WindowSize is the number of pose samples evaluated together.
	WindowSize int
	// Stride is the minimum number of frames between evaluations.
	Stride int
	// Thresholds maps a label to the minimum score that fires its rule.
	Thresholds map[string]float64
}

func DefaultConfig() Config {
	return Config{
		WindowSize: 30,
		Stride:     15,
		Thresholds: map[string]float64{
			LabelWalking:   0.3,
			LabelSitting:   0.3,
			LabelGesturing: 0.3,
		},
	}
}

func (c Config) validate() error {
	if c.WindowSize <= 0 {
		return fmt.Errorf("activity: window_size must be > 0, got %d", c.WindowSize)
	}
	if c.Stride <= 0 {
		return fmt.Errorf("activity: stride must be > 0, got %d", c.Stride)
	}
	for label, th := range c.Thresholds {
		if th < 0 || th > 1 {
			return fmt.Errorf("activity: threshold for %q must be in [0,1], got %v", label, th)
		}
	}
	return nil
}

type sample struct {
	frameIndex int
	keypoints  map[string]model.Point
}

// Recognizer folds a stream of pose signals into labeled activity
// intervals. It is single-label: each window evaluation picks the
// dominant activity, so at most one event is open at a time and a
// change of dominant label closes the previous interval.
//
// Not safe for concurrent use; the caller serializes observations in
// frame order.
type Recognizer struct {
	cfg      Config
	win      *window.Ring[sample]
	lastEval int
	lastSeen int
	seenAny  bool
	open     *model.ActivityEvent
}

func NewRecognizer(cfg Config) (*Recognizer, error) {
	if cfg.Thresholds == nil {
		cfg.Thresholds = DefaultConfig().Thresholds
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Recognizer{
		cfg:      cfg,
		win:      window.NewRing[sample](cfg.WindowSize),
		lastEval: -cfg.Stride,
	}, nil
}

// Observe appends one pose sample and returns any events closed by this
// observation. A nil or malformed pose is recorded as a placeholder: it
// occupies the window but contributes no motion evidence, so a single
// dropped frame does not flush accumulated state.
func (r *Recognizer) Observe(frameIndex int, pose *model.PoseSignal) ([]model.ActivityEvent, error) {
	if r.seenAny && frameIndex <= r.lastSeen {
		return nil, fmt.Errorf("%w: frame %d after %d", ErrOutOfOrder, frameIndex, r.lastSeen)
	}
	r.lastSeen = frameIndex
	r.seenAny = true

	var kp map[string]model.Point
	if pose != nil && len(pose.Keypoints) > 0 {
		kp = pose.Keypoints
	}
	r.win.Append(sample{frameIndex: frameIndex, keypoints: kp})

	if !r.win.Full() {
		return nil, nil
	}
	if frameIndex-r.lastEval < r.cfg.Stride {
		return nil, nil
	}
	r.lastEval = frameIndex
	return r.evaluate(), nil
}

// Flush closes any still-open event at the last observed frame and
// returns it. Called once at end-of-stream.
func (r *Recognizer) Flush() []model.ActivityEvent {
	if r.open == nil {
		return nil
	}
	ev := *r.open
	if r.seenAny && r.lastSeen > ev.EndFrame {
		ev.EndFrame = r.lastSeen
	}
	r.open = nil
	return []model.ActivityEvent{ev}
}

// Open reports the currently open interval, if any.
func (r *Recognizer) Open() (model.ActivityEvent, bool) {
	if r.open == nil {
		return model.ActivityEvent{}, false
	}
	return *r.open, true
}

func (r *Recognizer) evaluate() []model.ActivityEvent {
	valid := make([]map[string]model.Point, 0, r.win.Len())
	r.win.Do(func(s sample) {
		if s.keypoints != nil {
			valid = append(valid, s.keypoints)
		}
	})
	// Too many dropped frames in the window: no evidence either way.
	if len(valid) < r.cfg.WindowSize/2 {
		return r.closeOpen()
	}

	label, score := dominantActivity(valid)
	threshold, ok := r.cfg.Thresholds[label]
	if !ok {
		threshold = 1.0
	}
	if score < threshold {
		return r.closeOpen()
	}

	startFrame := r.win.At(0).frameIndex
	endFrame := r.win.At(r.win.Len() - 1).frameIndex

	if r.open != nil && r.open.Label == label {
		r.open.EndFrame = endFrame
		if score > r.open.Score {
			r.open.Score = score
		}
		return nil
	}

	closed := r.closeOpen()
	r.open = &model.ActivityEvent{
		Label:      label,
		StartFrame: startFrame,
		EndFrame:   endFrame,
		Score:      score,
	}
	return closed
}

func (r *Recognizer) closeOpen() []model.ActivityEvent {
	if r.open == nil {
		return nil
	}
	ev := *r.open
	r.open = nil
	return []model.ActivityEvent{ev}
}

func dominantActivity(valid []map[string]model.Point) (string, float64) {
	label := LabelWalking
	score := walkingScore(valid)
	if s := sittingScore(valid); s > score {
		label, score = LabelSitting, s
	}
	if s := gesturingScore(valid); s > score {
		label, score = LabelGesturing, s
	}
	return label, score
}
