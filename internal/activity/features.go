package activity

import (
	"math"

	"framewatch/internal/model"
)

// Keypoint names follow the pose detector's landmark vocabulary.
const (
	kpLeftShoulder = "left_shoulder"
	kpLeftWrist    = "left_wrist"
	kpRightWrist   = "right_wrist"
	kpLeftHip      = "left_hip"
	kpLeftKnee     = "left_knee"
	kpLeftAnkle    = "left_ankle"
	kpRightAnkle   = "right_ankle"
)

// walkingScore rates cyclic leg movement: vertical ankle variance,
// boosted when the legs move in opposition.
func walkingScore(frames []map[string]model.Point) float64 {
	if len(frames) < 5 {
		return 0
	}
	var leftY, rightY []float64
	for _, kp := range frames {
		if p, ok := kp[kpLeftAnkle]; ok {
			leftY = append(leftY, p.Y)
		}
		if p, ok := kp[kpRightAnkle]; ok {
			rightY = append(rightY, p.Y)
		}
	}
	if len(leftY) == 0 || len(rightY) == 0 {
		return 0
	}
	total := (variance(leftY) + variance(rightY)) / 2
	// Typical walking ankle variance sits around 0.001-0.01 in
	// normalized image coordinates.
	score := math.Min(total*100, 1.0)
	if len(leftY) > 10 && len(rightY) > 10 {
		if correlation(leftY[:10], rightY[:10]) < -0.3 {
			score *= 1.2
		}
	}
	return math.Min(score, 1.0)
}

// sittingScore rates bent knees with a stable hip position.
func sittingScore(frames []map[string]model.Point) float64 {
	if len(frames) < 3 {
		return 0
	}
	var scores []float64
	var hipY []float64
	for _, kp := range frames {
		hip, okHip := kp[kpLeftHip]
		knee, okKnee := kp[kpLeftKnee]
		ankle, okAnkle := kp[kpLeftAnkle]
		if okHip {
			hipY = append(hipY, hip.Y)
		}
		if !okHip || !okKnee || !okAnkle {
			continue
		}
		angle := angleDeg(hip, knee, ankle)
		if angle < 110 {
			scores = append(scores, 1.0-angle/180.0)
		} else {
			scores = append(scores, 0)
		}
	}
	if len(scores) == 0 {
		return 0
	}
	base := mean(scores)
	if len(hipY) > 5 && variance(hipY) < 0.001 {
		base *= 1.3
	}
	return math.Min(base, 1.0)
}

// gesturingScore rates wrist movement, boosted when a hand rises above
// the shoulder line in the most recent frames.
func gesturingScore(frames []map[string]model.Point) float64 {
	if len(frames) < 5 {
		return 0
	}
	var lx, ly, rx, ry []float64
	for _, kp := range frames {
		if p, ok := kp[kpLeftWrist]; ok {
			lx = append(lx, p.X)
			ly = append(ly, p.Y)
		}
		if p, ok := kp[kpRightWrist]; ok {
			rx = append(rx, p.X)
			ry = append(ry, p.Y)
		}
	}
	if len(lx) == 0 || len(rx) == 0 {
		return 0
	}
	total := (variance(lx) + variance(ly) + variance(rx) + variance(ry)) / 4
	score := math.Min(total*50, 1.0)

	recent := frames
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	for _, kp := range recent {
		wrist, okW := kp[kpLeftWrist]
		shoulder, okS := kp[kpLeftShoulder]
		if okW && okS && wrist.Y < shoulder.Y {
			score *= 1.2
			break
		}
	}
	return math.Min(score, 1.0)
}

// angleDeg returns the angle at vertex b formed by a-b-c, in degrees.
func angleDeg(a, b, c model.Point) float64 {
	v1x, v1y := a.X-b.X, a.Y-b.Y
	v2x, v2y := c.X-b.X, c.Y-b.Y
	m1 := math.Hypot(v1x, v1y)
	m2 := math.Hypot(v2x, v2y)
	if m1 == 0 || m2 == 0 {
		return 0
	}
	cos := (v1x*v2x + v1y*v2y) / (m1 * m2)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance is the Welford single-pass population variance.
func variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var n int
	var m, m2 float64
	for _, v := range values {
		n++
		d := v - m
		m += d / float64(n)
		m2 += d * (v - m)
	}
	return m2 / float64(n)
}

func correlation(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 2 {
		return 0
	}
	ma := mean(a[:n])
	mb := mean(b[:n])
	var cov, va, vb float64
	for i := 0; i < n; i++ {
		da := a[i] - ma
		db := b[i] - mb
		cov += da * db
		va += da * da
		vb += db * db
	}
	if va == 0 || vb == 0 {
		return 0
	}
	return cov / math.Sqrt(va*vb)
}
