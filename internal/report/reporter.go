package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"framewatch/internal/model"
)

// Reporter writes the end-of-run artifacts: metrics.json with the raw
// summary and report.md with a human-readable rendering of it.
type Reporter struct {
	dir string
}

func NewReporter(dir string) *Reporter {
	if strings.TrimSpace(dir) == "" {
		dir = "outputs"
	}
	return &Reporter{dir: dir}
}

func (r *Reporter) Dir() string {
	return r.dir
}

func (r *Reporter) WriteJSON(summary *model.Summary) (string, error) {
	if summary == nil {
		return "", fmt.Errorf("nil summary")
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", err
	}
	report := model.Report{
		GeneratedAt: time.Now().UTC(),
		Summary:     summary,
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(r.dir, "metrics.json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (r *Reporter) WriteMarkdown(summary *model.Summary) (string, error) {
	if summary == nil {
		return "", fmt.Errorf("nil summary")
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(r.dir, "report.md")
	if err := os.WriteFile(path, []byte(renderMarkdown(summary)), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func renderMarkdown(s *model.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Analysis Report\n\n")
	fmt.Fprintf(&b, "Run: `%s`\n\n", s.RunID)
	fmt.Fprintf(&b, "## Overview\n\n")
	fmt.Fprintf(&b, "- Frames processed: %d\n", s.FramesTotal)
	fmt.Fprintf(&b, "- Anomalies detected: %d\n", s.AnomaliesTotal)
	fmt.Fprintf(&b, "- Activity segments: %d\n\n", len(s.ActivitiesTimeline))

	fmt.Fprintf(&b, "## Faces\n\n")
	fmt.Fprintf(&b, "- Total detections: %d\n", s.FacesStats.TotalDetections)
	fmt.Fprintf(&b, "- Average per frame: %.2f\n", s.FacesStats.AvgFacesPerFrame)
	fmt.Fprintf(&b, "- Max in one frame: %d\n", s.FacesStats.MaxFacesInFrame)
	fmt.Fprintf(&b, "- Frames with faces: %d\n", s.FacesStats.FramesWithFaces)
	fmt.Fprintf(&b, "- Frames without faces: %d\n\n", s.FacesStats.FramesWithoutFaces)

	fmt.Fprintf(&b, "## Emotions\n\n")
	if len(s.EmotionsDistribution) == 0 {
		fmt.Fprintf(&b, "No emotions recorded.\n\n")
	} else {
		emotions := make([]string, 0, len(s.EmotionsDistribution))
		for name := range s.EmotionsDistribution {
			emotions = append(emotions, name)
		}
		sort.Slice(emotions, func(i, j int) bool {
			ci, cj := s.EmotionsDistribution[emotions[i]], s.EmotionsDistribution[emotions[j]]
			if ci != cj {
				return ci > cj
			}
			return emotions[i] < emotions[j]
		})
		fmt.Fprintf(&b, "| Emotion | Detections |\n|---|---|\n")
		for _, name := range emotions {
			fmt.Fprintf(&b, "| %s | %d |\n", name, s.EmotionsDistribution[name])
		}
		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, "## Activities\n\n")
	if len(s.ActivitiesTimeline) == 0 {
		fmt.Fprintf(&b, "No activities recognized.\n\n")
	} else {
		fmt.Fprintf(&b, "| Label | Start | End | Frames | Score |\n|---|---|---|---|---|\n")
		for _, ev := range s.ActivitiesTimeline {
			fmt.Fprintf(&b, "| %s | %d | %d | %d | %.2f |\n",
				ev.Label, ev.StartFrame, ev.EndFrame, ev.Duration(), ev.Score)
		}
		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, "## Anomalies\n\n")
	if s.AnomaliesTotal == 0 {
		fmt.Fprintf(&b, "No anomalies detected.\n")
	} else {
		fmt.Fprintf(&b, "| Severity | Count |\n|---|---|\n")
		for _, sev := range []model.Severity{model.SeverityHigh, model.SeverityMedium, model.SeverityLow} {
			fmt.Fprintf(&b, "| %s | %d |\n", sev, s.AnomaliesBySeverity[sev])
		}
	}
	return b.String()
}
