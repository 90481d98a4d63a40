package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeTemp(t, "config.yaml", `
log_level: debug
activity:
  window_size: 20
  stride: 10
anomaly:
  window_size: 40
api:
  enabled: true
  addr: ":9090"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.Activity.WindowSize != 20 || cfg.Activity.Stride != 10 {
		t.Fatalf("yaml values: %+v", cfg)
	}
	if cfg.API.Addr != ":9090" {
		t.Fatalf("api addr: %s", cfg.API.Addr)
	}
	// Untouched sections fall back to defaults.
	if cfg.Anomaly.MinSamples != 10 || cfg.Anomaly.LowZ != 2.5 {
		t.Fatalf("anomaly defaults: %+v", cfg.Anomaly)
	}
	if cfg.Activity.Thresholds["walking"] != 0.3 {
		t.Fatalf("threshold defaults: %+v", cfg.Activity.Thresholds)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeTemp(t, "config.json",
		`{"log_level":"warn","anomaly":{"window_size":30,"min_samples":5,"low_z":2,"medium_z":3,"high_z":5}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "warn" || cfg.Anomaly.WindowSize != 30 || cfg.Anomaly.HighZ != 5 {
		t.Fatalf("json values: %+v", cfg)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"bands":     "anomaly:\n  low_z: 3\n  medium_z: 2.5\n  high_z: 4\n",
		"threshold": "activity:\n  thresholds:\n    walking: 1.5\n",
		"kafka":     "ingest:\n  kafka:\n    enabled: true\n",
	}
	for name, content := range cases {
		path := writeTemp(t, name+".yaml", content)
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: invalid config accepted", name)
		}
	}
	if _, err := Load(writeTemp(t, "empty.yaml", "  \n")); err == nil {
		t.Fatalf("empty config accepted")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	cfg.Activity.WindowSize = 12
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.LogLevel != "debug" || loaded.Activity.WindowSize != 12 {
		t.Fatalf("round trip: %+v", loaded)
	}
}

func TestStaticManager(t *testing.T) {
	m := NewStaticManager(nil)
	if m.Get() == nil || m.Path() != "" {
		t.Fatalf("static manager: %+v", m)
	}
	if needs, err := m.NeedsReload(); err != nil || needs {
		t.Fatalf("static manager should never need reload")
	}
	if _, err := m.Reload(); err != nil {
		t.Fatalf("static reload: %v", err)
	}
}

func TestManagerReload(t *testing.T) {
	path := writeTemp(t, "config.yaml", "log_level: info\n")
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if m.Get().LogLevel != "info" {
		t.Fatalf("initial: %s", m.Get().LogLevel)
	}
	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	cfg, err := m.Reload()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.LogLevel != "debug" || m.Get().LogLevel != "debug" {
		t.Fatalf("reload value: %s", cfg.LogLevel)
	}
}
