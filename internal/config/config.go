package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel  string          `json:"log_level" yaml:"log_level"`
	Ingest    IngestConfig    `json:"ingest" yaml:"ingest"`
	Activity  ActivityConfig  `json:"activity" yaml:"activity"`
	Anomaly   AnomalyConfig   `json:"anomaly" yaml:"anomaly"`
	API       APIConfig       `json:"api" yaml:"api"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	Reports   ReportsConfig   `json:"reports" yaml:"reports"`
	Events    EventsConfig    `json:"events" yaml:"events"`
	Baselines BaselinesConfig `json:"baselines" yaml:"baselines"`
}

type IngestConfig struct {
	ChannelBuffer int            `json:"channel_buffer" yaml:"channel_buffer"`
	REST          RESTConfig     `json:"rest" yaml:"rest"`
	FileTail      FileTailConfig `json:"file_tail" yaml:"file_tail"`
	Kafka         KafkaConfig    `json:"kafka" yaml:"kafka"`
}

type RESTConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type FileTailConfig struct {
	Enabled    bool     `json:"enabled" yaml:"enabled"`
	StartAtEnd bool     `json:"start_at_end" yaml:"start_at_end"`
	Files      []string `json:"files" yaml:"files"`
}

type KafkaConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
	GroupID string   `json:"group_id" yaml:"group_id"`
}

type ActivityConfig struct {
	WindowSize int                `json:"window_size" yaml:"window_size"`
	Stride     int                `json:"stride" yaml:"stride"`
	Thresholds map[string]float64 `json:"thresholds" yaml:"thresholds"`
}

type AnomalyConfig struct {
	WindowSize int     `json:"window_size" yaml:"window_size"`
	MinSamples int     `json:"min_samples" yaml:"min_samples"`
	LowZ       float64 `json:"low_z" yaml:"low_z"`
	MediumZ    float64 `json:"medium_z" yaml:"medium_z"`
	HighZ      float64 `json:"high_z" yaml:"high_z"`
}

type APIConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type StorageConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Driver  string `json:"driver" yaml:"driver"`
	DSN     string `json:"dsn" yaml:"dsn"`
}

type CacheConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	Addr     string        `json:"addr" yaml:"addr"`
	Password string        `json:"password" yaml:"password"`
	DB       int           `json:"db" yaml:"db"`
	TTL      time.Duration `json:"ttl" yaml:"ttl"`
}

type ReportsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Dir     string `json:"dir" yaml:"dir"`
}

type EventsConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit"`
}

type BaselinesConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Ingest: IngestConfig{
			ChannelBuffer: 1024,
			REST:          RESTConfig{Enabled: false, Addr: ":8080"},
			FileTail:      FileTailConfig{Enabled: false, StartAtEnd: false},
			Kafka:         KafkaConfig{Enabled: false},
		},
		Activity: ActivityConfig{
			WindowSize: 30,
			Stride:     15,
			Thresholds: map[string]float64{
				"walking":   0.3,
				"sitting":   0.3,
				"gesturing": 0.3,
			},
		},
		Anomaly: AnomalyConfig{
			WindowSize: 50,
			MinSamples: 10,
			LowZ:       2.5,
			MediumZ:    3.0,
			HighZ:      4.0,
		},
		API:       APIConfig{Enabled: true, Addr: ":8081"},
		Storage:   StorageConfig{Enabled: false, Driver: "sqlite", DSN: "file:framewatch.db?_pragma=busy_timeout(5000)"},
		Cache:     CacheConfig{Enabled: false, Addr: "localhost:6379", TTL: time.Hour},
		Reports:   ReportsConfig{Enabled: true, Dir: "outputs"},
		Events:    EventsConfig{StoreLimit: 1000},
		Baselines: BaselinesConfig{StoreLimit: 1000},
	}
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()

	trimmed := strings.TrimSpace(string(content))
	if len(trimmed) == 0 {
		return nil, errors.New("config file is empty")
	}
	var decodeErr error
	if looksLikeJSON(trimmed) {
		decodeErr = json.Unmarshal([]byte(trimmed), cfg)
	} else {
		decodeErr = yaml.Unmarshal([]byte(trimmed), cfg)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if path == "" || cfg == nil {
		return errors.New("config path or config is empty")
	}
	var data []byte
	var err error
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Ingest.ChannelBuffer <= 0 {
		cfg.Ingest.ChannelBuffer = def.Ingest.ChannelBuffer
	}
	if cfg.Activity.WindowSize == 0 {
		cfg.Activity.WindowSize = def.Activity.WindowSize
	}
	if cfg.Activity.Stride == 0 {
		cfg.Activity.Stride = def.Activity.Stride
	}
	if len(cfg.Activity.Thresholds) == 0 {
		cfg.Activity.Thresholds = def.Activity.Thresholds
	}
	if cfg.Anomaly.WindowSize == 0 {
		cfg.Anomaly.WindowSize = def.Anomaly.WindowSize
	}
	if cfg.Anomaly.MinSamples == 0 {
		cfg.Anomaly.MinSamples = def.Anomaly.MinSamples
	}
	if cfg.Anomaly.LowZ == 0 && cfg.Anomaly.MediumZ == 0 && cfg.Anomaly.HighZ == 0 {
		cfg.Anomaly.LowZ = def.Anomaly.LowZ
		cfg.Anomaly.MediumZ = def.Anomaly.MediumZ
		cfg.Anomaly.HighZ = def.Anomaly.HighZ
	}
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = def.Cache.TTL
	}
	if cfg.Reports.Dir == "" {
		cfg.Reports.Dir = def.Reports.Dir
	}
	if cfg.Events.StoreLimit <= 0 {
		cfg.Events.StoreLimit = def.Events.StoreLimit
	}
	if cfg.Baselines.StoreLimit <= 0 {
		cfg.Baselines.StoreLimit = def.Baselines.StoreLimit
	}
}

// Validate rejects bad configurations before any frames are processed.
// The core packages re-validate their own sections at construction.
func Validate(cfg *Config) error {
	if cfg.API.Enabled && cfg.API.Addr == "" {
		return errors.New("api.addr required when api.enabled is true")
	}
	if cfg.Ingest.REST.Enabled && cfg.Ingest.REST.Addr == "" {
		return errors.New("ingest.rest.addr required when ingest.rest.enabled is true")
	}
	if cfg.Ingest.FileTail.Enabled && len(cfg.Ingest.FileTail.Files) == 0 {
		return errors.New("ingest.file_tail.files required when ingest.file_tail.enabled is true")
	}
	if cfg.Ingest.Kafka.Enabled {
		if len(cfg.Ingest.Kafka.Brokers) == 0 || cfg.Ingest.Kafka.Topic == "" || cfg.Ingest.Kafka.GroupID == "" {
			return errors.New("ingest.kafka requires brokers, topic, group_id")
		}
	}
	if cfg.Activity.WindowSize <= 0 {
		return fmt.Errorf("activity.window_size must be > 0, got %d", cfg.Activity.WindowSize)
	}
	if cfg.Activity.Stride <= 0 {
		return fmt.Errorf("activity.stride must be > 0, got %d", cfg.Activity.Stride)
	}
	for label, th := range cfg.Activity.Thresholds {
		if th < 0 || th > 1 {
			return fmt.Errorf("activity.thresholds[%s] must be in [0,1], got %v", label, th)
		}
	}
	if cfg.Anomaly.WindowSize < 2 {
		return fmt.Errorf("anomaly.window_size must be >= 2, got %d", cfg.Anomaly.WindowSize)
	}
	if cfg.Anomaly.MinSamples < 2 || cfg.Anomaly.MinSamples > cfg.Anomaly.WindowSize {
		return fmt.Errorf("anomaly.min_samples must be in [2, window_size], got %d", cfg.Anomaly.MinSamples)
	}
	if cfg.Anomaly.LowZ <= 0 || cfg.Anomaly.MediumZ <= cfg.Anomaly.LowZ || cfg.Anomaly.HighZ <= cfg.Anomaly.MediumZ {
		return errors.New("anomaly severity bands must be strictly ascending: 0 < low_z < medium_z < high_z")
	}
	if cfg.Cache.Enabled && cfg.Cache.Addr == "" {
		return errors.New("cache.addr required when cache.enabled is true")
	}
	return nil
}

type Manager struct {
	path    string
	cfg     atomic.Value
	modTime time.Time
}

func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	m := &Manager{path: path}
	m.cfg.Store(cfg)
	info, err := os.Stat(path)
	if err == nil {
		m.modTime = info.ModTime()
	}
	return m, nil
}

// NewStaticManager wraps an in-memory config with no backing file.
// Reload and Watch are no-ops for it.
func NewStaticManager(cfg *Config) *Manager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	m := &Manager{}
	m.cfg.Store(cfg)
	return m
}

func (m *Manager) Get() *Config {
	if v := m.cfg.Load(); v != nil {
		return v.(*Config)
	}
	return DefaultConfig()
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) Reload() (*Config, error) {
	if m.path == "" {
		return m.Get(), nil
	}
	cfg, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	m.cfg.Store(cfg)
	if info, err := os.Stat(m.path); err == nil {
		m.modTime = info.ModTime()
	}
	return cfg, nil
}

func (m *Manager) NeedsReload() (bool, error) {
	if m.path == "" {
		return false, nil
	}
	info, err := os.Stat(m.path)
	if err != nil {
		return false, err
	}
	return info.ModTime().After(m.modTime), nil
}

func (m *Manager) Watch(interval time.Duration, onReload func(*Config), onError func(error), stop <-chan struct{}) {
	if m.path == "" {
		return
	}
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			needs, err := m.NeedsReload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if !needs {
				continue
			}
			cfg, err := m.Reload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if onReload != nil {
				onReload(cfg)
			}
		case <-stop:
			return
		}
	}
}

func ResolvePath(path string) string {
	if path == "" {
		return path
	}
	if filepath.IsAbs(path) {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	return filepath.Join(cwd, path)
}
