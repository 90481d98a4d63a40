package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"

	"framewatch/internal/model"
)

type sqliteStore struct {
	baseStore
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:framewatch.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &sqliteStore{baseStore{db: db}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS anomalies (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			run_id TEXT NOT NULL,
			metric_name TEXT NOT NULL,
			frame_idx INTEGER NOT NULL,
			value REAL NOT NULL,
			z_score REAL NOT NULL,
			severity TEXT NOT NULL,
			expected_min REAL NOT NULL,
			expected_max REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_anomalies_run_metric ON anomalies(run_id, metric_name)`,
		`CREATE TABLE IF NOT EXISTS activities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			run_id TEXT NOT NULL,
			label TEXT NOT NULL,
			start_frame INTEGER NOT NULL,
			end_frame INTEGER NOT NULL,
			score REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_run ON activities(run_id)`,
		`CREATE TABLE IF NOT EXISTS summaries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			run_id TEXT NOT NULL,
			frames_total INTEGER NOT NULL,
			anomalies_total INTEGER NOT NULL,
			summary_json TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_summaries_run ON summaries(run_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) SaveAnomaly(ctx context.Context, runID string, ev model.AnomalyEvent) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO anomalies (ts, run_id, metric_name, frame_idx, value, z_score, severity, expected_min, expected_max)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nowUTC(),
		runID,
		ev.MetricName,
		ev.FrameIndex,
		ev.Value,
		ev.ZScore,
		string(ev.Severity),
		ev.ExpectedMin,
		ev.ExpectedMax,
	)
	return err
}

func (s *sqliteStore) SaveActivity(ctx context.Context, runID string, ev model.ActivityEvent) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activities (ts, run_id, label, start_frame, end_frame, score)
		VALUES (?, ?, ?, ?, ?, ?)`,
		nowUTC(),
		runID,
		ev.Label,
		ev.StartFrame,
		ev.EndFrame,
		ev.Score,
	)
	return err
}

func (s *sqliteStore) SaveSummary(ctx context.Context, summary *model.Summary) error {
	if s.db == nil || summary == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO summaries (ts, run_id, frames_total, anomalies_total, summary_json)
		VALUES (?, ?, ?, ?, ?)`,
		nowUTC(),
		summary.RunID,
		summary.FramesTotal,
		summary.AnomaliesTotal,
		encodeJSON(summary),
	)
	return err
}
