package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"framewatch/internal/model"
)

type postgresStore struct {
	baseStore
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/framewatch?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db}}, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS anomalies (
			id BIGSERIAL PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			run_id TEXT NOT NULL,
			metric_name TEXT NOT NULL,
			frame_idx INTEGER NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			z_score DOUBLE PRECISION NOT NULL,
			severity TEXT NOT NULL,
			expected_min DOUBLE PRECISION NOT NULL,
			expected_max DOUBLE PRECISION NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_anomalies_run_metric ON anomalies(run_id, metric_name)`,
		`CREATE TABLE IF NOT EXISTS activities (
			id BIGSERIAL PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			run_id TEXT NOT NULL,
			label TEXT NOT NULL,
			start_frame INTEGER NOT NULL,
			end_frame INTEGER NOT NULL,
			score DOUBLE PRECISION NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_run ON activities(run_id)`,
		`CREATE TABLE IF NOT EXISTS summaries (
			id BIGSERIAL PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			run_id TEXT NOT NULL,
			frames_total INTEGER NOT NULL,
			anomalies_total INTEGER NOT NULL,
			summary_json JSONB NOT NULL
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

func (s *postgresStore) SaveAnomaly(ctx context.Context, runID string, ev model.AnomalyEvent) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO anomalies (ts, run_id, metric_name, frame_idx, value, z_score, severity, expected_min, expected_max)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
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

func (s *postgresStore) SaveActivity(ctx context.Context, runID string, ev model.ActivityEvent) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activities (ts, run_id, label, start_frame, end_frame, score)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		nowUTC(),
		runID,
		ev.Label,
		ev.StartFrame,
		ev.EndFrame,
		ev.Score,
	)
	return err
}

func (s *postgresStore) SaveSummary(ctx context.Context, summary *model.Summary) error {
	if s.db == nil || summary == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO summaries (ts, run_id, frames_total, anomalies_total, summary_json)
		VALUES ($1, $2, $3, $4, $5)`,
		nowUTC(),
		summary.RunID,
		summary.FramesTotal,
		summary.AnomaliesTotal,
		encodeJSON(summary),
	)
	return err
}
