package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"framewatch/internal/config"
	"framewatch/internal/events"
	"framewatch/internal/model"
	"framewatch/internal/stats"
)

type PipelineControl interface {
	RunID() string
	Snapshot() *model.Summary
	Reset() error
}

type Server struct {
	cfg            *config.Manager
	pipeline       PipelineControl
	baselines      *stats.Store
	anomalyEvents  *events.Store[model.AnomalyEvent]
	activityEvents *events.Store[model.ActivityEvent]
	logger         *slog.Logger
	version        string
}

type statusResponse struct {
	Status     string       `json:"status"`
	Time       string       `json:"time"`
	Version    string       `json:"version"`
	ConfigPath string       `json:"config_path"`
	RunID      string       `json:"run_id"`
	Frames     int          `json:"frames_total"`
	Ingest     ingestStatus `json:"ingest"`
	API        apiStatus    `json:"api"`
}

type ingestStatus struct {
	REST     bool `json:"rest"`
	FileTail bool `json:"file_tail"`
	Kafka    bool `json:"kafka"`
}

type apiStatus struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

func Start(ctx context.Context, cfg *config.Manager, pipeline PipelineControl,
	baselines *stats.Store,
	anomalyEvents *events.Store[model.AnomalyEvent],
	activityEvents *events.Store[model.ActivityEvent],
	logger *slog.Logger, version string) *http.Server {

	if cfg == nil {
		return nil
	}
	current := cfg.Get().API
	if !current.Enabled {
		if logger != nil {
			logger.Info("api disabled")
		}
		return nil
	}
	if logger != nil {
		logger.Info("api enabled", "addr", current.Addr)
	}
	server := &Server{
		cfg:            cfg,
		pipeline:       pipeline,
		baselines:      baselines,
		anomalyEvents:  anomalyEvents,
		activityEvents: activityEvents,
		logger:         logger,
		version:        version,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", server.handleStatus)
	mux.HandleFunc("/summary", server.handleSummary)
	mux.HandleFunc("/events/anomalies", server.handleAnomalies)
	mux.HandleFunc("/events/activities", server.handleActivities)
	mux.HandleFunc("/baselines", server.handleBaselines)
	mux.HandleFunc("/baselines/", server.handleBaselines)
	mux.HandleFunc("/admin/reset", server.handleReset)
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{Addr: current.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctxShutdown)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Error("api server error", "err", err)
			}
		}
	}()
	return httpServer
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cfg := s.cfg.Get()
	snap := s.pipeline.Snapshot()
	resp := statusResponse{
		Status:     "ok",
		Time:       time.Now().UTC().Format(time.RFC3339Nano),
		Version:    s.version,
		ConfigPath: s.cfg.Path(),
		RunID:      s.pipeline.RunID(),
		Frames:     snap.FramesTotal,
		Ingest: ingestStatus{
			REST:     cfg.Ingest.REST.Enabled,
			FileTail: cfg.Ingest.FileTail.Enabled,
			Kafka:    cfg.Ingest.Kafka.Enabled,
		},
		API: apiStatus{Enabled: cfg.API.Enabled, Addr: cfg.API.Addr},
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.pipeline.Snapshot())
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	list := s.anomalyEvents.List(queryLimit(r))
	writeJSON(w, http.StatusOK, map[string]any{
		"anomalies": list,
		"count":     len(list),
		"total":     s.anomalyEvents.Total(),
	})
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	list := s.activityEvents.List(queryLimit(r))
	writeJSON(w, http.StatusOK, map[string]any{
		"activities": list,
		"count":      len(list),
		"total":      s.activityEvents.Total(),
	})
}

func (s *Server) handleBaselines(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	metric := strings.TrimPrefix(r.URL.Path, "/baselines")
	metric = strings.TrimPrefix(metric, "/")
	if metric != "" {
		baseline, updated, ok := s.baselines.Get(metric)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"metric":     metric,
			"updated_at": updated.Format(time.RFC3339Nano),
			"baseline":   baseline,
		})
		return
	}
	all := s.baselines.GetAll()
	writeJSON(w, http.StatusOK, map[string]any{
		"baselines": all,
		"count":     len(all),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.pipeline.Reset(); err != nil {
		if s.logger != nil {
			s.logger.Error("reset failed", "err", err)
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"run_id": s.pipeline.RunID(),
	})
}

func queryLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
