package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"framewatch/internal/api"
	"framewatch/internal/cache"
	"framewatch/internal/config"
	"framewatch/internal/engine"
	"framewatch/internal/events"
	"framewatch/internal/ingest"
	"framewatch/internal/logging"
	"framewatch/internal/model"
	"framewatch/internal/report"
	"framewatch/internal/stats"
	"framewatch/internal/storage"
)

const version = "0.3.0"

func main() {
	configPath := flag.String("config", "", "path to config file (json or yaml)")
	inputPath := flag.String("input", "", "process a JSONL observation file and exit")
	reportDir := flag.String("report-dir", "", "override report output directory")
	flag.Parse()

	var mgr *config.Manager
	var err error
	if *configPath != "" {
		mgr, err = config.NewManager(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
	} else {
		mgr = config.NewStaticManager(config.DefaultConfig())
	}
	cfg := mgr.Get()
	if *reportDir != "" {
		cfg.Reports.Dir = *reportDir
	}

	logger := logging.NewLogger(cfg.LogLevel)
	logger.Info("starting framewatch", "version", version, "config", mgr.Path())

	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		logger.Error("storage init failed", "err", err)
		os.Exit(1)
	}
	if store != nil {
		if err := store.Init(context.Background()); err != nil {
			logger.Error("storage schema init failed", "err", err)
			os.Exit(1)
		}
		defer store.Close()
		logger.Info("storage enabled", "driver", cfg.Storage.Driver)
	}

	baselines := stats.NewStore(cfg.Baselines.StoreLimit)
	anomalyEvents := events.NewStore[model.AnomalyEvent](cfg.Events.StoreLimit)
	activityEvents := events.NewStore[model.ActivityEvent](cfg.Events.StoreLimit)

	pipeline, err := engine.New(cfg, logger, baselines, anomalyEvents, activityEvents, store)
	if err != nil {
		logger.Error("pipeline init failed", "err", err)
		os.Exit(1)
	}
	logger.Info("pipeline ready", "run_id", pipeline.RunID())

	var summaryCache *cache.SummaryCache
	if cfg.Cache.Enabled {
		summaryCache, err = cache.NewSummaryCache(cfg.Cache)
		if err != nil {
			logger.Warn("summary cache unavailable", "addr", cfg.Cache.Addr, "err", err)
		} else {
			defer summaryCache.Close()
			logger.Info("summary cache enabled", "addr", cfg.Cache.Addr)
		}
	}

	if *inputPath != "" {
		if err := runFile(pipeline, cfg, summaryCache, logger, *inputPath); err != nil {
			logger.Error("input processing failed", "path", *inputPath, "err", err)
			os.Exit(1)
		}
		return
	}

	runStream(mgr, pipeline, baselines, anomalyEvents, activityEvents, summaryCache, logger)
}

// runFile drains a complete JSONL file through the pipeline, then
// finalizes the run and writes the reports.
func runFile(pipeline *engine.Pipeline, cfg *config.Config, summaryCache *cache.SummaryCache, logger *slog.Logger, path string) error {
	err := ingest.ReadFile(path, func(obs model.FrameObservation) error {
		_, _, err := pipeline.ProcessObservation(obs)
		return err
	})
	if err != nil {
		return err
	}
	summary, err := pipeline.Finish(context.Background())
	if err != nil {
		return err
	}
	finishRun(cfg, summaryCache, logger, summary)
	return nil
}

func runStream(mgr *config.Manager, pipeline *engine.Pipeline, baselines *stats.Store,
	anomalyEvents *events.Store[model.AnomalyEvent],
	activityEvents *events.Store[model.ActivityEvent],
	summaryCache *cache.SummaryCache, logger *slog.Logger) {

	cfg := mgr.Get()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	observations := make(chan model.FrameObservation, cfg.Ingest.ChannelBuffer)
	pipeline.Start(ctx, observations)

	ingest.StartREST(ctx, mgr, observations, logger)
	ingest.StartFileTail(ctx, mgr, observations, logger)
	ingest.StartKafka(ctx, mgr, observations, logger)
	api.Start(ctx, mgr, pipeline, baselines, anomalyEvents, activityEvents, logger, version)

	go mgr.Watch(3*time.Second,
		func(next *config.Config) {
			logger.Info("config reloaded", "path", mgr.Path(), "log_level", next.LogLevel)
		},
		func(err error) {
			logger.Warn("config reload failed", "err", err)
		},
		ctx.Done())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")
	cancel()

	summary, err := pipeline.Finish(context.Background())
	if err != nil {
		logger.Error("finish failed", "err", err)
		return
	}
	finishRun(cfg, summaryCache, logger, summary)
}

func finishRun(cfg *config.Config, summaryCache *cache.SummaryCache, logger *slog.Logger, summary *model.Summary) {
	if summaryCache != nil {
		if err := summaryCache.StoreSummary(context.Background(), summary); err != nil {
			logger.Warn("summary cache store failed", "err", err)
		}
	}
	if !cfg.Reports.Enabled {
		return
	}
	reporter := report.NewReporter(cfg.Reports.Dir)
	if p, err := reporter.WriteJSON(summary); err == nil {
		logger.Info("report written", "path", p)
	} else {
		logger.Error("report write failed", "err", err)
	}
	if p, err := reporter.WriteMarkdown(summary); err == nil {
		logger.Info("report written", "path", p)
	} else {
		logger.Error("report write failed", "err", err)
	}
}
