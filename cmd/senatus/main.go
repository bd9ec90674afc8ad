package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/senatus-ai/senatus/internal/config"
	"github.com/senatus-ai/senatus/internal/engine"
	"github.com/senatus-ai/senatus/internal/filters"
	"github.com/senatus-ai/senatus/internal/imaging"
	"github.com/senatus-ai/senatus/internal/ingest"
	"github.com/senatus-ai/senatus/internal/logging"
	"github.com/senatus-ai/senatus/internal/metrics"
	"github.com/senatus-ai/senatus/internal/models"
	"github.com/senatus-ai/senatus/internal/server"
	"github.com/senatus-ai/senatus/internal/vlm"
)

func main() {
	var (
		startFlag = flag.String("start", "", "window start (RFC3339 or YYYY-MM-DD), default 24h before end")
		endFlag   = flag.String("end", "", "window end (RFC3339 or YYYY-MM-DD), default now")
		dryRun    = flag.Bool("dry-run", false, "decide only, never call the vision model")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting senatus")

	start, end, err := resolveWindow(*startFlag, *endFlag)
	if err != nil {
		logger.Error("invalid time window", "error", err)
		os.Exit(1)
	}

	collector, err := metrics.NewCascadeCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	eng, err := buildEngine(cfg.Engine, logger)
	if err != nil {
		logger.Error("failed to build engine", "error", err)
		os.Exit(1)
	}

	var srv *server.Server
	if cfg.Metrics.Enabled {
		srv = server.New(cfg.Metrics.Addr, logger, collector.Handler(), func() any {
			return eng.Stats()
		})
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	reader, err := ingest.NewReader(cfg.Ingest.DatabasePath, cfg.Ingest.ScreenshotsDir, ingest.ReaderOptions{
		Limit:  cfg.Ingest.EventLimit,
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to open activity source", "error", err)
		os.Exit(1)
	}
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var provider vlm.Provider
	if *dryRun {
		provider = vlm.NewMock("dry run: inference disabled")
		logger.Info("dry run, vision model calls disabled")
	} else {
		client, err := vlm.NewClient(vlm.ClientOptions{
			BaseURL: cfg.VLM.BaseURL,
			APIKey:  cfg.VLM.APIKey,
			Model:   cfg.VLM.Model,
			Timeout: cfg.VLM.Timeout,
			Logger:  logger,
		})
		if err != nil {
			logger.Error("failed to build vlm client", "error", err)
			os.Exit(1)
		}
		if err := client.HealthCheck(ctx); err != nil {
			logger.Warn("vision model not reachable, continuing anyway", "error", err)
		}
		provider = client
	}

	if err := run(ctx, logger, eng, reader, provider, collector, start, end); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	if srv != nil {
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}
	logger.Info("shutdown complete")
}

// run streams the activity window through the cascade and dispatches
// everything the trigger manager releases.
func run(
	ctx context.Context,
	logger *slog.Logger,
	eng *engine.Engine,
	reader *ingest.Reader,
	provider vlm.Provider,
	collector *metrics.CascadeCollector,
	start, end time.Time,
) error {
	events, err := reader.Events(ctx, start, end)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		logger.Info("no activity in window",
			"start", start.Format(time.RFC3339), "end", end.Format(time.RFC3339))
		return nil
	}

	dispatched := 0
	for i := range events {
		if ctx.Err() != nil {
			logger.Warn("interrupted, flushing queues")
			break
		}

		event := events[i]
		plane := reader.PlaneFor(event)

		decision, err := eng.ProcessActivity(&event, plane)
		if err != nil {
			logger.Error("event processing failed", "event_id", event.ID, "error", err)
			continue
		}
		collector.ObserveDecision(&decision)

		if decision.DecisionType == models.DecisionImmediate {
			// The plane is already decoded for this event; hand it straight
			// to the model together with the decision's score.
			if dispatchOne(ctx, logger, provider, event, plane, decision.TIScore) {
				dispatched++
			}
		}

		dispatched += dispatch(ctx, logger, reader, provider, eng.CheckBatchQueue())
		dispatched += dispatch(ctx, logger, reader, provider, eng.CheckDelayedQueue())

		tm := eng.TriggerManager()
		collector.SetQueueSizes(tm.BatchQueueSize(), tm.DelayedSize())
	}

	dispatched += dispatch(ctx, logger, reader, provider, eng.CheckDelayedQueue())
	dispatched += dispatch(ctx, logger, reader, provider, eng.FlushBatchQueue())

	stats := eng.Stats()
	logger.Info("cascade run complete",
		"events", stats.TotalProcessed,
		"filtered", stats.FilteredCount,
		"analyzed", stats.AnalyzedCount,
		"dispatched", dispatched,
		"filter_rate", fmt.Sprintf("%.2f", eng.FilterRate()),
		"trigger_rate", fmt.Sprintf("%.2f", eng.TriggerRate()),
		"mean_ti", fmt.Sprintf("%.3f", stats.Calculator.AvgTIScore),
	)
	return nil
}

// dispatch sends released queue items to the vision model, loading each
// item's screenshot on the way out.
func dispatch(
	ctx context.Context,
	logger *slog.Logger,
	reader *ingest.Reader,
	provider vlm.Provider,
	items []engine.QueueItem,
) int {
	sent := 0
	for _, item := range items {
		score := item.TI.TIScore
		if dispatchOne(ctx, logger, provider, item.Event, reader.PlaneFor(item.Event), &score) {
			sent++
		}
	}
	return sent
}

// dispatchOne sends one event to the vision model. Failures are logged
// and counted, never fatal: one bad inference call must not stop the
// stream.
func dispatchOne(
	ctx context.Context,
	logger *slog.Logger,
	provider vlm.Provider,
	event models.ActivityEvent,
	plane *imaging.Plane,
	tiScore *float64,
) bool {
	var imagePNG []byte
	if plane != nil {
		if encoded, err := plane.EncodePNG(); err == nil {
			imagePNG = encoded
		} else {
			logger.Warn("failed to encode screenshot",
				"event_id", event.ID, "error", err)
		}
	}

	result, err := provider.Analyze(ctx, vlm.RequestForEvent(event, imagePNG))
	if err != nil {
		logger.Error("inference failed",
			"event_id", event.ID,
			"application", event.Application,
			"error", err)
		return false
	}

	attrs := []any{
		"event_id", event.ID,
		"application", event.Application,
		"model", result.Model,
		"latency_ms", result.Latency.Milliseconds(),
		"summary", truncate(result.Content, 160),
	}
	if tiScore != nil {
		attrs = append(attrs, "ti_score", fmt.Sprintf("%.3f", *tiScore))
	}
	logger.Info("inference complete", attrs...)
	return true
}

// buildEngine maps the loaded tuning onto the cascade. Zero-valued
// config fields keep the built-in defaults.
func buildEngine(cfg config.EngineConfig, logger *slog.Logger) (*engine.Engine, error) {
	filterList, err := buildFilters(cfg)
	if err != nil {
		return nil, err
	}

	var thresholds *engine.Thresholds
	if cfg.Thresholds.Immediate != 0 || cfg.Thresholds.Batch != 0 || cfg.Thresholds.Skip != 0 {
		thresholds = &engine.Thresholds{
			Immediate: cfg.Thresholds.Immediate,
			Batch:     cfg.Thresholds.Batch,
			Skip:      cfg.Thresholds.Skip,
		}
	}

	eng, err := engine.New(engine.Options{
		Filters:      filterList,
		Thresholds:   thresholds,
		MaxBatchSize: cfg.MaxBatchSize,
		BatchTimeout: cfg.BatchTimeoutSeconds,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	for _, a := range eng.Calculator().Analyzers() {
		if w, ok := cfg.AnalyzerWeights[a.Name()]; ok && w > 0 {
			a.SetWeight(w)
		}
	}
	return eng, nil
}

func buildFilters(cfg config.EngineConfig) ([]filters.Filter, error) {
	allow, err := filters.NewAllowListFilter(filters.AllowListOptions{
		Apps:          cfg.AllowApps,
		TitleKeywords: cfg.AllowTitleKeywords,
	})
	if err != nil {
		return nil, fmt.Errorf("allow list: %w", err)
	}

	deny := filters.NewDenyListFilter(filters.DenyListOptions{
		Apps:          cfg.DenyApps,
		TitleKeywords: cfg.DenyTitleKeywords,
	})

	var specs []filters.TimeRuleSpec
	for _, rc := range cfg.TimeRules {
		spec := filters.TimeRuleSpec{
			Name:           rc.Name,
			Start:          rc.Start,
			End:            rc.End,
			Action:         filters.TimeRuleAction(rc.Action),
			WeightModifier: rc.WeightModifier,
		}
		for _, day := range rc.Weekdays {
			d, err := config.ParseWeekday(day)
			if err != nil {
				return nil, fmt.Errorf("time rule %s: %w", rc.Name, err)
			}
			spec.Weekdays = append(spec.Weekdays, d)
		}
		specs = append(specs, spec)
	}
	timeRules, err := filters.NewTimeRuleFilter(specs)
	if err != nil {
		return nil, fmt.Errorf("time rules: %w", err)
	}

	static := filters.NewStaticFrameFilter(filters.StaticFrameOptions{
		Threshold:   cfg.StaticFrame.Threshold,
		HistorySize: cfg.StaticFrame.HistorySize,
	})

	return []filters.Filter{allow, deny, timeRules, static}, nil
}

// resolveWindow turns the flag values into a concrete UTC window.
func resolveWindow(startStr, endStr string) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	if endStr != "" {
		parsed, err := parseFlagTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("end: %w", err)
		}
		end = parsed
	}

	start := end.Add(-24 * time.Hour)
	if startStr != "" {
		parsed, err := parseFlagTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
		}
		start = parsed
	}

	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %v is not before end %v", start, end)
	}
	return start, end, nil
}

func parseFlagTime(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized time %q", value)
	}
	return ts, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
