package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"GreyhoundTips/internal/clock"
	"GreyhoundTips/internal/config"
	"GreyhoundTips/internal/infrastructure/discord"
	"GreyhoundTips/internal/infrastructure/gemini"
	"GreyhoundTips/internal/infrastructure/storage"
	"GreyhoundTips/internal/learner"
	"GreyhoundTips/internal/ports"
	"GreyhoundTips/internal/postprocess"
	"GreyhoundTips/internal/prompt"
	"GreyhoundTips/internal/retry"
	"GreyhoundTips/internal/usecase"
)

// Run wires the application from configuration and executes the selected
// run mode until completion or context cancellation.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	resolver := clock.NewResolver(cfg.Scheduler.Anchor(), cfg.Scheduler.Display(), cfg.OverrideDate, logger)
	builder := prompt.NewBuilder(prompt.DefaultPolicy())
	processor := postprocess.NewProcessor(postprocess.DefaultPolicy(), logger)
	store := storage.NewFileStore(cfg.Storage.DataDir, logger)
	notifier := discord.NewNotifier(cfg.Webhook.URL, cfg.Webhook.FallbackURL, cfg.Scheduler.Display(), logger)

	completer, err := gemini.NewClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.Timeout(), logger)
	if err != nil {
		return fmt.Errorf("init completion client: %w", err)
	}

	orchestrator := retry.NewOrchestrator(completer, notifier,
		cfg.Gemini.MaxAttempts, cfg.Gemini.RetryDelay(), cfg.Gemini.MinResponseLength, logger)

	deps := usecase.PipelineDeps{
		Resolver:  resolver,
		Builder:   builder,
		Generator: orchestrator,
		Processor: processor,
		Notifier:  notifier,
		Store:     store,
		Logger:    logger,
	}

	if cfg.Storage.DatabaseDSN != "" {
		archive, err := storage.NewReportArchive(ctx, cfg.Storage.DatabaseDSN, logger)
		if err != nil {
			return fmt.Errorf("init report archive: %w", err)
		}
		defer archive.Close()
		deps.Archiver = archive
	}

	if cfg.Learner.Enabled {
		deps.Insights = learner.New(orchestrator, builder, store, notifier, logger)
	}

	pipeline := usecase.NewPipeline(deps)

	switch cfg.RunMode {
	case config.ModeSchedule:
		return runScheduled(ctx, cfg, pipeline, notifier, resolver, store, logger)
	case config.ModeResearch:
		return pipeline.RunResearch(ctx)
	default:
		return pipeline.RunDaily(ctx)
	}
}

func runScheduled(ctx context.Context, cfg config.Config, pipeline *usecase.Pipeline, notifier *discord.Notifier, resolver *clock.Resolver, store ports.Store, logger *slog.Logger) error {
	dc := resolver.Resolve()

	if err := notifier.Publish(ctx, onlineMessage(cfg, dc), "🐕 Greyhound Racing Bot"); err != nil {
		logger.Warn("startup notification failed", "error", err)
	}

	return newScheduler(cfg, pipeline, store, logger).Run(ctx)
}

func onlineMessage(cfg config.Config, dc clock.DateContext) string {
	online := fmt.Sprintf(`🟢 **Greyhound Bot Online**

Scheduled analysis is active for %s.
• Tips: %02d:%02d Sydney time`,
		dc.LongForm,
		cfg.Scheduler.Tips.Hour, cfg.Scheduler.Tips.Minute)
	if cfg.Learner.Enabled {
		online += fmt.Sprintf("\n• Results: %02d:%02d Sydney time",
			cfg.Scheduler.Results.Hour, cfg.Scheduler.Results.Minute)
	}
	return online
}

func newScheduler(cfg config.Config, pipeline *usecase.Pipeline, store ports.Store, logger *slog.Logger) *usecase.Scheduler {
	scheduler := usecase.NewScheduler(
		store,
		cfg.Scheduler.Anchor(),
		usecase.Trigger{Hour: cfg.Scheduler.Tips.Hour, Minute: cfg.Scheduler.Tips.Minute},
		usecase.Trigger{Hour: cfg.Scheduler.Results.Hour, Minute: cfg.Scheduler.Results.Minute},
		time.Duration(cfg.Scheduler.WindowMinutes)*time.Minute,
		logger,
	)
	scheduler.Tips = pipeline.RunDaily
	// The results run only exists to feed the learner.
	if cfg.Learner.Enabled {
		scheduler.Results = pipeline.RunResults
	}
	return scheduler
}
