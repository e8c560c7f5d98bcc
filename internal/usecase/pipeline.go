package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"GreyhoundTips/internal/clock"
	"GreyhoundTips/internal/domain"
	"GreyhoundTips/internal/learner"
	"GreyhoundTips/internal/ports"
	"GreyhoundTips/internal/postprocess"
	"GreyhoundTips/internal/prompt"
)

const reportTitle = "🐕 Greyhound Racing Tips - Daily Analysis"

// Generator produces a report body for a prompt. It never fails hard; on
// exhaustion it returns operator-facing recovery text instead.
type Generator interface {
	Generate(ctx context.Context, prompt string, dc clock.DateContext) string
}

// InsightSource supplies accumulated learning notes for prompt enrichment.
type InsightSource interface {
	InsightNotes() string
	AnalyzeResults(ctx context.Context, dc clock.DateContext) error
}

// PipelineDeps carries everything the daily pipeline needs. Archiver and
// Insights may be nil; the pipeline degrades gracefully without them.
type PipelineDeps struct {
	Resolver  *clock.Resolver
	Builder   *prompt.Builder
	Generator Generator
	Processor *postprocess.Processor
	Notifier  ports.Notifier
	Store     ports.Store
	Archiver  ports.Archiver
	Insights  InsightSource
	Logger    *slog.Logger
}

// Pipeline strings the daily run together: resolve the date, build the
// prompt, generate, post-process, persist picks and deliver.
type Pipeline struct {
	deps   PipelineDeps
	logger *slog.Logger
}

func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{deps: deps, logger: deps.Logger.With("component", "pipeline")}
}

// GenerateReport produces the fully post-processed report for today.
func (p *Pipeline) GenerateReport(ctx context.Context) (string, clock.DateContext) {
	dc := p.deps.Resolver.Resolve()

	notes := ""
	if p.deps.Insights != nil {
		notes = p.deps.Insights.InsightNotes()
	}

	p.logger.Info("generating daily report", "date", dc.ISO, "has_insights", notes != "")

	raw := p.deps.Generator.Generate(ctx, p.deps.Builder.TipsPrompt(dc, notes), dc)
	return p.deps.Processor.Process(raw, dc), dc
}

// RunDaily generates and delivers the day's tips. Picks are persisted
// before delivery so the evening results run can score them even if
// delivery partially fails.
func (p *Pipeline) RunDaily(ctx context.Context) error {
	report, dc := p.GenerateReport(ctx)

	picks := learner.ExtractPicks(report)
	record := domain.PredictionRecord{
		Date:        dc.ISO,
		Predictions: picks,
		GeneratedAt: time.Now().Format(time.RFC3339),
	}
	if err := p.deps.Store.SavePredictions(record); err != nil {
		p.logger.Error("persisting picks failed", "error", err)
	}

	if err := p.deps.Notifier.PublishPerSelection(ctx, report, reportTitle); err != nil {
		return fmt.Errorf("deliver report: %w", err)
	}

	p.archive(ctx, dc, report, len(picks))
	p.logger.Info("daily report delivered", "date", dc.ISO, "selections", len(picks))
	return nil
}

// RunResults scores the day's published picks against actual results.
func (p *Pipeline) RunResults(ctx context.Context) error {
	if p.deps.Insights == nil {
		p.logger.Info("results analysis disabled")
		return nil
	}
	dc := p.deps.Resolver.Resolve()
	return p.deps.Insights.AnalyzeResults(ctx, dc)
}

// RunResearch generates a report and prints it without delivering,
// for verifying prompts and post-processing against the live API.
func (p *Pipeline) RunResearch(ctx context.Context) error {
	report, dc := p.GenerateReport(ctx)

	fmt.Printf("=== RESEARCH ANALYSIS %s ===\n\n%s\n", dc.ISO, report)

	if p.deps.Archiver != nil {
		recent, err := p.deps.Archiver.RecentReports(ctx, 5)
		if err != nil {
			p.logger.Warn("listing archived reports failed", "error", err)
			return nil
		}
		fmt.Printf("\n=== RECENT ARCHIVED REPORTS ===\n")
		for _, r := range recent {
			fmt.Printf("%s  %-40s  %d selections\n", r.Date, r.Title, r.Selections)
		}
	}
	return nil
}

func (p *Pipeline) archive(ctx context.Context, dc clock.DateContext, report string, selections int) {
	if p.deps.Archiver == nil {
		return
	}
	err := p.deps.Archiver.SaveReport(ctx, domain.DeliveredReport{
		Date:       dc.ISO,
		Title:      reportTitle,
		Body:       report,
		Selections: selections,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		p.logger.Warn("archiving report failed", "error", err)
	}
}
