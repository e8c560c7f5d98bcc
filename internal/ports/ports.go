package ports

import (
	"context"

	"GreyhoundTips/internal/domain"
)

// Completer generates free-form text from a prompt. The search-grounded path
// lets the model consult live web results; the plain path does not.
type Completer interface {
	CompleteWithSearch(ctx context.Context, prompt, dateISO string) (string, error)
	Complete(ctx context.Context, prompt string) (string, error)
}

// Notifier delivers formatted reports to the chat channel.
type Notifier interface {
	Publish(ctx context.Context, text, title string) error
	PublishPerSelection(ctx context.Context, text, title string) error
}

// Alerter carries operator-facing error notices on a separate channel.
type Alerter interface {
	Alert(ctx context.Context, text string) error
}

// Store persists the small JSON documents the bot works with. Reads never
// fail hard: a missing or unreadable file yields a defaulted document.
type Store interface {
	LoadPredictions(today string) domain.PredictionRecord
	SavePredictions(rec domain.PredictionRecord) error
	LoadStatus() domain.SchedulerStatus
	SaveStatus(st domain.SchedulerStatus) error
	LoadStats() domain.LearningStats
	SaveStats(st domain.LearningStats) error
}

// Archiver keeps a history of delivered reports for audit. Implementations
// must tolerate being absent (nil-safe callers).
type Archiver interface {
	SaveReport(ctx context.Context, report domain.DeliveredReport) error
	RecentReports(ctx context.Context, limit int) ([]domain.DeliveredReport, error)
}
