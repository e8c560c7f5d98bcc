package domain

import "time"

// Pick is a single selection recovered from the model's tips text.
// Extraction is best-effort: names may not correspond to any real greyhound.
type Pick struct {
	Name        string   `json:"greyhound_name"`
	SourceLine  string   `json:"race_info"`
	DetailLines []string `json:"prediction_details,omitempty"`
}

// PredictionRecord holds one civil day's extracted picks. It is overwritten
// daily; nothing is retained across days.
type PredictionRecord struct {
	Date        string `json:"date"`
	Predictions []Pick `json:"predictions"`
	GeneratedAt string `json:"generated_at"`
}

// LearningStats accumulates win/loss counters across results runs.
// TotalPredictions always equals SuccessfulPredictions + FailedPredictions.
type LearningStats struct {
	TotalPredictions      int      `json:"total_predictions"`
	SuccessfulPredictions int      `json:"successful_predictions"`
	FailedPredictions     int      `json:"failed_predictions"`
	WinRate               float64  `json:"win_rate"`
	SuccessfulPatterns    []string `json:"successful_patterns"`
	FailedPatterns        []string `json:"failed_patterns"`
	LearningInsights      []string `json:"learning_insights"`
}

// SchedulerStatus records which civil dates each daily trigger has already
// fired for, so a restart inside the trigger window cannot double-post.
type SchedulerStatus struct {
	LastMorningRun   string `json:"last_morning_run"`
	LastEveningRun   string `json:"last_evening_run"`
	LastRunTimestamp string `json:"last_run_timestamp"`
}

// DeliveredReport is the archived form of a report that reached the webhook.
type DeliveredReport struct {
	Date       string
	Title      string
	Body       string
	Selections int
	CreatedAt  time.Time
}
