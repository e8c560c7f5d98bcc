package usecase

import (
	"context"
	"log/slog"
	"time"

	"GreyhoundTips/internal/domain"
	"GreyhoundTips/internal/ports"
)

const (
	pollInterval   = time.Minute
	statusInterval = 30 * time.Minute
)

// Trigger is a daily wall-clock firing time in the anchor timezone.
type Trigger struct {
	Hour   int
	Minute int
}

// Scheduler fires the tips run and the results run once per civil day each,
// inside a short window after their trigger times. The fired-marker is
// persisted only after the action succeeds, so a failed run is retried on
// the next poll within the window.
//
// Markers are held in memory and only seeded from the store once, so a
// failing status write degrades restart protection but never re-fires an
// action within the same process.
type Scheduler struct {
	Tips    func(ctx context.Context) error
	Results func(ctx context.Context) error

	store          ports.Store
	anchor         *time.Location
	tipsTrigger    Trigger
	resultsTrigger Trigger
	window         time.Duration
	logger         *slog.Logger

	now func() time.Time

	status       domain.SchedulerStatus
	statusLoaded bool
}

func NewScheduler(store ports.Store, anchor *time.Location, tips, results Trigger, window time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:          store,
		anchor:         anchor,
		tipsTrigger:    tips,
		resultsTrigger: results,
		window:         window,
		logger:         logger.With("component", "scheduler"),
		now:            time.Now,
	}
}

// Run polls the clock once a minute until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"tips", s.tipsTrigger, "results", s.resultsTrigger, "timezone", s.anchor.String())

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	lastStatus := s.now()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			now := s.now()
			s.tick(ctx, now)
			if now.Sub(lastStatus) >= statusInterval {
				s.logStatus(now)
				lastStatus = now
			}
		}
	}
}

// tick runs at most one due action for the current poll.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	local := now.In(s.anchor)
	today := local.Format("2006-01-02")
	if !s.statusLoaded {
		s.status = s.store.LoadStatus()
		s.statusLoaded = true
	}

	if s.due(local, s.tipsTrigger) && s.status.LastMorningRun != today {
		s.fire(ctx, "tips", s.Tips, func() {
			s.status.LastMorningRun = today
			s.status.LastRunTimestamp = local.Format(time.RFC3339)
			s.saveStatus(s.status)
		})
		return
	}

	if s.due(local, s.resultsTrigger) && s.status.LastEveningRun != today {
		s.fire(ctx, "results", s.Results, func() {
			s.status.LastEveningRun = today
			s.status.LastRunTimestamp = local.Format(time.RFC3339)
			s.saveStatus(s.status)
		})
	}
}

// due reports whether local falls inside the trigger's firing window.
func (s *Scheduler) due(local time.Time, trigger Trigger) bool {
	start := time.Date(local.Year(), local.Month(), local.Day(),
		trigger.Hour, trigger.Minute, 0, 0, s.anchor)
	return !local.Before(start) && local.Sub(start) <= s.window
}

func (s *Scheduler) fire(ctx context.Context, name string, action func(ctx context.Context) error, markDone func()) {
	if action == nil {
		return
	}
	s.logger.Info("trigger fired", "action", name)

	defer func() {
		if r := recover(); r != nil {
			// Marker stays unset so the next in-window poll retries.
			s.logger.Error("scheduled action panicked", "action", name, "panic", r)
		}
	}()

	if err := action(ctx); err != nil {
		// Marker left unset: the next poll inside the window retries.
		s.logger.Error("scheduled action failed", "action", name, "error", err)
		return
	}
	markDone()
	s.logger.Info("scheduled action completed", "action", name)
}

func (s *Scheduler) saveStatus(status domain.SchedulerStatus) {
	if err := s.store.SaveStatus(status); err != nil {
		s.logger.Error("persisting scheduler status failed", "error", err)
	}
}

func (s *Scheduler) logStatus(now time.Time) {
	status := s.status
	if !s.statusLoaded {
		status = s.store.LoadStatus()
	}
	s.logger.Info("scheduler alive",
		"local_time", now.In(s.anchor).Format("15:04"),
		"last_tips_run", status.LastMorningRun,
		"last_results_run", status.LastEveningRun)
}
