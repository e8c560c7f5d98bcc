package clock

import (
	"log/slog"
	"time"
)

const (
	isoDateFormat  = "2006-01-02"
	longDateFormat = "Monday, 02 January 2006"
	timeOfDayFmt   = "15:04 MST"
)

// DateContext is the resolved "today" every downstream component agrees on.
// Date is anchored to the racing-calendar timezone while TimeOfDay is
// rendered in the display timezone.
type DateContext struct {
	Date      time.Time
	ISO       string
	LongForm  string
	TimeOfDay string
}

// Resolver produces the date context for a run, honouring an optional
// fixed date override.
type Resolver struct {
	anchor   *time.Location
	display  *time.Location
	override string
	now      func() time.Time
	logger   *slog.Logger
}

func NewResolver(anchor, display *time.Location, override string, logger *slog.Logger) *Resolver {
	return &Resolver{
		anchor:   anchor,
		display:  display,
		override: override,
		now:      time.Now,
		logger:   logger.With("component", "clock"),
	}
}

// Resolve returns the current date context. A malformed override is logged
// and ignored rather than failing the run.
func (r *Resolver) Resolve() DateContext {
	now := r.now().In(r.anchor)

	if r.override != "" {
		parsed, err := time.ParseInLocation(isoDateFormat, r.override, r.anchor)
		if err != nil {
			r.logger.Warn("ignoring malformed date override", "value", r.override, "error", err)
		} else {
			now = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 12, 0, 0, 0, r.anchor)
			r.logger.Info("using date override", "date", r.override)
		}
	}

	return DateContext{
		Date:      now,
		ISO:       now.Format(isoDateFormat),
		LongForm:  now.Format(longDateFormat),
		TimeOfDay: now.In(r.display).Format(timeOfDayFmt),
	}
}
