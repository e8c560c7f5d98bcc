package retry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"GreyhoundTips/internal/clock"
	"GreyhoundTips/internal/ports"
)

// recoveryBody is delivered when every generation attempt fails, so
// subscribers still get actionable guidance instead of silence.
const recoveryBody = `⚠️ **System Recovery Mode**

Automated tip generation is temporarily unavailable. Please check races manually:

**📋 MANUAL CHECK SOURCES:**
• TAB.com.au - Today's greyhound meetings
• TheDogs.com.au - Race cards and form guides
• Racing.com - Results and schedules

**🏁 EXPECTED VENUES TODAY:**
• NSW: Gosford, Bulli, Richmond
• VIC: Sandown, Healesville, Warragul
• QLD: Albion Park, Ipswich, Townsville
• SA: Murray Bridge, Angle Park
• WA: Cannington, Mandurah

**💡 GENERAL GUIDELINES:**
• Focus on boxes 1-4 for early speed
• Check recent form (last 3 starts)
• Look for track/distance specialists
• Avoid first-time starters in feature races

⚠️ **DISCLAIMER**: Check current odds with your bookmaker before placing bets. Gamble responsibly.`

// Orchestrator wraps a completer with fixed-delay retries, the
// plain-generation fallback and the operator alert on exhaustion.
type Orchestrator struct {
	completer   ports.Completer
	alerter     ports.Alerter
	maxAttempts int
	delay       time.Duration
	minLength   int
	logger      *slog.Logger

	newBackOff func() backoff.BackOff
}

func NewOrchestrator(completer ports.Completer, alerter ports.Alerter, maxAttempts int, delay time.Duration, minLength int, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		completer:   completer,
		alerter:     alerter,
		maxAttempts: maxAttempts,
		delay:       delay,
		minLength:   minLength,
		logger:      logger.With("component", "retry"),
	}
	o.newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(o.delay), uint64(o.maxAttempts-1))
	}
	return o
}

// Generate produces a report body, never an error: after the final failed
// attempt it alerts the operator and returns the recovery body.
func (o *Orchestrator) Generate(ctx context.Context, prompt string, dc clock.DateContext) string {
	var result string
	var lastErr error
	attempt := 0

	operation := func() error {
		attempt++
		text, err := o.attempt(ctx, prompt, dc)
		if err != nil {
			lastErr = err
			o.logger.Warn("generation attempt failed",
				"attempt", attempt, "max_attempts", o.maxAttempts, "error", err)
			return err
		}
		result = text
		return nil
	}

	strategy := backoff.WithContext(o.newBackOff(), ctx)
	if err := backoff.Retry(operation, strategy); err != nil {
		o.logger.Error("all generation attempts failed", "attempts", attempt, "error", lastErr)
		o.alert(ctx, dc, lastErr)
		return recoveryBody
	}

	o.logger.Info("generation succeeded", "attempt", attempt, "length", len(result))
	return result
}

// attempt tries the search-grounded path first and falls back to plain
// generation when it fails or comes back too short to be a real report.
func (o *Orchestrator) attempt(ctx context.Context, prompt string, dc clock.DateContext) (string, error) {
	text, err := o.completer.CompleteWithSearch(ctx, prompt, dc.ISO)
	if err == nil && o.acceptable(text) {
		return text, nil
	}
	if err != nil {
		o.logger.Warn("search-grounded generation failed, trying plain", "error", err)
	} else {
		o.logger.Warn("search-grounded response too short, trying plain", "length", len(strings.TrimSpace(text)))
	}

	text, err = o.completer.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	if !o.acceptable(text) {
		return "", fmt.Errorf("response too short: %d chars", len(strings.TrimSpace(text)))
	}
	return text, nil
}

func (o *Orchestrator) acceptable(text string) bool {
	return len(strings.TrimSpace(text)) > o.minLength
}

func (o *Orchestrator) alert(ctx context.Context, dc clock.DateContext, cause error) {
	msg := fmt.Sprintf(`🚨 **TECHNICAL ERROR - GREYHOUND BOT**

Tip generation failed after %d attempts.

**Error:** %v
**Date:** %s
**Time:** %s

Manual intervention may be required.`, o.maxAttempts, cause, dc.ISO, dc.TimeOfDay)

	if err := o.alerter.Alert(ctx, msg); err != nil {
		o.logger.Error("operator alert failed", "error", err)
	}
}
