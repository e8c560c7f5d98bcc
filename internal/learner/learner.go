package learner

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"GreyhoundTips/internal/clock"
	"GreyhoundTips/internal/domain"
	"GreyhoundTips/internal/ports"
	"GreyhoundTips/internal/prompt"
)

const (
	maxPatterns = 50
	maxInsights = 20
)

var (
	pickNameRe = regexp.MustCompile(`🐕 \*\*(.*?)\*\*`)
	winnerRe   = regexp.MustCompile(`(?i)Winner:\s*([A-Za-z'’\-\.\s]+)`)
)

// Generator produces a model response for a prompt, never failing hard.
type Generator interface {
	Generate(ctx context.Context, prompt string, dc clock.DateContext) string
}

// Learner closes the loop on published tips: it fetches the day's results,
// scores each pick with a best-effort winner match and accumulates stats
// that feed back into future prompts.
type Learner struct {
	generator Generator
	builder   *prompt.Builder
	store     ports.Store
	notifier  ports.Notifier
	logger    *slog.Logger
}

func New(generator Generator, builder *prompt.Builder, store ports.Store, notifier ports.Notifier, logger *slog.Logger) *Learner {
	return &Learner{
		generator: generator,
		builder:   builder,
		store:     store,
		notifier:  notifier,
		logger:    logger.With("component", "learner"),
	}
}

// ExtractPicks pulls the named selections out of a published report. Lines
// that open a selection block carry the dog name in bold.
func ExtractPicks(report string) []domain.Pick {
	var picks []domain.Pick
	current := -1

	for _, line := range strings.Split(report, "\n") {
		if strings.HasPrefix(line, "🐕 **") && strings.Contains(line, "Race") {
			if m := pickNameRe.FindStringSubmatch(line); m != nil {
				picks = append(picks, domain.Pick{Name: m[1], SourceLine: line})
				current = len(picks) - 1
				continue
			}
		}
		if current >= 0 && strings.TrimSpace(line) != "" {
			picks[current].DetailLines = append(picks[current].DetailLines, line)
		} else {
			current = -1
		}
	}
	return picks
}

// InsightNotes renders the accumulated insight lines for prompt injection.
// Empty when there is no history yet.
func (l *Learner) InsightNotes() string {
	stats := l.store.LoadStats()
	if len(stats.LearningInsights) == 0 {
		return ""
	}
	return strings.Join(stats.LearningInsights, "\n")
}

// AnalyzeResults fetches today's race results, scores the day's stored
// picks against them and publishes a combined summary.
func (l *Learner) AnalyzeResults(ctx context.Context, dc clock.DateContext) error {
	record := l.store.LoadPredictions(dc.ISO)
	if len(record.Predictions) == 0 {
		l.logger.Info("no stored picks to score", "date", dc.ISO)
		return nil
	}

	results := l.generator.Generate(ctx, l.builder.ResultsPrompt(dc), dc)

	analysis := l.score(record, results, dc)

	body := fmt.Sprintf(`📊 DAILY GREYHOUND RESULTS & LEARNING (Perth)

%s

---
🧠 LEARNING ANALYSIS
%s`, results, analysis)

	if err := l.notifier.Publish(ctx, body, "🌇 Greyhound Results & Learning - 7PM Perth"); err != nil {
		return fmt.Errorf("publish results summary: %w", err)
	}
	return nil
}

// score marks each pick won or lost by matching its name against the
// winner lines the model reported. Substring matching is crude but the
// results text has no stable structure to do better against.
func (l *Learner) score(record domain.PredictionRecord, results string, dc clock.DateContext) string {
	winners := make([]string, 0)
	for _, m := range winnerRe.FindAllStringSubmatch(results, -1) {
		winners = append(winners, strings.ToLower(strings.TrimSpace(m[1])))
	}

	stats := l.store.LoadStats()
	correct := 0
	var summary []string

	for _, pick := range record.Predictions {
		if l.won(pick.Name, winners) {
			correct++
			summary = append(summary, fmt.Sprintf("✅ %s - CORRECT (Won)", pick.Name))
			stats.SuccessfulPatterns = capAppend(stats.SuccessfulPatterns,
				patternLines("WINNER", pick), maxPatterns)
		} else {
			summary = append(summary, fmt.Sprintf("❌ %s - FAILED (Did not win)", pick.Name))
			stats.FailedPatterns = capAppend(stats.FailedPatterns,
				patternLines("FAILED", pick), maxPatterns)
		}
	}

	total := len(record.Predictions)
	stats.TotalPredictions += total
	stats.SuccessfulPredictions += correct
	stats.FailedPredictions += total - correct
	if stats.TotalPredictions > 0 {
		stats.WinRate = float64(stats.SuccessfulPredictions) / float64(stats.TotalPredictions) * 100
	}
	stats.LearningInsights = capAppend(stats.LearningInsights,
		[]string{fmt.Sprintf("%s: %d/%d correct (%.1f%%)",
			record.Date, correct, total, float64(correct)/float64(total)*100)},
		maxInsights)

	if err := l.store.SaveStats(stats); err != nil {
		l.logger.Error("saving learning stats failed", "error", err)
	}

	l.logger.Info("scored daily picks", "date", dc.ISO, "total", total, "correct", correct)
	return strings.Join(summary, "\n")
}

func (l *Learner) won(name string, winners []string) bool {
	if name == "" {
		return false
	}
	lowered := strings.ToLower(name)
	for _, winner := range winners {
		if winner != "" && strings.Contains(winner, lowered) {
			return true
		}
	}
	return false
}

func patternLines(tag string, pick domain.Pick) []string {
	var lines []string
	for _, detail := range pick.DetailLines {
		if strings.Contains(detail, "Box:") || strings.Contains(detail, "Track:") || strings.Contains(detail, "Key Factors:") {
			lines = append(lines, fmt.Sprintf("%s - %s: %s", tag, pick.Name, strings.TrimSpace(detail)))
		}
	}
	return lines
}

// capAppend appends items while keeping only the most recent limit entries.
func capAppend(existing, items []string, limit int) []string {
	existing = append(existing, items...)
	if len(existing) > limit {
		existing = existing[len(existing)-limit:]
	}
	return existing
}
