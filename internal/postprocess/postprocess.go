package postprocess

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"GreyhoundTips/internal/clock"
)

const disclaimer = "⚠️ **DISCLAIMER**: Check current odds with your bookmaker before placing bets. Gamble responsibly."

const noPremiumNotice = "❌ No premium selections found today - all races lack strong confidence factors"

// Policy carries the literal markers the cleanup passes key on, versioned so
// marker-list changes are visible in logs.
type Policy struct {
	Version string

	// StepPrefixes are reasoning-scaffold headers the model sometimes
	// leaks despite instructions. Only exact prefixes are dropped so real
	// selection lines are never touched.
	StepPrefixes []string

	// ReasoningPrefixes tag lines from the model's internal-reasoning
	// channel when the API fails to separate them from the answer.
	ReasoningPrefixes []string

	// FakeDataIndicators are template fragments from the prompt itself.
	// Their presence means the model echoed the instructions back instead
	// of filling them in with real race data.
	FakeDataIndicators []string

	// NoDataIndicators mean the model reported finding no races at all.
	NoDataIndicators []string
}

func DefaultPolicy() Policy {
	return Policy{
		Version: "v1",
		StepPrefixes: []string{
			"**STEP", "STEP 1:", "STEP 2:", "STEP 3:", "STEP 4:", "STEP 5:",
		},
		ReasoningPrefixes: []string{
			"Thought:", "[thinking]", "(thinking)",
		},
		FakeDataIndicators: []string{
			"XX:XX",
			"[DOG NAME]",
			"[TRACK NAME]",
			"Track Name",
		},
		NoDataIndicators: []string{
			"❌ No current greyhound race data found",
			"No greyhound meetings found",
			"Unable to find race data",
			"No race meetings scheduled",
			"I was unable to find",
			"couldn't find any specific",
			"no specific race meetings",
		},
	}
}

// Selection-key extraction, in priority order. The first two capture both
// race number and track; the last pair is a weaker fallback. Track captures
// stay within one line: a class matching \n would swallow following detail
// lines and key the same race differently per notation.
var (
	raceThenTrackRe = regexp.MustCompile(`Race\s*(\d+).*?\|[ ]*([A-Za-z ]+)`)
	trackThenRaceRe = regexp.MustCompile(`([A-Za-z ]+)[ ]*\|[ ]*Race\s*(\d+)`)
	raceNumOnlyRe   = regexp.MustCompile(`Race\s*(\d+)`)
	trackOnlyRe     = regexp.MustCompile(`\|[ ]*([A-Za-z ]+?)[ ]*(?:\n|$)`)
)

// Tier headers and the canonical stake lines the normalizer enforces.
var stakeByHeader = []struct {
	header string
	stake  string
}{
	{"PREMIUM SELECTIONS (1.5 Units)", "💰 **Stake:** 1.5 Units | **Bet Type:** Win"},
	{"SOLID SELECTIONS (1.0 Units)", "💰 **Stake:** 1.0 Units | **Bet Type:** Win"},
	{"SPECULATIVE PLAYS (0.5 Units)", "💰 **Stake:** 0.5 Units | **Bet Type:** Each-Way"},
}

// Processor runs the ordered cleanup passes over a raw model response.
// Every pass is total: malformed input passes through unchanged rather
// than failing the run.
type Processor struct {
	policy Policy
	logger *slog.Logger
}

func NewProcessor(policy Policy, logger *slog.Logger) *Processor {
	return &Processor{
		policy: policy,
		logger: logger.With("component", "postprocess", "post_policy", policy.Version),
	}
}

// Process applies all passes in order and returns the publishable text.
func (p *Processor) Process(text string, dc clock.DateContext) string {
	text = dropLines(text, p.policy.ReasoningPrefixes)
	text = dropLines(text, p.policy.StepPrefixes)
	text = p.filterDiverseSelections(text)
	text = normalizeStakes(text)

	if hit := firstIndicator(text, p.policy.FakeDataIndicators); hit != "" {
		p.logger.Warn("template placeholders detected, replacing report", "indicator", hit)
		text = fakeDataMessage(dc)
	} else if hit := firstIndicator(text, p.policy.NoDataIndicators); hit != "" {
		p.logger.Warn("model reported no race data", "indicator", hit)
		text = noDataMessage(dc)
	}

	return appendDisclaimer(text)
}

func dropLines(text string, prefixes []string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		drop := false
		for _, prefix := range prefixes {
			if strings.HasPrefix(trimmed, prefix) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// raceKey extracts a "track_raceNumber" identity from one selection block.
// Empty means the block is unidentifiable and must be kept (fail open).
func raceKey(selection string) string {
	if m := raceThenTrackRe.FindStringSubmatch(selection); m != nil {
		return strings.ToLower(strings.TrimSpace(m[2])) + "_" + m[1]
	}
	if m := trackThenRaceRe.FindStringSubmatch(selection); m != nil {
		return strings.ToLower(strings.TrimSpace(m[1])) + "_" + m[2]
	}

	numMatch := raceNumOnlyRe.FindStringSubmatch(selection)
	trackMatch := trackOnlyRe.FindStringSubmatch(selection)
	if numMatch != nil && trackMatch != nil {
		return strings.ToLower(strings.TrimSpace(trackMatch[1])) + "_" + numMatch[1]
	}
	return ""
}

func isSelectionStart(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "🐕") && strings.Contains(line, "Race")
}

func isSectionHeader(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "**") &&
		(strings.Contains(line, "SELECTIONS") || strings.Contains(line, "PLAYS"))
}

// filterDiverseSelections drops every selection block whose (track, race)
// key was already seen, keeping the first occurrence. Blocks without an
// extractable key are always kept.
func (p *Processor) filterDiverseSelections(text string) string {
	lines := strings.Split(text, "\n")
	usedRaces := make(map[string]bool)
	var filtered []string
	var current []string
	inSelection := false

	flush := func() {
		if len(current) == 0 {
			return
		}
		key := raceKey(strings.Join(current, "\n"))
		if key == "" || !usedRaces[key] {
			filtered = append(filtered, current...)
			if key != "" {
				usedRaces[key] = true
			}
		} else {
			p.logger.Info("dropped duplicate race selection", "race_key", key)
		}
		current = nil
	}

	for _, line := range lines {
		switch {
		case isSelectionStart(line):
			flush()
			current = []string{line}
			inSelection = true
		case inSelection && isSectionHeader(line):
			flush()
			inSelection = false
			filtered = append(filtered, line)
		case inSelection:
			current = append(current, line)
		default:
			filtered = append(filtered, line)
		}
	}
	flush()

	return strings.Join(filtered, "\n")
}

// normalizeStakes rewrites every stake line to the canonical string for the
// tier section it sits in and inserts a notice when the premium section has
// no selections at all.
func normalizeStakes(text string) string {
	lines := strings.Split(text, "\n")
	fixed := make([]string, 0, len(lines))
	activeStake := ""

	for _, line := range lines {
		matched := false
		for _, tier := range stakeByHeader {
			if strings.Contains(line, tier.header) {
				activeStake = tier.stake
				matched = true
				break
			}
		}
		if matched {
			fixed = append(fixed, line)
			continue
		}

		if strings.HasPrefix(strings.TrimSpace(line), "💰 **Stake:**") && activeStake != "" {
			fixed = append(fixed, activeStake)
			continue
		}
		fixed = append(fixed, line)
	}

	return strings.Join(insertNoPremiumNotice(fixed), "\n")
}

func insertNoPremiumNotice(lines []string) []string {
	headerIdx := -1
	for i, line := range lines {
		if strings.Contains(line, stakeByHeader[0].header) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return lines
	}

	for i := headerIdx + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, "🐕") {
			return lines
		}
		if strings.Contains(trimmed, "SOLID SELECTIONS") || strings.Contains(trimmed, "SPECULATIVE PLAYS") {
			break
		}
		if strings.Contains(trimmed, "❌ No premium selections") {
			return lines
		}
	}

	out := make([]string, 0, len(lines)+3)
	out = append(out, lines[:headerIdx+1]...)
	out = append(out, "", noPremiumNotice, "")
	out = append(out, lines[headerIdx+1:]...)
	return out
}

func firstIndicator(text string, indicators []string) string {
	for _, indicator := range indicators {
		if strings.Contains(text, indicator) {
			return indicator
		}
	}
	return ""
}

func fakeDataMessage(dc clock.DateContext) string {
	return fmt.Sprintf(`🐕 Greyhound Racing Analysis - %s

⚠️ **SEARCH ISSUE DETECTED**

The analysis came back with template placeholders instead of real race data,
so it has been withheld.

📅 **Manual Check Required:**
- Visit TAB.com.au → Greyhounds for today's meetings
- Check TheDogs.com.au for race cards
- Review form guides on major racing websites

⚠️ **DISCLAIMER**: Check official racing websites for current race information.`, dc.LongForm)
}

func noDataMessage(dc clock.DateContext) string {
	return fmt.Sprintf(`🐕 Greyhound Racing Analysis - %s

🔍 **COMPREHENSIVE SEARCH COMPLETED**

Despite extensive searching, specific race meeting data was not found for %s.

📅 **SEARCH CONTEXT:**
- Date: %s (%s)
- Time: %s
- Searched: TAB, TheDogs, Racing.com, Sportsbet, venue-specific sites

💡 **RECOMMENDED NEXT STEPS:**
1. **Manual Check**: Visit TAB.com.au → Greyhounds → Today's Meetings
2. **TheDogs.com.au**: Check race cards section for %s
3. **Racing.com**: Look for %s greyhound meetings
4. **State-Specific**: Check GRV (VIC), RWWA (WA), Racing NSW

🏁 **TYPICAL VENUES TO CHECK:**
- **NSW**: Gosford, Bulli, Richmond, Wentworth Park
- **VIC**: Sandown, Healesville, Warragul
- **QLD**: Albion Park, Ipswich, Townsville
- **SA**: Murray Bridge, Angle Park
- **WA**: Cannington, Mandurah

⏰ **TIMING NOTE:**
- If it's early morning, evening meeting cards may not be published yet
- Check back after 12:00 PM for evening meetings
- Weekend schedules are typically published earlier

⚠️ **DISCLAIMER**: Racing schedules can vary. Always check official sources for the most current information.`,
		dc.LongForm, dc.LongForm, dc.LongForm, dc.ISO, dc.TimeOfDay, dc.ISO, dc.LongForm)
}

func appendDisclaimer(text string) string {
	if strings.Contains(text, "⚠️ **DISCLAIMER**") {
		return text
	}
	return text + "\n\n" + disclaimer
}
