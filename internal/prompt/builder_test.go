package prompt

import (
	"strings"
	"testing"
	"time"

	"GreyhoundTips/internal/clock"
)

func testDateContext() clock.DateContext {
	return clock.DateContext{
		Date:      time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC),
		ISO:       "2026-01-15",
		LongForm:  "Thursday, 15 January 2026",
		TimeOfDay: "09:00 AWST",
	}
}

func TestDefaultPolicyWeightsSumTo100(t *testing.T) {
	t.Parallel()

	total := 0
	for _, f := range DefaultPolicy().Scoring {
		total += f.Weight
	}
	if total != 100 {
		t.Fatalf("scoring weights sum to %d, want 100", total)
	}
}

func TestTipsPromptContent(t *testing.T) {
	t.Parallel()

	b := NewBuilder(DefaultPolicy())
	got := b.TipsPrompt(testDateContext(), "")

	for _, want := range []string{
		"DATE ANCHOR",
		"Thursday, 15 January 2026",
		"2026-01-15",
		"MAXIMUM ONE GREYHOUND PER RACE",
		`"Gosford greyhound racing 2026-01-15"`,
		`"Mandurah greyhound racing 2026-01-15"`,
		"NSW TRACKS:",
		"WA TRACKS:",
		"SCORING RUBRIC (100 POINTS)",
		"Recent form (last 3 starts): 30 points",
		"**🏆 PREMIUM SELECTIONS (1.5 Units)**",
		"💰 **Stake:** 0.5 Units | **Bet Type:** Each-Way",
		"EXCLUDE any race that has already started",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("tips prompt missing %q", want)
		}
	}

	if strings.Contains(got, "INSIGHTS FROM PREVIOUS RESULTS") {
		t.Error("insights section should be absent without learning notes")
	}
}

func TestTipsPromptAppendsLearningNotes(t *testing.T) {
	t.Parallel()

	b := NewBuilder(DefaultPolicy())
	got := b.TipsPrompt(testDateContext(), "Box 1 winners outperform at Cannington")

	if !strings.Contains(got, "# INSIGHTS FROM PREVIOUS RESULTS") {
		t.Fatal("insights section missing")
	}
	if !strings.Contains(got, "Box 1 winners outperform at Cannington") {
		t.Fatal("learning notes not appended")
	}
}

func TestTipsPromptVenueNumbering(t *testing.T) {
	t.Parallel()

	b := NewBuilder(DefaultPolicy())
	got := b.TipsPrompt(testDateContext(), "")

	// Venue searches continue the numbering after the four mandatory searches.
	if !strings.Contains(got, `5. "Gosford greyhound racing 2026-01-15"`) {
		t.Error("venue numbering should start at 5")
	}
	if !strings.Contains(got, `22. "Mandurah greyhound racing 2026-01-15"`) {
		t.Error("venue numbering should end at 22")
	}
}

func TestResultsPromptContent(t *testing.T) {
	t.Parallel()

	b := NewBuilder(DefaultPolicy())
	got := b.ResultsPrompt(testDateContext())

	for _, want := range []string{
		"GREYHOUND RACE RESULTS ANALYSIS",
		`"greyhound racing results Australia 2026-01-15"`,
		"🥇 Winner: GREYHOUND NAME",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("results prompt missing %q", want)
		}
	}
}
