package postprocess

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"GreyhoundTips/internal/clock"
)

func testProcessor() *Processor {
	return NewProcessor(DefaultPolicy(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testDC() clock.DateContext {
	return clock.DateContext{
		ISO:       "2026-01-15",
		LongForm:  "Thursday, 15 January 2026",
		TimeOfDay: "09:00 AWST",
	}
}

func selection(name, race, track, stake string) string {
	return "🐕 **" + name + "** | Race " + race + " | " + track + "\n" +
		"📦 **Box:** 1 | ⏰ **Time:** 14:05 AWST | 📏 **Distance:** 520m\n" +
		"💰 **Stake:** " + stake + "\n" +
		"📊 **Key Factors:** Strong early speed\n" +
		"💡 **Analysis:** Drawn to lead\n"
}

func TestStripStepMarkers(t *testing.T) {
	t.Parallel()

	in := "STEP 1: search all venues\n**STEP 2** analyse form\nkeep this line\n\nand this one"
	got := dropLines(in, DefaultPolicy().StepPrefixes)

	if strings.Contains(got, "STEP") {
		t.Fatalf("step markers survived: %q", got)
	}
	if !strings.Contains(got, "keep this line") || !strings.Contains(got, "and this one") {
		t.Fatalf("content lines lost: %q", got)
	}
	if !strings.Contains(got, "\n\n") {
		t.Fatalf("blank lines must be preserved: %q", got)
	}
}

func TestFilterDropsDuplicateRace(t *testing.T) {
	t.Parallel()

	in := "**🏆 PREMIUM SELECTIONS (1.5 Units)**\n\n" +
		selection("Fast Dog", "6", "Richmond", "1.5 Units | **Bet Type:** Win") + "\n" +
		selection("Slow Dog", "6", "Richmond", "1.5 Units | **Bet Type:** Win") + "\n" +
		selection("Other Dog", "3", "Mandurah", "1.5 Units | **Bet Type:** Win")

	got := testProcessor().filterDiverseSelections(in)

	if !strings.Contains(got, "Fast Dog") {
		t.Error("first selection for a race must be kept")
	}
	if strings.Contains(got, "Slow Dog") {
		t.Error("duplicate race selection must be dropped")
	}
	if !strings.Contains(got, "Other Dog") {
		t.Error("distinct race selection must be kept")
	}
}

func TestFilterKeepsTrackFirstFormat(t *testing.T) {
	t.Parallel()

	in := "🐕 **Dog A** | Richmond | Race 6\nnotes\n\n🐕 **Dog B** | Race 6 | Richmond\nnotes\n"

	got := testProcessor().filterDiverseSelections(in)

	if !strings.Contains(got, "Dog A") {
		t.Error("first block must survive")
	}
	if strings.Contains(got, "Dog B") {
		t.Error("same race in the other notation must be dropped")
	}
}

func TestRaceKeyStaysWithinMarkerLine(t *testing.T) {
	t.Parallel()

	// Plain-letter detail lines must not leak into the track capture,
	// or the same race keys differently depending on notation.
	raceFirst := "🐕 **Dog A** | Race 6 | Richmond\nstrong early pace\nproven stayer"
	trackFirst := "🐕 **Dog B** | Richmond | Race 6\ngood recent form"

	if got := raceKey(raceFirst); got != "richmond_6" {
		t.Fatalf("race-first key = %q, want richmond_6", got)
	}
	if got := raceKey(trackFirst); got != "richmond_6" {
		t.Fatalf("track-first key = %q, want richmond_6", got)
	}
}

func TestFilterFailsOpenOnUnextractableBlocks(t *testing.T) {
	t.Parallel()

	in := "🐕 **Mystery Dog** Race unknown venue\nnotes\n\n🐕 **Another Mystery** Race somewhere\nnotes\n"

	got := testProcessor().filterDiverseSelections(in)

	if !strings.Contains(got, "Mystery Dog") || !strings.Contains(got, "Another Mystery") {
		t.Fatalf("blocks without an extractable key must be kept: %q", got)
	}
}

func TestFilterIdempotent(t *testing.T) {
	t.Parallel()

	in := "**🏆 PREMIUM SELECTIONS (1.5 Units)**\n\n" +
		selection("Fast Dog", "6", "Richmond", "1.5 Units | **Bet Type:** Win") + "\n" +
		selection("Slow Dog", "6", "Richmond", "1.5 Units | **Bet Type:** Win")

	p := testProcessor()
	once := p.filterDiverseSelections(in)
	twice := p.filterDiverseSelections(once)

	if once != twice {
		t.Fatalf("filter is not idempotent:\nonce:  %q\ntwice: %q", once, twice)
	}
}

func TestNormalizeStakesRewritesWrongAmounts(t *testing.T) {
	t.Parallel()

	in := "**🏆 PREMIUM SELECTIONS (1.5 Units)**\n" +
		selection("Fast Dog", "6", "Richmond", "3.0 Units | **Bet Type:** Place") +
		"**💡 SPECULATIVE PLAYS (0.5 Units)**\n" +
		selection("Long Shot", "2", "Gosford", "2.0 Units | **Bet Type:** Win")

	got := normalizeStakes(in)

	if !strings.Contains(got, "💰 **Stake:** 1.5 Units | **Bet Type:** Win") {
		t.Error("premium stake not normalized")
	}
	if !strings.Contains(got, "💰 **Stake:** 0.5 Units | **Bet Type:** Each-Way") {
		t.Error("speculative stake not normalized")
	}
	if strings.Contains(got, "3.0 Units") || strings.Contains(got, "2.0 Units") {
		t.Errorf("original stake amounts survived: %q", got)
	}
}

func TestNormalizeStakesLeavesOrphanLines(t *testing.T) {
	t.Parallel()

	in := "💰 **Stake:** 9.9 Units | **Bet Type:** Win"
	got := normalizeStakes(in)

	if !strings.Contains(got, "9.9 Units") {
		t.Fatal("stake line outside any section must be untouched")
	}
}

func TestNormalizeStakesInsertsNoPremiumNotice(t *testing.T) {
	t.Parallel()

	in := "**🏆 PREMIUM SELECTIONS (1.5 Units)**\n\n" +
		"**⭐ SOLID SELECTIONS (1.0 Units)**\n" +
		selection("Steady Dog", "4", "Sandown", "1.0 Units | **Bet Type:** Win")

	got := normalizeStakes(in)

	if !strings.Contains(got, noPremiumNotice) {
		t.Fatal("empty premium section should get the notice")
	}

	// A second application must not duplicate the notice.
	again := normalizeStakes(got)
	if strings.Count(again, noPremiumNotice) != 1 {
		t.Fatalf("notice duplicated: %d occurrences", strings.Count(again, noPremiumNotice))
	}
}

func TestProcessReplacesTemplateEcho(t *testing.T) {
	t.Parallel()

	in := "🐕 **[DOG NAME]** | Race [X] | [TRACK NAME]\n⏰ **Time:** [XX:XX AWST]"
	got := testProcessor().Process(in, testDC())

	if strings.Contains(got, "[DOG NAME]") {
		t.Fatal("template echo must not be published")
	}
	if !strings.Contains(got, "SEARCH ISSUE DETECTED") {
		t.Fatalf("expected search-issue message, got %q", got)
	}
}

func TestProcessReplacesNoDataReport(t *testing.T) {
	t.Parallel()

	in := "I searched extensively but found No greyhound meetings found for today."
	got := testProcessor().Process(in, testDC())

	if !strings.Contains(got, "COMPREHENSIVE SEARCH COMPLETED") {
		t.Fatalf("expected no-meetings message, got %q", got)
	}
	if !strings.Contains(got, "2026-01-15") {
		t.Fatal("no-meetings message should carry the date")
	}
}

func TestProcessAppendsDisclaimerOnce(t *testing.T) {
	t.Parallel()

	p := testProcessor()
	in := "**🏆 PREMIUM SELECTIONS (1.5 Units)**\n" +
		selection("Fast Dog", "6", "Richmond", "1.5 Units | **Bet Type:** Win")

	once := p.Process(in, testDC())
	if strings.Count(once, "⚠️ **DISCLAIMER**") != 1 {
		t.Fatalf("expected exactly one disclaimer, got %d", strings.Count(once, "⚠️ **DISCLAIMER**"))
	}

	twice := p.Process(once, testDC())
	if strings.Count(twice, "⚠️ **DISCLAIMER**") != 1 {
		t.Fatal("disclaimer must not be duplicated on reprocessing")
	}
}

func TestProcessTotalOnMalformedInput(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "\n\n\n", "🐕", "💰 **Stake:**"} {
		got := testProcessor().Process(in, testDC())
		if !strings.Contains(got, "⚠️ **DISCLAIMER**") {
			t.Errorf("input %q: disclaimer missing", in)
		}
	}
}
