package prompt

import (
	"fmt"
	"strings"

	"GreyhoundTips/internal/clock"
)

// Tier describes one confidence band of the staking ladder. Header is the
// section heading the model must emit and StakeLine the canonical stake row
// under every selection in that band.
type Tier struct {
	Name      string
	Units     string
	BetType   string
	Header    string
	StakeLine string
}

// ScoringFactor is one weighted component of the selection rubric. Weights
// across a policy always sum to 100.
type ScoringFactor struct {
	Name   string
	Weight int
}

// Policy versions the analyst instructions so prompt changes are visible in
// logs and archived reports.
type Policy struct {
	Version       string
	Scoring       []ScoringFactor
	Tiers         [3]Tier
	VenueSearches []string
	MinSelections int
	MaxSelections int
}

// DefaultPolicy returns the current production tipping policy.
func DefaultPolicy() Policy {
	return Policy{
		Version: "v1",
		Scoring: []ScoringFactor{
			{Name: "Recent form (last 3 starts)", Weight: 30},
			{Name: "Box draw and early speed", Weight: 25},
			{Name: "Track and distance record", Weight: 20},
			{Name: "Class and grade suitability", Weight: 15},
			{Name: "Trainer strike rate", Weight: 10},
		},
		Tiers: [3]Tier{
			{
				Name:      "Premium",
				Units:     "1.5",
				BetType:   "Win",
				Header:    "**🏆 PREMIUM SELECTIONS (1.5 Units)**",
				StakeLine: "💰 **Stake:** 1.5 Units | **Bet Type:** Win",
			},
			{
				Name:      "Solid",
				Units:     "1.0",
				BetType:   "Win",
				Header:    "**⭐ SOLID SELECTIONS (1.0 Units)**",
				StakeLine: "💰 **Stake:** 1.0 Units | **Bet Type:** Win",
			},
			{
				Name:      "Speculative",
				Units:     "0.5",
				BetType:   "Each-Way",
				Header:    "**💡 SPECULATIVE PLAYS (0.5 Units)**",
				StakeLine: "💰 **Stake:** 0.5 Units | **Bet Type:** Each-Way",
			},
		},
		VenueSearches: []string{
			"NSW:Gosford", "NSW:Bulli", "NSW:Richmond", "NSW:Dapto", "NSW:Wentworth Park",
			"VIC:Sandown", "VIC:Healesville", "VIC:Warragul", "VIC:Geelong", "VIC:Ballarat",
			"QLD:Albion Park", "QLD:Ipswich", "QLD:Townsville", "QLD:Capalaba",
			"SA:Murray Bridge", "SA:Angle Park",
			"WA:Cannington", "WA:Mandurah",
		},
		MinSelections: 4,
		MaxSelections: 8,
	}
}

// Builder renders the analyst prompts from a policy and a date context.
type Builder struct {
	policy Policy
}

func NewBuilder(policy Policy) *Builder {
	return &Builder{policy: policy}
}

func (b *Builder) Policy() Policy {
	return b.policy
}

// TipsPrompt builds the daily selections request. learningNotes, when
// non-empty, carries accumulated insight lines from previous result
// analyses and is appended verbatim.
func (b *Builder) TipsPrompt(dc clock.DateContext, learningNotes string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, `You are an expert greyhound racing analyst with access to real-time web search.

# DATE ANCHOR (DO NOT CHANGE)
Assume the current date is %s and the current time is %s in the Australia/Sydney time zone (AEST/AEDT as appropriate).
Treat %s (%s) as "today" for all searches and decisions, even if your system clock or any website shows a different date.
Do not reinterpret this as a future date.

CRITICAL DATE VALIDATION: Only select greyhounds racing on %s. Verify each selection is actually racing on %s.
If a greyhound is racing on a different date, DO NOT include it.
EXCLUDE any race that has already started or finished by %s.

# CRITICAL SELECTION RULES
🚨 MAXIMUM ONE GREYHOUND PER RACE - Never select multiple dogs from the same race
🚨 SCAN ALL MEETINGS - Cover as many different tracks and meetings as possible
🚨 DIVERSIFICATION MANDATORY - Spread selections across different venues and race numbers
🚨 MAXIMUM 1.5 UNITS STAKE - Never recommend stakes above 1.5 units per selection
🚨 CORRECT STAKING - Premium=1.5 units, Solid=1.0 units, Speculative=0.5 units ONLY

CRITICAL: If you find multiple good dogs in the same race, pick ONLY the best one.
NEVER put two dogs from Race 6 Richmond, or Race 9 Mandurah, etc.

# WEB SEARCH INSTRUCTIONS & COMPREHENSIVE COVERAGE
You have access to web search tools. Search ALL major Australian greyhound venues:

MANDATORY COMPREHENSIVE SEARCHES (use web search tools for each):
1. "greyhound racing meetings Australia %s all venues"
2. "TAB greyhound racing %s today complete schedule"
3. "thedogs.com.au race cards %s all meetings"
4. "Australian greyhound racing fixtures %s nationwide"

COMPREHENSIVE VENUE SEARCHES (search each major track):
`, dc.LongForm, dc.TimeOfDay, dc.LongForm, dc.ISO, dc.ISO, dc.LongForm, dc.TimeOfDay,
		dc.ISO, dc.ISO, dc.ISO, dc.LongForm)

	b.writeVenueSearches(&sb, dc.ISO)

	fmt.Fprintf(&sb, `
# SCORING RUBRIC (100 POINTS)
Score every candidate out of 100 before tiering:
`)
	for _, f := range b.policy.Scoring {
		fmt.Fprintf(&sb, "- %s: %d points\n", f.Name, f.Weight)
	}
	fmt.Fprintf(&sb, `Premium selections need 80+, solid 65+, speculative 50+.

# ANALYSIS REQUIREMENTS
1) Search EVERY major greyhound venue for %s meetings
2) Find races across ALL states - NSW, VIC, QLD, SA, WA
3) Select MAXIMUM ONE greyhound per race (never multiple from same race)
4) Provide detailed unit staking recommendations (0.5 to 1.5 units max)
5) Focus on finding %d-%d quality selections across different tracks

# STAKING SYSTEM (MANDATORY)
- **1.5 UNITS**: Premium selections with multiple strong factors
- **1.0 UNITS**: Solid selections with good form/draw combination
- **0.5 UNITS**: Speculative plays or each-way chances
- **NEVER exceed 1.5 units on any single selection**

# OUTPUT FORMAT (MANDATORY STRUCTURE)

🐕 **GREYHOUND SELECTIONS FOR %s:**

`, dc.LongForm, b.policy.MinSelections, b.policy.MaxSelections, dc.LongForm)

	for _, tier := range b.policy.Tiers {
		fmt.Fprintf(&sb, `%s

🐕 **[DOG NAME]** | Race [X] | [TRACK NAME]
📦 **Box:** [X] | ⏰ **Time:** [XX:XX AWST] | 📏 **Distance:** [XXX]m
%s
📊 **Key Factors:** [List 2-3 strongest factors]
💡 **Analysis:** [Brief reasoning]

`, tier.Header, tier.StakeLine)
	}

	sb.WriteString("CRITICAL: Never select multiple greyhounds from the same race. " +
		"Always spread selections across different tracks and race numbers. " +
		"Keep unit stakes between 0.5-1.5 maximum.")

	if learningNotes != "" {
		sb.WriteString("\n\n# INSIGHTS FROM PREVIOUS RESULTS\n")
		sb.WriteString(learningNotes)
	}

	return sb.String()
}

func (b *Builder) writeVenueSearches(sb *strings.Builder, iso string) {
	n := 4
	lastState := ""
	for _, venue := range b.policy.VenueSearches {
		state, track, ok := strings.Cut(venue, ":")
		if !ok {
			track = venue
			state = ""
		}
		if state != lastState {
			if lastState != "" {
				sb.WriteString("\n")
			}
			fmt.Fprintf(sb, "%s TRACKS:\n", state)
			lastState = state
		}
		n++
		fmt.Fprintf(sb, "%d. \"%s greyhound racing %s\"\n", n, track, iso)
	}
}

// ResultsPrompt builds the evening results-analysis request.
func (b *Builder) ResultsPrompt(dc clock.DateContext) string {
	return fmt.Sprintf(`🔍 GREYHOUND RACE RESULTS ANALYSIS - TODAY'S RESULTS

You are a greyhound racing results analyst with access to real-time web search.

Use web search tools to find TODAY'S Australian greyhound racing results and provide:

1. Winners of all races that have finished today
2. Finishing positions for all greyhounds
3. Starting prices/odds
4. Track conditions
5. Winning margins and times

MANDATORY WEB SEARCHES:
- "greyhound racing results Australia %s"
- "TheDogs.com.au results %s"
- "Racing NSW greyhound results %s"
- "GRV greyhound racing results %s"
- "RWWA greyhound results %s"
- "TAB greyhound results %s"
- "greyhound racing winners %s"

Use web search tools to find results across all Australian venues for %s.

Provide results in this concise format:
🐕 RACE X - TRACK NAME (%s)
🥇 Winner: GREYHOUND NAME (Box: X, Trainer: Y, SP: $X.XX, Time: XX.XXs)
---`, dc.ISO, dc.ISO, dc.ISO, dc.ISO, dc.ISO, dc.ISO, dc.ISO, dc.ISO, dc.ISO)
}
