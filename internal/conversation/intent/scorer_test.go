package intent

import (
	"strings"
	"testing"

	"buyerbot_backend/internal/config"
	"buyerbot_backend/internal/conversation/domain"
)

func testScoring() config.Scoring {
	return config.Scoring{
		FinancialWeight:   0.40,
		UrgencyWeight:     0.35,
		EngagementWeight:  0.25,
		HotThreshold:      75,
		WarmThreshold:     50,
		LukewarmThreshold: 35,
		ColdThreshold:     20,
	}
}

func TestComponentScoresStayInRange(t *testing.T) {
	scorer := NewScorer(testScoring())

	// Extreme keyword density must not push any component outside [0,100].
	spam := strings.Repeat("pre-approved cash buyer asap immediately this week bedroom pool $ budget mortgage lender ", 50)
	p := scorer.Score(spam, 40)

	components := map[string]float64{
		"financialReadiness":   p.FinancialReadiness,
		"budgetClarity":        p.BudgetClarity,
		"financingSignal":      p.FinancingSignal,
		"urgency":              p.Urgency,
		"timelinePressure":     p.TimelinePressure,
		"consequenceAwareness": p.ConsequenceAwareness,
		"preferenceClarity":    p.PreferenceClarity,
		"marketRealism":        p.MarketRealism,
		"decisionAuthority":    p.DecisionAuthority,
		"overall":              p.OverallScore,
		"confidence":           p.Confidence,
	}
	for name, v := range components {
		if v < 0 || v > 100 {
			t.Errorf("%s = %v, want within [0,100]", name, v)
		}
	}
}

func TestNegativeSignalsStayInRange(t *testing.T) {
	scorer := NewScorer(testScoring())

	spam := strings.Repeat("can't afford bad credit just browsing no rush need to ask talk to my lowball ", 50)
	p := scorer.Score(spam, 1)

	for name, v := range map[string]float64{
		"financialReadiness": p.FinancialReadiness,
		"urgency":            p.Urgency,
		"decisionAuthority":  p.DecisionAuthority,
		"marketRealism":      p.MarketRealism,
	} {
		if v < 0 || v > 100 {
			t.Errorf("%s = %v, want within [0,100]", name, v)
		}
	}
}

func TestTemperatureMonotonicInOverallScore(t *testing.T) {
	scorer := NewScorer(testScoring())

	rank := map[domain.Temperature]int{
		domain.TempIceCold:  0,
		domain.TempCold:     1,
		domain.TempLukewarm: 2,
		domain.TempWarm:     3,
		domain.TempHot:      4,
	}

	prev := -1
	for score := 0.0; score <= 100; score++ {
		temp := scorer.temperature(score)
		r, ok := rank[temp]
		if !ok {
			t.Fatalf("unknown temperature %q at score %v", temp, score)
		}
		if r < prev {
			t.Fatalf("temperature rank decreased at score %v: %q", score, temp)
		}
		prev = r
	}

	// Threshold boundaries.
	for _, tt := range []struct {
		score float64
		want  domain.Temperature
	}{
		{19.9, domain.TempIceCold},
		{20, domain.TempCold},
		{35, domain.TempLukewarm},
		{50, domain.TempWarm},
		{75, domain.TempHot},
	} {
		if got := scorer.temperature(tt.score); got != tt.want {
			t.Errorf("temperature(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestNextStepPriorityChain(t *testing.T) {
	tests := []struct {
		name    string
		profile domain.IntentProfile
		want    domain.Step
	}{
		{
			"low financial wins first",
			domain.IntentProfile{FinancialComposite: 30, UrgencyComposite: 30, PreferenceClarity: 30, DecisionAuthority: 30},
			domain.StepBudget,
		},
		{
			"financial met, low urgency",
			domain.IntentProfile{FinancialComposite: 60, UrgencyComposite: 40, PreferenceClarity: 30, DecisionAuthority: 30},
			domain.StepTimeline,
		},
		{
			"urgency met, vague preferences",
			domain.IntentProfile{FinancialComposite: 60, UrgencyComposite: 60, PreferenceClarity: 40, DecisionAuthority: 30},
			domain.StepPreferences,
		},
		{
			"preferences met, deferred authority",
			domain.IntentProfile{FinancialComposite: 60, UrgencyComposite: 60, PreferenceClarity: 60, DecisionAuthority: 40},
			domain.StepDecisionMakers,
		},
		{
			"all gates met",
			domain.IntentProfile{FinancialComposite: 60, UrgencyComposite: 60, PreferenceClarity: 60, DecisionAuthority: 60},
			domain.StepPropertySearch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextStep(tt.profile); got != tt.want {
				t.Errorf("nextStep() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScorePreApprovedCashBuyer(t *testing.T) {
	scorer := NewScorer(testScoring())

	p := scorer.Score("i'm pre-approved for $625k and ready to tour homes this weekend", 1)

	if p.FinancialReadiness < 50 {
		t.Errorf("financialReadiness = %v, want >= 50 for pre-approved buyer", p.FinancialReadiness)
	}
	if p.Urgency < 50 {
		t.Errorf("urgency = %v, want >= 50 for this-weekend buyer", p.Urgency)
	}
	if p.Temperature == domain.TempIceCold || p.Temperature == domain.TempCold {
		t.Errorf("temperature = %q, want at least lukewarm", p.Temperature)
	}
}

func TestScoreBrowsingBuyerStaysCool(t *testing.T) {
	scorer := NewScorer(testScoring())

	p := scorer.Score("just browsing, no rush, maybe next year", 1)

	if p.Temperature == domain.TempHot || p.Temperature == domain.TempWarm {
		t.Errorf("temperature = %q, want cool for browsing buyer", p.Temperature)
	}
	if p.NextStep != domain.StepBudget {
		t.Errorf("nextStep = %q, want %q", p.NextStep, domain.StepBudget)
	}
}

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile(3)

	if p.Temperature != domain.TempCold {
		t.Errorf("default temperature = %q, want %q", p.Temperature, domain.TempCold)
	}
	if p.Confidence != 10 {
		t.Errorf("default confidence = %v, want 10", p.Confidence)
	}
	if p.FinancialReadiness != 25 || p.OverallScore != 25 {
		t.Errorf("default scores = %v/%v, want 25", p.FinancialReadiness, p.OverallScore)
	}
	if p.Turns != 3 {
		t.Errorf("turns = %d, want 3", p.Turns)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	scorer := NewScorer(testScoring())
	text := "we're pre-approved, budget around $500k, 3 bedroom with a yard"

	first := scorer.Score(text, 2)
	second := scorer.Score(text, 2)
	if first != second {
		t.Errorf("scoring is not deterministic:\n%+v\n%+v", first, second)
	}
}
