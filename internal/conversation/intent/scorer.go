// Package intent scores buyer conversations into a multi-factor profile.
// Scoring is pure string work: no I/O, deterministic for a given input, and
// it never fails the pipeline. A scorer panic degrades to a documented
// default profile instead of propagating.
package intent

import (
	"strings"

	"buyerbot_backend/internal/config"
	"buyerbot_backend/internal/conversation/domain"
)

const (
	defaultComponentScore = 25
	defaultConfidence     = 10
)

// Scorer computes intent profiles from conversation text.
type Scorer struct {
	cfg config.Scoring
}

func NewScorer(cfg config.Scoring) *Scorer {
	return &Scorer{cfg: cfg}
}

// DefaultProfile is the profile returned when scoring cannot complete.
func DefaultProfile(turns int) domain.IntentProfile {
	return domain.IntentProfile{
		FinancialReadiness:   defaultComponentScore,
		BudgetClarity:        defaultComponentScore,
		FinancingSignal:      defaultComponentScore,
		Urgency:              defaultComponentScore,
		TimelinePressure:     defaultComponentScore,
		ConsequenceAwareness: defaultComponentScore,
		PreferenceClarity:    defaultComponentScore,
		MarketRealism:        defaultComponentScore,
		DecisionAuthority:    defaultComponentScore,
		FinancialComposite:   defaultComponentScore,
		UrgencyComposite:     defaultComponentScore,
		PreferenceComposite:  defaultComponentScore,
		OverallScore:         defaultComponentScore,
		Temperature:          domain.TempCold,
		NextStep:             domain.StepBudget,
		Confidence:           defaultConfidence,
		Turns:                turns,
	}
}

// Score analyzes the lower-cased user text and produces a fresh profile.
// It never returns an error; internal failures yield DefaultProfile.
func (s *Scorer) Score(userText string, turns int) (profile domain.IntentProfile) {
	defer func() {
		if r := recover(); r != nil {
			profile = DefaultProfile(turns)
		}
	}()

	text := strings.ToLower(userText)

	p := domain.IntentProfile{
		FinancialReadiness:   component(30, text, highFinancialReadiness, lowFinancialReadiness),
		BudgetClarity:        component(25, text, budgetClaritySignals),
		FinancingSignal:      component(20, text, financingSignals, financingDoubt),
		Urgency:              component(30, text, highUrgency, lowUrgency),
		TimelinePressure:     component(25, text, timelinePressureSignals),
		ConsequenceAwareness: component(20, text, consequenceSignals),
		PreferenceClarity:    component(25, text, preferenceSignals),
		MarketRealism:        component(50, text, realismSignals, unrealisticSignals),
		DecisionAuthority:    component(50, text, authoritySignals, deferredAuthority),
		Turns:                turns,
	}

	p.FinancialComposite = mean3(p.FinancialReadiness, p.BudgetClarity, p.FinancingSignal)
	p.UrgencyComposite = mean3(p.Urgency, p.TimelinePressure, p.ConsequenceAwareness)
	p.PreferenceComposite = mean3(p.PreferenceClarity, p.MarketRealism, p.DecisionAuthority)

	p.OverallScore = clamp(p.FinancialComposite*s.cfg.FinancialWeight +
		p.UrgencyComposite*s.cfg.UrgencyWeight +
		p.PreferenceComposite*s.cfg.EngagementWeight)

	p.Temperature = s.temperature(p.OverallScore)
	p.NextStep = nextStep(p)
	p.Confidence = confidence(turns, text)

	return p
}

// component applies each category's capped adjustment to the base and clamps
// the result into [0,100].
func component(base float64, text string, categories ...category) float64 {
	score := base
	for _, cat := range categories {
		var adj float64
		for _, kw := range cat.keywords {
			if strings.Contains(text, kw) {
				adj += cat.perMatch
			}
		}
		if cat.cap >= 0 && adj > cat.cap {
			adj = cat.cap
		}
		if cat.cap < 0 && adj < cat.cap {
			adj = cat.cap
		}
		score += adj
	}
	return clamp(score)
}

func (s *Scorer) temperature(overall float64) domain.Temperature {
	switch {
	case overall >= float64(s.cfg.HotThreshold):
		return domain.TempHot
	case overall >= float64(s.cfg.WarmThreshold):
		return domain.TempWarm
	case overall >= float64(s.cfg.LukewarmThreshold):
		return domain.TempLukewarm
	case overall >= float64(s.cfg.ColdThreshold):
		return domain.TempCold
	default:
		return domain.TempIceCold
	}
}

// nextStep picks the earliest unmet qualification gate. The ordering is a
// deliberate contract: financial before timeline before preferences before
// decision makers, with property search only when every gate is met.
func nextStep(p domain.IntentProfile) domain.Step {
	switch {
	case p.FinancialComposite < 50:
		return domain.StepBudget
	case p.UrgencyComposite < 50:
		return domain.StepTimeline
	case p.PreferenceClarity < 50:
		return domain.StepPreferences
	case p.DecisionAuthority < 50:
		return domain.StepDecisionMakers
	default:
		return domain.StepPropertySearch
	}
}

func confidence(turns int, text string) float64 {
	score := 30 + float64(turns)*10
	if len(text) > 200 {
		score += 10
	}
	return clamp(score)
}

func mean3(a, b, c float64) float64 {
	return (a + b + c) / 3
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
