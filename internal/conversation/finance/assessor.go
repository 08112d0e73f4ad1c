// Package finance derives budget and financing readiness from conversation
// state. Assessment is stage-local: recoverable conditions (no budget yet,
// unknown financing) are normal results, and an internal failure degrades to
// a low-confidence result instead of aborting the turn.
package finance

import (
	"strings"

	"buyerbot_backend/internal/config"
	"buyerbot_backend/internal/conversation/domain"
)

// Assessment is the partial state update produced by one assessment pass.
type Assessment struct {
	Budget               *domain.BudgetRange
	FinancingStatus      domain.FinancingStatus
	ReadinessScore       float64
	Step                 domain.Step
	RequiresManualReview bool
}

// readinessByStatus is the score lookup keyed by financing status. Unknown
// status falls through to the urgency-based formula instead.
var readinessByStatus = map[domain.FinancingStatus]float64{
	domain.FinancingCash:          95,
	domain.FinancingPreApproved:   85,
	domain.FinancingNeedsApproval: 45,
}

// Assessor computes financial readiness for a conversation.
type Assessor struct {
	cfg config.Finance
}

func NewAssessor(cfg config.Finance) *Assessor {
	return &Assessor{cfg: cfg}
}

// Assess derives budget, financing status and a readiness score from the
// state. If the state carries a trusted handoff context, the prior values
// are echoed back unchanged. Never panics out of the pipeline; an internal
// failure returns the documented error result.
func (a *Assessor) Assess(state *domain.ConversationState) (result Assessment) {
	defer func() {
		if r := recover(); r != nil {
			result = ErrorResult()
		}
	}()

	if state.HandoffContext {
		return Assessment{
			Budget:          state.Budget,
			FinancingStatus: state.FinancingStatus,
			ReadinessScore:  state.FinancialReadinessScore,
			Step:            state.Step,
		}
	}

	text := state.UserText()
	budget := ExtractBudget(text, a.cfg)
	status := ClassifyFinancing(text)

	score, ok := readinessByStatus[status]
	if !ok {
		var urgency float64
		if state.Intent != nil {
			urgency = state.Intent.UrgencyComposite
		}
		score = urgency
		if budget != nil {
			score += 50
		}
		if score > 100 {
			score = 100
		}
	}

	return Assessment{
		Budget:          budget,
		FinancingStatus: status,
		ReadinessScore:  score,
		Step:            stepFor(budget, status),
	}
}

// ClassifyFinancing maps financing keywords in the user text to a status.
func ClassifyFinancing(text string) domain.FinancingStatus {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "cash buyer"), strings.Contains(lower, "paying cash"),
		strings.Contains(lower, "all cash"):
		return domain.FinancingCash
	case strings.Contains(lower, "pre-approved"), strings.Contains(lower, "pre approved"),
		strings.Contains(lower, "preapproved"), strings.Contains(lower, "approved for"):
		return domain.FinancingPreApproved
	case strings.Contains(lower, "need a lender"), strings.Contains(lower, "need financing"),
		strings.Contains(lower, "not approved"), strings.Contains(lower, "talk to a lender"),
		strings.Contains(lower, "get approved"):
		return domain.FinancingNeedsApproval
	default:
		return domain.FinancingUnknown
	}
}

func stepFor(budget *domain.BudgetRange, status domain.FinancingStatus) domain.Step {
	if budget == nil {
		return domain.StepBudget
	}
	if status == domain.FinancingPreApproved || status == domain.FinancingCash {
		return domain.StepPropertySearch
	}
	return domain.StepTimeline
}

// ErrorResult is the fixed low-confidence result used when assessment itself
// fails. The pipeline continues on it.
func ErrorResult() Assessment {
	return Assessment{
		FinancingStatus: domain.FinancingAssessmentError,
		ReadinessScore:  25,
		Step:            domain.StepBudget,
	}
}

// HeuristicAssessment is the first fallback tier: derive an answer from the
// conversation text alone, without touching the failed dependency. The
// boolean reports whether the text carried enough signal to use.
func HeuristicAssessment(text string, cfg config.Finance) (Assessment, bool) {
	status := ClassifyFinancing(text)
	budget := ExtractBudget(text, cfg)

	if status == domain.FinancingUnknown && budget == nil {
		return Assessment{}, false
	}

	score := 40.0
	if s, ok := readinessByStatus[status]; ok {
		score = s
	}
	if score < 70 && (status == domain.FinancingPreApproved || status == domain.FinancingCash) {
		score = 70
	}
	if budget != nil && score < 55 {
		score = 55
	}

	return Assessment{
		Budget:          budget,
		FinancingStatus: status,
		ReadinessScore:  score,
		Step:            stepFor(budget, status),
	}, true
}

// PendingAssessment is the second fallback tier: a fixed conservative
// default that flags the record for manual review. It never fails.
func PendingAssessment() Assessment {
	return Assessment{
		FinancingStatus:      domain.FinancingAssessmentPending,
		ReadinessScore:       30,
		Step:                 domain.StepBudget,
		RequiresManualReview: true,
	}
}
