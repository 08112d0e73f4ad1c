// Package conversation contains the buyer qualification workflow engine: an
// explicit state machine that runs the scoring, assessment, matching,
// objection and response stages in order for one conversation turn, wrapped
// in the resilience layer.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"buyerbot_backend/internal/config"
	"buyerbot_backend/internal/conversation/domain"
	"buyerbot_backend/internal/conversation/finance"
	"buyerbot_backend/internal/conversation/intent"
	"buyerbot_backend/internal/conversation/matching"
	"buyerbot_backend/internal/conversation/objection"
	"buyerbot_backend/internal/conversation/optout"
	"buyerbot_backend/internal/conversation/ports"
	"buyerbot_backend/internal/conversation/response"
	"buyerbot_backend/internal/events"
	"buyerbot_backend/internal/resilience"
	"buyerbot_backend/platform/logger"
)

const (
	apologyReply     = "Sorry, I'm having trouble on my end right now. A member of our team will follow up with you shortly."
	complianceReply  = "That's something a licensed agent should walk you through directly. I'll have someone reach out to help."
	appointmentReply = "You're in a great position to move. Want to set up a time this weekend to tour a few homes? I can lock in a slot for you."
)

// ProcessRequest is the single inbound entry point's input.
type ProcessRequest struct {
	ConversationID string
	Message        string
	Name           string
	History        []domain.Message
	// HandoffContext marks state arriving from another bot with trusted
	// prior assessment values; financial assessment is then skipped.
	HandoffContext bool
}

// ProcessResult is the outcome of one turn. ResponseText is always set on a
// successful turn; Error is present only on terminal failure.
type ProcessResult struct {
	ConversationID          string                 `json:"conversationId"`
	ResponseText            string                 `json:"responseText"`
	IsQualified             bool                   `json:"isQualified"`
	FinancialReadinessScore float64                `json:"financialReadinessScore"`
	MotivationScore         float64                `json:"motivationScore"`
	MatchedCandidates       []domain.PropertyMatch `json:"matchedCandidates"`
	NextAction              string                 `json:"nextAction"`
	Temperature             domain.Temperature     `json:"temperature,omitempty"`
	OptOutDetected          bool                   `json:"optOutDetected,omitempty"`
	HandoffSignals          map[string]bool        `json:"handoffSignals,omitempty"`
	RequiresManualReview    bool                   `json:"requiresManualReview,omitempty"`
	Error                   string                 `json:"error,omitempty"`

	// State is the final record for the caller to persist.
	State *domain.ConversationState `json:"-"`
}

// ContactGate tracks contacts automation must not message.
type ContactGate interface {
	IsOptedOut(ctx context.Context, contactID string) (bool, error)
	MarkOptedOut(ctx context.Context, contactID string) error
	IsPaused(ctx context.Context, contactID string) (bool, string, error)
}

// FollowUpScheduler enqueues the next automated touch for a contact.
type FollowUpScheduler interface {
	ScheduleFollowUp(ctx context.Context, contactID string, temperature domain.Temperature) error
}

// Engine sequences the pipeline stages for one turn.
type Engine struct {
	cfg        *config.Config
	scorer     *intent.Scorer
	assessor   *finance.Assessor
	objections *objection.Handler
	matcher    *matching.Adapter
	responder  *response.Generator
	escalator  *resilience.Escalator
	compliance *resilience.ComplianceEscalator
	gate       ContactGate
	followUps  FollowUpScheduler
	crm        ports.CRMClient
	bus        events.Bus
	log        *logger.Logger

	mu      sync.Mutex
	running map[string]struct{}
}

// NewEngine wires the pipeline. All collaborators must be safe for
// concurrent use; conversations are processed independently.
func NewEngine(
	cfg *config.Config,
	scorer *intent.Scorer,
	assessor *finance.Assessor,
	objections *objection.Handler,
	matcher *matching.Adapter,
	responder *response.Generator,
	escalator *resilience.Escalator,
	compliance *resilience.ComplianceEscalator,
	gate ContactGate,
	followUps FollowUpScheduler,
	crm ports.CRMClient,
	bus events.Bus,
	log *logger.Logger,
) *Engine {
	return &Engine{
		cfg:        cfg,
		scorer:     scorer,
		assessor:   assessor,
		objections: objections,
		matcher:    matcher,
		responder:  responder,
		escalator:  escalator,
		compliance: compliance,
		gate:       gate,
		followUps:  followUps,
		crm:        crm,
		bus:        bus,
		log:        log,
		running:    make(map[string]struct{}),
	}
}

// Process runs one conversation turn through the pipeline. Stages run
// strictly sequentially; each reads fields written by its predecessor.
// Turns for the same conversation never overlap.
func (e *Engine) Process(ctx context.Context, req ProcessRequest) *ProcessResult {
	result := &ProcessResult{ConversationID: req.ConversationID}

	message := strings.TrimSpace(req.Message)
	if req.ConversationID == "" || message == "" {
		result.Error = "conversation id and message are required"
		return result
	}
	// Truncate on runes so a multi byte character is never split.
	if runes := []rune(message); len(runes) > e.cfg.Messaging.MaxInboundLength {
		message = string(runes[:e.cfg.Messaging.MaxInboundLength])
	}

	if !e.markRunning(req.ConversationID) {
		result.Error = "a turn for this conversation is already in progress"
		return result
	}
	defer e.markDone(req.ConversationID)

	log := e.log.WithConversationID(req.ConversationID)

	// The opt-out gate is absolute: it runs before any state mutation, any
	// scoring and any external call.
	if phrase, matched := optout.Detect(message); matched {
		return e.handleOptOut(ctx, req, phrase, log)
	}

	if optedOut, err := e.gate.IsOptedOut(ctx, req.ConversationID); err == nil && optedOut {
		result.OptOutDetected = true
		result.NextAction = "none"
		return result
	}
	if paused, reason, err := e.gate.IsPaused(ctx, req.ConversationID); err == nil && paused {
		log.Info("turn skipped: automation paused", "reason", reason)
		result.NextAction = "paused"
		return result
	}

	// Policy violations bypass the normal pipeline entirely.
	if category, violated := resilience.DetectViolation(message); violated {
		return e.handleViolation(ctx, req, category, message, log)
	}

	state := domain.NewConversationState(req.ConversationID, req.Name, req.History)
	state.HandoffContext = req.HandoffContext
	state.AppendMessage(domain.RoleUser, message)
	state.HandoffSignals = extractHandoffSignals(message)

	if state.HandoffSignals["human_requested"] {
		return e.handleHumanRequest(ctx, state, log)
	}

	e.runPipeline(ctx, state, message, log)

	e.scheduleFollowUp(ctx, state, log)

	return e.buildResult(state)
}

// runPipeline executes the stage sequence on the state.
func (e *Engine) runPipeline(ctx context.Context, state *domain.ConversationState, message string, log *logger.Logger) {
	// Stage 1: intent scoring. Pure; never fails the turn.
	profile := e.scorer.Score(state.UserText(), state.UserTurns())
	state.Intent = &profile
	state.MotivationScore = (profile.FinancialReadiness + profile.Urgency) / 2
	state.JourneyStage = string(profile.Temperature)

	// Stage 2: financial assessment with the local fallback tiers.
	assessment := e.assessor.Assess(state)
	source := "primary"
	if assessment.FinancingStatus == domain.FinancingAssessmentError {
		if heuristic, ok := finance.HeuristicAssessment(state.UserText(), e.cfg.Finance); ok {
			assessment = heuristic
			source = "heuristic"
		} else {
			assessment = finance.PendingAssessment()
			source = "pending"
		}
		log.Info("financial assessment degraded", "source", source)
	}
	state.Budget = assessment.Budget
	state.FinancingStatus = assessment.FinancingStatus
	state.FinancialReadinessScore = assessment.ReadinessScore
	state.Step = assessment.Step
	state.RequiresManualReview = assessment.RequiresManualReview

	e.bus.Publish(ctx, events.IntentAnalyzed{
		BaseEvent:        events.NewBaseEvent(),
		ContactID:        state.ConversationID,
		ConversationID:   state.ConversationID,
		FrsScore:         int(state.FinancialReadinessScore),
		Temperature:      string(profile.Temperature),
		NextStep:         string(profile.NextStep),
		ConfidenceLevel:  int(profile.Confidence),
		AssessmentSource: source,
	})

	// Stage 3: objection detection on the inbound message.
	state.PendingObjection = objection.Detect(message)

	// Stage 4: property matching, only once qualification has reached the
	// search gate. A matcher failure after retries is the one unrecoverable
	// stage: escalate and end the turn with an apology.
	matchAction := domain.NextActionQualifyMore
	if state.Step == domain.StepPropertySearch {
		matchResult, err := e.matcher.Match(ctx, state)
		if err != nil {
			ticket := e.escalator.Escalate(ctx, state.ConversationID, "property search unavailable")
			e.escalator.AddContextNote(ctx, ticket, err.Error())
			state.Step = domain.StepError
			state.ResponseText = e.responder.Sanitize(apologyReply)
			state.NextAction = domain.NextActionRespond
			return
		}
		state.Matches = matchResult.Candidates
		matchAction = matchResult.NextAction
	}

	// Stage 5: transition selection.
	state.Step = transition(state, matchAction, e.cfg.Scoring.HotPathThreshold)

	// Stage 6: objection handling, unconditional when pending.
	if state.Step == domain.StepObjectionHandling {
		var affordability *finance.Affordability
		if state.Budget != nil && state.Budget.Max > 0 {
			a := finance.EstimateAffordability(float64(state.Budget.Max), e.cfg.Finance)
			affordability = &a
		}
		if handled, ok := e.objections.Handle(state, affordability); ok {
			state.ObjectionHistory = append(state.ObjectionHistory, handled.Record)
			state.PendingObjection = domain.ObjectionNone
		}
	}

	// Stage 7: hot path scheduling. Short-circuits generation with an
	// injected appointment message, but never overwrites existing text.
	if state.Step == domain.StepAppointment {
		state.NextAction = domain.NextActionScheduleTour
		if state.ResponseText == "" {
			state.ResponseText = e.responder.Sanitize(appointmentReply)
		}
		e.publishQualification(ctx, state, true)
		return
	}

	// Stage 8: response generation. Always yields text.
	generated := e.responder.Generate(ctx, state)
	state.ResponseText = generated.Text
	state.NextAction = generated.NextAction
	if matchAction == domain.NextActionEducateMarket {
		state.NextAction = domain.NextActionEducateMarket
	}

	if state.Qualified(e.cfg.Scoring.QualifyThreshold) {
		e.publishQualification(ctx, state, false)
	}
}

// transition is the pure state selection function. A pending objection wins
// unconditionally; a hot readiness score short-circuits to the appointment
// step; otherwise the matcher's declared action routes the turn.
func transition(state *domain.ConversationState, matchAction string, hotThreshold int) domain.Step {
	if state.PendingObjection != domain.ObjectionNone {
		return domain.StepObjectionHandling
	}
	if state.FinancialReadinessScore >= float64(hotThreshold) {
		return domain.StepAppointment
	}
	switch matchAction {
	case domain.NextActionQualifyMore:
		if state.Intent != nil {
			return state.Intent.NextStep
		}
		return state.Step
	default:
		return state.Step
	}
}

func (e *Engine) handleOptOut(ctx context.Context, req ProcessRequest, phrase string, log *logger.Logger) *ProcessResult {
	log.Info("opt out detected", "phrase", phrase)

	if err := e.gate.MarkOptedOut(ctx, req.ConversationID); err != nil {
		log.Error("opt out: registry write failed", "error", err)
	}
	if err := e.crm.AddTags(ctx, req.ConversationID, []string{optout.OptOutTag}); err != nil {
		log.Error("opt out: crm tag failed", "error", err)
	}

	e.bus.Publish(ctx, events.LeadOptedOut{
		BaseEvent:     events.NewBaseEvent(),
		ContactID:     req.ConversationID,
		MatchedPhrase: phrase,
	})
	e.publishStatus(ctx, req.ConversationID, domain.BotActive, domain.BotOptedOut, "opt out phrase matched")

	return &ProcessResult{
		ConversationID: req.ConversationID,
		ResponseText:   optout.ConfirmationReply,
		OptOutDetected: true,
		NextAction:     "opt_out",
	}
}

func (e *Engine) handleViolation(ctx context.Context, req ProcessRequest, category, message string, log *logger.Logger) *ProcessResult {
	log.Info("policy violation detected", "category", category)
	outcome := e.compliance.Escalate(ctx, req.ConversationID, category, message)

	if outcome.BotPaused {
		e.publishStatus(ctx, req.ConversationID, domain.BotActive, domain.BotPaused, outcome.Ticket.Reason)
	}

	return &ProcessResult{
		ConversationID: req.ConversationID,
		ResponseText:   e.responder.Sanitize(complianceReply),
		NextAction:     "compliance_escalation",
	}
}

func (e *Engine) handleHumanRequest(ctx context.Context, state *domain.ConversationState, log *logger.Logger) *ProcessResult {
	log.Info("human handoff requested")
	ticket := e.escalator.Escalate(ctx, state.ConversationID, "buyer requested a human")
	e.escalator.AddContextNote(ctx, ticket, "buyer asked for a person in conversation")
	e.publishStatus(ctx, state.ConversationID, domain.BotActive, domain.BotHandedOff, "buyer requested a human")

	state.ResponseText = e.responder.Sanitize(
		"Absolutely, I'll have one of our agents reach out to you directly. Expect a call or text soon!")
	state.NextAction = "human_handoff"
	return e.buildResult(state)
}

func (e *Engine) scheduleFollowUp(ctx context.Context, state *domain.ConversationState, log *logger.Logger) {
	if e.followUps == nil || state.Step == domain.StepError {
		return
	}
	temp := domain.TempCold
	if state.Intent != nil {
		temp = state.Intent.Temperature
	}
	if err := e.followUps.ScheduleFollowUp(ctx, state.ConversationID, temp); err != nil {
		log.Error("follow up scheduling failed", "error", err)
	}
}

// publishQualification announces a completed qualification. Buyers whose
// motivation clears the brief threshold also get an executive brief synced
// to the CRM so an agent can pick up the thread without reading the
// transcript.
func (e *Engine) publishQualification(ctx context.Context, state *domain.ConversationState, hotPath bool) {
	e.bus.Publish(ctx, events.QualificationCompleted{
		BaseEvent:   events.NewBaseEvent(),
		ContactID:   state.ConversationID,
		FrsScore:    int(state.FinancialReadinessScore),
		Temperature: string(state.Intent.Temperature),
		HotPath:     hotPath,
	})

	if state.MotivationScore > float64(e.cfg.Scoring.BriefThreshold) {
		if err := e.crm.AddNote(ctx, state.ConversationID, executiveBrief(state)); err != nil {
			e.log.Error("executive brief: crm note failed", "conversationId", state.ConversationID, "error", err)
		}
	}
}

// executiveBrief is the agent-facing summary of a high-motivation buyer.
func executiveBrief(state *domain.ConversationState) string {
	var b strings.Builder

	name := state.ContactName
	if name == "" {
		name = state.ConversationID
	}
	fmt.Fprintf(&b, "Buyer brief: %s\n", name)
	fmt.Fprintf(&b, "Readiness %.0f, motivation %.0f", state.FinancialReadinessScore, state.MotivationScore)
	if state.Intent != nil {
		fmt.Fprintf(&b, ", %s lead", state.Intent.Temperature)
	}
	b.WriteString("\n")
	if state.Budget != nil && state.Budget.Max > 0 {
		fmt.Fprintf(&b, "Budget up to $%d, financing %s\n", state.Budget.Max, state.FinancingStatus)
	} else {
		fmt.Fprintf(&b, "Financing %s, budget not yet stated\n", state.FinancingStatus)
	}
	if len(state.Matches) > 0 {
		fmt.Fprintf(&b, "%d candidate listings on file\n", len(state.Matches))
	}
	fmt.Fprintf(&b, "Recommended action: %s", state.NextAction)
	return b.String()
}

func (e *Engine) publishStatus(ctx context.Context, contactID string, from, to domain.BotStatus, reason string) {
	e.bus.Publish(ctx, events.BotStatusUpdated{
		BaseEvent: events.NewBaseEvent(),
		ContactID: contactID,
		OldStatus: string(from),
		NewStatus: string(to),
		Reason:    reason,
	})
}

func (e *Engine) buildResult(state *domain.ConversationState) *ProcessResult {
	// Candidates serialize as an array even when no search ran.
	matches := state.Matches
	if matches == nil {
		matches = []domain.PropertyMatch{}
	}

	result := &ProcessResult{
		ConversationID:          state.ConversationID,
		ResponseText:            state.ResponseText,
		IsQualified:             state.Qualified(e.cfg.Scoring.QualifyThreshold),
		FinancialReadinessScore: state.FinancialReadinessScore,
		MotivationScore:         state.MotivationScore,
		MatchedCandidates:       matches,
		NextAction:              state.NextAction,
		HandoffSignals:          state.HandoffSignals,
		RequiresManualReview:    state.RequiresManualReview,
		State:                   state,
	}
	if state.Intent != nil {
		result.Temperature = state.Intent.Temperature
	}
	if state.Step == domain.StepError {
		result.Error = "assessment failed for this turn"
	}
	return result
}

// extractHandoffSignals flags channel and escalation preferences expressed
// in the message so the CRM side can act on them.
func extractHandoffSignals(message string) map[string]bool {
	lower := strings.ToLower(message)
	signals := map[string]bool{}

	if containsAny(lower, "call me", "give me a call", "phone call") {
		signals["prefers_call"] = true
	}
	if containsAny(lower, "email me", "send me an email") {
		signals["prefers_email"] = true
	}
	if containsAny(lower, "real person", "speak to a human", "talk to a human", "talk to an agent", "speak with an agent", "speak to someone") {
		signals["human_requested"] = true
	}
	if len(signals) == 0 {
		return nil
	}
	return signals
}

func containsAny(text string, phrases ...string) bool {
	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

func (e *Engine) markRunning(conversationID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.running[conversationID]; busy {
		return false
	}
	e.running[conversationID] = struct{}{}
	return true
}

func (e *Engine) markDone(conversationID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.running, conversationID)
}
