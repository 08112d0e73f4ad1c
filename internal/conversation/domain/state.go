// Package domain contains the conversation state model for buyer
// qualification. The state record is owned by the workflow engine for the
// duration of one turn; stages receive it, compute an update, and the engine
// merges the update back. Stages never hold a reference after returning.
package domain

import (
	"strings"
	"time"
)

// Role identifies who authored a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in the conversation history.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// FinancingStatus classifies how close a buyer is to financeable.
type FinancingStatus string

const (
	FinancingUnknown           FinancingStatus = "unknown"
	FinancingNeedsApproval     FinancingStatus = "needs_approval"
	FinancingPreApproved       FinancingStatus = "pre_approved"
	FinancingCash              FinancingStatus = "cash"
	FinancingAssessmentError   FinancingStatus = "assessment_error"
	FinancingAssessmentPending FinancingStatus = "assessment_pending"
)

// UrgencyLevel is the buyer's stated purchase timeline.
type UrgencyLevel string

const (
	UrgencyBrowsing    UrgencyLevel = "browsing"
	UrgencyThreeMonths UrgencyLevel = "3_months"
	UrgencySixMonths   UrgencyLevel = "6_months"
	UrgencyImmediate   UrgencyLevel = "immediate"
)

// Step is a state of the qualification workflow machine.
type Step string

const (
	StepBudget            Step = "budget"
	StepTimeline          Step = "timeline"
	StepPreferences       Step = "preferences"
	StepDecisionMakers    Step = "decision_makers"
	StepPropertySearch    Step = "property_search"
	StepObjectionHandling Step = "objection_handling"
	StepAppointment       Step = "appointment"
	StepError             Step = "error"
)

// Next actions the pipeline can emit for a turn.
const (
	NextActionRespond       = "respond"
	NextActionQualifyMore   = "qualify_more"
	NextActionEducateMarket = "educate_market"
	NextActionScheduleTour  = "schedule_property_tour"
)

// BotStatus is the automation status for a contact.
type BotStatus string

const (
	BotActive    BotStatus = "active"
	BotPaused    BotStatus = "paused"
	BotOptedOut  BotStatus = "opted_out"
	BotHandedOff BotStatus = "handed_off"
)

// BudgetRange is a price bracket in whole dollars. Min of zero with a
// positive Max means only a ceiling is known.
type BudgetRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// ObjectionRecord is one handled objection, kept for the life of the
// conversation. The history is append-only.
type ObjectionRecord struct {
	Type          ObjectionType `json:"type"`
	Approach      string        `json:"approach"`
	TalkingPoints []string      `json:"talkingPoints"`
	HandledAt     time.Time     `json:"handledAt"`
}

// PropertyMatch is one normalized candidate from the property search service.
type PropertyMatch struct {
	ID        string  `json:"id"`
	Address   string  `json:"address"`
	Price     int64   `json:"price"`
	Bedrooms  int     `json:"bedrooms"`
	Bathrooms float64 `json:"bathrooms"`
	URL       string  `json:"url,omitempty"`
	Score     float64 `json:"score"`
}

// ConversationState is the per-conversation record threaded through every
// pipeline stage. One instance per conversation per turn; never shared
// across conversations.
type ConversationState struct {
	ConversationID string    `json:"conversationId"`
	ContactName    string    `json:"contactName,omitempty"`
	History        []Message `json:"history"`

	Intent          *IntentProfile  `json:"intent,omitempty"`
	Budget          *BudgetRange    `json:"budget,omitempty"`
	FinancingStatus FinancingStatus `json:"financingStatus"`
	Urgency         UrgencyLevel    `json:"urgency"`
	Preferences     map[string]string `json:"preferences,omitempty"`

	Step             Step              `json:"step"`
	PendingObjection ObjectionType     `json:"pendingObjection,omitempty"`
	ObjectionHistory []ObjectionRecord `json:"objectionHistory,omitempty"`
	Matches          []PropertyMatch   `json:"matches,omitempty"`

	FinancialReadinessScore float64 `json:"financialReadinessScore"`
	MotivationScore         float64 `json:"motivationScore"`

	NextAction   string `json:"nextAction,omitempty"`
	ResponseText string `json:"responseText,omitempty"`
	JourneyStage string `json:"journeyStage,omitempty"`

	OptedOut             bool            `json:"optedOut"`
	HandoffContext       bool            `json:"handoffContext"`
	HandoffSignals       map[string]bool `json:"handoffSignals,omitempty"`
	RequiresManualReview bool            `json:"requiresManualReview"`
}

// NewConversationState builds a fresh state record for one turn.
func NewConversationState(conversationID, name string, history []Message) *ConversationState {
	return &ConversationState{
		ConversationID:  conversationID,
		ContactName:     name,
		History:         history,
		FinancingStatus: FinancingUnknown,
		Urgency:         UrgencyBrowsing,
		Step:            StepBudget,
	}
}

// AppendMessage adds a turn to the history.
func (s *ConversationState) AppendMessage(role Role, text string) {
	s.History = append(s.History, Message{Role: role, Text: text})
}

// UserText returns the lower-cased concatenation of all user-authored turns.
// This is the input surface for keyword scoring and budget extraction.
func (s *ConversationState) UserText() string {
	var b strings.Builder
	for _, msg := range s.History {
		if msg.Role != RoleUser {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(msg.Text)
	}
	return strings.ToLower(b.String())
}

// UserTurns counts user-authored messages in the history.
func (s *ConversationState) UserTurns() int {
	n := 0
	for _, msg := range s.History {
		if msg.Role == RoleUser {
			n++
		}
	}
	return n
}

// Qualified reports whether the financial readiness score has crossed the
// given threshold. Qualification is always derived, never stored.
func (s *ConversationState) Qualified(threshold int) bool {
	return s.FinancialReadinessScore >= float64(threshold)
}
