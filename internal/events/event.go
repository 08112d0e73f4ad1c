// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"buyerbot_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Conversation Domain Events
// =============================================================================

// IntentAnalyzed is published after every scored buyer turn.
type IntentAnalyzed struct {
	BaseEvent
	ContactID        string `json:"contactId"`
	ConversationID   string `json:"conversationId"`
	FrsScore         int    `json:"frsScore"`
	Temperature      string `json:"temperature"`
	NextStep         string `json:"nextStep"`
	ConfidenceLevel  int    `json:"confidenceLevel"`
	AssessmentSource string `json:"assessmentSource"` // "primary", "heuristic", "pending"
}

func (e IntentAnalyzed) EventName() string { return "conversation.intent.analyzed" }

// PropertyMatchUpdated is published when a property search returns results
// for a qualified buyer.
type PropertyMatchUpdated struct {
	BaseEvent
	ContactID  string `json:"contactId"`
	MatchCount int    `json:"matchCount"`
	BudgetMin  int64  `json:"budgetMin"`
	BudgetMax  int64  `json:"budgetMax"`
	Location   string `json:"location,omitempty"`
}

func (e PropertyMatchUpdated) EventName() string { return "conversation.property_match.updated" }

// QualificationCompleted is published when a buyer crosses the qualification
// threshold and the workflow hands the conversation to an agent.
type QualificationCompleted struct {
	BaseEvent
	ContactID   string `json:"contactId"`
	FrsScore    int    `json:"frsScore"`
	Temperature string `json:"temperature"`
	HotPath     bool   `json:"hotPath"`
}

func (e QualificationCompleted) EventName() string { return "conversation.qualification.completed" }

// BotStatusUpdated is published whenever the automation status for a contact
// changes (active, paused, opted_out, handed_off).
type BotStatusUpdated struct {
	BaseEvent
	ContactID string `json:"contactId"`
	OldStatus string `json:"oldStatus"`
	NewStatus string `json:"newStatus"`
	Reason    string `json:"reason,omitempty"`
}

func (e BotStatusUpdated) EventName() string { return "conversation.bot_status.updated" }

// LeadOptedOut is published when a buyer asks to stop automated messaging.
// Handlers must treat this as final: no automated sends after this event.
type LeadOptedOut struct {
	BaseEvent
	ContactID     string `json:"contactId"`
	MatchedPhrase string `json:"matchedPhrase"`
}

func (e LeadOptedOut) EventName() string { return "conversation.lead.opted_out" }

// =============================================================================
// Scheduling Domain Events
// =============================================================================

// FollowUpScheduled is published when a follow-up touch is enqueued for a
// contact, with the delay chosen from the lead temperature.
type FollowUpScheduled struct {
	BaseEvent
	ContactID   string `json:"contactId"`
	Temperature string `json:"temperature"`
	DelayHours  int    `json:"delayHours"`
}

func (e FollowUpScheduled) EventName() string { return "scheduling.follow_up.scheduled" }

// FollowUpDue is published by the worker when a scheduled follow-up comes
// due and the contact is still eligible for automated outreach.
type FollowUpDue struct {
	BaseEvent
	ContactID   string `json:"contactId"`
	Temperature string `json:"temperature"`
}

func (e FollowUpDue) EventName() string { return "scheduling.follow_up.due" }

// =============================================================================
// Escalation Domain Events
// =============================================================================

// EscalationRaised is published when a conversation is routed to a human,
// either on buyer request or after automation exhausted its options.
type EscalationRaised struct {
	BaseEvent
	TicketID  uuid.UUID `json:"ticketId"`
	ContactID string    `json:"contactId"`
	Trigger   string    `json:"trigger"`
}

func (e EscalationRaised) EventName() string { return "escalation.ticket.raised" }

// ComplianceEscalationRaised is published when a message trips a compliance
// rule. Severity drives whether automation pauses for the contact.
type ComplianceEscalationRaised struct {
	BaseEvent
	TicketID  uuid.UUID `json:"ticketId"`
	ContactID string    `json:"contactId"`
	Category  string    `json:"category"`
	Severity  string    `json:"severity"`
	Outcome   string    `json:"outcome"` // "recorded" or "degraded"
}

func (e ComplianceEscalationRaised) EventName() string { return "escalation.compliance.raised" }
