package resilience

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Ticket status values. A ticket is never dropped: it ends up escalated,
// queued for manual pickup, or degraded (acted on but not provably logged).
// Recorded is the transient compliance status while delivery is in flight.
const (
	StatusEscalated = "escalated"
	StatusQueued    = "queued"
	StatusDegraded  = "degraded"
	StatusRecorded  = "recorded"
)

// Severity levels for compliance tickets.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
)

// Ticket records a handoff of a conversation to a human operator, with the
// delivery outcome per channel.
type Ticket struct {
	ID        uuid.UUID `json:"id"`
	SubjectID string    `json:"subjectId"`
	Reason    string    `json:"reason"`
	Severity  string    `json:"severity,omitempty"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	TagApplied     bool `json:"tagApplied"`
	NoteAdded      bool `json:"noteAdded"`
	EventPublished bool `json:"eventPublished"`

	Status string `json:"status"`
}

// TicketStore persists escalation tickets and compliance audit records.
type TicketStore interface {
	SaveTicket(ctx context.Context, ticket *Ticket) error
	// SaveAuditRecord writes the immutable compliance audit entry. A failure
	// here degrades the escalation status.
	SaveAuditRecord(ctx context.Context, ticket *Ticket, detail string) error
}

// QueuedDelivery re-delivers tickets whose synchronous channels all failed.
// The scheduler implements this with a delayed background task.
type QueuedDelivery interface {
	EnqueueTicketRedelivery(ctx context.Context, ticketID uuid.UUID) error
}

func newTicket(subjectID, reason string) *Ticket {
	return &Ticket{
		ID:        uuid.New(),
		SubjectID: subjectID,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}
}
