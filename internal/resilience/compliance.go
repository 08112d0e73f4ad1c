package resilience

import (
	"context"
	"fmt"

	"buyerbot_backend/internal/conversation/ports"
	"buyerbot_backend/internal/events"
	"buyerbot_backend/platform/logger"
)

const complianceFlagTag = "Compliance Review"

// Violation categories recognized by the compliance path.
const (
	ViolationFairHousing         = "fair_housing"
	ViolationFinancialRegulation = "financial_regulation"
	ViolationPrivacy             = "privacy"
	ViolationLicensing           = "licensing"
)

// severityByCategory is fixed policy: fair housing and financial regulation
// violations are always critical.
var severityByCategory = map[string]string{
	ViolationFairHousing:         SeverityCritical,
	ViolationFinancialRegulation: SeverityCritical,
	ViolationPrivacy:             SeverityHigh,
	ViolationLicensing:           SeverityMedium,
}

// ComplianceNotifier delivers immediate notifications for critical and high
// severity violations.
type ComplianceNotifier interface {
	NotifyCompliance(ctx context.Context, ticket *Ticket, detail string) error
}

// AutomationPauser suspends automated messaging for a contact until a human
// clears the hold.
type AutomationPauser interface {
	Pause(ctx context.Context, contactID, reason string) error
}

// ComplianceResult is the outcome of one compliance escalation.
type ComplianceResult struct {
	Ticket     *Ticket
	BotPaused  bool
	CRMFlagged bool
}

// ComplianceEscalator handles policy violations. This path outranks normal
// escalation: it always runs regardless of retry state, and critical or high
// severity violations stop automation for the contact.
type ComplianceEscalator struct {
	crm      ports.CRMClient
	bus      events.Bus
	store    TicketStore
	notifier ComplianceNotifier
	pauser   AutomationPauser
	log      *logger.Logger
}

func NewComplianceEscalator(crm ports.CRMClient, bus events.Bus, store TicketStore, notifier ComplianceNotifier, pauser AutomationPauser, log *logger.Logger) *ComplianceEscalator {
	return &ComplianceEscalator{crm: crm, bus: bus, store: store, notifier: notifier, pauser: pauser, log: log}
}

// SeverityFor returns the fixed severity for a violation category. Unknown
// categories rank medium.
func SeverityFor(category string) string {
	if severity, ok := severityByCategory[category]; ok {
		return severity
	}
	return SeverityMedium
}

// Escalate records and acts on a detected policy violation. Every violation
// writes an audit record and flags the contact in the CRM; critical and high
// severity additionally notify compliance staff and pause automation for the
// contact. If the audit write fails, the ticket is marked degraded so "acted
// on but not provably logged" stays distinguishable.
func (c *ComplianceEscalator) Escalate(ctx context.Context, contactID, category, detail string) ComplianceResult {
	ticket := newTicket(contactID, fmt.Sprintf("compliance violation: %s", category))
	ticket.Category = category
	ticket.Severity = SeverityFor(category)
	ticket.Status = StatusRecorded

	if err := c.store.SaveAuditRecord(ctx, ticket, detail); err != nil {
		c.log.Error("compliance: audit write failed", "contactId", contactID, "category", category, "error", err)
		ticket.Status = StatusDegraded
	}

	result := ComplianceResult{Ticket: ticket}

	if err := c.crm.AddTags(ctx, contactID, []string{complianceFlagTag}); err != nil {
		c.log.Error("compliance: crm flag failed", "contactId", contactID, "error", err)
	} else {
		result.CRMFlagged = true
		ticket.TagApplied = true
	}

	if ticket.Severity == SeverityCritical || ticket.Severity == SeverityHigh {
		if err := c.notifier.NotifyCompliance(ctx, ticket, detail); err != nil {
			c.log.Error("compliance: notification failed", "ticketId", ticket.ID, "error", err)
		}
		if err := c.pauser.Pause(ctx, contactID, ticket.Reason); err != nil {
			c.log.Error("compliance: pause failed", "contactId", contactID, "error", err)
		} else {
			result.BotPaused = true
		}
	}

	// Recorded is only the in-flight value: a ticket whose audit trail is
	// intact completes the lifecycle as escalated.
	if ticket.Status == StatusRecorded {
		ticket.Status = StatusEscalated
	}

	if err := c.store.SaveTicket(ctx, ticket); err != nil {
		c.log.Error("compliance: ticket persist failed", "ticketId", ticket.ID, "error", err)
	}

	c.bus.Publish(ctx, events.ComplianceEscalationRaised{
		BaseEvent: events.NewBaseEvent(),
		TicketID:  ticket.ID,
		ContactID: contactID,
		Category:  category,
		Severity:  ticket.Severity,
		Outcome:   ticket.Status,
	})

	c.log.Info("compliance escalation",
		"contactId", contactID,
		"category", category,
		"severity", ticket.Severity,
		"status", ticket.Status,
		"botPaused", result.BotPaused)
	return result
}
