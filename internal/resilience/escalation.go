package resilience

import (
	"context"
	"fmt"

	"buyerbot_backend/internal/conversation/ports"
	"buyerbot_backend/internal/events"
	"buyerbot_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

const humanHandoffTag = "Needs Human"

// Escalator routes conversations to humans when automation is exhausted.
// Delivery channels run independently; one success is enough to consider the
// escalation delivered.
type Escalator struct {
	crm    ports.CRMClient
	bus    events.Bus
	store  TicketStore
	queue  QueuedDelivery
	log    *logger.Logger
}

func NewEscalator(crm ports.CRMClient, bus events.Bus, store TicketStore, queue QueuedDelivery, log *logger.Logger) *Escalator {
	return &Escalator{crm: crm, bus: bus, store: store, queue: queue, log: log}
}

// Escalate raises a human escalation for the contact. It attempts the CRM
// tag and the status event in parallel, without short-circuiting on either
// failure. Any channel succeeding marks the ticket escalated; both failing
// marks it queued and hands it to the background redelivery queue. The
// ticket is always persisted; it is never silently dropped.
func (e *Escalator) Escalate(ctx context.Context, contactID, reason string) *Ticket {
	ticket := newTicket(contactID, reason)

	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.Go(func() error {
		if err := e.crm.AddTags(gctx, contactID, []string{humanHandoffTag}); err != nil {
			e.log.Error("escalation: crm tag failed", "contactId", contactID, "error", err)
			return err
		}
		ticket.TagApplied = true
		return nil
	})
	g.Go(func() error {
		if err := e.bus.PublishSync(gctx, events.EscalationRaised{
			BaseEvent: events.NewBaseEvent(),
			TicketID:  ticket.ID,
			ContactID: contactID,
			Trigger:   reason,
		}); err != nil {
			e.log.Error("escalation: status event failed", "contactId", contactID, "error", err)
			return err
		}
		ticket.EventPublished = true
		return nil
	})
	_ = g.Wait()

	if ticket.TagApplied || ticket.EventPublished {
		ticket.Status = StatusEscalated
	} else {
		ticket.Status = StatusQueued
		if err := e.queue.EnqueueTicketRedelivery(ctx, ticket.ID); err != nil {
			e.log.Error("escalation: redelivery enqueue failed", "ticketId", ticket.ID, "error", err)
		}
	}

	if err := e.store.SaveTicket(ctx, ticket); err != nil {
		e.log.Error("escalation: ticket persist failed", "ticketId", ticket.ID, "error", err)
	}

	e.log.Info("escalation raised",
		"contactId", contactID,
		"ticketId", ticket.ID,
		"status", ticket.Status,
		"reason", reason)
	return ticket
}

// AddContextNote attaches the failure context to the contact's CRM timeline.
// Best effort; a note failure never changes the escalation outcome.
func (e *Escalator) AddContextNote(ctx context.Context, ticket *Ticket, detail string) {
	note := fmt.Sprintf("Automation handoff (%s): %s", ticket.Reason, detail)
	if err := e.crm.AddNote(ctx, ticket.SubjectID, note); err != nil {
		e.log.Error("escalation: context note failed", "ticketId", ticket.ID, "error", err)
		return
	}
	ticket.NoteAdded = true
}
