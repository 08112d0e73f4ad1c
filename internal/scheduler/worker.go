package scheduler

import (
	"context"
	"errors"
	"fmt"

	"buyerbot_backend/internal/config"
	"buyerbot_backend/internal/conversation/repository"
	"buyerbot_backend/internal/events"
	"buyerbot_backend/internal/resilience"
	"buyerbot_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// humanHandoffTag mirrors the tag the escalator applies on the synchronous
// path; redelivery must converge on the same CRM state.
const humanHandoffTag = "Needs Human"

// ContactGate mirrors the engine's view of who must not be messaged. The
// worker checks it again at delivery time: eligibility when the follow-up was
// scheduled says nothing about eligibility days later.
type ContactGate interface {
	IsOptedOut(ctx context.Context, contactID string) (bool, error)
	IsPaused(ctx context.Context, contactID string) (bool, string, error)
}

// CRMWriter is the slice of the CRM surface the worker needs: tags for
// ticket redelivery, notes for due follow-ups.
type CRMWriter interface {
	AddTags(ctx context.Context, contactID string, tags []string) error
	AddNote(ctx context.Context, contactID string, note string) error
}

// TicketSource loads and updates tickets for redelivery. Implemented by the
// conversation ticket repository.
type TicketSource interface {
	GetTicket(ctx context.Context, id uuid.UUID) (*resilience.Ticket, error)
	SaveTicket(ctx context.Context, ticket *resilience.Ticket) error
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	tickets TicketSource
	gate    ContactGate
	crm     CRMWriter
	bus     events.Bus
	log     *logger.Logger
}

func NewWorker(cfg *config.Config, tickets TicketSource, gate ContactGate, crm CRMWriter, bus events.Bus, log *logger.Logger) *Worker {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: 10,
			Queues:      map[string]int{"default": 1},
		},
	)

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		tickets: tickets,
		gate:    gate,
		crm:     crm,
		bus:     bus,
		log:     log,
	}

	mux.HandleFunc(TaskFollowUpDue, w.handleFollowUpDue)
	mux.HandleFunc(TaskTicketRedelivery, w.handleTicketRedelivery)

	return w
}

// handleFollowUpDue re-checks eligibility, drops a CRM note so the outbound
// side sees the touch point, and announces the due follow-up. The outbound
// sender subscribes to the event; the worker never talks to the messaging
// channel directly.
func (w *Worker) handleFollowUpDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFollowUpDuePayload(task)
	if err != nil {
		return err
	}

	if optedOut, err := w.gate.IsOptedOut(ctx, payload.ContactID); err != nil {
		return err
	} else if optedOut {
		w.log.Info("follow up dropped: contact opted out", "contact_id", payload.ContactID)
		return nil
	}
	if paused, reason, err := w.gate.IsPaused(ctx, payload.ContactID); err != nil {
		return err
	} else if paused {
		w.log.Info("follow up dropped: contact paused", "contact_id", payload.ContactID, "reason", reason)
		return nil
	}

	// The note is best effort; the event is the delivery contract.
	note := fmt.Sprintf("Automated follow up due (%s lead)", payload.Temperature)
	if err := w.crm.AddNote(ctx, payload.ContactID, note); err != nil {
		w.log.ExternalCallFailed("crm", "add_note", 1, err)
	}

	return w.bus.PublishSync(ctx, events.FollowUpDue{
		BaseEvent:   events.NewBaseEvent(),
		ContactID:   payload.ContactID,
		Temperature: payload.Temperature,
	})
}

// handleTicketRedelivery retries the delivery channels for a queued ticket.
// Returning an error lets asynq retry with its own backoff; a ticket that was
// already delivered elsewhere is a no-op.
func (w *Worker) handleTicketRedelivery(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseTicketRedeliveryPayload(task)
	if err != nil {
		return err
	}
	ticketID, err := uuid.Parse(payload.TicketID)
	if err != nil {
		return err
	}

	ticket, err := w.tickets.GetTicket(ctx, ticketID)
	if errors.Is(err, repository.ErrTicketNotFound) {
		w.log.Warn("ticket redelivery: ticket missing", "ticket_id", payload.TicketID)
		return nil
	}
	if err != nil {
		return err
	}
	if ticket.Status != resilience.StatusQueued {
		return nil
	}

	delivered := false
	if err := w.crm.AddTags(ctx, ticket.SubjectID, []string{humanHandoffTag}); err != nil {
		w.log.ExternalCallFailed("crm", "add_tags", 1, err)
	} else {
		ticket.TagApplied = true
		delivered = true
	}
	if err := w.bus.PublishSync(ctx, events.EscalationRaised{
		BaseEvent: events.NewBaseEvent(),
		TicketID:  ticket.ID,
		ContactID: ticket.SubjectID,
		Trigger:   ticket.Reason,
	}); err != nil {
		w.log.ExternalCallFailed("event-bus", "publish", 1, err)
	} else {
		ticket.EventPublished = true
		delivered = true
	}

	if !delivered {
		return fmt.Errorf("ticket %s: all delivery channels failed again", ticket.ID)
	}

	ticket.Status = resilience.StatusEscalated
	return w.tickets.SaveTicket(ctx, ticket)
}

// Run blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
