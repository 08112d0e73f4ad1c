// Package scheduler provides delayed background work on top of asynq:
// temperature-based follow-up touches and redelivery of escalation tickets
// whose synchronous channels failed.
package scheduler

import (
	"context"
	"time"

	"buyerbot_backend/internal/config"
	"buyerbot_backend/internal/conversation/domain"
	"buyerbot_backend/internal/events"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// ticketRedeliveryDelay spaces redelivery attempts out so a CRM outage has
// time to clear before the next try.
const ticketRedeliveryDelay = 5 * time.Minute

// Client enqueues scheduler tasks. It implements the engine's
// FollowUpScheduler and the resilience layer's QueuedDelivery.
type Client struct {
	client *asynq.Client
	delays config.FollowUp
	bus    events.Bus
}

func NewClient(cfg *config.Config, bus events.Bus) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB}),
		delays: cfg.FollowUp,
		bus:    bus,
	}
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleFollowUp enqueues the next automated touch for a contact, delayed
// by lead temperature: hot leads get a fast nudge, cold leads a slow one.
func (c *Client) ScheduleFollowUp(ctx context.Context, contactID string, temperature domain.Temperature) error {
	if c == nil || c.client == nil {
		return nil
	}

	delay := c.delayFor(temperature)
	task, err := NewFollowUpDueTask(FollowUpDuePayload{
		ContactID:   contactID,
		Temperature: string(temperature),
	})
	if err != nil {
		return err
	}
	if _, err := c.client.EnqueueContext(ctx, task, asynq.ProcessIn(delay)); err != nil {
		return err
	}

	c.bus.Publish(ctx, events.FollowUpScheduled{
		BaseEvent:   events.NewBaseEvent(),
		ContactID:   contactID,
		Temperature: string(temperature),
		DelayHours:  int(delay / time.Hour),
	})
	return nil
}

// EnqueueTicketRedelivery schedules a retry for a ticket whose delivery
// channels all failed.
func (c *Client) EnqueueTicketRedelivery(ctx context.Context, ticketID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	task, err := NewTicketRedeliveryTask(TicketRedeliveryPayload{TicketID: ticketID.String()})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessIn(ticketRedeliveryDelay))
	return err
}

func (c *Client) delayFor(temperature domain.Temperature) time.Duration {
	switch temperature {
	case domain.TempHot:
		return c.delays.HotDelay
	case domain.TempWarm:
		return c.delays.WarmDelay
	default:
		return c.delays.DefaultDelay
	}
}
