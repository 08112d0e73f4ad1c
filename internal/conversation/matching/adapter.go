// Package matching translates conversation state into property search
// queries and normalizes the results. A missing budget is a normal outcome
// (more qualification needed), not an error.
package matching

import (
	"context"

	"buyerbot_backend/internal/config"
	"buyerbot_backend/internal/conversation/domain"
	"buyerbot_backend/internal/conversation/ports"
	"buyerbot_backend/internal/events"
	"buyerbot_backend/internal/resilience"
	"buyerbot_backend/platform/logger"
)

const resultLimit = 5

// Result is the partial state update from one matching pass.
type Result struct {
	Candidates []domain.PropertyMatch
	NextAction string
}

// Adapter wraps the external property finder.
type Adapter struct {
	finder ports.PropertyFinder
	bus    events.Bus
	policy config.Retry
	log    *logger.Logger
}

func NewAdapter(finder ports.PropertyFinder, bus events.Bus, policy config.Retry, log *logger.Logger) *Adapter {
	return &Adapter{finder: finder, bus: bus, policy: policy, log: log}
}

// Match searches inventory for the state's budget ceiling and preferences.
// Zero results routes to market education rather than a dead end. The
// external call carries the standard retry policy; an exhausted error
// propagates to the engine for escalation.
func (a *Adapter) Match(ctx context.Context, state *domain.ConversationState) (Result, error) {
	if state.Budget == nil || state.Budget.Max <= 0 {
		return Result{NextAction: domain.NextActionQualifyMore}, nil
	}

	query := ports.PropertyQuery{
		MaxPrice:    state.Budget.Max,
		Preferences: state.Preferences,
		Limit:       resultLimit,
	}

	candidates, err := resilience.Call(ctx, a.policy, a.log, "property-search", "find",
		func(ctx context.Context) ([]domain.PropertyMatch, error) {
			return a.finder.Find(ctx, query)
		})
	if err != nil {
		return Result{}, err
	}

	a.notify(ctx, state, len(candidates))

	if len(candidates) == 0 {
		return Result{NextAction: domain.NextActionEducateMarket}, nil
	}
	return Result{Candidates: candidates, NextAction: domain.NextActionRespond}, nil
}

// notify publishes the match-update event. Fire and forget: a notification
// failure is logged by the bus, never fatal to the turn.
func (a *Adapter) notify(ctx context.Context, state *domain.ConversationState, count int) {
	location := ""
	if state.Preferences != nil {
		location = state.Preferences["location"]
	}
	a.bus.Publish(ctx, events.PropertyMatchUpdated{
		BaseEvent:  events.NewBaseEvent(),
		ContactID:  state.ConversationID,
		MatchCount: count,
		BudgetMin:  state.Budget.Min,
		BudgetMax:  state.Budget.Max,
		Location:   location,
	})
}
