// Package response builds the outbound reply for a turn. Generation goes
// through the external text service; sanitization and the fallback rotation
// guarantee the pipeline always produces channel-safe text, even when the
// service is down.
package response

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"buyerbot_backend/internal/config"
	"buyerbot_backend/internal/conversation/domain"
	"buyerbot_backend/internal/conversation/ports"
	"buyerbot_backend/internal/resilience"
	"buyerbot_backend/platform/logger"
)

const recentTurnWindow = 6

// fallbackReplies rotate when generation fails so repeated failures don't
// send the same canned line twice in a row.
var fallbackReplies = []string{
	"Thanks for the message! Let me look into that and get right back to you.",
	"Good question. Give me a moment to pull that together for you.",
	"I want to get you an accurate answer on that, one moment.",
}

const unusableReply = "Happy to help with your home search. What matters most to you in your next place?"

// IntelligenceProvider is an optional enrichment source. Its absence or
// failure never degrades core generation.
type IntelligenceProvider interface {
	Context(ctx context.Context, conversationID string) (string, error)
}

// Result is the partial state update from the response stage.
type Result struct {
	Text       string
	Tone       string
	NextAction string
}

// Generator produces and sanitizes outbound replies.
type Generator struct {
	textGen      ports.TextGenerator
	intelligence IntelligenceProvider
	policy       config.Retry
	limits       config.Messaging
	log          *logger.Logger
	fallbackIdx  atomic.Uint32
}

func NewGenerator(textGen ports.TextGenerator, intelligence IntelligenceProvider, policy config.Retry, limits config.Messaging, log *logger.Logger) *Generator {
	return &Generator{
		textGen:      textGen,
		intelligence: intelligence,
		policy:       policy,
		limits:       limits,
		log:          log,
	}
}

// Generate builds the prompt, calls the text service once (with retries) and
// post-processes the reply. Never returns empty text: a failed or unusable
// generation degrades to a safe fallback.
func (g *Generator) Generate(ctx context.Context, state *domain.ConversationState) Result {
	prompt := g.buildPrompt(ctx, state)

	raw, err := resilience.Call(ctx, g.policy, g.log, "text-generation", "generate",
		func(ctx context.Context) (string, error) {
			return g.textGen.Generate(ctx, prompt)
		})
	if err != nil {
		g.log.Error("response: generation failed, using fallback",
			"conversationId", state.ConversationID, "error", err)
		return Result{
			Text:       g.Sanitize(g.nextFallback()),
			Tone:       toneFor(state),
			NextAction: domain.NextActionRespond,
		}
	}

	text := Normalize(raw)
	if LooksStructured(text) {
		text = StripStructure(text)
	}
	if strings.TrimSpace(text) == "" {
		text = unusableReply
	}

	return Result{
		Text:       g.Sanitize(text),
		Tone:       toneFor(state),
		NextAction: domain.NextActionRespond,
	}
}

// Sanitize applies the channel post-processing invariants: no hyphens, then
// the soft/hard length budget.
func (g *Generator) Sanitize(text string) string {
	return Truncate(StripHyphens(text), g.limits.SoftLimit, g.limits.HardLimit)
}

func (g *Generator) nextFallback() string {
	idx := g.fallbackIdx.Add(1)
	return fallbackReplies[int(idx)%len(fallbackReplies)]
}

func (g *Generator) buildPrompt(ctx context.Context, state *domain.ConversationState) string {
	var b strings.Builder

	b.WriteString("You are a friendly real estate assistant qualifying a home buyer over SMS.\n")
	fmt.Fprintf(&b, "Qualification step: %s. Financial readiness %.0f/100, motivation %.0f/100.\n",
		state.Step, state.FinancialReadinessScore, state.MotivationScore)

	if state.ContactName != "" {
		fmt.Fprintf(&b, "The buyer's name is %s.\n", state.ContactName)
	}
	if state.Budget != nil {
		fmt.Fprintf(&b, "Known budget: $%d to $%d.\n", state.Budget.Min, state.Budget.Max)
	}
	if state.FinancingStatus != domain.FinancingUnknown {
		fmt.Fprintf(&b, "Financing status: %s.\n", state.FinancingStatus)
	}
	if len(state.Matches) > 0 {
		fmt.Fprintf(&b, "%d matching listings were found; mention you have options to share.\n", len(state.Matches))
	}

	if n := len(state.ObjectionHistory); n > 0 {
		latest := state.ObjectionHistory[n-1]
		fmt.Fprintf(&b, "The buyer raised a %s objection. Approach: %s\n", latest.Type, latest.Approach)
		for _, point := range latest.TalkingPoints {
			fmt.Fprintf(&b, "- %s\n", point)
		}
	}

	if g.intelligence != nil {
		if enrichment, err := g.intelligence.Context(ctx, state.ConversationID); err == nil && enrichment != "" {
			fmt.Fprintf(&b, "Additional context: %s\n", enrichment)
		}
	}

	b.WriteString("Recent conversation:\n")
	history := state.History
	if len(history) > recentTurnWindow {
		history = history[len(history)-recentTurnWindow:]
	}
	for _, msg := range history {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Text)
	}

	fmt.Fprintf(&b, "Reply in under %d characters, conversational, no markdown, no lists.\n", g.limits.SoftLimit)
	return b.String()
}

func toneFor(state *domain.ConversationState) string {
	if state.Intent == nil {
		return "nurturing"
	}
	switch state.Intent.Temperature {
	case domain.TempHot:
		return "direct"
	case domain.TempWarm:
		return "consultative"
	default:
		return "nurturing"
	}
}
