// Package agent provides the production text generator: an ADK agent backed
// by Kimi that turns pipeline prompts into buyer-facing replies.
package agent

import (
	"context"
	"fmt"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/google/uuid"

	"buyerbot_backend/platform/ai/moonshot"
	"buyerbot_backend/platform/apperr"
	"buyerbot_backend/platform/logger"
)

const appName = "buyer_reply_generator"

// ReplyGenerator implements ports.TextGenerator with an ADK agent.
type ReplyGenerator struct {
	agent          agent.Agent
	runner         *runner.Runner
	sessionService session.Service
	log            *logger.Logger
}

// NewReplyGenerator builds the ADK agent with Kimi.
func NewReplyGenerator(cfg moonshot.Config, log *logger.Logger) (*ReplyGenerator, error) {
	kimi := moonshot.NewModel(cfg)

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "BuyerReplyGenerator",
		Model:       kimi,
		Description: "Writes SMS replies that qualify home buyers.",
		Instruction: `You write one short SMS reply from a real estate assistant to a home buyer.
The user message contains the full conversation context and instructions.
Output only the reply text. No markdown, no headings, no lists, no preamble.`,
	})
	if err != nil {
		return nil, fmt.Errorf("create reply agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        appName,
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("create reply runner: %w", err)
	}

	return &ReplyGenerator{
		agent:          adkAgent,
		runner:         r,
		sessionService: sessionService,
		log:            log,
	}, nil
}

// Generate runs the agent once on the prompt and collects the text output.
// Each invocation uses a fresh session; the pipeline supplies all context in
// the prompt itself.
func (g *ReplyGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	userID := "pipeline"
	sessionID := uuid.New().String()

	if _, err := g.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   appName,
		UserID:    userID,
		SessionID: sessionID,
	}); err != nil {
		return "", apperr.UpstreamService("reply agent: create session", err)
	}

	userMessage := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}

	var output string
	for event, err := range g.runner.Run(ctx, userID, sessionID, userMessage, agent.RunConfig{StreamingMode: agent.StreamingModeNone}) {
		if err != nil {
			return "", apperr.UpstreamService("reply agent: run failed", err)
		}
		if event.Content != nil {
			for _, part := range event.Content.Parts {
				output += part.Text
			}
		}
	}

	if output == "" {
		return "", apperr.UpstreamService("reply agent: empty output", nil)
	}
	return output, nil
}
