// Package ports defines the interfaces the conversation domain requires from
// external systems. These interfaces form the Anti-Corruption Layer (ACL),
// ensuring the workflow engine only knows about the data it needs, formatted
// the way it wants.
package ports

import (
	"context"

	"buyerbot_backend/internal/conversation/domain"
)

// TextGenerator produces the outbound reply text. The production
// implementation drives an LLM agent; tests use a stub.
type TextGenerator interface {
	// Generate returns the raw reply for the given prompt. The reply may be
	// plain text or a structured JSON object; the response stage normalizes
	// either shape.
	Generate(ctx context.Context, prompt string) (string, error)
}

// PropertyQuery is the search request sent to the property service.
type PropertyQuery struct {
	MaxPrice    int64
	Preferences map[string]string
	Limit       int
}

// PropertyFinder searches inventory for candidate listings.
type PropertyFinder interface {
	// Find returns ranked candidates for the query, best match first.
	// An empty slice is a normal result, not an error.
	Find(ctx context.Context, query PropertyQuery) ([]domain.PropertyMatch, error)
}

// CRMClient is the write surface into the CRM. Both operations must be safe
// for concurrent use across conversations.
type CRMClient interface {
	AddTags(ctx context.Context, contactID string, tags []string) error
	AddNote(ctx context.Context, contactID string, note string) error
}
