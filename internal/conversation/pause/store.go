// Package pause tracks which contacts automation must not message: contacts
// paused by a compliance hold and contacts who opted out. Backed by Redis so
// the API process and the worker share one view.
package pause

import (
	"context"
	"fmt"
	"time"

	"buyerbot_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

const (
	pauseKeyPrefix  = "buyerbot:pause:"
	optOutKeyPrefix = "buyerbot:optout:"

	// Compliance holds expire after 30 days as a safety valve in case the
	// manual clear never happens. Opt outs never expire.
	pauseTTL = 30 * 24 * time.Hour
)

// Store persists pause holds and the opt out registry.
type Store struct {
	rdb *redis.Client
	log *logger.Logger
}

func NewStore(rdb *redis.Client, log *logger.Logger) *Store {
	return &Store{rdb: rdb, log: log}
}

// Pause places a compliance hold on the contact until a human clears it.
func (s *Store) Pause(ctx context.Context, contactID, reason string) error {
	if err := s.rdb.Set(ctx, pauseKeyPrefix+contactID, reason, pauseTTL).Err(); err != nil {
		return fmt.Errorf("pause contact %s: %w", contactID, err)
	}
	return nil
}

// Resume clears a compliance hold.
func (s *Store) Resume(ctx context.Context, contactID string) error {
	if err := s.rdb.Del(ctx, pauseKeyPrefix+contactID).Err(); err != nil {
		return fmt.Errorf("resume contact %s: %w", contactID, err)
	}
	return nil
}

// IsPaused reports whether the contact is under a hold and why.
func (s *Store) IsPaused(ctx context.Context, contactID string) (bool, string, error) {
	reason, err := s.rdb.Get(ctx, pauseKeyPrefix+contactID).Result()
	if err == redis.Nil {
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("pause lookup %s: %w", contactID, err)
	}
	return true, reason, nil
}

// MarkOptedOut records a permanent opt out for the contact.
func (s *Store) MarkOptedOut(ctx context.Context, contactID string) error {
	if err := s.rdb.Set(ctx, optOutKeyPrefix+contactID, "1", 0).Err(); err != nil {
		return fmt.Errorf("opt out %s: %w", contactID, err)
	}
	return nil
}

// IsOptedOut reports whether the contact previously opted out.
func (s *Store) IsOptedOut(ctx context.Context, contactID string) (bool, error) {
	_, err := s.rdb.Get(ctx, optOutKeyPrefix+contactID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("opt out lookup %s: %w", contactID, err)
	}
	return true, nil
}
