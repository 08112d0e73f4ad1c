package pause

import (
	"context"
	"testing"

	"buyerbot_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, logger.New("test"))
}

func TestPauseAndResume(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	paused, _, err := store.IsPaused(ctx, "contact-1")
	if err != nil {
		t.Fatalf("IsPaused: %v", err)
	}
	if paused {
		t.Fatal("new contact must not be paused")
	}

	if err := store.Pause(ctx, "contact-1", "compliance violation: fair_housing"); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	paused, reason, err := store.IsPaused(ctx, "contact-1")
	if err != nil {
		t.Fatalf("IsPaused: %v", err)
	}
	if !paused {
		t.Fatal("contact should be paused")
	}
	if reason != "compliance violation: fair_housing" {
		t.Errorf("reason = %q", reason)
	}

	if err := store.Resume(ctx, "contact-1"); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	paused, _, _ = store.IsPaused(ctx, "contact-1")
	if paused {
		t.Error("contact should be resumed")
	}
}

func TestPauseIsScopedToContact(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Pause(ctx, "contact-1", "hold"); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	paused, _, _ := store.IsPaused(ctx, "contact-2")
	if paused {
		t.Error("pause leaked across contacts")
	}
}

func TestOptOutRegistry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	opted, err := store.IsOptedOut(ctx, "contact-1")
	if err != nil {
		t.Fatalf("IsOptedOut: %v", err)
	}
	if opted {
		t.Fatal("new contact must not be opted out")
	}

	if err := store.MarkOptedOut(ctx, "contact-1"); err != nil {
		t.Fatalf("MarkOptedOut: %v", err)
	}

	opted, err = store.IsOptedOut(ctx, "contact-1")
	if err != nil {
		t.Fatalf("IsOptedOut: %v", err)
	}
	if !opted {
		t.Error("opt out was not recorded")
	}
}
