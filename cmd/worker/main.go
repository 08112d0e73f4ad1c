package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"buyerbot_backend/internal/config"
	"buyerbot_backend/internal/conversation/pause"
	"buyerbot_backend/internal/conversation/repository"
	"buyerbot_backend/internal/conversation/transport"
	"buyerbot_backend/internal/events"
	"buyerbot_backend/internal/scheduler"
	"buyerbot_backend/platform/db"
	"buyerbot_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer rdb.Close()

	eventBus := events.NewInMemoryBus(log)

	if cfg.KafkaEnabled {
		bridge := events.NewKafkaBridge(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		defer bridge.Close()
		bridge.Attach(eventBus,
			events.FollowUpDue{}.EventName(),
			events.EscalationRaised{}.EventName(),
		)
		log.Info("kafka bridge attached", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	crm := transport.NewCRMClient(cfg.CRMBaseURL, cfg.CRMAPIKey, cfg.Retry.CallTimeout, log)

	worker := scheduler.NewWorker(
		cfg,
		repository.NewTicketRepository(pool),
		pause.NewStore(rdb, log),
		crm,
		eventBus,
		log,
	)

	log.Info("worker listening", "redis", cfg.RedisAddr)
	worker.Run(ctx)

	eventBus.Wait()
	log.Info("worker stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return fmt.Errorf("%s: %w", name, lastErr)
}
