package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"buyerbot_backend/internal/config"
	"buyerbot_backend/internal/conversation"
	"buyerbot_backend/internal/conversation/agent"
	"buyerbot_backend/internal/conversation/finance"
	convhandler "buyerbot_backend/internal/conversation/handler"
	"buyerbot_backend/internal/conversation/intent"
	"buyerbot_backend/internal/conversation/matching"
	"buyerbot_backend/internal/conversation/objection"
	"buyerbot_backend/internal/conversation/pause"
	"buyerbot_backend/internal/conversation/ports"
	"buyerbot_backend/internal/conversation/repository"
	"buyerbot_backend/internal/conversation/response"
	"buyerbot_backend/internal/conversation/transport"
	"buyerbot_backend/internal/events"
	"buyerbot_backend/internal/notification"
	"buyerbot_backend/internal/resilience"
	"buyerbot_backend/internal/scheduler"
	"buyerbot_backend/migrations"
	"buyerbot_backend/platform/ai/moonshot"
	"buyerbot_backend/platform/db"
	"buyerbot_backend/platform/httpkit"
	"buyerbot_backend/platform/logger"
	"buyerbot_backend/platform/validator"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg.DatabaseURL, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer rdb.Close()

	eventBus := events.NewInMemoryBus(log)

	if cfg.KafkaEnabled {
		bridge := events.NewKafkaBridge(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		defer bridge.Close()
		bridge.Attach(eventBus,
			events.IntentAnalyzed{}.EventName(),
			events.QualificationCompleted{}.EventName(),
			events.PropertyMatchUpdated{}.EventName(),
			events.LeadOptedOut{}.EventName(),
			events.BotStatusUpdated{}.EventName(),
			events.EscalationRaised{}.EventName(),
			events.ComplianceEscalationRaised{}.EventName(),
		)
		log.Info("kafka bridge attached", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	schedClient := scheduler.NewClient(cfg, eventBus)
	defer schedClient.Close()

	val := validator.New()

	// ========================================================================
	// Conversation Module (Composition Root)
	// ========================================================================

	pauseStore := pause.NewStore(rdb, log)
	repo := repository.NewRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)

	crm := transport.NewCRMClient(cfg.CRMBaseURL, cfg.CRMAPIKey, cfg.Retry.CallTimeout, log)
	finder := transport.NewPropertyClient(cfg.PropertyAPIBaseURL, cfg.PropertyAPIKey, cfg.Retry.CallTimeout, log)

	var textGen ports.TextGenerator
	textGen, err = agent.NewReplyGenerator(moonshot.Config{
		APIKey:  cfg.MoonshotAPIKey,
		BaseURL: cfg.MoonshotBaseURL,
		Model:   cfg.MoonshotModel,
	}, log)
	if err != nil {
		log.Error("failed to initialize reply generator", "error", err)
		panic("failed to initialize reply generator: " + err.Error())
	}

	var notifier resilience.ComplianceNotifier = notification.NoopNotifier{}
	if cfg.EmailEnabled {
		notifier = notification.NewSMTPNotifier(cfg)
		log.Info("compliance email notifications enabled", "inbox", cfg.ComplianceInbox)
	}

	objections, err := objection.NewHandler()
	if err != nil {
		log.Error("failed to load objection playbook", "error", err)
		panic("failed to load objection playbook: " + err.Error())
	}

	engine := conversation.NewEngine(
		cfg,
		intent.NewScorer(cfg.Scoring),
		finance.NewAssessor(cfg.Finance),
		objections,
		matching.NewAdapter(finder, eventBus, cfg.Retry, log),
		response.NewGenerator(textGen, nil, cfg.Retry, cfg.Messaging, log),
		resilience.NewEscalator(crm, eventBus, ticketRepo, schedClient, log),
		resilience.NewComplianceEscalator(crm, eventBus, ticketRepo, notifier, pauseStore, log),
		pauseStore,
		schedClient,
		crm,
		eventBus,
		log,
	)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpkit.RequestID())
	router.Use(httpkit.RequestLogger(log))
	router.Use(httpkit.SecurityHeaders())

	corsConfig := cors.DefaultConfig()
	if cfg.CORSAllowAll {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			httpkit.Error(c, http.StatusServiceUnavailable, "database unavailable", nil)
			return
		}
		httpkit.OK(c, gin.H{"status": "ok"})
	})

	limiter := httpkit.NewIPRateLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst, log)
	api := router.Group("/api/v1")
	api.Use(limiter.RateLimit())
	api.Use(httpkit.AuthRequired(cfg.JWTAccessSecret))

	convhandler.New(engine, repo, pauseStore, val, log).RegisterRoutes(api)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
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
