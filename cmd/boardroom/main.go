package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	_ "github.com/Strob0t/Boardroom/internal/adapter/discord"
	_ "github.com/Strob0t/Boardroom/internal/adapter/email"
	bdhttp "github.com/Strob0t/Boardroom/internal/adapter/http"
	"github.com/Strob0t/Boardroom/internal/adapter/litellm"
	bdnats "github.com/Strob0t/Boardroom/internal/adapter/nats"
	bdotel "github.com/Strob0t/Boardroom/internal/adapter/otel"
	"github.com/Strob0t/Boardroom/internal/adapter/postgres"
	"github.com/Strob0t/Boardroom/internal/adapter/ristretto"
	_ "github.com/Strob0t/Boardroom/internal/adapter/slack"
	"github.com/Strob0t/Boardroom/internal/adapter/ws"
	"github.com/Strob0t/Boardroom/internal/config"
	"github.com/Strob0t/Boardroom/internal/domain/persona"
	"github.com/Strob0t/Boardroom/internal/logger"
	"github.com/Strob0t/Boardroom/internal/middleware"
	"github.com/Strob0t/Boardroom/internal/port/messagequeue"
	"github.com/Strob0t/Boardroom/internal/port/notifier"
	"github.com/Strob0t/Boardroom/internal/resilience"
	"github.com/Strob0t/Boardroom/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-key" {
		if err := runHashKey(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	slog.SetDefault(logger.New(cfg.Logging))

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"max_rounds", cfg.Discussion.MaxRounds,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer := bdotel.InitTracer(cfg.Logging.Service)
	defer func() { _ = shutdownTracer(context.Background()) }()

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	var queue *bdnats.Queue
	if cfg.NATS.URL != "" {
		queue, err = bdnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = queue.Close() }()
		slog.Info("nats connected")
	} else {
		slog.Warn("nats disabled, execution tasks stay local")
	}

	cache, err := ristretto.New(cfg.Cache.MaxCostBytes)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	registry := persona.Defaults()
	if cfg.Personas.File != "" {
		registry, err = persona.Load(cfg.Personas.File)
		if err != nil {
			return fmt.Errorf("personas: %w", err)
		}
	}

	// --- Provider ---

	llmClient := litellm.NewClient(cfg.LiteLLM.URL, cfg.LiteLLM.MasterKey)
	llmClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
	provider := litellm.NewProvider(llmClient)

	// --- Services ---

	hub := ws.NewHub()
	store := postgres.NewStore(pool)
	sessions := service.NewSessionManager(registry, store)
	profiles := service.NewProfileService(store, cache, cfg.Cache.ProfileTTL, cfg.Discussion.MemoryDecisions)
	tracker := service.NewExecutionTracker(store, queueOrNil(queue), provider, cfg.Discussion)
	discussions := service.NewDiscussionService(
		sessions,
		service.NewTurnOrchestrator(provider, registry, cfg.Discussion),
		service.NewResponseGenerator(provider, registry, profiles, cfg.Discussion),
		service.NewClassifier(provider, cfg.Discussion),
		service.NewSummarizer(provider, registry, cfg.Discussion),
		tracker,
		registry,
		store,
		hub,
		cfg.Discussion,
	)

	var notifiers []notifier.Notifier
	for _, ch := range cfg.Notifications.Channels {
		n, err := notifier.New(ch.Provider, ch.Config)
		if err != nil {
			return fmt.Errorf("notifier %s (have: %s): %w", ch.Provider, strings.Join(notifier.Available(), ", "), err)
		}
		notifiers = append(notifiers, n)
	}
	discussions.SetNotifiers(notifiers)

	if metrics, err := bdotel.NewMetrics(); err == nil {
		discussions.SetMetrics(metrics)
	} else {
		slog.Warn("metrics disabled", "error", err)
	}

	if queue != nil {
		cancelResults, err := tracker.SubscribeResults(ctx)
		if err != nil {
			return fmt.Errorf("result subscriber: %w", err)
		}
		defer cancelResults()
	}

	// --- HTTP ---

	handlers := &bdhttp.Handlers{
		Discussions: discussions,
		Sessions:    sessions,
		Tracker:     tracker,
		Profiles:    profiles,
		Registry:    registry,
		Archive:     store,
		Hub:         hub,
		LiteLLM:     llmClient,
	}

	r := chi.NewRouter()
	r.Use(bdhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(bdhttp.Logger)
	r.Use(bdhttp.SecurityHeaders)
	r.Use(bdotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Auth(cfg.Auth))
	// No request timeout middleware: discussion streams run for minutes.

	bdhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// WriteTimeout stays zero so SSE responses are never cut off.
		IdleTimeout: 120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// queueOrNil avoids handing a typed nil pointer to an interface field.
func queueOrNil(q *bdnats.Queue) messagequeue.Queue {
	if q == nil {
		return nil
	}
	return q
}
