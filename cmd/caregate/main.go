// Command caregate runs the health-conversation routing service: an HTTP
// gateway in front of the multi-agent orchestration engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"caregate/internal/adapter/gateway"
	"caregate/internal/adapter/inference"
	"caregate/internal/adapter/notify"
	"caregate/internal/adapter/store"
	"caregate/internal/agent"
	"caregate/internal/domain"
	"caregate/internal/infra/config"
	"caregate/internal/infra/logger"
	"caregate/internal/infra/tracer"
	"caregate/internal/usecase"
	"caregate/internal/usecase/eventbus"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, logClose, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer logClose()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("setup tracer: %w", err)
	}
	defer tracerShutdown(context.Background())

	// Storage backend.
	var (
		sessions domain.SessionStore
		profiles domain.ProfileStore
		closer   interface{ Close() error }
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return err
		}
		sessions, profiles, closer = st, st, st
	default:
		st := store.NewMemoryStore()
		sessions, profiles = st, st
	}
	if closer != nil {
		defer closer.Close()
	}

	// Inference collaborator, circuit-broken.
	var svc domain.InferenceService
	switch cfg.Inference.Provider {
	case "http":
		svc = inference.NewHTTPClient(inference.HTTPClientConfig{
			BaseURL:     cfg.Inference.BaseURL,
			APIKey:      cfg.Inference.APIKey,
			Model:       cfg.Inference.Model,
			RespTimeout: cfg.Inference.Timeout.Std(),
		}, log)
	default:
		svc = inference.NewMock()
	}
	svc = inference.NewBreakerService(svc, inference.BreakerSettings{
		MaxFailures: cfg.Inference.Breaker.MaxFailures,
		OpenFor:     cfg.Inference.Breaker.OpenFor.Std(),
		Interval:    cfg.Inference.Breaker.Interval.Std(),
	}, log)

	// Event bus and alert delivery.
	bus := eventbus.New(log)
	defer bus.Close()

	sinks := []domain.NotificationSink{notify.NewLogSink(log)}
	if cfg.Notify.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookSink(cfg.Notify.WebhookURL, cfg.Notify.Timeout.Std(), log))
	}
	unsubscribe := notify.Dispatch(bus, log, sinks...)
	defer unsubscribe()

	// Routing engine.
	roster := agent.Roster(svc, agent.Params{
		AgeGroupBoost:    cfg.Routing.AgeGroupBoost,
		InferenceTimeout: cfg.Inference.Timeout.Std(),
		Model:            cfg.Inference.Model,
	}, log)

	ctxmgr := usecase.NewContextManager(sessions, profiles, bus, usecase.ContextManagerConfig{
		SessionTimeout: cfg.Session.Timeout.Std(),
		HistoryLimit:   cfg.Session.HistoryLimit,
		TopicLimit:     cfg.Session.TopicLimit,
		ContextWindow:  cfg.Session.ContextWindow,
		StoreTimeout:   cfg.Store.Timeout.Std(),
	}, log)

	orch := usecase.NewOrchestrator(roster, ctxmgr, usecase.NewSessionLocker(), bus, usecase.RoutingParams{
		EmergencyConfidence: cfg.Routing.EmergencyConfidence,
		LowConfidenceFloor:  cfg.Routing.LowConfidenceFloor,
		MultiAgentThreshold: cfg.Routing.MultiAgentThreshold,
		FallbackConfidence:  cfg.Routing.FallbackConfidence,
		MaxAlternatives:     cfg.Routing.MaxAlternatives,
		MaxMessageChars:     cfg.Routing.MaxMessageChars,
	}, log)

	// Periodic expiry sweep.
	go sweepLoop(ctx, ctxmgr, cfg.Session.SweepInterval.Std(), log)

	// HTTP gateway.
	handler := gateway.NewHandler(orch, ctxmgr, log)
	srv := gateway.NewServer(ctx, gateway.ServerConfig{
		Addr:           cfg.Server.Addr,
		RequestsPerMin: cfg.Server.RequestsPerMin,
		BurstSize:      cfg.Server.BurstSize,
	}, handler, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("gateway listening", "addr", cfg.Server.Addr,
			"store", cfg.Store.Driver, "inference", svc.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// sweepLoop removes expired sessions on a fixed interval until ctx ends.
func sweepLoop(ctx context.Context, ctxmgr *usecase.ContextManager, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			removed, err := ctxmgr.SweepExpired(ctx)
			if err != nil {
				log.Error("session sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				log.Info("swept expired sessions", "removed", removed)
			}
		case <-ctx.Done():
			return
		}
	}
}
