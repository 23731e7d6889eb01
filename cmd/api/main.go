// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/threadmind/dm-concierge/internal/bootstrap"
	"github.com/threadmind/dm-concierge/internal/config"
	"github.com/threadmind/dm-concierge/internal/handler"
	"github.com/threadmind/dm-concierge/internal/poller"
	"github.com/threadmind/dm-concierge/internal/service"
	"github.com/threadmind/dm-concierge/pkg/logger"
	"github.com/threadmind/dm-concierge/pkg/tracing"
)

func main() {
	configPath := flag.String("config", "", "optional config file (.env, YAML, JSON or TOML)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := bootstrap.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize tracing if enabled
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "dm-concierge-api", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	rt, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize runtime", zap.Error(err))
		os.Exit(1)
	}
	defer rt.Close()

	go func() {
		if err := rt.Prompts.Watch(ctx); err != nil {
			log.Warn("prompt watcher stopped", zap.Error(err))
		}
	}()

	// Initialize handlers
	var eventsStatus handler.EventsStatus
	if rt.Publisher != nil {
		eventsStatus = rt.Publisher
	}

	handlers := handler.Handlers{
		Health:    handler.NewHealthHandler(rt.Store, eventsStatus),
		Logs:      handler.NewLogHandler(rt.Store, service.NewStatsService(rt.Store), log),
		Prompt:    handler.NewPromptHandler(rt.Prompts, log),
		Messages:  handler.NewMessageHandler(service.NewProcessor(rt.Resolver, rt.Recorder, log.Named("processor")), log),
		Templates: handler.NewTemplateHandler(rt.Store, log),
		Targets:   handler.NewTargetHandler(rt.Store, log),
		Tags:      handler.NewTagHandler(rt.Store, log),
	}

	if runner, err := poller.NewRunner(cfg.PollerCommand, cfg.PollerRunTimeout); err != nil {
		log.Warn("poller run-once disabled", zap.Error(err))
	} else {
		handlers.Poller = handler.NewPollerHandler(runner, log)
	}

	router := handler.NewRouter(handlers, handler.RouterConfig{
		JWTSecret:          cfg.JWTSecret,
		RateLimitRequests:  cfg.RateLimitRequests,
		RateLimitWindow:    cfg.RateLimitWindow,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		StaticDir:          cfg.StaticDir,
	}, log)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
