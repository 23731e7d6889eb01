// Package bootstrap builds the shared runtime dependencies of the binaries
// from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/threadmind/dm-concierge/internal/config"
	"github.com/threadmind/dm-concierge/internal/events"
	"github.com/threadmind/dm-concierge/internal/llm"
	"github.com/threadmind/dm-concierge/internal/prompt"
	"github.com/threadmind/dm-concierge/internal/reply"
	"github.com/threadmind/dm-concierge/internal/service"
	"github.com/threadmind/dm-concierge/internal/store"
	"github.com/threadmind/dm-concierge/pkg/logger"
)

// Runtime holds the components shared by the API server and the poller.
type Runtime struct {
	Store     *store.Store
	Prompts   *prompt.Store
	Completer *llm.Completer
	Resolver  *reply.Resolver
	Recorder  *service.Recorder
	// Events is nil when NATS is not configured.
	Events    *events.Client
	Publisher *events.Publisher
}

// NewLogger creates the process logger for cfg.
func NewLogger(cfg *config.Config) (*logger.Logger, error) {
	if os.Getenv("ENV") == "development" {
		return logger.NewDevelopment()
	}
	return logger.New(cfg.LogLevel)
}

// NewCompleter creates the completer for the configured provider. Without
// an API key the completer reports missing credentials on every call.
func NewCompleter(cfg *config.Config, log *logger.Logger) (*llm.Completer, error) {
	var client llm.Client
	if key := cfg.LLMAPIKey(); key != "" {
		c, err := llm.NewClient(providerConfig(cfg, key))
		if err != nil {
			return nil, fmt.Errorf("create llm client: %w", err)
		}
		client = c
	} else {
		log.Warn("no API key configured for LLM provider", zap.String("provider", cfg.LLMProvider))
	}

	return llm.NewCompleter(client, llm.CompleterConfig{
		Enabled:     cfg.LLMEnabled,
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     cfg.LLMTimeout,
	}, log.Named("llm")), nil
}

// providerConfig scopes endpoint and attribution settings to the provider
// they belong to, so one provider's key is never sent to another's endpoint.
func providerConfig(cfg *config.Config, key string) llm.ProviderConfig {
	pc := llm.ProviderConfig{
		Provider: llm.Provider(cfg.LLMProvider),
		APIKey:   key,
	}
	switch pc.Provider {
	case llm.ProviderOpenRouter:
		pc.BaseURL = cfg.OpenRouterBaseURL
		pc.Referer = cfg.OpenRouterReferer
		pc.Title = cfg.OpenRouterTitle
	case llm.ProviderOpenAI:
		pc.BaseURL = cfg.OpenAIBaseURL
	}
	return pc
}

// New opens the store and wires the reply pipeline. Callers must Close the
// runtime.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Runtime, error) {
	if dir := filepath.Dir(cfg.DatabasePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Store: st}

	rt.Prompts, err = prompt.NewStore(cfg.PromptFile, log.Named("prompt"))
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.Completer, err = NewCompleter(cfg, log)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Resolver = reply.NewResolver(rt.Completer, st, rt.Prompts, log.Named("reply"))

	var publisher service.EventPublisher
	eventsCfg := events.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}
	if eventsCfg.Enabled() {
		rt.Events, err = events.Connect(ctx, eventsCfg, log.Named("events"))
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.Publisher = events.NewPublisher(rt.Events)
		if err := rt.Publisher.EnsureStream(ctx); err != nil {
			rt.Close()
			return nil, err
		}
		publisher = rt.Publisher
	}
	rt.Recorder = service.NewRecorder(st, publisher, log.Named("recorder"))

	log.Info("runtime ready",
		zap.String("database", cfg.DatabasePath),
		zap.String("prompt_file", rt.Prompts.Path()),
		zap.String("llm_provider", rt.Completer.Provider()),
		zap.Bool("llm_enabled", cfg.LLMEnabled),
		zap.Bool("events", rt.Events != nil),
	)
	return rt, nil
}

// Close releases the event connection and the store.
func (r *Runtime) Close() error {
	if r.Events != nil {
		r.Events.Close()
	}
	return r.Store.Close()
}
