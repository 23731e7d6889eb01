package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/threadmind/dm-concierge/pkg/logger"
	"github.com/threadmind/dm-concierge/pkg/metrics"
)

// ErrorKind classifies completion failures.
type ErrorKind string

const (
	KindDisabled           ErrorKind = "disabled"
	KindMissingCredentials ErrorKind = "missing_credentials"
	KindTimeout            ErrorKind = "timeout"
	KindRateLimited        ErrorKind = "rate_limited"
	KindProvider           ErrorKind = "provider"
	KindEmpty              ErrorKind = "empty"
)

// Error is returned by Completer for every failed completion.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "llm: " + string(e.Kind)
	}
	return fmt.Sprintf("llm: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Sentinel renders err as the bracketed marker text shown to operators.
// Sentinels always start with "[" so they are never mistaken for a reply.
func Sentinel(err error) string {
	switch KindOf(err) {
	case KindDisabled:
		return "[LLM disabled]"
	case KindMissingCredentials:
		return "[API key not configured]"
	case KindTimeout:
		return "[LLM API timeout]"
	case KindRateLimited:
		return "[Rate limited: Please try again later.]"
	case KindEmpty:
		return "[Empty response from LLM]"
	default:
		if err == nil {
			return ""
		}
		return "[LLM error: " + err.Error() + "]"
	}
}

// CompleterConfig holds completion settings.
type CompleterConfig struct {
	Enabled     bool
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultCompleterConfig returns the default completion settings.
func DefaultCompleterConfig() CompleterConfig {
	return CompleterConfig{
		Enabled:     true,
		Model:       "deepseek/deepseek-r1-0528:free",
		Temperature: 0.7,
		MaxTokens:   512,
		Timeout:     60 * time.Second,
	}
}

// Completer sends a system prompt plus one user message to a Client.
type Completer struct {
	client Client
	cfg    CompleterConfig
	logger *logger.Logger
}

// NewCompleter creates a completer. A nil client means no credentials were
// configured and every call fails with KindMissingCredentials.
func NewCompleter(client Client, cfg CompleterConfig, log *logger.Logger) *Completer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	return &Completer{
		client: client,
		cfg:    cfg,
		logger: log,
	}
}

// Provider returns the name of the underlying provider.
func (c *Completer) Provider() string {
	if c.client == nil {
		return "none"
	}
	return c.client.Name()
}

// Complete asks the model to answer userText under systemPrompt.
func (c *Completer) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	if !c.cfg.Enabled {
		return "", &Error{Kind: KindDisabled}
	}
	if c.client == nil {
		return "", &Error{Kind: KindMissingCredentials}
	}

	ctx, span := otel.Tracer("llm").Start(ctx, "llm.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", c.client.Name()),
		attribute.String("llm.model", c.cfg.Model),
	)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.Complete(ctx, &CompletionRequest{
		Model: c.cfg.Model,
		Messages: []ChatMessage{
			{Role: RoleSystem, Content: systemPrompt},
			{Role: RoleUser, Content: userText},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		lerr := classify(ctx, err)
		span.RecordError(lerr)
		metrics.RecordLLMCompletion(c.client.Name(), string(lerr.Kind), elapsed, 0, 0)
		c.logger.Warn("llm completion failed",
			zap.String("provider", c.client.Name()),
			zap.String("kind", string(lerr.Kind)),
			zap.Error(err),
		)
		return "", lerr
	}

	metrics.RecordLLMCompletion(c.client.Name(), "ok", elapsed, resp.TokensIn, resp.TokensOut)

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return "", &Error{Kind: KindEmpty}
	}
	return content, nil
}

func classify(ctx context.Context, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	status := openAIStatusCode(err)
	if status == 0 {
		status = anthropicStatusCode(err)
	}
	switch status {
	case http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimited, Err: err}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &Error{Kind: KindMissingCredentials, Err: err}
	}
	return &Error{Kind: KindProvider, Err: err}
}
