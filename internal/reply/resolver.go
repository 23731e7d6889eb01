// Package reply picks or generates the suggested answer to a message.
package reply

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/threadmind/dm-concierge/internal/llm"
	"github.com/threadmind/dm-concierge/internal/model"
	"github.com/threadmind/dm-concierge/internal/store"
	"github.com/threadmind/dm-concierge/pkg/logger"
)

// Mode selects how a reply is produced.
type Mode string

const (
	ModeLLM      Mode = "llm"
	ModeTemplate Mode = "template"
)

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeLLM, ModeTemplate:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown reply mode %q", s)
	}
}

// Completer generates a completion for one user message.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userText string) (string, error)
}

// TemplateFinder looks up the reply template for an intent.
type TemplateFinder interface {
	FindTemplateByIntent(ctx context.Context, intent model.Intent) (model.Template, error)
}

// PromptSource supplies the operator's system prompt override, if any.
type PromptSource interface {
	Get() string
}

// Resolution is the outcome of resolving a reply.
type Resolution struct {
	Suggestion   string
	UsedTemplate bool
	TemplateID   *int
}

// Resolver produces a non-empty suggestion for every message.
type Resolver struct {
	completer Completer
	templates TemplateFinder
	prompts   PromptSource
	logger    *logger.Logger
}

// NewResolver creates a resolver. prompts may be nil.
func NewResolver(completer Completer, templates TemplateFinder, prompts PromptSource, log *logger.Logger) *Resolver {
	return &Resolver{
		completer: completer,
		templates: templates,
		prompts:   prompts,
		logger:    log,
	}
}

// SystemPrompt returns the effective system prompt.
func (r *Resolver) SystemPrompt() string {
	if r.prompts != nil {
		if p := r.prompts.Get(); p != "" {
			return p
		}
	}
	return DefaultSystemPrompt()
}

// Resolve returns the suggestion for text. It never fails; any problem
// yields the canned reply.
func (r *Resolver) Resolve(ctx context.Context, mode Mode, text string, intent model.Intent) Resolution {
	switch mode {
	case ModeTemplate:
		return r.fromTemplate(ctx, intent)
	default:
		return r.fromLLM(ctx, text)
	}
}

func (r *Resolver) fromLLM(ctx context.Context, text string) Resolution {
	if r.completer == nil {
		return canned()
	}

	raw, err := r.completer.Complete(ctx, r.SystemPrompt(), text)
	if err != nil {
		r.logger.Warn("falling back to canned reply",
			zap.String("reason", llm.Sentinel(err)),
		)
		return canned()
	}

	suggestion := ParseCompletion(raw)
	if !usable(suggestion) {
		r.logger.Warn("unusable completion, falling back to canned reply",
			zap.Int("raw_len", len(raw)),
		)
		return canned()
	}
	return Resolution{Suggestion: suggestion}
}

func (r *Resolver) fromTemplate(ctx context.Context, intent model.Intent) Resolution {
	if r.templates == nil {
		return canned()
	}

	tpl, err := r.templates.FindTemplateByIntent(ctx, intent)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.logger.Warn("template lookup failed", zap.String("intent", string(intent)), zap.Error(err))
		}
		return canned()
	}
	if tpl.Content == "" {
		return canned()
	}

	id := tpl.ID
	return Resolution{
		Suggestion:   tpl.Content,
		UsedTemplate: true,
		TemplateID:   &id,
	}
}

func canned() Resolution {
	return Resolution{Suggestion: CannedReply, UsedTemplate: true}
}
