package reply

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadmind/dm-concierge/internal/llm"
	"github.com/threadmind/dm-concierge/internal/model"
	"github.com/threadmind/dm-concierge/internal/store"
	"github.com/threadmind/dm-concierge/pkg/logger"
)

type stubCompleter struct {
	out        string
	err        error
	gotSystem  string
	gotUser    string
	callsCount int
}

func (s *stubCompleter) Complete(_ context.Context, system, user string) (string, error) {
	s.callsCount++
	s.gotSystem, s.gotUser = system, user
	return s.out, s.err
}

type stubTemplates struct {
	byIntent map[model.Intent]model.Template
	err      error
}

func (s *stubTemplates) FindTemplateByIntent(_ context.Context, intent model.Intent) (model.Template, error) {
	if s.err != nil {
		return model.Template{}, s.err
	}
	t, ok := s.byIntent[intent]
	if !ok {
		return model.Template{}, store.ErrNotFound
	}
	return t, nil
}

type stubPrompt string

func (p stubPrompt) Get() string { return string(p) }

func TestParseCompletion(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"reply marker", "Intent: greeting\nReply: Hi there!", "Hi there!"},
		{"reply marker case", "intent: greeting\nreply:   Welcome!\nMore text.", "Welcome!\nMore text."},
		{"intent line only", "Intent: pricing_inquiry\nOur plans start at $99/month.", "Our plans start at $99/month."},
		{"raw text", "  Just a plain answer.  ", "Just a plain answer."},
		{"think block stripped", "<think>\nThe user says Reply: nope\n</think>\nReply: Happy to help.", "Happy to help."},
		{"think only", "<think>hmm</think>", ""},
		{"unclosed think", "<think>The user greets me. I should respond warmly and mention", ""},
		{"unclosed think after reply", "Reply: Hi!\n<think>should I add more", "Hi!"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCompletion(tt.raw))
		})
	}
}

func TestResolve_LLM(t *testing.T) {
	c := &stubCompleter{out: "Intent: pricing_inquiry\nReply: Plans start at $99/month."}
	r := NewResolver(c, nil, nil, logger.NewNop())

	res := r.Resolve(context.Background(), ModeLLM, "How much?", model.IntentPricingInquiry)
	assert.Equal(t, "Plans start at $99/month.", res.Suggestion)
	assert.False(t, res.UsedTemplate)
	assert.Nil(t, res.TemplateID)
	assert.Equal(t, "How much?", c.gotUser)
	assert.Equal(t, DefaultSystemPrompt(), c.gotSystem)
}

func TestResolve_LLMUsesPromptOverride(t *testing.T) {
	c := &stubCompleter{out: "Reply: ok"}
	r := NewResolver(c, nil, stubPrompt("Answer like a pirate."), logger.NewNop())

	r.Resolve(context.Background(), ModeLLM, "hi", model.IntentGreeting)
	assert.Equal(t, "Answer like a pirate.", c.gotSystem)

	r = NewResolver(c, nil, stubPrompt(""), logger.NewNop())
	r.Resolve(context.Background(), ModeLLM, "hi", model.IntentGreeting)
	assert.Equal(t, DefaultSystemPrompt(), c.gotSystem)
}

func TestResolve_LLMFallsBackToCanned(t *testing.T) {
	tests := []struct {
		name string
		c    Completer
	}{
		{"timeout", &stubCompleter{err: &llm.Error{Kind: llm.KindTimeout}}},
		{"rate limited", &stubCompleter{err: &llm.Error{Kind: llm.KindRateLimited}}},
		{"disabled", &stubCompleter{err: &llm.Error{Kind: llm.KindDisabled}}},
		{"plain error", &stubCompleter{err: errors.New("connection refused")}},
		{"bracket output", &stubCompleter{out: "[Rate limited: Please try again later.]"}},
		{"bracket after marker", &stubCompleter{out: "Reply: [redacted]"}},
		{"empty output", &stubCompleter{out: "Reply:   "}},
		{"truncated reasoning", &stubCompleter{out: "<think>The user greets me. I should respond warmly and mention"}},
		{"no completer", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.c, nil, nil, logger.NewNop())
			res := r.Resolve(context.Background(), ModeLLM, "hello", model.IntentGreeting)
			assert.Equal(t, CannedReply, res.Suggestion)
			assert.True(t, res.UsedTemplate)
			assert.Nil(t, res.TemplateID)
		})
	}
}

func TestResolve_Template(t *testing.T) {
	templates := &stubTemplates{byIntent: map[model.Intent]model.Template{
		model.IntentGreeting: {ID: 4, Intent: model.IntentGreeting, Content: "Hey! How can we help?"},
	}}
	c := &stubCompleter{out: "Reply: should not be used"}
	r := NewResolver(c, templates, nil, logger.NewNop())

	res := r.Resolve(context.Background(), ModeTemplate, "hi", model.IntentGreeting)
	assert.Equal(t, "Hey! How can we help?", res.Suggestion)
	assert.True(t, res.UsedTemplate)
	require.NotNil(t, res.TemplateID)
	assert.Equal(t, 4, *res.TemplateID)
	assert.Zero(t, c.callsCount)

	res = r.Resolve(context.Background(), ModeTemplate, "my order is broken", model.IntentSupportRequest)
	assert.Equal(t, CannedReply, res.Suggestion)
	assert.True(t, res.UsedTemplate)
	assert.Nil(t, res.TemplateID)
}

func TestResolve_TemplateLookupError(t *testing.T) {
	r := NewResolver(nil, &stubTemplates{err: errors.New("disk on fire")}, nil, logger.NewNop())
	res := r.Resolve(context.Background(), ModeTemplate, "hi", model.IntentGreeting)
	assert.Equal(t, CannedReply, res.Suggestion)
}

func TestResolve_NeverEmpty(t *testing.T) {
	outputs := []string{"", " ", "\n", "<think></think>", "Reply:", "Intent: x", "[", "ok"}
	for _, out := range outputs {
		r := NewResolver(&stubCompleter{out: out}, nil, nil, logger.NewNop())
		for _, mode := range []Mode{ModeLLM, ModeTemplate} {
			res := r.Resolve(context.Background(), mode, "text", model.IntentOther)
			assert.NotEmpty(t, res.Suggestion, "mode=%s out=%q", mode, out)
		}
	}
}

func TestDefaultSystemPromptListsEveryIntent(t *testing.T) {
	p := DefaultSystemPrompt()
	for _, intent := range model.Intents {
		assert.Contains(t, p, string(intent))
	}
	assert.Contains(t, p, "$99/month")
	assert.Contains(t, p, "Reply:")
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("template")
	require.NoError(t, err)
	assert.Equal(t, ModeTemplate, m)

	_, err = ParseMode("magic")
	assert.Error(t, err)
}
