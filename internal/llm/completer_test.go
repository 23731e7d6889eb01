package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadmind/dm-concierge/pkg/logger"
)

type fakeClient struct {
	content string
	err     error
	delay   time.Duration
	got     *CompletionRequest
}

func (f *fakeClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	f.got = req
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &CompletionResponse{Content: f.content}, nil
}

func (f *fakeClient) Name() string     { return "fake" }
func (f *fakeClient) Models() []string { return []string{"fake-1"} }

func newTestCompleter(c Client, mutate func(*CompleterConfig)) *Completer {
	cfg := DefaultCompleterConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	return NewCompleter(c, cfg, logger.NewNop())
}

func TestComplete_Success(t *testing.T) {
	fc := &fakeClient{content: "  Reply: hello  "}
	c := newTestCompleter(fc, nil)

	out, err := c.Complete(context.Background(), "be nice", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Reply: hello", out)

	require.NotNil(t, fc.got)
	require.Len(t, fc.got.Messages, 2)
	assert.Equal(t, RoleSystem, fc.got.Messages[0].Role)
	assert.Equal(t, "be nice", fc.got.Messages[0].Content)
	assert.Equal(t, RoleUser, fc.got.Messages[1].Role)
	assert.Equal(t, 512, fc.got.MaxTokens)
	assert.InDelta(t, 0.7, fc.got.Temperature, 1e-9)
}

func TestComplete_Failures(t *testing.T) {
	tests := []struct {
		name   string
		client Client
		mutate func(*CompleterConfig)
		kind   ErrorKind
	}{
		{"disabled", &fakeClient{content: "x"}, func(c *CompleterConfig) { c.Enabled = false }, KindDisabled},
		{"no client", nil, nil, KindMissingCredentials},
		{"empty", &fakeClient{content: "   "}, nil, KindEmpty},
		{"provider", &fakeClient{err: errors.New("boom")}, nil, KindProvider},
		{"rate limited", &fakeClient{err: &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}}, nil, KindRateLimited},
		{"unauthorized", &fakeClient{err: &openai.APIError{HTTPStatusCode: http.StatusUnauthorized}}, nil, KindMissingCredentials},
		{"timeout", &fakeClient{delay: time.Second}, func(c *CompleterConfig) { c.Timeout = 10 * time.Millisecond }, KindTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCompleter(tt.client, tt.mutate)
			out, err := c.Complete(context.Background(), "sys", "hi")
			require.Error(t, err)
			assert.Empty(t, out)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.True(t, strings.HasPrefix(Sentinel(err), "["))
		})
	}
}

func TestSentinel(t *testing.T) {
	assert.Equal(t, "", Sentinel(nil))
	assert.Equal(t, "[LLM disabled]", Sentinel(&Error{Kind: KindDisabled}))
	assert.Equal(t, "[LLM API timeout]", Sentinel(&Error{Kind: KindTimeout}))
	assert.Equal(t, "[Rate limited: Please try again later.]", Sentinel(&Error{Kind: KindRateLimited}))
	assert.Equal(t, "[API key not configured]", Sentinel(&Error{Kind: KindMissingCredentials}))
	assert.True(t, strings.HasPrefix(Sentinel(errors.New("x")), "[LLM error:"))
}

func TestFoldSystem(t *testing.T) {
	out := foldSystem([]ChatMessage{
		{Role: RoleSystem, Content: "rules"},
		{Role: RoleUser, Content: "hello"},
	})
	require.Len(t, out, 1)
	assert.Equal(t, RoleUser, out[0].Role)
	assert.Equal(t, "rules\n\nhello", out[0].Content)

	out = foldSystem([]ChatMessage{{Role: RoleSystem, Content: "only"}})
	require.Len(t, out, 1)
	assert.Equal(t, RoleUser, out[0].Role)
}

func TestHeaderTransport(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	client := &http.Client{Transport: &headerTransport{
		base:    http.DefaultTransport,
		headers: map[string]string{"X-Title": "concierge", "HTTP-Referer": ""},
	}}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "concierge", got.Get("X-Title"))
	assert.Empty(t, got.Get("HTTP-Referer"))
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(ProviderConfig{Provider: ProviderOpenRouter})
	assert.Error(t, err)

	c, err := NewClient(ProviderConfig{Provider: ProviderOpenRouter, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openrouter", c.Name())

	c, err = NewClient(ProviderConfig{Provider: ProviderAnthropic, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Name())

	_, err = NewClient(ProviderConfig{Provider: "bogus", APIKey: "k"})
	assert.Error(t, err)
}
