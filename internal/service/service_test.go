package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/threadmind/dm-concierge/internal/llm"
	"github.com/threadmind/dm-concierge/internal/model"
	"github.com/threadmind/dm-concierge/internal/reply"
	"github.com/threadmind/dm-concierge/internal/store"
	"github.com/threadmind/dm-concierge/pkg/logger"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type recordingPublisher struct {
	mu   sync.Mutex
	got  []model.LogEntry
	fail bool
}

func (p *recordingPublisher) PublishInteraction(_ context.Context, e model.LogEntry) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return 0, errors.New("nats down")
	}
	p.got = append(p.got, e)
	return uint64(len(p.got)), nil
}

type failingCompleter struct{}

func (failingCompleter) Complete(context.Context, string, string) (string, error) {
	return "", &llm.Error{Kind: llm.KindProvider, Err: errors.New("dial tcp: connection refused")}
}

type fixedCompleter string

func (f fixedCompleter) Complete(context.Context, string, string) (string, error) {
	return string(f), nil
}

func TestRecorder_FillsTimestampAndPublishes(t *testing.T) {
	s := newStore(t)
	pub := &recordingPublisher{}
	r := NewRecorder(s, pub, logger.NewNop())
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	got, err := r.Append(context.Background(), model.LogEntry{ID: "m1", ThreadID: "t1", Intent: model.IntentGreeting})
	require.NoError(t, err)
	assert.Equal(t, fixed, got.Timestamp)

	logs, err := s.ListLogs(context.Background(), model.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, fixed.Equal(logs[0].Timestamp))

	require.Len(t, pub.got, 1)
	assert.Equal(t, "m1", pub.got[0].ID)
}

func TestRecorder_PublishFailureIsIgnored(t *testing.T) {
	s := newStore(t)
	r := NewRecorder(s, &recordingPublisher{fail: true}, logger.NewNop())

	_, err := r.Append(context.Background(), model.LogEntry{ID: "m1"})
	require.NoError(t, err)

	logs, err := s.ListLogs(context.Background(), model.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.IntentOther, logs[0].Intent)
}

func TestRecorder_ConcurrentAppends(t *testing.T) {
	s := newStore(t)
	r := NewRecorder(s, nil, logger.NewNop())

	const callers, each = 5, 20
	var g errgroup.Group
	for c := 0; c < callers; c++ {
		c := c
		g.Go(func() error {
			for i := 0; i < each; i++ {
				if _, err := r.Append(context.Background(), model.LogEntry{ID: fmt.Sprintf("%d-%d", c, i)}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	logs, err := s.ListLogs(context.Background(), model.LogFilter{})
	require.NoError(t, err)
	assert.Len(t, logs, callers*each)
}

func TestProcessor_ProviderUnreachable(t *testing.T) {
	s := newStore(t)
	resolver := reply.NewResolver(failingCompleter{}, s, nil, logger.NewNop())
	p := NewProcessor(resolver, NewRecorder(s, nil, logger.NewNop()), logger.NewNop())

	ts := "2024-01-01T00:00:00Z"
	out, err := p.Process(context.Background(), []model.Message{
		{ID: "1", ThreadID: "t1", FromUser: "alice", Text: "How much does this cost?", Timestamp: &ts},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)

	got := out[0]
	assert.Equal(t, model.IntentPricingInquiry, got.Intent)
	assert.Equal(t, reply.CannedReply, got.Suggestion)
	assert.True(t, got.UsedTemplate)
	assert.Equal(t, &ts, got.Timestamp)

	logs, err := s.ListLogs(context.Background(), model.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	e := logs[0]
	assert.Equal(t, "1", e.ID)
	assert.Equal(t, "alice", e.Username)
	assert.Equal(t, "How much does this cost?", e.OriginalMessage)
	assert.Equal(t, reply.CannedReply, e.Suggestion)
	assert.True(t, e.UsedTemplate)
	assert.False(t, e.Resolved)
	assert.NotNil(t, e.ResponseTime)
}

func TestProcessor_OneLogPerMessage(t *testing.T) {
	s := newStore(t)
	resolver := reply.NewResolver(fixedCompleter("Intent: greeting\nReply: Hey there!"), s, nil, logger.NewNop())
	p := NewProcessor(resolver, NewRecorder(s, nil, logger.NewNop()), logger.NewNop())

	msgs := []model.Message{
		{ID: "1", ThreadID: "t", FromUser: "a", Text: "hello"},
		{ID: "2", ThreadID: "t", FromUser: "a", Text: "hello again"},
		{ID: "3", ThreadID: "t", FromUser: "b", Text: "hi"},
	}
	out, err := p.Process(context.Background(), msgs)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for _, pm := range out {
		assert.Equal(t, "Hey there!", pm.Suggestion)
		assert.False(t, pm.UsedTemplate)
	}

	logs, err := s.ListLogs(context.Background(), model.LogFilter{})
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)
	rt := func(v float64) *float64 { return &v }

	logs := []model.LogEntry{
		{Timestamp: now.Add(-48 * time.Hour), Intent: model.IntentGreeting, Resolved: true, ResponseTime: rt(2)},
		{Timestamp: now.Add(-2 * time.Hour), Intent: model.IntentGreeting, ResponseTime: rt(4)},
		{Timestamp: now.Add(-1 * time.Hour), Intent: model.IntentSpam, Resolved: true},
		{Timestamp: now.Add(-3 * time.Hour), Intent: model.IntentOther},
	}

	stats := Summarize(logs, now)
	assert.Equal(t, 4, stats.TotalMessages)
	assert.Equal(t, map[string]int{"greeting": 2, "spam": 1, "other": 1}, stats.MessagesByIntent)
	assert.InDelta(t, 3.0, stats.AverageResponseTime, 1e-9)
	assert.Equal(t, 2, stats.ResolvedMessages)
	assert.InDelta(t, 50.0, stats.SuccessRate, 1e-9)
	assert.Equal(t, 3, stats.RecentActivity24h)
	require.NotNil(t, stats.LastProcessed)
	assert.Equal(t, now.Add(-1*time.Hour), *stats.LastProcessed)
}

func TestSummarize_Empty(t *testing.T) {
	stats := Summarize(nil, time.Now())
	assert.Zero(t, stats.TotalMessages)
	assert.Zero(t, stats.AverageResponseTime)
	assert.NotNil(t, stats.MessagesByIntent)
	assert.Nil(t, stats.LastProcessed)
}

func TestStatsService_Compute(t *testing.T) {
	s := newStore(t)
	r := NewRecorder(s, nil, logger.NewNop())
	_, err := r.Append(context.Background(), model.LogEntry{ID: "1", Intent: model.IntentComplaint})
	require.NoError(t, err)

	stats, err := NewStatsService(s).Compute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalMessages)
	assert.Equal(t, 1, stats.MessagesByIntent["complaint"])
	assert.Equal(t, 1, stats.RecentActivity24h)
}
