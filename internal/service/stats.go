package service

import (
	"context"
	"fmt"
	"time"

	"github.com/threadmind/dm-concierge/internal/model"
)

// LogLister reads log entries.
type LogLister interface {
	ListLogs(ctx context.Context, f model.LogFilter) ([]model.LogEntry, error)
}

// StatsService aggregates the interaction log.
type StatsService struct {
	logs LogLister
	now  func() time.Time
}

// NewStatsService creates a stats service.
func NewStatsService(logs LogLister) *StatsService {
	return &StatsService{logs: logs, now: time.Now}
}

// Compute returns aggregate statistics over every log entry.
func (s *StatsService) Compute(ctx context.Context) (model.Stats, error) {
	logs, err := s.logs.ListLogs(ctx, model.LogFilter{})
	if err != nil {
		return model.Stats{}, fmt.Errorf("list logs: %w", err)
	}
	return Summarize(logs, s.now()), nil
}

// Summarize computes stats for logs as of now.
func Summarize(logs []model.LogEntry, now time.Time) model.Stats {
	stats := model.Stats{
		TotalMessages:    len(logs),
		MessagesByIntent: make(map[string]int),
	}

	var (
		rtSum   float64
		rtCount int
		cutoff  = now.Add(-24 * time.Hour)
	)
	for _, e := range logs {
		stats.MessagesByIntent[string(e.Intent)]++
		if e.Resolved {
			stats.ResolvedMessages++
		}
		if e.ResponseTime != nil {
			rtSum += *e.ResponseTime
			rtCount++
		}
		if e.Timestamp.After(cutoff) {
			stats.RecentActivity24h++
		}
		if stats.LastProcessed == nil || e.Timestamp.After(*stats.LastProcessed) {
			ts := e.Timestamp
			stats.LastProcessed = &ts
		}
	}

	if rtCount > 0 {
		stats.AverageResponseTime = rtSum / float64(rtCount)
	}
	if stats.TotalMessages > 0 {
		stats.SuccessRate = float64(stats.ResolvedMessages) / float64(stats.TotalMessages) * 100
	}
	return stats
}
