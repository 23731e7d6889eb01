// Package service provides the message pipeline and log reporting.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/threadmind/dm-concierge/internal/model"
	"github.com/threadmind/dm-concierge/pkg/logger"
	"github.com/threadmind/dm-concierge/pkg/metrics"
)

// LogAppender persists log entries.
type LogAppender interface {
	AppendLog(ctx context.Context, e model.LogEntry) error
}

// EventPublisher fans recorded entries out to subscribers.
type EventPublisher interface {
	PublishInteraction(ctx context.Context, e model.LogEntry) (uint64, error)
}

// Recorder appends interaction log entries.
type Recorder struct {
	logs      LogAppender
	publisher EventPublisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewRecorder creates a recorder. publisher may be nil.
func NewRecorder(logs LogAppender, publisher EventPublisher, log *logger.Logger) *Recorder {
	return &Recorder{
		logs:      logs,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

// Append stores e, filling in the timestamp when it is unset, and returns
// the stored entry.
func (r *Recorder) Append(ctx context.Context, e model.LogEntry) (model.LogEntry, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = r.now().UTC()
	}
	if e.Intent == "" {
		e.Intent = model.IntentOther
	}

	if err := r.logs.AppendLog(ctx, e); err != nil {
		return e, fmt.Errorf("append log: %w", err)
	}

	if r.publisher != nil {
		if _, err := r.publisher.PublishInteraction(ctx, e); err != nil {
			metrics.RecordEventPublish(false)
			r.logger.Warn("failed to publish interaction",
				zap.String("message_id", e.ID),
				zap.Error(err),
			)
		} else {
			metrics.RecordEventPublish(true)
		}
	}
	return e, nil
}
