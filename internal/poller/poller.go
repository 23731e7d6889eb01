// Package poller watches DM threads of target accounts and answers new
// messages.
package poller

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/threadmind/dm-concierge/internal/bridge"
	"github.com/threadmind/dm-concierge/internal/classifier"
	"github.com/threadmind/dm-concierge/internal/model"
	"github.com/threadmind/dm-concierge/internal/reply"
	"github.com/threadmind/dm-concierge/pkg/logger"
	"github.com/threadmind/dm-concierge/pkg/metrics"
)

// Messenger is the subset of the bridge the poller needs.
type Messenger interface {
	ListChats(ctx context.Context) ([]bridge.Thread, error)
	ListMessages(ctx context.Context, threadID string) ([]bridge.DirectMessage, error)
	SendMessage(ctx context.Context, username, text string) (string, error)
	MarkMessageSeen(ctx context.Context, threadID, messageID string) error
}

// Store is the persistence the poller reads and writes.
type Store interface {
	ActiveTargets(ctx context.Context) ([]model.Target, error)
	HasLog(ctx context.Context, threadID, messageID string) (bool, error)
}

// Recorder appends interaction log entries.
type Recorder interface {
	Append(ctx context.Context, e model.LogEntry) (model.LogEntry, error)
}

// Resolver produces reply suggestions.
type Resolver interface {
	Resolve(ctx context.Context, mode reply.Mode, text string, intent model.Intent) reply.Resolution
}

// Report summarizes one poll cycle.
type Report struct {
	Targets   int `json:"targets"`
	Threads   int `json:"threads"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Config holds poller settings.
type Config struct {
	Interval time.Duration
	Mode     reply.Mode
}

// Poller runs poll cycles.
type Poller struct {
	messenger Messenger
	store     Store
	recorder  Recorder
	resolver  Resolver
	cfg       Config
	logger    *logger.Logger
}

// New creates a poller.
func New(messenger Messenger, store Store, recorder Recorder, resolver Resolver, cfg Config, log *logger.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Minute
	}
	if cfg.Mode == "" {
		cfg.Mode = reply.ModeTemplate
	}
	return &Poller{
		messenger: messenger,
		store:     store,
		recorder:  recorder,
		resolver:  resolver,
		cfg:       cfg,
		logger:    log,
	}
}

// Run polls until ctx is cancelled. Cycle errors are logged and never stop
// the loop.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started",
		zap.Duration("interval", p.cfg.Interval),
		zap.String("mode", string(p.cfg.Mode)),
	)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := p.PollOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("poll cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// PollOnce runs a single poll cycle.
func (p *Poller) PollOnce(ctx context.Context) (Report, error) {
	ctx, span := otel.Tracer("poller").Start(ctx, "poll.cycle")
	defer span.End()

	var rep Report
	cycleID := uuid.NewString()
	log := p.logger.With(zap.String("cycle_id", cycleID))
	span.SetAttributes(attribute.String("poll.cycle_id", cycleID))

	targets, err := p.store.ActiveTargets(ctx)
	if err != nil {
		metrics.RecordPollCycle("error")
		return rep, err
	}
	rep.Targets = len(targets)
	if len(targets) == 0 {
		log.Info("no targets configured, skipping poll cycle")
		metrics.RecordPollCycle("skipped")
		return rep, nil
	}

	names := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		names[t.Username] = struct{}{}
	}

	threads, err := p.messenger.ListChats(ctx)
	if err != nil {
		log.Error("failed to list chats", zap.Error(err))
		metrics.RecordPollCycle("error")
		return rep, nil
	}

	for _, th := range threads {
		if ctx.Err() != nil {
			break
		}
		if !th.HasAnyUser(names) {
			continue
		}
		rep.Threads++
		p.pollThread(ctx, th, names, &rep, log)
	}

	span.SetAttributes(
		attribute.Int("poll.threads", rep.Threads),
		attribute.Int("poll.processed", rep.Processed),
		attribute.Int("poll.failed", rep.Failed),
	)
	metrics.RecordPollCycle("ok")
	log.Info("poll cycle completed",
		zap.Int("targets", rep.Targets),
		zap.Int("threads", rep.Threads),
		zap.Int("processed", rep.Processed),
		zap.Int("skipped", rep.Skipped),
		zap.Int("failed", rep.Failed),
	)
	return rep, ctx.Err()
}

func (p *Poller) pollThread(ctx context.Context, th bridge.Thread, names map[string]struct{}, rep *Report, cycleLog *logger.Logger) {
	threadID := th.ThreadID.String()
	log := cycleLog.With(zap.String("thread_id", threadID))

	msgs, err := p.messenger.ListMessages(ctx, threadID)
	if err != nil {
		log.Error("failed to list messages", zap.Error(err))
		rep.Failed++
		return
	}

	for _, m := range msgs {
		if ctx.Err() != nil {
			return
		}
		if !m.IsText() || m.Handled {
			rep.Skipped++
			continue
		}

		sender, ok := th.UsernameFor(m.From)
		if !ok {
			// Our own outgoing messages carry a sender that is not a
			// thread participant.
			rep.Skipped++
			continue
		}
		if _, isTarget := names[sender]; !isTarget {
			rep.Skipped++
			continue
		}

		seen, err := p.store.HasLog(ctx, threadID, m.ID.String())
		if err != nil {
			log.Error("failed to check log", zap.Error(err))
			rep.Failed++
			continue
		}
		if seen {
			rep.Skipped++
			continue
		}

		if p.handle(ctx, threadID, sender, m, log) {
			rep.Processed++
		} else {
			rep.Failed++
		}
	}
}

func (p *Poller) handle(ctx context.Context, threadID, sender string, m bridge.DirectMessage, log *logger.Logger) bool {
	start := time.Now()
	msgID := m.ID.String()

	intent := classifier.Classify(m.Text)
	res := p.resolver.Resolve(ctx, p.cfg.Mode, m.Text, intent)

	if err := p.messenger.MarkMessageSeen(ctx, threadID, msgID); err != nil {
		log.Error("failed to mark message seen", zap.String("message_id", msgID), zap.Error(err))
		return false
	}
	if _, err := p.messenger.SendMessage(ctx, sender, res.Suggestion); err != nil {
		log.Error("failed to send reply", zap.String("message_id", msgID), zap.Error(err))
		return false
	}

	elapsed := time.Since(start).Seconds()
	_, err := p.recorder.Append(ctx, model.LogEntry{
		ID:              msgID,
		ThreadID:        threadID,
		Username:        sender,
		OriginalMessage: m.Text,
		Intent:          intent,
		Suggestion:      res.Suggestion,
		UsedTemplate:    res.UsedTemplate,
		Resolved:        true,
		ResponseTime:    &elapsed,
		TemplateID:      res.TemplateID,
	})
	if err != nil {
		// The reply already went out; the entry is lost but the cycle goes on.
		log.Error("failed to record interaction", zap.String("message_id", msgID), zap.Error(err))
	}

	metrics.RecordMessage(string(intent), "poller", res.UsedTemplate)
	log.Info("replied to message",
		zap.String("message_id", msgID),
		zap.String("username", sender),
		zap.String("intent", string(intent)),
		zap.Bool("used_template", res.UsedTemplate),
	)
	return true
}
