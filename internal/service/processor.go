package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/threadmind/dm-concierge/internal/classifier"
	"github.com/threadmind/dm-concierge/internal/model"
	"github.com/threadmind/dm-concierge/internal/reply"
	"github.com/threadmind/dm-concierge/pkg/logger"
	"github.com/threadmind/dm-concierge/pkg/metrics"
)

// Resolver produces reply suggestions.
type Resolver interface {
	Resolve(ctx context.Context, mode reply.Mode, text string, intent model.Intent) reply.Resolution
}

// Processor runs the classify, resolve and record pipeline for messages
// submitted through the API.
type Processor struct {
	resolver Resolver
	recorder *Recorder
	logger   *logger.Logger
}

// NewProcessor creates a processor.
func NewProcessor(resolver Resolver, recorder *Recorder, log *logger.Logger) *Processor {
	return &Processor{
		resolver: resolver,
		recorder: recorder,
		logger:   log,
	}
}

// Process handles msgs in order and returns one ProcessedMessage each. Every
// message produces exactly one log entry.
func (p *Processor) Process(ctx context.Context, msgs []model.Message) ([]model.ProcessedMessage, error) {
	out := make([]model.ProcessedMessage, 0, len(msgs))
	for _, msg := range msgs {
		pm, err := p.processOne(ctx, msg)
		if err != nil {
			return out, err
		}
		out = append(out, pm)
	}
	return out, nil
}

func (p *Processor) processOne(ctx context.Context, msg model.Message) (model.ProcessedMessage, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "process.message")
	defer span.End()

	start := time.Now()
	intent := classifier.Classify(msg.Text)
	res := p.resolver.Resolve(ctx, reply.ModeLLM, msg.Text, intent)
	elapsed := time.Since(start).Seconds()

	span.SetAttributes(
		attribute.String("dm.intent", string(intent)),
		attribute.Bool("dm.used_template", res.UsedTemplate),
	)

	_, err := p.recorder.Append(ctx, model.LogEntry{
		ID:              msg.ID,
		ThreadID:        msg.ThreadID,
		Username:        msg.FromUser,
		OriginalMessage: msg.Text,
		Intent:          intent,
		Suggestion:      res.Suggestion,
		UsedTemplate:    res.UsedTemplate,
		ResponseTime:    &elapsed,
		TemplateID:      res.TemplateID,
	})
	if err != nil {
		span.RecordError(err)
		return model.ProcessedMessage{}, fmt.Errorf("record message %s: %w", msg.ID, err)
	}

	metrics.RecordMessage(string(intent), "api", res.UsedTemplate)
	p.logger.FromContext(ctx).Info("message processed",
		zap.String("message_id", msg.ID),
		zap.String("intent", string(intent)),
		zap.Bool("used_template", res.UsedTemplate),
	)

	return msg.Processed(intent, res.Suggestion, res.UsedTemplate), nil
}
