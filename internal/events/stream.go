package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/threadmind/dm-concierge/internal/model"
)

const (
	// StreamName is the name of the interactions stream.
	StreamName = "DM_INTERACTIONS"

	// SubjectPrefix is the prefix for all interaction subjects.
	SubjectPrefix = "dm.interactions"
)

// Publisher writes interaction events to JetStream.
type Publisher struct {
	client *Client
}

// NewPublisher creates a new publisher.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// EnsureStream ensures the interactions stream exists.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		MaxBytes:    1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		DenyDelete:  true,
		DenyPurge:   true,
		Description: "Processed direct-message interactions",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// Subject returns the subject an interaction with intent is published on.
func Subject(intent model.Intent) string {
	token := strings.TrimSpace(string(intent))
	if token == "" {
		token = string(model.IntentOther)
	}
	// NATS subject tokens cannot contain separators or wildcards.
	token = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(token)
	return fmt.Sprintf("%s.%s", SubjectPrefix, token)
}

// PublishInteraction publishes a recorded log entry and returns its stream
// sequence.
func (p *Publisher) PublishInteraction(ctx context.Context, entry model.LogEntry) (uint64, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal interaction: %w", err)
	}

	ack, err := p.client.JetStream().Publish(ctx, Subject(entry.Intent), data,
		jetstream.WithMsgID(entry.ThreadID+"/"+entry.ID),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to publish interaction: %w", err)
	}
	return ack.Sequence, nil
}

// Healthy reports whether the underlying connection is up.
func (p *Publisher) Healthy() bool {
	return p.client.IsConnected()
}
