package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/threadmind/dm-concierge/internal/poller"
	"github.com/threadmind/dm-concierge/pkg/logger"
)

// PollRunner runs one out-of-process poll cycle.
type PollRunner interface {
	RunOnce(ctx context.Context) poller.RunResult
}

// PollerHandler handles poller control endpoints.
type PollerHandler struct {
	runner PollRunner
	logger *logger.Logger
}

// NewPollerHandler creates a new poller handler.
func NewPollerHandler(runner PollRunner, log *logger.Logger) *PollerHandler {
	return &PollerHandler{
		runner: runner,
		logger: log,
	}
}

// RunOnce handles POST /api/poller/run-once
func (h *PollerHandler) RunOnce(w http.ResponseWriter, r *http.Request) {
	res := h.runner.RunOnce(r.Context())

	log := h.logger.FromContext(r.Context())
	if res.Success {
		log.Info("poller run completed")
	} else {
		log.Warn("poller run failed", zap.String("error", res.Error))
	}

	writeJSON(w, http.StatusOK, res)
}
