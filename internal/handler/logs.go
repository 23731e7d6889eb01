package handler

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/threadmind/dm-concierge/internal/classifier"
	"github.com/threadmind/dm-concierge/internal/middleware"
	"github.com/threadmind/dm-concierge/internal/model"
	"github.com/threadmind/dm-concierge/pkg/logger"
)

// LogStore reads the interaction log.
type LogStore interface {
	ListLogs(ctx context.Context, f model.LogFilter) ([]model.LogEntry, error)
}

// StatsComputer aggregates the interaction log.
type StatsComputer interface {
	Compute(ctx context.Context) (model.Stats, error)
}

// LogHandler handles log and stats endpoints.
type LogHandler struct {
	logs   LogStore
	stats  StatsComputer
	logger *logger.Logger
}

// NewLogHandler creates a new log handler.
func NewLogHandler(logs LogStore, stats StatsComputer, log *logger.Logger) *LogHandler {
	return &LogHandler{
		logs:   logs,
		stats:  stats,
		logger: log,
	}
}

// List handles GET /api/logs
func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	var f model.LogFilter
	if u := r.URL.Query().Get("username"); u != "" {
		f.Username = middleware.NormalizeUsername(u)
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		f.Limit = parsed
	}

	logs, err := h.logs.ListLogs(r.Context(), f)
	if err != nil {
		h.logger.FromContext(r.Context()).Error("failed to list logs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list logs")
		return
	}

	writeJSON(w, http.StatusOK, logs)
}

// Stats handles GET /api/stats
func (h *LogHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Compute(r.Context())
	if err != nil {
		h.logger.FromContext(r.Context()).Error("failed to compute stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Intents handles GET /api/intents
func Intents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, classifier.Categories())
}
