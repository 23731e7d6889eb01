package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/threadmind/dm-concierge/internal/middleware"
	"github.com/threadmind/dm-concierge/internal/model"
	"github.com/threadmind/dm-concierge/pkg/logger"
)

// MessageProcessor classifies, answers and records messages.
type MessageProcessor interface {
	Process(ctx context.Context, msgs []model.Message) ([]model.ProcessedMessage, error)
}

// MessageHandler handles message processing endpoints.
type MessageHandler struct {
	processor MessageProcessor
	logger    *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(processor MessageProcessor, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		processor: processor,
		logger:    log,
	}
}

// Process handles POST /api/process_messages
func (h *MessageHandler) Process(w http.ResponseWriter, r *http.Request) {
	var msgs []model.Message
	if err := decodeJSON(w, r, &msgs); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON array of messages")
		return
	}
	if err := middleware.ValidateMessages(msgs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.processor.Process(r.Context(), msgs)
	if err != nil {
		h.logger.FromContext(r.Context()).Error("failed to process messages",
			zap.Int("count", len(msgs)),
			zap.Int("processed", len(out)),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to process messages")
		return
	}

	writeJSON(w, http.StatusOK, out)
}
