package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/threadmind/dm-concierge/internal/middleware"
	"github.com/threadmind/dm-concierge/internal/model"
	"github.com/threadmind/dm-concierge/internal/reply"
	"github.com/threadmind/dm-concierge/pkg/logger"
)

// PromptStore holds the operator system prompt override.
type PromptStore interface {
	Get() string
	Set(text string) error
}

// PromptHandler handles system prompt endpoints.
type PromptHandler struct {
	prompts PromptStore
	logger  *logger.Logger
}

// NewPromptHandler creates a new prompt handler.
func NewPromptHandler(prompts PromptStore, log *logger.Logger) *PromptHandler {
	return &PromptHandler{
		prompts: prompts,
		logger:  log,
	}
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

// Get handles GET /api/prompt. prompt is empty when no override is set.
func (h *PromptHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"prompt":  h.prompts.Get(),
		"default": reply.DefaultSystemPrompt(),
	})
}

// Set handles POST /api/prompt. A blank prompt restores the default.
func (h *PromptHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidatePrompt(req.Prompt); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.prompts.Set(req.Prompt); err != nil {
		h.logger.FromContext(r.Context()).Error("failed to save prompt", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save prompt")
		return
	}

	msg := "System prompt updated"
	if h.prompts.Get() == "" {
		msg = "System prompt reset to default"
	}
	writeJSON(w, http.StatusOK, model.Result{Success: true, Message: msg})
}
