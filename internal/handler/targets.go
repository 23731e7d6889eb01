package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/threadmind/dm-concierge/internal/middleware"
	"github.com/threadmind/dm-concierge/internal/model"
	"github.com/threadmind/dm-concierge/internal/store"
	"github.com/threadmind/dm-concierge/pkg/logger"
)

// TargetStore persists monitored accounts.
type TargetStore interface {
	ListTargets(ctx context.Context) ([]model.Target, error)
	AddTarget(ctx context.Context, username string) (model.Target, error)
	RemoveTarget(ctx context.Context, username string) error
}

// TargetHandler handles target endpoints.
type TargetHandler struct {
	store  TargetStore
	logger *logger.Logger
}

// NewTargetHandler creates a new target handler.
func NewTargetHandler(s TargetStore, log *logger.Logger) *TargetHandler {
	return &TargetHandler{
		store:  s,
		logger: log,
	}
}

type targetRequest struct {
	Username string `json:"username"`
}

// List handles GET /api/targets
func (h *TargetHandler) List(w http.ResponseWriter, r *http.Request) {
	targets, err := h.store.ListTargets(r.Context())
	if err != nil {
		h.logger.FromContext(r.Context()).Error("failed to list targets", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list targets")
		return
	}

	writeJSON(w, http.StatusOK, targets)
}

// Add handles POST /api/targets
func (h *TargetHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	username := middleware.NormalizeUsername(req.Username)
	if err := middleware.ValidateUsername(username); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.store.AddTarget(r.Context(), username)
	if errors.Is(err, store.ErrAlreadyExists) {
		writeJSON(w, http.StatusOK, model.Result{Success: false, Message: "Target already exists"})
		return
	}
	if err != nil {
		h.logger.FromContext(r.Context()).Error("failed to add target", zap.String("username", username), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to add target")
		return
	}

	writeJSON(w, http.StatusOK, model.Result{Success: true, Message: "Target added", Target: &t})
}

// Remove handles DELETE /api/targets/{username}
func (h *TargetHandler) Remove(w http.ResponseWriter, r *http.Request) {
	username := middleware.NormalizeUsername(chi.URLParam(r, "username"))

	err := h.store.RemoveTarget(r.Context(), username)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusOK, model.Result{Success: false, Message: "Target not found"})
		return
	}
	if err != nil {
		h.logger.FromContext(r.Context()).Error("failed to remove target", zap.String("username", username), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to remove target")
		return
	}

	writeJSON(w, http.StatusOK, model.Result{Success: true, Message: "Target removed"})
}
