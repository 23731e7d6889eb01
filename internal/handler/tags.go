package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/threadmind/dm-concierge/internal/middleware"
	"github.com/threadmind/dm-concierge/internal/model"
	"github.com/threadmind/dm-concierge/internal/store"
	"github.com/threadmind/dm-concierge/pkg/logger"
)

// TagStore persists the tag vocabulary.
type TagStore interface {
	ListTags(ctx context.Context) ([]string, error)
	AddTag(ctx context.Context, tag string) error
	RemoveTag(ctx context.Context, tag string) error
}

// TagHandler handles tag endpoints.
type TagHandler struct {
	store  TagStore
	logger *logger.Logger
}

// NewTagHandler creates a new tag handler.
func NewTagHandler(s TagStore, log *logger.Logger) *TagHandler {
	return &TagHandler{
		store:  s,
		logger: log,
	}
}

type tagRequest struct {
	Tag string `json:"tag"`
}

// List handles GET /api/tags
func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	tags, err := h.store.ListTags(r.Context())
	if err != nil {
		h.logger.FromContext(r.Context()).Error("failed to list tags", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list tags")
		return
	}

	writeJSON(w, http.StatusOK, tags)
}

// Add handles POST /api/tags
func (h *TagHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tag := strings.TrimSpace(req.Tag)
	if err := middleware.ValidateTag(tag); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.store.AddTag(r.Context(), tag)
	if errors.Is(err, store.ErrAlreadyExists) {
		writeJSON(w, http.StatusOK, model.Result{Success: false, Message: "Tag already exists"})
		return
	}
	if err != nil {
		h.logger.FromContext(r.Context()).Error("failed to add tag", zap.String("tag", tag), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to add tag")
		return
	}

	tags, err := h.store.ListTags(r.Context())
	if err != nil {
		h.logger.FromContext(r.Context()).Error("failed to list tags", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list tags")
		return
	}

	writeJSON(w, http.StatusOK, model.Result{Success: true, Message: "Tag added", Tags: tags})
}

// Remove handles DELETE /api/tags/{tag}
func (h *TagHandler) Remove(w http.ResponseWriter, r *http.Request) {
	tag := strings.TrimSpace(chi.URLParam(r, "tag"))

	err := h.store.RemoveTag(r.Context(), tag)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusOK, model.Result{Success: false, Message: "Tag not found"})
		return
	}
	if err != nil {
		h.logger.FromContext(r.Context()).Error("failed to remove tag", zap.String("tag", tag), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to remove tag")
		return
	}

	writeJSON(w, http.StatusOK, model.Result{Success: true, Message: "Tag removed"})
}
