package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/threadmind/dm-concierge/internal/middleware"
	"github.com/threadmind/dm-concierge/internal/model"
	"github.com/threadmind/dm-concierge/internal/store"
	"github.com/threadmind/dm-concierge/pkg/logger"
)

// TemplateStore persists reply templates.
type TemplateStore interface {
	ListTemplates(ctx context.Context) ([]model.Template, error)
	CreateTemplate(ctx context.Context, req model.CreateTemplateRequest) (model.Template, error)
	UpdateTemplate(ctx context.Context, id int, req model.UpdateTemplateRequest) (model.Template, error)
	DeleteTemplate(ctx context.Context, id int) error
}

// TemplateHandler handles template endpoints.
type TemplateHandler struct {
	store  TemplateStore
	logger *logger.Logger
}

// NewTemplateHandler creates a new template handler.
func NewTemplateHandler(s TemplateStore, log *logger.Logger) *TemplateHandler {
	return &TemplateHandler{
		store:  s,
		logger: log,
	}
}

// List handles GET /api/templates
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.ListTemplates(r.Context())
	if err != nil {
		h.logger.FromContext(r.Context()).Error("failed to list templates", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list templates")
		return
	}

	writeJSON(w, http.StatusOK, templates)
}

// Create handles POST /api/templates
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateTemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateCreateTemplate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.store.CreateTemplate(r.Context(), req)
	if err != nil {
		h.logger.FromContext(r.Context()).Error("failed to create template", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create template")
		return
	}

	writeJSON(w, http.StatusOK, model.Result{Success: true, Message: "Template created", Template: &t})
}

// Update handles PUT /api/templates/{id}
func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := templateID(w, r)
	if !ok {
		return
	}

	var req model.UpdateTemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateUpdateTemplate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.store.UpdateTemplate(r.Context(), id, req)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusOK, model.Result{Success: false, Message: "Template not found"})
		return
	}
	if err != nil {
		h.logger.FromContext(r.Context()).Error("failed to update template", zap.Int("template_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update template")
		return
	}

	writeJSON(w, http.StatusOK, model.Result{Success: true, Message: "Template updated", Template: &t})
}

// Delete handles DELETE /api/templates/{id}
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := templateID(w, r)
	if !ok {
		return
	}

	err := h.store.DeleteTemplate(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusOK, model.Result{Success: false, Message: "Template not found"})
		return
	}
	if err != nil {
		h.logger.FromContext(r.Context()).Error("failed to delete template", zap.Int("template_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete template")
		return
	}

	writeJSON(w, http.StatusOK, model.Result{Success: true, Message: "Template deleted"})
}

func templateID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid template ID")
		return 0, false
	}
	return id, true
}
