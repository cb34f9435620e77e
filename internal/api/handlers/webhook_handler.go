package handlers

import (
	"io"
	"net/http"
	"strconv"

	"retailsync/internal/engine/webhooks"
	"retailsync/internal/pkg/errors"
	"retailsync/internal/platform/audit"
	"retailsync/internal/platform/models"
)

type WebhookHandler struct {
	manager  *webhooks.Manager
	pipeline *webhooks.Pipeline
	audit    *audit.Logger
	metadata *audit.Metadata
}

func NewWebhookHandler(manager *webhooks.Manager, pipeline *webhooks.Pipeline, logger *audit.Logger, metadata *audit.Metadata) *WebhookHandler {
	return &WebhookHandler{
		manager:  manager,
		pipeline: pipeline,
		audit:    logger,
		metadata: metadata,
	}
}

func (h *WebhookHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.manager.Config(r.Context())
	if err != nil {
		errors.WriteFromError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *WebhookHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req models.WebhookConfig
	if !decodeBody(w, r, &req) {
		return
	}

	cfg, err := h.manager.SaveConfig(r.Context(), req)
	if err != nil {
		errors.WriteFromError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *WebhookHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req webhooks.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.RegisteredBy = operator(r)

	cfg, err := h.manager.Register(r.Context(), req)
	if err != nil {
		errors.WriteFromError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

func (h *WebhookHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.manager.Unregister(r.Context(), param(r, "webhook_id"))
	if err != nil {
		errors.WriteFromError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *WebhookHandler) ListRemote(w http.ResponseWriter, r *http.Request) {
	hooks, err := h.manager.ListRemote(r.Context())
	if err != nil {
		errors.WriteFromError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hooks)
}

// Logs returns the audit log newest first; ?limit= trims it.
func (h *WebhookHandler) Logs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "limit must be a non-negative integer", nil)
			return
		}
		limit = n
	}

	entries, err := h.audit.List(r.Context(), limit)
	if err != nil {
		errors.WriteFromError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *WebhookHandler) ClearLogs(w http.ResponseWriter, r *http.Request) {
	if err := h.audit.Clear(r.Context()); err != nil {
		errors.WriteFromError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WebhookHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	meta, err := h.metadata.Get(r.Context())
	if err != nil {
		errors.WriteFromError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// Simulate runs a payload through the live ingestion path, signature aside.
func (h *WebhookHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Unable to read request body", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.pipeline.Simulate(r.Context(), body))
}
