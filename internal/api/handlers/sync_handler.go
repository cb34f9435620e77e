package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"retailsync/internal/engine/syncer"
	"retailsync/internal/pkg/errors"
	"retailsync/internal/platform/config"
	"retailsync/internal/platform/kvstore"
	"retailsync/internal/platform/models"
)

type SyncHandler struct {
	orchestrator *syncer.Orchestrator
	kv           *kvstore.KV
	defaults     config.SyncConfig
}

func NewSyncHandler(orchestrator *syncer.Orchestrator, kv *kvstore.KV, defaults config.SyncConfig) *SyncHandler {
	return &SyncHandler{
		orchestrator: orchestrator,
		kv:           kv,
		defaults:     defaults,
	}
}

type SyncRequest struct {
	Method    string                `json:"method"`
	DataTypes []string              `json:"dataTypes"`
	Source    string                `json:"source"`
	Format    string                `json:"format"`
	Webhook   *models.WebhookConfig `json:"webhook,omitempty"`
}

func (h *SyncHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cfg := BuildSyncConfig(req, h.defaults)
	cfg.RegisteredBy = operator(r)
	cfg.OnProgress = func(p models.Progress) {
		log.Debug().Str("collection", string(p.Collection)).Int("percentage", p.Percentage).Msg("sync fetch progress")
	}

	result := h.orchestrator.SyncAll(r.Context(), cfg)
	writeJSON(w, syncStatus(result), result)
}

func (h *SyncHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	var meta models.SyncMetadata
	found, err := h.kv.GetJSON(r.Context(), models.KeySyncMetadata, &meta)
	if err != nil {
		errors.WriteFromError(w, err)
		return
	}
	if !found {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "No sync has been persisted yet", nil)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// BuildSyncConfig fills a request from configured defaults. Unknown data
// type names are passed through so the orchestrator reports them.
func BuildSyncConfig(req SyncRequest, defaults config.SyncConfig) syncer.SyncConfig {
	method := req.Method
	if method == "" {
		method = defaults.DefaultMethod
	}
	names := req.DataTypes
	if len(names) == 0 {
		names = defaults.DataTypes
	}

	source := syncer.SourceRemote
	if syncer.Source(req.Source) == syncer.SourceLocal {
		source = syncer.SourceLocal
	}

	return syncer.SyncConfig{
		Method:    models.SyncMethod(method),
		DataTypes: models.ParseCollections(names),
		Source:    source,
		Format:    req.Format,
		Webhook:   req.Webhook,
	}
}

func syncStatus(result models.SyncResult) int {
	if result.Success {
		return http.StatusOK
	}
	kind, _ := result.Details["kind"].(string)
	switch kind {
	case "validation":
		return http.StatusBadRequest
	case "token_unavailable":
		return http.StatusPreconditionFailed
	case "transport_unavailable", "cancelled":
		return http.StatusServiceUnavailable
	case "application":
		return http.StatusBadGateway
	case "internal":
		return http.StatusInternalServerError
	}
	// A local persist with failed keys has no kind; the body lists them.
	return http.StatusOK
}
