package handlers

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"retailsync/internal/platform/audit"
	"retailsync/internal/platform/kvstore"
	"retailsync/internal/platform/models"
	"retailsync/internal/platform/notify"
)

// MetricsHandler exposes persisted counters in the Prometheus text format.
type MetricsHandler struct {
	kv       *kvstore.KV
	audit    *audit.Logger
	metadata *audit.Metadata
	hub      *notify.Hub
}

func NewMetricsHandler(kv *kvstore.KV, logger *audit.Logger, metadata *audit.Metadata, hub *notify.Hub) *MetricsHandler {
	return &MetricsHandler{kv: kv, audit: logger, metadata: metadata, hub: hub}
}

func (h *MetricsHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	meta, err := h.metadata.Get(ctx)
	if err != nil {
		log.Error().Err(err).Msg("metrics: read webhook metadata")
	}
	entries, err := h.audit.List(ctx, 0)
	if err != nil {
		log.Error().Err(err).Msg("metrics: read audit log")
	}
	var last models.SyncMetadata
	if _, err := h.kv.GetJSON(ctx, models.KeySyncMetadata, &last); err != nil {
		log.Error().Err(err).Msg("metrics: read sync metadata")
	}

	var lastSync int64
	if !last.LastSyncAt.IsZero() {
		lastSync = last.LastSyncAt.Unix()
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	gauge(w, "retailsync_up", "Is the server up", 1)
	counter(w, "retailsync_webhook_events_total", "Inbound webhook events received", meta.TotalEvents)
	gauge(w, "retailsync_audit_entries", "Entries held in the audit log", int64(len(entries)))
	gauge(w, "retailsync_last_sync_timestamp_seconds", "Unix time of the last persisted sync", lastSync)
	gauge(w, "retailsync_last_sync_records", "Records written by the last persisted sync", int64(last.TotalRecords))
	gauge(w, "retailsync_change_subscribers", "Connected change feed clients", int64(h.hub.Subscribers()))
}

func gauge(w http.ResponseWriter, name, help string, v int64) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %d\n", name, help, name, name, v)
}

func counter(w http.ResponseWriter, name, help string, v int64) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", name, help, name, name, v)
}
