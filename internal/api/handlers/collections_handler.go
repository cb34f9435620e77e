package handlers

import (
	stderrors "errors"
	"net/http"

	"retailsync/internal/pkg/errors"
	"retailsync/internal/platform/kvstore"
	"retailsync/internal/platform/models"
)

type CollectionsHandler struct {
	kv *kvstore.KV
}

func NewCollectionsHandler(kv *kvstore.KV) *CollectionsHandler {
	return &CollectionsHandler{kv: kv}
}

// Get returns a persisted collection as stored. A collection never written
// reads as an empty list.
func (h *CollectionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := models.ParseCollection(param(r, "name"))
	if !ok {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Unknown collection", nil)
		return
	}

	raw, err := h.kv.Get(r.Context(), c.Key())
	if stderrors.Is(err, kvstore.ErrNotFound) {
		raw = []byte("[]")
	} else if err != nil {
		errors.WriteFromError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}
