package handlers

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"retailsync/internal/pkg/errors"
	"retailsync/internal/pkg/validator"
	"retailsync/internal/platform/credentials"
	"retailsync/internal/platform/models"
)

type CredentialsHandler struct {
	store *credentials.Store
}

func NewCredentialsHandler(store *credentials.Store) *CredentialsHandler {
	return &CredentialsHandler{store: store}
}

// CredentialStatus never carries the token value itself.
type CredentialStatus struct {
	Credential     models.Credential `json:"credential"`
	TokenPresent   bool              `json:"tokenPresent"`
	TokenExpiresAt *time.Time        `json:"tokenExpiresAt,omitempty"`
}

type SaveCredentialRequest struct {
	StoreID string `json:"storeId" validate:"required"`
}

type SetTokenRequest struct {
	Token      string `json:"token" validate:"required"`
	TTLSeconds *int64 `json:"ttlSeconds" validate:"omitempty,min=0"`
}

func (h *CredentialsHandler) Get(w http.ResponseWriter, r *http.Request) {
	status, err := h.status(r)
	if err != nil {
		errors.WriteFromError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *CredentialsHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req SaveCredentialRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validator.Struct(req); err != nil {
		errors.WriteFromError(w, err)
		return
	}

	if _, err := h.store.SaveCredential(r.Context(), req.StoreID); err != nil {
		errors.WriteFromError(w, err)
		return
	}
	log.Info().Str("store_id", req.StoreID).Str("by", operator(r)).Msg("store credential saved")

	h.Get(w, r)
}

func (h *CredentialsHandler) SetToken(w http.ResponseWriter, r *http.Request) {
	var req SetTokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validator.Struct(req); err != nil {
		errors.WriteFromError(w, err)
		return
	}

	if _, err := h.store.SetToken(r.Context(), req.Token, req.TTLSeconds); err != nil {
		errors.WriteFromError(w, err)
		return
	}
	log.Info().Str("by", operator(r)).Msg("upstream token updated")

	h.Get(w, r)
}

func (h *CredentialsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearCredential(r.Context()); err != nil {
		errors.WriteFromError(w, err)
		return
	}
	log.Info().Str("by", operator(r)).Msg("store credential cleared")
	w.WriteHeader(http.StatusNoContent)
}

func (h *CredentialsHandler) status(r *http.Request) (CredentialStatus, error) {
	cred, err := h.store.Credential(r.Context())
	if err != nil {
		return CredentialStatus{}, err
	}
	status := CredentialStatus{Credential: cred}

	token, err := h.store.Token(r.Context())
	switch {
	case stderrors.Is(err, errors.ErrTokenUnavailable):
	case err != nil:
		return CredentialStatus{}, err
	default:
		status.TokenPresent = true
		if token.ExpiresAt != nil {
			at := time.Unix(*token.ExpiresAt, 0).UTC()
			status.TokenExpiresAt = &at
		}
	}
	return status, nil
}
