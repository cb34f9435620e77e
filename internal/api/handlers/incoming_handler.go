package handlers

import (
	"crypto/subtle"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"retailsync/internal/engine/webhooks"
	"retailsync/internal/pkg/errors"
)

// eventHeaders name the event when a platform sends it outside the body.
var eventHeaders = []string{"X-Webhook-Event", "X-Event-Type", "X-Event-Name", "X-Topic"}

// IncomingHandler is the public endpoint the upstream platform calls.
type IncomingHandler struct {
	manager  *webhooks.Manager
	pipeline *webhooks.Pipeline
}

func NewIncomingHandler(manager *webhooks.Manager, pipeline *webhooks.Pipeline) *IncomingHandler {
	return &IncomingHandler{manager: manager, pipeline: pipeline}
}

// Verify answers the subscription handshake by echoing the challenge when
// the verify token matches the configured one.
func (h *IncomingHandler) Verify(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.manager.Config(r.Context())
	if err != nil {
		errors.WriteFromError(w, err)
		return
	}

	query := r.URL.Query()
	token := firstNonEmpty(query.Get("verify_token"), query.Get("hub.verify_token"))
	if cfg.VerifyToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(cfg.VerifyToken)) != 1 {
		log.Warn().Str("remote", r.RemoteAddr).Msg("webhook verification rejected")
		errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Verify token mismatch", nil)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, firstNonEmpty(query.Get("challenge"), query.Get("hub.challenge")))
}

// Receive ingests one event. Anything past the signature check answers 200
// with the result so the platform does not retry unmapped events.
func (h *IncomingHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Unable to read request body", nil)
		return
	}

	hint := ""
	for _, header := range eventHeaders {
		if v := r.Header.Get(header); v != "" {
			hint = v
			break
		}
	}

	writeJSON(w, http.StatusOK, h.pipeline.ProcessWithHint(r.Context(), body, hint))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
