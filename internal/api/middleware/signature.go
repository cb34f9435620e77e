package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"retailsync/internal/engine/webhooks"
	"retailsync/internal/pkg/errors"
)

// MaxWebhookBody caps inbound webhook payloads.
const MaxWebhookBody = 5 << 20

// SecretFunc returns the shared webhook secret; empty disables verification.
type SecretFunc func(ctx context.Context) (string, error)

// SignatureMiddleware checks the HMAC-SHA256 of the raw body against the
// signature header. The body is buffered and handed on unchanged.
type SignatureMiddleware struct {
	secret SecretFunc
	header string
}

func NewSignatureMiddleware(secret SecretFunc, header string) *SignatureMiddleware {
	if header == "" {
		header = "X-Webhook-Signature"
	}
	return &SignatureMiddleware{secret: secret, header: header}
}

func (m *SignatureMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBody))
		if err != nil {
			errors.WriteError(w, http.StatusRequestEntityTooLarge, errors.ErrCodeInvalidInput, "Unable to read request body", nil)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		secret, err := m.secret(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("failed to load webhook secret")
			errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load webhook configuration", nil)
			return
		}
		if secret == "" {
			next(w, r)
			return
		}

		if !webhooks.Verify(secret, body, r.Header.Get(m.header)) {
			log.Warn().Str("remote", clientIP(r)).Msg("rejected webhook with bad signature")
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid webhook signature", nil)
			return
		}

		next(w, r)
	}
}
