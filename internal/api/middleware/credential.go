package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	apiContext "retailsync/internal/api/context"
	"retailsync/internal/pkg/errors"
	"retailsync/internal/platform/models"
)

type credentialLoader interface {
	Credential(ctx context.Context) (models.Credential, error)
}

// CredentialMiddleware guards routes that talk to the upstream platform on
// behalf of the saved store.
type CredentialMiddleware struct {
	store credentialLoader
}

func NewCredentialMiddleware(store credentialLoader) *CredentialMiddleware {
	return &CredentialMiddleware{store: store}
}

func (m *CredentialMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cred, err := m.store.Credential(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("failed to load store credential")
			errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load store credential", nil)
			return
		}
		if cred.StoreID == "" {
			errors.WriteError(w, http.StatusPreconditionFailed, errors.ErrCodeInvalidInput, "No store credential saved", nil)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.Credential, &cred)
		next(w, r.WithContext(ctx))
	}
}
