// Package credentials owns the upstream store identifier and bearer token.
//
// Tokens expire lazily: nothing runs in the background, an expired token is
// purged by the read that notices it. There is deliberately no refresh path;
// callers that need a token and find none must ask the operator for one.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	apperrors "retailsync/internal/pkg/errors"
	"retailsync/internal/platform/kvstore"
	"retailsync/internal/platform/models"
)

// SafetyMargin is subtracted from every server-supplied TTL.
const SafetyMargin = 30 * time.Second

type Store struct {
	kv  *kvstore.KV
	now func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(kv *kvstore.KV, opts ...Option) *Store {
	s := &Store{kv: kv, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveCredential overwrites the credential. Remote mode is enabled exactly
// when storeID is non-empty.
func (s *Store) SaveCredential(ctx context.Context, storeID string) (models.Credential, error) {
	storeID = strings.TrimSpace(storeID)
	cred := models.Credential{
		StoreID:      storeID,
		UseRemoteAPI: storeID != "",
		SavedAt:      s.now().UTC(),
	}
	if err := s.kv.SetJSON(ctx, models.KeyCredential, cred); err != nil {
		return models.Credential{}, fmt.Errorf("save credential: %w", err)
	}
	return cred, nil
}

// Credential returns the saved credential, or the zero value when none exists.
func (s *Store) Credential(ctx context.Context) (models.Credential, error) {
	var cred models.Credential
	if _, err := s.kv.GetJSON(ctx, models.KeyCredential, &cred); err != nil {
		return models.Credential{}, err
	}
	cred.UseRemoteAPI = cred.StoreID != ""
	return cred, nil
}

// SetToken stores value. With a TTL the expiry becomes now+ttl-30s, never
// earlier than now.
func (s *Store) SetToken(ctx context.Context, value string, ttlSeconds *int64) (models.Token, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return models.Token{}, apperrors.Validation("token", "is required")
	}

	token := models.Token{Value: value}
	set := map[string][]byte{models.KeyToken: []byte(value)}

	if ttlSeconds == nil {
		if err := s.kv.Write(ctx, set, models.KeyTokenExpiry); err != nil {
			return models.Token{}, fmt.Errorf("save token: %w", err)
		}
		return token, nil
	}

	remaining := *ttlSeconds - int64(SafetyMargin/time.Second)
	if remaining < 0 {
		remaining = 0
	}
	expiresAt := s.now().Unix() + remaining
	set[models.KeyTokenExpiry] = []byte(strconv.FormatInt(expiresAt, 10))
	if err := s.kv.Write(ctx, set); err != nil {
		return models.Token{}, fmt.Errorf("save token: %w", err)
	}
	token.ExpiresAt = &expiresAt
	return token, nil
}

// Token returns the stored token, or ErrTokenUnavailable when it is missing
// or expired. An expired token is purged.
func (s *Store) Token(ctx context.Context) (models.Token, error) {
	raw, err := s.kv.Get(ctx, models.KeyToken)
	if errors.Is(err, kvstore.ErrNotFound) {
		return models.Token{}, apperrors.ErrTokenUnavailable
	}
	if err != nil {
		return models.Token{}, fmt.Errorf("read token: %w", err)
	}
	token := models.Token{Value: string(raw)}

	rawExpiry, err := s.kv.Get(ctx, models.KeyTokenExpiry)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
		return token, nil
	case err != nil:
		return models.Token{}, fmt.Errorf("read token expiry: %w", err)
	}

	expiresAt := parseExpiry(rawExpiry)
	if !s.expired(expiresAt) {
		token.ExpiresAt = &expiresAt
		return token, nil
	}

	// The token may have been replaced since the reads above.
	purged, err := s.kv.DeleteIf(ctx, []string{models.KeyToken, models.KeyTokenExpiry}, func(values map[string][]byte) bool {
		current, ok := values[models.KeyTokenExpiry]
		return ok && s.expired(parseExpiry(current))
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to purge expired token")
		return models.Token{}, apperrors.ErrTokenUnavailable
	}
	if !purged {
		return s.Token(ctx)
	}
	return models.Token{}, apperrors.ErrTokenUnavailable
}

func (s *Store) expired(expiresAt int64) bool {
	return s.now().Unix() >= expiresAt
}

// parseExpiry treats an unparseable expiry as already expired.
func parseExpiry(raw []byte) int64 {
	expiresAt, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		log.Warn().Err(err).Msg("unparseable token expiry, treating token as expired")
		return 0
	}
	return expiresAt
}

// RequireToken is Token for callers that cannot proceed without one.
func (s *Store) RequireToken(ctx context.Context) (string, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("bearer token required: %w", err)
	}
	return token.Value, nil
}

// ClearCredential removes credential and token in one atomic delete.
func (s *Store) ClearCredential(ctx context.Context) error {
	return s.kv.Delete(ctx, models.KeyCredential, models.KeyToken, models.KeyTokenExpiry)
}
