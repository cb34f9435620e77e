package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"retailsync/internal/pkg/errors"
	"retailsync/internal/platform/auth"
)

type AuthHandler struct {
	authn    *auth.Authenticator
	tokenSvc *auth.TokenService
}

func NewAuthHandler(authn *auth.Authenticator, tokenSvc *auth.TokenService) *AuthHandler {
	return &AuthHandler{
		authn:    authn,
		tokenSvc: tokenSvc,
	}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.authn.Authenticate(req.Username, req.Password); err != nil {
		log.Warn().Str("username", req.Username).Msg("rejected operator login")
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid credentials", nil)
		return
	}

	accessToken, expiresAt, err := h.tokenSvc.GenerateAccessToken(req.Username, auth.RoleAdmin)
	if err != nil {
		log.Error().Err(err).Msg("failed to sign access token")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to generate token", nil)
		return
	}

	log.Info().Str("username", req.Username).Msg("operator logged in")
	writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	})
}
