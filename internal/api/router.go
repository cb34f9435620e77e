package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "retailsync/internal/api/context"
	"retailsync/internal/api/handlers"
	"retailsync/internal/api/middleware"
	"retailsync/internal/pkg/errors"
	"retailsync/internal/platform/auth"
	"retailsync/internal/platform/config"
)

type Dependencies struct {
	AuthHandler        *handlers.AuthHandler
	CredentialsHandler *handlers.CredentialsHandler
	SyncHandler        *handlers.SyncHandler
	CollectionsHandler *handlers.CollectionsHandler
	WebhookHandler     *handlers.WebhookHandler
	IncomingHandler    *handlers.IncomingHandler
	EventsHandler      *handlers.EventsHandler
	HealthHandler      *handlers.HealthHandler
	MetricsHandler     *handlers.MetricsHandler

	AuthMiddleware       *middleware.AuthMiddleware
	CredentialMiddleware *middleware.CredentialMiddleware
	SignatureMiddleware  *middleware.SignatureMiddleware
	RateLimiter          *middleware.RateLimiter
	RateLimits           config.RateLimitConfig
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	authMid := deps.AuthMiddleware
	credMid := deps.CredentialMiddleware
	apiLimit := deps.RateLimiter.Limit("api", deps.RateLimits.APIPerMinute)
	admin := requireRole(auth.RoleAdmin)

	// operator wraps a handler in the standard authenticated chain.
	operator := func(handler http.HandlerFunc, extra ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
		middlewares := append([]func(http.HandlerFunc) http.HandlerFunc{apiLimit, authMid.Handle, admin}, extra...)
		return chain(handler, middlewares...)
	}

	// Probes
	router.GET("/health", wrap(deps.HealthHandler.Check))
	router.GET("/metrics", wrap(deps.MetricsHandler.Export))

	// Authentication
	router.POST("/api/v1/auth/login", chain(deps.AuthHandler.Login, apiLimit))

	// Store credential and upstream token
	router.GET("/api/v1/credentials", operator(deps.CredentialsHandler.Get))
	router.PUT("/api/v1/credentials", operator(deps.CredentialsHandler.Save))
	router.DELETE("/api/v1/credentials", operator(deps.CredentialsHandler.Clear))
	router.PUT("/api/v1/credentials/token", operator(deps.CredentialsHandler.SetToken))

	// Sync
	router.POST("/api/v1/sync", operator(deps.SyncHandler.Run))
	router.GET("/api/v1/sync/metadata", operator(deps.SyncHandler.Metadata))
	router.GET("/api/v1/collections/:name", operator(deps.CollectionsHandler.Get))

	// Webhook administration
	router.GET("/api/v1/webhooks/config", operator(deps.WebhookHandler.GetConfig))
	router.PUT("/api/v1/webhooks/config", operator(deps.WebhookHandler.UpdateConfig))
	router.POST("/api/v1/webhooks/register", operator(deps.WebhookHandler.Register))
	router.DELETE("/api/v1/webhooks/register", operator(deps.WebhookHandler.Unregister))
	router.DELETE("/api/v1/webhooks/register/:webhook_id", operator(deps.WebhookHandler.Unregister))
	router.GET("/api/v1/webhooks/remote", operator(deps.WebhookHandler.ListRemote, credMid.Handle))
	router.GET("/api/v1/webhooks/logs", operator(deps.WebhookHandler.Logs))
	router.DELETE("/api/v1/webhooks/logs", operator(deps.WebhookHandler.ClearLogs))
	router.GET("/api/v1/webhooks/metadata", operator(deps.WebhookHandler.Metadata))
	router.POST("/api/v1/webhooks/simulate", operator(deps.WebhookHandler.Simulate))

	// Change feed
	router.GET("/api/v1/events", chain(deps.EventsHandler.Stream, authMid.Handle, admin))

	// Public webhook receiver
	ingestLimit := deps.RateLimiter.Limit("ingest", deps.RateLimits.IngestPerMinute)
	router.GET("/webhooks/incoming", chain(deps.IncomingHandler.Verify, ingestLimit))
	router.POST("/webhooks/incoming",
		chain(deps.IncomingHandler.Receive, ingestLimit, deps.SignatureMiddleware.Handle))

	return router
}

func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// wrap injects the route params into the request context.
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}

func requireRole(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := r.Context().Value(apiContext.Claims).(*auth.Claims)
			if !ok {
				errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "No authentication claims found", nil)
				return
			}

			allowed := false
			for _, role := range roles {
				if claims.Role == role {
					allowed = true
					break
				}
			}

			if !allowed {
				errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Insufficient permissions", nil)
				return
			}

			next(w, r)
		}
	}
}
