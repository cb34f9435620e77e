// Package app assembles the sync service from configuration.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"retailsync/internal/api"
	"retailsync/internal/api/handlers"
	"retailsync/internal/api/middleware"
	"retailsync/internal/engine/resources"
	"retailsync/internal/engine/syncer"
	"retailsync/internal/engine/targets"
	"retailsync/internal/engine/webhooks"
	"retailsync/internal/platform/audit"
	"retailsync/internal/platform/auth"
	"retailsync/internal/platform/config"
	"retailsync/internal/platform/credentials"
	"retailsync/internal/platform/export"
	"retailsync/internal/platform/kvstore"
	"retailsync/internal/platform/models"
	"retailsync/internal/platform/notify"
)

type App struct {
	Config       *config.Config
	KV           *kvstore.KV
	Credentials  *credentials.Store
	Audit        *audit.Logger
	Metadata     *audit.Metadata
	Hub          *notify.Hub
	Resources    *resources.Set
	Webhooks     *webhooks.Manager
	Pipeline     *webhooks.Pipeline
	Orchestrator *syncer.Orchestrator

	limiter *middleware.RateLimiter
}

// New opens the configured store and builds the service on it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	kv, err := kvstore.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a, err := NewWithStore(ctx, cfg, kv)
	if err != nil {
		kv.Close()
		return nil, err
	}
	return a, nil
}

// NewWithStore builds the service on an already open store.
func NewWithStore(ctx context.Context, cfg *config.Config, kv *kvstore.KV) (*App, error) {
	creds := credentials.NewStore(kv)
	if err := seedCredential(ctx, creds, cfg.Upstream.StoreID); err != nil {
		return nil, err
	}

	auditLog := audit.NewLogger(kv)
	metadata := audit.NewMetadata(kv)
	hub := notify.NewHub()

	client := resources.NewClient(cfg.Upstream, creds)
	set := resources.NewSet(client)

	manager := webhooks.NewManager(client, creds, kv, auditLog, metadata, models.WebhookConfig{
		CallbackURL: cfg.Webhooks.CallbackURL,
		Secret:      cfg.Webhooks.Secret,
		VerifyToken: cfg.Webhooks.VerifyToken,
		Description: cfg.Webhooks.Description,
		Endpoint:    cfg.Upstream.WebhookEndpoint,
		Events:      cfg.Webhooks.Events,
	})
	pipeline := webhooks.NewPipeline(kv, auditLog, metadata, hub)

	sink, err := export.NewSink(ctx, cfg.Export)
	if err != nil {
		return nil, fmt.Errorf("export sink: %w", err)
	}

	orchestrator := syncer.New(set, kv,
		syncer.WithTarget(targets.NewRemotePush(client, creds, cfg.Upstream.SyncPath)),
		syncer.WithTarget(targets.NewLocalPersist(kv, hub)),
		syncer.WithTarget(targets.NewFileExport(sink, cfg.Export.Prefix, cfg.Export.Format)),
		syncer.WithWebhook(manager),
		syncer.WithLowStockThreshold(cfg.Sync.LowStockThreshold),
	)

	return &App{
		Config:       cfg,
		KV:           kv,
		Credentials:  creds,
		Audit:        auditLog,
		Metadata:     metadata,
		Hub:          hub,
		Resources:    set,
		Webhooks:     manager,
		Pipeline:     pipeline,
		Orchestrator: orchestrator,
	}, nil
}

// seedCredential saves a configured store id unless one is already saved.
func seedCredential(ctx context.Context, creds *credentials.Store, storeID string) error {
	if storeID == "" {
		return nil
	}
	current, err := creds.Credential(ctx)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	if current.StoreID != "" {
		return nil
	}
	if _, err := creds.SaveCredential(ctx, storeID); err != nil {
		return fmt.Errorf("seed credential: %w", err)
	}
	log.Info().Str("store_id", storeID).Msg("store credential seeded from config")
	return nil
}

// Handler builds the HTTP API.
func (a *App) Handler() http.Handler {
	if a.limiter == nil {
		a.limiter = middleware.NewRateLimiter()
	}

	tokenSvc := auth.NewTokenService(a.Config.JWT)

	deps := &api.Dependencies{
		AuthHandler:        handlers.NewAuthHandler(auth.NewAuthenticator(a.Config.Admin), tokenSvc),
		CredentialsHandler: handlers.NewCredentialsHandler(a.Credentials),
		SyncHandler:        handlers.NewSyncHandler(a.Orchestrator, a.KV, a.Config.Sync),
		CollectionsHandler: handlers.NewCollectionsHandler(a.KV),
		WebhookHandler:     handlers.NewWebhookHandler(a.Webhooks, a.Pipeline, a.Audit, a.Metadata),
		IncomingHandler:    handlers.NewIncomingHandler(a.Webhooks, a.Pipeline),
		EventsHandler:      handlers.NewEventsHandler(a.Hub, a.Config.Server.AllowedOrigins),
		HealthHandler:      handlers.NewHealthHandler(a.KV),
		MetricsHandler:     handlers.NewMetricsHandler(a.KV, a.Audit, a.Metadata, a.Hub),

		AuthMiddleware:       middleware.NewAuthMiddleware(tokenSvc),
		CredentialMiddleware: middleware.NewCredentialMiddleware(a.Credentials),
		SignatureMiddleware:  middleware.NewSignatureMiddleware(a.webhookSecret, a.Config.Webhooks.SignatureHeader),
		RateLimiter:          a.limiter,
		RateLimits:           a.Config.RateLimit,
	}
	return api.NewRouter(deps)
}

func (a *App) webhookSecret(ctx context.Context) (string, error) {
	cfg, err := a.Webhooks.Config(ctx)
	if err != nil {
		return "", err
	}
	return cfg.Secret, nil
}

func (a *App) Close() error {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	return a.KV.Close()
}
