package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	apperrors "retailsync/internal/pkg/errors"
	"retailsync/internal/pkg/payload"
	"retailsync/internal/pkg/validator"
	"retailsync/internal/platform/audit"
	"retailsync/internal/platform/kvstore"
	"retailsync/internal/platform/models"
)

const DefaultEndpoint = "/webhooks"

type requester interface {
	Do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error)
}

type credentialProvider interface {
	Credential(ctx context.Context) (models.Credential, error)
	Token(ctx context.Context) (models.Token, error)
}

// Manager owns the webhook subscription with the upstream platform.
// Config moves Unregistered -> Active only on a successful registration and
// back only on a successful unregistration.
type Manager struct {
	client   requester
	creds    credentialProvider
	kv       *kvstore.KV
	audit    *audit.Logger
	metadata *audit.Metadata
	defaults models.WebhookConfig
	now      func() time.Time
}

func NewManager(client requester, creds credentialProvider, kv *kvstore.KV, logger *audit.Logger, metadata *audit.Metadata, defaults models.WebhookConfig) *Manager {
	if defaults.Endpoint == "" {
		defaults.Endpoint = DefaultEndpoint
	}
	defaults.Active = false
	defaults.RemoteID = ""
	defaults.LastRegisteredAt = nil
	return &Manager{
		client:   client,
		creds:    creds,
		kv:       kv,
		audit:    logger,
		metadata: metadata,
		defaults: defaults,
		now:      time.Now,
	}
}

type RegisterRequest struct {
	CallbackURL  string   `json:"callbackUrl"`
	Secret       string   `json:"secret"`
	VerifyToken  string   `json:"verifyToken"`
	Description  string   `json:"description"`
	Endpoint     string   `json:"endpoint"`
	Events       []string `json:"events"`
	RegisteredBy string   `json:"-"`
}

type registration struct {
	Retailer    string   `json:"retailer" validate:"required"`
	CallbackURL string   `json:"callbackUrl" validate:"required,url"`
	Secret      string   `json:"secret,omitempty"`
	VerifyToken string   `json:"verifyToken,omitempty"`
	Events      []string `json:"events" validate:"required,min=1"`
	Description string   `json:"description"`
}

// Config returns the saved configuration with unset fields filled from the
// configured defaults.
func (m *Manager) Config(ctx context.Context) (models.WebhookConfig, error) {
	var saved models.WebhookConfig
	found, err := m.kv.GetJSON(ctx, models.KeyWebhookConfig, &saved)
	if err != nil {
		return models.WebhookConfig{}, err
	}
	if !found {
		cfg := m.defaults
		cfg.Events = NormalizeEvents(cfg.Events)
		return cfg, nil
	}
	return m.withDefaults(saved), nil
}

func (m *Manager) withDefaults(cfg models.WebhookConfig) models.WebhookConfig {
	if cfg.CallbackURL == "" {
		cfg.CallbackURL = m.defaults.CallbackURL
	}
	if cfg.Secret == "" {
		cfg.Secret = m.defaults.Secret
	}
	if cfg.VerifyToken == "" {
		cfg.VerifyToken = m.defaults.VerifyToken
	}
	if cfg.Description == "" {
		cfg.Description = m.defaults.Description
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = m.defaults.Endpoint
	}
	if len(cfg.Events) == 0 {
		cfg.Events = m.defaults.Events
	}
	cfg.Events = NormalizeEvents(cfg.Events)
	return cfg
}

// SaveConfig edits the stored configuration. Registration state
// (active, remoteId, lastRegisteredAt) is never changed here.
func (m *Manager) SaveConfig(ctx context.Context, update models.WebhookConfig) (models.WebhookConfig, error) {
	if update.CallbackURL != "" {
		if err := validator.Var("callbackUrl", update.CallbackURL, "url"); err != nil {
			return models.WebhookConfig{}, err
		}
	}

	saved, err := kvstore.UpdateJSON(ctx, m.kv, models.KeyWebhookConfig, func(cfg *models.WebhookConfig) error {
		cfg.CallbackURL = update.CallbackURL
		cfg.Secret = update.Secret
		cfg.VerifyToken = update.VerifyToken
		cfg.Description = update.Description
		cfg.Endpoint = update.Endpoint
		cfg.Events = NormalizeEvents(update.Events)
		return nil
	})
	if err != nil {
		return models.WebhookConfig{}, err
	}
	return m.withDefaults(saved), nil
}

// RegisterWebhook lets the sync orchestrator run a registration.
func (m *Manager) RegisterWebhook(ctx context.Context, override *models.WebhookConfig, registeredBy string) (models.WebhookConfig, error) {
	req := RegisterRequest{RegisteredBy: registeredBy}
	if override != nil {
		req.CallbackURL = override.CallbackURL
		req.Secret = override.Secret
		req.VerifyToken = override.VerifyToken
		req.Description = override.Description
		req.Endpoint = override.Endpoint
		req.Events = override.Events
	}
	return m.Register(ctx, req)
}

// Register subscribes the callback URL upstream. Supplied fields override the
// saved config. Nothing is persisted unless the platform accepts it.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) (models.WebhookConfig, error) {
	cred, err := m.creds.Credential(ctx)
	if err != nil {
		return models.WebhookConfig{}, fmt.Errorf("load credential: %w", err)
	}
	if cred.StoreID == "" {
		err := apperrors.Validation("storeId", "is required; save a credential before registering")
		m.audit.Warn(ctx, models.ActionRegister, "Webhook registration rejected: no credential", nil)
		return models.WebhookConfig{}, err
	}
	if _, err := m.creds.Token(ctx); err != nil {
		m.audit.Warn(ctx, models.ActionRegister, "Webhook registration rejected: no valid token", nil)
		return models.WebhookConfig{}, fmt.Errorf("register webhook: %w", err)
	}

	cfg, err := m.Config(ctx)
	if err != nil {
		return models.WebhookConfig{}, err
	}
	cfg = mergeRequest(cfg, req)

	body := registration{
		Retailer:    cred.StoreID,
		CallbackURL: cfg.CallbackURL,
		Secret:      cfg.Secret,
		VerifyToken: cfg.VerifyToken,
		Events:      cfg.Events,
		Description: cfg.Description,
	}
	if err := validator.Struct(body); err != nil {
		m.audit.Warn(ctx, models.ActionRegister, "Webhook registration rejected: "+err.Error(), nil)
		return models.WebhookConfig{}, err
	}

	raw, err := m.client.Do(ctx, http.MethodPost, cfg.Endpoint, nil, body)
	if err != nil {
		m.audit.Warn(ctx, models.ActionRegister, "Webhook registration failed", map[string]interface{}{
			"callbackUrl": cfg.CallbackURL,
			"error":       err.Error(),
		})
		return models.WebhookConfig{}, fmt.Errorf("register webhook: %w", err)
	}

	id := remoteID(raw)
	if id == "" {
		m.audit.Warn(ctx, models.ActionRegister, "Webhook registration failed: response carried no webhook id", map[string]interface{}{
			"callbackUrl": cfg.CallbackURL,
		})
		return models.WebhookConfig{}, fmt.Errorf("register webhook: %w", &apperrors.ApplicationError{
			StatusCode: http.StatusOK,
			Message:    "registration response carried no webhook id",
		})
	}

	now := m.now().UTC()
	cfg.Active = true
	cfg.RemoteID = id
	cfg.LastRegisteredAt = &now
	if err := m.kv.SetJSON(ctx, models.KeyWebhookConfig, cfg); err != nil {
		return models.WebhookConfig{}, fmt.Errorf("save webhook config: %w", err)
	}

	by := req.RegisteredBy
	if by == "" {
		by = cred.StoreID
	}
	if _, err := m.metadata.RecordRegistration(ctx, by); err != nil {
		log.Error().Err(err).Str("remote_id", cfg.RemoteID).Msg("failed to record webhook registration")
	}

	m.audit.Info(ctx, models.ActionRegister, "Webhook registered", map[string]interface{}{
		"callbackUrl": cfg.CallbackURL,
		"remoteId":    cfg.RemoteID,
		"events":      len(cfg.Events),
	})
	return cfg, nil
}

// Unregister deletes the subscription id, or the stored one when id is empty.
func (m *Manager) Unregister(ctx context.Context, id string) (models.WebhookConfig, error) {
	cfg, err := m.Config(ctx)
	if err != nil {
		return models.WebhookConfig{}, err
	}

	target := strings.TrimSpace(id)
	if target == "" {
		target = cfg.RemoteID
	}
	if target == "" {
		m.audit.Warn(ctx, models.ActionUnregister, "Unregister skipped: no registered webhook", nil)
		return cfg, apperrors.ErrNoRegisteredWebhook
	}

	path := strings.TrimRight(cfg.Endpoint, "/") + "/" + url.PathEscape(target)
	if _, err := m.client.Do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		m.audit.Warn(ctx, models.ActionUnregister, "Webhook unregistration failed", map[string]interface{}{
			"remoteId": target,
			"error":    err.Error(),
		})
		return cfg, fmt.Errorf("unregister webhook: %w", err)
	}

	// An active config without a remote id can only be cleared by an explicit id.
	if target == cfg.RemoteID || (cfg.Active && cfg.RemoteID == "") {
		saved, err := kvstore.UpdateJSON(ctx, m.kv, models.KeyWebhookConfig, func(c *models.WebhookConfig) error {
			if c.RemoteID == target || (c.Active && c.RemoteID == "") {
				c.Active = false
				c.RemoteID = ""
			}
			return nil
		})
		if err != nil {
			return cfg, fmt.Errorf("save webhook config: %w", err)
		}
		cfg = m.withDefaults(saved)
	}

	m.audit.Info(ctx, models.ActionUnregister, "Webhook unregistered", map[string]interface{}{"remoteId": target})
	return cfg, nil
}

// ListRemote returns the platform's subscriptions for this store. Read only.
func (m *Manager) ListRemote(ctx context.Context) ([]models.Record, error) {
	cfg, err := m.Config(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := m.client.Do(ctx, http.MethodGet, cfg.Endpoint, nil, nil)
	if err != nil {
		m.audit.Warn(ctx, models.ActionList, "Listing remote webhooks failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	list, err := payload.List(raw)
	if err != nil {
		m.audit.Warn(ctx, models.ActionList, "Unexpected webhook list response", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("list webhooks: %w", err)
	}

	out := make([]models.Record, len(list))
	for i, obj := range list {
		out[i] = models.Record(obj)
	}
	m.audit.Info(ctx, models.ActionList, fmt.Sprintf("Listed %d remote webhooks", len(out)), nil)
	return out, nil
}

func mergeRequest(cfg models.WebhookConfig, req RegisterRequest) models.WebhookConfig {
	if v := strings.TrimSpace(req.CallbackURL); v != "" {
		cfg.CallbackURL = v
	}
	if req.Secret != "" {
		cfg.Secret = req.Secret
	}
	if req.VerifyToken != "" {
		cfg.VerifyToken = req.VerifyToken
	}
	if req.Description != "" {
		cfg.Description = req.Description
	}
	if req.Endpoint != "" {
		cfg.Endpoint = req.Endpoint
	}
	if len(req.Events) > 0 {
		cfg.Events = req.Events
	}
	cfg.Events = NormalizeEvents(cfg.Events)
	return cfg
}

func remoteID(raw []byte) string {
	v, err := payload.Decode(raw)
	if err != nil {
		return ""
	}
	obj, ok := v.(payload.Object)
	if !ok {
		return ""
	}
	return payload.FirstPath(obj, "id", "webhookId", "webhook_id", "data.id", "webhook.id", "result.id")
}
