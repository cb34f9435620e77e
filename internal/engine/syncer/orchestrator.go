// Package syncer runs a sync: fetch the requested collections, derive the
// inventory view, and dispatch the snapshot to exactly one target.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"retailsync/internal/engine/inventory"
	"retailsync/internal/engine/resources"
	"retailsync/internal/engine/targets"
	apperrors "retailsync/internal/pkg/errors"
	"retailsync/internal/platform/kvstore"
	"retailsync/internal/platform/models"
)

type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// FetcherSource resolves the client for a fetchable collection.
type FetcherSource interface {
	Fetcher(c models.Collection) (resources.Lister, bool)
}

// WebhookCapable is implemented by whatever can register the webhook
// subscription. Webhook sync is configuration, not data transfer.
type WebhookCapable interface {
	RegisterWebhook(ctx context.Context, override *models.WebhookConfig, registeredBy string) (models.WebhookConfig, error)
}

type SyncConfig struct {
	Method    models.SyncMethod
	DataTypes []models.Collection
	Source    Source
	Format    string

	// OnProgress fires after every fetch; percentages never decrease and
	// the last one is 100.
	OnProgress func(models.Progress)
	// OnTargetProgress fires while the target writes (local persist reports per key).
	OnTargetProgress func(models.Progress)

	Webhook      *models.WebhookConfig
	RegisteredBy string
}

type Orchestrator struct {
	fetchers FetcherSource
	kv       *kvstore.KV
	targets  map[models.SyncMethod]targets.Target
	webhook  WebhookCapable
	lowStock int
	now      func() time.Time
}

type Option func(*Orchestrator)

func WithTarget(t targets.Target) Option {
	return func(o *Orchestrator) { o.targets[t.Method()] = t }
}

func WithWebhook(w WebhookCapable) Option {
	return func(o *Orchestrator) { o.webhook = w }
}

func WithLowStockThreshold(n int) Option {
	return func(o *Orchestrator) { o.lowStock = n }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New wires the orchestrator. kv backs the local fetch source.
func New(fetchers FetcherSource, kv *kvstore.KV, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetchers: fetchers,
		kv:       kv,
		targets:  make(map[models.SyncMethod]targets.Target),
		lowStock: inventory.DefaultLowStockThreshold,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SyncAll never returns an error: failures come back as Success=false.
// Individual fetch failures are logged and counted as zero records.
func (o *Orchestrator) SyncAll(ctx context.Context, cfg SyncConfig) models.SyncResult {
	if !cfg.Method.Valid() {
		return o.failure(cfg.Method, nil, apperrors.Validation("method", fmt.Sprintf("unknown sync method %q", cfg.Method)))
	}
	if cfg.Method == models.MethodWebhook {
		return o.syncWebhook(ctx, cfg)
	}

	requested, err := normalizeDataTypes(cfg.DataTypes)
	if err != nil {
		return o.failure(cfg.Method, nil, err)
	}

	fetched := o.fetchAll(ctx, cfg, fetchSet(requested))

	if contains(requested, models.Inventory) {
		fetched[models.Inventory] = inventory.Build(fetched[models.Products], o.lowStock)
	}

	snap := make(models.Snapshot, len(requested))
	for _, c := range requested {
		records := fetched[c]
		if records == nil {
			records = []models.Record{}
		}
		snap[c] = records
	}

	if err := ctx.Err(); err != nil {
		return o.failure(cfg.Method, snap, err)
	}

	target, ok := o.targets[cfg.Method]
	if !ok {
		return o.failure(cfg.Method, snap, fmt.Errorf("sync target %s is not configured", cfg.Method))
	}

	result, err := target.Apply(ctx, snap, targets.Options{Format: cfg.Format, Progress: cfg.OnTargetProgress})
	if err != nil {
		log.Error().Err(err).Str("method", string(cfg.Method)).Msg("sync dispatch failed")
		return o.failure(cfg.Method, snap, err)
	}

	result.Method = cfg.Method
	result.DataSummary = snap.Counts()
	result.Timestamp = o.now().UTC()
	return result
}

func (o *Orchestrator) fetchAll(ctx context.Context, cfg SyncConfig, collections []models.Collection) models.Snapshot {
	fetched := make(models.Snapshot, len(collections))
	total := len(collections)

	for i, c := range collections {
		records, err := o.fetch(ctx, cfg.Source, c)
		if err != nil {
			log.Warn().Err(err).Str("collection", string(c)).Str("source", string(cfg.Source)).Msg("fetch failed, counting as empty")
			records = nil
		}
		fetched[c] = records

		if cfg.OnProgress != nil {
			cfg.OnProgress(models.Progress{
				Step:       i + 1,
				Total:      total,
				Collection: c,
				Count:      len(records),
				Percentage: targets.Percentage(i+1, total),
			})
		}
	}
	return fetched
}

func (o *Orchestrator) fetch(ctx context.Context, source Source, c models.Collection) ([]models.Record, error) {
	if source == SourceLocal {
		if o.kv == nil {
			return nil, errors.New("local source is not configured")
		}
		var records []models.Record
		if _, err := o.kv.GetJSON(ctx, c.Key(), &records); err != nil {
			return nil, err
		}
		return records, nil
	}

	if o.fetchers == nil {
		return nil, errors.New("resource clients are not configured")
	}
	lister, ok := o.fetchers.Fetcher(c)
	if !ok {
		return nil, fmt.Errorf("no client for collection %s", c)
	}
	return lister.GetAll(ctx, nil)
}

func (o *Orchestrator) syncWebhook(ctx context.Context, cfg SyncConfig) models.SyncResult {
	if o.webhook == nil {
		return o.failure(models.MethodWebhook, nil, errors.New("webhook registration is not available"))
	}

	registered, err := o.webhook.RegisterWebhook(ctx, cfg.Webhook, cfg.RegisteredBy)
	if err != nil {
		return o.failure(models.MethodWebhook, nil, err)
	}

	return models.SyncResult{
		Success: true,
		Method:  models.MethodWebhook,
		Message: fmt.Sprintf("Webhook registered for %d events", len(registered.Events)),
		Details: map[string]interface{}{
			"remoteId":    registered.RemoteID,
			"callbackUrl": registered.CallbackURL,
			"events":      registered.Events,
		},
		Timestamp: o.now().UTC(),
	}
}

func (o *Orchestrator) failure(method models.SyncMethod, snap models.Snapshot, err error) models.SyncResult {
	result := models.SyncResult{
		Success:   false,
		Method:    method,
		Error:     err.Error(),
		Details:   map[string]interface{}{"kind": errorKind(err)},
		Timestamp: o.now().UTC(),
	}
	if snap != nil {
		result.DataSummary = snap.Counts()
	}
	return result
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return "validation"
	case errors.Is(err, apperrors.ErrTokenUnavailable):
		return "token_unavailable"
	case errors.Is(err, apperrors.ErrTransportUnavailable):
		return "transport_unavailable"
	case errors.Is(err, apperrors.ErrApplication):
		return "application"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "internal"
}

// normalizeDataTypes dedupes and orders the request canonically. Empty means all.
func normalizeDataTypes(in []models.Collection) ([]models.Collection, error) {
	if len(in) == 0 {
		return append([]models.Collection(nil), models.AllCollections...), nil
	}
	want := make(map[models.Collection]bool, len(in))
	for _, c := range in {
		if !c.Valid() {
			return nil, apperrors.Validation("dataTypes", fmt.Sprintf("unknown collection %q", c))
		}
		want[c] = true
	}
	var out []models.Collection
	for _, c := range models.AllCollections {
		if want[c] {
			out = append(out, c)
		}
	}
	return out, nil
}

// fetchSet is the requested fetchable collections, plus products when the
// inventory view has to be derived.
func fetchSet(requested []models.Collection) []models.Collection {
	need := make(map[models.Collection]bool, len(requested)+1)
	for _, c := range requested {
		if c.Derived() {
			need[models.Products] = true
			continue
		}
		need[c] = true
	}
	var out []models.Collection
	for _, c := range models.AllCollections {
		if need[c] {
			out = append(out, c)
		}
	}
	return out
}

func contains(list []models.Collection, c models.Collection) bool {
	for _, item := range list {
		if item == c {
			return true
		}
	}
	return false
}
