package audit

import (
	"context"
	"time"

	"retailsync/internal/platform/kvstore"
	"retailsync/internal/platform/models"
)

// Metadata tracks webhook counters under webhook:metadata.
type Metadata struct {
	kv  *kvstore.KV
	now func() time.Time
}

func NewMetadata(kv *kvstore.KV) *Metadata {
	return &Metadata{kv: kv, now: time.Now}
}

func (m *Metadata) Get(ctx context.Context) (models.WebhookMetadata, error) {
	var meta models.WebhookMetadata
	_, err := m.kv.GetJSON(ctx, models.KeyWebhookMetadata, &meta)
	return meta, err
}

// RecordEvent counts one received event, successful or not.
func (m *Metadata) RecordEvent(ctx context.Context, event string) (models.WebhookMetadata, error) {
	now := m.now().UTC()
	return kvstore.UpdateJSON(ctx, m.kv, models.KeyWebhookMetadata, func(meta *models.WebhookMetadata) error {
		meta.TotalEvents++
		meta.LastEventAt = &now
		meta.LastEventName = event
		return nil
	})
}

func (m *Metadata) RecordRegistration(ctx context.Context, by string) (models.WebhookMetadata, error) {
	now := m.now().UTC()
	return kvstore.UpdateJSON(ctx, m.kv, models.KeyWebhookMetadata, func(meta *models.WebhookMetadata) error {
		meta.RegisteredAt = &now
		meta.RegisteredBy = by
		return nil
	})
}
