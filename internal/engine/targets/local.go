package targets

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"retailsync/internal/platform/kvstore"
	"retailsync/internal/platform/models"
	"retailsync/internal/platform/notify"
)

// LocalPersist writes one key per collection plus the sync metadata record.
type LocalPersist struct {
	kv     *kvstore.KV
	notify notify.Publisher
	now    func() time.Time
}

func NewLocalPersist(kv *kvstore.KV, pub notify.Publisher) *LocalPersist {
	if pub == nil {
		pub = notify.Discard{}
	}
	return &LocalPersist{kv: kv, notify: pub, now: time.Now}
}

func (t *LocalPersist) Method() models.SyncMethod { return models.MethodLocalStore }

func (t *LocalPersist) Apply(ctx context.Context, snap models.Snapshot, opts Options) (models.SyncResult, error) {
	collections := snap.Collections()
	var failed []string

	for i, c := range collections {
		records := snap[c]
		if records == nil {
			records = []models.Record{}
		}
		if err := t.kv.SetJSON(ctx, c.Key(), records); err != nil {
			log.Error().Err(err).Str("key", c.Key()).Msg("failed to persist collection")
			failed = append(failed, c.Key())
		} else {
			t.notify.Publish(notify.Change{Source: notify.SourceSync, Collection: c, Count: len(records)})
		}
		opts.report(i+1, len(collections), c, len(records))
	}

	meta := models.SyncMetadata{
		LastSyncAt:   t.now().UTC(),
		Method:       models.MethodLocalStore,
		Collections:  collections,
		TotalRecords: snap.Total(),
	}
	if err := t.kv.SetJSON(ctx, models.KeySyncMetadata, meta); err != nil {
		return models.SyncResult{}, fmt.Errorf("write sync metadata: %w", err)
	}

	if len(failed) > 0 {
		return models.SyncResult{
			Success: false,
			Method:  models.MethodLocalStore,
			Error:   fmt.Sprintf("failed to persist %d of %d collections", len(failed), len(collections)),
			Details: map[string]interface{}{"failedKeys": failed},
		}, nil
	}

	return models.SyncResult{
		Success: true,
		Method:  models.MethodLocalStore,
		Message: fmt.Sprintf("Stored %d records in %d collections", meta.TotalRecords, len(collections)),
	}, nil
}
