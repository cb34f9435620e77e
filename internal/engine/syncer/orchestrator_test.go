package syncer

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"retailsync/internal/engine/resources"
	"retailsync/internal/engine/targets"
	apperrors "retailsync/internal/pkg/errors"
	"retailsync/internal/platform/kvstore"
	"retailsync/internal/platform/models"
)

type fakeLister struct {
	records []models.Record
	err     error
	calls   int
}

func (f *fakeLister) GetAll(context.Context, url.Values) ([]models.Record, error) {
	f.calls++
	return f.records, f.err
}

type fakeFetchers map[models.Collection]*fakeLister

func (f fakeFetchers) Fetcher(c models.Collection) (resources.Lister, bool) {
	l, ok := f[c]
	if !ok {
		return nil, false
	}
	return l, true
}

func allFetchers() fakeFetchers {
	f := fakeFetchers{}
	for _, c := range models.AllCollections {
		if !c.Derived() {
			f[c] = &fakeLister{records: []models.Record{{"id": string(c) + "-1"}}}
		}
	}
	return f
}

type recordingTarget struct {
	method models.SyncMethod
	got    models.Snapshot
	err    error
}

func (t *recordingTarget) Method() models.SyncMethod { return t.method }

func (t *recordingTarget) Apply(_ context.Context, snap models.Snapshot, _ targets.Options) (models.SyncResult, error) {
	t.got = snap
	if t.err != nil {
		return models.SyncResult{}, t.err
	}
	return models.SyncResult{Success: true, Message: "ok"}, nil
}

func TestSyncAll_ProgressIsMonotonicAndEndsAt100(t *testing.T) {
	target := &recordingTarget{method: models.MethodLocalStore}
	o := New(allFetchers(), nil, WithTarget(target))

	var progress []models.Progress
	result := o.SyncAll(context.Background(), SyncConfig{
		Method:     models.MethodLocalStore,
		OnProgress: func(p models.Progress) { progress = append(progress, p) },
	})
	require.True(t, result.Success, result.Error)

	require.Len(t, progress, 10, "ten fetchable collections")
	last := 0
	for i, p := range progress {
		assert.Equal(t, i+1, p.Step)
		assert.Equal(t, 10, p.Total)
		assert.GreaterOrEqual(t, p.Percentage, last)
		last = p.Percentage
	}
	assert.Equal(t, 100, last)

	assert.Len(t, result.DataSummary, 11)
	assert.Equal(t, 1, result.DataSummary[models.Inventory])
}

func TestSyncAll_PartialFailureIsIsolated(t *testing.T) {
	fetchers := allFetchers()
	fetchers[models.Customers].err = &apperrors.TransportError{Op: "GET", URL: "/customers", Err: errors.New("refused")}
	target := &recordingTarget{method: models.MethodLocalStore}

	result := New(fetchers, nil, WithTarget(target)).SyncAll(context.Background(), SyncConfig{
		Method:    models.MethodLocalStore,
		DataTypes: []models.Collection{models.Customers, models.Suppliers},
	})

	assert.True(t, result.Success)
	assert.Equal(t, map[models.Collection]int{models.Customers: 0, models.Suppliers: 1}, result.DataSummary)
	assert.Len(t, target.got[models.Suppliers], 1)
	assert.NotNil(t, target.got[models.Customers])
	assert.Equal(t, 1, fetchers[models.Suppliers].calls)
}

func TestSyncAll_OnlyNeededCollectionsAreFetched(t *testing.T) {
	fetchers := allFetchers()
	fetchers[models.Products].records = []models.Record{{"id": "p1", "stock": 2, "price": 3}}
	target := &recordingTarget{method: models.MethodLocalStore}

	result := New(fetchers, nil, WithTarget(target), WithLowStockThreshold(5)).SyncAll(context.Background(), SyncConfig{
		Method:    models.MethodLocalStore,
		DataTypes: []models.Collection{models.Inventory},
	})
	require.True(t, result.Success)

	assert.Equal(t, 1, fetchers[models.Products].calls)
	assert.Equal(t, 0, fetchers[models.Orders].calls)
	assert.Equal(t, map[models.Collection]int{models.Inventory: 1}, result.DataSummary)
	_, hasProducts := target.got[models.Products]
	assert.False(t, hasProducts, "products were only fetched to derive inventory")
	assert.Equal(t, true, target.got[models.Inventory][0]["lowStock"])
}

func TestSyncAll_DispatchFailureSurfaces(t *testing.T) {
	target := &recordingTarget{method: models.MethodRemoteAPI, err: apperrors.Validation("storeId", "is required")}
	result := New(allFetchers(), nil, WithTarget(target)).SyncAll(context.Background(), SyncConfig{
		Method:    models.MethodRemoteAPI,
		DataTypes: []models.Collection{models.Orders},
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "storeId")
	assert.Equal(t, "validation", result.Details["kind"])
	assert.Equal(t, 1, result.DataSummary[models.Orders])
}

func TestSyncAll_RejectsUnknownInput(t *testing.T) {
	o := New(allFetchers(), nil)

	result := o.SyncAll(context.Background(), SyncConfig{Method: "carrierPigeon"})
	assert.False(t, result.Success)

	result = o.SyncAll(context.Background(), SyncConfig{Method: models.MethodLocalStore, DataTypes: []models.Collection{"widgets"}})
	assert.False(t, result.Success)
	assert.Equal(t, "validation", result.Details["kind"])

	result = o.SyncAll(context.Background(), SyncConfig{Method: models.MethodFileExport})
	assert.False(t, result.Success, "no export target wired")
}

type fakeWebhook struct {
	override *models.WebhookConfig
	by       string
	err      error
}

func (f *fakeWebhook) RegisterWebhook(_ context.Context, override *models.WebhookConfig, by string) (models.WebhookConfig, error) {
	f.override, f.by = override, by
	if f.err != nil {
		return models.WebhookConfig{}, f.err
	}
	return models.WebhookConfig{CallbackURL: "https://hooks.example.com", RemoteID: "wh_1", Active: true, Events: []string{"order.created"}}, nil
}

func TestSyncAll_WebhookMethodSkipsFetch(t *testing.T) {
	fetchers := allFetchers()
	hook := &fakeWebhook{}
	o := New(fetchers, nil, WithWebhook(hook))

	override := &models.WebhookConfig{CallbackURL: "https://hooks.example.com"}
	result := o.SyncAll(context.Background(), SyncConfig{Method: models.MethodWebhook, Webhook: override, RegisteredBy: "admin"})
	require.True(t, result.Success, result.Error)
	assert.Equal(t, "wh_1", result.Details["remoteId"])
	assert.Same(t, override, hook.override)
	assert.Equal(t, "admin", hook.by)
	for c, l := range fetchers {
		assert.Zero(t, l.calls, "collection %s fetched", c)
	}

	hook.err = apperrors.ErrTokenUnavailable
	result = o.SyncAll(context.Background(), SyncConfig{Method: models.MethodWebhook})
	assert.False(t, result.Success)
	assert.Equal(t, "token_unavailable", result.Details["kind"])

	result = New(fetchers, nil).SyncAll(context.Background(), SyncConfig{Method: models.MethodWebhook})
	assert.False(t, result.Success, "no webhook capability")
}

func TestSyncAll_LocalSource(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.New(kvstore.NewMemoryStore())
	require.NoError(t, kv.SetJSON(ctx, models.Orders.Key(), []models.Record{{"id": "o1"}, {"id": "o2"}}))

	fetchers := allFetchers()
	target := &recordingTarget{method: models.MethodFileExport}
	result := New(fetchers, kv, WithTarget(target)).SyncAll(ctx, SyncConfig{
		Method:    models.MethodFileExport,
		Source:    SourceLocal,
		DataTypes: []models.Collection{models.Orders, models.Users},
	})

	require.True(t, result.Success)
	assert.Equal(t, map[models.Collection]int{models.Orders: 2, models.Users: 0}, result.DataSummary)
	assert.Zero(t, fetchers[models.Orders].calls)
}

// Local-store sync with three products and a failing orders fetch writes
// both collection keys and reports success.
func TestSyncAll_LocalStoreEndToEnd(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.New(kvstore.NewMemoryStore())
	now := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)

	fetchers := fakeFetchers{
		models.Products: {records: []models.Record{{"id": 1}, {"id": 2}, {"id": 3}}},
		models.Orders:   {err: errors.New("upstream exploded")},
	}
	o := New(fetchers, kv, WithTarget(targets.NewLocalPersist(kv, nil)), WithClock(func() time.Time { return now }))

	result := o.SyncAll(ctx, SyncConfig{
		Method:    models.MethodLocalStore,
		DataTypes: []models.Collection{models.Products, models.Orders},
	})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, map[models.Collection]int{models.Products: 3, models.Orders: 0}, result.DataSummary)
	assert.Equal(t, now, result.Timestamp)

	keys, err := kv.Keys(ctx, "collection:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"collection:products", "collection:orders"}, keys)
}
