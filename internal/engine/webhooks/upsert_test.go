package webhooks

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"retailsync/internal/pkg/payload"
	"retailsync/internal/platform/models"
)

var upsertAt = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func TestUpsert_MergePrecedence(t *testing.T) {
	existing := []models.Record{{"id": json.Number("1"), "name": "old", "price": json.Number("10")}}
	incoming := []payload.Object{{"id": json.Number("1"), "name": "new"}}

	out, stats := upsert(models.Products, existing, incoming, upsertAt)
	require.Len(t, out, 1)
	assert.Equal(t, upsertStats{Updated: 1}, stats)
	assert.Equal(t, "new", out[0]["name"])
	assert.Equal(t, json.Number("10"), out[0]["price"])
	assert.Equal(t, "2026-04-01T10:00:00Z", out[0][FieldUpdatedFromWebhookAt])
	assert.Equal(t, SyncSourceWebhook, out[0][FieldSyncSource])

	assert.Equal(t, "old", existing[0]["name"], "input must not be modified")
}

func TestUpsert_IdentifiersCompareAsStrings(t *testing.T) {
	existing := []models.Record{{"id": float64(42), "name": "X"}}
	out, stats := upsert(models.Orders, existing, []payload.Object{{"id": "42", "status": "paid"}}, upsertAt)
	assert.Len(t, out, 1)
	assert.Equal(t, 1, stats.Updated)
}

func TestUpsert_WideIntegerIdentifiersStayDistinct(t *testing.T) {
	existing := []models.Record{{"id": json.Number("1234567890123456789"), "total": json.Number("1")}}
	incoming := []payload.Object{{"id": json.Number("1234567890123456788"), "total": json.Number("2")}}

	out, stats := upsert(models.Orders, existing, incoming, upsertAt)
	assert.Equal(t, upsertStats{Inserted: 1}, stats)
	require.Len(t, out, 2)
	assert.Equal(t, json.Number("1"), out[0]["total"])
	assert.Equal(t, json.Number("2"), out[1]["total"])
}

func TestUpsert_FallbackIdentifiersAndAppend(t *testing.T) {
	existing := []models.Record{{"sku": "MUG", "stock": 1}}
	incoming := []payload.Object{
		{"sku": "MUG", "stock": 5},
		{"name": "no identifier"},
		{"name": "no identifier"},
		{"sku": "PLATE"},
		{"sku": "PLATE", "stock": 9},
	}

	out, stats := upsert(models.Products, existing, incoming, upsertAt)
	assert.Equal(t, upsertStats{Inserted: 3, Updated: 2}, stats)
	require.Len(t, out, 4)
	assert.Equal(t, 5, out[0]["stock"])
	assert.Equal(t, 9, out[3]["stock"])
}

func TestIdentify(t *testing.T) {
	assert.Equal(t, "7", Identify(models.Orders, map[string]any{"ID": json.Number("7"), "orderNumber": "A-1"}))
	assert.Equal(t, "A-1", Identify(models.Orders, map[string]any{"orderNumber": "A-1"}))
	assert.Equal(t, "jo@example.com", Identify(models.Customers, map[string]any{"email": "jo@example.com"}))
	assert.Equal(t, "", Identify(models.Users, map[string]any{"email": "jo@example.com"}))
	assert.Equal(t, "PO-9", Identify(models.PurchaseOrders, map[string]any{"poNumber": "PO-9"}))
}
