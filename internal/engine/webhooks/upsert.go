package webhooks

import (
	"time"

	"retailsync/internal/pkg/payload"
	"retailsync/internal/platform/models"
)

const (
	FieldUpdatedFromWebhookAt = "updatedFromWebhookAt"
	FieldSyncSource           = "syncSource"
	SyncSourceWebhook         = "webhook"
)

var baseIDFields = []string{"id", "Id", "ID", "code", "Code"}

// fallbackIDFields are tried after baseIDFields.
var fallbackIDFields = map[models.Collection][]string{
	models.Products:        {"sku", "SKU", "barcode", "productId", "product_id"},
	models.Orders:          {"orderNumber", "order_number", "orderId", "order_id", "reference"},
	models.Customers:       {"email", "customerId", "customer_id", "phone"},
	models.Inventory:       {"productId", "product_id", "sku", "SKU"},
	models.Suppliers:       {"supplierCode", "supplier_code", "email"},
	models.PurchaseOrders:  {"poNumber", "po_number", "purchaseOrderNumber"},
	models.SupplierReturns: {"returnNumber", "return_number", "reference"},
	models.DestroyOrders:   {"destroyNumber", "destroy_number", "reference"},
}

// Identify returns the record identifier for collection c, or "" when none
// of the candidate fields is set. Identifiers compare as strings.
func Identify(c models.Collection, rec map[string]any) string {
	if _, id := payload.FirstString(rec, baseIDFields...); id != "" {
		return id
	}
	_, id := payload.FirstString(rec, fallbackIDFields[c]...)
	return id
}

type upsertStats struct {
	Inserted int
	Updated  int
}

// upsert merges incoming into existing. A record whose identifier matches an
// existing one is shallow-merged over it (incoming wins per key); anything
// else is appended. Every touched record is stamped with at and the webhook
// source marker. existing is not modified.
func upsert(c models.Collection, existing []models.Record, incoming []payload.Object, at time.Time) ([]models.Record, upsertStats) {
	out := make([]models.Record, len(existing), len(existing)+len(incoming))
	copy(out, existing)

	index := make(map[string]int, len(existing))
	for i, rec := range out {
		if id := Identify(c, rec); id != "" {
			if _, dup := index[id]; !dup {
				index[id] = i
			}
		}
	}

	stamp := at.UTC().Format(time.RFC3339)
	var stats upsertStats
	for _, in := range incoming {
		id := Identify(c, in)
		if pos, ok := index[id]; ok && id != "" {
			merged := out[pos].Clone()
			for k, v := range in {
				merged[k] = v
			}
			merged[FieldUpdatedFromWebhookAt] = stamp
			merged[FieldSyncSource] = SyncSourceWebhook
			out[pos] = merged
			stats.Updated++
			continue
		}

		rec := models.Record(in).Clone()
		rec[FieldUpdatedFromWebhookAt] = stamp
		rec[FieldSyncSource] = SyncSourceWebhook
		out = append(out, rec)
		if id != "" {
			index[id] = len(out) - 1
		}
		stats.Inserted++
	}
	return out, stats
}
