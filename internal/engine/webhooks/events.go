package webhooks

import (
	"sort"
	"strings"

	"retailsync/internal/platform/models"
)

// EventFields are the accepted spellings of the event-name field, in order.
var EventFields = []string{"event", "eventType", "event_type", "type", "topic", "eventName", "event_name", "name"}

// entityCollections maps the entity part of an event name to its collection.
var entityCollections = map[string]models.Collection{
	"product":          models.Products,
	"products":         models.Products,
	"order":            models.Orders,
	"orders":           models.Orders,
	"customer":         models.Customers,
	"customers":        models.Customers,
	"inventory":        models.Inventory,
	"inventories":      models.Inventory,
	"inventory_level":  models.Inventory,
	"inventory_levels": models.Inventory,
	"supplier":         models.Suppliers,
	"suppliers":        models.Suppliers,
	"purchase_order":   models.PurchaseOrders,
	"purchase_orders":  models.PurchaseOrders,
	"purchaseorder":    models.PurchaseOrders,
	"purchaseorders":   models.PurchaseOrders,
	"supplier_return":  models.SupplierReturns,
	"supplier_returns": models.SupplierReturns,
	"supplierreturn":   models.SupplierReturns,
	"supplierreturns":  models.SupplierReturns,
	"destroy_order":    models.DestroyOrders,
	"destroy_orders":   models.DestroyOrders,
	"destroyorder":     models.DestroyOrders,
	"destroyorders":    models.DestroyOrders,
}

// entitiesByLength lets "supplier_return_created" match supplier_return
// before supplier.
var entitiesByLength = func() []string {
	out := make([]string, 0, len(entityCollections))
	for k := range entityCollections {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}()

// NormalizeEventName lower-cases name and folds "orders/create" and
// "purchase-order.created" into dotted snake_case.
func NormalizeEventName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("/", ".", "-", "_", " ", "_", ":", ".").Replace(name)
}

// ResolveCollection maps an event name to the collection it updates.
func ResolveCollection(name string) (models.Collection, bool) {
	name = NormalizeEventName(name)
	if name == "" {
		return "", false
	}

	if entity, _, found := strings.Cut(name, "."); found {
		c, ok := entityCollections[entity]
		return c, ok
	}

	for _, entity := range entitiesByLength {
		if name == entity || strings.HasPrefix(name, entity+"_") {
			return entityCollections[entity], true
		}
	}
	return "", false
}

// NormalizeEvents trims, lower-cases and dedupes events keeping first-seen
// order. Empty input yields the default subscription set.
func NormalizeEvents(events []string) []string {
	seen := make(map[string]bool, len(events))
	out := make([]string, 0, len(events))
	for _, e := range events {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	if len(out) == 0 {
		return append([]string(nil), models.DefaultEvents...)
	}
	return out
}
