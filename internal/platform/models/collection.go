package models

import "strings"

// Collection names one of the retail data types handled by sync and ingestion.
type Collection string

const (
	Products        Collection = "products"
	Orders          Collection = "orders"
	Customers       Collection = "customers"
	Returns         Collection = "returns"
	Suppliers       Collection = "suppliers"
	PurchaseOrders  Collection = "purchaseOrders"
	SupplierReturns Collection = "supplierReturns"
	DestroyOrders   Collection = "destroyOrders"
	Reconciliation  Collection = "reconciliation"
	Users           Collection = "users"
	Inventory       Collection = "inventory"
)

// AllCollections lists every data type in sync order.
var AllCollections = []Collection{
	Products, Orders, Customers, Returns, Suppliers, PurchaseOrders,
	SupplierReturns, DestroyOrders, Reconciliation, Users, Inventory,
}

// Derived reports whether the collection is computed locally instead of fetched.
func (c Collection) Derived() bool {
	return c == Inventory
}

// Key is the persisted store key holding the collection.
func (c Collection) Key() string {
	return "collection:" + string(c)
}

func (c Collection) Valid() bool {
	for _, known := range AllCollections {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCollection accepts the canonical name case-insensitively.
func ParseCollection(name string) (Collection, bool) {
	name = strings.TrimSpace(name)
	for _, known := range AllCollections {
		if strings.EqualFold(name, string(known)) {
			return known, true
		}
	}
	return "", false
}

// ParseCollections maps names onto collections. Unknown names are kept
// verbatim so validation can report them.
func ParseCollections(names []string) []Collection {
	out := make([]Collection, 0, len(names))
	for _, name := range names {
		if c, ok := ParseCollection(name); ok {
			out = append(out, c)
		} else {
			out = append(out, Collection(name))
		}
	}
	return out
}

// Record is an opaque upstream record. Numbers decoded by this service are json.Number.
type Record map[string]any

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Snapshot is the per-run aggregation of fetched collections.
type Snapshot map[Collection][]Record

// Counts returns the record count per collection.
func (s Snapshot) Counts() map[Collection]int {
	out := make(map[Collection]int, len(s))
	for c, records := range s {
		out[c] = len(records)
	}
	return out
}

func (s Snapshot) Total() int {
	total := 0
	for _, records := range s {
		total += len(records)
	}
	return total
}

// Collections returns the snapshot's collections in canonical order.
func (s Snapshot) Collections() []Collection {
	var out []Collection
	for _, c := range AllCollections {
		if _, ok := s[c]; ok {
			out = append(out, c)
		}
	}
	return out
}
