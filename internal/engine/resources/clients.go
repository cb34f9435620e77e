package resources

import (
	"context"
	"net/url"

	"retailsync/internal/platform/models"
)

// Lister is what the sync orchestrator needs from a collection client.
type Lister interface {
	GetAll(ctx context.Context, params url.Values) ([]models.Record, error)
}

type Products struct{ *Resource }

type Orders struct{ *Resource }

func (o Orders) ByCustomer(ctx context.Context, customerID string) ([]models.Record, error) {
	return o.ByParent(ctx, "customerId", customerID)
}

type Customers struct{ *Resource }

type Returns struct{ *Resource }

func (r Returns) ByOrder(ctx context.Context, orderID string) ([]models.Record, error) {
	return r.ByParent(ctx, "orderId", orderID)
}

type Suppliers struct{ *Resource }

type PurchaseOrders struct{ *Resource }

func (p PurchaseOrders) BySupplier(ctx context.Context, supplierID string) ([]models.Record, error) {
	return p.ByParent(ctx, "supplierId", supplierID)
}

type SupplierReturns struct{ *Resource }

func (s SupplierReturns) BySupplier(ctx context.Context, supplierID string) ([]models.Record, error) {
	return s.ByParent(ctx, "supplierId", supplierID)
}

type DestroyOrders struct{ *Resource }

type Reconciliation struct{ *Resource }

type Users struct{ *Resource }

// Set groups one client per fetchable collection.
type Set struct {
	Products        Products
	Orders          Orders
	Customers       Customers
	Returns         Returns
	Suppliers       Suppliers
	PurchaseOrders  PurchaseOrders
	SupplierReturns SupplierReturns
	DestroyOrders   DestroyOrders
	Reconciliation  Reconciliation
	Users           Users
}

func NewSet(c *Client) *Set {
	return &Set{
		Products:        Products{NewResource(c, "/products")},
		Orders:          Orders{NewResource(c, "/orders")},
		Customers:       Customers{NewResource(c, "/customers")},
		Returns:         Returns{NewResource(c, "/returns")},
		Suppliers:       Suppliers{NewResource(c, "/suppliers")},
		PurchaseOrders:  PurchaseOrders{NewResource(c, "/purchase-orders")},
		SupplierReturns: SupplierReturns{NewResource(c, "/supplier-returns")},
		DestroyOrders:   DestroyOrders{NewResource(c, "/destroy-orders")},
		Reconciliation:  Reconciliation{NewResource(c, "/reconciliation")},
		Users:           Users{NewResource(c, "/users")},
	}
}

// Fetcher returns the client for collection. Derived collections have none.
func (s *Set) Fetcher(c models.Collection) (Lister, bool) {
	switch c {
	case models.Products:
		return s.Products, true
	case models.Orders:
		return s.Orders, true
	case models.Customers:
		return s.Customers, true
	case models.Returns:
		return s.Returns, true
	case models.Suppliers:
		return s.Suppliers, true
	case models.PurchaseOrders:
		return s.PurchaseOrders, true
	case models.SupplierReturns:
		return s.SupplierReturns, true
	case models.DestroyOrders:
		return s.DestroyOrders, true
	case models.Reconciliation:
		return s.Reconciliation, true
	case models.Users:
		return s.Users, true
	}
	return nil, false
}
