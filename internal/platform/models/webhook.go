package models

import "time"

type WebhookConfig struct {
	CallbackURL      string     `json:"callbackUrl"`
	Secret           string     `json:"secret,omitempty"`
	VerifyToken      string     `json:"verifyToken,omitempty"`
	Description      string     `json:"description,omitempty"`
	Endpoint         string     `json:"endpoint,omitempty"`
	Events           []string   `json:"events"`
	Active           bool       `json:"active"`
	RemoteID         string     `json:"remoteId,omitempty"`
	LastRegisteredAt *time.Time `json:"lastRegisteredAt,omitempty"`
}

type WebhookMetadata struct {
	TotalEvents   int64      `json:"totalEvents"`
	LastEventAt   *time.Time `json:"lastEventAt,omitempty"`
	LastEventName string     `json:"lastEventName,omitempty"`
	RegisteredAt  *time.Time `json:"registeredAt,omitempty"`
	RegisteredBy  string     `json:"registeredBy,omitempty"`
}

// DefaultEvents is the platform's full subscription set, used when none are supplied.
var DefaultEvents = []string{
	"product.created", "product.updated", "product.deleted",
	"order.created", "order.updated", "order.cancelled", "order.fulfilled",
	"customer.created", "customer.updated",
	"inventory.updated",
	"supplier.created", "supplier.updated",
	"purchase_order.created", "purchase_order.updated", "purchase_order.received",
	"supplier_return.created", "supplier_return.updated",
	"destroy_order.created", "destroy_order.updated",
}

type AuditLevel string

const (
	LevelInfo AuditLevel = "info"
	LevelWarn AuditLevel = "warn"
)

type AuditAction string

const (
	ActionRegister      AuditAction = "register"
	ActionUnregister    AuditAction = "unregister"
	ActionList          AuditAction = "list"
	ActionIncomingEvent AuditAction = "incoming-event"
)

type AuditEntry struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Level     AuditLevel             `json:"level"`
	Action    AuditAction            `json:"action"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

type IngestResult struct {
	Success    bool       `json:"success"`
	Message    string     `json:"message"`
	Event      string     `json:"event,omitempty"`
	Collection Collection `json:"collection,omitempty"`
	Processed  int        `json:"processed"`
	Inserted   int        `json:"inserted"`
	Updated    int        `json:"updated"`
}
