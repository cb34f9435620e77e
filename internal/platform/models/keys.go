package models

// Persisted keys outside the per-collection ones.
const (
	KeySyncMetadata         = "sync:metadata"
	KeyWebhookConfig        = "webhook:config"
	KeyWebhookMetadata      = "webhook:metadata"
	KeyWebhookLogs          = "webhook:logs"
	KeyCredential           = "auth:credential"
	KeyToken                = "auth:token"
	KeyTokenExpiry          = "auth:token_expiry"
	KeyFallbackDataDisabled = "settings:fallback_data_disabled"
)
