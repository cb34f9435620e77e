package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"retailsync/internal/platform/models"
)

func TestSyncStatus(t *testing.T) {
	tests := []struct {
		kind   string
		status int
	}{
		{"validation", http.StatusBadRequest},
		{"token_unavailable", http.StatusPreconditionFailed},
		{"transport_unavailable", http.StatusServiceUnavailable},
		{"cancelled", http.StatusServiceUnavailable},
		{"application", http.StatusBadGateway},
		{"internal", http.StatusInternalServerError},
		{"", http.StatusOK},
	}
	for _, tt := range tests {
		result := models.SyncResult{Details: map[string]interface{}{}}
		if tt.kind != "" {
			result.Details["kind"] = tt.kind
		}
		assert.Equal(t, tt.status, syncStatus(result), "kind %q", tt.kind)
	}

	assert.Equal(t, http.StatusOK, syncStatus(models.SyncResult{Success: true}))
}
