package resources

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "retailsync/internal/pkg/errors"
	"retailsync/internal/platform/config"
	"retailsync/internal/platform/credentials"
	"retailsync/internal/platform/kvstore"
	"retailsync/internal/platform/models"
)

func newCreds(t *testing.T, storeID, token string) *credentials.Store {
	t.Helper()
	store := credentials.NewStore(kvstore.New(kvstore.NewMemoryStore()))
	ctx := context.Background()
	if storeID != "" {
		_, err := store.SaveCredential(ctx, storeID)
		require.NoError(t, err)
	}
	if token != "" {
		_, err := store.SetToken(ctx, token, nil)
		require.NoError(t, err)
	}
	return store
}

func TestClient_AttachesHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		assert.Equal(t, "/products", r.URL.Path)
		w.Write([]byte(`[{"id":1}]`))
	}))
	defer srv.Close()

	client := NewClient(config.UpstreamConfig{BaseURL: srv.URL + "/", Timeout: time.Second}, newCreds(t, "store-9", "tok"))
	records, err := NewSet(client).Products.GetAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "Bearer tok", got.Get("Authorization"))
	assert.Equal(t, "store-9", got.Get(RetailerHeader))
}

func TestClient_OmitsAbsentCredentials(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	client := NewClient(config.UpstreamConfig{BaseURL: srv.URL}, newCreds(t, "", ""))
	_, err := NewSet(client).Orders.GetAll(context.Background(), nil)
	require.NoError(t, err)

	assert.Empty(t, got.Get("Authorization"))
	assert.Empty(t, got.Get(RetailerHeader))
}

func TestClient_TransportVersusApplicationErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"code": "BAD_SKU", "message": "sku is invalid"}})
	}))

	client := NewClient(config.UpstreamConfig{BaseURL: srv.URL}, nil)
	_, err := client.Do(context.Background(), http.MethodPost, "/products", nil, map[string]string{"sku": ""})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrApplication))
	assert.False(t, errors.Is(err, apperrors.ErrTransportUnavailable))

	var appErr *apperrors.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.StatusCode)
	assert.Equal(t, "sku is invalid", appErr.Message)
	assert.Equal(t, "BAD_SKU", appErr.Code)

	// Closed server: host unreachable.
	srv.Close()
	_, err = client.Do(context.Background(), http.MethodGet, "/products", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNetworkUnavailable))
	assert.False(t, errors.Is(err, apperrors.ErrApplication))
}

func TestClient_PlainTextErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance window", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(config.UpstreamConfig{BaseURL: srv.URL}, nil).Do(context.Background(), http.MethodGet, "/users", nil, nil)
	var appErr *apperrors.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "maintenance window", appErr.Message)
}

func TestClient_LongErrorBodyTruncatesOnRunes(t *testing.T) {
	body := "x" + strings.Repeat("é", 300)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	_, err := NewClient(config.UpstreamConfig{BaseURL: srv.URL}, nil).Do(context.Background(), http.MethodGet, "/orders", nil, nil)
	var appErr *apperrors.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.True(t, utf8.ValidString(appErr.Message))
	assert.Equal(t, 200, utf8.RuneCountInString(appErr.Message))
	assert.True(t, strings.HasPrefix(body, appErr.Message))
}

func TestClient_NoRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(config.UpstreamConfig{BaseURL: srv.URL}, nil).Do(context.Background(), http.MethodGet, "/orders", nil, nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestResource_QueriesAndSingleObjects(t *testing.T) {
	var lastQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastQuery = r.URL.RawQuery
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/orders/o-1":
			w.Write([]byte(`{"data":{"id":"o-1","total":12}}`))
		case r.Method == http.MethodPatch:
			w.Write([]byte(`{"id":"o-1","status":"fulfilled"}`))
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Write([]byte(`{"items":[{"id":"o-1"}]}`))
		}
	}))
	defer srv.Close()

	set := NewSet(NewClient(config.UpstreamConfig{BaseURL: srv.URL}, nil))
	ctx := context.Background()

	order, err := set.Orders.GetByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, "o-1", order["id"])

	patched, err := set.Orders.Patch(ctx, "o-1", map[string]string{"status": "fulfilled"})
	require.NoError(t, err)
	assert.Equal(t, "fulfilled", patched["status"])

	require.NoError(t, set.Orders.Delete(ctx, "o-1"))

	_, err = set.Orders.ByCustomer(ctx, "c-7")
	require.NoError(t, err)
	assert.Equal(t, "customerId=c-7", lastQuery)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = set.Reconciliation.ByDateRange(ctx, "", from, from.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, "endDate=2026-02-01&startDate=2026-01-01", lastQuery)

	_, err = set.PurchaseOrders.ByStatus(ctx, "open")
	require.NoError(t, err)
	assert.Equal(t, "status=open", lastQuery)
}

func TestSet_FetcherCoversFetchableCollections(t *testing.T) {
	set := NewSet(NewClient(config.UpstreamConfig{BaseURL: "http://upstream.invalid"}, nil))
	for _, c := range models.AllCollections {
		_, ok := set.Fetcher(c)
		assert.Equal(t, !c.Derived(), ok, "collection %s", c)
	}
}
