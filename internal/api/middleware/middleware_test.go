package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apiContext "retailsync/internal/api/context"
	"retailsync/internal/engine/webhooks"
	"retailsync/internal/platform/auth"
	"retailsync/internal/platform/config"
	"retailsync/internal/platform/credentials"
	"retailsync/internal/platform/kvstore"
	"retailsync/internal/platform/models"
)

func TestCredentialMiddleware(t *testing.T) {
	kv := kvstore.New(kvstore.NewMemoryStore())
	store := credentials.NewStore(kv)
	middleware := NewCredentialMiddleware(store)

	t.Run("No Credential", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler := middleware.Handle(func(w http.ResponseWriter, r *http.Request) {
			t.Error("Handler should not be called")
		})
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

		if rr.Code != http.StatusPreconditionFailed {
			t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusPreconditionFailed)
		}
	})

	t.Run("Saved Credential", func(t *testing.T) {
		if _, err := store.SaveCredential(context.Background(), "store-9"); err != nil {
			t.Fatalf("save credential: %v", err)
		}

		rr := httptest.NewRecorder()
		handler := middleware.Handle(func(w http.ResponseWriter, r *http.Request) {
			cred := r.Context().Value(apiContext.Credential).(*models.Credential)
			if cred.StoreID != "store-9" {
				t.Errorf("Expected StoreID store-9, got %s", cred.StoreID)
			}
			w.WriteHeader(http.StatusOK)
		})
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

		if rr.Code != http.StatusOK {
			t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
		}
	})
}

func TestAuthMiddleware(t *testing.T) {
	tokens := auth.NewTokenService(config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Hour})
	token, _, err := tokens.GenerateAccessToken("admin", auth.RoleAdmin)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	middleware := NewAuthMiddleware(tokens)

	ok := func(w http.ResponseWriter, r *http.Request) {
		claims := r.Context().Value(apiContext.Claims).(*auth.Claims)
		if claims.Username != "admin" {
			t.Errorf("Expected username admin, got %s", claims.Username)
		}
		w.WriteHeader(http.StatusOK)
	}

	tests := []struct {
		name   string
		header string
		target string
		want   int
	}{
		{"header", "Bearer " + token, "/", http.StatusOK},
		{"query fallback", "", "/?access_token=" + token, http.StatusOK},
		{"missing", "", "/", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, "/", http.StatusUnauthorized},
		{"garbage", "Bearer nope", "/", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			middleware.Handle(ok).ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestRateLimiter_Limit(t *testing.T) {
	rl := NewRateLimiter()
	defer rl.Stop()
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	handler := rl.Limit("ingest", 2)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	hit := func(addr string) int {
		req := httptest.NewRequest("POST", "/webhooks/incoming", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := hit("10.0.0.1:5000"); code != http.StatusOK {
			t.Fatalf("request %d: got %d", i, code)
		}
	}
	if code := hit("10.0.0.1:5001"); code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 once the bucket is empty, got %d", code)
	}
	if code := hit("10.0.0.2:5000"); code != http.StatusOK {
		t.Errorf("Expected a separate bucket per IP, got %d", code)
	}

	now = now.Add(30 * time.Second)
	if code := hit("10.0.0.1:5000"); code != http.StatusOK {
		t.Errorf("Expected refill after 30s, got %d", code)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter()
	defer rl.Stop()

	handler := rl.Limit("ingest", 0)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	for i := 0; i < 50; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("POST", "/", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d limited with limit disabled", i)
		}
	}
}

func TestSignatureMiddleware(t *testing.T) {
	body := `{"event":"order.created","data":{"id":1}}`
	secret := "shh"

	echo := func(w http.ResponseWriter, r *http.Request) {
		got, _ := io.ReadAll(r.Body)
		if string(got) != body {
			t.Errorf("body not preserved: %s", got)
		}
		w.WriteHeader(http.StatusOK)
	}

	tests := []struct {
		name      string
		secret    string
		signature string
		want      int
	}{
		{"valid", secret, webhooks.Sign(secret, []byte(body)), http.StatusOK},
		{"prefixed", secret, "sha256=" + webhooks.Sign(secret, []byte(body)), http.StatusOK},
		{"wrong", secret, webhooks.Sign("other", []byte(body)), http.StatusUnauthorized},
		{"missing", secret, "", http.StatusUnauthorized},
		{"no secret configured", "", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewSignatureMiddleware(func(context.Context) (string, error) { return tt.secret, nil }, "")
			req := httptest.NewRequest("POST", "/webhooks/incoming", strings.NewReader(body))
			if tt.signature != "" {
				req.Header.Set("X-Webhook-Signature", tt.signature)
			}
			rr := httptest.NewRecorder()
			m.Handle(echo).ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}
