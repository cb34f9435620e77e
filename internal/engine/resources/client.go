// Package resources talks to the upstream retail back-office API.
package resources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	apperrors "retailsync/internal/pkg/errors"
	"retailsync/internal/pkg/payload"
	"retailsync/internal/platform/config"
	"retailsync/internal/platform/models"
)

const RetailerHeader = "Retailer"

// CredentialSource supplies the store identity and bearer token per request.
type CredentialSource interface {
	Credential(ctx context.Context) (models.Credential, error)
	Token(ctx context.Context) (models.Token, error)
}

// Client is the shared HTTP wrapper behind every resource. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialSource
}

func NewClient(cfg config.UpstreamConfig, creds CredentialSource) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		creds:      creds,
	}
}

// Do issues one request and returns the raw 2xx body.
// Unreachable hosts yield *apperrors.TransportError, non-2xx answers
// *apperrors.ApplicationError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &apperrors.TransportError{Op: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperrors.TransportError{Op: method, URL: target, Err: err}
	}

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("upstream request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, applicationError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// DoJSON is Do followed by decoding into out (skipped when out is nil or
// the body is empty).
func (c *Client) DoJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	raw, err := c.Do(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.creds == nil {
		return nil
	}

	token, err := c.creds.Token(ctx)
	switch {
	case err == nil:
		req.Header.Set("Authorization", "Bearer "+token.Value)
	case errors.Is(err, apperrors.ErrTokenUnavailable):
		// Requests go out unauthenticated; the upstream decides.
	default:
		return fmt.Errorf("load bearer token: %w", err)
	}

	cred, err := c.creds.Credential(ctx)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	if cred.UseRemoteAPI {
		req.Header.Set(RetailerHeader, cred.StoreID)
	}
	return nil
}

func applicationError(status int, body []byte) *apperrors.ApplicationError {
	appErr := &apperrors.ApplicationError{StatusCode: status}

	if v, err := payload.Decode(body); err == nil {
		if obj, ok := v.(payload.Object); ok {
			appErr.Message = payload.FirstPath(obj, "message", "error.message", "error", "detail")
			appErr.Code = payload.FirstPath(obj, "code", "error.code")
		}
	}
	if appErr.Message == "" {
		appErr.Message = truncate(strings.TrimSpace(string(body)), maxMessageRunes)
	}
	if appErr.Message == "" {
		appErr.Message = http.StatusText(status)
	}
	return appErr
}

const maxMessageRunes = 200

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
