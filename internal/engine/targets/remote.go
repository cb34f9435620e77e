package targets

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	apperrors "retailsync/internal/pkg/errors"
	"retailsync/internal/platform/models"
)

const PushFormatVersion = "1.0"

type pushClient interface {
	DoJSON(ctx context.Context, method, path string, query url.Values, body, out any) error
}

type credentialReader interface {
	Credential(ctx context.Context) (models.Credential, error)
}

// RemotePush posts the whole snapshot to the upstream sync endpoint in one request.
type RemotePush struct {
	client pushClient
	creds  credentialReader
	path   string
	now    func() time.Time
}

func NewRemotePush(client pushClient, creds credentialReader, syncPath string) *RemotePush {
	if syncPath == "" {
		syncPath = "/sync"
	}
	return &RemotePush{client: client, creds: creds, path: syncPath, now: time.Now}
}

func (t *RemotePush) Method() models.SyncMethod { return models.MethodRemoteAPI }

type pushRequest struct {
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Retailer  string          `json:"retailer"`
	Data      models.Snapshot `json:"data"`
}

func (t *RemotePush) Apply(ctx context.Context, snap models.Snapshot, opts Options) (models.SyncResult, error) {
	cred, err := t.creds.Credential(ctx)
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("load credential: %w", err)
	}
	if cred.StoreID == "" {
		return models.SyncResult{}, apperrors.Validation("storeId", "is required for remote push; save a credential first")
	}

	req := pushRequest{
		Version:   PushFormatVersion,
		Timestamp: t.now().UTC(),
		Retailer:  cred.StoreID,
		Data:      snap,
	}
	var resp map[string]any
	if err := t.client.DoJSON(ctx, http.MethodPost, t.path, nil, req, &resp); err != nil {
		return models.SyncResult{}, fmt.Errorf("push snapshot: %w", err)
	}

	collections := snap.Collections()
	opts.report(len(collections), len(collections), "", snap.Total())
	log.Info().Str("retailer", cred.StoreID).Int("records", snap.Total()).Msg("snapshot pushed upstream")

	details := map[string]interface{}{"endpoint": t.path}
	if len(resp) > 0 {
		details["response"] = resp
	}
	return models.SyncResult{
		Success: true,
		Method:  models.MethodRemoteAPI,
		Message: fmt.Sprintf("Pushed %d records in %d collections", snap.Total(), len(collections)),
		Details: details,
	}, nil
}
