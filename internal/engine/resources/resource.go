package resources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"retailsync/internal/pkg/payload"
	"retailsync/internal/platform/models"
)

// Resource is the CRUD surface shared by every collection endpoint.
type Resource struct {
	client *Client
	path   string
}

func NewResource(client *Client, path string) *Resource {
	return &Resource{client: client, path: path}
}

func (r *Resource) Path() string { return r.path }

func (r *Resource) GetAll(ctx context.Context, params url.Values) ([]models.Record, error) {
	raw, err := r.client.Do(ctx, http.MethodGet, r.path, params, nil)
	if err != nil {
		return nil, err
	}
	list, err := payload.List(raw)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.path, err)
	}
	return toRecords(list), nil
}

func (r *Resource) GetByID(ctx context.Context, id string) (models.Record, error) {
	return r.one(ctx, http.MethodGet, r.path+"/"+url.PathEscape(id), nil)
}

func (r *Resource) Create(ctx context.Context, body any) (models.Record, error) {
	return r.one(ctx, http.MethodPost, r.path, body)
}

func (r *Resource) Update(ctx context.Context, id string, body any) (models.Record, error) {
	return r.one(ctx, http.MethodPut, r.path+"/"+url.PathEscape(id), body)
}

func (r *Resource) Patch(ctx context.Context, id string, body any) (models.Record, error) {
	return r.one(ctx, http.MethodPatch, r.path+"/"+url.PathEscape(id), body)
}

func (r *Resource) Delete(ctx context.Context, id string) error {
	_, err := r.client.Do(ctx, http.MethodDelete, r.path+"/"+url.PathEscape(id), nil, nil)
	return err
}

// ByDateRange filters on field (the upstream default when empty) between
// from and to, inclusive, as calendar dates.
func (r *Resource) ByDateRange(ctx context.Context, field string, from, to time.Time) ([]models.Record, error) {
	params := url.Values{}
	params.Set("startDate", from.Format(time.DateOnly))
	params.Set("endDate", to.Format(time.DateOnly))
	if field != "" {
		params.Set("dateField", field)
	}
	return r.GetAll(ctx, params)
}

func (r *Resource) ByStatus(ctx context.Context, status string) ([]models.Record, error) {
	return r.GetAll(ctx, url.Values{"status": {status}})
}

func (r *Resource) ByParent(ctx context.Context, param, id string) ([]models.Record, error) {
	return r.GetAll(ctx, url.Values{param: {id}})
}

// one decodes a single-object response, unwrapping {"data":{...}}.
func (r *Resource) one(ctx context.Context, method, path string, body any) (models.Record, error) {
	raw, err := r.client.Do(ctx, method, path, nil, body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return models.Record{}, nil
	}
	v, err := payload.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	obj, ok := v.(payload.Object)
	if !ok {
		return nil, fmt.Errorf("%s %s: expected object, got %T", method, path, v)
	}
	if inner, ok := obj["data"].(payload.Object); ok {
		obj = inner
	}
	return models.Record(obj), nil
}

func toRecords(list []payload.Object) []models.Record {
	out := make([]models.Record, len(list))
	for i, obj := range list {
		out[i] = models.Record(obj)
	}
	return out
}
