package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	apperrors "retailsync/internal/pkg/errors"
	"retailsync/internal/pkg/payload"
	"retailsync/internal/platform/audit"
	"retailsync/internal/platform/kvstore"
	"retailsync/internal/platform/models"
	"retailsync/internal/platform/notify"
)

// Pipeline ingests pushed platform events into the local collections.
type Pipeline struct {
	kv       *kvstore.KV
	audit    *audit.Logger
	metadata *audit.Metadata
	notify   notify.Publisher
	now      func() time.Time
}

func NewPipeline(kv *kvstore.KV, logger *audit.Logger, metadata *audit.Metadata, pub notify.Publisher) *Pipeline {
	if pub == nil {
		pub = notify.Discard{}
	}
	return &Pipeline{kv: kv, audit: logger, metadata: metadata, notify: pub, now: time.Now}
}

// Process handles one event body. It never fails: problems are reported
// through the result and a warn audit entry.
func (p *Pipeline) Process(ctx context.Context, body []byte) models.IngestResult {
	return p.process(ctx, body, "")
}

// ProcessWithHint is Process with an event name taken from transport
// metadata (e.g. an X-Event-Type header), used when the body carries none.
func (p *Pipeline) ProcessWithHint(ctx context.Context, body []byte, eventHint string) models.IngestResult {
	return p.process(ctx, body, eventHint)
}

// Simulate dry-runs an operator-supplied payload through the same path.
func (p *Pipeline) Simulate(ctx context.Context, body []byte) models.IngestResult {
	return p.Process(ctx, body)
}

func (p *Pipeline) process(ctx context.Context, body []byte, eventHint string) models.IngestResult {
	v, err := payload.Decode(body)
	if err != nil {
		return p.finish(ctx, models.IngestResult{Message: fmt.Sprintf("Malformed payload: %v", err)}, 0)
	}

	eventKey, event := eventName(v, eventHint)
	result := models.IngestResult{Event: event}
	if event == "" {
		result.Message = fmt.Sprintf("%s: no event name in payload", apperrors.ErrUnrecognizedEvent)
		return p.finish(ctx, result, 0)
	}

	collection, ok := ResolveCollection(event)
	if !ok {
		result.Message = fmt.Sprintf("%s: %q", apperrors.ErrUnrecognizedEvent, event)
		return p.finish(ctx, result, 0)
	}
	result.Collection = collection

	// Only the field that named the event is envelope; a "name" or "type"
	// further down the list may be record data.
	records, shape := payload.Records(v, eventKey)
	if len(records) == 0 {
		result.Message = fmt.Sprintf("No records found in %s payload", event)
		return p.finish(ctx, result, 0)
	}

	stats, total, err := p.store(ctx, collection, records)
	if err != nil {
		log.Error().Err(err).Str("collection", string(collection)).Msg("failed to store webhook records")
		result.Message = fmt.Sprintf("Failed to store %s: %v", collection, err)
		return p.finish(ctx, result, 0)
	}

	result.Success = true
	result.Processed = len(records)
	result.Inserted = stats.Inserted
	result.Updated = stats.Updated
	result.Message = fmt.Sprintf("Processed %d %s record(s) from %s (%d new, %d updated)",
		len(records), collection, event, stats.Inserted, stats.Updated)

	log.Debug().Str("event", event).Str("shape", string(shape)).Int("records", len(records)).Msg("webhook event ingested")
	return p.finish(ctx, result, total)
}

// store runs the upsert as one read-modify-write on the collection key.
func (p *Pipeline) store(ctx context.Context, c models.Collection, incoming []payload.Object) (upsertStats, int, error) {
	var (
		stats upsertStats
		total int
	)
	err := p.kv.Update(ctx, c.Key(), func(current []byte) ([]byte, error) {
		existing, err := decodeRecords(current)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", c.Key(), err)
		}
		merged, s := upsert(c, existing, incoming, p.now())
		stats, total = s, len(merged)
		return json.Marshal(merged)
	})
	return stats, total, err
}

// finish applies the bookkeeping every event gets, then the success-only
// side effects.
func (p *Pipeline) finish(ctx context.Context, result models.IngestResult, total int) models.IngestResult {
	name := result.Event
	if name == "" {
		name = "unknown"
	}
	if _, err := p.metadata.RecordEvent(ctx, name); err != nil {
		log.Error().Err(err).Msg("failed to update webhook metadata")
	}

	data := map[string]interface{}{
		"event":     name,
		"success":   result.Success,
		"processed": result.Processed,
	}
	if result.Collection != "" {
		data["collection"] = string(result.Collection)
	}

	if !result.Success {
		p.audit.Warn(ctx, models.ActionIncomingEvent, result.Message, data)
		return result
	}
	p.audit.Info(ctx, models.ActionIncomingEvent, result.Message, data)

	if err := p.kv.Set(ctx, models.KeyFallbackDataDisabled, []byte("true")); err != nil {
		log.Error().Err(err).Msg("failed to disable fallback data")
	}
	p.notify.Publish(notify.Change{
		Source:     notify.SourceWebhook,
		Collection: result.Collection,
		Event:      result.Event,
		Count:      total,
		At:         p.now().UTC(),
	})
	return result
}

// eventName returns the body field the name came from ("" for the hint)
// and the normalized name.
func eventName(v any, hint string) (string, string) {
	if obj, ok := v.(payload.Object); ok {
		if key, name := payload.FirstString(obj, EventFields...); name != "" {
			return key, NormalizeEventName(name)
		}
	}
	return "", NormalizeEventName(hint)
}

func decodeRecords(raw []byte) ([]models.Record, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var records []models.Record
	if err := dec.Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}
