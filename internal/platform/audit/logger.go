package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"retailsync/internal/platform/kvstore"
	"retailsync/internal/platform/models"
)

// MaxEntries bounds the persisted webhook audit log.
const MaxEntries = 200

// Logger keeps the newest-first webhook audit trail under webhook:logs.
type Logger struct {
	kv  *kvstore.KV
	now func() time.Time
}

func NewLogger(kv *kvstore.KV) *Logger {
	return &Logger{kv: kv, now: time.Now}
}

// Log appends an entry and mirrors it to the process log. Storage failures are
// logged, never returned: losing an audit line must not fail the operation.
func (l *Logger) Log(ctx context.Context, level models.AuditLevel, action models.AuditAction, message string, data map[string]interface{}) models.AuditEntry {
	entry := models.AuditEntry{
		ID:        "audit_" + uuid.New().String(),
		Timestamp: l.now().UTC(),
		Level:     level,
		Action:    action,
		Message:   message,
		Data:      data,
	}

	event := log.Info()
	if level == models.LevelWarn {
		event = log.Warn()
	}
	event.Str("action", string(action)).Interface("data", data).Msg(message)

	if err := l.Append(ctx, entry); err != nil {
		log.Error().Err(err).Str("action", string(action)).Msg("failed to persist audit entry")
	}
	return entry
}

func (l *Logger) Info(ctx context.Context, action models.AuditAction, message string, data map[string]interface{}) {
	l.Log(ctx, models.LevelInfo, action, message, data)
}

func (l *Logger) Warn(ctx context.Context, action models.AuditAction, message string, data map[string]interface{}) {
	l.Log(ctx, models.LevelWarn, action, message, data)
}

// Append prepends entry and truncates the log to MaxEntries.
func (l *Logger) Append(ctx context.Context, entry models.AuditEntry) error {
	_, err := kvstore.UpdateJSON(ctx, l.kv, models.KeyWebhookLogs, func(entries *[]models.AuditEntry) error {
		next := make([]models.AuditEntry, 0, len(*entries)+1)
		next = append(next, entry)
		next = append(next, *entries...)
		if len(next) > MaxEntries {
			next = next[:MaxEntries]
		}
		*entries = next
		return nil
	})
	return err
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (l *Logger) List(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	if _, err := l.kv.GetJSON(ctx, models.KeyWebhookLogs, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (l *Logger) Clear(ctx context.Context) error {
	return l.kv.Delete(ctx, models.KeyWebhookLogs)
}
