// Package workers holds background jobs that run outside request handling.
package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"retailsync/internal/engine/syncer"
	"retailsync/internal/platform/config"
	"retailsync/internal/platform/models"
)

type Syncer interface {
	SyncAll(ctx context.Context, cfg syncer.SyncConfig) models.SyncResult
}

// ScheduledSyncConfig is the run a scheduled sync performs.
func ScheduledSyncConfig(cfg config.SyncConfig) syncer.SyncConfig {
	return syncer.SyncConfig{
		Method:       models.SyncMethod(cfg.DefaultMethod),
		DataTypes:    models.ParseCollections(cfg.DataTypes),
		Source:       syncer.SourceRemote,
		RegisteredBy: "scheduler",
	}
}

// RunSync performs one sync and logs its outcome.
func RunSync(ctx context.Context, s Syncer, cfg syncer.SyncConfig) models.SyncResult {
	start := time.Now()
	result := s.SyncAll(ctx, cfg)

	event := log.Info()
	if !result.Success {
		event = log.Warn().Str("error", result.Error).Interface("details", result.Details)
	}
	event.Str("method", string(result.Method)).
		Interface("summary", result.DataSummary).
		Dur("took", time.Since(start)).
		Msg("scheduled sync finished")
	return result
}

// RunScheduledSync syncs immediately and then every interval until ctx is
// done. A non-positive interval runs exactly once. A failed run is not
// retried; the next tick is the next attempt.
func RunScheduledSync(ctx context.Context, s Syncer, cfg syncer.SyncConfig, interval time.Duration) {
	RunSync(ctx, s, cfg)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("sync scheduler started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("sync scheduler stopped")
			return
		case <-ticker.C:
			RunSync(ctx, s, cfg)
		}
	}
}
