// Package targets holds the sync destinations a snapshot can be dispatched to.
package targets

import (
	"context"
	"math"

	"retailsync/internal/platform/models"
)

// Target applies one snapshot. A returned error is a dispatch failure; a
// result with Success=false and a nil error is a handled partial failure.
type Target interface {
	Method() models.SyncMethod
	Apply(ctx context.Context, snap models.Snapshot, opts Options) (models.SyncResult, error)
}

type Options struct {
	// Format overrides the export format (xlsx or json).
	Format   string
	Progress func(models.Progress)
}

func (o Options) report(step, total int, c models.Collection, count int) {
	if o.Progress == nil {
		return
	}
	o.Progress(models.Progress{
		Step:       step,
		Total:      total,
		Collection: c,
		Count:      count,
		Percentage: Percentage(step, total),
	})
}

// Percentage is round(step/total*100).
func Percentage(step, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(step) / float64(total) * 100))
}
