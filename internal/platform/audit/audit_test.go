package audit

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"retailsync/internal/platform/kvstore"
	"retailsync/internal/platform/models"
)

func TestLogger_BoundedNewestFirst(t *testing.T) {
	ctx := context.Background()
	l := NewLogger(kvstore.New(kvstore.NewMemoryStore()))

	for i := 0; i < 250; i++ {
		l.Info(ctx, models.ActionIncomingEvent, fmt.Sprintf("event %d", i), nil)
	}

	entries, err := l.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, MaxEntries)
	assert.Equal(t, "event 249", entries[0].Message)
	assert.Equal(t, "event 50", entries[MaxEntries-1].Message)
	assert.NotEmpty(t, entries[0].ID)

	limited, err := l.List(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, limited, 5)
}

func TestLogger_ClearAndEmpty(t *testing.T) {
	ctx := context.Background()
	l := NewLogger(kvstore.New(kvstore.NewMemoryStore()))

	entries, err := l.List(ctx, 0)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	l.Warn(ctx, models.ActionRegister, "registration failed", map[string]interface{}{"status": 500})
	entries, err = l.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.LevelWarn, entries[0].Level)

	require.NoError(t, l.Clear(ctx))
	entries, err = l.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMetadata_ConcurrentEventsAreCounted(t *testing.T) {
	ctx := context.Background()
	m := NewMetadata(kvstore.New(kvstore.NewMemoryStore()))

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.RecordEvent(ctx, "order.created")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	meta, err := m.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(40), meta.TotalEvents)
	assert.Equal(t, "order.created", meta.LastEventName)
	assert.NotNil(t, meta.LastEventAt)

	meta, err = m.RecordRegistration(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", meta.RegisteredBy)
	assert.Equal(t, int64(40), meta.TotalEvents)
}
