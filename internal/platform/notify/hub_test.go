package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"retailsync/internal/platform/models"
)

func TestHub_FanOut(t *testing.T) {
	hub := NewHub()
	a, cancelA := hub.Subscribe()
	b, cancelB := hub.Subscribe()
	defer cancelB()

	hub.Publish(Change{Source: SourceWebhook, Collection: models.Orders, Count: 1})

	gotA := <-a
	gotB := <-b
	assert.Equal(t, models.Orders, gotA.Collection)
	assert.Equal(t, models.Orders, gotB.Collection)
	assert.False(t, gotA.At.IsZero())

	cancelA()
	cancelA()
	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, 1, hub.Subscribers())
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		hub.Publish(Change{Source: SourceSync, Collection: models.Products, Count: i})
	}

	require.Len(t, ch, subscriberBuffer)
	first := <-ch
	assert.Equal(t, 0, first.Count)
}
