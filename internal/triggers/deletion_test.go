package triggers

import (
	"context"
	"fmt"
	"testing"

	"github.com/buildsite-dev/buildsite/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestDeletionRemovesProfileAndDecrements(t *testing.T) {
	store := newFakeStore()
	pipeline := NewPipeline(store, newFakeClaims(), zaptest.NewLogger(t))

	pipeline.HandleIdentityCreated(context.Background(), events.IdentityCreated{UID: "uid-1", Email: "a@x.com"})
	pipeline.HandleIdentityCreated(context.Background(), events.IdentityCreated{UID: "uid-2", Email: "b@x.com"})
	require.Equal(t, 2, store.userCount())

	pipeline.HandleIdentityDeleted(context.Background(), events.IdentityDeleted{UID: "uid-1"})

	_, ok := store.profile("uid-1")
	assert.False(t, ok)
	assert.Equal(t, 1, store.userCount())
}

func TestDeletionBatchFailureChangesNothing(t *testing.T) {
	store := newFakeStore()
	pipeline := NewPipeline(store, newFakeClaims(), zaptest.NewLogger(t))

	pipeline.HandleIdentityCreated(context.Background(), events.IdentityCreated{UID: "uid-1", Email: "a@x.com"})
	store.failRemove = true

	pipeline.HandleIdentityDeleted(context.Background(), events.IdentityDeleted{UID: "uid-1"})

	_, ok := store.profile("uid-1")
	assert.True(t, ok, "profile must survive a failed batch")
	assert.Equal(t, 1, store.userCount(), "counter must survive a failed batch")
}

func TestCounterMatchesSignupsMinusDeletions(t *testing.T) {
	store := newFakeStore()
	pipeline := NewPipeline(store, newFakeClaims(), zaptest.NewLogger(t))

	const signups = 5
	for i := 0; i < signups; i++ {
		pipeline.HandleIdentityCreated(context.Background(), events.IdentityCreated{
			UID:   fmt.Sprintf("uid-%d", i),
			Email: fmt.Sprintf("u%d@x.com", i),
		})
	}

	for i := 0; i < 3; i++ {
		pipeline.HandleIdentityDeleted(context.Background(), events.IdentityDeleted{
			UID: fmt.Sprintf("uid-%d", i),
		})
	}

	assert.Equal(t, 2, store.userCount())
}

func TestDuplicateDeletionFloorsAtZero(t *testing.T) {
	store := newFakeStore()
	pipeline := NewPipeline(store, newFakeClaims(), zaptest.NewLogger(t))

	pipeline.HandleIdentityCreated(context.Background(), events.IdentityCreated{UID: "uid-1", Email: "a@x.com"})

	// Duplicate delivery of the same deletion event.
	pipeline.HandleIdentityDeleted(context.Background(), events.IdentityDeleted{UID: "uid-1"})
	pipeline.HandleIdentityDeleted(context.Background(), events.IdentityDeleted{UID: "uid-1"})

	assert.Equal(t, 0, store.userCount(), "counter clamps at zero, never negative")
}
