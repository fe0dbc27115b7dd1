package visitstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driver-client/internal/common/logger"
	"driver-client/internal/storage"
)

func newTestStore(t *testing.T) (*Store, *storage.Store) {
	t.Helper()
	db, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	return New(db, logger.NewWithOutput("test", io.Discard)), db
}

func TestMarkVisitedFirstWriteWins(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	store.Load(ctx, "ride_001")

	first, created, err := store.MarkVisited(ctx, "ride_001", 0, 1700000000000)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1700000000000), first.VisitedAtMs)

	second, created, err := store.MarkVisited(ctx, "ride_001", 0, 1700000099999)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second, "re-mark must return the original record unchanged")

	visits := store.Get("ride_001")
	require.Len(t, visits, 1)
	assert.Equal(t, first, visits[0])
}

func TestMarkVisitedRejectsBadInput(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	store.Load(ctx, "ride_001")

	_, _, err := store.MarkVisited(ctx, "ride_001", -1, 1700000000000)
	assert.Error(t, err)
	_, _, err = store.MarkVisited(ctx, "ride_001", 0, 0)
	assert.Error(t, err)
	assert.Empty(t, store.Get("ride_001"))
}

func TestGetForOtherRideIsEmpty(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	store.Load(ctx, "ride_001")
	_, _, err := store.MarkVisited(ctx, "ride_001", 0, 1700000000000)
	require.NoError(t, err)

	assert.Empty(t, store.Get("ride_002"))
	assert.Len(t, store.Get("ride_001"), 1)
}

func TestLoadRecoversPersistedVisitsAfterRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := storage.Open(dir)
	require.NoError(t, err)
	store := New(db, logger.NewWithOutput("test", io.Discard))
	store.Load(ctx, "ride_001")
	_, _, err = store.MarkVisited(ctx, "ride_001", 0, 1700000000000)
	require.NoError(t, err)
	_, _, err = store.MarkVisited(ctx, "ride_001", 2, 1700000005000)
	require.NoError(t, err)

	// simulate an app restart over the same data dir
	db2, err := storage.Open(dir)
	require.NoError(t, err)
	recovered := New(db2, logger.NewWithOutput("test", io.Discard))
	recovered.Load(ctx, "ride_001")

	visits := recovered.Get("ride_001")
	require.Len(t, visits, 2)
	assert.Equal(t, int64(1700000000000), visits[0].VisitedAtMs)
	assert.Equal(t, int64(1700000005000), visits[2].VisitedAtMs)
}

func TestLoadDiscardsSlotFromAnotherRide(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	store.Load(ctx, "ride_001")
	_, _, err := store.MarkVisited(ctx, "ride_001", 0, 1700000000000)
	require.NoError(t, err)

	store.Load(ctx, "ride_002")
	assert.Empty(t, store.Get("ride_002"))
	assert.Empty(t, store.Get("ride_001"), "old ride's visits are gone after adopting a new ride")
}

func TestClearWipesMemoryAndDisk(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	store.Load(ctx, "ride_001")
	_, _, err := store.MarkVisited(ctx, "ride_001", 1, 1700000000000)
	require.NoError(t, err)

	store.Clear(ctx, "ride_001")
	assert.Empty(t, store.Get("ride_001"))

	var doc map[string]any
	assert.ErrorIs(t, db.Get(storage.KeyVisits, &doc), storage.ErrNotFound)
}

func TestMarkVisitedOnUnloadedRideStartsFreshSet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	store.Load(ctx, "ride_001")
	_, _, err := store.MarkVisited(ctx, "ride_001", 0, 1700000000000)
	require.NoError(t, err)

	record, created, err := store.MarkVisited(ctx, "ride_002", 0, 1700000009999)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "ride_002", record.RideID)
	assert.Empty(t, store.Get("ride_001"))
}
