package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type document struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestStoreRoundTrip(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	want := document{Name: "first", Count: 3}
	require.NoError(t, store.Put(KeyProfile, want))

	var got document
	require.NoError(t, store.Get(KeyProfile, &got))
	assert.Equal(t, want, got)
}

func TestStorePutOverwrites(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(KeyLastLocation, document{Name: "old"}))
	require.NoError(t, store.Put(KeyLastLocation, document{Name: "new", Count: 1}))

	var got document
	require.NoError(t, store.Get(KeyLastLocation, &got))
	assert.Equal(t, "new", got.Name)
	assert.Equal(t, 1, got.Count)
}

func TestStoreGetMissingKey(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	var got document
	err = store.Get(KeyToken, &got)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestStoreDelete(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(KeyToken, "tok"))
	require.NoError(t, store.Delete(KeyToken))

	var got string
	assert.True(t, errors.Is(store.Get(KeyToken, &got), ErrNotFound))

	// deleting again is a no-op
	require.NoError(t, store.Delete(KeyToken))
}

func TestStoreRejectsPathLikeKeys(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "a/b", `a\b`, "with.dot"} {
		err := store.Put(key, document{})
		assert.True(t, errors.Is(err, ErrInvalidKey), "key %q: %v", key, err)
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put(KeyVisits, document{Name: "persisted", Count: 7}))

	reopened, err := Open(dir)
	require.NoError(t, err)

	var got document
	require.NoError(t, reopened.Get(KeyVisits, &got))
	assert.Equal(t, document{Name: "persisted", Count: 7}, got)
}
