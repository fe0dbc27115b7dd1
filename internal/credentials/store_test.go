package credentials

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driver-client/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	return NewStore(db)
}

func TestTokenRoundTrip(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Token()
	assert.True(t, errors.Is(err, ErrNoToken))

	require.NoError(t, store.SaveToken("tok_abc"))
	token, err := store.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok_abc", token)
}

func TestSaveTokenRejectsBlank(t *testing.T) {
	store := newTestStore(t)
	assert.True(t, errors.Is(store.SaveToken("  "), ErrNoToken))
}

func TestProfileRoundTrip(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Profile()
	assert.True(t, errors.Is(err, ErrNoProfile))

	want := Profile{ID: "drv_7", Name: "Asha", Email: "asha@example.com", Role: "driver"}
	require.NoError(t, store.SaveProfile(want))

	got, err := store.Profile()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestClearRemovesBothSlots(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveToken("tok"))
	require.NoError(t, store.SaveProfile(Profile{ID: "drv_7"}))

	require.NoError(t, store.Clear())

	_, err := store.Token()
	assert.True(t, errors.Is(err, ErrNoToken))
	_, err = store.Profile()
	assert.True(t, errors.Is(err, ErrNoProfile))

	// clearing again is a no-op
	require.NoError(t, store.Clear())
}

func TestIdentityFromMintedToken(t *testing.T) {
	store := newTestStore(t)

	token, err := IssueDriverToken("dev-secret", "drv_42", time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.SaveToken(token))

	id, err := store.Identity()
	require.NoError(t, err)
	assert.Equal(t, "drv_42", id.DriverID)
	assert.Equal(t, "driver", id.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), id.ExpiresAt, 5*time.Second)
}

func TestParseIdentityExpired(t *testing.T) {
	token, err := IssueDriverToken("dev-secret", "drv_42", -time.Minute)
	require.NoError(t, err)

	id, err := ParseIdentity(token)
	assert.True(t, errors.Is(err, ErrTokenExpired))
	// identity claims are still surfaced so the caller can log who expired
	assert.Equal(t, "drv_42", id.DriverID)
}

func TestParseIdentityGarbage(t *testing.T) {
	_, err := ParseIdentity("not-a-jwt")
	assert.Error(t, err)
}

func TestIssueDriverTokenPanicsOnEmptySecret(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = IssueDriverToken("   ", "drv_42", time.Hour)
	})
}
