package notify

import (
	"testing"
	"time"

	"github.com/grcwatch/notify-engine/internal/datastore/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactDirectory_CachesUsers(t *testing.T) {
	store := newFakeStore()
	store.addUser("u1", "Ana", "ana@example.com", "")
	dir := NewContactDirectory(store, time.Minute)

	u, err := dir.User(t.Context(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)

	u.Email = "mutated@example.com"
	store.users["u1"].Email = "changed@example.com"

	again, err := dir.User(t.Context(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", again.Email, "served from cache and isolated from caller mutation")

	dir.Flush()
	again, err = dir.User(t.Context(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "changed@example.com", again.Email)
}

func TestContactDirectory_NoCacheAndMisses(t *testing.T) {
	store := newFakeStore()
	store.addUser("u1", "Ana", "ana@example.com", "")
	dir := NewContactDirectory(store, 0)

	store.users["u1"].Email = "new@example.com"
	u, err := dir.User(t.Context(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", u.Email)

	_, err = dir.User(t.Context(), "ghost")
	require.ErrorIs(t, err, repository.ErrUserNotFound)

	byName, err := dir.UserByName(t.Context(), "Ana")
	require.NoError(t, err)
	assert.Equal(t, "u1", byName.ID)
}
