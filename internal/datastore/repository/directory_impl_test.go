package repository

import (
	"testing"

	"github.com/grcwatch/notify-engine/internal/datastore/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryRepository_Users(t *testing.T) {
	repo := NewDirectoryRepository(setupTestDB(t))
	ctx := t.Context()

	boss := "u2"
	require.NoError(t, repo.CreateUser(ctx, &entities.User{ID: "u1", Name: "Ana Pérez", Email: "ana@x.com", SupervisorID: &boss, Active: true}))
	require.NoError(t, repo.CreateUser(ctx, &entities.User{ID: "u2", Name: "Luis Gómez", Active: true}))

	u, err := repo.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "ana@x.com", u.Email)
	require.NotNil(t, u.SupervisorID)
	assert.Equal(t, "u2", *u.SupervisorID)

	byName, err := repo.FindUserByName(ctx, "Luis Gómez")
	require.NoError(t, err)
	assert.Equal(t, "u2", byName.ID)

	_, err = repo.GetUser(ctx, "nobody")
	require.ErrorIs(t, err, ErrUserNotFound)
	_, err = repo.FindUserByName(ctx, "Nadie")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestDirectoryRepository_RoleMembers(t *testing.T) {
	repo := NewDirectoryRepository(setupTestDB(t))
	ctx := t.Context()

	require.NoError(t, repo.AddRoleMember(ctx, "auditor", "u1"))
	require.NoError(t, repo.AddRoleMember(ctx, "auditor", "u2"))
	require.NoError(t, repo.AddRoleMember(ctx, "owner", "u2"))
	require.NoError(t, repo.AddRoleMember(ctx, "owner", "u2"), "duplicate membership is ignored")
	require.NoError(t, repo.AddRoleMember(ctx, "viewer", "u3"))

	ids, err := repo.ListUserIDsByRoles(ctx, []string{"auditor", "owner"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2"}, ids)

	ids, err = repo.ListUserIDsByRoles(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
