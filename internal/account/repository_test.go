package account_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/art-gallery/internal/account"
	"github.com/vasiliy-maslov/art-gallery/internal/db/dbtest"
)

func TestAccountRepository_Users(t *testing.T) {
	pool := dbtest.Pool(t)
	dbtest.Truncate(t, pool, "users")
	repo := account.NewRepository(pool)
	ctx := context.Background()

	u := &account.User{Name: "Jane", Email: "jane@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.CreateUser(ctx, u))
	assert.NotEqual(t, uuid.Nil, u.ID)

	err := repo.CreateUser(ctx, &account.User{Name: "Other", Email: "jane@example.com", PasswordHash: "hash"})
	assert.ErrorIs(t, err, account.ErrEmailExists)

	got, err := repo.GetUserByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestAccountRepository_Admins(t *testing.T) {
	pool := dbtest.Pool(t)
	dbtest.Truncate(t, pool, "admins")
	repo := account.NewRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.CreateAdmin(ctx, &account.Admin{Username: "curator", PasswordHash: "hash"}))
	assert.ErrorIs(t, repo.CreateAdmin(ctx, &account.Admin{Username: "curator", PasswordHash: "hash"}), account.ErrUsernameExists)

	got, err := repo.GetAdminByUsername(ctx, "curator")
	require.NoError(t, err)
	assert.Equal(t, "curator", got.Username)
}
