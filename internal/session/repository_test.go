package session_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/art-gallery/internal/db/dbtest"
	"github.com/vasiliy-maslov/art-gallery/internal/session"
)

func exerciseRepository(t *testing.T, repo session.Repository) {
	t.Helper()
	ctx := context.Background()
	created := time.Now().UTC().Truncate(time.Millisecond)

	admin := &session.Session{
		Token:     "tok-admin-1",
		UserID:    "a-1",
		Role:      session.RoleAdmin,
		UserData:  session.UserData{ID: "a-1", Username: "curator", Role: session.RoleAdmin},
		ExpiresAt: created.Add(time.Hour),
		CreatedAt: created,
	}
	require.NoError(t, repo.Create(ctx, admin))

	got, err := repo.Get(ctx, admin.Token)
	require.NoError(t, err)
	assert.Equal(t, "curator", got.UserData.Username)
	assert.True(t, admin.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, repo.DeleteByUser(ctx, "a-1", session.RoleAdmin))
	_, err = repo.Get(ctx, admin.Token)
	assert.ErrorIs(t, err, session.ErrNoSession)

	user := &session.Session{
		Token:     "tok-user-1",
		UserID:    "u-1",
		Role:      session.RoleUser,
		UserData:  session.UserData{ID: "u-1", Email: "jane@example.com", Role: session.RoleUser},
		ExpiresAt: created.Add(time.Hour),
		CreatedAt: created,
	}
	require.NoError(t, repo.Create(ctx, user))
	require.NoError(t, repo.Delete(ctx, user.Token))
	require.NoError(t, repo.Delete(ctx, user.Token), "deleting twice is fine")
	_, err = repo.Get(ctx, user.Token)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestPostgresRepository(t *testing.T) {
	pool := dbtest.Pool(t)
	dbtest.Truncate(t, pool, "sessions")
	repo := session.NewPostgresRepository(pool)

	exerciseRepository(t, repo)

	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, &session.Session{
		Token: "tok-old", UserID: "u-2", Role: session.RoleUser,
		UserData: session.UserData{ID: "u-2"}, ExpiresAt: past, CreatedAt: past.Add(-time.Hour),
	}))
	n, err := repo.DeleteExpired(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisRepository(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR_TEST")
	if addr == "" {
		t.Skip("REDIS_ADDR_TEST is not set, skipping redis session test")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.FlushDB(context.Background()).Err())

	exerciseRepository(t, session.NewRedisRepository(client))
}
