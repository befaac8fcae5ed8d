package redisstore_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ErlanBelekov/snapdocs/internal/domain"
	"github.com/ErlanBelekov/snapdocs/internal/infrastructure/redisstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRevocations struct {
	revoked map[string]bool
	purged  time.Time
	err     error
}

func (f *fakeRevocations) Revoke(_ context.Context, t *domain.RevokedToken) error {
	if f.err != nil {
		return f.err
	}
	f.revoked[t.TokenHash] = true
	return nil
}

func (f *fakeRevocations) IsRevoked(_ context.Context, hash string) (bool, error) {
	return f.revoked[hash], f.err
}

func (f *fakeRevocations) PurgeExpired(_ context.Context, cutoff time.Time) (int, error) {
	f.purged = cutoff
	return 3, f.err
}

// unreachableClient points at a port nothing listens on, so every command fails fast.
func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	c := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRevocationCache_RedisDown_FallsBackToRepository(t *testing.T) {
	repo := &fakeRevocations{revoked: map[string]bool{}}
	cache := redisstore.NewRevocationCache(repo, unreachableClient(t), slog.Default())
	ctx := context.Background()

	err := cache.Revoke(ctx, &domain.RevokedToken{
		TokenHash: "abc",
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err, "redis failure must not fail the revocation")

	revoked, err := cache.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = cache.IsRevoked(ctx, "other")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevocationCache_RepositoryErrorPropagates(t *testing.T) {
	repoErr := errors.New("db down")
	repo := &fakeRevocations{revoked: map[string]bool{}, err: repoErr}
	cache := redisstore.NewRevocationCache(repo, unreachableClient(t), slog.Default())

	err := cache.Revoke(context.Background(), &domain.RevokedToken{TokenHash: "abc", ExpiresAt: time.Now().Add(time.Hour)})
	assert.ErrorIs(t, err, repoErr)

	_, err = cache.IsRevoked(context.Background(), "abc")
	assert.ErrorIs(t, err, repoErr)
}

func TestRevocationCache_PurgeDelegates(t *testing.T) {
	repo := &fakeRevocations{revoked: map[string]bool{}}
	cache := redisstore.NewRevocationCache(repo, unreachableClient(t), slog.Default())
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	n, err := cache.PurgeExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, repo.purged.Equal(cutoff))
}

func TestRevocationCache_PingReportsRedisDown(t *testing.T) {
	cache := redisstore.NewRevocationCache(&fakeRevocations{}, unreachableClient(t), slog.Default())
	assert.Error(t, cache.Ping(context.Background()))
}
