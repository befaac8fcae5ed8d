// Package redisstore fronts the revocation table with Redis so the hot path of
// every authenticated request avoids a Postgres round trip.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/snapdocs/internal/domain"
	"github.com/ErlanBelekov/snapdocs/internal/repository"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "snapdocs:revoked:"

func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RevocationCache decorates a RevocationRepository. Postgres stays the source
// of truth; Redis failures are logged and fall through to it.
type RevocationCache struct {
	next   repository.RevocationRepository
	client *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

func NewRevocationCache(next repository.RevocationRepository, client *redis.Client, logger *slog.Logger) *RevocationCache {
	return &RevocationCache{
		next:   next,
		client: client,
		logger: logger.With("component", "revocation_cache"),
		now:    time.Now,
	}
}

func (c *RevocationCache) Revoke(ctx context.Context, t *domain.RevokedToken) error {
	if err := c.next.Revoke(ctx, t); err != nil {
		return err
	}

	ttl := t.ExpiresAt.Sub(c.now())
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, keyPrefix+t.TokenHash, t.UserID, ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache revoked token", "error", err)
	}
	return nil
}

func (c *RevocationCache) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	n, err := c.client.Exists(ctx, keyPrefix+tokenHash).Result()
	switch {
	case err == nil && n > 0:
		return true, nil
	case err != nil && !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "revocation cache lookup", "error", err)
	}
	return c.next.IsRevoked(ctx, tokenHash)
}

// PurgeExpired only touches Postgres; Redis keys expire on their own TTL.
func (c *RevocationCache) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	return c.next.PurgeExpired(ctx, cutoff)
}

// Ping lets the health checker report on Redis.
func (c *RevocationCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
