package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/snapdocs/internal/domain"
)

type RevocationRepository interface {
	// Revoke is idempotent: revoking the same token twice is not an error.
	Revoke(ctx context.Context, t *domain.RevokedToken) error
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
	// PurgeExpired deletes rows whose token expired before cutoff and returns how many went.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int, error)
}
