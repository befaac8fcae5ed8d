package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ErlanBelekov/snapdocs/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RevocationRepository struct {
	pool *pgxpool.Pool
}

func NewRevocationRepository(pool *pgxpool.Pool) *RevocationRepository {
	return &RevocationRepository{pool: pool}
}

func (r *RevocationRepository) Revoke(ctx context.Context, t *domain.RevokedToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO revoked_tokens (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO NOTHING`,
		t.TokenHash, t.UserID, t.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *RevocationRepository) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	var revoked bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_hash = $1)`, tokenHash,
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

func (r *RevocationRepository) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
