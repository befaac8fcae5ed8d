package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/snapdocs/internal/domain"
)

// UseCase depends on interface, not concrete implementation.
// Emails are passed already normalized; lookups compare case-insensitively anyway.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}
