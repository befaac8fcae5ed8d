package repository

import (
	"context"

	"github.com/ErlanBelekov/snapdocs/internal/domain"
)

type FolderUpdate struct {
	Name        *string
	Description *string
	Color       *string
	Icon        *string
}

type FolderRepository interface {
	// EnsureDefault creates the default folder if missing and returns it.
	EnsureDefault(ctx context.Context, f *domain.Folder) (*domain.Folder, error)
	GetDefault(ctx context.Context) (*domain.Folder, error)
	Create(ctx context.Context, f *domain.Folder) (*domain.Folder, error)
	GetByID(ctx context.Context, id string) (*domain.Folder, error)
	GetByName(ctx context.Context, name string) (*domain.Folder, error)
	// List returns every folder, default first, with DocumentCount scoped to ownerID.
	List(ctx context.Context, ownerID string) ([]*domain.Folder, error)
	Update(ctx context.Context, id string, upd FolderUpdate) (*domain.Folder, error)
	// DeleteAndReassign moves the folder's documents into targetID and deletes
	// the folder in one transaction. Returns how many documents moved.
	DeleteAndReassign(ctx context.Context, id, targetID string) (int, error)
}
