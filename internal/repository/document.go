package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/snapdocs/internal/domain"
)

type ListDocumentsInput struct {
	OwnerID    string
	FolderID   string     // empty = all folders
	CursorTime *time.Time // cursor on (created_at DESC, id DESC)
	CursorID   string
	Limit      int
}

type DocumentSort string

const (
	SortByDate DocumentSort = "date"
	SortByName DocumentSort = "name"
	SortBySize DocumentSort = "size"
)

type SearchDocumentsInput struct {
	OwnerID     string
	Query       string   // case-insensitive substring of name, description or tags
	Extensions  []string // lowercase, no dot
	FolderIDs   []string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	MinSize     *int64
	MaxSize     *int64
	SortBy      DocumentSort
	Descending  bool
	Limit       int
	Offset      int
}

// DocumentUpdate carries the mutable fields; nil means unchanged.
type DocumentUpdate struct {
	Name        *string
	Description *string
	Tags        []string // nil = unchanged, empty = clear
	FolderID    *string
}

type DocumentRepository interface {
	Create(ctx context.Context, d *domain.Document) (*domain.Document, error)
	GetByID(ctx context.Context, id, ownerID string) (*domain.Document, error)
	GetByStoredName(ctx context.Context, storedName string) (*domain.Document, error)
	List(ctx context.Context, input ListDocumentsInput) ([]*domain.Document, error)
	Update(ctx context.Context, id, ownerID string, upd DocumentUpdate) (*domain.Document, error)
	Delete(ctx context.Context, id, ownerID string) error
	// SearchByName is the basic search: substring match on the original filename only.
	SearchByName(ctx context.Context, ownerID, query string, limit int) ([]*domain.Document, error)
	// Search returns one page of matches and the total number of matches.
	Search(ctx context.Context, input SearchDocumentsInput) ([]*domain.Document, int, error)
}
