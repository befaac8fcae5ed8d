package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/ErlanBelekov/snapdocs/internal/domain"
	"github.com/ErlanBelekov/snapdocs/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

const folderColumns = `id, name, description, color, icon, is_default, created_at, updated_at`

type FolderRepository struct {
	pool *pgxpool.Pool
}

func NewFolderRepository(pool *pgxpool.Pool) *FolderRepository {
	return &FolderRepository{pool: pool}
}

func (r *FolderRepository) EnsureDefault(ctx context.Context, f *domain.Folder) (*domain.Folder, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO folders (name, description, color, icon, is_default)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT DO NOTHING`,
		f.Name, f.Description, f.Color, f.Icon,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure default folder: %w", err)
	}
	return r.GetDefault(ctx)
}

func (r *FolderRepository) GetDefault(ctx context.Context) (*domain.Folder, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+folderColumns+` FROM folders WHERE is_default`)
	return scanFolder(row)
}

func (r *FolderRepository) Create(ctx context.Context, f *domain.Folder) (*domain.Folder, error) {
	query := `
		INSERT INTO folders (name, description, color, icon)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + folderColumns

	created, err := scanFolder(r.pool.QueryRow(ctx, query, f.Name, f.Description, f.Color, f.Icon))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrFolderNameConflict
		}
		return nil, err
	}
	return created, nil
}

func (r *FolderRepository) GetByID(ctx context.Context, id string) (*domain.Folder, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+folderColumns+` FROM folders WHERE id = $1`, id)
	return scanFolder(row)
}

func (r *FolderRepository) GetByName(ctx context.Context, name string) (*domain.Folder, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+folderColumns+` FROM folders WHERE LOWER(name) = LOWER($1)`, name)
	return scanFolder(row)
}

func (r *FolderRepository) List(ctx context.Context, ownerID string) ([]*domain.Folder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT f.id, f.name, f.description, f.color, f.icon, f.is_default,
		       f.created_at, f.updated_at, COUNT(d.id)
		FROM folders f
		LEFT JOIN documents d ON d.folder_id = f.id AND d.owner_id = $1
		GROUP BY f.id
		ORDER BY f.is_default DESC, LOWER(f.name) ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	var folders []*domain.Folder
	for rows.Next() {
		var f domain.Folder
		if err := rows.Scan(
			&f.ID, &f.Name, &f.Description, &f.Color, &f.Icon, &f.IsDefault,
			&f.CreatedAt, &f.UpdatedAt, &f.DocumentCount,
		); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	return folders, nil
}

func (r *FolderRepository) Update(ctx context.Context, id string, upd repository.FolderUpdate) (*domain.Folder, error) {
	args := []any{id}
	set := []string{"updated_at = NOW()"}

	if upd.Name != nil {
		args = append(args, *upd.Name)
		set = append(set, fmt.Sprintf("name = $%d", len(args)))
	}
	if upd.Description != nil {
		args = append(args, *upd.Description)
		set = append(set, fmt.Sprintf("description = $%d", len(args)))
	}
	if upd.Color != nil {
		args = append(args, *upd.Color)
		set = append(set, fmt.Sprintf("color = $%d", len(args)))
	}
	if upd.Icon != nil {
		args = append(args, *upd.Icon)
		set = append(set, fmt.Sprintf("icon = $%d", len(args)))
	}

	query := fmt.Sprintf(`UPDATE folders SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(set, ", "), folderColumns)

	updated, err := scanFolder(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrFolderNameConflict
		}
		return nil, err
	}
	return updated, nil
}

// DeleteAndReassign runs in one transaction so no document is ever left
// pointing at a folder that no longer exists.
func (r *FolderRepository) DeleteAndReassign(ctx context.Context, id, targetID string) (moved int, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx,
		`UPDATE documents SET folder_id = $2, updated_at = NOW() WHERE folder_id = $1`, id, targetID)
	if err != nil {
		return 0, fmt.Errorf("reassign documents: %w", err)
	}
	moved = int(tag.RowsAffected())

	tag, err = tx.Exec(ctx, `DELETE FROM folders WHERE id = $1 AND NOT is_default`, id)
	if err != nil {
		return 0, fmt.Errorf("delete folder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err = domain.ErrFolderNotFound
		return 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return moved, nil
}

func scanFolder(row rowScanner) (*domain.Folder, error) {
	var f domain.Folder
	err := row.Scan(&f.ID, &f.Name, &f.Description, &f.Color, &f.Icon, &f.IsDefault, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrFolderNotFound
		}
		return nil, fmt.Errorf("scan folder: %w", err)
	}
	return &f, nil
}
