package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/ErlanBelekov/snapdocs/internal/domain"
	"github.com/ErlanBelekov/snapdocs/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentColumns = `id, owner_id, folder_id, name, stored_name, description, tags,
	size_bytes, mime_type, extension, document_type, created_at, updated_at`

type DocumentRepository struct {
	pool *pgxpool.Pool
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) (*domain.Document, error) {
	query := `
		INSERT INTO documents (
			owner_id, folder_id, name, stored_name, description, tags,
			size_bytes, mime_type, extension, document_type
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + documentColumns

	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}

	row := r.pool.QueryRow(ctx, query,
		d.OwnerID, d.FolderID, d.Name, d.StoredName, d.Description, tags,
		d.SizeBytes, d.MimeType, d.Extension, d.DocumentType,
	)
	created, err := scanDocument(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, domain.ErrFolderNotFound
		}
		return nil, err
	}
	return created, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id, ownerID string) (*domain.Document, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1 AND owner_id = $2`, id, ownerID)
	return scanDocument(row)
}

func (r *DocumentRepository) GetByStoredName(ctx context.Context, storedName string) (*domain.Document, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE stored_name = $1`, storedName)
	return scanDocument(row)
}

func (r *DocumentRepository) List(ctx context.Context, input repository.ListDocumentsInput) ([]*domain.Document, error) {
	args := []any{input.OwnerID}
	where := []string{"owner_id = $1"}

	if input.FolderID != "" {
		args = append(args, input.FolderID)
		where = append(where, fmt.Sprintf("folder_id = $%d", len(args)))
	}
	if input.CursorTime != nil {
		args = append(args, *input.CursorTime, input.CursorID)
		where = append(where, fmt.Sprintf("(created_at, id) < ($%d, $%d)", len(args)-1, len(args)))
	}
	args = append(args, input.Limit)

	query := fmt.Sprintf(`
		SELECT %s
		FROM documents
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d`,
		documentColumns, strings.Join(where, " AND "), len(args))

	return r.query(ctx, "list documents", query, args...)
}

func (r *DocumentRepository) Update(ctx context.Context, id, ownerID string, upd repository.DocumentUpdate) (*domain.Document, error) {
	args := []any{id, ownerID}
	set := []string{"updated_at = NOW()"}

	if upd.Name != nil {
		args = append(args, *upd.Name)
		set = append(set, fmt.Sprintf("name = $%d", len(args)))
	}
	if upd.Description != nil {
		args = append(args, *upd.Description)
		set = append(set, fmt.Sprintf("description = $%d", len(args)))
	}
	if upd.Tags != nil {
		args = append(args, upd.Tags)
		set = append(set, fmt.Sprintf("tags = $%d", len(args)))
	}
	if upd.FolderID != nil {
		args = append(args, *upd.FolderID)
		set = append(set, fmt.Sprintf("folder_id = $%d", len(args)))
	}

	query := fmt.Sprintf(`
		UPDATE documents SET %s
		WHERE id = $1 AND owner_id = $2
		RETURNING %s`,
		strings.Join(set, ", "), documentColumns)

	updated, err := scanDocument(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, domain.ErrFolderNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id, ownerID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if isNoRows(err) {
		return domain.ErrDocumentNotFound
	}
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) SearchByName(ctx context.Context, ownerID, query string, limit int) ([]*domain.Document, error) {
	q := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE owner_id = $1 AND name ILIKE '%' || $2 || '%'
		ORDER BY created_at DESC, id DESC
		LIMIT $3`

	return r.query(ctx, "search documents", q, ownerID, escapeLike(query), limit)
}

var documentSortColumns = map[repository.DocumentSort]string{
	repository.SortByDate: "created_at",
	repository.SortByName: "LOWER(name)",
	repository.SortBySize: "size_bytes",
}

func (r *DocumentRepository) Search(ctx context.Context, input repository.SearchDocumentsInput) ([]*domain.Document, int, error) {
	args := []any{input.OwnerID}
	where := []string{"owner_id = $1"}

	if input.Query != "" {
		args = append(args, escapeLike(input.Query))
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(name ILIKE '%%' || $%d || '%%' OR description ILIKE '%%' || $%d || '%%' "+
				"OR EXISTS (SELECT 1 FROM unnest(tags) t WHERE t ILIKE '%%' || $%d || '%%'))", n, n, n))
	}
	if len(input.Extensions) > 0 {
		args = append(args, input.Extensions)
		where = append(where, fmt.Sprintf("extension = ANY($%d)", len(args)))
	}
	if len(input.FolderIDs) > 0 {
		args = append(args, input.FolderIDs)
		where = append(where, fmt.Sprintf("folder_id = ANY($%d::uuid[])", len(args)))
	}
	if input.CreatedFrom != nil {
		args = append(args, *input.CreatedFrom)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if input.CreatedTo != nil {
		args = append(args, *input.CreatedTo)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if input.MinSize != nil {
		args = append(args, *input.MinSize)
		where = append(where, fmt.Sprintf("size_bytes >= $%d", len(args)))
	}
	if input.MaxSize != nil {
		args = append(args, *input.MaxSize)
		where = append(where, fmt.Sprintf("size_bytes <= $%d", len(args)))
	}

	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	sortCol, ok := documentSortColumns[input.SortBy]
	if !ok {
		sortCol = documentSortColumns[repository.SortByDate]
	}
	dir := "ASC"
	if input.Descending {
		dir = "DESC"
	}

	args = append(args, input.Limit, input.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM documents
		WHERE %s
		ORDER BY %s %s, id %s
		LIMIT $%d OFFSET $%d`,
		documentColumns, whereSQL, sortCol, dir, dir, len(args)-1, len(args))

	docs, err := r.query(ctx, "search documents", query, args...)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func (r *DocumentRepository) query(ctx context.Context, op, query string, args ...any) ([]*domain.Document, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return docs, nil
}

// escapeLike makes user input match literally inside ILIKE.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var d domain.Document
	err := row.Scan(
		&d.ID, &d.OwnerID, &d.FolderID, &d.Name, &d.StoredName, &d.Description, &d.Tags,
		&d.SizeBytes, &d.MimeType, &d.Extension, &d.DocumentType, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &d, nil
}
