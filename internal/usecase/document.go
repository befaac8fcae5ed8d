package usecase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/ErlanBelekov/snapdocs/internal/domain"
	"github.com/ErlanBelekov/snapdocs/internal/metrics"
	"github.com/ErlanBelekov/snapdocs/internal/repository"
	"github.com/ErlanBelekov/snapdocs/internal/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type DocumentUsecase struct {
	repo        repository.DocumentRepository
	folders     *FolderUsecase
	store       storage.Store
	maxFileSize int64
	allowed     map[string]struct{}
	logger      *slog.Logger
	now         func() time.Time
}

func NewDocumentUsecase(
	repo repository.DocumentRepository,
	folders *FolderUsecase,
	store storage.Store,
	maxFileSize int64,
	allowedExtensions []string,
	logger *slog.Logger,
) *DocumentUsecase {
	allowed := make(map[string]struct{}, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[normalizeExt(ext)] = struct{}{}
	}
	return &DocumentUsecase{
		repo:        repo,
		folders:     folders,
		store:       store,
		maxFileSize: maxFileSize,
		allowed:     allowed,
		logger:      logger.With("component", "document_usecase"),
		now:         time.Now,
	}
}

func (u *DocumentUsecase) MaxFileSize() int64 { return u.maxFileSize }

type UploadInput struct {
	OwnerID     string
	FileName    string
	ContentType string
	Size        int64 // declared by the multipart header; <= 0 when unknown
	Content     io.Reader
	FolderID    string
	FolderName  string
	Description string
	Tags        []string
}

// Upload reads the whole file into memory. Nothing is written to storage
// unless the type and size checks pass, and a failed insert removes the
// stored object again.
func (u *DocumentUsecase) Upload(ctx context.Context, input UploadInput) (*domain.Document, error) {
	doc, err := u.upload(ctx, input)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(uploadOutcome(err)).Inc()
		return nil, err
	}
	metrics.UploadsTotal.WithLabelValues("stored").Inc()
	metrics.UploadSizeBytes.Observe(float64(doc.SizeBytes))
	return doc, nil
}

func (u *DocumentUsecase) upload(ctx context.Context, input UploadInput) (*domain.Document, error) {
	name := filepath.Base(strings.TrimSpace(input.FileName))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, &domain.ValidationError{Type: domain.ValidationTypeGeneric, Field: "file", Message: "No filename provided"}
	}

	ext := normalizeExt(filepath.Ext(name))
	if _, ok := u.allowed[ext]; !ok || ext == "" {
		return nil, fmt.Errorf("%w: %q", domain.ErrFileTypeNotAllowed, ext)
	}
	if input.Size > u.maxFileSize {
		return nil, domain.ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(input.Content, u.maxFileSize+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.ErrFileTooLarge
		}
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > u.maxFileSize {
		return nil, domain.ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, domain.ErrEmptyFile
	}

	folder, err := u.folders.Resolve(ctx, input.FolderID, input.FolderName)
	if err != nil {
		return nil, err
	}

	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}

	storedName := uuid.NewString() + "." + ext
	if err := u.store.Save(ctx, storedName, data, contentType); err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}

	doc, err := u.repo.Create(ctx, &domain.Document{
		OwnerID:      input.OwnerID,
		FolderID:     folder.ID,
		Name:         name,
		StoredName:   storedName,
		Description:  strings.TrimSpace(input.Description),
		Tags:         cleanTags(input.Tags),
		SizeBytes:    int64(len(data)),
		MimeType:     contentType,
		Extension:    ext,
		DocumentType: domain.DocumentTypeFor(ext),
	})
	if err != nil {
		if delErr := u.store.Delete(ctx, storedName); delErr != nil {
			u.logger.ErrorContext(ctx, "remove orphaned upload", "stored_name", storedName, "error", delErr)
		}
		return nil, fmt.Errorf("create document: %w", err)
	}

	u.logger.InfoContext(ctx, "document uploaded",
		"document_id", doc.ID, "folder_id", doc.FolderID, "size_bytes", doc.SizeBytes)
	return doc, nil
}

func uploadOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrFileTooLarge):
		return "too_large"
	case errors.Is(err, domain.ErrFileTypeNotAllowed):
		return "type_rejected"
	case errors.Is(err, domain.ErrFolderNotFound):
		return "folder_not_found"
	default:
		var ve *domain.ValidationError
		if errors.As(err, &ve) || errors.Is(err, domain.ErrEmptyFile) {
			return "invalid"
		}
		return "error"
	}
}

type ListDocumentsInput struct {
	OwnerID  string
	FolderID string
	Cursor   string
	Limit    int
}

type ListDocumentsResult struct {
	Documents  []*domain.Document
	NextCursor *string
}

type documentCursor struct {
	CreatedAt time.Time `json:"c"`
	ID        string    `json:"i"`
}

func decodeCursor(s string) (*time.Time, string, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, "", fmt.Errorf("decode cursor: %w", err)
	}
	var c documentCursor
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, "", fmt.Errorf("unmarshal cursor: %w", err)
	}
	if err := uuid.Validate(c.ID); err != nil {
		return nil, "", fmt.Errorf("cursor id: %w", err)
	}
	return &c.CreatedAt, c.ID, nil
}

func encodeCursor(createdAt time.Time, id string) string {
	b, _ := json.Marshal(documentCursor{CreatedAt: createdAt, ID: id})
	return base64.RawURLEncoding.EncodeToString(b)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

func (u *DocumentUsecase) List(ctx context.Context, input ListDocumentsInput) (ListDocumentsResult, error) {
	if input.FolderID != "" && uuid.Validate(input.FolderID) != nil {
		return ListDocumentsResult{}, &domain.ValidationError{Type: domain.ValidationTypeGeneric, Field: "folder_id", Message: "folder_id must be a valid id"}
	}
	limit := clampLimit(input.Limit)

	repoInput := repository.ListDocumentsInput{
		OwnerID:  input.OwnerID,
		FolderID: input.FolderID,
		Limit:    limit + 1,
	}

	if input.Cursor != "" {
		cursorTime, cursorID, err := decodeCursor(input.Cursor)
		if err != nil {
			return ListDocumentsResult{}, domain.ErrInvalidCursor
		}
		repoInput.CursorTime = cursorTime
		repoInput.CursorID = cursorID
	}

	docs, err := u.repo.List(ctx, repoInput)
	if err != nil {
		return ListDocumentsResult{}, fmt.Errorf("list documents: %w", err)
	}

	var nextCursor *string
	if len(docs) == limit+1 {
		last := docs[limit-1]
		s := encodeCursor(last.CreatedAt, last.ID)
		nextCursor = &s
		docs = docs[:limit]
	}

	return ListDocumentsResult{Documents: docs, NextCursor: nextCursor}, nil
}

func (u *DocumentUsecase) Get(ctx context.Context, id, ownerID string) (*domain.Document, error) {
	doc, err := u.repo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

type UpdateDocumentInput struct {
	Name        *string
	Description *string
	Tags        []string
	FolderID    *string
}

func (u *DocumentUsecase) Update(ctx context.Context, id, ownerID string, input UpdateDocumentInput) (*domain.Document, error) {
	var upd repository.DocumentUpdate

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" || strings.ContainsAny(name, `/\`) {
			return nil, &domain.ValidationError{Type: domain.ValidationTypeGeneric, Field: "name", Message: "Invalid document name"}
		}
		upd.Name = &name
	}
	if input.Description != nil {
		d := strings.TrimSpace(*input.Description)
		upd.Description = &d
	}
	if input.Tags != nil {
		upd.Tags = cleanTags(input.Tags)
	}
	if input.FolderID != nil {
		f, err := u.folders.Get(ctx, *input.FolderID)
		if err != nil {
			return nil, err
		}
		upd.FolderID = &f.ID
	}

	doc, err := u.repo.Update(ctx, id, ownerID, upd)
	if err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	return doc, nil
}

// Delete removes the row first; a leftover object is only logged.
func (u *DocumentUsecase) Delete(ctx context.Context, id, ownerID string) error {
	doc, err := u.repo.GetByID(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}
	if err := u.repo.Delete(ctx, doc.ID, ownerID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := u.store.Delete(ctx, doc.StoredName); err != nil {
		u.logger.WarnContext(ctx, "delete stored file", "stored_name", doc.StoredName, "error", err)
	}
	return nil
}

// Open returns the document and a reader over its bytes. Callers close Body.
func (u *DocumentUsecase) Open(ctx context.Context, id, ownerID string) (*domain.Document, *storage.Object, error) {
	doc, err := u.repo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("get document: %w", err)
	}
	return u.openObject(ctx, doc)
}

// OpenStored serves the public /files/<stored_name> route.
func (u *DocumentUsecase) OpenStored(ctx context.Context, storedName string) (*domain.Document, *storage.Object, error) {
	doc, err := u.repo.GetByStoredName(ctx, storedName)
	if err != nil {
		return nil, nil, fmt.Errorf("get document: %w", err)
	}
	return u.openObject(ctx, doc)
}

func (u *DocumentUsecase) openObject(ctx context.Context, doc *domain.Document) (*domain.Document, *storage.Object, error) {
	obj, err := u.store.Open(ctx, doc.StoredName)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			u.logger.ErrorContext(ctx, "stored file missing", "document_id", doc.ID, "stored_name", doc.StoredName)
			return nil, nil, domain.ErrDocumentNotFound
		}
		return nil, nil, fmt.Errorf("open stored file: %w", err)
	}
	if obj.ContentType == "" {
		obj.ContentType = doc.MimeType
	}
	return doc, obj, nil
}

func (u *DocumentUsecase) Search(ctx context.Context, ownerID, query string, limit int) ([]*domain.Document, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &domain.ValidationError{Type: domain.ValidationTypeGeneric, Field: "q", Message: "Search query is required"}
	}

	docs, err := u.repo.SearchByName(ctx, ownerID, query, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	return docs, nil
}

type AdvancedSearchInput struct {
	OwnerID    string
	Query      string
	Types      []string
	FolderIDs  []string
	DatePreset string
	From       *time.Time
	To         *time.Time
	MinSize    *int64
	MaxSize    *int64
	SortBy     string
	Order      string
	Limit      int
	Offset     int
}

type SearchResult struct {
	Documents []*domain.Document
	Total     int
	Limit     int
	Offset    int
}

// AdvancedSearch filters on every supplied criterion. A date preset only
// fills in the lower bound when From is not given explicitly.
func (u *DocumentUsecase) AdvancedSearch(ctx context.Context, input AdvancedSearchInput) (SearchResult, error) {
	repoInput := repository.SearchDocumentsInput{
		OwnerID:     input.OwnerID,
		Query:       strings.TrimSpace(input.Query),
		FolderIDs:   input.FolderIDs,
		CreatedFrom: input.From,
		CreatedTo:   input.To,
		MinSize:     input.MinSize,
		MaxSize:     input.MaxSize,
		Limit:       clampLimit(input.Limit),
		Offset:      input.Offset,
	}

	for _, id := range input.FolderIDs {
		if uuid.Validate(id) != nil {
			return SearchResult{}, &domain.ValidationError{Type: domain.ValidationTypeGeneric, Field: "folders", Message: fmt.Sprintf("invalid folder id %q", id)}
		}
	}

	for _, t := range input.Types {
		if ext := normalizeExt(t); ext != "" {
			repoInput.Extensions = append(repoInput.Extensions, ext)
		}
	}

	if input.DatePreset != "" && repoInput.CreatedFrom == nil {
		from, err := presetStart(input.DatePreset, u.now())
		if err != nil {
			return SearchResult{}, err
		}
		repoInput.CreatedFrom = &from
	}
	if repoInput.CreatedFrom != nil && repoInput.CreatedTo != nil && repoInput.CreatedFrom.After(*repoInput.CreatedTo) {
		return SearchResult{}, &domain.ValidationError{Type: domain.ValidationTypeGeneric, Field: "from", Message: "from must not be after to"}
	}
	if repoInput.MinSize != nil && repoInput.MaxSize != nil && *repoInput.MinSize > *repoInput.MaxSize {
		return SearchResult{}, &domain.ValidationError{Type: domain.ValidationTypeGeneric, Field: "min_size", Message: "min_size must not exceed max_size"}
	}
	if repoInput.Offset < 0 {
		repoInput.Offset = 0
	}

	sortBy, desc, err := resolveSort(input.SortBy, input.Order)
	if err != nil {
		return SearchResult{}, err
	}
	repoInput.SortBy, repoInput.Descending = sortBy, desc

	docs, total, err := u.repo.Search(ctx, repoInput)
	if err != nil {
		return SearchResult{}, fmt.Errorf("advanced search: %w", err)
	}
	return SearchResult{Documents: docs, Total: total, Limit: repoInput.Limit, Offset: repoInput.Offset}, nil
}

func presetStart(preset string, now time.Time) (time.Time, error) {
	switch preset {
	case "24h":
		return now.Add(-24 * time.Hour), nil
	case "7d":
		return now.AddDate(0, 0, -7), nil
	case "30d":
		return now.AddDate(0, 0, -30), nil
	case "year":
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), nil
	}
	return time.Time{}, &domain.ValidationError{
		Type:    domain.ValidationTypeGeneric,
		Field:   "date_preset",
		Message: "date_preset must be one of 24h, 7d, 30d, year",
	}
}

// resolveSort defaults to newest first, A to Z for names and largest first for sizes.
func resolveSort(by, order string) (repository.DocumentSort, bool, error) {
	sortBy := repository.DocumentSort(strings.ToLower(by))
	var desc bool
	switch sortBy {
	case "", repository.SortByDate:
		sortBy, desc = repository.SortByDate, true
	case repository.SortByName:
		desc = false
	case repository.SortBySize:
		desc = true
	default:
		return "", false, &domain.ValidationError{Type: domain.ValidationTypeGeneric, Field: "sort_by", Message: "sort_by must be one of date, name, size"}
	}

	switch strings.ToLower(order) {
	case "":
	case "asc":
		desc = false
	case "desc":
		desc = true
	default:
		return "", false, &domain.ValidationError{Type: domain.ValidationTypeGeneric, Field: "order", Message: "order must be asc or desc"}
	}
	return sortBy, desc, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[strings.ToLower(t)]; dup {
			continue
		}
		seen[strings.ToLower(t)] = struct{}{}
		out = append(out, t)
	}
	return out
}
