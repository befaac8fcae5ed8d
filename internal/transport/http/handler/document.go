package handler

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ErlanBelekov/snapdocs/internal/domain"
	"github.com/ErlanBelekov/snapdocs/internal/storage"
	"github.com/ErlanBelekov/snapdocs/internal/transport/http/middleware"
	"github.com/ErlanBelekov/snapdocs/internal/usecase"
	"github.com/gin-gonic/gin"
)

// multipartOverhead is the room left for form fields and part headers on top
// of the file itself when capping the request body.
const multipartOverhead = 1 << 20

type documentUsecaser interface {
	MaxFileSize() int64
	Upload(ctx context.Context, input usecase.UploadInput) (*domain.Document, error)
	List(ctx context.Context, input usecase.ListDocumentsInput) (usecase.ListDocumentsResult, error)
	Get(ctx context.Context, id, ownerID string) (*domain.Document, error)
	Update(ctx context.Context, id, ownerID string, input usecase.UpdateDocumentInput) (*domain.Document, error)
	Delete(ctx context.Context, id, ownerID string) error
	Open(ctx context.Context, id, ownerID string) (*domain.Document, *storage.Object, error)
	OpenStored(ctx context.Context, storedName string) (*domain.Document, *storage.Object, error)
	Search(ctx context.Context, ownerID, query string, limit int) ([]*domain.Document, error)
	AdvancedSearch(ctx context.Context, input usecase.AdvancedSearchInput) (usecase.SearchResult, error)
}

type DocumentHandler struct {
	uc      documentUsecaser
	baseURL string
	logger  *slog.Logger
}

// NewDocumentHandler builds file URLs as baseURL + "/files/<stored_name>".
// An empty baseURL yields host-relative URLs.
func NewDocumentHandler(uc documentUsecaser, baseURL string, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		uc:      uc,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With("component", "document_handler"),
	}
}

type documentResponse struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	StoredName   string              `json:"stored_name"`
	Description  string              `json:"description"`
	Tags         []string            `json:"tags"`
	Size         int64               `json:"size"`
	MimeType     string              `json:"mime_type"`
	Extension    string              `json:"extension"`
	DocumentType domain.DocumentType `json:"document_type"`
	FolderID     string              `json:"folder_id"`
	URL          string              `json:"url"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func (h *DocumentHandler) toResponse(d *domain.Document) documentResponse {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return documentResponse{
		ID:           d.ID,
		Name:         d.Name,
		StoredName:   d.StoredName,
		Description:  d.Description,
		Tags:         tags,
		Size:         d.SizeBytes,
		MimeType:     d.MimeType,
		Extension:    d.Extension,
		DocumentType: d.DocumentType,
		FolderID:     d.FolderID,
		URL:          h.baseURL + "/files/" + d.StoredName,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (h *DocumentHandler) toResponses(docs []*domain.Document) []documentResponse {
	out := make([]documentResponse, len(docs))
	for i, d := range docs {
		out[i] = h.toResponse(d)
	}
	return out
}

// POST /api/v1/upload (multipart: file, folder_id | folder_name, description, tags)
func (h *DocumentHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uc.MaxFileSize()+multipartOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, h.logger, "upload", domain.ErrFileTooLarge)
			return
		}
		badRequest(c, "file", "No file provided")
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, h.logger, "open upload", err)
		return
	}
	defer f.Close()

	doc, err := h.uc.Upload(c.Request.Context(), usecase.UploadInput{
		OwnerID:     middleware.UserID(c),
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Content:     f,
		FolderID:    c.PostForm("folder_id"),
		FolderName:  c.PostForm("folder_name"),
		Description: c.PostForm("description"),
		Tags:        splitList(c.PostForm("tags")),
	})
	if err != nil {
		respondError(c, h.logger, "upload", err)
		return
	}

	c.JSON(http.StatusCreated, h.toResponse(doc))
}

// GET /api/v1/documents?folder_id=&cursor=&limit=
func (h *DocumentHandler) List(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	res, err := h.uc.List(c.Request.Context(), usecase.ListDocumentsInput{
		OwnerID:  middleware.UserID(c),
		FolderID: c.Query("folder_id"),
		Cursor:   c.Query("cursor"),
		Limit:    limit,
	})
	if err != nil {
		respondError(c, h.logger, "list documents", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents":   h.toResponses(res.Documents),
		"next_cursor": res.NextCursor,
	})
}

// GET /api/v1/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.uc.Get(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		respondError(c, h.logger, "get document", err)
		return
	}
	c.JSON(http.StatusOK, h.toResponse(doc))
}

type updateDocumentRequest struct {
	Name        *string   `json:"name"        binding:"omitempty,max=255"`
	Description *string   `json:"description" binding:"omitempty,max=2000"`
	Tags        *[]string `json:"tags"`
	FolderID    *string   `json:"folder_id"`
}

// PATCH /api/v1/documents/:id
func (h *DocumentHandler) Update(c *gin.Context) {
	var req updateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", errInvalidRequest)
		return
	}

	in := usecase.UpdateDocumentInput{
		Name:        req.Name,
		Description: req.Description,
		FolderID:    req.FolderID,
	}
	if req.Tags != nil {
		in.Tags = *req.Tags
		if in.Tags == nil {
			in.Tags = []string{}
		}
	}

	doc, err := h.uc.Update(c.Request.Context(), c.Param("id"), middleware.UserID(c), in)
	if err != nil {
		respondError(c, h.logger, "update document", err)
		return
	}
	c.JSON(http.StatusOK, h.toResponse(doc))
}

// DELETE /api/v1/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.uc.Delete(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		respondError(c, h.logger, "delete document", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document deleted successfully"})
}

// GET /api/v1/documents/:id/download
func (h *DocumentHandler) Download(c *gin.Context) {
	h.serveOwned(c, "attachment")
}

// GET /api/v1/documents/:id/stream
func (h *DocumentHandler) Stream(c *gin.Context) {
	h.serveOwned(c, "inline")
}

func (h *DocumentHandler) serveOwned(c *gin.Context, disposition string) {
	doc, obj, err := h.uc.Open(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		respondError(c, h.logger, "open document", err)
		return
	}
	serveObject(c, doc, obj, disposition)
}

// GET|HEAD /files/:name
// Public: the stored name is a random UUID and is the only capability needed.
func (h *DocumentHandler) ServeFile(c *gin.Context) {
	doc, obj, err := h.uc.OpenStored(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, h.logger, "serve file", err)
		return
	}
	serveObject(c, doc, obj, "inline")
}

func serveObject(c *gin.Context, doc *domain.Document, obj *storage.Object, disposition string) {
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	headers := map[string]string{
		"Content-Disposition": mime.FormatMediaType(disposition, map[string]string{"filename": doc.Name}),
		"Cache-Control":       "private, max-age=3600",
	}
	if !obj.ModTime.IsZero() {
		headers["Last-Modified"] = obj.ModTime.UTC().Format(http.TimeFormat)
	}

	if c.Request.Method == http.MethodHead {
		for k, v := range headers {
			c.Header(k, v)
		}
		c.Header("Content-Type", contentType)
		c.Header("Content-Length", strconv.FormatInt(obj.Size, 10))
		c.Status(http.StatusOK)
		return
	}
	c.DataFromReader(http.StatusOK, obj.Size, contentType, obj.Body, headers)
}

// GET /api/v1/search?q=&limit=
func (h *DocumentHandler) Search(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	docs, err := h.uc.Search(c.Request.Context(), middleware.UserID(c), c.Query("q"), limit)
	if err != nil {
		respondError(c, h.logger, "search documents", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"query":     strings.TrimSpace(c.Query("q")),
		"documents": h.toResponses(docs),
		"total":     len(docs),
	})
}

// GET /api/v1/search/advanced
func (h *DocumentHandler) AdvancedSearch(c *gin.Context) {
	in := usecase.AdvancedSearchInput{
		OwnerID:    middleware.UserID(c),
		Query:      c.Query("q"),
		Types:      splitList(c.Query("types")),
		FolderIDs:  splitList(c.Query("folders")),
		DatePreset: c.Query("date_preset"),
		SortBy:     c.Query("sort_by"),
		Order:      c.Query("order"),
	}

	var ok bool
	if in.From, ok = queryTime(c, "from"); !ok {
		return
	}
	if in.To, ok = queryTime(c, "to"); !ok {
		return
	}
	if in.MinSize, ok = queryInt64(c, "min_size"); !ok {
		return
	}
	if in.MaxSize, ok = queryInt64(c, "max_size"); !ok {
		return
	}
	if in.Limit, ok = queryInt(c, "limit"); !ok {
		return
	}
	if in.Offset, ok = queryInt(c, "offset"); !ok {
		return
	}

	res, err := h.uc.AdvancedSearch(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, "advanced search", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"documents": h.toResponses(res.Documents),
		"total":     res.Total,
		"limit":     res.Limit,
		"offset":    res.Offset,
	})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// queryInt reads an optional integer parameter. On a malformed value it
// writes the 400 itself and reports false.
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, name, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func queryInt64(c *gin.Context, name string) (*int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		badRequest(c, name, name+" must be a non-negative integer")
		return nil, false
	}
	return &n, true
}

// queryTime accepts RFC 3339 timestamps or plain dates (YYYY-MM-DD, UTC midnight).
func queryTime(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	badRequest(c, name, name+" must be an RFC 3339 timestamp or YYYY-MM-DD date")
	return nil, false
}
