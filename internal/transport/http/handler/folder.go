package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ErlanBelekov/snapdocs/internal/domain"
	"github.com/ErlanBelekov/snapdocs/internal/transport/http/middleware"
	"github.com/ErlanBelekov/snapdocs/internal/usecase"
	"github.com/gin-gonic/gin"
)

type folderUsecaser interface {
	Create(ctx context.Context, input usecase.CreateFolderInput) (*domain.Folder, error)
	List(ctx context.Context, ownerID string) ([]*domain.Folder, error)
	Get(ctx context.Context, id string) (*domain.Folder, error)
	Update(ctx context.Context, id string, input usecase.UpdateFolderInput) (*domain.Folder, error)
	Delete(ctx context.Context, id string) (int, error)
}

type FolderHandler struct {
	uc     folderUsecaser
	logger *slog.Logger
}

func NewFolderHandler(uc folderUsecaser, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{uc: uc, logger: logger.With("component", "folder_handler")}
}

type createFolderRequest struct {
	Name        string `json:"name"        binding:"required,max=255"`
	Description string `json:"description" binding:"max=2000"`
	Color       string `json:"color"`
	Icon        string `json:"icon"        binding:"max=16"`
}

type updateFolderRequest struct {
	Name        *string `json:"name"        binding:"omitempty,max=255"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Color       *string `json:"color"`
	Icon        *string `json:"icon"        binding:"omitempty,max=16"`
}

type folderResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Color         string    `json:"color"`
	Icon          string    `json:"icon"`
	IsDefault     bool      `json:"is_default"`
	DocumentCount int       `json:"document_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toFolderResponse(f *domain.Folder) folderResponse {
	return folderResponse{
		ID:            f.ID,
		Name:          f.Name,
		Description:   f.Description,
		Color:         f.Color,
		Icon:          f.Icon,
		IsDefault:     f.IsDefault,
		DocumentCount: f.DocumentCount,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// POST /api/v1/folders
func (h *FolderHandler) Create(c *gin.Context) {
	var req createFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name", "Folder name is required and must be at most 255 characters")
		return
	}

	f, err := h.uc.Create(c.Request.Context(), usecase.CreateFolderInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
	})
	if err != nil {
		respondError(c, h.logger, "create folder", err)
		return
	}
	c.JSON(http.StatusCreated, toFolderResponse(f))
}

// GET /api/v1/folders
func (h *FolderHandler) List(c *gin.Context) {
	folders, err := h.uc.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.logger, "list folders", err)
		return
	}

	items := make([]folderResponse, len(folders))
	for i, f := range folders {
		items[i] = toFolderResponse(f)
	}
	c.JSON(http.StatusOK, gin.H{"folders": items})
}

// GET /api/v1/folders/:id
func (h *FolderHandler) Get(c *gin.Context) {
	f, err := h.uc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "get folder", err)
		return
	}
	c.JSON(http.StatusOK, toFolderResponse(f))
}

// PATCH /api/v1/folders/:id
func (h *FolderHandler) Update(c *gin.Context) {
	var req updateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", errInvalidRequest)
		return
	}

	f, err := h.uc.Update(c.Request.Context(), c.Param("id"), usecase.UpdateFolderInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
	})
	if err != nil {
		respondError(c, h.logger, "update folder", err)
		return
	}
	c.JSON(http.StatusOK, toFolderResponse(f))
}

// DELETE /api/v1/folders/:id
// Documents in the folder move to General.
func (h *FolderHandler) Delete(c *gin.Context) {
	moved, err := h.uc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "delete folder", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         "Folder deleted successfully",
		"documents_moved": moved,
	})
}
