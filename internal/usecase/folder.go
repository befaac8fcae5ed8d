package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ErlanBelekov/snapdocs/internal/domain"
	"github.com/ErlanBelekov/snapdocs/internal/repository"
)

const (
	maxFolderNameLength = 255

	defaultFolderDescription = "Default folder for documents uploaded directly to dashboard"
	defaultFolderIcon        = "📂"
	folderColor              = "#6B7280"
	folderIcon               = "📁"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

type FolderUsecase struct {
	repo   repository.FolderRepository
	logger *slog.Logger
}

func NewFolderUsecase(repo repository.FolderRepository, logger *slog.Logger) *FolderUsecase {
	return &FolderUsecase{repo: repo, logger: logger.With("component", "folder_usecase")}
}

// EnsureDefault makes sure the General folder exists. Called at startup.
func (u *FolderUsecase) EnsureDefault(ctx context.Context) (*domain.Folder, error) {
	f, err := u.repo.EnsureDefault(ctx, &domain.Folder{
		Name:        domain.DefaultFolderName,
		Description: defaultFolderDescription,
		Color:       folderColor,
		Icon:        defaultFolderIcon,
		IsDefault:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure default folder: %w", err)
	}
	return f, nil
}

type CreateFolderInput struct {
	Name        string
	Description string
	Color       string
	Icon        string
}

func (u *FolderUsecase) Create(ctx context.Context, input CreateFolderInput) (*domain.Folder, error) {
	name, err := validateFolderName(input.Name)
	if err != nil {
		return nil, err
	}
	color := strings.TrimSpace(input.Color)
	if color == "" {
		color = folderColor
	} else if !hexColor.MatchString(color) {
		return nil, &domain.ValidationError{Type: domain.ValidationTypeGeneric, Field: "color", Message: "Color must be a hex value like #6B7280"}
	}
	icon := strings.TrimSpace(input.Icon)
	if icon == "" {
		icon = folderIcon
	}

	f, err := u.repo.Create(ctx, &domain.Folder{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Color:       color,
		Icon:        icon,
	})
	if err != nil {
		return nil, fmt.Errorf("create folder: %w", err)
	}
	u.logger.InfoContext(ctx, "folder created", "folder_id", f.ID, "name", f.Name)
	return f, nil
}

func (u *FolderUsecase) List(ctx context.Context, ownerID string) ([]*domain.Folder, error) {
	folders, err := u.repo.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	return folders, nil
}

func (u *FolderUsecase) Get(ctx context.Context, id string) (*domain.Folder, error) {
	f, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get folder: %w", err)
	}
	return f, nil
}

type UpdateFolderInput struct {
	Name        *string
	Description *string
	Color       *string
	Icon        *string
}

// Update rejects renaming the default folder; its other attributes may change.
func (u *FolderUsecase) Update(ctx context.Context, id string, input UpdateFolderInput) (*domain.Folder, error) {
	current, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get folder: %w", err)
	}

	var upd repository.FolderUpdate
	if input.Name != nil {
		name, err := validateFolderName(*input.Name)
		if err != nil {
			return nil, err
		}
		if current.IsDefault && name != current.Name {
			return nil, domain.ErrDefaultFolderProtected
		}
		upd.Name = &name
	}
	if input.Color != nil {
		color := strings.TrimSpace(*input.Color)
		if !hexColor.MatchString(color) {
			return nil, &domain.ValidationError{Type: domain.ValidationTypeGeneric, Field: "color", Message: "Color must be a hex value like #6B7280"}
		}
		upd.Color = &color
	}
	if input.Description != nil {
		d := strings.TrimSpace(*input.Description)
		upd.Description = &d
	}
	if input.Icon != nil {
		if icon := strings.TrimSpace(*input.Icon); icon != "" {
			upd.Icon = &icon
		}
	}

	f, err := u.repo.Update(ctx, id, upd)
	if err != nil {
		return nil, fmt.Errorf("update folder: %w", err)
	}
	return f, nil
}

// Delete moves the folder's documents into the default folder, then removes it.
func (u *FolderUsecase) Delete(ctx context.Context, id string) (int, error) {
	f, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("get folder: %w", err)
	}
	if f.IsDefault {
		return 0, domain.ErrDefaultFolderProtected
	}

	def, err := u.repo.GetDefault(ctx)
	if err != nil {
		return 0, fmt.Errorf("get default folder: %w", err)
	}

	moved, err := u.repo.DeleteAndReassign(ctx, f.ID, def.ID)
	if err != nil {
		return 0, fmt.Errorf("delete folder: %w", err)
	}
	u.logger.InfoContext(ctx, "folder deleted", "folder_id", f.ID, "documents_moved", moved)
	return moved, nil
}

// Resolve picks an upload target: by id, else by name, else the default folder.
func (u *FolderUsecase) Resolve(ctx context.Context, id, name string) (*domain.Folder, error) {
	var (
		f   *domain.Folder
		err error
	)
	switch {
	case strings.TrimSpace(id) != "":
		f, err = u.repo.GetByID(ctx, strings.TrimSpace(id))
	case strings.TrimSpace(name) != "":
		f, err = u.repo.GetByName(ctx, strings.TrimSpace(name))
	default:
		f, err = u.repo.GetDefault(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve folder: %w", err)
	}
	return f, nil
}

func validateFolderName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(name)
	if n == 0 || n > maxFolderNameLength {
		return "", &domain.ValidationError{
			Type:    domain.ValidationTypeGeneric,
			Field:   "name",
			Message: "Folder name must be between 1 and 255 characters",
		}
	}
	return name, nil
}
