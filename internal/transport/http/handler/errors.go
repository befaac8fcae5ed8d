package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/snapdocs/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	errInternalServer     = "Internal server error"
	errInvalidRequest     = "Invalid request body"
	errInvalidCredentials = "Incorrect email or password"
	errDocumentNotFound   = "Document not found"
	errFolderNotFound     = "Folder not found"
	errUserNotFound       = "User not found"
	errFileTooLarge       = "File exceeds the maximum upload size"
	errFileTypeNotAllowed = "File type not allowed"
	errEmptyFile          = "Uploaded file is empty"
	errInvalidCursor      = "Invalid cursor"
	errFolderExists       = "A folder with this name already exists"
	errDefaultFolder      = "The General folder cannot be deleted or renamed"
	errEmailExists        = "Email already registered"
	errUsernameExists     = "Username already taken"
	errTokenExpired       = "Token has expired"
	errTokenRevoked       = "Token has been revoked"
	errUnauthorized       = "Could not validate credentials"
	errInactiveAccount    = "Account is inactive"
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Type         string          `json:"type"`
	Detail       string          `json:"detail"`
	Field        string          `json:"field,omitempty"`
	Errors       []string        `json:"errors,omitempty"`
	Requirements map[string]bool `json:"requirements,omitempty"`
}

func badRequest(c *gin.Context, field, detail string) {
	c.JSON(http.StatusBadRequest, errorResponse{Type: domain.ValidationTypeGeneric, Detail: detail, Field: field})
}

// respondError maps use-case errors onto status codes. Anything unrecognised
// is logged with op and answered with a generic 500.
func respondError(c *gin.Context, logger *slog.Logger, op string, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, errorResponse{
			Type:         ve.Type,
			Detail:       ve.Message,
			Field:        ve.Field,
			Errors:       ve.Violations,
			Requirements: ve.Requirements,
		})
		return
	}

	status, body := classify(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(c.Request.Context(), op, "error", err)
	}
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.JSON(status, body)
}

func classify(err error) (int, errorResponse) {
	switch {
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusBadRequest, errorResponse{Type: "email_exists", Detail: errEmailExists, Field: "email"}
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusBadRequest, errorResponse{Type: "username_exists", Detail: errUsernameExists, Field: "username"}
	case errors.Is(err, domain.ErrFileTypeNotAllowed):
		return http.StatusBadRequest, errorResponse{Type: "invalid_file_type", Detail: errFileTypeNotAllowed, Field: "file"}
	case errors.Is(err, domain.ErrEmptyFile):
		return http.StatusBadRequest, errorResponse{Type: domain.ValidationTypeGeneric, Detail: errEmptyFile, Field: "file"}
	case errors.Is(err, domain.ErrInvalidCursor):
		return http.StatusBadRequest, errorResponse{Type: domain.ValidationTypeGeneric, Detail: errInvalidCursor, Field: "cursor"}
	case errors.Is(err, domain.ErrFolderNameConflict):
		return http.StatusBadRequest, errorResponse{Type: "folder_exists", Detail: errFolderExists, Field: "name"}

	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Type: "invalid_credentials", Detail: errInvalidCredentials}
	case errors.Is(err, domain.ErrTokenExpired):
		return http.StatusUnauthorized, errorResponse{Type: "token_expired", Detail: errTokenExpired}
	case errors.Is(err, domain.ErrTokenRevoked):
		return http.StatusUnauthorized, errorResponse{Type: "token_revoked", Detail: errTokenRevoked}
	case errors.Is(err, domain.ErrTokenInvalid), errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, errorResponse{Type: "unauthorized", Detail: errUnauthorized}

	case errors.Is(err, domain.ErrUserInactive):
		return http.StatusForbidden, errorResponse{Type: "forbidden", Detail: errInactiveAccount}
	case errors.Is(err, domain.ErrDefaultFolderProtected):
		return http.StatusForbidden, errorResponse{Type: "forbidden", Detail: errDefaultFolder}

	case errors.Is(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound, errorResponse{Type: "not_found", Detail: errDocumentNotFound}
	case errors.Is(err, domain.ErrFolderNotFound):
		return http.StatusNotFound, errorResponse{Type: "not_found", Detail: errFolderNotFound}
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, errorResponse{Type: "not_found", Detail: errUserNotFound}

	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, errorResponse{Type: "file_too_large", Detail: errFileTooLarge}
	}
	return http.StatusInternalServerError, errorResponse{Type: "internal_error", Detail: errInternalServer}
}
