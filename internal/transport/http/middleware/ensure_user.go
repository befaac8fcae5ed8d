package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/snapdocs/internal/domain"
	"github.com/gin-gonic/gin"
)

type userFinder interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// EnsureActiveUser runs after Auth on services that only check the token
// signature. It rejects tokens whose user was deleted or deactivated since
// the token was issued.
func EnsureActiveUser(users userFinder, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := users.FindByID(c.Request.Context(), UserID(c))
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "Could not validate credentials")
			return
		case err != nil:
			logger.ErrorContext(c.Request.Context(), "ensure active user", "error", err)
			abortAuth(c, http.StatusInternalServerError, "internal_error", "Internal server error")
			return
		case !user.IsActive:
			abortAuth(c, http.StatusForbidden, "forbidden", "Account is inactive")
			return
		}
		c.Next()
	}
}
