package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ErlanBelekov/snapdocs/internal/domain"
	ctxlog "github.com/ErlanBelekov/snapdocs/internal/log"
	"github.com/gin-gonic/gin"
)

const (
	principalKey = "principal"
	rawTokenKey  = "rawToken"
)

// TokenVerifier resolves a raw bearer token to the authenticated principal.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*domain.Principal, error)
}

// VerifierFunc adapts a plain function to TokenVerifier.
type VerifierFunc func(ctx context.Context, raw string) (*domain.Principal, error)

func (f VerifierFunc) Verify(ctx context.Context, raw string) (*domain.Principal, error) {
	return f(ctx, raw)
}

// Auth validates the Bearer token and stores the principal in the gin context.
// Expired, revoked and malformed tokens get distinct error types; an inactive
// account gets 403.
func Auth(verifier TokenVerifier, logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "auth_middleware")

	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}

		p, err := verifier.Verify(c.Request.Context(), raw)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrTokenExpired):
				abortAuth(c, http.StatusUnauthorized, "token_expired", "Token has expired")
			case errors.Is(err, domain.ErrTokenRevoked):
				abortAuth(c, http.StatusUnauthorized, "token_revoked", "Token has been revoked")
			case errors.Is(err, domain.ErrUserInactive):
				abortAuth(c, http.StatusForbidden, "forbidden", "Account is inactive")
			case errors.Is(err, domain.ErrTokenInvalid), errors.Is(err, domain.ErrUnauthorized):
				abortAuth(c, http.StatusUnauthorized, "unauthorized", "Could not validate credentials")
			default:
				logger.ErrorContext(c.Request.Context(), "verify token", "error", err)
				abortAuth(c, http.StatusInternalServerError, "internal_error", "Internal server error")
			}
			return
		}

		c.Set(principalKey, p)
		c.Set(rawTokenKey, raw)
		c.Request = c.Request.WithContext(ctxlog.WithUserID(c.Request.Context(), p.UserID))
		c.Next()
	}
}

// Principal returns the principal stored by Auth, or nil on unauthenticated routes.
func Principal(c *gin.Context) *domain.Principal {
	p, _ := c.Get(principalKey)
	principal, _ := p.(*domain.Principal)
	return principal
}

// UserID is shorthand for Principal(c).UserID.
func UserID(c *gin.Context) string {
	if p := Principal(c); p != nil {
		return p.UserID
	}
	return ""
}

// RawToken returns the bearer token Auth accepted.
func RawToken(c *gin.Context) string {
	return c.GetString(rawTokenKey)
}

func bearerToken(header string) (string, bool) {
	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

func abortAuth(c *gin.Context, status int, typ, detail string) {
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, gin.H{"type": typ, "detail": detail})
}
