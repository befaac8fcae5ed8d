package httptransport

import (
	"log/slog"

	"github.com/ErlanBelekov/snapdocs/internal/transport/http/handler"
	"github.com/ErlanBelekov/snapdocs/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

// RouterOptions carries the cross-cutting settings both services share.
type RouterOptions struct {
	Service     string
	CORSOrigins []string
	HSTS        bool
}

func newEngine(logger *slog.Logger, opts RouterOptions, health *handler.HealthHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security(opts.HSTS))
	r.Use(middleware.CORS(opts.CORSOrigins))
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics(opts.Service))

	r.GET("/health", health.Live)
	r.GET("/health/detailed", health.Detailed)
	return r
}

func NewAuthRouter(
	logger *slog.Logger,
	opts RouterOptions,
	authHandler *handler.AuthHandler,
	healthHandler *handler.HealthHandler,
	verifier middleware.TokenVerifier,
) *gin.Engine {
	r := newEngine(logger, opts, healthHandler)
	authMW := middleware.Auth(verifier, logger)

	auth := r.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/login", authHandler.Login)
	auth.POST("/check-password-policy", authHandler.CheckPasswordPolicy)
	auth.POST("/check-email-availability", authHandler.CheckEmailAvailability)
	auth.POST("/check-username-availability", authHandler.CheckUsernameAvailability)

	// Protected auth routes
	auth.POST("/logout", authMW, authHandler.Logout)
	auth.GET("/me", authMW, authHandler.Me)
	auth.GET("/verify", authMW, authHandler.Verify)

	return r
}

// NewDocumentRouter wires the document service. ensureUser may be nil when
// the service has no access to the users table.
func NewDocumentRouter(
	logger *slog.Logger,
	opts RouterOptions,
	documentHandler *handler.DocumentHandler,
	folderHandler *handler.FolderHandler,
	healthHandler *handler.HealthHandler,
	verifier middleware.TokenVerifier,
	ensureUser gin.HandlerFunc,
) *gin.Engine {
	r := newEngine(logger, opts, healthHandler)

	protected := []gin.HandlerFunc{middleware.Auth(verifier, logger)}
	if ensureUser != nil {
		protected = append(protected, ensureUser)
	}

	// Public file access by unguessable stored name
	r.GET("/files/:name", documentHandler.ServeFile)
	r.HEAD("/files/:name", documentHandler.ServeFile)

	api := r.Group("/api/v1", protected...)
	api.POST("/upload", documentHandler.Upload)

	docs := api.Group("/documents")
	docs.GET("", documentHandler.List)
	docs.GET("/:id", documentHandler.Get)
	docs.PATCH("/:id", documentHandler.Update)
	docs.DELETE("/:id", documentHandler.Delete)
	docs.GET("/:id/download", documentHandler.Download)
	docs.GET("/:id/stream", documentHandler.Stream)

	api.GET("/search", documentHandler.Search)
	api.GET("/search/advanced", documentHandler.AdvancedSearch)

	folders := api.Group("/folders")
	folders.POST("", folderHandler.Create)
	folders.GET("", folderHandler.List)
	folders.GET("/:id", folderHandler.Get)
	folders.PATCH("/:id", folderHandler.Update)
	folders.DELETE("/:id", folderHandler.Delete)

	return r
}
