package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ErlanBelekov/snapdocs/internal/credentials"
	"github.com/ErlanBelekov/snapdocs/internal/domain"
	"github.com/ErlanBelekov/snapdocs/internal/transport/http/middleware"
	"github.com/ErlanBelekov/snapdocs/internal/usecase"
	"github.com/gin-gonic/gin"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	Signup(ctx context.Context, input usecase.SignupInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*usecase.LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Me(ctx context.Context, userID string) (*domain.User, error)
	CheckPasswordPolicy(password string) (credentials.PolicyResult, error)
	CheckEmailAvailability(ctx context.Context, email string) (usecase.Availability, error)
	CheckUsernameAvailability(ctx context.Context, username string) (usecase.Availability, error)
}

type AuthHandler struct {
	authUsecase authUsecaser
	logger      *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		logger:      logger.With("component", "auth_handler"),
	}
}

type signupRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Username  string     `json:"username"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLoginAt,
	}
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	Username    string       `json:"username"`
	User        userResponse `json:"user"`
}

// POST /auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", errInvalidRequest)
		return
	}

	user, err := h.authUsecase.Signup(c.Request.Context(), usecase.SignupInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		respondError(c, h.logger, "signup", err)
		return
	}

	h.logger.InfoContext(c.Request.Context(), "user signed up", "user_id", user.ID)
	c.JSON(http.StatusCreated, toUserResponse(user))
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", errInvalidRequest)
		return
	}

	res, err := h.authUsecase.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, "login", err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		AccessToken: res.Token,
		TokenType:   "bearer",
		ExpiresAt:   res.ExpiresAt,
		Username:    res.User.Username,
		User:        toUserResponse(res.User),
	})
}

// POST /auth/logout (bearer)
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authUsecase.Logout(c.Request.Context(), middleware.RawToken(c)); err != nil {
		respondError(c, h.logger, "logout", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

// GET /auth/me (bearer)
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authUsecase.Me(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.logger, "get current user", err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// GET /auth/verify (bearer)
// Auth has already rejected bad tokens, so reaching here means valid.
func (h *AuthHandler) Verify(c *gin.Context) {
	user, err := h.authUsecase.Me(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.logger, "verify token", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "user": toUserResponse(user)})
}

type passwordPolicyResponse struct {
	Valid        bool            `json:"valid"`
	Errors       []string        `json:"errors"`
	Requirements map[string]bool `json:"requirements"`
}

// POST /auth/check-password-policy
func (h *AuthHandler) CheckPasswordPolicy(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", errInvalidRequest)
		return
	}

	res, err := h.authUsecase.CheckPasswordPolicy(req.Password)
	if err != nil {
		respondError(c, h.logger, "check password policy", err)
		return
	}

	reqs := make(map[string]bool, len(res.Requirements))
	for rule, ok := range res.Requirements {
		reqs[string(rule)] = ok
	}
	c.JSON(http.StatusOK, passwordPolicyResponse{
		Valid:        res.Valid,
		Errors:       res.Messages(),
		Requirements: reqs,
	})
}

// POST /auth/check-email-availability
func (h *AuthHandler) CheckEmailAvailability(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", errInvalidRequest)
		return
	}

	res, err := h.authUsecase.CheckEmailAvailability(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, h.logger, "check email availability", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": res.Value, "is_available": res.Available, "message": res.Message})
}

// POST /auth/check-username-availability
func (h *AuthHandler) CheckUsernameAvailability(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", errInvalidRequest)
		return
	}

	res, err := h.authUsecase.CheckUsernameAvailability(c.Request.Context(), req.Username)
	if err != nil {
		respondError(c, h.logger, "check username availability", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": res.Value, "is_available": res.Available, "message": res.Message})
}
