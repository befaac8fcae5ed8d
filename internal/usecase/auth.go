package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ErlanBelekov/snapdocs/internal/credentials"
	"github.com/ErlanBelekov/snapdocs/internal/domain"
	"github.com/ErlanBelekov/snapdocs/internal/email"
	"github.com/ErlanBelekov/snapdocs/internal/metrics"
	"github.com/ErlanBelekov/snapdocs/internal/repository"
	"github.com/ErlanBelekov/snapdocs/internal/token"
)

// PasswordHasher is satisfied by *credentials.Hasher.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

type AuthUsecase struct {
	users       repository.UserRepository
	revocations repository.RevocationRepository
	tokens      *token.Manager
	hasher      PasswordHasher
	email       email.Sender
	logger      *slog.Logger
	now         func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthUsecase(
	users repository.UserRepository,
	revocations repository.RevocationRepository,
	tokens *token.Manager,
	hasher PasswordHasher,
	emailSender email.Sender,
	logger *slog.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		users:       users,
		revocations: revocations,
		tokens:      tokens,
		hasher:      hasher,
		email:       emailSender,
		logger:      logger.With("component", "auth_usecase"),
		now:         time.Now,
	}
}

type SignupInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Signup stops at the first failing validation step.
func (u *AuthUsecase) Signup(ctx context.Context, input SignupInput) (*domain.User, error) {
	emailAddr := credentials.NormalizeEmail(input.Email)
	username := credentials.NormalizeUsername(input.Username)

	if emailAddr == "" || username == "" || input.Password == "" || input.ConfirmPassword == "" {
		return nil, u.rejectSignup(&domain.ValidationError{
			Type:    domain.ValidationTypeGeneric,
			Field:   "required_fields",
			Message: "All required fields must be provided",
		})
	}
	if msg := credentials.ValidateEmail(emailAddr); msg != "" {
		return nil, u.rejectSignup(&domain.ValidationError{Type: domain.ValidationTypeGeneric, Field: "email", Message: msg})
	}
	if msg := credentials.ValidateUsername(username); msg != "" {
		return nil, u.rejectSignup(&domain.ValidationError{Type: domain.ValidationTypeGeneric, Field: "username", Message: msg})
	}
	if input.Password != input.ConfirmPassword {
		return nil, u.rejectSignup(&domain.ValidationError{
			Type:    domain.ValidationTypePasswordMismatch,
			Field:   "confirm_password",
			Message: "Passwords do not match",
		})
	}

	policy := credentials.CheckPassword(input.Password)
	if !policy.Valid {
		for _, v := range policy.Violations {
			metrics.PasswordPolicyViolationsTotal.WithLabelValues(string(v.Rule)).Inc()
		}
		return nil, u.rejectSignup(policyError(policy))
	}

	if err := u.ensureAvailable(ctx, emailAddr, username); err != nil {
		return nil, u.rejectSignup(err)
	}

	hash, err := u.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	created, err := u.users.Create(ctx, &domain.User{
		Email:        emailAddr,
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) || errors.Is(err, domain.ErrUsernameTaken) {
			return nil, u.rejectSignup(err)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	metrics.SignupsTotal.WithLabelValues("created").Inc()

	subject, body := email.Welcome(created.Username)
	if err := u.email.Send(ctx, created.Email, subject, body); err != nil {
		u.logger.WarnContext(ctx, "send welcome email", "user_id", created.ID, "error", err)
	}

	return created, nil
}

// ensureAvailable runs the email and username lookups independently.
func (u *AuthUsecase) ensureAvailable(ctx context.Context, emailAddr, username string) error {
	_, err := u.users.FindByEmail(ctx, emailAddr)
	switch {
	case err == nil:
		return domain.ErrEmailTaken
	case !errors.Is(err, domain.ErrUserNotFound):
		return fmt.Errorf("find user by email: %w", err)
	}

	_, err = u.users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return domain.ErrUsernameTaken
	case !errors.Is(err, domain.ErrUserNotFound):
		return fmt.Errorf("find user by username: %w", err)
	}
	return nil
}

func (u *AuthUsecase) rejectSignup(err error) error {
	metrics.SignupsTotal.WithLabelValues("rejected").Inc()
	return err
}

func policyError(res credentials.PolicyResult) *domain.ValidationError {
	reqs := make(map[string]bool, len(res.Requirements))
	for rule, ok := range res.Requirements {
		reqs[string(rule)] = ok
	}
	return &domain.ValidationError{
		Type:         domain.ValidationTypePasswordPolicy,
		Field:        "password",
		Message:      "Password does not meet security requirements",
		Violations:   res.Messages(),
		Requirements: reqs,
	}
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// Login never reveals which part of the credentials was wrong: unknown email,
// wrong password and a deactivated account all yield ErrInvalidCredentials.
func (u *AuthUsecase) Login(ctx context.Context, emailAddr, password string) (*LoginResult, error) {
	emailAddr = credentials.NormalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return nil, &domain.ValidationError{
			Type:    domain.ValidationTypeGeneric,
			Field:   "required_fields",
			Message: "Email and password are required",
		}
	}

	user, err := u.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// burn a comparison so unknown emails cost the same as wrong passwords
			u.hasher.Compare(u.timingHash(), password)
			metrics.LoginsTotal.WithLabelValues("unknown_email").Inc()
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !u.hasher.Compare(user.PasswordHash, password) {
		metrics.LoginsTotal.WithLabelValues("wrong_password").Inc()
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		metrics.LoginsTotal.WithLabelValues("inactive").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	signed, claims, err := u.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	now := u.now()
	if err := u.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		u.logger.WarnContext(ctx, "update last login", "user_id", user.ID, "error", err)
	} else {
		user.LastLoginAt = &now
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return &LoginResult{Token: signed, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}

func (u *AuthUsecase) timingHash() string {
	u.dummyOnce.Do(func() {
		h, err := u.hasher.Hash("snapdocs-timing-equalizer")
		if err != nil {
			u.logger.Error("precompute timing hash", "error", err)
			return
		}
		u.dummyHash = h
	})
	return u.dummyHash
}

// Logout blacklists the exact token until its own expiry. Revoking an already
// revoked token succeeds.
func (u *AuthUsecase) Logout(ctx context.Context, raw string) error {
	claims, err := u.tokens.Parse(raw)
	if err != nil {
		return err
	}

	p := claims.Principal(raw)
	err = u.revocations.Revoke(ctx, &domain.RevokedToken{
		TokenHash: p.TokenHash,
		UserID:    p.UserID,
		ExpiresAt: p.ExpiresAt,
		RevokedAt: u.now(),
	})
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Verify resolves a bearer token to its principal and the current user record.
func (u *AuthUsecase) Verify(ctx context.Context, raw string) (*domain.Principal, *domain.User, error) {
	p, user, err := u.verify(ctx, raw)
	metrics.TokenVerificationsTotal.WithLabelValues(verifyOutcome(err)).Inc()
	return p, user, err
}

// Authenticate is Verify without the user record, for the bearer middleware.
func (u *AuthUsecase) Authenticate(ctx context.Context, raw string) (*domain.Principal, error) {
	p, _, err := u.Verify(ctx, raw)
	return p, err
}

func (u *AuthUsecase) verify(ctx context.Context, raw string) (*domain.Principal, *domain.User, error) {
	claims, err := u.tokens.Parse(raw)
	if err != nil {
		return nil, nil, err
	}
	p := claims.Principal(raw)

	revoked, err := u.revocations.IsRevoked(ctx, p.TokenHash)
	if err != nil {
		return nil, nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, nil, domain.ErrTokenRevoked
	}

	user, err := u.users.FindByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, domain.ErrUnauthorized
		}
		return nil, nil, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive {
		return nil, nil, domain.ErrUserInactive
	}
	return p, user, nil
}

func verifyOutcome(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, domain.ErrUserInactive):
		return "inactive"
	case errors.Is(err, domain.ErrTokenInvalid), errors.Is(err, domain.ErrUnauthorized):
		return "invalid"
	default:
		return "error"
	}
}

func (u *AuthUsecase) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (u *AuthUsecase) CheckPasswordPolicy(password string) (credentials.PolicyResult, error) {
	if password == "" {
		return credentials.PolicyResult{}, &domain.ValidationError{
			Type:    domain.ValidationTypeGeneric,
			Field:   "password",
			Message: "Password is required",
		}
	}
	return credentials.CheckPassword(password), nil
}

type Availability struct {
	Value     string
	Available bool
	Message   string
}

// CheckEmailAvailability reports a malformed address as unavailable rather
// than as an error; only a missing value is rejected.
func (u *AuthUsecase) CheckEmailAvailability(ctx context.Context, emailAddr string) (Availability, error) {
	emailAddr = credentials.NormalizeEmail(emailAddr)
	if emailAddr == "" {
		return Availability{}, &domain.ValidationError{Type: domain.ValidationTypeGeneric, Field: "email", Message: "Email is required"}
	}
	if msg := credentials.ValidateEmail(emailAddr); msg != "" {
		return Availability{Value: emailAddr, Message: msg}, nil
	}

	_, err := u.users.FindByEmail(ctx, emailAddr)
	switch {
	case err == nil:
		return Availability{Value: emailAddr, Message: "Email is already registered"}, nil
	case errors.Is(err, domain.ErrUserNotFound):
		return Availability{Value: emailAddr, Available: true, Message: "Email is available"}, nil
	default:
		return Availability{}, fmt.Errorf("find user by email: %w", err)
	}
}

func (u *AuthUsecase) CheckUsernameAvailability(ctx context.Context, username string) (Availability, error) {
	username = credentials.NormalizeUsername(username)
	if username == "" {
		return Availability{}, &domain.ValidationError{Type: domain.ValidationTypeGeneric, Field: "username", Message: "Username is required"}
	}
	if msg := credentials.ValidateUsername(username); msg != "" {
		return Availability{Value: username, Message: msg}, nil
	}

	_, err := u.users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return Availability{Value: username, Message: "Username is already taken"}, nil
	case errors.Is(err, domain.ErrUserNotFound):
		return Availability{Value: username, Available: true, Message: "Username is available"}, nil
	default:
		return Availability{}, fmt.Errorf("find user by username: %w", err)
	}
}
