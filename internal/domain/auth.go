package domain

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")

	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenRevoked = errors.New("token has been revoked")
	ErrUnauthorized = errors.New("unauthorized")
)

type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal is the authenticated identity extracted from a verified bearer token.
type Principal struct {
	UserID    string
	Email     string
	Username  string
	TokenHash string
	ExpiresAt time.Time
}

type RevokedToken struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	RevokedAt time.Time
}

// ValidationError reports a rejected field. Violations is populated only for
// password policy failures and lists every rule that failed.
type ValidationError struct {
	Type         string
	Field        string
	Message      string
	Violations   []string
	Requirements map[string]bool
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

const (
	ValidationTypeGeneric          = "validation_error"
	ValidationTypePasswordMismatch = "password_mismatch"
	ValidationTypePasswordPolicy   = "password_policy"
)
