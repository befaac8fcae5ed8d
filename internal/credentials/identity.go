package credentials

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxEmailLength    = 254
	MinUsernameLength = 3
	MaxUsernameLength = 50
)

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9\s._-]+$`)
)

// NormalizeEmail trims and lowercases; emails compare case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

// ValidateEmail expects an already normalized address and returns a
// user-facing message, or "" when the address is acceptable.
func ValidateEmail(email string) string {
	switch {
	case email == "":
		return "Email is required"
	case len(email) > MaxEmailLength:
		return "Email address is too long"
	case !emailPattern.MatchString(email):
		return "Invalid email format"
	}
	return ""
}

// ValidateUsername expects an already normalized username.
func ValidateUsername(username string) string {
	n := utf8.RuneCountInString(username)
	switch {
	case n == 0:
		return "Username is required"
	case n < MinUsernameLength:
		return "Username must be at least 3 characters long"
	case n > MaxUsernameLength:
		return "Username must be at most 50 characters long"
	case !usernamePattern.MatchString(username):
		return "Username can only contain letters, numbers, spaces, dots, underscores, and hyphens"
	}
	return ""
}
