// Package credentials holds the password policy, password hashing and the
// format rules for the identifiers a user signs up with.
package credentials

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type Rule string

const (
	RuleMinLength Rule = "min_length"
	RuleMaxLength Rule = "max_length"
	RuleUppercase Rule = "has_uppercase"
	RuleLowercase Rule = "has_lowercase"
	RuleNumber    Rule = "has_number"
	RuleSpecial   Rule = "has_special"
	RuleNotCommon Rule = "not_common"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128

	// SpecialCharacters is the symbol set accepted by the has_special rule.
	SpecialCharacters = `!@#$%^&*(),.?":{}|<>`
)

var commonPasswords = map[string]struct{}{
	"password":  {},
	"12345678":  {},
	"qwerty123": {},
	"admin123":  {},
}

// Rules lists every rule in the order violations are reported.
var Rules = []Rule{
	RuleMinLength,
	RuleMaxLength,
	RuleUppercase,
	RuleLowercase,
	RuleNumber,
	RuleSpecial,
	RuleNotCommon,
}

var ruleMessages = map[Rule]string{
	RuleMinLength: "Password must be at least 8 characters long",
	RuleMaxLength: "Password must be less than 128 characters long",
	RuleUppercase: "Password must contain at least one uppercase letter",
	RuleLowercase: "Password must contain at least one lowercase letter",
	RuleNumber:    "Password must contain at least one number",
	RuleSpecial:   `Password must contain at least one special character (!@#$%^&*(),.?":{}|<>)`,
	RuleNotCommon: "Password is too common. Please choose a stronger password",
}

// Message returns the user-facing description of a failed rule.
func (r Rule) Message() string {
	return ruleMessages[r]
}

type Violation struct {
	Rule    Rule
	Message string
}

type PolicyResult struct {
	Valid        bool
	Violations   []Violation
	Requirements map[Rule]bool
}

// Messages flattens the violations into their display strings.
func (r PolicyResult) Messages() []string {
	out := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		out[i] = v.Message
	}
	return out
}

// Failed reports whether the given rule was violated.
func (r PolicyResult) Failed(rule Rule) bool {
	return !r.Requirements[rule]
}

// CheckPassword evaluates every rule; it never stops at the first failure.
func CheckPassword(password string) PolicyResult {
	length := utf8.RuneCountInString(password)

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case unicode.IsDigit(r) && r < utf8.RuneSelf:
			digit = true
		case strings.ContainsRune(SpecialCharacters, r):
			special = true
		}
	}
	_, common := commonPasswords[strings.ToLower(password)]

	met := map[Rule]bool{
		RuleMinLength: length >= MinPasswordLength,
		RuleMaxLength: length <= MaxPasswordLength,
		RuleUppercase: upper,
		RuleLowercase: lower,
		RuleNumber:    digit,
		RuleSpecial:   special,
		RuleNotCommon: !common,
	}

	result := PolicyResult{Requirements: met}
	for _, rule := range Rules {
		if !met[rule] {
			result.Violations = append(result.Violations, Violation{Rule: rule, Message: rule.Message()})
		}
	}
	result.Valid = len(result.Violations) == 0
	return result
}
