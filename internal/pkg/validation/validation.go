// internal/pkg/validation/validation.go
package validation

import (
	"regexp"
	"strings"
)

// Result is a pass/fail verdict with a human-readable reason. Validators
// never return errors; an invalid input is a normal outcome.
type Result struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	codeRe  = regexp.MustCompile(`^[0-9]{6}$`)

	// Phone policy: after stripping spaces and hyphens, an ES number is a
	// +34 / 0034 / 34 prefix followed by exactly 9 digits; anything else
	// must be 10+ digits with an optional leading +.
	phoneESRe       = regexp.MustCompile(`^(\+34|0034|34)[0-9]{9}$`)
	phoneFallbackRe = regexp.MustCompile(`^\+?[0-9]{10,}$`)

	passwordUpperRe  = regexp.MustCompile(`[A-Z]`)
	passwordLowerRe  = regexp.MustCompile(`[a-z]`)
	passwordDigitRe  = regexp.MustCompile(`[0-9]`)
	passwordSymbolRe = regexp.MustCompile(`[@$!%*?&#^()\[\]{}\-_+=.,;:]`)
)

func ok() Result {
	return Result{Valid: true}
}

func fail(reason string) Result {
	return Result{Valid: false, Reason: reason}
}

// Email checks the standard local@domain.tld shape. Empty is invalid.
func Email(value string) Result {
	if value == "" {
		return fail("email is required")
	}
	if !emailRe.MatchString(value) {
		return fail("invalid email format")
	}
	return ok()
}

// Phone accepts digits, spaces, hyphens and a leading +.
func Phone(value string) Result {
	if value == "" {
		return fail("phone is required")
	}
	stripped := strings.NewReplacer(" ", "", "-", "").Replace(value)
	if phoneESRe.MatchString(stripped) || phoneFallbackRe.MatchString(stripped) {
		return ok()
	}
	return fail("invalid phone format (e.g. +34 600 123 456)")
}

// Code checks for exactly 6 ASCII digits.
func Code(value string) Result {
	if value == "" {
		return fail("verification code is required")
	}
	if len(value) != 6 {
		return fail("code must be 6 digits")
	}
	if !codeRe.MatchString(value) {
		return fail("code must contain only digits")
	}
	return ok()
}

// LoginPassword applies the lenient login policy: at least 6 characters.
func LoginPassword(value string) Result {
	if value == "" {
		return fail("password is required")
	}
	if len(value) < 6 {
		return fail("password must be at least 6 characters")
	}
	return ok()
}

// RegistrationPassword applies the strict signup policy: at least 8
// characters with upper case, lower case, a digit and a symbol. This is a
// distinct policy from LoginPassword and must not replace it.
func RegistrationPassword(value string) Result {
	if value == "" {
		return fail("password is required")
	}
	if len(value) < 8 {
		return fail("password must be at least 8 characters")
	}
	if !passwordUpperRe.MatchString(value) ||
		!passwordLowerRe.MatchString(value) ||
		!passwordDigitRe.MatchString(value) ||
		!passwordSymbolRe.MatchString(value) {
		return fail("password needs upper case, lower case, a number and a symbol")
	}
	return ok()
}
