// internal/domain/auth/entity.go
package auth

import "time"

// AuthMethod identifies how a session was established.
type AuthMethod string

const (
	MethodPassword2FA AuthMethod = "password_2fa"
	MethodBiometric   AuthMethod = "biometric"
)

// VerificationMethod is the out-of-band channel for the 2FA code.
type VerificationMethod string

const (
	VerifyByEmail VerificationMethod = "email"
	VerifyBySMS   VerificationMethod = "sms"
)

// Step is the position in the multi-step login flow.
type Step int

const (
	StepCredentials      Step = 1
	StepMethodAndContact Step = 2
	StepCodeVerification Step = 3
)

// Session represents an authenticated principal. A Session exists if and
// only if the flow is in the authenticated state.
type Session struct {
	ID           string                 `json:"id"`
	UserID       string                 `json:"user_id"`
	Email        string                 `json:"email"`
	Name         string                 `json:"name"`
	Role         string                 `json:"role"`
	LastLogin    time.Time              `json:"last_login"`
	AuthMethod   AuthMethod             `json:"auth_method"`
	CredentialID string                 `json:"credential_id,omitempty"` // set for biometric logins, lookup only
	Preferences  map[string]interface{} `json:"preferences,omitempty"`
}

// LoginAttempt is the in-progress form data for the current login.
// It lives in volatile state only and never survives a restart.
type LoginAttempt struct {
	Email  string             `json:"email"`
	Phone  string             `json:"phone"`
	Code   string             `json:"code"`
	Method VerificationMethod `json:"method"`

	// Password is held only between step 1 submit and its collaborator
	// call, never serialized.
	Password string `json:"-"`
}

// StoredUser is the serialized user record kept in the credential store
// so an authenticated session can be restored after a restart.
type StoredUser struct {
	ID          string                 `json:"id"`
	Email       string                 `json:"email"`
	Name        string                 `json:"name"`
	Role        string                 `json:"role"`
	LastLogin   time.Time              `json:"last_login"`
	AuthMethod  AuthMethod             `json:"auth_method"`
	Preferences map[string]interface{} `json:"preferences,omitempty"`
}
