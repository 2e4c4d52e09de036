// internal/domain/auth/dto.go
package auth

import "time"

// CredentialsRequest is the step 1 submit payload.
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SendCodeRequest is the step 2 submit payload.
type SendCodeRequest struct {
	Method VerificationMethod `json:"method" binding:"required"`
	Phone  string             `json:"phone"`
}

// VerifyCodeRequest is the step 3 submit payload.
type VerifyCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// LoginResult is returned by the backend collaborator on a successful
// credential or biometric check.
type LoginResult struct {
	Success     bool        `json:"success"`
	Message     string      `json:"message,omitempty"`
	User        *UserInfo   `json:"user,omitempty"`
	Token       string      `json:"token,omitempty"`
	SessionInfo SessionInfo `json:"session_info,omitempty"`
}

// UserInfo is the backend's view of the authenticated user.
type UserInfo struct {
	ID          string                 `json:"id"`
	Email       string                 `json:"email"`
	Name        string                 `json:"name"`
	Role        string                 `json:"role"`
	Preferences map[string]interface{} `json:"preferences,omitempty"`
}

// SessionInfo carries connection metadata the backend observed.
type SessionInfo struct {
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	LoginAt   time.Time `json:"login_at,omitempty"`
}

// CodeResult is returned by sendCode / verifyCode.
type CodeResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// StateSnapshot is the externally visible flow state.
type StateSnapshot struct {
	Authenticated bool               `json:"authenticated"`
	Step          Step               `json:"step,omitempty"`
	Method        VerificationMethod `json:"method,omitempty"`
	Error         string             `json:"error,omitempty"`
	Session       *Session           `json:"session,omitempty"`
}
