// internal/backend/backend.go
package backend

import (
	"context"

	"secureauth-service/internal/domain/auth"
	"secureauth-service/internal/domain/biometric"
)

// AuthBackend is the external login/verification collaborator. A rejected
// attempt comes back as an unsuccessful result; an error means the call
// itself failed (network, timeout) and may be retried by the user.
type AuthBackend interface {
	// Login checks credentials and, on success, returns the user and a
	// bearer token.
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
	// SendCode dispatches a verification code over the chosen channel.
	SendCode(ctx context.Context, method auth.VerificationMethod, contact string) (*auth.CodeResult, error)
	// VerifyCode checks a previously dispatched code.
	VerifyCode(ctx context.Context, code string, method auth.VerificationMethod, contact string) (*auth.CodeResult, error)
	// BiometricLogin exchanges a ceremony assertion for a session.
	BiometricLogin(ctx context.Context, userID string, assertion *biometric.AssertionResult) (*auth.LoginResult, error)
	// Logout tells the backend the session ended. Best-effort.
	Logout(ctx context.Context) error
}
