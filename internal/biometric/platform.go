// internal/biometric/platform.go
package biometric

import (
	"context"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"

	xerrors "secureauth-service/internal/pkg/errors"
)

// PlatformCredentialAPI abstracts the platform's public-key-credential
// ceremony primitives (the WebAuthn create/get pair plus the
// user-verifying-authenticator probe). Implementations talk to the real
// authenticator stack; tests use a fake.
type PlatformCredentialAPI interface {
	// Create runs the registration ceremony.
	Create(ctx context.Context, options protocol.PublicKeyCredentialCreationOptions) (*CreationResult, error)
	// Get runs the assertion ceremony.
	Get(ctx context.Context, options protocol.PublicKeyCredentialRequestOptions) (*AssertionData, error)
	// Available probes for a usable local (fingerprint/face) authenticator.
	Available(ctx context.Context) (bool, error)
}

// CreationResult is the raw outcome of a registration ceremony.
type CreationResult struct {
	ID                string
	RawID             []byte
	Type              string
	AttestationObject []byte
	ClientDataJSON    []byte
}

// AssertionData is the raw outcome of an assertion ceremony.
type AssertionData struct {
	ID                string
	RawID             []byte
	AuthenticatorData []byte
	ClientDataJSON    []byte
	Signature         []byte
	UserHandle        []byte
}

// CeremonyError carries the platform's native error name (DOMException
// style: NotAllowedError, SecurityError, ...). It exists only at the
// platform boundary; classify turns it into the closed taxonomy.
type CeremonyError struct {
	Name    string
	Message string
}

func (e *CeremonyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// classify maps a platform failure onto the closed BiometricError
// taxonomy. The native error never travels past this point.
func classify(err error) *xerrors.BiometricError {
	ce, ok := err.(*CeremonyError)
	if !ok {
		return xerrors.NewBiometricError(xerrors.BiometricUnknown, err.Error())
	}

	switch ce.Name {
	case "NotAllowedError":
		return xerrors.NewBiometricError(xerrors.BiometricUserCancelled, "the user dismissed the prompt")
	case "NotSupportedError":
		return xerrors.NewBiometricError(xerrors.BiometricNotSupported, ce.Message)
	case "SecurityError":
		return xerrors.NewBiometricError(xerrors.BiometricSecurityViolation, ce.Message)
	case "InvalidStateError":
		return xerrors.NewBiometricError(xerrors.BiometricAlreadyRegistered, ce.Message)
	default:
		return xerrors.NewBiometricError(xerrors.BiometricUnknown, ce.Message)
	}
}
