// internal/biometric/simulated.go
package biometric

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"

	"github.com/go-webauthn/webauthn/protocol"
)

// SimulatedPlatform fabricates ceremony results in-process. It stands in
// for the real authenticator stack the same way the original demo stands
// in for a production backend: the shapes are right, the cryptography is
// not verified by anyone.
type SimulatedPlatform struct {
	Unavailable bool
	// FailWith, when set, makes every ceremony fail with this error name
	// (DOMException style, e.g. "NotAllowedError").
	FailWith string

	rawID []byte
}

func NewSimulatedPlatform() *SimulatedPlatform {
	return &SimulatedPlatform{rawID: randomBytes(16)}
}

func (s *SimulatedPlatform) Available(_ context.Context) (bool, error) {
	return !s.Unavailable, nil
}

func (s *SimulatedPlatform) Create(_ context.Context, options protocol.PublicKeyCredentialCreationOptions) (*CreationResult, error) {
	if s.FailWith != "" {
		return nil, &CeremonyError{Name: s.FailWith, Message: "simulated ceremony failure"}
	}

	clientData, _ := json.Marshal(map[string]string{
		"type":      "webauthn.create",
		"challenge": base64.RawURLEncoding.EncodeToString(options.Challenge),
		"origin":    "https://" + options.RelyingParty.ID,
	})

	return &CreationResult{
		ID:                base64.RawURLEncoding.EncodeToString(s.rawID),
		RawID:             s.rawID,
		Type:              string(protocol.PublicKeyCredentialType),
		AttestationObject: randomBytes(64),
		ClientDataJSON:    clientData,
	}, nil
}

func (s *SimulatedPlatform) Get(_ context.Context, options protocol.PublicKeyCredentialRequestOptions) (*AssertionData, error) {
	if s.FailWith != "" {
		return nil, &CeremonyError{Name: s.FailWith, Message: "simulated ceremony failure"}
	}
	if len(options.AllowedCredentials) == 0 {
		return nil, &CeremonyError{Name: "NotAllowedError", Message: "no allowed credentials"}
	}

	rawID := []byte(options.AllowedCredentials[0].CredentialID)
	clientData, _ := json.Marshal(map[string]string{
		"type":      "webauthn.get",
		"challenge": base64.RawURLEncoding.EncodeToString(options.Challenge),
		"origin":    "https://" + options.RelyingPartyID,
	})

	return &AssertionData{
		ID:                base64.RawURLEncoding.EncodeToString(rawID),
		RawID:             rawID,
		AuthenticatorData: randomBytes(37),
		ClientDataJSON:    clientData,
		Signature:         randomBytes(72),
	}, nil
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	rand.Read(b)
	return b
}
