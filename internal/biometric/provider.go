// internal/biometric/provider.go
package biometric

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"go.uber.org/zap"

	domain "secureauth-service/internal/domain/biometric"
	xerrors "secureauth-service/internal/pkg/errors"
	"secureauth-service/internal/store"
)

const ceremonyTimeout = 60 * time.Second

// Config identifies the relying party and the local device.
type Config struct {
	RPID      string // relying-party id: the current origin host
	RPName    string
	UserAgent string // device identity, only used for the trust fingerprint
	Platform  string
}

// Provider wraps the platform credential ceremonies behind register and
// authenticate operations with a closed error taxonomy. It keeps at most
// one credential descriptor per device: registration overwrites any prior
// one.
type Provider struct {
	api    PlatformCredentialAPI
	creds  *store.CredentialStore
	cfg    Config
	logger *zap.Logger
}

func NewProvider(api PlatformCredentialAPI, creds *store.CredentialStore, cfg Config, logger *zap.Logger) *Provider {
	return &Provider{
		api:    api,
		creds:  creds,
		cfg:    cfg,
		logger: logger,
	}
}

// IsSupported reports whether the platform exposes a credential-management
// capability at all.
func (p *Provider) IsSupported() bool {
	return p.api != nil
}

// IsPlatformAuthenticatorAvailable probes for a usable local authenticator.
// A failed probe reads as unavailable.
func (p *Provider) IsPlatformAuthenticatorAvailable(ctx context.Context) bool {
	if !p.IsSupported() {
		return false
	}
	available, err := p.api.Available(ctx)
	if err != nil {
		p.logger.Warn("platform authenticator probe failed", zap.Error(err))
		return false
	}
	return available
}

// Register runs the registration ceremony and persists the resulting
// descriptor, overwriting any prior one.
func (p *Provider) Register(ctx context.Context, user domain.UserInfo) (*domain.CredentialDescriptor, error) {
	if !p.IsSupported() {
		return nil, xerrors.NewBiometricError(xerrors.BiometricUnsupported, "credential management is not supported on this platform")
	}
	if !p.IsPlatformAuthenticatorAvailable(ctx) {
		return nil, xerrors.NewBiometricError(xerrors.BiometricNotAvailable, "no user-verifying platform authenticator is available")
	}

	challenge, err := newChallenge()
	if err != nil {
		return nil, xerrors.NewBiometricError(xerrors.BiometricUnknown, "failed to generate challenge")
	}

	requireResidentKey := false
	options := protocol.PublicKeyCredentialCreationOptions{
		Challenge: challenge,
		RelyingParty: protocol.RelyingPartyEntity{
			CredentialEntity: protocol.CredentialEntity{Name: p.cfg.RPName},
			ID:               p.cfg.RPID,
		},
		User: protocol.UserEntity{
			CredentialEntity: protocol.CredentialEntity{Name: user.Email},
			DisplayName:      user.Name,
			ID:               []byte(user.ID),
		},
		Parameters: []protocol.CredentialParameter{
			{Type: protocol.PublicKeyCredentialType, Algorithm: webauthncose.AlgES256},
			{Type: protocol.PublicKeyCredentialType, Algorithm: webauthncose.AlgRS256},
		},
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			AuthenticatorAttachment: protocol.Platform,
			RequireResidentKey:      &requireResidentKey,
			UserVerification:        protocol.VerificationRequired,
		},
		Timeout:     int(ceremonyTimeout.Milliseconds()),
		Attestation: protocol.PreferDirectAttestation,
	}

	result, err := p.api.Create(ctx, options)
	if err != nil {
		berr := classify(err)
		p.logger.Warn("registration ceremony failed",
			zap.String("code", string(berr.Code)),
		)
		return nil, berr
	}

	descriptor := &domain.CredentialDescriptor{
		ID:                result.ID,
		RawID:             result.RawID,
		Type:              result.Type,
		AttestationObject: result.AttestationObject,
		ClientDataJSON:    result.ClientDataJSON,
		UserID:            user.ID,
		CreatedAt:         time.Now(),
	}

	if err := p.creds.SaveCredential(ctx, descriptor); err != nil {
		return nil, xerrors.NewBiometricError(xerrors.BiometricUnknown, "failed to persist credential")
	}

	p.logger.Info("biometric credential registered",
		zap.String("credential_id", descriptor.ID),
		zap.String("user_id", user.ID),
	)
	return descriptor, nil
}

// Authenticate runs the assertion ceremony against the stored credential.
// It fails fast with NoCredential before any ceremony if none is stored.
func (p *Provider) Authenticate(ctx context.Context) (*domain.AssertionResult, error) {
	if !p.IsSupported() {
		return nil, xerrors.NewBiometricError(xerrors.BiometricUnsupported, "credential management is not supported on this platform")
	}

	cred, ok := p.creds.LoadCredential(ctx)
	if !ok {
		return nil, xerrors.NewBiometricError(xerrors.BiometricNoCredential, "no biometric credential is registered")
	}

	challenge, err := newChallenge()
	if err != nil {
		return nil, xerrors.NewBiometricError(xerrors.BiometricUnknown, "failed to generate challenge")
	}

	options := protocol.PublicKeyCredentialRequestOptions{
		Challenge:      challenge,
		RelyingPartyID: p.cfg.RPID,
		AllowedCredentials: []protocol.CredentialDescriptor{
			{
				Type:         protocol.PublicKeyCredentialType,
				CredentialID: cred.RawID,
				Transport:    []protocol.AuthenticatorTransport{protocol.Internal},
			},
		},
		UserVerification: protocol.VerificationRequired,
		Timeout:          int(ceremonyTimeout.Milliseconds()),
	}

	assertion, err := p.api.Get(ctx, options)
	if err != nil {
		berr := classify(err)
		p.logger.Warn("assertion ceremony failed",
			zap.String("code", string(berr.Code)),
		)
		return nil, berr
	}

	return &domain.AssertionResult{
		CredentialID:      assertion.ID,
		AuthenticatorData: assertion.AuthenticatorData,
		ClientDataJSON:    assertion.ClientDataJSON,
		Signature:         assertion.Signature,
		UserHandle:        assertion.UserHandle,
	}, nil
}

// HasRegisteredCredential reports whether a descriptor is stored.
func (p *Provider) HasRegisteredCredential(ctx context.Context) bool {
	_, ok := p.creds.LoadCredential(ctx)
	return ok
}

// RemoveCredential clears the stored descriptor. Idempotent.
func (p *Provider) RemoveCredential(ctx context.Context) error {
	return p.creds.Clear(ctx, store.KindBiometric)
}

// IsReady reports whether the biometric shortcut can be offered: supported,
// available, and a credential registered.
func (p *Provider) IsReady(ctx context.Context) bool {
	return p.IsSupported() &&
		p.IsPlatformAuthenticatorAvailable(ctx) &&
		p.HasRegisteredCredential(ctx)
}

// DeviceInfo describes the local device's authenticator capabilities.
func (p *Provider) DeviceInfo(ctx context.Context) *domain.DeviceInfo {
	return &domain.DeviceInfo{
		UserAgent:             p.cfg.UserAgent,
		Platform:              p.cfg.Platform,
		CeremoniesSupported:   p.IsSupported(),
		PlatformAuthAvailable: p.IsPlatformAuthenticatorAvailable(ctx),
		Timestamp:             time.Now(),
	}
}

// DeviceFingerprint is an opaque hash of the device identity strings. A UX
// hint only, never a security boundary.
func (p *Provider) DeviceFingerprint() string {
	sum := sha256.Sum256([]byte(p.cfg.UserAgent + p.cfg.Platform))
	return hex.EncodeToString(sum[:])
}

// IsTrustedDevice reports whether the user has flagged this device.
func (p *Provider) IsTrustedDevice(ctx context.Context) bool {
	fp := p.DeviceFingerprint()
	for _, known := range p.creds.TrustedDevices(ctx) {
		if known == fp {
			return true
		}
	}
	return false
}

// TrustDevice adds this device's fingerprint to the trusted list.
// Trusting an already-trusted device is a no-op.
func (p *Provider) TrustDevice(ctx context.Context) error {
	if p.IsTrustedDevice(ctx) {
		return nil
	}
	devices := append(p.creds.TrustedDevices(ctx), p.DeviceFingerprint())
	return p.creds.SaveTrustedDevices(ctx, devices)
}

func newChallenge() (protocol.URLEncodedBase64, error) {
	challenge := make([]byte, 32)
	if _, err := rand.Read(challenge); err != nil {
		return nil, err
	}
	return challenge, nil
}
