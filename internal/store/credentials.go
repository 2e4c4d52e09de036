// internal/store/credentials.go
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"secureauth-service/internal/domain/auth"
	"secureauth-service/internal/domain/biometric"
	xerrors "secureauth-service/internal/pkg/errors"
)

// Kind names one persisted entry.
type Kind string

const (
	KindToken Kind = "secureauth_token"
	// KindRefreshToken has no writer in this service; it stays in the
	// Kinds list so logout clears it wherever a backend issued one.
	KindRefreshToken Kind = "secureauth_refresh_token"
	KindUser         Kind = "secureauth_user"
	KindBiometric    Kind = "secureauth_biometric_credential"
	KindTrusted      Kind = "secureauth_trusted_devices"
)

// Kinds lists every entry the credential store owns, in ClearAll order.
var Kinds = []Kind{KindToken, KindRefreshToken, KindUser, KindBiometric, KindTrusted}

// CredentialStore is the typed persistence layer for tokens, the user
// record, the biometric credential descriptor and trusted-device
// fingerprints. Malformed stored content is treated as absent and the
// corrupt entry is cleared; corruption never propagates to callers.
type CredentialStore struct {
	backend   PersistentStore
	logger    *zap.Logger
	onCorrupt func(kind Kind)
}

func NewCredentialStore(backend PersistentStore, logger *zap.Logger) *CredentialStore {
	return &CredentialStore{backend: backend, logger: logger}
}

// OnCorrupt registers a callback invoked whenever a corrupt entry is
// discovered and cleared.
func (s *CredentialStore) OnCorrupt(fn func(kind Kind)) {
	s.onCorrupt = fn
}

// ----- tokens (stored raw, not JSON) -----

func (s *CredentialStore) SaveToken(ctx context.Context, token string) error {
	return s.backend.Set(ctx, string(KindToken), token)
}

func (s *CredentialStore) LoadToken(ctx context.Context) (string, bool) {
	v, ok, err := s.backend.Get(ctx, string(KindToken))
	if err != nil {
		s.logger.Warn("failed to read token", zap.Error(err))
		return "", false
	}
	return v, ok && v != ""
}

// ----- user record -----

func (s *CredentialStore) SaveUser(ctx context.Context, user *auth.StoredUser) error {
	return s.save(ctx, KindUser, user)
}

func (s *CredentialStore) LoadUser(ctx context.Context) (*auth.StoredUser, bool) {
	var user auth.StoredUser
	if !s.load(ctx, KindUser, &user) {
		return nil, false
	}
	return &user, true
}

// ----- biometric credential descriptor -----

func (s *CredentialStore) SaveCredential(ctx context.Context, cred *biometric.CredentialDescriptor) error {
	return s.save(ctx, KindBiometric, cred)
}

func (s *CredentialStore) LoadCredential(ctx context.Context) (*biometric.CredentialDescriptor, bool) {
	var cred biometric.CredentialDescriptor
	if !s.load(ctx, KindBiometric, &cred) {
		return nil, false
	}
	return &cred, true
}

// ----- trusted device fingerprints -----

func (s *CredentialStore) TrustedDevices(ctx context.Context) []string {
	var devices []string
	if !s.load(ctx, KindTrusted, &devices) {
		return nil
	}
	return devices
}

func (s *CredentialStore) SaveTrustedDevices(ctx context.Context, devices []string) error {
	return s.save(ctx, KindTrusted, devices)
}

// ----- lifecycle -----

// Clear removes one entry. Clearing an absent entry is a no-op.
func (s *CredentialStore) Clear(ctx context.Context, kind Kind) error {
	return s.backend.Remove(ctx, string(kind))
}

// ClearAll removes every entry; used on logout.
func (s *CredentialStore) ClearAll(ctx context.Context) {
	for _, kind := range Kinds {
		if err := s.backend.Remove(ctx, string(kind)); err != nil {
			s.logger.Warn("failed to clear entry", zap.String("kind", string(kind)), zap.Error(err))
		}
	}
}

// Watch exposes the backend's change feed.
func (s *CredentialStore) Watch(ctx context.Context) (<-chan Change, error) {
	return s.backend.Watch(ctx)
}

// ----- internals -----

func (s *CredentialStore) save(ctx context.Context, kind Kind, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.backend.Set(ctx, string(kind), string(raw))
}

func (s *CredentialStore) load(ctx context.Context, kind Kind, dst interface{}) bool {
	raw, ok, err := s.backend.Get(ctx, string(kind))
	if err != nil {
		s.logger.Warn("failed to read entry", zap.String("kind", string(kind)), zap.Error(err))
		return false
	}
	if !ok || raw == "" {
		return false
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logger.Warn("clearing corrupt entry",
			zap.String("kind", string(kind)),
			zap.Error(fmt.Errorf("%w: %v", xerrors.ErrStorageCorrupt, err)),
		)
		if rmErr := s.backend.Remove(ctx, string(kind)); rmErr != nil {
			s.logger.Warn("failed to clear corrupt entry", zap.Error(rmErr))
		}
		if s.onCorrupt != nil {
			s.onCorrupt(kind)
		}
		return false
	}

	return true
}
