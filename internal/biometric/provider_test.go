package biometric

import (
	"context"
	"testing"

	"github.com/go-webauthn/webauthn/protocol"
	"go.uber.org/zap"

	domain "secureauth-service/internal/domain/biometric"
	xerrors "secureauth-service/internal/pkg/errors"
	"secureauth-service/internal/store"
)

type fakePlatform struct {
	available    bool
	availableErr error
	createErr    error
	getErr       error

	createCalls int
	getCalls    int
	lastRequest *protocol.PublicKeyCredentialRequestOptions
}

func (f *fakePlatform) Create(_ context.Context, options protocol.PublicKeyCredentialCreationOptions) (*CreationResult, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &CreationResult{
		ID:                "cred-abc",
		RawID:             []byte{0xAA, 0xBB},
		Type:              "public-key",
		AttestationObject: []byte("attestation"),
		ClientDataJSON:    []byte(`{"type":"webauthn.create"}`),
	}, nil
}

func (f *fakePlatform) Get(_ context.Context, options protocol.PublicKeyCredentialRequestOptions) (*AssertionData, error) {
	f.getCalls++
	f.lastRequest = &options
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &AssertionData{
		ID:                "cred-abc",
		RawID:             []byte{0xAA, 0xBB},
		AuthenticatorData: []byte("authdata"),
		ClientDataJSON:    []byte(`{"type":"webauthn.get"}`),
		Signature:         []byte("sig"),
	}, nil
}

func (f *fakePlatform) Available(_ context.Context) (bool, error) {
	return f.available, f.availableErr
}

func newTestProvider(api PlatformCredentialAPI) *Provider {
	creds := store.NewCredentialStore(store.NewMemoryStore(), zap.NewNop())
	return NewProvider(api, creds, Config{
		RPID:      "secureauth.example",
		RPName:    "SecureAuth Pro",
		UserAgent: "test-agent",
		Platform:  "test-platform",
	}, zap.NewNop())
}

func TestRegisterRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(&fakePlatform{available: true})

	if p.HasRegisteredCredential(ctx) {
		t.Fatal("no credential should exist before registration")
	}

	cred, err := p.Register(ctx, domain.UserInfo{ID: "usr-1", Email: "u@x.com", Name: "U"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if cred.ID != "cred-abc" || cred.UserID != "usr-1" {
		t.Fatalf("unexpected descriptor: %+v", cred)
	}

	if !p.HasRegisteredCredential(ctx) {
		t.Fatal("HasRegisteredCredential should be true after Register")
	}

	if err := p.RemoveCredential(ctx); err != nil {
		t.Fatalf("RemoveCredential: %v", err)
	}
	if p.HasRegisteredCredential(ctx) {
		t.Fatal("HasRegisteredCredential should be false after RemoveCredential")
	}
	// Second removal is a no-op.
	if err := p.RemoveCredential(ctx); err != nil {
		t.Fatalf("second RemoveCredential should not error: %v", err)
	}
}

func TestRegisterOverwritesPriorCredential(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(&fakePlatform{available: true})

	if _, err := p.Register(ctx, domain.UserInfo{ID: "usr-1"}); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := p.Register(ctx, domain.UserInfo{ID: "usr-2"}); err != nil {
		t.Fatalf("second Register: %v", err)
	}

	cred, ok := p.creds.LoadCredential(ctx)
	if !ok || cred.UserID != "usr-2" {
		t.Fatalf("descriptor should belong to the latest registration, got %+v", cred)
	}
}

func TestAuthenticateWithoutCredentialFailsFast(t *testing.T) {
	fake := &fakePlatform{available: true}
	p := newTestProvider(fake)

	_, err := p.Authenticate(context.Background())
	if xerrors.BiometricCodeOf(err) != xerrors.BiometricNoCredential {
		t.Fatalf("expected NoCredential, got %v", err)
	}
	if fake.getCalls != 0 {
		t.Fatal("the platform ceremony must not be invoked without a stored credential")
	}
}

func TestAuthenticateReferencesStoredRawID(t *testing.T) {
	ctx := context.Background()
	fake := &fakePlatform{available: true}
	p := newTestProvider(fake)

	if _, err := p.Register(ctx, domain.UserInfo{ID: "usr-1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	assertion, err := p.Authenticate(ctx)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if assertion.CredentialID != "cred-abc" || len(assertion.Signature) == 0 {
		t.Fatalf("unexpected assertion: %+v", assertion)
	}

	if fake.lastRequest == nil || len(fake.lastRequest.AllowedCredentials) != 1 {
		t.Fatal("request should reference exactly the stored credential")
	}
	got := fake.lastRequest.AllowedCredentials[0].CredentialID
	if string(got) != string([]byte{0xAA, 0xBB}) {
		t.Fatalf("request raw id = %v, want stored raw id", got)
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name string
		want xerrors.BiometricCode
	}{
		{"NotAllowedError", xerrors.BiometricUserCancelled},
		{"NotSupportedError", xerrors.BiometricNotSupported},
		{"SecurityError", xerrors.BiometricSecurityViolation},
		{"InvalidStateError", xerrors.BiometricAlreadyRegistered},
		{"SomethingElseError", xerrors.BiometricUnknown},
	}
	for _, c := range cases {
		p := newTestProvider(&fakePlatform{
			available: true,
			createErr: &CeremonyError{Name: c.name, Message: "boom"},
		})
		_, err := p.Register(context.Background(), domain.UserInfo{ID: "u"})
		if got := xerrors.BiometricCodeOf(err); got != c.want {
			t.Errorf("%s classified as %s, want %s", c.name, got, c.want)
		}
	}
}

func TestUnsupportedPlatform(t *testing.T) {
	p := newTestProvider(nil)

	if p.IsSupported() {
		t.Fatal("nil platform API should read as unsupported")
	}
	_, err := p.Register(context.Background(), domain.UserInfo{ID: "u"})
	if xerrors.BiometricCodeOf(err) != xerrors.BiometricUnsupported {
		t.Fatalf("expected Unsupported, got %v", err)
	}
}

func TestAvailabilityProbeFailureReadsAsUnavailable(t *testing.T) {
	p := newTestProvider(&fakePlatform{
		availableErr: &CeremonyError{Name: "UnknownError", Message: "probe broke"},
	})
	if p.IsPlatformAuthenticatorAvailable(context.Background()) {
		t.Fatal("a failed probe must read as unavailable")
	}
}

func TestTrustDevice(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(&fakePlatform{available: true})

	if p.IsTrustedDevice(ctx) {
		t.Fatal("device should not be trusted initially")
	}
	if err := p.TrustDevice(ctx); err != nil {
		t.Fatalf("TrustDevice: %v", err)
	}
	if !p.IsTrustedDevice(ctx) {
		t.Fatal("device should be trusted after TrustDevice")
	}

	// Trusting twice does not duplicate the fingerprint.
	if err := p.TrustDevice(ctx); err != nil {
		t.Fatalf("second TrustDevice: %v", err)
	}
	if got := len(p.creds.TrustedDevices(ctx)); got != 1 {
		t.Fatalf("trusted list has %d entries, want 1", got)
	}
}
