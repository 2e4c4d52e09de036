package authflow

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"secureauth-service/internal/audit"
	"secureauth-service/internal/biometric"
	"secureauth-service/internal/domain/auth"
	domainbio "secureauth-service/internal/domain/biometric"
	xerrors "secureauth-service/internal/pkg/errors"
	"secureauth-service/internal/pkg/jwt"
	"secureauth-service/internal/store"
)

type fakeBackend struct {
	loginRes  *auth.LoginResult
	loginErr  error
	sendRes   *auth.CodeResult
	sendErr   error
	verifyRes *auth.CodeResult
	bioRes    *auth.LoginResult

	loginCalls  int
	sendCalls   int
	verifyCalls int
	bioCalls    int
	logoutCalls int

	lastContact string
	lastMethod  auth.VerificationMethod
	lastCode    string
	lastUserID  string

	// when block is set, Login and VerifyCode park on it after
	// signalling entered
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeBackend) Login(ctx context.Context, email, password string) (*auth.LoginResult, error) {
	f.loginCalls++
	if f.block != nil {
		f.entered <- struct{}{}
		<-f.block
	}
	return f.loginRes, f.loginErr
}

func (f *fakeBackend) SendCode(ctx context.Context, method auth.VerificationMethod, contact string) (*auth.CodeResult, error) {
	f.sendCalls++
	f.lastMethod = method
	f.lastContact = contact
	return f.sendRes, f.sendErr
}

func (f *fakeBackend) VerifyCode(ctx context.Context, code string, method auth.VerificationMethod, contact string) (*auth.CodeResult, error) {
	f.verifyCalls++
	f.lastCode = code
	f.lastContact = contact
	if f.block != nil {
		f.entered <- struct{}{}
		<-f.block
	}
	return f.verifyRes, nil
}

func (f *fakeBackend) BiometricLogin(ctx context.Context, userID string, assertion *domainbio.AssertionResult) (*auth.LoginResult, error) {
	f.bioCalls++
	f.lastUserID = userID
	return f.bioRes, nil
}

func (f *fakeBackend) Logout(ctx context.Context) error {
	f.logoutCalls++
	return nil
}

func okLogin() *auth.LoginResult {
	return &auth.LoginResult{
		Success: true,
		User:    &auth.UserInfo{ID: "u1", Email: "demo@secureauth-pro.com", Name: "Demo User", Role: "user"},
		Token:   "token-1",
	}
}

type fixture struct {
	machine  *Machine
	backend  *fakeBackend
	creds    *store.CredentialStore
	provider *biometric.Provider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := &fakeBackend{
		loginRes:  okLogin(),
		sendRes:   &auth.CodeResult{Success: true},
		verifyRes: &auth.CodeResult{Success: true},
		bioRes:    okLogin(),
	}
	creds := store.NewCredentialStore(store.NewMemoryStore(), zap.NewNop())
	provider := biometric.NewProvider(
		biometric.NewSimulatedPlatform(),
		creds,
		biometric.Config{RPID: "localhost", RPName: "SecureAuth Pro"},
		zap.NewNop(),
	)
	trail := audit.NewTrail(0, zap.NewNop())
	m := NewMachine(b, creds, provider, trail, time.Second, zap.NewNop())
	return &fixture{machine: m, backend: b, creds: creds, provider: provider}
}

func TestFullPasswordFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	snap, err := f.machine.SubmitCredentials(ctx, "demo@secureauth-pro.com", "secret1")
	if err != nil {
		t.Fatalf("SubmitCredentials: %v", err)
	}
	if snap.Authenticated || snap.Step != auth.StepMethodAndContact {
		t.Fatalf("after step 1: %+v", snap)
	}

	snap, err = f.machine.SubmitMethod(ctx, auth.VerifyBySMS, "+34600123456")
	if err != nil {
		t.Fatalf("SubmitMethod: %v", err)
	}
	if snap.Step != auth.StepCodeVerification {
		t.Fatalf("after step 2: %+v", snap)
	}
	if f.backend.lastContact != "+34600123456" || f.backend.lastMethod != auth.VerifyBySMS {
		t.Fatalf("code dispatched to %q over %q", f.backend.lastContact, f.backend.lastMethod)
	}

	// A rejected code stays at step 3 with the code field cleared.
	f.backend.verifyRes = &auth.CodeResult{Success: false, Message: "invalid verification code"}
	snap, err = f.machine.SubmitCode(ctx, "000000")
	if err != nil {
		t.Fatalf("SubmitCode: %v", err)
	}
	if snap.Authenticated || snap.Step != auth.StepCodeVerification || snap.Error == "" {
		t.Fatalf("rejected code: %+v", snap)
	}
	if f.machine.Attempt().Code != "" {
		t.Fatal("rejected code must be cleared from the attempt")
	}

	f.backend.verifyRes = &auth.CodeResult{Success: true}
	snap, err = f.machine.SubmitCode(ctx, "123456")
	if err != nil {
		t.Fatalf("SubmitCode: %v", err)
	}
	if !snap.Authenticated || snap.Session == nil {
		t.Fatalf("expected authenticated snapshot, got %+v", snap)
	}
	if snap.Session.AuthMethod != auth.MethodPassword2FA || snap.Session.UserID != "u1" {
		t.Fatalf("session wrong: %+v", snap.Session)
	}

	if token, ok := f.creds.LoadToken(ctx); !ok || token != "token-1" {
		t.Fatalf("token not persisted: %q %v", token, ok)
	}
	if user, ok := f.creds.LoadUser(ctx); !ok || user.ID != "u1" {
		t.Fatalf("user record not persisted: %+v %v", user, ok)
	}
}

func TestInvalidInputNeverReachesBackend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.machine.SubmitCredentials(ctx, "not-an-email", "secret1"); !xerrors.Is(err, xerrors.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
	if _, err := f.machine.SubmitCredentials(ctx, "a@b.co", "short"); !xerrors.Is(err, xerrors.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
	if f.backend.loginCalls != 0 {
		t.Fatal("invalid input must not reach the backend")
	}
}

func TestLoginRejectionStaysAtStepOne(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.backend.loginRes = &auth.LoginResult{Success: false, Message: "invalid email or password"}

	snap, err := f.machine.SubmitCredentials(ctx, "demo@secureauth-pro.com", "wrong1")
	if err != nil {
		t.Fatalf("SubmitCredentials: %v", err)
	}
	if snap.Step != auth.StepCredentials || snap.Error != "invalid email or password" {
		t.Fatalf("rejection snapshot: %+v", snap)
	}
}

func TestStepGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.machine.SubmitCode(ctx, "123456"); !xerrors.Is(err, xerrors.ErrInvalidInput) {
		t.Fatalf("SubmitCode at step 1 must be rejected, got %v", err)
	}
	if _, err := f.machine.SubmitMethod(ctx, auth.VerifyByEmail, ""); !xerrors.Is(err, xerrors.ErrInvalidInput) {
		t.Fatalf("SubmitMethod at step 1 must be rejected, got %v", err)
	}
	if _, err := f.machine.ResendCode(ctx); !xerrors.Is(err, xerrors.ErrInvalidInput) {
		t.Fatalf("ResendCode at step 1 must be rejected, got %v", err)
	}
}

func TestEmailMethodUsesStepOneAddress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.machine.SubmitCredentials(ctx, "demo@secureauth-pro.com", "secret1"); err != nil {
		t.Fatalf("SubmitCredentials: %v", err)
	}
	if _, err := f.machine.SubmitMethod(ctx, auth.VerifyByEmail, ""); err != nil {
		t.Fatalf("SubmitMethod: %v", err)
	}
	if f.backend.lastContact != "demo@secureauth-pro.com" {
		t.Fatalf("email dispatch must use the step 1 address, got %q", f.backend.lastContact)
	}
}

func TestResendKeepsStepThree(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.machine.SubmitCredentials(ctx, "demo@secureauth-pro.com", "secret1")
	f.machine.SubmitMethod(ctx, auth.VerifyBySMS, "+34600123456")

	snap, err := f.machine.ResendCode(ctx)
	if err != nil {
		t.Fatalf("ResendCode: %v", err)
	}
	if snap.Step != auth.StepCodeVerification {
		t.Fatalf("resend must keep step 3, got %d", snap.Step)
	}
	if f.backend.sendCalls != 2 {
		t.Fatalf("sendCalls = %d, want 2", f.backend.sendCalls)
	}
}

func TestGoBackKeepsEnteredFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.machine.SubmitCredentials(ctx, "demo@secureauth-pro.com", "secret1")
	f.machine.SubmitMethod(ctx, auth.VerifyBySMS, "+34600123456")

	snap := f.machine.GoBack()
	if snap.Step != auth.StepMethodAndContact {
		t.Fatalf("step after go back = %d", snap.Step)
	}
	attempt := f.machine.Attempt()
	if attempt.Email != "demo@secureauth-pro.com" || attempt.Phone != "+34600123456" {
		t.Fatalf("go back lost fields: %+v", attempt)
	}
}

func TestBiometricShortcut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	descriptor, err := f.provider.Register(ctx, domainbio.UserInfo{ID: "u1", Email: "demo@secureauth-pro.com", Name: "Demo User"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	snap, err := f.machine.BiometricLogin(ctx)
	if err != nil {
		t.Fatalf("BiometricLogin: %v", err)
	}
	if !snap.Authenticated || snap.Session == nil {
		t.Fatalf("expected authenticated snapshot, got %+v", snap)
	}
	if snap.Session.AuthMethod != auth.MethodBiometric || snap.Session.CredentialID != descriptor.ID {
		t.Fatalf("session wrong: %+v", snap.Session)
	}
	if f.backend.lastUserID != "u1" {
		t.Fatalf("backend got user %q, want u1", f.backend.lastUserID)
	}
	if _, ok := f.creds.LoadToken(ctx); !ok {
		t.Fatal("token not persisted after biometric login")
	}
}

func TestSubmitCodeTracksAttemptCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.machine.SubmitCredentials(ctx, "demo@secureauth-pro.com", "secret1")
	f.machine.SubmitMethod(ctx, auth.VerifyByEmail, "")

	f.backend.verifyRes = &auth.CodeResult{Success: false, Message: "invalid verification code"}
	f.backend.block = make(chan struct{})
	f.backend.entered = make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.machine.SubmitCode(ctx, "123456")
	}()
	<-f.backend.entered

	if f.machine.Attempt().Code != "123456" {
		t.Fatalf("code not tracked while verifying: %+v", f.machine.Attempt())
	}

	close(f.backend.block)
	<-done

	if f.machine.Attempt().Code != "" {
		t.Fatal("rejected code must be cleared from the attempt")
	}
}

func TestBiometricOnlyFromStepOne(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.provider.Register(ctx, domainbio.UserInfo{ID: "u1", Email: "demo@secureauth-pro.com", Name: "Demo User"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	f.machine.SubmitCredentials(ctx, "demo@secureauth-pro.com", "secret1")

	if _, err := f.machine.BiometricLogin(ctx); !xerrors.Is(err, xerrors.ErrInvalidInput) {
		t.Fatalf("biometric mid-flow must be rejected, got %v", err)
	}
	if f.backend.bioCalls != 0 {
		t.Fatal("no backend call may happen mid-flow")
	}
}

func TestBiometricWithoutCredentialFailsFast(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	snap, err := f.machine.BiometricLogin(ctx)
	if err != nil {
		t.Fatalf("BiometricLogin: %v", err)
	}
	if snap.Authenticated || snap.Error == "" {
		t.Fatalf("expected failure snapshot, got %+v", snap)
	}
	if f.backend.bioCalls != 0 {
		t.Fatal("no backend call should happen without a stored credential")
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.machine.SubmitCredentials(ctx, "demo@secureauth-pro.com", "secret1")
	f.machine.SubmitMethod(ctx, auth.VerifyBySMS, "+34600123456")
	f.machine.SubmitCode(ctx, "123456")

	snap := f.machine.Logout(ctx)
	if snap.Authenticated || snap.Step != auth.StepCredentials {
		t.Fatalf("logout snapshot: %+v", snap)
	}
	if f.backend.logoutCalls != 1 {
		t.Fatalf("logoutCalls = %d", f.backend.logoutCalls)
	}
	if _, ok := f.creds.LoadToken(ctx); ok {
		t.Fatal("token must be cleared on logout")
	}
	if _, ok := f.creds.LoadUser(ctx); ok {
		t.Fatal("user record must be cleared on logout")
	}
}

func TestRestorePersistedSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tokens := jwt.NewManager(jwt.Config{Secret: "s", Issuer: "i", Audience: "a", TTL: time.Hour})
	token, _, err := tokens.Generate("u1", "demo@secureauth-pro.com", "user", string(auth.MethodPassword2FA))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	f.creds.SaveToken(ctx, token)
	f.creds.SaveUser(ctx, &auth.StoredUser{ID: "u1", Email: "demo@secureauth-pro.com", AuthMethod: auth.MethodPassword2FA})

	if !f.machine.Restore(ctx) {
		t.Fatal("Restore should succeed with a valid persisted session")
	}
	snap := f.machine.State()
	if !snap.Authenticated || snap.Session.UserID != "u1" {
		t.Fatalf("restored snapshot: %+v", snap)
	}
}

func TestRestoreRejectsExpiredToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tokens := jwt.NewManager(jwt.Config{Secret: "s", Issuer: "i", Audience: "a", TTL: -time.Hour})
	token, _, _ := tokens.Generate("u1", "demo@secureauth-pro.com", "user", string(auth.MethodPassword2FA))
	f.creds.SaveToken(ctx, token)
	f.creds.SaveUser(ctx, &auth.StoredUser{ID: "u1"})

	if f.machine.Restore(ctx) {
		t.Fatal("Restore must reject an expired token")
	}
	if _, ok := f.creds.LoadToken(ctx); ok {
		t.Fatal("expired token must be cleared")
	}
	if _, ok := f.creds.LoadUser(ctx); ok {
		t.Fatal("user record must be cleared with an expired token")
	}
}

func TestRestoreClearsPartialSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.creds.SaveToken(ctx, "orphan-token")
	if f.machine.Restore(ctx) {
		t.Fatal("Restore must fail with a token but no user record")
	}
	if _, ok := f.creds.LoadToken(ctx); ok {
		t.Fatal("orphan token must be cleared")
	}
}

func TestSecondSubmitWhileInFlight(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.backend.block = make(chan struct{})
	f.backend.entered = make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.machine.SubmitCredentials(ctx, "demo@secureauth-pro.com", "secret1")
	}()
	<-f.backend.entered

	if _, err := f.machine.SubmitCredentials(ctx, "demo@secureauth-pro.com", "secret1"); !xerrors.Is(err, xerrors.ErrRequestInFlight) {
		t.Fatalf("want ErrRequestInFlight, got %v", err)
	}

	close(f.backend.block)
	<-done
}
