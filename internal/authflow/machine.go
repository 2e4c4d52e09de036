// internal/authflow/machine.go
package authflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"secureauth-service/internal/audit"
	"secureauth-service/internal/backend"
	"secureauth-service/internal/biometric"
	"secureauth-service/internal/domain/auth"
	domainbio "secureauth-service/internal/domain/biometric"
	"secureauth-service/internal/domain/security"
	xerrors "secureauth-service/internal/pkg/errors"
	"secureauth-service/internal/pkg/jwt"
	"secureauth-service/internal/pkg/validation"
	"secureauth-service/internal/store"
)

// DefaultCallTimeout bounds every backend collaborator call made by the
// machine.
const DefaultCallTimeout = 30 * time.Second

// Machine owns the flow state and all collaborator calls. Transitions are
// applied in dispatch order under a single mutex; at most one collaborator
// call is in flight at a time, a second submit fails with
// ErrRequestInFlight instead of queuing.
type Machine struct {
	mu       sync.Mutex
	state    State
	inFlight bool

	// pending holds the step 1 outcome until the 2FA code verifies. A
	// session is only created, and credentials only persisted, once the
	// whole flow succeeds.
	pendingUser  *auth.UserInfo
	pendingToken string

	backend  backend.AuthBackend
	creds    *store.CredentialStore
	provider *biometric.Provider
	trail    *audit.Trail
	timeout  time.Duration
	logger   *zap.Logger
}

func NewMachine(b backend.AuthBackend, creds *store.CredentialStore, provider *biometric.Provider, trail *audit.Trail, timeout time.Duration, logger *zap.Logger) *Machine {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Machine{
		state:    Initial(),
		backend:  b,
		creds:    creds,
		provider: provider,
		trail:    trail,
		timeout:  timeout,
		logger:   logger,
	}
}

// State returns the externally visible flow state.
func (m *Machine) State() auth.StateSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Snapshot()
}

// Attempt returns a copy of the in-progress form data. The password is
// never retained, so it is always blank here.
func (m *Machine) Attempt() auth.LoginAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Attempt
}

// SubmitCredentials runs step 1. Invalid input is rejected before any
// collaborator call; a rejected or failed login surfaces in the snapshot's
// error and leaves the flow at step 1.
func (m *Machine) SubmitCredentials(ctx context.Context, email, password string) (auth.StateSnapshot, error) {
	if v := validation.Email(email); !v.Valid {
		return m.State(), fmt.Errorf("%w: %s", xerrors.ErrInvalidInput, v.Reason)
	}
	if v := validation.LoginPassword(password); !v.Valid {
		return m.State(), fmt.Errorf("%w: %s", xerrors.ErrInvalidInput, v.Reason)
	}

	if err := m.begin(auth.StepCredentials); err != nil {
		return m.State(), err
	}

	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	res, err := m.backend.Login(cctx, email, password)
	if err != nil {
		m.record(security.EventLoginFailure, map[string]interface{}{"email": email, "error": err.Error()}, "")
		return m.finish(Failed{Reason: failureMessage(err)}), nil
	}
	if !res.Success {
		m.record(security.EventLoginFailure, map[string]interface{}{"email": email, "reason": res.Message}, "")
		return m.finish(Failed{Reason: res.Message}), nil
	}

	m.mu.Lock()
	m.pendingUser = res.User
	m.pendingToken = res.Token
	m.mu.Unlock()

	return m.finish(CredentialsAccepted{Email: email}), nil
}

// SubmitMethod runs step 2: it records the chosen channel and dispatches
// the first verification code. For SMS the phone is required and
// validated; for email the step 1 address is the contact.
func (m *Machine) SubmitMethod(ctx context.Context, method auth.VerificationMethod, phone string) (auth.StateSnapshot, error) {
	if method != auth.VerifyByEmail && method != auth.VerifyBySMS {
		return m.State(), fmt.Errorf("%w: unknown verification method %q", xerrors.ErrInvalidInput, method)
	}
	if method == auth.VerifyBySMS {
		if v := validation.Phone(phone); !v.Valid {
			return m.State(), fmt.Errorf("%w: %s", xerrors.ErrInvalidInput, v.Reason)
		}
	}

	if err := m.begin(auth.StepMethodAndContact); err != nil {
		return m.State(), err
	}

	contact := m.contactFor(method, phone)
	if snap, ok := m.dispatchCode(ctx, method, contact, false); !ok {
		return snap, nil
	}
	return m.finish(CodeSent{Method: method, Phone: phone}), nil
}

// ResendCode re-dispatches a code over the already-chosen channel. The
// flow stays at step 3.
func (m *Machine) ResendCode(ctx context.Context) (auth.StateSnapshot, error) {
	if err := m.begin(auth.StepCodeVerification); err != nil {
		return m.State(), err
	}

	m.mu.Lock()
	method := m.state.Attempt.Method
	phone := m.state.Attempt.Phone
	m.mu.Unlock()

	contact := m.contactFor(method, phone)
	if snap, ok := m.dispatchCode(ctx, method, contact, true); !ok {
		return snap, nil
	}
	return m.finish(CodeSent{Method: method, Phone: phone}), nil
}

// SubmitCode runs step 3. A rejected code clears the code field and keeps
// the flow at step 3; an accepted code creates the session and persists
// the token and user record.
func (m *Machine) SubmitCode(ctx context.Context, code string) (auth.StateSnapshot, error) {
	if v := validation.Code(code); !v.Valid {
		return m.State(), fmt.Errorf("%w: %s", xerrors.ErrInvalidInput, v.Reason)
	}

	if err := m.begin(auth.StepCodeVerification); err != nil {
		return m.State(), err
	}

	m.mu.Lock()
	m.state = Reduce(m.state, CodeEntered{Code: code})
	method := m.state.Attempt.Method
	phone := m.state.Attempt.Phone
	user := m.pendingUser
	token := m.pendingToken
	m.mu.Unlock()

	if user == nil {
		return m.finish(Failed{Reason: "no login in progress"}), nil
	}

	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	contact := m.contactFor(method, phone)
	res, err := m.backend.VerifyCode(cctx, code, method, contact)
	if err != nil {
		return m.finish(Failed{Reason: failureMessage(err)}), nil
	}
	if !res.Success {
		m.record(security.EventCodeRejected, map[string]interface{}{"method": string(method)}, "")
		return m.finish(CodeRejected{Reason: res.Message}), nil
	}

	session := m.establishSession(ctx, user, token, auth.MethodPassword2FA, "")
	m.record(security.EventCodeVerified, map[string]interface{}{"method": string(method)}, session.ID)
	m.record(security.EventLoginSuccess, map[string]interface{}{"email": user.Email, "auth_method": string(auth.MethodPassword2FA)}, session.ID)
	return m.finish(CodeAccepted{Session: session}), nil
}

// BiometricLogin runs the assertion ceremony and exchanges the result for
// a session, skipping steps 2 and 3. The shortcut is only offered at
// step 1; mid-flow the user goes back first. On any failure the flow
// stays where it was with the classified message in the snapshot's error.
func (m *Machine) BiometricLogin(ctx context.Context) (auth.StateSnapshot, error) {
	if m.provider == nil {
		return m.State(), fmt.Errorf("%w: biometric login is not configured", xerrors.ErrInvalidInput)
	}

	if err := m.begin(auth.StepCredentials); err != nil {
		return m.State(), err
	}

	descriptor, ok := m.creds.LoadCredential(ctx)
	if !ok {
		m.record(security.EventBiometricFailure, map[string]interface{}{"code": string(xerrors.BiometricNoCredential)}, "")
		return m.finish(Failed{Reason: "no biometric credential is registered on this device"}), nil
	}

	assertion, err := m.provider.Authenticate(ctx)
	if err != nil {
		code := xerrors.BiometricCodeOf(err)
		m.record(security.EventBiometricFailure, map[string]interface{}{"code": string(code)}, "")
		return m.finish(Failed{Reason: biometricMessage(code)}), nil
	}

	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	res, err := m.backend.BiometricLogin(cctx, descriptor.UserID, assertion)
	if err != nil {
		m.record(security.EventBiometricFailure, map[string]interface{}{"error": err.Error()}, "")
		return m.finish(Failed{Reason: failureMessage(err)}), nil
	}
	if !res.Success {
		m.record(security.EventBiometricFailure, map[string]interface{}{"reason": res.Message}, "")
		return m.finish(Failed{Reason: res.Message}), nil
	}

	session := m.establishSession(ctx, res.User, res.Token, auth.MethodBiometric, descriptor.ID)
	m.record(security.EventBiometricLogin, map[string]interface{}{"credential_id": descriptor.ID}, session.ID)
	m.record(security.EventLoginSuccess, map[string]interface{}{"email": res.User.Email, "auth_method": string(auth.MethodBiometric)}, session.ID)
	return m.finish(BiometricSucceeded{Session: session}), nil
}

// GoBack steps towards step 1, keeping everything entered so far. A no-op
// at step 1 or once authenticated.
func (m *Machine) GoBack() auth.StateSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight {
		return m.state.Snapshot()
	}
	m.state = Reduce(m.state, WentBack{})
	return m.state.Snapshot()
}

// Logout tells the backend (best-effort), clears every persisted entry and
// resets the flow. Logging out while unauthenticated still clears storage.
func (m *Machine) Logout(ctx context.Context) auth.StateSnapshot {
	m.mu.Lock()
	sessionID := ""
	if m.state.Session != nil {
		sessionID = m.state.Session.ID
	}
	m.mu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.backend.Logout(cctx); err != nil {
		m.logger.Warn("backend logout failed", zap.Error(err))
	}

	m.creds.ClearAll(ctx)
	m.record(security.EventLogout, nil, sessionID)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingUser = nil
	m.pendingToken = ""
	m.state = Reduce(m.state, LoggedOut{})
	return m.state.Snapshot()
}

// Restore rebuilds an authenticated session from persisted credentials at
// startup. An expired token, or a token/user pair with a half missing, is
// cleared and the flow stays unauthenticated. Corrupt entries were already
// cleared by the store on load.
func (m *Machine) Restore(ctx context.Context) bool {
	token, haveToken := m.creds.LoadToken(ctx)
	user, haveUser := m.creds.LoadUser(ctx)

	if !haveToken || !haveUser {
		if haveToken != haveUser {
			m.logger.Warn("partial persisted session, clearing")
			m.clearSessionEntries(ctx)
		}
		return false
	}

	if jwt.IsExpired(token) {
		m.logger.Info("clearing persisted session", zap.Error(xerrors.ErrSessionExpired))
		m.clearSessionEntries(ctx)
		return false
	}

	session := &auth.Session{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Role:        user.Role,
		LastLogin:   user.LastLogin,
		AuthMethod:  user.AuthMethod,
		Preferences: user.Preferences,
	}

	m.mu.Lock()
	m.state = Reduce(m.state, SessionRestored{Session: session})
	m.mu.Unlock()

	m.logger.Info("session restored", zap.String("user_id", user.ID))
	return true
}

// ----- internals -----

// begin claims the in-flight slot and dispatches Started. It rejects calls
// made from the wrong step or after authentication.
func (m *Machine) begin(step auth.Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Status == StatusAuthenticated {
		return fmt.Errorf("%w: already authenticated", xerrors.ErrInvalidInput)
	}
	if m.state.Step != step {
		return fmt.Errorf("%w: flow is at step %d, not %d", xerrors.ErrInvalidInput, m.state.Step, step)
	}
	if m.inFlight {
		return xerrors.ErrRequestInFlight
	}
	m.inFlight = true
	m.state = Reduce(m.state, Started{})
	return nil
}

// finish releases the in-flight slot and applies the outcome event.
func (m *Machine) finish(e Event) auth.StateSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight = false
	m.state = Reduce(m.state, e)
	return m.state.Snapshot()
}

// dispatchCode sends a verification code. On failure it resolves the
// in-flight call itself and returns ok=false; the caller must not apply
// another event.
func (m *Machine) dispatchCode(ctx context.Context, method auth.VerificationMethod, contact string, resend bool) (auth.StateSnapshot, bool) {
	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	res, err := m.backend.SendCode(cctx, method, contact)
	if err != nil {
		return m.finish(Failed{Reason: failureMessage(err)}), false
	}
	if !res.Success {
		return m.finish(Failed{Reason: res.Message}), false
	}

	m.record(security.EventCodeSent, map[string]interface{}{
		"method":  string(method),
		"contact": contact,
		"resend":  resend,
	}, "")
	return auth.StateSnapshot{}, true
}

func (m *Machine) contactFor(method auth.VerificationMethod, phone string) string {
	if method == auth.VerifyBySMS {
		return phone
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Attempt.Email
}

// establishSession builds the session and persists the token and user
// record. Persistence failures are logged, not fatal: the in-memory
// session is still valid for this run.
func (m *Machine) establishSession(ctx context.Context, user *auth.UserInfo, token string, method auth.AuthMethod, credentialID string) *auth.Session {
	now := time.Now()
	session := &auth.Session{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		Email:        user.Email,
		Name:         user.Name,
		Role:         user.Role,
		LastLogin:    now,
		AuthMethod:   method,
		CredentialID: credentialID,
		Preferences:  user.Preferences,
	}

	if err := m.creds.SaveToken(ctx, token); err != nil {
		m.logger.Warn("failed to persist token", zap.Error(err))
	}
	stored := &auth.StoredUser{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Role:        user.Role,
		LastLogin:   now,
		AuthMethod:  method,
		Preferences: user.Preferences,
	}
	if err := m.creds.SaveUser(ctx, stored); err != nil {
		m.logger.Warn("failed to persist user record", zap.Error(err))
	}

	m.mu.Lock()
	m.pendingUser = nil
	m.pendingToken = ""
	m.mu.Unlock()

	return session
}

func (m *Machine) clearSessionEntries(ctx context.Context) {
	if err := m.creds.Clear(ctx, store.KindToken); err != nil {
		m.logger.Warn("failed to clear token", zap.Error(err))
	}
	if err := m.creds.Clear(ctx, store.KindUser); err != nil {
		m.logger.Warn("failed to clear user record", zap.Error(err))
	}
}

func (m *Machine) record(kind security.EventKind, detail map[string]interface{}, sessionID string) {
	if m.trail != nil {
		m.trail.Record(kind, detail, sessionID)
	}
}

func failureMessage(err error) string {
	if xerrors.Is(err, xerrors.ErrTimeout) {
		return "the request timed out, please try again"
	}
	return "the request failed, please try again"
}

func biometricMessage(code xerrors.BiometricCode) string {
	switch code {
	case xerrors.BiometricUserCancelled:
		return "biometric verification was cancelled"
	case xerrors.BiometricNoCredential:
		return "no biometric credential is registered on this device"
	case xerrors.BiometricNotAvailable:
		return "no biometric authenticator is available on this device"
	case xerrors.BiometricUnsupported, xerrors.BiometricNotSupported:
		return "biometric authentication is not supported on this device"
	case xerrors.BiometricSecurityViolation:
		return "biometric verification was blocked for security reasons"
	default:
		return "biometric verification failed, please try again"
	}
}

// RegisterBiometric runs the registration ceremony for the given account
// and records the outcome. Exposed here so registration shares the
// machine's in-flight guard with login.
func (m *Machine) RegisterBiometric(ctx context.Context, user domainbio.UserInfo) (*domainbio.CredentialDescriptor, error) {
	if m.provider == nil {
		return nil, fmt.Errorf("%w: biometric registration is not configured", xerrors.ErrInvalidInput)
	}

	m.mu.Lock()
	if m.inFlight {
		m.mu.Unlock()
		return nil, xerrors.ErrRequestInFlight
	}
	m.inFlight = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.inFlight = false
		m.mu.Unlock()
	}()

	descriptor, err := m.provider.Register(ctx, user)
	if err != nil {
		code := xerrors.BiometricCodeOf(err)
		m.record(security.EventBiometricFailure, map[string]interface{}{"code": string(code), "phase": "register"}, "")
		return nil, err
	}

	m.record(security.EventBiometricRegister, map[string]interface{}{"credential_id": descriptor.ID, "user_id": user.ID}, "")
	return descriptor, nil
}
