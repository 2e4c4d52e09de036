// internal/service/login/login.go
package login

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"secureauth-service/internal/authflow"
	"secureauth-service/internal/biometric"
	"secureauth-service/internal/domain/auth"
	domainbio "secureauth-service/internal/domain/biometric"
	xerrors "secureauth-service/internal/pkg/errors"
	"secureauth-service/internal/pkg/validation"
)

// Level classifies a user-facing notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notifier receives the transient messages a login attempt produces. The
// HTTP layer forwards them to the client; tests capture them.
type Notifier interface {
	Notify(level Level, message string)
}

// Field names one form input.
type Field string

const (
	FieldEmail    Field = "email"
	FieldPassword Field = "password"
	FieldPhone    Field = "phone"
	FieldCode     Field = "code"
	FieldMethod   Field = "method"
)

// Service orchestrates the login form on top of the flow machine: it owns
// the field values, validates each field as it changes, routes submits to
// whatever the current step needs and turns outcomes into notifications.
// At most one submit runs at a time; further submits are ignored with an
// info notification rather than queued.
type Service struct {
	mu        sync.Mutex
	fields    map[Field]string
	fieldErrs map[Field]string
	loading   bool

	machine  *authflow.Machine
	provider *biometric.Provider
	notifier Notifier
	logger   *zap.Logger
}

func NewService(machine *authflow.Machine, provider *biometric.Provider, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		fields:    map[Field]string{FieldMethod: string(auth.VerifyByEmail)},
		fieldErrs: map[Field]string{},
		machine:   machine,
		provider:  provider,
		notifier:  notifier,
		logger:    logger,
	}
}

// SetField records a field value and validates it immediately so the form
// can surface per-field errors while the user types.
func (s *Service) SetField(field Field, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fields[field] = value
	s.fieldErrs[field] = s.validateField(field, value)
}

// FieldError returns the current validation error for a field, empty when
// the field is valid or untouched.
func (s *Service) FieldError(field Field) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fieldErrs[field]
}

// IsFormValid reports whether the inputs the current step needs are all
// valid. The submit control stays disabled until it is.
func (s *Service) IsFormValid() bool {
	snap := s.machine.State()
	if snap.Authenticated {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch snap.Step {
	case auth.StepCredentials:
		return validation.Email(s.fields[FieldEmail]).Valid &&
			validation.LoginPassword(s.fields[FieldPassword]).Valid
	case auth.StepMethodAndContact:
		if s.fields[FieldMethod] == string(auth.VerifyBySMS) {
			return validation.Phone(s.fields[FieldPhone]).Valid
		}
		return true
	case auth.StepCodeVerification:
		return validation.Code(s.fields[FieldCode]).Valid
	}
	return false
}

// Submit runs whatever the current step needs with the current field
// values. A submit while another is running is dropped with a notice and
// ErrRequestInFlight. Input the machine refuses comes back as a wrapped
// ErrInvalidInput; a rejected attempt is not an error, it surfaces in the
// snapshot.
func (s *Service) Submit(ctx context.Context) (auth.StateSnapshot, error) {
	if !s.beginSubmit() {
		return s.machine.State(), xerrors.ErrRequestInFlight
	}
	defer s.endSubmit()

	snap := s.machine.State()
	if snap.Authenticated {
		return snap, nil
	}

	s.mu.Lock()
	email := s.fields[FieldEmail]
	password := s.fields[FieldPassword]
	method := auth.VerificationMethod(s.fields[FieldMethod])
	phone := s.fields[FieldPhone]
	code := s.fields[FieldCode]
	s.mu.Unlock()

	var err error
	switch snap.Step {
	case auth.StepCredentials:
		snap, err = s.machine.SubmitCredentials(ctx, email, password)
		if err == nil && snap.Step == auth.StepMethodAndContact && snap.Error == "" {
			s.clearField(FieldPassword)
		}
	case auth.StepMethodAndContact:
		snap, err = s.machine.SubmitMethod(ctx, method, phone)
		if err == nil && snap.Step == auth.StepCodeVerification && snap.Error == "" {
			s.notify(LevelSuccess, fmt.Sprintf("verification code sent via %s", method))
		}
	case auth.StepCodeVerification:
		snap, err = s.machine.SubmitCode(ctx, code)
		if err == nil && snap.Error != "" {
			s.clearField(FieldCode)
		}
	}

	return s.resolve(snap, err)
}

// Resend re-dispatches the verification code at step 3.
func (s *Service) Resend(ctx context.Context) (auth.StateSnapshot, error) {
	if !s.beginSubmit() {
		return s.machine.State(), xerrors.ErrRequestInFlight
	}
	defer s.endSubmit()

	snap, err := s.machine.ResendCode(ctx)
	if err == nil && snap.Error == "" {
		s.notify(LevelInfo, "verification code resent")
	}
	return s.resolve(snap, err)
}

// BiometricLogin runs the biometric shortcut.
func (s *Service) BiometricLogin(ctx context.Context) (auth.StateSnapshot, error) {
	if !s.beginSubmit() {
		return s.machine.State(), xerrors.ErrRequestInFlight
	}
	defer s.endSubmit()

	snap, err := s.machine.BiometricLogin(ctx)
	return s.resolve(snap, err)
}

// RegisterBiometric enrolls the authenticated user's device. It requires
// an authenticated session: the credential must belong to someone.
func (s *Service) RegisterBiometric(ctx context.Context) (*domainbio.CredentialDescriptor, error) {
	snap := s.machine.State()
	if !snap.Authenticated || snap.Session == nil {
		return nil, fmt.Errorf("%w: sign in before registering a biometric credential", xerrors.ErrUnauthorized)
	}

	descriptor, err := s.machine.RegisterBiometric(ctx, domainbio.UserInfo{
		ID:    snap.Session.UserID,
		Email: snap.Session.Email,
		Name:  snap.Session.Name,
	})
	if err != nil {
		s.notify(LevelError, biometricRegisterMessage(err))
		return nil, err
	}

	s.notify(LevelSuccess, "biometric sign-in enabled on this device")
	return descriptor, nil
}

// CanGoBack reports whether a back navigation is currently possible.
func (s *Service) CanGoBack() bool {
	snap := s.machine.State()
	return !snap.Authenticated && snap.Step > auth.StepCredentials
}

// GoBack steps towards step 1. Field values survive so the user finds
// everything as they left it.
func (s *Service) GoBack() auth.StateSnapshot {
	return s.machine.GoBack()
}

// Logout ends the session and resets the form.
func (s *Service) Logout(ctx context.Context) auth.StateSnapshot {
	snap := s.machine.Logout(ctx)

	s.mu.Lock()
	s.fields = map[Field]string{FieldMethod: string(auth.VerifyByEmail)}
	s.fieldErrs = map[Field]string{}
	s.mu.Unlock()

	s.notify(LevelInfo, "signed out")
	return snap
}

// State exposes the flow snapshot.
func (s *Service) State() auth.StateSnapshot {
	return s.machine.State()
}

// BiometricReady reports whether the biometric shortcut can be offered.
func (s *Service) BiometricReady(ctx context.Context) bool {
	return s.provider != nil && s.provider.IsReady(ctx)
}

// ----- internals -----

func (s *Service) validateField(field Field, value string) string {
	var res validation.Result
	switch field {
	case FieldEmail:
		res = validation.Email(value)
	case FieldPassword:
		res = validation.LoginPassword(value)
	case FieldPhone:
		res = validation.Phone(value)
	case FieldCode:
		res = validation.Code(value)
	case FieldMethod:
		if value != string(auth.VerifyByEmail) && value != string(auth.VerifyBySMS) {
			return "unknown verification method"
		}
		return ""
	default:
		return ""
	}
	if res.Valid {
		return ""
	}
	return res.Reason
}

func (s *Service) beginSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		s.notify(LevelInfo, "still working on the previous request")
		return false
	}
	s.loading = true
	return true
}

func (s *Service) endSubmit() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

// Loading reports whether a submit is in flight.
func (s *Service) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Service) clearField(field Field) {
	s.mu.Lock()
	delete(s.fields, field)
	delete(s.fieldErrs, field)
	s.mu.Unlock()
}

// resolve turns a machine outcome into notifications, and hands refused
// input back to the caller so the transport can report it.
func (s *Service) resolve(snap auth.StateSnapshot, err error) (auth.StateSnapshot, error) {
	if err != nil {
		if xerrors.Is(err, xerrors.ErrRequestInFlight) {
			s.notify(LevelInfo, "still working on the previous request")
		} else {
			s.notify(LevelError, trimSentinel(err))
		}
		return s.machine.State(), err
	}

	if snap.Error != "" {
		s.notify(LevelError, snap.Error)
		return snap, nil
	}
	if snap.Authenticated && snap.Session != nil {
		s.notify(LevelSuccess, fmt.Sprintf("welcome back, %s", snap.Session.Name))
	}
	return snap, nil
}

func (s *Service) notify(level Level, message string) {
	if s.notifier != nil {
		s.notifier.Notify(level, message)
	}
	s.logger.Debug("notification", zap.String("level", string(level)), zap.String("message", message))
}

// trimSentinel drops the sentinel prefix from wrapped input errors so the
// user sees only the reason.
func trimSentinel(err error) string {
	msg := err.Error()
	if prefix := xerrors.ErrInvalidInput.Error() + ": "; len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}

func biometricRegisterMessage(err error) string {
	switch xerrors.BiometricCodeOf(err) {
	case xerrors.BiometricUserCancelled:
		return "biometric setup was cancelled"
	case xerrors.BiometricNotAvailable:
		return "no biometric authenticator is available on this device"
	case xerrors.BiometricUnsupported, xerrors.BiometricNotSupported:
		return "biometric sign-in is not supported on this device"
	default:
		return "biometric setup failed, please try again"
	}
}
