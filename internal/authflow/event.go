// internal/authflow/event.go
package authflow

import "secureauth-service/internal/domain/auth"

// Event is one state transition input. Events are dispatched strictly in
// the order the machine observes their outcomes; the reducer never blocks
// and never talks to collaborators.
type Event interface {
	isEvent()
}

// Started marks the beginning of a collaborator call.
type Started struct{}

// CredentialsAccepted moves the flow from step 1 to step 2 after the
// backend accepted the email/password pair.
type CredentialsAccepted struct {
	Email string
}

// CodeSent moves the flow to step 3 after a verification code was
// dispatched. Re-dispatching while already at step 3 keeps the step.
type CodeSent struct {
	Method auth.VerificationMethod
	Phone  string
}

// CodeEntered records the code being verified for the duration of the
// step 3 call, so a rejection has something to clear.
type CodeEntered struct {
	Code string
}

// CodeRejected keeps the flow at step 3 with the code field cleared.
type CodeRejected struct {
	Reason string
}

// CodeAccepted completes the password+2FA path.
type CodeAccepted struct {
	Session *auth.Session
}

// BiometricSucceeded completes the biometric shortcut.
type BiometricSucceeded struct {
	Session *auth.Session
}

// SessionRestored re-establishes a session from persisted credentials at
// startup.
type SessionRestored struct {
	Session *auth.Session
}

// Failed resolves a collaborator call that did not succeed. The step is
// left where it was so the user can retry.
type Failed struct {
	Reason string
}

// WentBack steps the flow one step towards the start, keeping everything
// entered so far.
type WentBack struct{}

// LoggedOut resets the flow to its initial state.
type LoggedOut struct{}

func (Started) isEvent()             {}
func (CredentialsAccepted) isEvent() {}
func (CodeSent) isEvent()            {}
func (CodeEntered) isEvent()         {}
func (CodeRejected) isEvent()        {}
func (CodeAccepted) isEvent()        {}
func (BiometricSucceeded) isEvent()  {}
func (SessionRestored) isEvent()     {}
func (Failed) isEvent()              {}
func (WentBack) isEvent()            {}
func (LoggedOut) isEvent()           {}
