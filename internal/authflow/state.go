// internal/authflow/state.go
package authflow

import "secureauth-service/internal/domain/auth"

// Status is the coarse position of the flow. Authenticating is transient:
// it only exists while a collaborator call is in flight and always
// resolves back to unauthenticated or authenticated.
type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusAuthenticating  Status = "authenticating"
	StatusAuthenticated   Status = "authenticated"
)

// State is the full flow state. It is a value: Reduce returns a new State
// and never mutates its input. Exactly one of unauthenticated or
// authenticated holds at any time; Step is meaningless once authenticated.
type State struct {
	Status  Status
	Step    auth.Step
	Method  auth.VerificationMethod
	Attempt auth.LoginAttempt
	Session *auth.Session
	Err     string
}

// Initial is the state before any interaction: step 1, email verification
// preselected, nothing entered.
func Initial() State {
	return State{
		Status: StatusUnauthenticated,
		Step:   auth.StepCredentials,
		Method: auth.VerifyByEmail,
	}
}

// Snapshot renders the externally visible view.
func (s State) Snapshot() auth.StateSnapshot {
	snap := auth.StateSnapshot{
		Authenticated: s.Status == StatusAuthenticated,
		Error:         s.Err,
	}
	if snap.Authenticated {
		snap.Session = s.Session
		return snap
	}
	snap.Step = s.Step
	snap.Method = s.Method
	return snap
}
