// internal/authflow/reducer.go
package authflow

import "secureauth-service/internal/domain/auth"

// Reduce applies one event to a state and returns the next state. It is
// pure: no IO, no clocks, no mutation of its input. Events that make no
// sense for the current state leave it unchanged.
func Reduce(s State, e Event) State {
	switch ev := e.(type) {
	case Started:
		if s.Status == StatusAuthenticated {
			return s
		}
		s.Status = StatusAuthenticating
		s.Err = ""
		return s

	case CredentialsAccepted:
		if s.Status == StatusAuthenticated {
			return s
		}
		s.Status = StatusUnauthenticated
		s.Step = auth.StepMethodAndContact
		s.Attempt.Email = ev.Email
		s.Attempt.Password = ""
		s.Err = ""
		return s

	case CodeSent:
		if s.Status == StatusAuthenticated {
			return s
		}
		s.Status = StatusUnauthenticated
		s.Step = auth.StepCodeVerification
		s.Attempt.Method = ev.Method
		s.Attempt.Phone = ev.Phone
		s.Err = ""
		return s

	case CodeEntered:
		if s.Status == StatusAuthenticated {
			return s
		}
		s.Attempt.Code = ev.Code
		return s

	case CodeRejected:
		if s.Status == StatusAuthenticated {
			return s
		}
		s.Status = StatusUnauthenticated
		s.Attempt.Code = ""
		s.Err = ev.Reason
		return s

	case CodeAccepted:
		return authenticated(ev.Session)

	case BiometricSucceeded:
		return authenticated(ev.Session)

	case SessionRestored:
		return authenticated(ev.Session)

	case Failed:
		if s.Status == StatusAuthenticated {
			return s
		}
		s.Status = StatusUnauthenticated
		s.Attempt.Password = ""
		s.Err = ev.Reason
		return s

	case WentBack:
		if s.Status != StatusUnauthenticated || s.Step <= auth.StepCredentials {
			return s
		}
		s.Step--
		s.Err = ""
		return s

	case LoggedOut:
		return Initial()
	}

	return s
}

func authenticated(session *auth.Session) State {
	if session == nil {
		return Initial()
	}
	return State{
		Status:  StatusAuthenticated,
		Step:    auth.StepCredentials,
		Method:  auth.VerifyByEmail,
		Session: session,
	}
}
