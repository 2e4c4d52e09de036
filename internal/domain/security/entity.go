// internal/domain/security/entity.go
package security

import "time"

// EventKind classifies audit entries.
type EventKind string

const (
	EventLoginSuccess      EventKind = "login_success"
	EventLoginFailure      EventKind = "login_failure"
	EventCodeSent          EventKind = "code_sent"
	EventCodeVerified      EventKind = "code_verified"
	EventCodeRejected      EventKind = "code_rejected"
	EventBiometricRegister EventKind = "biometric_register"
	EventBiometricLogin    EventKind = "biometric_login"
	EventBiometricFailure  EventKind = "biometric_failure"
	EventLogout            EventKind = "logout"
	EventStorageCorrupt    EventKind = "storage_corrupt"
	EventDeviceTrusted     EventKind = "device_trusted"
)

// Event is an append-only audit record. The trail keeps the most recent
// entries up to a fixed retention cap.
type Event struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Kind      EventKind              `json:"kind"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
}

// GeoContext is optional location data resolved from the client IP.
type GeoContext struct {
	CountryCode string  `json:"country_code,omitempty"`
	City        string  `json:"city,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
}
