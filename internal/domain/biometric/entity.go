// internal/domain/biometric/entity.go
package biometric

import "time"

// CredentialDescriptor identifies a registered platform credential.
// At most one descriptor is kept per device: registration overwrites
// any prior one.
type CredentialDescriptor struct {
	ID                string    `json:"id"`
	RawID             []byte    `json:"raw_id"`
	Type              string    `json:"type"` // always "public-key"
	AttestationObject []byte    `json:"attestation_object"`
	ClientDataJSON    []byte    `json:"client_data_json"`
	UserID            string    `json:"user_id"` // lookup only, not ownership
	CreatedAt         time.Time `json:"created_at"`
}

// AssertionResult is the normalized outcome of an authentication ceremony.
type AssertionResult struct {
	CredentialID      string `json:"credential_id"`
	AuthenticatorData []byte `json:"authenticator_data"`
	ClientDataJSON    []byte `json:"client_data_json"`
	Signature         []byte `json:"signature"`
	UserHandle        []byte `json:"user_handle,omitempty"`
}

// UserInfo is what registration needs to know about the owning user.
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// DeviceInfo describes the local device's authenticator capabilities.
type DeviceInfo struct {
	UserAgent              string    `json:"user_agent"`
	Platform               string    `json:"platform"`
	CeremoniesSupported    bool      `json:"ceremonies_supported"`
	PlatformAuthAvailable  bool      `json:"platform_auth_available"`
	Timestamp              time.Time `json:"timestamp"`
}
