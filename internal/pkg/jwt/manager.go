// internal/pkg/jwt/manager.go
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// Config holds the token signing parameters.
type Config struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// Claims is the bearer-token payload.
type Claims struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	Role       string `json:"role,omitempty"`
	AuthMethod string `json:"auth_method,omitempty"` // password_2fa or biometric
	jwt.RegisteredClaims
}

// Manager issues and verifies HMAC-signed bearer tokens.
type Manager struct {
	cfg Config
}

func NewManager(cfg Config) *Manager {
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &Manager{cfg: cfg}
}

func (m *Manager) TTL() time.Duration {
	return m.cfg.TTL
}

// Generate creates a signed token. Returns the token and its jti.
func (m *Manager) Generate(userID, email, role, authMethod string) (string, string, error) {
	now := time.Now()
	jti := ulid.Make().String()

	claims := &Claims{
		UserID:     userID,
		Email:      email,
		Role:       role,
		AuthMethod: authMethod,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Subject:   userID,
			Audience:  []string{m.cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(m.cfg.Secret))
	return signed, jti, err
}

// Verify validates a token and returns its claims.
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.cfg.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Issuer != m.cfg.Issuer {
		return nil, fmt.Errorf("invalid issuer: expected %s, got %s", m.cfg.Issuer, claims.Issuer)
	}

	return claims, nil
}

// ExpiresAt returns the expiry of a token without verifying its
// signature. Used for refresh-threshold checks on stored tokens.
func ExpiresAt(tokenString string) (time.Time, error) {
	parser := jwt.NewParser()
	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("token has no expiry")
	}
	return claims.ExpiresAt.Time, nil
}

// IsExpired reports whether the token's exp claim has passed. Malformed
// tokens read as expired.
func IsExpired(tokenString string) bool {
	exp, err := ExpiresAt(tokenString)
	if err != nil {
		return true
	}
	return exp.Before(time.Now())
}

// ShouldRefresh reports whether the token is within threshold of expiry.
func ShouldRefresh(tokenString string, threshold time.Duration) bool {
	exp, err := ExpiresAt(tokenString)
	if err != nil {
		return true
	}
	return time.Until(exp) < threshold
}
