// internal/backend/simulated.go
package backend

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"secureauth-service/internal/domain/auth"
	"secureauth-service/internal/domain/biometric"
	xerrors "secureauth-service/internal/pkg/errors"
	"secureauth-service/internal/pkg/jwt"
)

const codeTTL = 5 * time.Minute

// SimulatedBackend implements AuthBackend without any real upstream: a
// seeded user table, bcrypt checks, in-memory verification codes and
// artificial latency. It is the Go counterpart of the original demo's
// fake API client.
type SimulatedBackend struct {
	mu      sync.Mutex
	users   map[string]*demoUser // keyed by email
	byID    map[string]*demoUser
	codes   map[string]issuedCode // keyed by contact
	latency time.Duration

	tokens *jwt.Manager
	logger *zap.Logger
}

type demoUser struct {
	ID           string
	Email        string
	Name         string
	Role         string
	PasswordHash []byte
	Preferences  map[string]interface{}
}

type issuedCode struct {
	code      string
	expiresAt time.Time
}

// Seed describes one demo account.
type Seed struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// DefaultSeeds are the accounts the demo ships with.
var DefaultSeeds = []Seed{
	{Email: "admin@secureauth-pro.com", Password: "admin123", Name: "Ada Admin", Role: "admin"},
	{Email: "demo@secureauth-pro.com", Password: "secret1", Name: "Demo User", Role: "user"},
}

func NewSimulatedBackend(seeds []Seed, latency time.Duration, tokens *jwt.Manager, logger *zap.Logger) (*SimulatedBackend, error) {
	b := &SimulatedBackend{
		users:   make(map[string]*demoUser),
		byID:    make(map[string]*demoUser),
		codes:   make(map[string]issuedCode),
		latency: latency,
		tokens:  tokens,
		logger:  logger,
	}

	for _, seed := range seeds {
		hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash seed password: %w", err)
		}
		user := &demoUser{
			ID:           uuid.NewString(),
			Email:        seed.Email,
			Name:         seed.Name,
			Role:         seed.Role,
			PasswordHash: hash,
			Preferences:  map[string]interface{}{"theme": "dark", "language": "en"},
		}
		b.users[seed.Email] = user
		b.byID[user.ID] = user
	}

	return b, nil
}

func (b *SimulatedBackend) Login(ctx context.Context, email, password string) (*auth.LoginResult, error) {
	if err := b.simulateNetwork(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	user, ok := b.users[email]
	b.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return &auth.LoginResult{Success: false, Message: "invalid email or password"}, nil
	}

	token, _, err := b.tokens.Generate(user.ID, user.Email, user.Role, string(auth.MethodPassword2FA))
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &auth.LoginResult{
		Success: true,
		User: &auth.UserInfo{
			ID:          user.ID,
			Email:       user.Email,
			Name:        user.Name,
			Role:        user.Role,
			Preferences: user.Preferences,
		},
		Token:       token,
		SessionInfo: auth.SessionInfo{LoginAt: time.Now()},
	}, nil
}

func (b *SimulatedBackend) SendCode(ctx context.Context, method auth.VerificationMethod, contact string) (*auth.CodeResult, error) {
	if err := b.simulateNetwork(ctx); err != nil {
		return nil, err
	}
	if contact == "" {
		return &auth.CodeResult{Success: false, Message: "no contact for verification"}, nil
	}

	code, err := randomCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	b.mu.Lock()
	b.codes[contact] = issuedCode{code: code, expiresAt: time.Now().Add(codeTTL)}
	b.mu.Unlock()

	// There is no real SMS/email channel; the code lands in the log.
	b.logger.Info("verification code dispatched",
		zap.String("method", string(method)),
		zap.String("contact", contact),
		zap.String("code", code),
	)

	return &auth.CodeResult{Success: true}, nil
}

func (b *SimulatedBackend) VerifyCode(ctx context.Context, code string, method auth.VerificationMethod, contact string) (*auth.CodeResult, error) {
	if err := b.simulateNetwork(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	issued, ok := b.codes[contact]
	if ok && issued.code == code && time.Now().Before(issued.expiresAt) {
		delete(b.codes, contact)
		b.mu.Unlock()
		return &auth.CodeResult{Success: true}, nil
	}
	b.mu.Unlock()

	if ok && time.Now().After(issued.expiresAt) {
		return &auth.CodeResult{Success: false, Message: "verification code expired"}, nil
	}
	return &auth.CodeResult{Success: false, Message: "invalid verification code"}, nil
}

func (b *SimulatedBackend) BiometricLogin(ctx context.Context, userID string, assertion *biometric.AssertionResult) (*auth.LoginResult, error) {
	if err := b.simulateNetwork(ctx); err != nil {
		return nil, err
	}
	if assertion == nil || len(assertion.Signature) == 0 {
		return &auth.LoginResult{Success: false, Message: "missing assertion"}, nil
	}

	b.mu.Lock()
	user, ok := b.byID[userID]
	b.mu.Unlock()
	if !ok {
		return &auth.LoginResult{Success: false, Message: "unknown credential owner"}, nil
	}

	token, _, err := b.tokens.Generate(user.ID, user.Email, user.Role, string(auth.MethodBiometric))
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &auth.LoginResult{
		Success: true,
		User: &auth.UserInfo{
			ID:          user.ID,
			Email:       user.Email,
			Name:        user.Name,
			Role:        user.Role,
			Preferences: user.Preferences,
		},
		Token:       token,
		SessionInfo: auth.SessionInfo{LoginAt: time.Now()},
	}, nil
}

func (b *SimulatedBackend) Logout(ctx context.Context) error {
	return b.simulateNetwork(ctx)
}

// UserByEmail exposes seeded users so biometric registration can attach a
// credential to a real account.
func (b *SimulatedBackend) UserByEmail(email string) (*auth.UserInfo, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	user, ok := b.users[email]
	if !ok {
		return nil, false
	}
	return &auth.UserInfo{ID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role}, true
}

// simulateNetwork sleeps for the configured latency, honoring ctx so
// caller-side timeouts surface as retryable failures.
func (b *SimulatedBackend) simulateNetwork(ctx context.Context) error {
	if b.latency <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(b.latency):
		return nil
	case <-ctx.Done():
		return xerrors.Wrap(xerrors.ErrTimeout, "backend call cancelled")
	}
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
