package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"reelhouse.org/internal/auth"
)

const (
	activationTTL     = 3 * 24 * time.Hour
	minPasswordLength = 8
	maxNameLength     = 500
)

// Service implements the registration, activation and login flows. It owns
// no token issuance: the caller exchanges an authenticated user for a claim
// set and hands it to the auth issuer.
type Service struct {
	store Store
	now   func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the identity service.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("identity: store is required")
	}
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a user with the default read grant and returns the user
// together with the plaintext activation token. The token is shown once; we
// keep only its hash.
func (s *Service) Register(ctx context.Context, name, email, password string) (*User, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(name) > maxNameLength {
		return nil, "", fmt.Errorf("%w: name must not be more than %d characters long", ErrInvalidInput, maxNameLength)
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, "", err
	}
	if len(password) < minPasswordLength {
		return nil, "", fmt.Errorf("%w: password must be at least %d characters long", ErrInvalidInput, minPasswordLength)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	user := &User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Activated:    false,
		Permissions:  []string{auth.PermMoviesRead},
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, "", err
	}

	plaintext, tok, err := s.newActivationToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	if err := s.store.CreateToken(ctx, tok); err != nil {
		return nil, "", err
	}
	return user, plaintext, nil
}

// Activate confirms the user's email using the one-time token. Repeated
// activation with a consumed token fails with ErrInvalidToken.
func (s *Service) Activate(ctx context.Context, email, plaintext string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(plaintext) == "" {
		return nil, fmt.Errorf("%w: token is required", ErrInvalidInput)
	}

	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	tok, err := s.store.GetToken(ctx, ScopeActivation, hashToken(plaintext))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if tok.UserID != user.ID || s.now().After(tok.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	user.Activated = true
	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}
	if err := s.store.DeleteTokensForUser(ctx, ScopeActivation, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies the credential pair and returns the user. Callers
// must not distinguish "unknown email" from "wrong password".
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrBadCredentials
	}
	if password == "" {
		return nil, ErrBadCredentials
	}
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrBadCredentials
	}
	return user, nil
}

// ClaimsFor builds the user's claim set through the augmentation pipeline.
func (s *Service) ClaimsFor(u *User) auth.ClaimSet {
	base := auth.ClaimSet{Subject: u.ID, Name: u.Email}
	return auth.Augment(base,
		auth.WithPermissions(u.Permissions),
		auth.WithEmailConfirmed(u.Activated),
	)
}

func (s *Service) newActivationToken(userID string) (string, *Token, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, err
	}
	plaintext := base64.RawURLEncoding.EncodeToString(raw)
	tok := &Token{
		Hash:      hashToken(plaintext),
		UserID:    userID,
		Scope:     ScopeActivation,
		ExpiresAt: s.now().Add(activationTTL),
	}
	return plaintext, tok, nil
}

func hashToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	return email, nil
}
