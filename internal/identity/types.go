package identity

import (
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("identity: not found")
	ErrDuplicateEmail = errors.New("identity: email already registered")
	ErrInvalidInput   = errors.New("identity: invalid input")
	ErrInvalidToken   = errors.New("identity: invalid or expired activation token")
	ErrBadCredentials = errors.New("identity: invalid credentials")
	ErrEditConflict   = errors.New("identity: edit conflict")
)

// User is a registered caller. Email doubles as the login name and is unique
// case-insensitively. Activated drives the email_confirmed claim; the
// version column makes user updates optimistic like movie records.
type User struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Activated    bool      `json:"activated"`
	Permissions  []string  `json:"-"`
	Version      int32     `json:"-"`
}

// Token scopes.
const ScopeActivation = "activation"

// Token is a stored one-time secret. Only the SHA-256 hash of the plaintext
// is persisted.
type Token struct {
	Hash      string
	UserID    string
	Scope     string
	ExpiresAt time.Time
}
