package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"reelhouse.org/internal/ids"
)

// Memory implements Store in-process, for DSN-less runs and tests.
type Memory struct {
	mu     sync.RWMutex
	users  map[string]*User
	tokens map[string]*Token // keyed by scope + ":" + hash
	now    func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty identity store.
func NewMemory() *Memory {
	return &Memory{
		users:  make(map[string]*User),
		tokens: make(map[string]*Token),
		now:    time.Now,
	}
}

func (m *Memory) Create(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicateEmail
		}
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	u.CreatedAt = m.now().UTC()
	u.Version = 1

	stored := *u
	stored.Permissions = append([]string(nil), u.Permissions...)
	m.users[u.ID] = &stored
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (m *Memory) GetByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) Update(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != u.Version {
		return ErrEditConflict
	}
	next := *u
	next.Permissions = append([]string(nil), u.Permissions...)
	next.Version = stored.Version + 1
	m.users[u.ID] = &next
	u.Version = next.Version
	return nil
}

func (m *Memory) CreateToken(ctx context.Context, tok *Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *tok
	m.tokens[tok.Scope+":"+tok.Hash] = &stored
	return nil
}

func (m *Memory) GetToken(ctx context.Context, scope, hash string) (*Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tok, ok := m.tokens[scope+":"+hash]
	if !ok {
		return nil, ErrNotFound
	}
	out := *tok
	return &out, nil
}

func (m *Memory) DeleteTokensForUser(ctx context.Context, scope, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, tok := range m.tokens {
		if tok.Scope == scope && tok.UserID == userID {
			delete(m.tokens, key)
		}
	}
	return nil
}

func copyUser(u *User) *User {
	out := *u
	out.Permissions = append([]string(nil), u.Permissions...)
	return &out
}
