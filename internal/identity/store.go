package identity

import "context"

// Store describes persistence operations required by the identity subsystem.
type Store interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// Update commits only when u.Version matches the stored version and
	// increments it, returning ErrEditConflict otherwise.
	Update(ctx context.Context, u *User) error

	CreateToken(ctx context.Context, tok *Token) error
	GetToken(ctx context.Context, scope, hash string) (*Token, error)
	DeleteTokensForUser(ctx context.Context, scope, userID string) error
}
