package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"reelhouse.org/internal/ids"
)

const pgErrUniqueViolation = "23505"

// PGStore implements Store using PostgreSQL. Permission grants live in a
// jsonb column on the users row.
type PGStore struct {
	db *sql.DB
}

var _ Store = (*PGStore)(nil)

// NewPGStore wraps an existing connection pool.
func NewPGStore(db *sql.DB) *PGStore { return &PGStore{db: db} }

func (s *PGStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	perms, err := json.Marshal(u.Permissions)
	if err != nil {
		return err
	}
	row := s.db.QueryRowContext(ctx, `
		insert into users (id, name, email, password_hash, activated, permissions)
		values ($1, $2, $3, $4, $5, $6)
		returning created_at, version`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Activated, perms,
	)
	if err := row.Scan(&u.CreatedAt, &u.Version); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, created_at, name, email, password_hash, activated, permissions, version
		from users where id = $1`, id,
	)
	return scanUser(row)
}

func (s *PGStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, created_at, name, email, password_hash, activated, permissions, version
		from users where lower(email) = lower($1)`, email,
	)
	return scanUser(row)
}

func (s *PGStore) Update(ctx context.Context, u *User) error {
	perms, err := json.Marshal(u.Permissions)
	if err != nil {
		return err
	}
	row := s.db.QueryRowContext(ctx, `
		update users
		set name = $1, email = $2, password_hash = $3, activated = $4,
		    permissions = $5, version = version + 1
		where id = $6 and version = $7
		returning version`,
		u.Name, u.Email, u.PasswordHash, u.Activated, perms, u.ID, u.Version,
	)
	if err := row.Scan(&u.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			probe := s.db.QueryRowContext(ctx, `select exists(select 1 from users where id = $1)`, u.ID)
			if scanErr := probe.Scan(&exists); scanErr != nil {
				return scanErr
			}
			if exists {
				return ErrEditConflict
			}
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *PGStore) CreateToken(ctx context.Context, tok *Token) error {
	_, err := s.db.ExecContext(ctx, `
		insert into tokens (hash, user_id, scope, expires_at)
		values ($1, $2, $3, $4)`,
		tok.Hash, tok.UserID, tok.Scope, tok.ExpiresAt,
	)
	return err
}

func (s *PGStore) GetToken(ctx context.Context, scope, hash string) (*Token, error) {
	row := s.db.QueryRowContext(ctx, `
		select hash, user_id, scope, expires_at
		from tokens where scope = $1 and hash = $2`, scope, hash,
	)
	var tok Token
	if err := row.Scan(&tok.Hash, &tok.UserID, &tok.Scope, &tok.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tok, nil
}

func (s *PGStore) DeleteTokensForUser(ctx context.Context, scope, userID string) error {
	_, err := s.db.ExecContext(ctx, `delete from tokens where scope = $1 and user_id = $2`, scope, userID)
	return err
}

func scanUser(row *sql.Row) (*User, error) {
	var (
		u     User
		perms []byte
	)
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Name, &u.Email, &u.PasswordHash, &u.Activated, &perms, &u.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(perms, &u.Permissions); err != nil {
		return nil, err
	}
	return &u, nil
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
