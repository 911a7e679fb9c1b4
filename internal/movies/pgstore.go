package movies

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PGStore implements Service using PostgreSQL. Genres are stored as jsonb;
// title search uses the 'simple' full-text configuration so matching is
// token-based, not substring-based.
type PGStore struct {
	db *sql.DB
}

var _ Service = (*PGStore)(nil)

// Open connects to PostgreSQL and tunes the pool.
func Open(dsn string) (*PGStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &PGStore{db: db}, nil
}

// NewPGStore wraps an existing connection pool.
func NewPGStore(db *sql.DB) *PGStore { return &PGStore{db: db} }

func (s *PGStore) Close() error { return s.db.Close() }

func (s *PGStore) DB() *sql.DB { return s.db }

func (s *PGStore) Create(ctx context.Context, m Movie) (Movie, error) {
	genres, err := json.Marshal(m.Genres)
	if err != nil {
		return Movie{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		insert into movies (title, year, runtime, genres)
		values ($1, $2, $3, $4)
		returning id, created_at, version`,
		m.Title, m.Year, m.Runtime, genres,
	)
	if err := row.Scan(&m.ID, &m.CreatedAt, &m.Version); err != nil {
		return Movie{}, err
	}
	return m, nil
}

func (s *PGStore) Get(ctx context.Context, id int64) (Movie, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, created_at, title, year, runtime, genres, version
		from movies where id = $1`, id,
	)
	m, err := scanMovie(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Movie{}, ErrNotFound
	}
	if err != nil {
		return Movie{}, err
	}
	return m, nil
}

func (s *PGStore) List(ctx context.Context, q Query) ([]Movie, error) {
	var (
		conds []string
		args  []any
	)
	if q.Title != "" {
		args = append(args, q.Title)
		conds = append(conds, fmt.Sprintf(
			"to_tsvector('simple', title) @@ plainto_tsquery('simple', $%d)", len(args)))
	}
	if len(q.Genres) > 0 {
		var genreConds []string
		for _, g := range q.Genres {
			one, err := json.Marshal([]string{g})
			if err != nil {
				return nil, err
			}
			args = append(args, one)
			genreConds = append(genreConds, fmt.Sprintf("genres @> $%d::jsonb", len(args)))
		}
		conds = append(conds, "("+strings.Join(genreConds, " or ")+")")
	}

	where := ""
	if len(conds) > 0 {
		where = "where " + strings.Join(conds, " and ")
	}

	direction := "asc"
	if q.SortDescending() {
		direction = "desc"
	}
	args = append(args, q.Limit())
	limitArg := len(args)
	args = append(args, q.Offset())
	offsetArg := len(args)

	// Sort column comes from the compiled plan's closed safelist, never from
	// raw input.
	query := fmt.Sprintf(`
		select id, created_at, title, year, runtime, genres, version
		from movies %s
		order by %s %s, id asc
		limit $%d offset $%d`,
		where, q.SortColumn(), direction, limitArg, offsetArg,
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movies := []Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

func (s *PGStore) Update(ctx context.Context, id int64, expectedVersion int32, patch Patch) (Movie, error) {
	var genres any
	if patch.Genres != nil {
		data, err := json.Marshal(patch.Genres)
		if err != nil {
			return Movie{}, err
		}
		genres = data
	}

	// The version predicate makes the write compare-and-swap; no row means
	// either the record vanished or someone else won the race.
	row := s.db.QueryRowContext(ctx, `
		update movies
		set title   = coalesce($1, title),
		    year    = coalesce($2, year),
		    runtime = coalesce($3, runtime),
		    genres  = coalesce($4, genres),
		    version = version + 1
		where id = $5 and version = $6
		returning id, created_at, title, year, runtime, genres, version`,
		patch.Title, patch.Year, patch.Runtime, genres, id, expectedVersion,
	)
	m, err := scanMovie(row)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		probe := s.db.QueryRowContext(ctx, `select exists(select 1 from movies where id = $1)`, id)
		if scanErr := probe.Scan(&exists); scanErr != nil {
			return Movie{}, scanErr
		}
		if exists {
			return Movie{}, ErrEditConflict
		}
		return Movie{}, ErrNotFound
	}
	if err != nil {
		return Movie{}, err
	}
	return m, nil
}

func (s *PGStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from movies where id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovie(row rowScanner) (Movie, error) {
	var (
		m      Movie
		genres []byte
	)
	if err := row.Scan(&m.ID, &m.CreatedAt, &m.Title, &m.Year, &m.Runtime, &genres, &m.Version); err != nil {
		return Movie{}, err
	}
	if err := json.Unmarshal(genres, &m.Genres); err != nil {
		return Movie{}, err
	}
	return m, nil
}
