package movies

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Service defines catalog operations. Mutations are optimistic: Update
// commits only when the caller's expected version matches the stored one.
type Service interface {
	Create(ctx context.Context, m Movie) (Movie, error)
	Get(ctx context.Context, id int64) (Movie, error)
	List(ctx context.Context, q Query) ([]Movie, error)
	Update(ctx context.Context, id int64, expectedVersion int32, patch Patch) (Movie, error)
	Delete(ctx context.Context, id int64) error
}

// InMemory implements Service with in-process concurrency safety. Used for
// DSN-less runs and handler tests; the Postgres store is the durable
// implementation.
type InMemory struct {
	mu     sync.RWMutex
	movies map[int64]*Movie
	nextID int64
	now    func() time.Time
}

// NewInMemory creates an empty catalog.
func NewInMemory() *InMemory {
	return &InMemory{
		movies: make(map[int64]*Movie),
		now:    time.Now,
	}
}

// WithClock overrides the time source. Only intended for tests.
func (s *InMemory) WithClock(fn func() time.Time) *InMemory {
	if fn != nil {
		s.now = fn
	}
	return s
}

func (s *InMemory) Create(ctx context.Context, m Movie) (Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	m.ID = s.nextID
	m.CreatedAt = s.now().UTC()
	m.Version = 1
	m.Genres = append([]string(nil), m.Genres...)

	stored := m
	s.movies[m.ID] = &stored
	return m, nil
}

func (s *InMemory) Get(ctx context.Context, id int64) (Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.movies[id]
	if !ok {
		return Movie{}, ErrNotFound
	}
	return copyMovie(m), nil
}

func (s *InMemory) List(ctx context.Context, q Query) ([]Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Movie, 0, len(s.movies))
	for _, m := range s.movies {
		if !MatchesTitle(m.Title, q.Title) {
			continue
		}
		if !MatchesGenres(m.Genres, q.Genres) {
			continue
		}
		matched = append(matched, copyMovie(m))
	}

	sortMovies(matched, q)

	offset := q.Offset()
	if offset >= len(matched) {
		return []Movie{}, nil
	}
	end := offset + q.Limit()
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (s *InMemory) Update(ctx context.Context, id int64, expectedVersion int32, patch Patch) (Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.movies[id]
	if !ok {
		return Movie{}, ErrNotFound
	}
	if m.Version != expectedVersion {
		return Movie{}, ErrEditConflict
	}

	patch.apply(m)
	m.Version++
	return copyMovie(m), nil
}

func (s *InMemory) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.movies[id]; !ok {
		return ErrNotFound
	}
	delete(s.movies, id)
	return nil
}

func copyMovie(m *Movie) Movie {
	out := *m
	out.Genres = append([]string(nil), m.Genres...)
	return out
}

func sortMovies(list []Movie, q Query) {
	column := q.SortColumn()
	desc := q.SortDescending()
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if desc {
			a, b = b, a
		}
		switch column {
		case "title":
			if a.Title != b.Title {
				return strings.ToLower(a.Title) < strings.ToLower(b.Title)
			}
		case "year":
			if a.Year != b.Year {
				return a.Year < b.Year
			}
		case "runtime":
			if a.Runtime != b.Runtime {
				return a.Runtime < b.Runtime
			}
		}
		// Stable fallback order on id.
		return a.ID < b.ID
	})
}
