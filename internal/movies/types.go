package movies

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	maxTitleLength = 500
	minYear        = 1888
	minGenres      = 1
	maxGenres      = 5
)

var (
	ErrNotFound     = errors.New("movies: not found")
	ErrEditConflict = errors.New("movies: edit conflict")
)

// Movie is a versioned catalog record. Version increments exactly once per
// successful mutation and is the sole concurrency-control token.
type Movie struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Title     string    `json:"title"`
	Year      int32     `json:"year"`
	Runtime   int32     `json:"runtime"`
	Genres    []string  `json:"genres"`
	Version   int32     `json:"version"`
}

// Patch carries a partial update. Pointer fields distinguish "absent" from
// "set to zero value"; a nil Genres slice leaves the stored set untouched.
type Patch struct {
	Title   *string
	Year    *int32
	Runtime *int32
	Genres  []string
}

// ValidationError collects field-level input problems rendered as HTTP 400.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "invalid input"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("invalid input:")
	for _, k := range keys {
		fmt.Fprintf(&b, " %s: %s;", k, e.Fields[k])
	}
	return strings.TrimSuffix(b.String(), ";")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) ok() bool { return e == nil || len(e.Fields) == 0 }

// ValidateMovie checks record invariants. Returns nil when the movie is
// acceptable.
func ValidateMovie(m Movie, now time.Time) *ValidationError {
	var v ValidationError

	title := strings.TrimSpace(m.Title)
	if title == "" {
		v.add("title", "must be provided")
	} else if len(m.Title) > maxTitleLength {
		v.add("title", fmt.Sprintf("must not be more than %d characters long", maxTitleLength))
	}

	if m.Year < minYear {
		v.add("year", fmt.Sprintf("must be %d or later", minYear))
	} else if int(m.Year) > now.Year() {
		v.add("year", "must not be in the future")
	}

	if m.Runtime <= 0 {
		v.add("runtime", "must be a positive integer")
	}

	if len(m.Genres) < minGenres {
		v.add("genres", "must contain at least 1 genre")
	} else if len(m.Genres) > maxGenres {
		v.add("genres", fmt.Sprintf("must not contain more than %d genres", maxGenres))
	} else {
		seen := make(map[string]struct{}, len(m.Genres))
		for _, g := range m.Genres {
			if strings.TrimSpace(g) == "" {
				v.add("genres", "must not contain empty values")
				break
			}
			if _, ok := seen[g]; ok {
				v.add("genres", "must not contain duplicate values")
				break
			}
			seen[g] = struct{}{}
		}
	}

	if v.ok() {
		return nil
	}
	return &v
}

func (p Patch) apply(m *Movie) {
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Year != nil {
		m.Year = *p.Year
	}
	if p.Runtime != nil {
		m.Runtime = *p.Runtime
	}
	if p.Genres != nil {
		m.Genres = append([]string(nil), p.Genres...)
	}
}
