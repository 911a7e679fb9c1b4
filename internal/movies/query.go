package movies

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	defaultPage     = 1
	maxPage         = 10_000_000
	defaultPageSize = 20
	maxPageSize     = 100
	defaultSort     = "id"
)

// sortSafelist is the closed set of accepted sort values. A leading '-'
// denotes descending order. Anything else resolves to the default.
var sortSafelist = map[string]struct{}{
	"id": {}, "title": {}, "year": {}, "runtime": {},
	"-id": {}, "-title": {}, "-year": {}, "-runtime": {},
}

// Query is a validated, bounded filter+sort+pagination plan. Instances are
// produced only by CompileQuery, so stores may trust every field.
type Query struct {
	Title    string
	Genres   []string
	Page     int
	PageSize int
	Sort     string
}

// CompileQuery turns untrusted request parameters into a safe Query. Each
// parameter is defaulted independently; only non-numeric page values are
// reported as validation errors, everything else clamps or falls back.
func CompileQuery(values url.Values) (Query, *ValidationError) {
	var v ValidationError

	q := Query{
		Title:    strings.TrimSpace(values.Get("title")),
		Page:     defaultPage,
		PageSize: defaultPageSize,
		Sort:     defaultSort,
	}

	for _, g := range values["genres"] {
		for _, part := range strings.Split(g, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				q.Genres = append(q.Genres, part)
			}
		}
	}

	q.Page = parseClampedInt(values, "page", defaultPage, 1, maxPage, &v)
	q.PageSize = parseClampedInt(values, "page_size", defaultPageSize, 1, maxPageSize, &v)

	if sort := strings.TrimSpace(values.Get("sort")); sort != "" {
		if _, ok := sortSafelist[sort]; ok {
			q.Sort = sort
		}
	}

	if !v.ok() {
		return Query{}, &v
	}
	return q, nil
}

func parseClampedInt(values url.Values, key string, def, min, max int, v *ValidationError) int {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		v.add(key, "must be an integer")
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// Offset is the number of records to skip.
func (q Query) Offset() int { return (q.Page - 1) * q.PageSize }

// Limit caps the result set size.
func (q Query) Limit() int { return q.PageSize }

// SortColumn returns the column name with the direction marker stripped.
func (q Query) SortColumn() string { return strings.TrimPrefix(q.Sort, "-") }

// SortDescending reports whether the plan orders descending.
func (q Query) SortDescending() bool { return strings.HasPrefix(q.Sort, "-") }

// MatchesTitle implements the in-process equivalent of Postgres
// plainto_tsquery('simple', term): both sides are tokenized and every query
// token must appear among the title tokens, tolerating word order.
func MatchesTitle(title, term string) bool {
	if term == "" {
		return true
	}
	want := tokenize(term)
	if len(want) == 0 {
		return true
	}
	have := make(map[string]struct{})
	for _, tok := range tokenize(title) {
		have[tok] = struct{}{}
	}
	for _, tok := range want {
		if _, ok := have[tok]; !ok {
			return false
		}
	}
	return true
}

// MatchesGenres implements "any of" semantics: the record matches when its
// genre set intersects the requested set. An empty filter matches all.
func MatchesGenres(recordGenres, wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(recordGenres))
	for _, g := range recordGenres {
		set[g] = struct{}{}
	}
	for _, g := range wanted {
		if _, ok := set[g]; ok {
			return true
		}
	}
	return false
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !isTokenRune(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func isTokenRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r >= 0x80:
		// Non-ASCII letters pass through; the 'simple' dictionary only
		// lowercases, it does not stem.
		return true
	default:
		return false
	}
}
