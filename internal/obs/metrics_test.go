package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                           "/",
		"/metrics":                   "/metrics",
		"/v1/movies":                 "/v1/movies",
		"/v1/movies/42":              "/v1/movies/:id",
		"/v1/movies/42/extra":        "/v1/movies/42/extra",
		"/v1/movies?page=2":          "/v1/movies",
		"/v1/movies/42?fields=title": "/v1/movies/:id",
		"/v1/users/login":            "/v1/users/login",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
