package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"reelhouse.org/internal/auth"
)

func newTestService(t *testing.T, now func() time.Time) *Service {
	t.Helper()
	opts := []ServiceOption{}
	if now != nil {
		opts = append(opts, WithClock(now))
	}
	svc, err := NewService(NewMemory(), opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRegisterActivateLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	user, plaintext, err := svc.Register(ctx, "Alice", "Alice@Example.com", "pa55word!")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected an assigned user id")
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if user.Activated {
		t.Fatal("new user must not be activated")
	}
	if plaintext == "" {
		t.Fatal("expected a plaintext activation token")
	}

	// Credentials work before activation; the claim set records the state.
	authed, err := svc.Authenticate(ctx, "alice@example.com", "pa55word!")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	cs := svc.ClaimsFor(authed)
	if cs.EmailConfirmed != "false" {
		t.Fatalf("email_confirmed = %q, want %q", cs.EmailConfirmed, "false")
	}
	if !cs.Has(auth.ClaimPermission, auth.PermMoviesRead) {
		t.Fatal("expected the default read grant")
	}
	if cs.Has(auth.ClaimPermission, auth.PermMoviesWrite) {
		t.Fatal("unexpected write grant on a fresh user")
	}

	activated, err := svc.Activate(ctx, "alice@example.com", plaintext)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if !activated.Activated {
		t.Fatal("user not marked activated")
	}
	cs = svc.ClaimsFor(activated)
	if cs.EmailConfirmed != "true" {
		t.Fatalf("email_confirmed = %q, want %q", cs.EmailConfirmed, "true")
	}

	// The activation token is single use.
	if _, err := svc.Activate(ctx, "alice@example.com", plaintext); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("reused token: got %v, want ErrInvalidToken", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	if _, _, err := svc.Register(ctx, "Alice", "alice@example.com", "pa55word!"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, _, err := svc.Register(ctx, "Other Alice", "ALICE@example.com", "different1")
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("got %v, want ErrDuplicateEmail", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	cases := []struct {
		name, userName, email, password string
	}{
		{"blank name", "   ", "a@example.com", "pa55word!"},
		{"no email", "Alice", "", "pa55word!"},
		{"bad email", "Alice", "not-an-email", "pa55word!"},
		{"short password", "Alice", "a@example.com", "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Register(ctx, tc.userName, tc.email, tc.password)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("got %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestActivateExpiredToken(t *testing.T) {
	ctx := context.Background()
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, func() time.Time { return current })

	_, plaintext, err := svc.Register(ctx, "Alice", "alice@example.com", "pa55word!")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	current = current.Add(activationTTL + time.Minute)
	if _, err := svc.Activate(ctx, "alice@example.com", plaintext); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestActivateWrongUser(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	if _, _, err := svc.Register(ctx, "Alice", "alice@example.com", "pa55word!"); err != nil {
		t.Fatalf("Register alice: %v", err)
	}
	_, bobToken, err := svc.Register(ctx, "Bob", "bob@example.com", "pa55word!")
	if err != nil {
		t.Fatalf("Register bob: %v", err)
	}

	// Bob's token must not activate Alice.
	if _, err := svc.Activate(ctx, "alice@example.com", bobToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestAuthenticateBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	if _, _, err := svc.Register(ctx, "Alice", "alice@example.com", "pa55word!"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	cases := []struct {
		name, email, password string
	}{
		{"unknown email", "nobody@example.com", "pa55word!"},
		{"wrong password", "alice@example.com", "not-the-password"},
		{"empty password", "alice@example.com", ""},
		{"malformed email", "nope", "pa55word!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Authenticate(ctx, tc.email, tc.password)
			if !errors.Is(err, ErrBadCredentials) {
				t.Fatalf("got %v, want ErrBadCredentials", err)
			}
		})
	}
}

func TestMemoryUpdateConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	u := &User{Name: "Alice", Email: "alice@example.com", PasswordHash: "x"}
	if err := store.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}

	stale := *u
	u.Activated = true
	if err := store.Update(ctx, u); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if u.Version != 2 {
		t.Fatalf("version = %d, want 2", u.Version)
	}

	stale.Name = "Mallory"
	if err := store.Update(ctx, &stale); !errors.Is(err, ErrEditConflict) {
		t.Fatalf("got %v, want ErrEditConflict", err)
	}
}
