package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the fixed lifetime of issued access tokens.
const DefaultTokenTTL = 4 * time.Hour

// Config carries the symmetric signing settings shared by issuer and
// verifier. All three string fields are mandatory.
type Config struct {
	Key      string
	Issuer   string
	Audience string
	TTL      time.Duration
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Key) == "" ||
		strings.TrimSpace(c.Issuer) == "" ||
		strings.TrimSpace(c.Audience) == "" {
		return ErrConfig
	}
	return nil
}

type tokenClaims struct {
	Name           string   `json:"name,omitempty"`
	Permissions    []string `json:"permission,omitempty"`
	EmailConfirmed string   `json:"email_confirmed,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs claim bundles with HS256.
type Issuer struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// IssuerOption configures Issuer behavior.
type IssuerOption func(*Issuer)

// WithIssuerClock overrides the time source (useful for tests).
func WithIssuerClock(fn func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if fn != nil {
			i.now = fn
		}
	}
}

// NewIssuer constructs an Issuer, failing fast on incomplete configuration.
func NewIssuer(cfg Config, opts ...IssuerOption) (*Issuer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	iss := &Issuer{
		key:      []byte(cfg.Key),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
		now:      time.Now,
	}
	if iss.ttl <= 0 {
		iss.ttl = DefaultTokenTTL
	}
	for _, opt := range opts {
		opt(iss)
	}
	return iss, nil
}

// Issue signs the claim set into a compact token. The caller must have
// verified the identity's credential already; issuance has no side effects.
func (i *Issuer) Issue(cs ClaimSet) (string, time.Time, error) {
	if strings.TrimSpace(cs.Subject) == "" {
		return "", time.Time{}, errors.New("auth: subject is required")
	}
	now := i.now().UTC()
	expiresAt := now.Add(i.ttl)
	claims := tokenClaims{
		Name:           cs.Name,
		Permissions:    cs.Permissions,
		EmailConfirmed: cs.EmailConfirmed,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			Subject:   cs.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verifier validates presented tokens against the issuance settings.
// Verification is pure and deterministic per call.
type Verifier struct {
	parser   *jwt.Parser
	key      []byte
	issuer   string
	audience string
}

// VerifierOption configures Verifier behavior.
type VerifierOption func(*verifierSettings)

type verifierSettings struct {
	now func() time.Time
}

// WithVerifierClock overrides the time source used for expiry checks.
func WithVerifierClock(fn func() time.Time) VerifierOption {
	return func(s *verifierSettings) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewVerifier constructs a Verifier, failing fast on incomplete
// configuration.
func NewVerifier(cfg Config, opts ...VerifierOption) (*Verifier, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	settings := verifierSettings{now: time.Now}
	for _, opt := range opts {
		opt(&settings)
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return settings.now().UTC() }),
	)
	return &Verifier{
		parser:   parser,
		key:      []byte(cfg.Key),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}, nil
}

// Verify checks signature, issuer, audience and validity window, returning
// the embedded claim set. Each failure mode maps to a distinct sentinel.
func (v *Verifier) Verify(raw string) (ClaimSet, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ClaimSet{}, ErrTokenMalformed
	}
	parsed, err := v.parser.ParseWithClaims(raw, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return ClaimSet{}, classifyTokenError(err)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return ClaimSet{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return ClaimSet{}, ErrTokenMalformed
	}
	return ClaimSet{
		Subject:        claims.Subject,
		Name:           claims.Name,
		Permissions:    claims.Permissions,
		EmailConfirmed: claims.EmailConfirmed,
	}, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrSignatureInvalid
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrIssuerMismatch
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrAudienceMismatch
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	default:
		return ErrInvalidToken
	}
}
