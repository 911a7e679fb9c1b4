package auth

import (
	"errors"
	"fmt"
)

// ErrInvalidToken is the umbrella failure for token verification. The
// sentinels below wrap it so callers can switch on the precise cause while
// middleware only needs a single errors.Is check to render 401.
var (
	ErrInvalidToken = errors.New("auth: invalid token")

	ErrTokenMalformed   = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrSignatureInvalid = fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	ErrIssuerMismatch   = fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)
	ErrAudienceMismatch = fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	ErrTokenExpired     = fmt.Errorf("%w: expired", ErrInvalidToken)
)

var (
	// ErrNoClaims marks a request that carried no claim set at all. The HTTP
	// layer renders it as 401, while a policy denial over a valid claim set
	// is rendered as 403.
	ErrNoClaims = errors.New("auth: no claims present")

	// ErrForbidden marks a policy denial over a valid claim set.
	ErrForbidden = errors.New("auth: permission denied")

	// ErrConfig indicates the signing secret, issuer or audience is unset.
	// Fatal at startup, never surfaced per request.
	ErrConfig = errors.New("auth: missing configuration")
)
