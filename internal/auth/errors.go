package auth

import "errors"

// Sentinel errors returned by the JWT manager and OIDC login flow. Callers
// should use errors.Is for comparison.
var (
	// ErrTokenExpired is returned when a JWT has expired.
	ErrTokenExpired = errors.New("auth: token expired")

	// ErrTokenInvalid is returned when a token cannot be parsed or verified.
	ErrTokenInvalid = errors.New("auth: token invalid")

	// ErrUnknownRole is returned when a token or ID-token claim carries a
	// role string outside lifecycle's closed Role enum.
	ErrUnknownRole = errors.New("auth: unknown role")

	// ErrOIDCStateMismatch is returned when the OAuth2 state parameter does
	// not match the value stored in the session cookie (CSRF protection).
	ErrOIDCStateMismatch = errors.New("auth: oidc state mismatch")

	// ErrOIDCCodeVerifierMissing is returned when the PKCE code verifier is
	// absent from the session during the callback phase.
	ErrOIDCCodeVerifierMissing = errors.New("auth: oidc code verifier missing")

	// ErrOIDCRoleClaimMissing is returned when the verified ID token carries
	// no actor_role claim — this system has no user directory to fall back
	// to, so the identity provider is the sole source of role and region
	// assignment (§1 "OIDC -> internal/auth").
	ErrOIDCRoleClaimMissing = errors.New("auth: oidc token missing actor_role claim")
)
