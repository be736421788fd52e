package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/nlogistics/control-tower/internal/lifecycle"
)

const (
	// oidcStateBytes is the length of the random state parameter for CSRF protection.
	oidcStateBytes = 16

	// oidcCodeVerifierBytes is the length of the PKCE code verifier before encoding.
	// RFC 7636 requires a minimum of 32 bytes of entropy.
	oidcCodeVerifierBytes = 32
)

// OIDCConfig is the static identity-provider configuration for the tower's
// single OIDC connection. Unlike a multi-tenant admin console, this system
// has one issuer fixed at process startup (SPEC_FULL.md §1) — there is no
// provider-config database table to reload from.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       string
}

// OIDCCallbackRequest carries the parameters of an OIDC redirect callback,
// along with the state and code verifier the caller stashed in a short-lived
// session cookie when AuthorizationURL was first called.
type OIDCCallbackRequest struct {
	Code         string
	State        string
	SessionState string
	CodeVerifier string
}

// oidcClaims is the subset of ID-token claims this system understands. There
// is no user directory to enrich these with — actor_role and actor_regions
// must be asserted directly by the identity provider (§1 "OIDC -> internal/auth").
type oidcClaims struct {
	Subject string   `json:"sub"`
	Role    string   `json:"actor_role"`
	Regions []string `json:"actor_regions"`
}

// OIDCProvider drives the Authorization Code flow with PKCE against a single
// fixed identity provider and mints tower JWTs directly from the verified ID
// token's role/region claims. It carries no database dependency: there is no
// JIT user record to create or update, only a token to issue.
type OIDCProvider struct {
	cfg        OIDCConfig
	oauth2Cfg  *oauth2.Config
	verifier   *gooidc.IDTokenVerifier
	jwtManager *Manager
}

// NewOIDCProvider initializes the OIDC provider metadata via discovery
// (issuer/.well-known/openid-configuration) and builds the oauth2.Config.
// Call once at startup — the discovered configuration does not change
// without a process restart.
func NewOIDCProvider(ctx context.Context, cfg OIDCConfig, jwtManager *Manager) (*OIDCProvider, error) {
	provider, err := gooidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("auth: initializing OIDC provider for issuer %q: %w", cfg.Issuer, err)
	}

	oauth2Cfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       splitScopes(cfg.Scopes),
	}

	return &OIDCProvider{
		cfg:        cfg,
		oauth2Cfg:  oauth2Cfg,
		verifier:   provider.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		jwtManager: jwtManager,
	}, nil
}

// AuthorizationURL generates the OIDC authorization URL with a random state
// parameter and PKCE code verifier. The caller must store state and
// codeVerifier in short-lived session cookies before redirecting the user.
func (p *OIDCProvider) AuthorizationURL() (url, state, codeVerifier string, err error) {
	state, err = generateRandomBase64(oidcStateBytes)
	if err != nil {
		return "", "", "", fmt.Errorf("auth: generating OIDC state: %w", err)
	}

	codeVerifier, err = generateRandomBase64(oidcCodeVerifierBytes)
	if err != nil {
		return "", "", "", fmt.Errorf("auth: generating PKCE code verifier: %w", err)
	}

	url = p.oauth2Cfg.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.S256ChallengeOption(codeVerifier),
	)

	return url, state, codeVerifier, nil
}

// ExchangeCode completes the OIDC Authorization Code flow. It verifies the
// state parameter, exchanges the code for tokens, validates the ID token,
// and issues a tower-signed JWT carrying the role and regions asserted
// directly by the identity provider.
func (p *OIDCProvider) ExchangeCode(ctx context.Context, req OIDCCallbackRequest) (string, error) {
	if req.State != req.SessionState {
		return "", ErrOIDCStateMismatch
	}

	if req.CodeVerifier == "" {
		return "", ErrOIDCCodeVerifierMissing
	}

	oauth2Token, err := p.oauth2Cfg.Exchange(
		ctx,
		req.Code,
		oauth2.VerifierOption(req.CodeVerifier),
	)
	if err != nil {
		return "", fmt.Errorf("auth: exchanging OIDC code: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return "", fmt.Errorf("auth: OIDC token response missing id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", fmt.Errorf("auth: verifying OIDC id_token: %w", err)
	}

	var claims oidcClaims
	if err := idToken.Claims(&claims); err != nil {
		return "", fmt.Errorf("auth: extracting OIDC claims: %w", err)
	}

	if claims.Role == "" {
		return "", ErrOIDCRoleClaimMissing
	}

	role := lifecycle.Role(claims.Role)
	if _, known := lifecycle.ScopeFor(role); !known && role != lifecycle.RoleSender {
		return "", fmt.Errorf("%w: %s", ErrUnknownRole, claims.Role)
	}

	return p.jwtManager.GenerateToken(claims.Subject, role, claims.Regions)
}

// generateRandomBase64 returns a URL-safe base64-encoded random string of n bytes.
func generateRandomBase64(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// splitScopes splits a space-separated scopes string into a slice.
// Returns ["openid"] as a safe fallback if the input is empty.
func splitScopes(s string) []string {
	if s == "" {
		return []string{"openid"}
	}
	var scopes []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ' ' {
			if i > start {
				scopes = append(scopes, s[start:i])
			}
			start = i + 1
		}
	}
	return scopes
}
