package api

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/nlogistics/control-tower/internal/auth"
	"github.com/nlogistics/control-tower/internal/lifecycle"
)

const (
	// oidcStateCookie and oidcVerifierCookie hold the OIDC state and PKCE
	// code verifier between the authorization redirect and the callback.
	// Both are short-lived (10 minutes) and httpOnly.
	oidcStateCookie    = "tower_oidc_state"
	oidcVerifierCookie = "tower_oidc_verifier"

	// oidcCookieTTL is how long the OIDC session cookies are valid.
	// Must be longer than the identity provider's authorization timeout.
	oidcCookieTTL = 10 * time.Minute
)

// AuthHandler groups the authentication HTTP handlers: a dev-only token
// issuer for local testing (no identity provider required) and the OIDC
// Authorization Code + PKCE flow for production. There is no local
// password login and no refresh-token rotation — this system has no user
// directory, so a token is either minted from a developer-supplied role or
// from an identity provider's verified claims (§1).
type AuthHandler struct {
	jwtMgr     *auth.Manager
	oidc       *auth.OIDCProvider // nil when OIDC is not configured
	logger     *zap.Logger
	secure     bool // true in production (HTTPS), false in development
	devLoginOK bool // whether the unauthenticated dev-login endpoint is enabled
}

// NewAuthHandler creates a new AuthHandler. oidc may be nil when no identity
// provider is configured (dev-login only). devLoginOK must be false in
// production — it bypasses all identity verification.
func NewAuthHandler(jwtMgr *auth.Manager, oidc *auth.OIDCProvider, logger *zap.Logger, secure, devLoginOK bool) *AuthHandler {
	return &AuthHandler{
		jwtMgr:     jwtMgr,
		oidc:       oidc,
		logger:     logger.Named("auth_handler"),
		secure:     secure,
		devLoginOK: devLoginOK,
	}
}

// tokenResponse is the JSON body returned on successful authentication.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// devLoginRequest is the JSON body expected by POST /api/v1/auth/dev-login.
type devLoginRequest struct {
	ActorID string   `json:"actor_id"`
	Role    string   `json:"role"`
	Regions []string `json:"regions"`
}

// DevLogin handles POST /api/v1/auth/dev-login. It mints a token for any
// role without contacting an identity provider — guarded by devLoginOK,
// which must never be true in production (§4.2 closed role set, enforced
// here by lifecycle.ScopeFor rather than trusting the caller).
func (h *AuthHandler) DevLogin(w http.ResponseWriter, r *http.Request) {
	if !h.devLoginOK {
		ErrNotFound(w)
		return
	}

	var req devLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.ActorID == "" || req.Role == "" {
		ErrBadRequest(w, "actor_id and role are required")
		return
	}

	role := lifecycle.Role(req.Role)
	if _, known := lifecycle.ScopeFor(role); !known && role != lifecycle.RoleSender {
		ErrBadRequest(w, "unknown role: "+req.Role)
		return
	}

	token, err := h.jwtMgr.GenerateToken(req.ActorID, role, req.Regions)
	if err != nil {
		h.logger.Error("dev-login token generation failed", zap.Error(err))
		ErrInternal(w)
		return
	}

	Ok(w, tokenResponse{AccessToken: token})
}

// OIDCLogin handles GET /api/v1/auth/oidc/login. Generates the
// authorization URL and redirects the user to the identity provider.
// Stores state and code verifier in short-lived httpOnly cookies for CSRF
// protection and PKCE.
func (h *AuthHandler) OIDCLogin(w http.ResponseWriter, r *http.Request) {
	if h.oidc == nil {
		ErrBadRequest(w, "OIDC provider not configured")
		return
	}

	redirectURL, state, codeVerifier, err := h.oidc.AuthorizationURL()
	if err != nil {
		h.logger.Error("failed to generate OIDC authorization URL", zap.Error(err))
		ErrInternal(w)
		return
	}

	expires := time.Now().Add(oidcCookieTTL)

	http.SetCookie(w, &http.Cookie{
		Name:     oidcStateCookie,
		Value:    state,
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})

	http.SetCookie(w, &http.Cookie{
		Name:     oidcVerifierCookie,
		Value:    codeVerifier,
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})

	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// OIDCCallback handles GET /api/v1/auth/oidc/callback. Completes the
// Authorization Code + PKCE flow, reads state and verifier from the
// session cookies, exchanges the code for a tower JWT minted directly from
// the verified ID token's role/region claims, and redirects to the
// frontend with the token.
func (h *AuthHandler) OIDCCallback(w http.ResponseWriter, r *http.Request) {
	if h.oidc == nil {
		ErrBadRequest(w, "OIDC provider not configured")
		return
	}

	stateCookie, err := r.Cookie(oidcStateCookie)
	if err != nil {
		ErrBadRequest(w, "missing OIDC state cookie")
		return
	}

	verifierCookie, err := r.Cookie(oidcVerifierCookie)
	if err != nil {
		ErrBadRequest(w, "missing OIDC verifier cookie")
		return
	}

	// Clear the OIDC session cookies — they are single-use.
	h.clearOIDCCookies(w)

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if code == "" || state == "" {
		ErrBadRequest(w, "missing code or state parameter")
		return
	}

	token, err := h.oidc.ExchangeCode(r.Context(), auth.OIDCCallbackRequest{
		Code:         code,
		State:        state,
		SessionState: stateCookie.Value,
		CodeVerifier: verifierCookie.Value,
	})
	if err != nil {
		if errors.Is(err, auth.ErrOIDCStateMismatch) || errors.Is(err, auth.ErrOIDCCodeVerifierMissing) ||
			errors.Is(err, auth.ErrOIDCRoleClaimMissing) || errors.Is(err, auth.ErrUnknownRole) {
			ErrUnauthorized(w)
			return
		}
		h.logger.Error("OIDC code exchange failed", zap.Error(err))
		ErrInternal(w)
		return
	}

	// Redirect to the frontend with the access token as a query parameter.
	// The frontend must immediately store it in memory and remove it from
	// the URL to avoid leaking via the browser history or referrer headers.
	http.Redirect(w, r, "/?token="+token, http.StatusFound)
}

// clearOIDCCookies expires both OIDC session cookies immediately.
func (h *AuthHandler) clearOIDCCookies(w http.ResponseWriter) {
	for _, name := range []string{oidcStateCookie, oidcVerifierCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.secure,
			SameSite: http.SameSiteLaxMode,
			Path:     "/",
		})
	}
}
