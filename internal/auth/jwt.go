package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nlogistics/control-tower/internal/lifecycle"
)

const (
	// tokenDuration defines how long an actor token remains valid. There is
	// no refresh-token mechanism in this system — an actor re-authenticates
	// (dev login or OIDC) once the token expires, matching §4.2's closed
	// set of role-scoped actors rather than a long-lived user session.
	tokenDuration = time.Hour

	// rsaKeyBits is the RSA key size used for JWT signing. 2048 bits is the
	// minimum recommended.
	rsaKeyBits = 2048
)

// Claims holds the custom JWT claims embedded in every actor token.
// Standard claims (exp, iat, iss) are included via jwt.RegisteredClaims.
type Claims struct {
	jwt.RegisteredClaims

	// ActorID identifies the caller for audit and notification purposes —
	// an operator login name or service account id, not a row in a user
	// database (this system carries no user directory, see SPEC_FULL.md §1).
	ActorID string `json:"actor_id"`

	// Role is the actor's lifecycle role at token issuance time, gating
	// both event-emission authority (internal/lifecycle) and geographic
	// access scope (internal/accessguard).
	Role lifecycle.Role `json:"role"`

	// Regions is the set of state names (or corridor names) the actor may
	// act within, checked by internal/accessguard.Check against a
	// shipment's source/destination/corridor fields. A COO or SYSTEM token
	// may leave this empty — those roles bypass region checks entirely.
	Regions []string `json:"regions,omitempty"`
}

// Manager handles RS256 signing and verification of actor tokens. It holds
// the RSA key pair in memory after initialization.
type Manager struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
}

// NewManagerFromFiles loads an RSA key pair from PEM files on disk.
// privateKeyPath must point to a PKCS#8 or PKCS#1 PEM-encoded private key.
// publicKeyPath must point to the corresponding PEM-encoded public key.
//
// Use this in production where keys are mounted as secrets.
func NewManagerFromFiles(privateKeyPath, publicKeyPath, issuer string) (*Manager, error) {
	privBytes, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("auth: reading private key file: %w", err)
	}

	pubBytes, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("auth: reading public key file: %w", err)
	}

	return newManagerFromPEM(privBytes, pubBytes, issuer)
}

// NewManagerGenerated creates a Manager with a freshly generated RSA key
// pair. The keys are ephemeral — all existing tokens are invalidated on
// server restart. Suitable for development and single-instance deployments.
func NewManagerGenerated(issuer string) (*Manager, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, fmt.Errorf("auth: generating RSA key pair: %w", err)
	}

	return &Manager{
		privateKey: privateKey,
		publicKey:  &privateKey.PublicKey,
		issuer:     issuer,
	}, nil
}

// newManagerFromPEM parses PEM-encoded RSA key bytes and returns a Manager.
func newManagerFromPEM(privatePEM, publicPEM []byte, issuer string) (*Manager, error) {
	privBlock, _ := pem.Decode(privatePEM)
	if privBlock == nil {
		return nil, errors.New("auth: failed to decode private key PEM block")
	}

	var privateKey *rsa.PrivateKey
	switch privBlock.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(privBlock.Bytes)
		if err != nil {
			return nil, fmt.Errorf("auth: parsing PKCS#1 private key: %w", err)
		}
		privateKey = key
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(privBlock.Bytes)
		if err != nil {
			return nil, fmt.Errorf("auth: parsing PKCS#8 private key: %w", err)
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("auth: PKCS#8 key is not an RSA key")
		}
		privateKey = rsaKey
	default:
		return nil, fmt.Errorf("auth: unsupported private key PEM type: %s", privBlock.Type)
	}

	pubBlock, _ := pem.Decode(publicPEM)
	if pubBlock == nil {
		return nil, errors.New("auth: failed to decode public key PEM block")
	}

	pubInterface, err := x509.ParsePKIXPublicKey(pubBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("auth: parsing public key: %w", err)
	}

	publicKey, ok := pubInterface.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("auth: public key is not an RSA key")
	}

	return &Manager{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
	}, nil
}

// GenerateToken issues a signed RS256 JWT for actorID acting as role with
// the given allowed regions. Rejects any role outside lifecycle's closed
// Role enum so a malformed claim can never reach the access guard.
func (m *Manager) GenerateToken(actorID string, role lifecycle.Role, regions []string) (string, error) {
	if _, known := lifecycle.ScopeFor(role); !known && role != lifecycle.RoleSender {
		return "", fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   actorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenDuration)),
			ID:        uuid.NewString(),
		},
		ActorID: actorID,
		Role:    role,
		Regions: regions,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)

	signed, err := token.SignedString(m.privateKey)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// ValidateToken parses and verifies a JWT string, returning the embedded
// Claims on success. Callers should use errors.Is(err, auth.ErrTokenExpired)
// to distinguish expired tokens from tampered/malformed ones.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(t *jwt.Token) (any, error) {
			// Reject tokens signed with anything other than RS256. This
			// prevents the "alg:none" and HMAC confusion attacks.
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", t.Header["alg"])
			}
			return m.publicKey, nil
		},
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// PublicKeyPEM returns the public key in PEM-encoded PKIX format. Useful for
// exposing a JWKS endpoint or sharing the key with other services.
func (m *Manager) PublicKeyPEM() ([]byte, error) {
	pubBytes, err := x509.MarshalPKIXPublicKey(m.publicKey)
	if err != nil {
		return nil, fmt.Errorf("auth: marshaling public key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubBytes,
	}), nil
}
