// Package session issues and verifies the self-signed bearer tokens used
// by the configuration API. It sits outside pkg/configresolver's core;
// the core only depends on the configresolver.SessionVerifier interface
// this package implements.
package session

import (
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"

	"github.com/wisbric/catalogcore/pkg/configresolver"
)

const issuer = "catalogcore"

// claims are the custom fields embedded in the session JWT alongside the
// registered claim set.
type claims struct {
	APIKeyIDHash string `json:"apiKeyIdHash"`
}

// Manager issues and validates self-signed session JWTs using HMAC-SHA256,
// and consults a RevocationList to reject revoked jtis.
type Manager struct {
	signingKey []byte
	maxAge     time.Duration
	revocation *configresolver.RevocationList
}

// NewManager creates a session manager. secret must be at least 32 bytes.
func NewManager(secret string, maxAge time.Duration, revocation *configresolver.RevocationList) (*Manager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("session: signing secret must be at least 32 bytes, got %d", len(secret))
	}
	return &Manager{
		signingKey: []byte(secret),
		maxAge:     maxAge,
		revocation: revocation,
	}, nil
}

// Issue creates a signed bearer token carrying apiKeyIDHash, along with its
// jti and expiry.
func (m *Manager) Issue(apiKeyIDHash string) (token string, jti string, expiresAt time.Time, err error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: m.signingKey},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("session: creating signer: %w", err)
	}

	now := time.Now()
	expiresAt = now.Add(m.maxAge)
	jti = uuid.NewString()

	registered := jwt.Claims{
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		Expiry:    jwt.NewNumericDate(expiresAt),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    issuer,
	}

	token, err = jwt.Signed(signer).Claims(registered).Claims(claims{APIKeyIDHash: apiKeyIDHash}).Serialize()
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("session: signing token: %w", err)
	}
	return token, jti, expiresAt, nil
}

// Verify implements configresolver.SessionVerifier.
func (m *Manager) Verify(raw string) (*configresolver.Session, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, fmt.Errorf("session: parsing token: %w", err)
	}

	var registered jwt.Claims
	var custom claims
	if err := tok.Claims(m.signingKey, &registered, &custom); err != nil {
		return nil, fmt.Errorf("session: verifying token: %w", err)
	}

	if err := registered.ValidateWithLeeway(jwt.Expected{
		Issuer: issuer,
		Time:   time.Now(),
	}, 5*time.Second); err != nil {
		return nil, fmt.Errorf("session: validating claims: %w", err)
	}

	if m.revocation != nil && m.revocation.IsRevoked(registered.ID) {
		return nil, fmt.Errorf("session: token revoked")
	}

	return &configresolver.Session{
		APIKeyIDHash: custom.APIKeyIDHash,
		JTI:          registered.ID,
		ExpiresAt:    registered.Expiry.Time(),
	}, nil
}

// Revoke marks the session identified by jti as revoked until expiresAt.
func (m *Manager) Revoke(jti string, expiresAt time.Time) {
	if m.revocation != nil {
		m.revocation.Revoke(jti, expiresAt)
	}
}
