package configresolver

import (
	"errors"
	"time"
)

// ErrOwnershipMismatch is returned by CheckOwnership when the caller's
// session does not match the target configuration's apiKeyIdHash. It is
// deliberately distinct from ErrNotFound so callers can surface 403
// rather than 404.
var ErrOwnershipMismatch = errors.New("configresolver: ownership mismatch")

// Session is the decoded, still-valid claim set for an authenticated
// caller. Issuance and JWT verification live in internal/session; this
// package only consumes the decoded result.
type Session struct {
	APIKeyIDHash string
	JTI          string
	ExpiresAt    time.Time
}

// SessionVerifier is the boundary C4 depends on for authentication. The
// concrete bearer-token implementation lives in internal/session, outside
// this package, so core logic never imports a JWT library directly.
type SessionVerifier interface {
	Verify(token string) (*Session, error)
}

// CheckOwnership verifies that sess's apiKeyIdHash matches cfg's. It never
// returns ErrNotFound — that distinction belongs to the store lookup.
func CheckOwnership(sess *Session, cfg *StoredConfig) error {
	if sess.APIKeyIDHash != cfg.APIKeyIDHash {
		return ErrOwnershipMismatch
	}
	return nil
}
