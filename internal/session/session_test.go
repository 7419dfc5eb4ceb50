package session

import (
	"testing"
	"time"

	"github.com/wisbric/catalogcore/pkg/configresolver"
)

func TestManager_IssueAndVerify(t *testing.T) {
	m, err := NewManager("0123456789abcdef0123456789abcdef", time.Hour, configresolver.NewRevocationList())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, jti, expiresAt, err := m.Issue("hash-abc")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if jti == "" || expiresAt.Before(time.Now()) {
		t.Fatalf("bad jti/expiresAt: %q %v", jti, expiresAt)
	}

	sess, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if sess.APIKeyIDHash != "hash-abc" || sess.JTI != jti {
		t.Fatalf("unexpected session: %+v", sess)
	}
}

func TestManager_VerifyRejectsRevoked(t *testing.T) {
	revocation := configresolver.NewRevocationList()
	m, err := NewManager("0123456789abcdef0123456789abcdef", time.Hour, revocation)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, jti, expiresAt, err := m.Issue("hash-abc")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	m.Revoke(jti, expiresAt)

	if _, err := m.Verify(token); err == nil {
		t.Fatal("expected verify to fail for a revoked token")
	}
}

func TestManager_VerifyRejectsTamperedToken(t *testing.T) {
	m, err := NewManager("0123456789abcdef0123456789abcdef", time.Hour, configresolver.NewRevocationList())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	token, _, _, err := m.Issue("hash-abc")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := m.Verify(token + "tampered"); err == nil {
		t.Fatal("expected verify to reject a tampered token")
	}
}

func TestNewManager_RejectsShortSecret(t *testing.T) {
	if _, err := NewManager("short", time.Hour, nil); err == nil {
		t.Fatal("expected error for short secret")
	}
}
