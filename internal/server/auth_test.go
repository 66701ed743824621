package server

import (
	"strings"
	"testing"
	"time"
)

func TestSessionRoundTrip(t *testing.T) {
	s := NewSessionSigner("secret", time.Hour)
	token, err := s.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !s.Verify(token) {
		t.Errorf("freshly issued token did not verify")
	}
}

func TestSessionExpiry(t *testing.T) {
	s := NewSessionSigner("secret", time.Hour)
	token, err := s.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if s.Verify(token) {
		t.Errorf("expired token verified")
	}
}

func TestSessionTamperRejected(t *testing.T) {
	s := NewSessionSigner("secret", time.Hour)
	token, _ := s.Issue()

	parts := strings.SplitN(token, ".", 2)
	tampered := encode("99999999999") + "." + parts[1]
	if s.Verify(tampered) {
		t.Errorf("tampered payload verified")
	}
	if s.Verify("not-even-a-token") {
		t.Errorf("garbage token verified")
	}
	if s.Verify("") {
		t.Errorf("empty token verified")
	}
}

func TestSessionWrongSecret(t *testing.T) {
	a := NewSessionSigner("secret-a", time.Hour)
	b := NewSessionSigner("secret-b", time.Hour)
	token, _ := a.Issue()
	if b.Verify(token) {
		t.Errorf("token verified under a different secret")
	}
}

func TestEmptySecretRefusesEverything(t *testing.T) {
	s := NewSessionSigner("", time.Hour)
	if _, err := s.Issue(); err == nil {
		t.Errorf("expected Issue to fail without a secret")
	}
	if s.Verify("anything") {
		t.Errorf("verifier with no secret accepted a token")
	}
}

func TestSessionTokenExtraction(t *testing.T) {
	if got := sessionToken("cookie-token", "Bearer header-token"); got != "cookie-token" {
		t.Errorf("cookie should win: %q", got)
	}
	if got := sessionToken("", "Bearer header-token"); got != "header-token" {
		t.Errorf("bearer fallback: %q", got)
	}
	if got := sessionToken("", "Basic abc"); got != "" {
		t.Errorf("non-bearer header should be ignored: %q", got)
	}
}
