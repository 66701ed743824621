package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SessionCookie is the cookie carrying the admin session token.
const SessionCookie = "duckwire_session"

// SessionVerifier gates privileged operations. It is a boolean check only;
// there are no roles or identities behind it.
type SessionVerifier interface {
	Verify(token string) bool
}

// SessionSigner issues and verifies HMAC-SHA256 signed session tokens.
// A token is "<base64url(expiry-unix)>.<base64url(hmac)>" and carries no
// claims beyond its expiry.
type SessionSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionSigner builds a signer. An empty secret yields a signer that
// refuses every token, which keeps the refresh boundary closed rather than
// open by accident.
func NewSessionSigner(secret string, ttl time.Duration) *SessionSigner {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue creates a token valid for the configured TTL.
func (s *SessionSigner) Issue() (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("session secret not configured")
	}
	payload := strconv.FormatInt(s.now().Add(s.ttl).Unix(), 10)
	return encode(payload) + "." + encode(string(s.sign(payload))), nil
}

// Verify checks the token's signature and expiry.
func (s *SessionSigner) Verify(token string) bool {
	if len(s.secret) == 0 || token == "" {
		return false
	}
	payloadPart, sigPart, ok := strings.Cut(token, ".")
	if !ok {
		return false
	}
	payload, err := decode(payloadPart)
	if err != nil {
		return false
	}
	sig, err := decode(sigPart)
	if err != nil {
		return false
	}
	if !hmac.Equal([]byte(sig), s.sign(payload)) {
		return false
	}
	exp, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		return false
	}
	return s.now().Unix() < exp
}

func (s *SessionSigner) sign(payload string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

func encode(v string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(v))
}

func decode(v string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(v)
	return string(b), err
}

// sessionToken extracts the token from the request cookie or bearer header.
func sessionToken(cookie string, authorization string) string {
	if cookie != "" {
		return cookie
	}
	if after, ok := strings.CutPrefix(authorization, "Bearer "); ok {
		return after
	}
	return ""
}
