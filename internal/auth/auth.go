// Package auth decides whether a request may perform management
// operations. The core only consumes the Authorizer interface; token
// minting, password handling, and one-time codes live outside this service.
package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Authorizer reports whether a request is authorized and, if so, the caller
// identity it carries. A negative answer means the request is rejected
// before any core work happens.
type Authorizer interface {
	Authorize(r *http.Request) (caller string, ok bool)
}

// Verifier validates HS256 bearer tokens minted by the external identity
// service. Successful validations are cached with the session TTL, so
// repeated requests with the same token skip signature checking.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
	seen   *TTLStore[string]
}

// NewVerifier creates a Verifier for tokens signed with secret. sessionTTL
// bounds how long a validated token is remembered.
func NewVerifier(secret string, sessionTTL time.Duration) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})),
		seen:   NewTTLStore[string](sessionTTL),
	}
}

// Authorize implements Authorizer.
func (v *Verifier) Authorize(r *http.Request) (string, bool) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return "", false
	}

	if caller, ok := v.seen.Get(token); ok {
		return caller, true
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", false
	}

	// A cache entry must never outlive the token itself.
	ttl := v.seen.TTL()
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining < ttl {
			ttl = remaining
		}
	}
	v.seen.PutFor(token, claims.Subject, ttl)

	return claims.Subject, true
}

// Close stops the validation cache.
func (v *Verifier) Close() {
	v.seen.Close()
}

func extractBearerToken(header string) string {
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
