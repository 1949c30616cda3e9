package auth

import (
	"time"

	"github.com/go-chi/jwtauth/v5"
)

// New builds the token authority for the admin-only routes, keyed on the
// service's shared admin secret.
func New(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// AdminToken mints a short-lived bearer token for a named operator.
func AdminToken(authority *jwtauth.JWTAuth, subject string, ttl time.Duration) (string, error) {
	now := time.Now()

	_, token, err := authority.Encode(map[string]any{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})

	return token, err
}
