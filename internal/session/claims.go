package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type claims struct {
	Email  string
	Expiry time.Time
}

// parseClaims reads identity hints from a JWT without verifying it. The
// server is the authority on validity; the client only needs a label and an
// expiry. Opaque tokens yield zero claims.
func parseClaims(raw string) claims {
	var c claims
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, mc); err != nil {
		return c
	}
	if sub, err := mc.GetSubject(); err == nil {
		c.Email = sub
	}
	if email, ok := mc["email"].(string); ok && email != "" {
		c.Email = email
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.Expiry = exp.Time
	}
	return c
}
