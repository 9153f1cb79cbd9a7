// Package tokenmint issues HS256 access tokens shaped like the hosted auth backend's.
// It backs cmd/devtoken and tests; production tokens come from the auth backend.
package tokenmint

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Options struct {
	Secret   []byte
	Issuer   string
	Audience string
	Subject  string
	Email    string

	IssuedAt time.Time
	TTL      time.Duration
	// NotBefore, when non-zero, is emitted as nbf.
	NotBefore time.Time
}

// Claims mirrors the subset of the hosted backend's access-token claims we read.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

func Mint(o Options) (string, error) {
	if len(o.Secret) == 0 {
		return "", errors.New("missing signing secret")
	}
	if o.Subject == "" {
		return "", errors.New("missing subject")
	}
	iat := o.IssuedAt
	if iat.IsZero() {
		iat = time.Now()
	}
	ttl := o.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    o.Issuer,
			Subject:   o.Subject,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
		},
		Email: o.Email,
		Role:  "authenticated",
	}
	if o.Audience != "" {
		claims.Audience = jwt.ClaimStrings{o.Audience}
	}
	if !o.NotBefore.IsZero() {
		claims.NotBefore = jwt.NewNumericDate(o.NotBefore)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(o.Secret)
}
