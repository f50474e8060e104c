package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/booklyapp/bookly/internal/apperr"
)

// UserClaims is the user summary embedded in every token. Role is stamped on
// access tokens only; refresh tokens carry just enough to mint a new access
// token after the user is re-resolved.
type UserClaims struct {
	Email string `json:"email"`
	UID   string `json:"user_uid"`
	Role  string `json:"role,omitempty"`
}

type Claims struct {
	User    UserClaims `json:"user"`
	Refresh bool       `json:"refresh"`
	jwt.RegisteredClaims
}

// JTI returns the unique token identifier used as the revocation key.
func (c *Claims) JTI() string { return c.RegisteredClaims.ID }

// Codec signs and verifies bearer tokens with a process-wide HS256 secret.
type Codec struct {
	Secret []byte
}

// Issue signs a token for the given user summary. A fresh random jti and an
// absolute UTC expiry are stamped on every call.
func (c *Codec) Issue(user UserClaims, ttl time.Duration, refresh bool) (string, error) {
	if !refresh && user.Role == "" {
		return "", errors.New("access token requires a role claim")
	}
	if refresh {
		user.Role = ""
	}

	now := time.Now().UTC()
	claims := Claims{
		User:    user,
		Refresh: refresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.Secret)
}

// Decode verifies signature and expiry and classifies every failure: expired
// tokens, structurally broken tokens and everything else each get their own
// error so callers never see a silent nil.
func (c *Codec) Decode(raw string) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return c.Secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, apperr.ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, apperr.ErrTokenDecode
		default:
			return nil, apperr.ErrInvalidToken
		}
	}
	if !tkn.Valid {
		return nil, apperr.ErrInvalidToken
	}
	return &claims, nil
}
