package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signer produces the short-lived signed tokens embedded in verification and
// password-reset links. It shares nothing with the JWT codec: separate secret,
// separate wire format, separate max-age check.
type Signer struct {
	Secret []byte
	Salt   string
}

type payload struct {
	Email string `json:"email"`
}

const DefaultMaxAge = time.Hour

var (
	ErrExpired = fmt.Errorf("email token expired")
	ErrInvalid = fmt.Errorf("email token invalid")
)

func New(secret string) *Signer {
	return &Signer{Secret: []byte(secret), Salt: "email-configuration"}
}

// Sign encodes {email} with an issue timestamp and an HMAC-SHA256 signature,
// URL-safe so the result can ride in a path segment.
func (s *Signer) Sign(email string) (string, error) {
	body, err := json.Marshal(payload{Email: email})
	if err != nil {
		return "", err
	}
	ts := strconv.FormatInt(time.Now().UTC().Unix(), 10)

	b64 := base64.RawURLEncoding
	part := b64.EncodeToString(body) + "." + b64.EncodeToString([]byte(ts))
	return part + "." + b64.EncodeToString(s.mac(part)), nil
}

// Verify checks the signature and the token's age against maxAge (pass 0 for
// the one-hour default) and returns the signed email.
func (s *Signer) Verify(token string, maxAge time.Duration) (string, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", ErrInvalid
	}
	b64 := base64.RawURLEncoding

	sig, err := b64.DecodeString(parts[2])
	if err != nil {
		return "", ErrInvalid
	}
	signed := parts[0] + "." + parts[1]
	if !hmac.Equal(sig, s.mac(signed)) {
		return "", ErrInvalid
	}

	tsRaw, err := b64.DecodeString(parts[1])
	if err != nil {
		return "", ErrInvalid
	}
	ts, err := strconv.ParseInt(string(tsRaw), 10, 64)
	if err != nil {
		return "", ErrInvalid
	}
	if time.Since(time.Unix(ts, 0)) > maxAge {
		return "", ErrExpired
	}

	body, err := b64.DecodeString(parts[0])
	if err != nil {
		return "", ErrInvalid
	}
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return "", ErrInvalid
	}
	return p.Email, nil
}

func (s *Signer) mac(msg string) []byte {
	m := hmac.New(sha256.New, s.Secret)
	m.Write([]byte(s.Salt))
	m.Write([]byte(msg))
	return m.Sum(nil)
}
