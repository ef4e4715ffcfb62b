// Package auth signs the email confirmation and session tokens and guards
// admin and session-only routes.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "omip-benchmark"

	TypeConfirm = "confirm"
	TypeSession = "session"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongType    = errors.New("token type mismatch")
	ErrNoSecret     = errors.New("jwt secret not configured")
)

// Claims identifies a lead by email. Typ separates one-shot confirmation
// links from session cookies so one can never stand in for the other.
type Claims struct {
	Email string `json:"email"`
	Typ   string `json:"typ"`

	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 tokens.
type Tokens struct {
	Secret     []byte
	ConfirmTTL time.Duration
	SessionTTL time.Duration

	now func() time.Time
}

func NewTokens(secret string, confirmTTL, sessionTTL time.Duration) *Tokens {
	if confirmTTL <= 0 {
		confirmTTL = time.Hour
	}
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	return &Tokens{Secret: []byte(secret), ConfirmTTL: confirmTTL, SessionTTL: sessionTTL, now: time.Now}
}

func (t *Tokens) IssueConfirmation(email string) (string, time.Time, error) {
	return t.sign(email, TypeConfirm, t.ConfirmTTL)
}

func (t *Tokens) ParseConfirmation(token string) (string, error) {
	return t.verify(token, TypeConfirm)
}

func (t *Tokens) IssueSession(email string) (string, time.Time, error) {
	return t.sign(email, TypeSession, t.SessionTTL)
}

func (t *Tokens) ParseSession(token string) (string, error) {
	return t.verify(token, TypeSession)
}

func (t *Tokens) sign(email, typ string, ttl time.Duration) (string, time.Time, error) {
	if len(t.Secret) == 0 {
		return "", time.Time{}, ErrNoSecret
	}
	now := t.now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		Email: NormalizeEmail(email),
		Typ:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   NormalizeEmail(email),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, expiresAt, nil
}

func (t *Tokens) verify(token, typ string) (string, error) {
	if len(t.Secret) == 0 {
		return "", ErrNoSecret
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return t.Secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(t.now))
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	c, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || c.Email == "" {
		return "", ErrInvalidToken
	}
	if c.Typ != typ {
		return "", ErrWrongType
	}
	return c.Email, nil
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
