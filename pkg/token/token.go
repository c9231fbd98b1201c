// Package token signs and verifies session credentials as HS256 JWTs.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid session token")

// Claims is the payload of a session token. ID (jti) keys the companion
// session row.
type Claims struct {
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// SessionID returns the parsed jti, or uuid.Nil when absent.
func (c *Claims) SessionID() uuid.UUID {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// Subject is the identity a token is minted for.
type Subject struct {
	UserID uuid.UUID
	Email  string
	Name   string
	Role   string
}

type Signer struct {
	secret []byte
	expiry time.Duration
	issuer string
	now    func() time.Time
}

func NewSigner(secret string, expiry time.Duration, issuer string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("session signing secret is empty")
	}
	if expiry <= 0 {
		return nil, errors.New("session expiry must be positive")
	}
	return &Signer{secret: []byte(secret), expiry: expiry, issuer: issuer, now: time.Now}, nil
}

func (s *Signer) Expiry() time.Duration {
	return s.expiry
}

// Sign mints a token for sub and returns it with its claims.
func (s *Signer) Sign(sub Subject) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		UserID: sub.UserID,
		Email:  sub.Email,
		Name:   sub.Name,
		Role:   sub.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   sub.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return signed, claims, nil
}

func (s *Signer) Verify(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
