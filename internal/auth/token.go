package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity: содержимое сессионного токена.
type Identity struct {
	UserID uint   `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type claims struct {
	UserID uint    `json:"userId"`
	Email  string  `json:"email"`
	Role   *string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens выпускает и проверяет HS256-токены на общем секрете.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	Now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, Now: time.Now}
}

func (t *Tokens) Issue(id Identity) (string, error) {
	now := t.Now()
	c := claims{
		UserID: id.UserID,
		Email:  id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(id.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	if id.Role != "" {
		c.Role = &id.Role
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
}

var ErrInvalidToken = errors.New("invalid or expired token")

func (t *Tokens) Parse(raw string) (*Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id := &Identity{UserID: c.UserID, Email: c.Email}
	if c.Role != nil {
		id.Role = *c.Role
	}
	return id, nil
}
