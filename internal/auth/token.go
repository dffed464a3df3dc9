package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "intervox"

// TokenManager issues and verifies admin access tokens.
type TokenManager struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, expiry time.Duration, now func() time.Time) *TokenManager {
	if now == nil {
		now = time.Now
	}
	return &TokenManager{secret: []byte(secret), expiry: expiry, now: now}
}

type adminClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issue returns a signed access token for email and its lifetime in seconds.
func (m *TokenManager) Issue(email string) (string, int, error) {
	now := m.now().UTC()
	claims := adminClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", 0, fmt.Errorf("signing admin token: %w", err)
	}
	return signed, int(m.expiry.Seconds()), nil
}

// Verify validates the token signature and expiry and returns the admin email.
func (m *TokenManager) Verify(tokenString string) (string, error) {
	claims := &adminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(func() time.Time { return m.now().UTC() }))
	if err != nil {
		return "", fmt.Errorf("parsing admin token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid admin token")
	}
	return claims.Email, nil
}
