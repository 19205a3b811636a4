package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTokenLifetime = 30 * time.Minute

var (
	// ErrInvalidToken covers every structural or cryptographic failure,
	// including a missing subject.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

var signingMethods = map[string]jwt.SigningMethod{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

// TokenIssuer signs and verifies bearer tokens carrying a telegram ID in
// the "sub" claim. The secret never leaves the issuer.
type TokenIssuer struct {
	secret   []byte
	method   jwt.SigningMethod
	lifetime time.Duration
	now      func() time.Time
}

func NewTokenIssuer(secret, algorithm string, lifetime time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token secret cannot be empty")
	}

	method, ok := signingMethods[algorithm]
	if !ok {
		return nil, fmt.Errorf("unsupported token algorithm %q", algorithm)
	}

	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}

	return &TokenIssuer{
		secret:   []byte(secret),
		method:   method,
		lifetime: lifetime,
		now:      time.Now,
	}, nil
}

// WithClock replaces the time source used for issuing and validating.
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	t.now = now
	return t
}

func (t *TokenIssuer) Lifetime() time.Duration {
	return t.lifetime
}

func (t *TokenIssuer) Issue(subject string) (string, error) {
	if subject == "" {
		return "", errors.New("token subject cannot be empty")
	}

	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.lifetime)),
	}

	signed, err := jwt.NewWithClaims(t.method, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry and returns the subject.
// Expired tokens yield ErrTokenExpired, everything else ErrInvalidToken.
func (t *TokenIssuer) Verify(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, t.keyfunc,
		jwt.WithValidMethods([]string{t.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)

	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", ErrTokenExpired
	}

	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (t *TokenIssuer) keyfunc(*jwt.Token) (any, error) {
	return t.secret, nil
}
