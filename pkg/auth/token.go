package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers malformed, tampered, and mistyped tokens
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired marks a structurally valid token past its expiry
	ErrTokenExpired = errors.New("token expired")
)

// Claims are the identity claims carried by every issued token. The
// registered subject holds the username.
type Claims struct {
	UserID int64 `json:"userId"`
	Role   Role  `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer creates and verifies signed tokens. It is stateless: issued
// tokens are never stored, only their signatures are checked.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates a token issuer with the server-held signing secret
// and the configured token lifetime.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// TTL returns the configured token lifetime
func (ti *TokenIssuer) TTL() time.Duration {
	return ti.ttl
}

// Issue creates a signed token carrying the user's id, username and role,
// valid for the configured lifetime from now.
func (ti *TokenIssuer) Issue(userID int64, username string, role Role) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseClaims verifies the signature and claims of a token. Expired tokens
// return ErrTokenExpired; every other failure collapses to ErrInvalidToken.
func (ti *TokenIssuer) ParseClaims(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS512 {
				return nil, ErrInvalidToken
			}
			return ti.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Subject returns the username claim without requiring the token to be
// unexpired. The signature is still verified; an expired token's subject is
// needed at logout to locate its session record.
func (ti *TokenIssuer) Subject(tokenStr string) (string, error) {
	claims, err := ti.parseLenient(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExpiryUnixMilli returns the token's expiry in epoch milliseconds,
// signature-checked but accepted even when already past.
func (ti *TokenIssuer) ExpiryUnixMilli(tokenStr string) (int64, error) {
	claims, err := ti.parseLenient(tokenStr)
	if err != nil {
		return 0, err
	}
	return claims.ExpiresAt.UnixMilli(), nil
}

// IsExpired reports whether the token's expiry claim is in the past. A token
// that cannot be parsed at all counts as expired.
func (ti *TokenIssuer) IsExpired(tokenStr string) bool {
	claims, err := ti.parseLenient(tokenStr)
	if err != nil {
		return true
	}
	return !claims.ExpiresAt.After(time.Now())
}

// Validate reports whether the token parses, belongs to expectedUsername and
// has not expired. Every failure collapses to false, never an error.
func (ti *TokenIssuer) Validate(tokenStr, expectedUsername string) bool {
	claims, err := ti.ParseClaims(tokenStr)
	if err != nil {
		return false
	}
	return claims.Subject == expectedUsername
}

// parseLenient verifies the signature but skips claim validation, so expired
// tokens can still be inspected.
func (ti *TokenIssuer) parseLenient(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS512 {
				return nil, ErrInvalidToken
			}
			return ti.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
