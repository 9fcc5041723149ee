package devserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims holds the JWT claims we care about.
type Claims struct {
	Subject   string
	TokenID   string
	ExpiresAt time.Time
}

// Tokens issues and verifies HS256 access tokens.
type Tokens struct {
	secret  []byte
	issuer  string
	ttl     time.Duration
	revoked func(ctx context.Context, tokenID string) (bool, error)
	now     func() time.Time
}

// NewTokens creates a token issuer. revoked may be nil.
func NewTokens(secret, issuer string, ttl time.Duration, revoked func(context.Context, string) (bool, error)) *Tokens {
	return &Tokens{
		secret:  []byte(secret),
		issuer:  issuer,
		ttl:     ttl,
		revoked: revoked,
		now:     time.Now,
	}
}

// Issue signs a token for userID carrying sub, iss, iat, exp and jti.
func (t *Tokens) Issue(userID string) (string, Claims, error) {
	now := t.now()
	claims := Claims{
		Subject:   userID,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(t.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   claims.Subject,
		Issuer:    t.issuer,
		ID:        claims.TokenID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, claims, nil
}

// Verify parses tokenStr, checks its signature, issuer and expiry, and
// rejects revoked tokens.
func (t *Tokens) Verify(ctx context.Context, tokenStr string) (Claims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(t.issuer))
	}

	var rc jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenStr, &rc, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, parserOpts...)
	if err != nil {
		return Claims{}, err
	}
	if !token.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if rc.Subject == "" {
		return Claims{}, errors.New("token missing subject claim")
	}

	claims := Claims{Subject: rc.Subject, TokenID: rc.ID}
	if rc.ExpiresAt != nil {
		claims.ExpiresAt = rc.ExpiresAt.Time
	}

	if claims.TokenID != "" && t.revoked != nil {
		revoked, err := t.revoked(ctx, claims.TokenID)
		if err != nil {
			return Claims{}, err
		}
		if revoked {
			return Claims{}, ErrTokenRevoked
		}
	}

	return claims, nil
}
