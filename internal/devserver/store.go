package devserver

import (
	"context"
	"time"
)

// Store defines the persistence interface for accounts and revoked tokens.
type Store interface {
	CreateAccount(ctx context.Context, a Account) error
	AccountByEmail(ctx context.Context, email string) (Account, error)
	AccountByID(ctx context.Context, id string) (Account, error)
	UpdateAccount(ctx context.Context, a Account) error

	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
