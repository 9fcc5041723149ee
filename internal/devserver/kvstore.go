package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ernestjumbe/zimzimba-mobile/kv"
)

const (
	accountPrefix = "devserver/account/"
	emailPrefix   = "devserver/email/"
	revokedPrefix = "devserver/revoked/"
)

// KVStore implements Store on a kv.Backend. Each account is one JSON
// document keyed by id, with a separate email index entry.
type KVStore struct {
	backend kv.Backend

	// mu serializes account writes so the email index stays unique.
	mu sync.Mutex
}

// NewKVStore creates a store on backend.
func NewKVStore(backend kv.Backend) *KVStore {
	return &KVStore{backend: backend}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *KVStore) CreateAccount(ctx context.Context, a Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalizeEmail(a.Email)
	exists, err := s.backend.Contains(ctx, emailPrefix+email)
	if err != nil {
		return fmt.Errorf("checking email: %w", err)
	}
	if exists {
		return ErrUserExists
	}

	if err := s.putAccount(ctx, a); err != nil {
		return err
	}
	if err := s.backend.Set(ctx, emailPrefix+email, a.ID); err != nil {
		return fmt.Errorf("indexing email: %w", err)
	}
	return nil
}

func (s *KVStore) AccountByEmail(ctx context.Context, email string) (Account, error) {
	id, found, err := s.backend.Get(ctx, emailPrefix+normalizeEmail(email))
	if err != nil {
		return Account{}, fmt.Errorf("looking up email: %w", err)
	}
	if !found {
		return Account{}, ErrUserNotFound
	}
	return s.AccountByID(ctx, id)
}

func (s *KVStore) AccountByID(ctx context.Context, id string) (Account, error) {
	raw, found, err := s.backend.Get(ctx, accountPrefix+id)
	if err != nil {
		return Account{}, fmt.Errorf("reading account: %w", err)
	}
	if !found {
		return Account{}, ErrUserNotFound
	}

	var a Account
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return Account{}, fmt.Errorf("decoding account %s: %w", id, err)
	}
	return a, nil
}

func (s *KVStore) UpdateAccount(ctx context.Context, a Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.backend.Contains(ctx, accountPrefix+a.ID)
	if err != nil {
		return fmt.Errorf("checking account: %w", err)
	}
	if !exists {
		return ErrUserNotFound
	}
	return s.putAccount(ctx, a)
}

func (s *KVStore) putAccount(ctx context.Context, a Account) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding account: %w", err)
	}
	if err := s.backend.Set(ctx, accountPrefix+a.ID, string(raw)); err != nil {
		return fmt.Errorf("writing account: %w", err)
	}
	return nil
}

// RevokeToken records tokenID as revoked until expiresAt.
func (s *KVStore) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if err := s.backend.Set(ctx, revokedPrefix+tokenID, expiresAt.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

func (s *KVStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	revoked, err := s.backend.Contains(ctx, revokedPrefix+tokenID)
	if err != nil {
		return false, fmt.Errorf("checking revocation: %w", err)
	}
	return revoked, nil
}
