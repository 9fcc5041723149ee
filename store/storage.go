package store

import (
	"context"

	"github.com/ernestjumbe/zimzimba-mobile/kv"
)

// StateStorage translates a store's persistence calls into backend key
// operations. It owns no state.
type StateStorage interface {
	GetItem(ctx context.Context, name string) (value string, found bool, err error)
	SetItem(ctx context.Context, name string, value string) error
	RemoveItem(ctx context.Context, name string) error
}

// NewKVStorage adapts a key-value backend to StateStorage.
func NewKVStorage(b kv.Backend) StateStorage {
	return kvStorage{backend: b}
}

type kvStorage struct {
	backend kv.Backend
}

func (s kvStorage) GetItem(ctx context.Context, name string) (string, bool, error) {
	return s.backend.Get(ctx, name)
}

func (s kvStorage) SetItem(ctx context.Context, name, value string) error {
	return s.backend.Set(ctx, name, value)
}

func (s kvStorage) RemoveItem(ctx context.Context, name string) error {
	return s.backend.Delete(ctx, name)
}
