package theme

import (
	"context"
	"testing"

	"github.com/ernestjumbe/zimzimba-mobile/kv"
	"github.com/ernestjumbe/zimzimba-mobile/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsSystem(t *testing.T) {
	s := NewStore(store.NewKVStorage(kv.NewMemory()))
	assert.Equal(t, System, s.Mode())
	assert.Equal(t, Dark, s.Resolve(true))
	assert.Equal(t, Light, s.Resolve(false))
}

func TestSetTheme(t *testing.T) {
	backend := kv.NewMemory()
	s := NewStore(store.NewKVStorage(backend))

	require.NoError(t, s.SetTheme(Dark))
	assert.Equal(t, Dark, s.Mode())
	assert.Equal(t, Dark, s.Resolve(false))

	assert.ErrorIs(t, s.SetTheme("sepia"), ErrInvalidMode)
	assert.Equal(t, Dark, s.Mode())

	raw, ok, err := backend.Get(context.Background(), StorageName)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"state":{"mode":"dark"},"version":0}`, raw)
}

func TestToggle(t *testing.T) {
	s := NewStore(store.NewKVStorage(kv.NewMemory()))

	tests := []struct {
		from Mode
		want Mode
	}{
		{Light, Dark},
		{Dark, Light},
		{System, Light},
	}
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			require.NoError(t, s.SetTheme(tt.from))
			assert.Equal(t, tt.want, s.Toggle())
			assert.Equal(t, tt.want, s.Mode())
		})
	}
}

func TestRestoredOnStartup(t *testing.T) {
	backend := kv.NewMemory()
	require.NoError(t, NewStore(store.NewKVStorage(backend)).SetTheme(Light))

	assert.Equal(t, Light, NewStore(store.NewKVStorage(backend)).Mode())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("dark")
	require.NoError(t, err)
	assert.Equal(t, Dark, m)

	_, err = ParseMode("Dark")
	assert.ErrorIs(t, err, ErrInvalidMode)
}
