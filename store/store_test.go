package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(InMemoryConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetDelete(t *testing.T) {
	s := openInMemory(t)

	require.NoError(t, s.Put("level1", []byte{1, 2, 3}))
	require.NoError(t, s.Put("level0", []byte{4}))
	got, err := s.Get("level1")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"level0", "level1"}, keys)

	require.NoError(t, s.Put("level1", []byte{9}))
	got, err = s.Get("level1")
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, got)

	require.NoError(t, s.Delete("level1"))
	_, err = s.Get("level1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPersistentStore(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Config{Path: dir, SyncWrites: true}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Put("level", []byte("data")))
	require.NoError(t, s.Close())

	s, err = Open(Config{Path: dir}, nil)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get("level")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), got)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{}, nil)
	assert.Error(t, err)
}
