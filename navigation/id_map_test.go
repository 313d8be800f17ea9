package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDMapSaltInvalidatesStaleIDs(t *testing.T) {
	var m IDMap[string]
	a := m.Insert("a")
	b := m.Insert("b")
	assert.NotEqual(t, a, b)
	assert.Equal(t, "a", *m.Get(a))
	assert.Equal(t, 2, m.Len())

	require.True(t, m.Erase(a))
	assert.False(t, m.Validate(a))
	assert.Nil(t, m.Get(a))
	assert.False(t, m.Erase(a))

	c := m.Insert("c")
	assert.Equal(t, decodeIDIndex(a), decodeIDIndex(c), "slot is reused")
	assert.NotEqual(t, a, c)
	assert.False(t, m.Validate(a))
	assert.Equal(t, []uint32{c, b}, m.IDs())
}

func TestIDMapInsertWithID(t *testing.T) {
	var m IDMap[int]
	id := encodeID(7, 3)
	require.NoError(t, m.InsertWithID(id, 42))
	assert.Equal(t, 42, *m.Get(id))
	assert.ErrorIs(t, m.InsertWithID(id, 1), ErrIDInUse)
	assert.ErrorIs(t, m.InsertWithID(0, 1), ErrInvalidID)

	// the slots skipped over stay available
	other := m.Insert(5)
	assert.NotEqual(t, decodeIDIndex(id), decodeIDIndex(other))
	assert.Equal(t, 2, m.Len())

	m.Clear()
	assert.Equal(t, 0, m.Len())
	assert.False(t, m.Validate(id))
}
