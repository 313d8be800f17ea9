package navigation

import "fmt"

type AgentTypeID uint32

type MeshID uint32

type VolumeID uint32

const (
	InvalidAgentTypeID AgentTypeID = 0
	InvalidMeshID      MeshID      = 0
	InvalidVolumeID    VolumeID    = 0
)

const maxIDMapSlots = 0xffff

type idMapSlot[T any] struct {
	salt  uint16
	used  bool
	value T
}

// IDMap is a slot map handing out ids that encode a slot index and a salt.
// Erasing a value bumps the salt, so stale ids stop validating when the slot
// is reused.
type IDMap[T any] struct {
	slots []idMapSlot[T]
	free  []int
	count int
}

func encodeID(salt uint16, index int) uint32 {
	return uint32(salt)<<16 | uint32(index+1)
}

func decodeIDSalt(id uint32) uint16 {
	return uint16(id >> 16)
}

func decodeIDIndex(id uint32) int {
	return int(id&0xffff) - 1
}

func (m *IDMap[T]) Insert(value T) uint32 {
	var idx int
	if n := len(m.free); n > 0 {
		idx = m.free[n-1]
		m.free = m.free[:n-1]
	} else {
		m.slots = append(m.slots, idMapSlot[T]{salt: 1})
		idx = len(m.slots) - 1
	}
	s := &m.slots[idx]
	s.used = true
	s.value = value
	m.count++
	return encodeID(s.salt, idx)
}

// InsertWithID stores value under a previously issued id, as needed when
// loading persisted data.
func (m *IDMap[T]) InsertWithID(id uint32, value T) error {
	idx, salt := decodeIDIndex(id), decodeIDSalt(id)
	if idx < 0 || idx >= maxIDMapSlots || salt == 0 {
		return fmt.Errorf("%w: %#x", ErrInvalidID, id)
	}
	for len(m.slots) <= idx {
		m.slots = append(m.slots, idMapSlot[T]{salt: 1})
		m.free = append(m.free, len(m.slots)-1)
	}
	s := &m.slots[idx]
	if s.used {
		return fmt.Errorf("%w: %#x", ErrIDInUse, id)
	}
	for i, f := range m.free {
		if f == idx {
			m.free = append(m.free[:i], m.free[i+1:]...)
			break
		}
	}
	s.salt = salt
	s.used = true
	s.value = value
	m.count++
	return nil
}

func (m *IDMap[T]) Validate(id uint32) bool {
	idx := decodeIDIndex(id)
	if idx < 0 || idx >= len(m.slots) {
		return false
	}
	s := &m.slots[idx]
	return s.used && s.salt == decodeIDSalt(id)
}

// Get returns a pointer to the stored value, or nil for stale ids.
func (m *IDMap[T]) Get(id uint32) *T {
	if !m.Validate(id) {
		return nil
	}
	return &m.slots[decodeIDIndex(id)].value
}

func (m *IDMap[T]) Erase(id uint32) bool {
	if !m.Validate(id) {
		return false
	}
	idx := decodeIDIndex(id)
	s := &m.slots[idx]
	var zero T
	s.value = zero
	s.used = false
	s.salt++
	if s.salt == 0 {
		s.salt = 1
	}
	m.free = append(m.free, idx)
	m.count--
	return true
}

func (m *IDMap[T]) Len() int {
	return m.count
}

// IDs returns the live ids in slot order.
func (m *IDMap[T]) IDs() []uint32 {
	res := make([]uint32, 0, m.count)
	for i := range m.slots {
		if m.slots[i].used {
			res = append(res, encodeID(m.slots[i].salt, i))
		}
	}
	return res
}

func (m *IDMap[T]) Clear() {
	m.slots = nil
	m.free = nil
	m.count = 0
}
