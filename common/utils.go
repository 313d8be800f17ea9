package common

import (
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl32"
)

type Vec3 = mgl32.Vec3

type IT interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// NameHash returns a case-insensitive 32 bit hash of name.
func NameHash(name string) uint32 {
	return uint32(xxhash.Sum64String(strings.ToLower(name)))
}

// ParseVec3 converts a 3 element slice into a Vec3. Missing components are zero.
func ParseVec3[T IT](v []T) (res Vec3) {
	for i := 0; i < len(v) && i < 3; i++ {
		res[i] = float32(v[i])
	}
	return res
}
