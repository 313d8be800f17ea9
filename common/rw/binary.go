package rw

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

var ErrShortBuffer = errors.New("rw: short buffer")

// ReaderWriter is a little-endian binary encoder/decoder over an in-memory
// buffer. Reads after the first failure return zero values; the failure is
// reported by Err.
type ReaderWriter struct {
	order   binary.ByteOrder
	dataBuf []byte
	rw      bytes.Buffer
	err     error
}

func NewWriter() *ReaderWriter {
	return &ReaderWriter{order: binary.LittleEndian, dataBuf: make([]byte, 8)}
}

func NewReader(data []byte) *ReaderWriter {
	d := &ReaderWriter{order: binary.LittleEndian, dataBuf: make([]byte, 8)}
	d.rw.Write(data)
	return d
}

func (w *ReaderWriter) Err() error {
	return w.err
}

func (w *ReaderWriter) read(n int) []byte {
	if w.err != nil {
		return nil
	}
	if w.rw.Len() < n {
		w.err = fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, n, w.rw.Len())
		return nil
	}
	_, _ = io.ReadFull(&w.rw, w.dataBuf[:n])
	return w.dataBuf[:n]
}

func (w *ReaderWriter) ReadUInt8() uint8 {
	b := w.read(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (w *ReaderWriter) ReadUInt16() uint16 {
	b := w.read(2)
	if b == nil {
		return 0
	}
	return w.order.Uint16(b)
}

func (w *ReaderWriter) ReadUInt16s(value []uint16) {
	for i := range value {
		value[i] = w.ReadUInt16()
	}
}

func (w *ReaderWriter) ReadUInt32() uint32 {
	b := w.read(4)
	if b == nil {
		return 0
	}
	return w.order.Uint32(b)
}

func (w *ReaderWriter) ReadFloat32() float32 {
	return math.Float32frombits(w.ReadUInt32())
}

func (w *ReaderWriter) ReadVec3() (v mgl32.Vec3) {
	for i := range v {
		v[i] = w.ReadFloat32()
	}
	return v
}

// ReadCount reads a uint32 element count and checks that at least
// count*elemSize bytes remain, so corrupt counts cannot drive huge allocations.
func (w *ReaderWriter) ReadCount(elemSize int) int {
	n := int(w.ReadUInt32())
	if w.err != nil {
		return 0
	}
	if elemSize > 0 && n > w.rw.Len()/elemSize {
		w.err = fmt.Errorf("%w: count %d exceeds remaining data", ErrShortBuffer, n)
		return 0
	}
	return n
}

func (w *ReaderWriter) WriteInt8(v interface{}) {
	switch value := v.(type) {
	case int8:
		w.rw.WriteByte(byte(value))
	case uint8:
		w.rw.WriteByte(value)
	case bool:
		if value {
			w.rw.WriteByte(1)
		} else {
			w.rw.WriteByte(0)
		}
	default:
		panic(fmt.Sprintf("rw: WriteInt8 not impl for %T", v))
	}
}

func (w *ReaderWriter) WriteInt16(v interface{}) {
	switch value := v.(type) {
	case int16:
		w.order.PutUint16(w.dataBuf, uint16(value))
	case uint16:
		w.order.PutUint16(w.dataBuf, value)
	default:
		panic(fmt.Sprintf("rw: WriteInt16 not impl for %T", v))
	}
	w.rw.Write(w.dataBuf[:2])
}

func (w *ReaderWriter) WriteInt16s(value []uint16) {
	for _, tmp := range value {
		w.WriteInt16(tmp)
	}
}

func (w *ReaderWriter) WriteInt32(v interface{}) {
	switch value := v.(type) {
	case int32:
		w.order.PutUint32(w.dataBuf, uint32(value))
	case int:
		w.order.PutUint32(w.dataBuf, uint32(value))
	case uint32:
		w.order.PutUint32(w.dataBuf, value)
	default:
		panic(fmt.Sprintf("rw: WriteInt32 not impl for %T", v))
	}
	w.rw.Write(w.dataBuf[:4])
}

func (w *ReaderWriter) WriteFloat32(v interface{}) {
	switch value := v.(type) {
	case float32:
		w.order.PutUint32(w.dataBuf, math.Float32bits(value))
	case float64:
		w.order.PutUint32(w.dataBuf, math.Float32bits(float32(value)))
	default:
		panic(fmt.Sprintf("rw: WriteFloat32 not impl for %T", v))
	}
	w.rw.Write(w.dataBuf[:4])
}

func (w *ReaderWriter) WriteVec3(v mgl32.Vec3) {
	for _, c := range v {
		w.WriteFloat32(c)
	}
}

func (w *ReaderWriter) GetWriteBytes() []byte {
	return w.rw.Bytes()
}

// Size returns the number of unread bytes.
func (w *ReaderWriter) Size() int {
	return w.rw.Len()
}
