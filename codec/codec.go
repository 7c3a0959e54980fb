// Package codec defines how keys and values are turned into the bytes
// written to a region, grounded on
// original_source/foyer-common/src/code.rs's Key/Value traits
// (serialized_len/write/read), generalized from that file's per-primitive
// macro expansion into a small set of concrete Go implementations plus the
// interface itself for user-defined types.
package codec

import "encoding/binary"

// Codec converts a T to and from its on-disk representation.
type Codec[T any] interface {
	// Len returns the exact number of bytes Write will produce for v.
	Len(v T) int
	// Write serializes v into buf, which is exactly Len(v) bytes.
	Write(v T, buf []byte)
	// Read deserializes a T from buf, which is exactly the length
	// previously returned by Len for the value being read back.
	Read(buf []byte) T
}

// Uint64 codes a uint64 as 8 bytes, big-endian.
type Uint64 struct{}

func (Uint64) Len(uint64) int { return 8 }
func (Uint64) Write(v uint64, buf []byte) { binary.BigEndian.PutUint64(buf, v) }
func (Uint64) Read(buf []byte) uint64     { return binary.BigEndian.Uint64(buf) }

// String codes a string as its raw UTF-8 bytes, with no length prefix
// (the engine's wire format already carries key/value lengths).
type String struct{}

func (String) Len(v string) int          { return len(v) }
func (String) Write(v string, buf []byte) { copy(buf, v) }
func (String) Read(buf []byte) string     { return string(buf) }

// Bytes codes a []byte as itself.
type Bytes struct{}

func (Bytes) Len(v []byte) int          { return len(v) }
func (Bytes) Write(v []byte, buf []byte) { copy(buf, v) }
func (Bytes) Read(buf []byte) []byte {
	out := make([]byte, len(buf))
	copy(out, buf)
	return out
}
