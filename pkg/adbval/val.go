/*
Copyright 2026 The ADB Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package adbval defines the tagged 32-bit value word that is the unit
// of currency inside an ADB arena, along with the small set of pure
// encode/decode helpers that don't need to know about the arena they
// live in.
package adbval

import "encoding/binary"

// Tag is the 4-bit discriminator in the top bits of a Val.
type Tag uint8

const (
	// TagSpecial carries reserved sentinel values: Null and Error.
	TagSpecial Tag = 0
	// TagInt is an inline unsigned integer, 0..2^28-1.
	TagInt Tag = 1
	// TagInt32 is an arena offset to a little-endian 32-bit integer.
	TagInt32 Tag = 2
	// TagInt64 is reserved; not implemented.
	TagInt64 Tag = 3
	// TagBlob8 is an arena offset to a 1-byte length prefix plus data.
	TagBlob8 Tag = 4
	// TagBlob16 is an arena offset to a 2-byte length prefix plus data.
	TagBlob16 Tag = 5
	// TagBlob32 is an arena offset to a 4-byte length prefix plus data.
	TagBlob32 Tag = 6
	// TagObject is an arena offset to a value vector describing an object.
	TagObject Tag = 7
	// TagArray is an arena offset to a value vector describing an array.
	TagArray Tag = 8
)

const (
	tagShift   = 28
	tagMask    = 0xf
	payloadMax = 1<<tagShift - 1
)

// specialPayload values, carried in TagSpecial's payload. specialError
// is a marker bit well above any realistic rc range, not an rc bit
// itself, so Error(rc) round-trips through IsError for every rc that
// Error accepts (non-zero and below the marker bit) without clobbering
// it.
const (
	specialNull  = 0
	specialError = 1 << 27
)

// Val is a 32-bit tagged word: either an inline value (TagInt, and the
// Null/Error specials) or an offset into an arena.
type Val uint32

// Null is the canonical absent value.
var Null = Val(uint32(TagSpecial)<<tagShift | specialNull)

// pack builds a Val from a tag and a 28-bit payload. It panics if the
// payload doesn't fit -- this is always a programming error, since
// every caller is expected to have checked payloadMax first.
func pack(t Tag, payload uint32) Val {
	if payload > payloadMax {
		panic("adbval: payload overflows 28 bits")
	}
	return Val(uint32(t)<<tagShift | payload)
}

// Tag returns the value's type tag.
func (v Val) Tag() Tag {
	return Tag(uint32(v) >> tagShift)
}

// Payload returns the value's raw 28-bit payload, regardless of tag.
func (v Val) Payload() uint32 {
	return uint32(v) & payloadMax
}

// IsNull reports whether v is the Null sentinel.
func (v Val) IsNull() bool {
	return v.Tag() == TagSpecial && v.Payload() == specialNull
}

// IsError reports whether v is an Error sentinel, and if so its code.
func (v Val) IsError() (rc uint32, ok bool) {
	if v.Tag() != TagSpecial || v.Payload() == specialNull {
		return 0, false
	}
	return v.Payload() &^ specialError, true
}

// Error builds an ERROR(rc) sentinel value. rc must be non-zero and
// must fit below specialError's marker bit; the on-disk format never
// contains these (see pkg/adbwriter), they only ever travel in memory
// between writer calls.
func Error(rc uint32) Val {
	if rc == 0 || rc&specialError != 0 {
		panic("adbval: Error rc must be non-zero and fit in 27 bits")
	}
	return pack(TagSpecial, rc|specialError)
}

// Int builds an inline INT value. It panics if v doesn't fit in 28
// bits -- callers needing a larger integer must use an INT_32 payload,
// which only the arena-aware writer can allocate.
func Int(v uint32) Val {
	return pack(TagInt, v)
}

// FitsInline reports whether v can be stored as an inline INT.
func FitsInline(v uint32) bool {
	return v <= payloadMax
}

// Offset builds a value referencing an out-of-line payload at the
// given arena offset.
func Offset(t Tag, offset uint32) Val {
	switch t {
	case TagInt32, TagBlob8, TagBlob16, TagBlob32, TagObject, TagArray:
	default:
		panic("adbval: Offset called with a non-offset tag")
	}
	return pack(t, offset)
}

// BlobPrefixWidth returns the byte width of the length prefix for the
// given blob tag, or 0 if t isn't a blob tag.
func BlobPrefixWidth(t Tag) int {
	switch t {
	case TagBlob8:
		return 1
	case TagBlob16:
		return 2
	case TagBlob32:
		return 4
	default:
		return 0
	}
}

// BlobTagForLen returns the smallest blob tag whose length prefix can
// hold n, and false if n is too large for any of them.
func BlobTagForLen(n int) (Tag, bool) {
	switch {
	case n < 0:
		return 0, false
	case n <= 0xff:
		return TagBlob8, true
	case n <= 0xffff:
		return TagBlob16, true
	case n <= 0xffffffff:
		return TagBlob32, true
	default:
		return 0, false
	}
}

// PutUint32 and Uint32 centralize the little-endian convention used
// for every multi-byte quantity in the arena (INT_32 payloads, blob
// length prefixes, object/array vector slots).
func PutUint32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func Uint32(b []byte) uint32       { return binary.LittleEndian.Uint32(b) }
