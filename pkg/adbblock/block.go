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

// Package adbblock implements the length-prefixed, type-tagged,
// alignment-padded block framing used by the ADB container format.
package adbblock

import (
	"encoding/binary"
	"errors"
)

// Type is the 2-bit block type discriminator.
type Type uint8

const (
	TypeADB      Type = 0
	TypeSIG      Type = 1
	TypeDATA     Type = 2
	TypeReserved Type = 3
)

// HeaderSize is the size in bytes of a block's raw32 header.
const HeaderSize = 4

// Align is the container-wide block alignment, in bytes.
const Align = 32

// ErrMalformed is returned for any framing validation failure: a
// declared size that doesn't fit the remaining bytes, a declared size
// smaller than the header itself, or a header that doesn't fit in
// what's left. The type tag is not checked here: every 2-bit value,
// including TypeReserved, decodes.
var ErrMalformed = errors.New("adbblock: malformed block")

const (
	typeShift = 30
	sizeMask  = 1<<typeShift - 1
)

// Header describes one block: its type and the size of header+payload
// (not counting trailing alignment padding).
type Header struct {
	Type Type
	Size uint32
}

// PayloadSize returns the number of payload bytes following the header.
func (h Header) PayloadSize() uint32 {
	return h.Size - HeaderSize
}

// PaddedSize returns Size rounded up to the next Align boundary.
func (h Header) PaddedSize() uint32 {
	return Pad(h.Size, Align)
}

// Pad rounds size up to the next multiple of align.
func Pad(size, align uint32) uint32 {
	rem := size % align
	if rem == 0 {
		return size
	}
	return size + (align - rem)
}

func decodeHeader(raw uint32) (Header, error) {
	h := Header{
		Type: Type(raw >> typeShift),
		Size: raw & sizeMask,
	}
	if h.Size < HeaderSize {
		return Header{}, ErrMalformed
	}
	return h, nil
}

// DecodeHeaderBytes decodes a single 4-byte block header, without
// knowing yet how many payload bytes follow it in the underlying
// stream. It is the streaming counterpart to First/Next, which both
// require the whole block (header and payload) to already be in
// memory.
func DecodeHeaderBytes(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, ErrMalformed
	}
	return decodeHeader(binary.LittleEndian.Uint32(b[:HeaderSize]))
}

func encodeHeader(h Header) uint32 {
	return uint32(h.Type)<<typeShift | (h.Size & sizeMask)
}

// Cursor identifies a block's position within a byte range, as
// returned by First/Next.
type Cursor struct {
	Header Header
	Offset int // offset of the block header within the range
}

// End reports the offset just past this block's padded region -- the
// offset of the next block's header, if any.
func (c Cursor) End() int {
	return c.Offset + int(c.Header.PaddedSize())
}

// Payload returns the block's payload slice within data.
func (c Cursor) Payload(data []byte) []byte {
	start := c.Offset + HeaderSize
	return data[start : start+int(c.Header.PayloadSize())]
}

// First returns the first block in data, or ok=false if data is empty.
// It returns ErrMalformed if data is non-empty but too short or
// corrupt.
func First(data []byte) (cur Cursor, ok bool, err error) {
	if len(data) == 0 {
		return Cursor{}, false, nil
	}
	return readAt(data, 0)
}

// Next returns the block following cur within data, or ok=false if cur
// was the last block.
func Next(cur Cursor, data []byte) (next Cursor, ok bool, err error) {
	pos := cur.End()
	if pos == len(data) {
		return Cursor{}, false, nil
	}
	if pos > len(data) {
		return Cursor{}, false, ErrMalformed
	}
	return readAt(data, pos)
}

func readAt(data []byte, pos int) (Cursor, bool, error) {
	remaining := len(data) - pos
	if remaining < HeaderSize {
		return Cursor{}, false, ErrMalformed
	}
	raw := binary.LittleEndian.Uint32(data[pos : pos+HeaderSize])
	h, err := decodeHeader(raw)
	if err != nil {
		return Cursor{}, false, err
	}
	if int(h.Size) > remaining {
		return Cursor{}, false, ErrMalformed
	}
	padded := int(h.PaddedSize())
	if padded > remaining {
		return Cursor{}, false, ErrMalformed
	}
	return Cursor{Header: h, Offset: pos}, true, nil
}

// Append encodes a block header+payload (without padding) into dst,
// returning the extended slice. Callers are responsible for appending
// Pad(len(header)+len(payload), Align) - (len(header)+len(payload))
// zero bytes afterwards; AppendPadded does both in one call.
func Append(dst []byte, t Type, payload []byte) []byte {
	size := uint32(HeaderSize + len(payload))
	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[:], encodeHeader(Header{Type: t, Size: size}))
	dst = append(dst, hdr[:]...)
	dst = append(dst, payload...)
	return dst
}

// AppendPadded is Append followed by zero-padding to Align.
func AppendPadded(dst []byte, t Type, payload []byte) []byte {
	before := len(dst)
	dst = Append(dst, t, payload)
	written := len(dst) - before
	padded := int(Pad(uint32(written), Align))
	for i := written; i < padded; i++ {
		dst = append(dst, 0)
	}
	return dst
}
