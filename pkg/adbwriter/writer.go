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

// Package adbwriter builds an ADB arena in memory: it appends to a
// growable buffer, interns identical payloads by hash bucket, and
// assembles OBJECT/ARRAY vectors through a reusable Builder.
package adbwriter

import (
	"errors"

	"github.com/chimera-linux/apk-tools/pkg/adbval"
)

// Error taxonomy for the writer. These are the writer-side half of the
// taxonomy in spec.md section 7; the container and signature layers
// define their own.
var (
	ErrStaticReadOnly = errors.New("adbwriter: database is static and cannot grow")
	ErrTooLarge       = errors.New("adbwriter: object/array exceeds the per-level slot cap")
	ErrNotImplemented = errors.New("adbwriter: INT_64/BLOB_32 are not implemented")
	ErrPoisoned       = errors.New("adbwriter: database is poisoned by a prior write error")
)

// initialArenaCap is the starting capacity of a fresh writable arena's
// backing buffer, per the doubling-growth policy in spec.md section
// 4.3. Go's own slice append already grows geometrically once past
// this; reserving it up front just avoids the first few reallocations.
const initialArenaCap = 8 << 10

// numBuckets is the fixed size of the dedup hash table.
const numBuckets = 1024

type internEntry struct {
	hash  uint32
	len   uint32
	align uint32
	offs  uint32
}

// DB is a writable ADB database: a growable arena plus the
// content-dedup table used by Intern. Construct one with NewWritable
// or NewStatic.
type DB struct {
	Arena []byte

	static  bool
	buckets [][]internEntry // nil for static databases

	// Poisoned and Err record the first write failure. Once set, the
	// writer refuses further mutation and any container layer built on
	// top of this package must refuse to serialize (spec.md section
	// 4.3's "invalidates the header magic").
	Poisoned bool
	Err      error
}

// NewWritable creates an empty writable database with dedup buckets.
func NewWritable() *DB {
	return &DB{
		Arena:   make([]byte, 0, initialArenaCap),
		buckets: make([][]internEntry, numBuckets),
	}
}

// NewStatic wraps caller-provided storage as a non-growable database.
// Interning is skipped; any write that would need new storage fails
// with ErrStaticReadOnly.
func NewStatic(buf []byte) *DB {
	return &DB{Arena: buf, static: true}
}

func (db *DB) poison(err error) {
	if !db.Poisoned {
		db.Poisoned = true
		db.Err = err
	}
}

// fail records err as the poisoning cause (if not already poisoned)
// and returns the in-memory ERROR sentinel plus err, so a caller that
// checks the returned error gets an accurate cause, and one that
// doesn't still receives a value that is visibly not a normal Val.
func (db *DB) fail(err error) (adbval.Val, error) {
	db.poison(err)
	return adbval.Error(errCode(err)), err
}

// errCode maps a writer sentinel error to the small integer code
// carried by an in-memory ERROR value. These codes never reach disk;
// see pkg/adbval's Error doc.
func errCode(err error) uint32 {
	switch {
	case errors.Is(err, ErrStaticReadOnly):
		return 1
	case errors.Is(err, ErrTooLarge):
		return 2
	case errors.Is(err, ErrNotImplemented):
		return 3
	default:
		return 0xff
	}
}

func padLen(size int, align uint32) int {
	if align <= 1 {
		return 0
	}
	rem := size % int(align)
	if rem == 0 {
		return 0
	}
	return int(align) - rem
}

// rawAppend pads the arena to align and appends fragments in order,
// returning the offset of the first fragment byte. Static databases
// always fail: they own no growth policy.
func (db *DB) rawAppend(align uint32, fragments ...[]byte) (uint32, error) {
	if db.static {
		return 0, ErrStaticReadOnly
	}
	for i := 0; i < padLen(len(db.Arena), align); i++ {
		db.Arena = append(db.Arena, 0)
	}
	offset := uint32(len(db.Arena))
	for _, f := range fragments {
		db.Arena = append(db.Arena, f...)
	}
	return offset, nil
}

// djbHash is the spec-mandated 32-bit hash: seeded 5381, h = h*33 ^ b
// per byte. It is not the textbook FNV hash (different seed/mixing),
// so pkg hash/fnv can't stand in for it; this is the one component
// hand-rolled against the standard library rather than a library
// because the bit-for-bit algorithm is part of the on-disk contract
// via interning stability, not an implementation detail.
func djbHash(fragments ...[]byte) uint32 {
	h := uint32(5381)
	for _, f := range fragments {
		for _, b := range f {
			h = h*33 ^ uint32(b)
		}
	}
	return h
}

func fragLen(fragments [][]byte) int {
	n := 0
	for _, f := range fragments {
		n += len(f)
	}
	return n
}

func fragEqual(fragments [][]byte, arena []byte, offs, length uint32) bool {
	if uint32(fragLen(fragments)) != length {
		return false
	}
	if int(offs+length) > len(arena) {
		return false
	}
	pos := offs
	for _, f := range fragments {
		if !bytesEqual(arena[pos:pos+uint32(len(f))], f) {
			return false
		}
		pos += uint32(len(f))
	}
	return true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Intern returns the offset of fragments (concatenated) within the
// arena, reusing an existing identical-and-same-alignment payload if
// one was interned already. Static databases skip interning and
// always fail, since they can't grow to hold a new payload.
func (db *DB) Intern(align uint32, fragments ...[]byte) (uint32, error) {
	if db.static {
		return 0, ErrStaticReadOnly
	}
	length := uint32(fragLen(fragments))
	hash := djbHash(fragments...)
	bucket := hash % numBuckets
	for _, e := range db.buckets[bucket] {
		if e.hash == hash && e.len == length && e.align == align && fragEqual(fragments, db.Arena, e.offs, e.len) {
			return e.offs, nil
		}
	}
	offs, err := db.rawAppend(align, fragments...)
	if err != nil {
		return 0, err
	}
	db.buckets[bucket] = append(db.buckets[bucket], internEntry{hash: hash, len: length, align: align, offs: offs})
	return offs, nil
}

// WriteInt encodes v, inlining it when it fits in 28 bits and
// otherwise allocating a 4-byte little-endian INT_32 payload.
func (db *DB) WriteInt(v uint32) adbval.Val {
	if adbval.FitsInline(v) {
		return adbval.Int(v)
	}
	buf := make([]byte, 4)
	adbval.PutUint32(buf, v)
	off, err := db.Intern(4, buf)
	if err != nil {
		v, _ := db.fail(err)
		return v
	}
	return adbval.Offset(adbval.TagInt32, off)
}

// WriteBlob encodes b as the smallest BLOB_N tag that fits its length,
// or Null for an empty blob.
func (db *DB) WriteBlob(b []byte) adbval.Val {
	if len(b) == 0 {
		return adbval.Null
	}
	tag, ok := adbval.BlobTagForLen(len(b))
	if !ok {
		v, _ := db.fail(ErrTooLarge)
		return v
	}
	width := adbval.BlobPrefixWidth(tag)
	prefix := make([]byte, width)
	switch width {
	case 1:
		prefix[0] = byte(len(b))
	case 2:
		prefix[0] = byte(len(b))
		prefix[1] = byte(len(b) >> 8)
	case 4:
		adbval.PutUint32(prefix, uint32(len(b)))
	}
	off, err := db.Intern(uint32(width), prefix, b)
	if err != nil {
		v, _ := db.fail(err)
		return v
	}
	return adbval.Offset(tag, off)
}

// Int and Blob let DB serve as an adbschema.Arena, so scalar
// Compare/FromString callbacks and the sort/copy paths can read values
// already written into this same arena without going through a
// separate reader.
func (db *DB) Int(v adbval.Val) uint32 {
	switch v.Tag() {
	case adbval.TagInt:
		return v.Payload()
	case adbval.TagInt32:
		off := int(v.Payload())
		if off < 0 || off+4 > len(db.Arena) {
			return 0
		}
		return adbval.Uint32(db.Arena[off : off+4])
	default:
		return 0
	}
}

func (db *DB) Blob(v adbval.Val) []byte {
	width := adbval.BlobPrefixWidth(v.Tag())
	if width == 0 {
		return nil
	}
	off := int(v.Payload())
	if off < 0 || off+width > len(db.Arena) {
		return nil
	}
	var n int
	switch width {
	case 1:
		n = int(db.Arena[off])
	case 2:
		n = int(db.Arena[off]) | int(db.Arena[off+1])<<8
	case 4:
		n = int(adbval.Uint32(db.Arena[off : off+4]))
	}
	start := off + width
	end := start + n
	if n < 0 || end < start || end > len(db.Arena) {
		return nil
	}
	return db.Arena[start:end]
}

// SetRoot appends v as the arena's root value, 4-byte aligned. Callers
// must call this exactly once, after all object/array commits --
// readers depend on the root being the arena's last 4 bytes.
func (db *DB) SetRoot(v adbval.Val) error {
	buf := make([]byte, 4)
	adbval.PutUint32(buf, uint32(v))
	_, err := db.rawAppend(4, buf)
	if err != nil {
		db.poison(err)
		return err
	}
	return nil
}

// Len returns the final arena length. A writable database transitions
// to serializable by calling this once all commits and SetRoot are
// done; it never transitions back to growable.
func (db *DB) Len() int {
	return len(db.Arena)
}
