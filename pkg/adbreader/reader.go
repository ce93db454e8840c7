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

// Package adbreader navigates a value arena guided by an object
// schema, producing typed views over OBJECT and ARRAY values without
// ever copying the underlying bytes.
package adbreader

import (
	"sort"

	"github.com/chimera-linux/apk-tools/pkg/adbblock"
	"github.com/chimera-linux/apk-tools/pkg/adbschema"
	"github.com/chimera-linux/apk-tools/pkg/adbval"
)

// DB wraps a read-only arena: a mapped file's payload, a range handed
// to FromBlob, or an in-memory buffer assembled by the writer. It
// implements adbschema.Arena so scalar Compare/FromString callbacks
// can use it directly.
type DB struct {
	Arena []byte
}

// Root returns the arena's root value: its final 4 bytes. An arena
// shorter than 4 bytes has no root and returns adbval.Null.
func (db *DB) Root() adbval.Val {
	if len(db.Arena) < 4 {
		return adbval.Null
	}
	return adbval.Val(adbval.Uint32(db.Arena[len(db.Arena)-4:]))
}

// Int returns v's integer payload: the inline value for TagInt, the
// dereferenced little-endian word for TagInt32, or 0 for any other tag
// (including an out-of-bounds TagInt32 offset).
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

// Blob decodes v's length prefix and returns the slice it describes.
// Any bounds failure, or a tag that isn't one of the BLOB_* tags,
// yields a nil slice.
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

// View is a navigable OBJECT or ARRAY value: the vector of slots plus
// the schema describing how to interpret them.
type View struct {
	db      *DB
	schema  *adbschema.Object
	offset  int    // arena offset of the vector (slot 0)
	n       uint32 // total slot count, including slot 0
	isArray bool
}

// degenerate is returned whenever Obj can't make sense of v: wrong
// tag, or an offset/length that doesn't fit the arena. n=1 means every
// field read (index >= 1) falls outside the vector and yields Null.
func degenerate(db *DB, schema *adbschema.Object, isArray bool) View {
	return View{db: db, schema: schema, n: 1, isArray: isArray}
}

// Obj interprets v as an OBJECT or ARRAY value described by schema.
func (db *DB) Obj(v adbval.Val, schema *adbschema.Object) View {
	isArray := v.Tag() == adbval.TagArray
	if v.Tag() != adbval.TagObject && !isArray {
		return degenerate(db, schema, isArray)
	}
	off := int(v.Payload())
	if off < 0 || off+4 > len(db.Arena) {
		return degenerate(db, schema, isArray)
	}
	n := adbval.Uint32(db.Arena[off : off+4])
	if off+int(n)*4 > len(db.Arena) || n == 0 {
		return degenerate(db, schema, isArray)
	}
	return View{db: db, schema: schema, offset: off, n: n, isArray: isArray}
}

// Schema returns the view's object/element schema.
func (v View) Schema() *adbschema.Object { return v.schema }

// Len returns the number of addressable fields/elements (n-1, since
// slot 0 is the length slot, not a field).
func (v View) Len() int {
	if v.n == 0 {
		return 0
	}
	return int(v.n) - 1
}

// Val returns the 1-based slot i, or adbval.Null if i is out of range.
// Index 0 (the length slot) is never returned as a meaningful field
// value by this method; callers never need it.
func (v View) Val(i int) adbval.Val {
	if i <= 0 || uint32(i) >= v.n {
		return adbval.Null
	}
	off := v.offset + i*4
	return adbval.Val(adbval.Uint32(v.db.Arena[off : off+4]))
}

// Int returns field i as an integer. For an object view, a Null slot
// is replaced by the schema's declared default for that field index;
// array elements have no per-index default.
func (v View) Int(i int) uint32 {
	val := v.Val(i)
	if val.IsNull() && !v.isArray && v.schema != nil {
		return v.schema.Default(i)
	}
	return v.db.Int(val)
}

// Blob returns field i decoded as a blob.
func (v View) Blob(i int) []byte {
	return v.db.Blob(v.Val(i))
}

// Sub navigates into field i as a nested OBJECT/ARRAY, using subSchema
// to interpret it.
func (v View) Sub(i int, subSchema *adbschema.Object) View {
	return v.db.Obj(v.Val(i), subSchema)
}

// Cmp orders field i of v1 against field i of v2. Both views must
// share the same object schema; it is a programming error otherwise.
func Cmp(v1, v2 View, i int) adbschema.Ordering {
	if v1.schema != v2.schema {
		panic("adbreader: Cmp requires both views to share an object schema")
	}
	f, ok := v1.schema.FieldAt(i)
	if !ok {
		panic("adbreader: Cmp field index out of range")
	}
	return compareField(f, v1.db, v1.Val(i), v2.db, v2.Val(i))
}

func compareField(f adbschema.Field, db1 *DB, v1 adbval.Val, db2 *DB, v2 adbval.Val) adbschema.Ordering {
	var result adbschema.Ordering
	f.Dispatch(
		func() {
			result = adbschema.IntScalar.Compare(db1, v1, db2, v2)
		},
		func(s *adbschema.Scalar) {
			if s.Compare == nil {
				panic("adbreader: blob field has no Compare")
			}
			result = s.Compare(db1, v1, db2, v2)
		},
		func(o *adbschema.Object) {
			result = compareObjectField(o, db1, v1, db2, v2)
		},
		func(o *adbschema.Object) {
			result = compareObjectField(o, db1, v1, db2, v2)
		},
		func(a *adbschema.Adb) {
			result = compareAdbField(a, db1, v1, db2, v2)
		},
	)
	return result
}

func compareObjectField(o *adbschema.Object, db1 *DB, v1 adbval.Val, db2 *DB, v2 adbval.Val) adbschema.Ordering {
	if o.Compare == nil {
		panic("adbreader: object schema has no Compare")
	}
	return o.Compare(db1, v1, db2, v2)
}

// NestedDB opens blob, the payload of an ADB-kind field, as the nested
// database it frames: blob starts with an ADB block whose payload is
// the inner arena. A blob not framed that way yields an empty
// database, whose root is Null.
func NestedDB(blob []byte) *DB {
	cur, ok, err := adbblock.First(blob)
	if err != nil || !ok || cur.Header.Type != adbblock.TypeADB {
		return &DB{}
	}
	return &DB{Arena: cur.Payload(blob)}
}

func compareAdbField(a *adbschema.Adb, db1 *DB, v1 adbval.Val, db2 *DB, v2 adbval.Val) adbschema.Ordering {
	inner1 := NestedDB(db1.Blob(v1))
	inner2 := NestedDB(db2.Blob(v2))
	if a.Root.Compare == nil {
		panic("adbreader: adb field's root schema has no Compare")
	}
	return a.Root.Compare(inner1, inner1.Root(), inner2, inner2.Root())
}

// ArrayFind searches a sorted array view (sorted under its element
// schema's comparator) for needle, which lives in needleDB. If
// cursor == 0 it performs a binary search and then walks left to the
// first equal element; otherwise it advances to cursor+1 and confirms
// equality there. It returns the 1-based slot index, or -1 if not
// found.
func ArrayFind(arr View, cursor int, needleDB *DB, needle adbval.Val) int {
	field, ok := arr.schema.FieldAt(1)
	if !ok {
		panic("adbreader: ArrayFind requires a single-field element schema")
	}
	n := arr.Len()
	cmp := func(elemIdx int) adbschema.Ordering {
		return compareField(field, arr.db, arr.Val(elemIdx+1), needleDB, needle)
	}

	if cursor != 0 {
		idx := cursor + 1
		if idx < 1 || idx > n {
			return -1
		}
		if cmp(idx-1) == adbschema.Equal {
			return idx
		}
		return -1
	}

	pos := sort.Search(n, func(k int) bool {
		return cmp(k) != adbschema.Less
	})
	if pos >= n || cmp(pos) != adbschema.Equal {
		return -1
	}
	for pos > 0 && cmp(pos-1) == adbschema.Equal {
		pos--
	}
	return pos + 1
}
