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

package adbwriter

import (
	"sort"

	"github.com/chimera-linux/apk-tools/pkg/adbreader"
	"github.com/chimera-linux/apk-tools/pkg/adbschema"
	"github.com/chimera-linux/apk-tools/pkg/adbval"
)

// Builder assembles one OBJECT (fixed field count, from schema) or
// ARRAY (open-ended, elements described by schema's single field) at
// a time. Call NewObjectBuilder/NewArrayBuilder, populate it with
// SetField/Append, then Commit. Commit resets the builder in place so
// it can be reused for the next object.
type Builder struct {
	db      *DB
	schema  *adbschema.Object
	isArray bool
	slots   []adbval.Val // slots[0] is a placeholder until Commit fills in the length
}

// NewObjectBuilder returns a builder for an OBJECT of the given
// schema, pre-sized to its declared field count.
func NewObjectBuilder(db *DB, schema *adbschema.Object) *Builder {
	b := &Builder{db: db, schema: schema}
	b.reset()
	return b
}

// NewArrayBuilder returns a builder for an ARRAY whose elements are
// described by elemSchema (its single field, at index 1).
func NewArrayBuilder(db *DB, elemSchema *adbschema.Object) *Builder {
	b := &Builder{db: db, schema: elemSchema, isArray: true}
	b.reset()
	return b
}

func (b *Builder) reset() {
	if b.isArray {
		b.slots = []adbval.Val{adbval.Null}
		return
	}
	b.slots = make([]adbval.Val, b.schema.NumFields()+1)
}

// Schema implements adbschema.Builder.
func (b *Builder) Schema() *adbschema.Object { return b.schema }

// SetField sets 1-based field i to v. Valid only for object builders;
// it panics if i is out of the schema's declared range.
func (b *Builder) SetField(i int, v adbval.Val) {
	if i < 1 || i >= len(b.slots) {
		panic("adbwriter: SetField index out of range")
	}
	b.slots[i] = v
}

// Field returns 1-based slot i, or Null if out of range.
func (b *Builder) Field(i int) adbval.Val {
	if i < 1 || i >= len(b.slots) {
		return adbval.Null
	}
	return b.slots[i]
}

// Append adds v as the next array element and returns its 1-based
// index. Valid only for array builders.
func (b *Builder) Append(v adbval.Val) int {
	b.slots = append(b.slots, v)
	return len(b.slots) - 1
}

// Len returns the number of populated slots (the schema's field count
// for an object builder; the element count so far for an array
// builder).
func (b *Builder) Len() int {
	return len(b.slots) - 1
}

// WriteInt and WriteBlob let a schema's PreCommit/FromString callback
// allocate scalars into the same database the builder is writing to.
func (b *Builder) WriteInt(v uint32) adbval.Val  { return b.db.WriteInt(v) }
func (b *Builder) WriteBlob(v []byte) adbval.Val { return b.db.WriteBlob(v) }
func (b *Builder) Int(v adbval.Val) uint32       { return b.db.Int(v) }
func (b *Builder) Blob(v adbval.Val) []byte      { return b.db.Blob(v) }

// Commit finalizes the builder's current slots into an OBJECT or
// ARRAY value and resets the builder for reuse. Trailing Null slots
// are truncated first; an object/array with no remaining fields
// commits to Null without writing anything.
func (b *Builder) Commit() (adbval.Val, error) {
	if b.schema != nil && b.schema.PreCommit != nil {
		if err := b.schema.PreCommit(b); err != nil {
			b.reset()
			return b.db.fail(err)
		}
	}

	last := len(b.slots) - 1
	for last >= 1 && b.slots[last].IsNull() {
		last--
	}
	if last == 0 {
		b.reset()
		return adbval.Null, nil
	}

	vec := make([]adbval.Val, last+1)
	copy(vec, b.slots[:last+1])
	vec[0] = adbval.Val(uint32(len(vec)))

	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		adbval.PutUint32(buf[i*4:i*4+4], uint32(v))
	}
	off, err := b.db.Intern(4, buf)
	b.reset()
	if err != nil {
		return b.db.fail(err)
	}
	tag := adbval.TagObject
	if b.isArray {
		tag = adbval.TagArray
	}
	return adbval.Offset(tag, off), nil
}

// FromString delegates to the schema's FromString callback (object or
// array construction from text) or, for BLOB fields, to the field's
// Scalar.FromString; INT fields are parsed as unsigned decimal text.
// field's kind selects which. ADB fields fail with ErrNotImplemented.
func FromString(db *DB, field adbschema.Field, text string) (adbval.Val, error) {
	var result adbval.Val
	var err error
	field.Dispatch(
		func() {
			result, err = parseDefaultInt(db, text)
		},
		func(s *adbschema.Scalar) {
			if s.FromString == nil {
				err = ErrNotImplemented
				return
			}
			result, err = s.FromString(db, text)
		},
		func(o *adbschema.Object) {
			result, err = fromStringObject(db, o, false, text)
		},
		func(o *adbschema.Object) {
			result, err = fromStringObject(db, o, true, text)
		},
		func(a *adbschema.Adb) {
			err = ErrNotImplemented
		},
	)
	return result, err
}

func parseDefaultInt(db *DB, text string) (adbval.Val, error) {
	var n uint64
	for _, r := range text {
		if r < '0' || r > '9' {
			return adbval.Null, ErrNotImplemented
		}
		n = n*10 + uint64(r-'0')
	}
	return db.WriteInt(uint32(n)), nil
}

func fromStringObject(db *DB, schema *adbschema.Object, isArray bool, text string) (adbval.Val, error) {
	if schema.FromString == nil {
		return adbval.Null, ErrNotImplemented
	}
	b := &Builder{db: db, schema: schema, isArray: isArray}
	b.reset()
	if err := schema.FromString(b, text); err != nil {
		return adbval.Null, err
	}
	return b.Commit()
}

// Sort reorders the builder's current array elements (pre-Commit) by
// the element schema's comparator. It is a no-op on an object
// builder.
func (b *Builder) Sort() {
	if !b.isArray || len(b.slots) <= 2 {
		return
	}
	elems := b.slots[1:]
	field, ok := b.schema.FieldAt(1)
	if !ok {
		panic("adbwriter: Sort requires a single-field element schema")
	}
	sort.SliceStable(elems, func(i, j int) bool {
		return compareField(field, b.db, elems[i], b.db, elems[j]) == adbschema.Less
	})
}

// SortUnique sorts (see Sort) and then removes adjacent duplicates, so
// the resulting array is strictly increasing under the element
// schema's comparator. Re-applying SortUnique to an already-unique
// array is a no-op.
func (b *Builder) SortUnique() {
	b.Sort()
	if !b.isArray || len(b.slots) <= 2 {
		return
	}
	field, ok := b.schema.FieldAt(1)
	if !ok {
		panic("adbwriter: SortUnique requires a single-field element schema")
	}
	out := b.slots[:2]
	for i := 2; i < len(b.slots); i++ {
		if compareField(field, b.db, out[len(out)-1], b.db, b.slots[i]) == adbschema.Equal {
			continue
		}
		out = append(out, b.slots[i])
	}
	b.slots = out
}

// compareField mirrors adbreader's field-kind dispatch for
// comparisons, generalized over any adbschema.Arena so it works
// whether the values being compared live in a writer's in-progress
// arena or a fully-built one.
func compareField(f adbschema.Field, db1 adbschema.Arena, v1 adbval.Val, db2 adbschema.Arena, v2 adbval.Val) adbschema.Ordering {
	var result adbschema.Ordering
	f.Dispatch(
		func() {
			result = adbschema.IntScalar.Compare(db1, v1, db2, v2)
		},
		func(s *adbschema.Scalar) {
			if s.Compare == nil {
				panic("adbwriter: blob field has no Compare")
			}
			result = s.Compare(db1, v1, db2, v2)
		},
		func(o *adbschema.Object) {
			if o.Compare == nil {
				panic("adbwriter: object field has no Compare")
			}
			result = o.Compare(db1, v1, db2, v2)
		},
		func(o *adbschema.Object) {
			if o.Compare == nil {
				panic("adbwriter: array field has no Compare")
			}
			result = o.Compare(db1, v1, db2, v2)
		},
		func(a *adbschema.Adb) {
			inner1 := adbreader.NestedDB(db1.Blob(v1))
			inner2 := adbreader.NestedDB(db2.Blob(v2))
			if a.Root.Compare == nil {
				panic("adbwriter: adb field's root schema has no Compare")
			}
			result = a.Root.Compare(inner1, inner1.Root(), inner2, inner2.Root())
		},
	)
	return result
}
