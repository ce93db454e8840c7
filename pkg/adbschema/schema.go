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

// Package adbschema describes the read-only, caller-supplied
// descriptors that tell the reader and writer how to interpret an
// object or array's slots. The engine consumes these; it never
// defines which real-world package layouts exist.
package adbschema

import "github.com/chimera-linux/apk-tools/pkg/adbval"

// Ordering mirrors the three-way comparator result used throughout the
// writer's sort/unique paths.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

// Scalar describes how to compare and parse a non-aggregate field: an
// INT or a BLOB whose bytes carry caller-defined meaning (a string, an
// enum, a version token, ...).
type Scalar struct {
	Name string

	// Compare orders two values of this scalar kind. Either value may
	// be Null. db1 and db2 are the arenas the values are drawn from --
	// normally the same database, but w_copy-style comparisons across
	// two trees are legal (e.g. the ADB-kind comparator in wa_sort,
	// which compares root objects of two independently-mapped inner
	// containers).
	Compare func(db1 Arena, v1 adbval.Val, db2 Arena, v2 adbval.Val) Ordering

	// FromString parses text into a Val, allocating into db as needed
	// (e.g. for a BLOB scalar). It returns adbval.Null and an error on
	// failure; on success the error is nil.
	FromString func(db WritableArena, text string) (adbval.Val, error)
}

// Field is a tagged variant over the five field kinds a schema can
// declare for an object or an array's element type. Which accessor
// methods are meaningful depends on the field's kind (see Dispatch); this
// replaces the source format's "recover the enclosing descriptor from
// a kind byte via pointer arithmetic" trick with an ordinary type
// switch.
type Field struct {
	kind   fieldKind
	scalar *Scalar // Int, Blob
	object *Object // Object, Array (element schema)
	adb    *Adb    // Adb
}

type fieldKind int

const (
	kindInt fieldKind = iota
	kindBlob
	kindObject
	kindArray
	kindAdb
)

// FieldInt declares an INT-kind field. name is used only for
// diagnostics.
func FieldInt(name string) Field {
	return Field{kind: kindInt, scalar: &Scalar{Name: name}}
}

// FieldBlob declares a BLOB-kind field described by s.
func FieldBlob(s *Scalar) Field {
	return Field{kind: kindBlob, scalar: s}
}

// FieldObject declares an OBJECT-kind field described by o.
func FieldObject(o *Object) Field {
	return Field{kind: kindObject, object: o}
}

// FieldArray declares an ARRAY-kind field whose elements are described
// by o (o is the element schema, not the array itself -- per spec,
// array field lookups always resolve to field index 1 of o).
func FieldArray(o *Object) Field {
	return Field{kind: kindArray, object: o}
}

// FieldAdb declares an ADB-kind field: a BLOB payload that is itself a
// nested container, described by a.
func FieldAdb(a *Adb) Field {
	return Field{kind: kindAdb, adb: a}
}

// Tag returns the adbval.Tag this field is stored as on disk. OBJECT
// and ARRAY fields return their respective aggregate tags; everything
// else resolves at write time to whichever scalar tag fits the value.
func (f Field) Tag() adbval.Tag {
	switch f.kind {
	case kindObject:
		return adbval.TagObject
	case kindArray:
		return adbval.TagArray
	default:
		return 0 // scalar tag is value-dependent; see adbwriter
	}
}

// IsAggregate reports whether the field is OBJECT or ARRAY (i.e. its
// value vector must be walked with an Object schema rather than
// decoded as a scalar).
func (f Field) IsAggregate() bool {
	return f.kind == kindObject || f.kind == kindArray
}

// IsAdb reports whether the field is an ADB-kind nested container blob.
func (f Field) IsAdb() bool {
	return f.kind == kindAdb
}

// Object returns the element/field object schema for OBJECT and ARRAY
// fields. It panics if called on any other kind.
func (f Field) Object() *Object {
	if f.object == nil {
		panic("adbschema: Object() called on a non-aggregate field")
	}
	return f.object
}

// ScalarSchema returns the scalar descriptor for BLOB fields (INT
// fields have no descriptor of their own -- they compare and parse via
// the package-level IntScalar). It panics for OBJECT/ARRAY/ADB fields.
func (f Field) ScalarSchema() *Scalar {
	if f.kind != kindBlob {
		panic("adbschema: ScalarSchema() called on a non-blob field")
	}
	return f.scalar
}

// AdbSchema returns the nested-container descriptor for ADB fields. It
// panics for any other kind.
func (f Field) AdbSchema() *Adb {
	if f.adb == nil {
		panic("adbschema: AdbSchema() called on a non-adb field")
	}
	return f.adb
}

// Dispatch calls the callback matching f's kind, passing the variant's
// payload. Exactly one callback runs. A nil callback for the matched
// kind is a programming error and panics, matching the corrected
// assert(0) from the design notes: every caller is expected to handle
// every kind it might see.
func (f Field) Dispatch(onInt func(), onBlob func(*Scalar), onObject func(*Object), onArray func(*Object), onAdb func(*Adb)) {
	switch f.kind {
	case kindInt:
		if onInt == nil {
			panic("adbschema: unhandled INT field kind")
		}
		onInt()
	case kindBlob:
		if onBlob == nil {
			panic("adbschema: unhandled BLOB field kind")
		}
		onBlob(f.scalar)
	case kindObject:
		if onObject == nil {
			panic("adbschema: unhandled OBJECT field kind")
		}
		onObject(f.object)
	case kindArray:
		if onArray == nil {
			panic("adbschema: unhandled ARRAY field kind")
		}
		onArray(f.object)
	case kindAdb:
		if onAdb == nil {
			panic("adbschema: unhandled ADB field kind")
		}
		onAdb(f.adb)
	default:
		panic("adbschema: unknown field kind")
	}
}

// Object describes an OBJECT value's ordered field list (1-based;
// index 0 is the reserved length slot) and optional callbacks, or an
// ARRAY value's single element schema (in which case Fields has
// exactly one entry, addressed as field 1).
type Object struct {
	Name   string
	Fields []Field // Fields[0] corresponds to field index 1, etc.

	// Compare orders two object values field-by-field under some
	// caller-defined key; used by wa_sort for arrays of OBJECT
	// elements. May be nil if this schema is never used as a sortable
	// array's element schema.
	Compare func(db1 Arena, v1 adbval.Val, db2 Arena, v2 adbval.Val) Ordering

	// PreCommit runs just before a builder commits this object's
	// vector, e.g. to fill in a derived field. May be nil.
	PreCommit func(b Builder) error

	// DefaultInt supplies the value ro_int substitutes when field i is
	// Null, given this schema's 1-based field numbering. May be nil,
	// in which case the default is 0.
	DefaultInt func(fieldIndex int) uint32

	// FromString parses text into a fresh object of this schema,
	// building it with b. May be nil if construction from text isn't
	// supported for this schema.
	FromString func(b Builder, text string) error
}

// FieldAt returns the field descriptor at 1-based index i, or false if
// i is out of range (including i == 0, the length slot).
func (o *Object) FieldAt(i int) (Field, bool) {
	if i < 1 || i > len(o.Fields) {
		return Field{}, false
	}
	return o.Fields[i-1], true
}

// NumFields returns the number of declared fields (the object's
// maximum field index).
func (o *Object) NumFields() int {
	return len(o.Fields)
}

// Default returns o.DefaultInt(i), or 0 if DefaultInt is nil.
func (o *Object) Default(i int) uint32 {
	if o.DefaultInt == nil {
		return 0
	}
	return o.DefaultInt(i)
}

// Adb describes a nested container: a BLOB field whose bytes are
// themselves a well-formed ADB arena with their own root object,
// described by Root.
type Adb struct {
	Name string
	Root *Object
}

// IntScalar is the comparator used for plain INT fields, where no
// per-field Scalar is declared. It has no FromString; adbwriter.FromString
// parses INT text itself. It is exported so that the field comparators
// in adbreader and adbwriter share one INT ordering rule.
var IntScalar = &Scalar{
	Name: "int",
	Compare: func(db1 Arena, v1 adbval.Val, db2 Arena, v2 adbval.Val) Ordering {
		a, b := db1.Int(v1), db2.Int(v2)
		switch {
		case a < b:
			return Less
		case a > b:
			return Greater
		default:
			return Equal
		}
	},
}

// Arena is the minimal read surface a Scalar.Compare implementation
// needs: turning a Val into the uint32 or []byte it denotes. Both
// adbreader.DB and adbwriter.DB satisfy it, which is what lets
// wa_sort's cross-database comparisons work against two independently
// built or mapped databases.
type Arena interface {
	Int(v adbval.Val) uint32
	Blob(v adbval.Val) []byte
}

// WritableArena is the minimal write surface a Scalar.FromString or
// Object.FromString implementation needs. adbwriter.DB satisfies it.
type WritableArena interface {
	Arena
	WriteInt(v uint32) adbval.Val
	WriteBlob(b []byte) adbval.Val
}

// Builder is the minimal surface Object.PreCommit and Object.FromString
// need to populate an in-progress object/array. adbwriter.Builder
// satisfies it.
type Builder interface {
	WritableArena
	Schema() *Object
	SetField(i int, v adbval.Val)
	Field(i int) adbval.Val
	Append(v adbval.Val) (index int)
	Len() int
}
