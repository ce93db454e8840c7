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
	"testing"

	"github.com/chimera-linux/apk-tools/pkg/adbreader"
	"github.com/chimera-linux/apk-tools/pkg/adbschema"
	"github.com/chimera-linux/apk-tools/pkg/adbval"
)

func TestS2InterningDedupes(t *testing.T) {
	db := NewWritable()
	v1 := db.WriteBlob([]byte("abc"))
	v2 := db.WriteBlob([]byte("abc"))
	if v1 != v2 {
		t.Errorf("writing %q twice gave different values: %v != %v", "abc", v1, v2)
	}
}

func TestInterningDiffersByAlignment(t *testing.T) {
	db := NewWritable()
	off1, err := db.Intern(1, []byte{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	off2, err := db.Intern(4, []byte{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if off1 == off2 {
		t.Errorf("differing alignment should not share an offset: %d == %d", off1, off2)
	}
}

func TestS4Int32Boundary(t *testing.T) {
	db := NewWritable()
	const maxInline = 1<<28 - 1
	inline := db.WriteInt(maxInline)
	if inline.Tag() != adbval.TagInt {
		t.Errorf("WriteInt(2^28-1) tag = %v, want INT", inline.Tag())
	}
	spill := db.WriteInt(maxInline + 1)
	if spill.Tag() != adbval.TagInt32 {
		t.Errorf("WriteInt(2^28) tag = %v, want INT_32", spill.Tag())
	}
	if spill.Payload()%4 != 0 {
		t.Errorf("INT_32 payload offset %d is not 4-byte aligned", spill.Payload())
	}
}

func TestS1ObjectCommit(t *testing.T) {
	schema := &adbschema.Object{
		Name: "pkg",
		Fields: []adbschema.Field{
			adbschema.FieldInt("field1"),
			adbschema.FieldBlob(&adbschema.Scalar{Name: "field2"}),
		},
	}
	db := NewWritable()
	b := NewObjectBuilder(db, schema)
	b.SetField(1, db.WriteInt(7))
	b.SetField(2, db.WriteBlob([]byte("hi")))
	root, err := b.Commit()
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SetRoot(root); err != nil {
		t.Fatal(err)
	}

	rdb := &adbreader.DB{Arena: db.Arena}
	view := rdb.Obj(rdb.Root(), schema)
	if got := view.Int(1); got != 7 {
		t.Errorf("field1 = %d, want 7", got)
	}
	if got := string(view.Blob(2)); got != "hi" {
		t.Errorf("field2 = %q, want %q", got, "hi")
	}
}

func TestS3SortUnique(t *testing.T) {
	elemSchema := &adbschema.Object{Fields: []adbschema.Field{adbschema.FieldInt("v")}}
	db := NewWritable()
	b := NewArrayBuilder(db, elemSchema)
	for _, v := range []uint32{5, 2, 2, 9} {
		b.Append(db.WriteInt(v))
	}
	b.SortUnique()
	arr, err := b.Commit()
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SetRoot(arr); err != nil {
		t.Fatal(err)
	}

	rdb := &adbreader.DB{Arena: db.Arena}
	view := rdb.Obj(rdb.Root(), elemSchema)
	if view.Len() != 3 {
		t.Fatalf("len = %d, want 3", view.Len())
	}
	want := []uint32{2, 5, 9}
	for i, w := range want {
		if got := view.Int(i + 1); got != w {
			t.Errorf("element %d = %d, want %d", i+1, got, w)
		}
	}
}

func TestSortIdempotent(t *testing.T) {
	elemSchema := &adbschema.Object{Fields: []adbschema.Field{adbschema.FieldInt("v")}}
	db := NewWritable()
	b := NewArrayBuilder(db, elemSchema)
	for _, v := range []uint32{3, 1, 2} {
		b.Append(db.WriteInt(v))
	}
	b.Sort()
	first := append([]adbval.Val(nil), b.slots...)
	b.Sort()
	if len(first) != len(b.slots) {
		t.Fatalf("length changed across re-sort")
	}
	for i := range first {
		if first[i] != b.slots[i] {
			t.Errorf("sort is not idempotent at slot %d", i)
		}
	}
}

func TestEmptyObjectCommitsToNull(t *testing.T) {
	schema := &adbschema.Object{Fields: []adbschema.Field{adbschema.FieldInt("a")}}
	db := NewWritable()
	b := NewObjectBuilder(db, schema)
	v, err := b.Commit()
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsNull() {
		t.Errorf("empty object commit = %v, want Null", v)
	}
}

func TestStaticDatabaseFailsToGrow(t *testing.T) {
	db := NewStatic(make([]byte, 16))
	v := db.WriteBlob([]byte("x"))
	if !db.Poisoned {
		t.Errorf("expected static DB to poison on WriteBlob")
	}
	if _, ok := v.IsError(); !ok {
		t.Errorf("WriteBlob on static DB should return an ERROR sentinel")
	}
}

func TestCopyAcrossDatabases(t *testing.T) {
	schema := &adbschema.Object{
		Fields: []adbschema.Field{
			adbschema.FieldInt("a"),
			adbschema.FieldBlob(&adbschema.Scalar{Name: "b"}),
		},
	}
	src := NewWritable()
	b := NewObjectBuilder(src, schema)
	b.SetField(1, src.WriteInt(1<<28)) // force INT_32, not inline
	b.SetField(2, src.WriteBlob([]byte("payload")))
	root, err := b.Commit()
	if err != nil {
		t.Fatal(err)
	}
	if err := src.SetRoot(root); err != nil {
		t.Fatal(err)
	}

	srcReader := &adbreader.DB{Arena: src.Arena}
	dst := NewWritable()
	copied, err := Copy(dst, srcReader, srcReader.Root())
	if err != nil {
		t.Fatal(err)
	}
	if err := dst.SetRoot(copied); err != nil {
		t.Fatal(err)
	}

	dstReader := &adbreader.DB{Arena: dst.Arena}
	view := dstReader.Obj(dstReader.Root(), schema)
	if got := view.Int(1); got != 1<<28 {
		t.Errorf("copied field1 = %d, want %d", got, 1<<28)
	}
	if got := string(view.Blob(2)); got != "payload" {
		t.Errorf("copied field2 = %q, want %q", got, "payload")
	}
}

func TestCopyTooLarge(t *testing.T) {
	elemSchema := &adbschema.Object{Fields: []adbschema.Field{adbschema.FieldInt("v")}}
	src := NewWritable()
	b := NewArrayBuilder(src, elemSchema)
	for i := 0; i < maxSlotsPerLevel+1; i++ {
		b.Append(src.WriteInt(uint32(i)))
	}
	root, err := b.Commit()
	if err != nil {
		t.Fatal(err)
	}
	srcReader := &adbreader.DB{Arena: src.Arena}
	dst := NewWritable()
	_, err = Copy(dst, srcReader, root)
	if err != ErrTooLarge {
		t.Errorf("Copy of oversized array err = %v, want ErrTooLarge", err)
	}
}
