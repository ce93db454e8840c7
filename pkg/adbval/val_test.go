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

package adbval

import "testing"

func TestIntInlineBoundary(t *testing.T) {
	if !FitsInline(payloadMax) {
		t.Errorf("payloadMax should fit inline")
	}
	if FitsInline(payloadMax + 1) {
		t.Errorf("payloadMax+1 should not fit inline")
	}
	v := Int(7)
	if v.Tag() != TagInt || v.Payload() != 7 {
		t.Errorf("Int(7) = %#x, want tag=INT payload=7", v)
	}
}

func TestNullAndError(t *testing.T) {
	if !Null.IsNull() {
		t.Errorf("Null.IsNull() = false")
	}
	if _, ok := Null.IsError(); ok {
		t.Errorf("Null should not be an error")
	}
	e := Error(42)
	rc, ok := e.IsError()
	if !ok || rc != 42 {
		t.Errorf("Error(42).IsError() = %v, %v, want 42, true", rc, ok)
	}
	if e.IsNull() {
		t.Errorf("Error value should not be null")
	}
}

func TestOffsetTags(t *testing.T) {
	v := Offset(TagBlob8, 1000)
	if v.Tag() != TagBlob8 || v.Payload() != 1000 {
		t.Errorf("Offset(TagBlob8, 1000) = %#x", v)
	}
	defer func() {
		if recover() == nil {
			t.Errorf("Offset(TagInt, ...) should panic")
		}
	}()
	Offset(TagInt, 1)
}

func TestBlobTagForLen(t *testing.T) {
	cases := []struct {
		n    int
		want Tag
	}{
		{0, TagBlob8},
		{0xff, TagBlob8},
		{0x100, TagBlob16},
		{0xffff, TagBlob16},
		{0x10000, TagBlob32},
	}
	for _, c := range cases {
		got, ok := BlobTagForLen(c.n)
		if !ok || got != c.want {
			t.Errorf("BlobTagForLen(%d) = %v, %v, want %v, true", c.n, got, ok, c.want)
		}
	}
	if _, ok := BlobTagForLen(-1); ok {
		t.Errorf("BlobTagForLen(-1) should fail")
	}
}

func TestUint32RoundTrip(t *testing.T) {
	b := make([]byte, 4)
	PutUint32(b, 0xdeadbeef)
	if got := Uint32(b); got != 0xdeadbeef {
		t.Errorf("Uint32(PutUint32(x)) = %#x, want %#x", got, 0xdeadbeef)
	}
}
