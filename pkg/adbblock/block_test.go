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

package adbblock

import (
	"bytes"
	"testing"
)

func TestPad(t *testing.T) {
	cases := []struct{ size, align, want uint32 }{
		{0, 32, 0},
		{1, 32, 32},
		{32, 32, 32},
		{33, 32, 64},
	}
	for _, c := range cases {
		if got := Pad(c.size, c.align); got != c.want {
			t.Errorf("Pad(%d, %d) = %d, want %d", c.size, c.align, got, c.want)
		}
	}
}

func TestAppendAndIterate(t *testing.T) {
	var buf []byte
	buf = AppendPadded(buf, TypeADB, []byte("hello"))
	buf = AppendPadded(buf, TypeSIG, []byte("sig-bytes"))

	cur, ok, err := First(buf)
	if err != nil || !ok {
		t.Fatalf("First: ok=%v err=%v", ok, err)
	}
	if cur.Header.Type != TypeADB {
		t.Errorf("first block type = %v, want ADB", cur.Header.Type)
	}
	if !bytes.Equal(cur.Payload(buf), []byte("hello")) {
		t.Errorf("first payload = %q, want %q", cur.Payload(buf), "hello")
	}

	cur, ok, err = Next(cur, buf)
	if err != nil || !ok {
		t.Fatalf("Next: ok=%v err=%v", ok, err)
	}
	if cur.Header.Type != TypeSIG {
		t.Errorf("second block type = %v, want SIG", cur.Header.Type)
	}
	if !bytes.Equal(cur.Payload(buf), []byte("sig-bytes")) {
		t.Errorf("second payload = %q, want %q", cur.Payload(buf), "sig-bytes")
	}

	_, ok, err = Next(cur, buf)
	if err != nil || ok {
		t.Fatalf("Next at end: ok=%v err=%v, want false, nil", ok, err)
	}
}

func TestMalformedTruncatedHeader(t *testing.T) {
	_, ok, err := First([]byte{1, 2, 3})
	if err != ErrMalformed || ok {
		t.Errorf("First(short) = ok=%v err=%v, want false, ErrMalformed", ok, err)
	}
}

func TestMalformedOversizedBlock(t *testing.T) {
	var buf []byte
	buf = AppendPadded(buf, TypeADB, []byte("hi"))
	// Corrupt the size field to claim more bytes than remain.
	buf[0] = 0xff
	buf[1] = 0xff
	buf[2] = 0xff
	buf[3] &^= 0xc0 // keep type bits, blow out size bits
	_, _, err := First(buf)
	if err != ErrMalformed {
		t.Errorf("First(oversized) err = %v, want ErrMalformed", err)
	}
}

func TestEmptyRangeIsNotAnError(t *testing.T) {
	_, ok, err := First(nil)
	if ok || err != nil {
		t.Errorf("First(nil) = ok=%v err=%v, want false, nil", ok, err)
	}
}
