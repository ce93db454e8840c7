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

package adbcontainer

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/chimera-linux/apk-tools/pkg/adbblock"
	"github.com/chimera-linux/apk-tools/pkg/adbsign"
)

type fakeKey struct{ id [16]byte }

func (k fakeKey) KeyID() [16]byte { return k.id }
func (k fakeKey) Sign(data []byte) ([]byte, error) {
	return reverseBytes(data), nil
}
func (k fakeKey) Verify(data, sig []byte) error {
	if !bytes.Equal(reverseBytes(data), sig) {
		return ErrMalformed
	}
	return nil
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}

type fakeStore struct {
	priv []adbsign.PrivateKey
	pub  []adbsign.PublicKey
}

func (s fakeStore) PrivateKeys() []adbsign.PrivateKey { return s.priv }
func (s fakeStore) TrustedKeys() []adbsign.PublicKey  { return s.pub }

func signedContainer(t *testing.T, arena []byte, data [][]byte) ([]byte, fakeStore) {
	t.Helper()
	hdr := Header{Schema: 42}
	key := fakeKey{id: [16]byte{7}}
	store := fakeStore{priv: []adbsign.PrivateKey{key}, pub: []adbsign.PublicKey{key}}

	ctx := adbsign.NewVerifyContext(hdr.Encode(), arena)
	recs, err := adbsign.Sign(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	sigBytes := make([][]byte, len(recs))
	for i, r := range recs {
		sigBytes[i] = r.Encode()
	}
	return Assemble(hdr, arena, sigBytes, data), store
}

func TestStreamRoundTripSignedWithData(t *testing.T) {
	arena := []byte("hello-arena-payload")
	buf, store := signedContainer(t, arena, [][]byte{[]byte("chunk-one"), []byte("chunk-two")})

	var chunks [][]byte
	cb := func(length int64, seg io.Reader) error {
		b, err := io.ReadAll(seg)
		if err != nil {
			return err
		}
		if int64(len(b)) != length {
			t.Errorf("segment length = %d, declared = %d", len(b), length)
		}
		chunks = append(chunks, b)
		return nil
	}

	c, err := Stream(bytes.NewReader(buf), store, nil, cb)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if !c.Signed {
		t.Error("Signed = false, want true")
	}
	if !bytes.Equal(c.Arena, arena) {
		t.Errorf("Arena = %q, want %q", c.Arena, arena)
	}
	if len(chunks) != 2 || string(chunks[0]) != "chunk-one" || string(chunks[1]) != "chunk-two" {
		t.Errorf("chunks = %q", chunks)
	}
}

func TestStreamSchemaMismatch(t *testing.T) {
	arena := []byte("arena")
	buf, store := signedContainer(t, arena, nil)
	want := uint32(99)
	_, err := Stream(bytes.NewReader(buf), store, &want, nil)
	if err != ErrSchemaMismatch {
		t.Errorf("err = %v, want ErrSchemaMismatch", err)
	}
}

func TestStreamDataBeforeTrustedSignatureFails(t *testing.T) {
	arena := []byte("arena")
	hdr := Header{}
	buf := Assemble(hdr, arena, nil, [][]byte{[]byte("payload")})

	_, err := Stream(bytes.NewReader(buf), fakeStore{}, nil, func(int64, io.Reader) error { return nil })
	if err != ErrNoKey {
		t.Errorf("err = %v, want ErrNoKey", err)
	}
}

func TestStreamTamperedArenaLeavesUnsigned(t *testing.T) {
	arena := []byte("arena")
	buf, store := signedContainer(t, arena, nil)
	// Flip a byte inside the ADB block payload itself, after framing.
	idx := HeaderSize + adbblock.HeaderSize
	buf[idx] ^= 0xff

	c, err := Stream(bytes.NewReader(buf), store, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Signed {
		t.Error("Signed = true for a tampered arena, want false")
	}
}

func TestFromBlobNestedArena(t *testing.T) {
	arena := []byte("nested-arena")
	buf := adbblock.AppendPadded(nil, adbblock.TypeADB, arena)

	c, err := FromBlob(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(c.Arena, arena) {
		t.Errorf("Arena = %q, want %q", c.Arena, arena)
	}
}

func TestFromBlobRejectsNonADBFirst(t *testing.T) {
	buf := adbblock.AppendPadded(nil, adbblock.TypeSIG, []byte("not-an-arena"))
	if _, err := FromBlob(buf); err != ErrMalformed {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func TestTransformPassthrough(t *testing.T) {
	arena := []byte("pass-through-arena")
	buf, _ := signedContainer(t, arena, [][]byte{[]byte("data-block")})

	var out bytes.Buffer
	err := Transform(bytes.NewReader(buf), &out, func(x *Xfrm, h adbblock.Header, seg io.Reader) (int64, error) {
		return 0, nil // always pass through verbatim
	})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out.Bytes(), buf) {
		t.Errorf("verbatim transform changed the bytes: got %d bytes, want %d", out.Len(), len(buf))
	}
}

func TestTransformDropsDataBlocks(t *testing.T) {
	arena := []byte("arena-kept")
	buf, store := signedContainer(t, arena, [][]byte{[]byte("drop-me")})

	var out bytes.Buffer
	err := Transform(bytes.NewReader(buf), &out, func(x *Xfrm, h adbblock.Header, seg io.Reader) (int64, error) {
		if h.Type == adbblock.TypeDATA {
			io.Copy(io.Discard, seg)
			return 1, nil // consumed, but wrote nothing -- drops the block
		}
		return 0, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	c, err := Stream(bytes.NewReader(out.Bytes()), store, nil, func(int64, io.Reader) error {
		t.Error("datacb should not be called; the DATA block was dropped")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(c.Arena, arena) {
		t.Errorf("Arena = %q, want %q", c.Arena, arena)
	}
}

func TestMapReadsSignedFile(t *testing.T) {
	arena := []byte("mapped-arena-payload")
	buf, store := signedContainer(t, arena, nil)

	dir := t.TempDir()
	path := filepath.Join(dir, "container.adb")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Map(path, store, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if !c.Signed {
		t.Error("Signed = false, want true")
	}
	if !bytes.Equal(c.Arena, arena) {
		t.Errorf("Arena = %q, want %q", c.Arena, arena)
	}
}
