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

package adbsign

import (
	"bytes"
	"testing"
)

// fakeKey is a trivial PrivateKey/PublicKey pair: "signing" just
// reverses the data, so Verify can check it without pulling in real
// crypto. Good enough to exercise the Record plumbing.
type fakeKey struct {
	id [16]byte
}

func (k fakeKey) KeyID() [16]byte { return k.id }

func (k fakeKey) Sign(data []byte) ([]byte, error) {
	return reverse(data), nil
}

func (k fakeKey) Verify(data, sig []byte) error {
	if !bytes.Equal(reverse(data), sig) {
		return ErrMalformed
	}
	return nil
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}

type fakeStore struct {
	priv []PrivateKey
	pub  []PublicKey
}

func (s fakeStore) PrivateKeys() []PrivateKey { return s.priv }
func (s fakeStore) TrustedKeys() []PublicKey  { return s.pub }

func TestRecordRoundTrip(t *testing.T) {
	rec := Record{Version: 1, Alg: HashSHA512, KeyID: [16]byte{1, 2, 3}, Sig: []byte("sig-bytes")}
	got, err := DecodeRecord(rec.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != rec.Version || got.Alg != rec.Alg || got.KeyID != rec.KeyID || !bytes.Equal(got.Sig, rec.Sig) {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, rec)
	}
}

func TestDecodeRecordTooShort(t *testing.T) {
	if _, err := DecodeRecord([]byte{1, 2, 3}); err != ErrMalformed {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func TestSignAndVerify(t *testing.T) {
	key := fakeKey{id: [16]byte{9}}
	store := fakeStore{priv: []PrivateKey{key}, pub: []PublicKey{key}}

	ctx := NewVerifyContext([]byte("header"), []byte("payload"))
	recs, err := Sign(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("len(recs) = %d, want 1", len(recs))
	}

	verifyCtx := NewVerifyContext([]byte("header"), []byte("payload"))
	ok, keyID, err := Verify(verifyCtx, recs[0], store)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("Verify = false, want true")
	}
	if keyID != key.id {
		t.Errorf("keyID = %v, want %v", keyID, key.id)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	key := fakeKey{id: [16]byte{9}}
	store := fakeStore{priv: []PrivateKey{key}, pub: []PublicKey{key}}

	ctx := NewVerifyContext([]byte("header"), []byte("payload"))
	recs, err := Sign(ctx, store)
	if err != nil {
		t.Fatal(err)
	}

	tamperedCtx := NewVerifyContext([]byte("header"), []byte("tampered"))
	ok, _, err := Verify(tamperedCtx, recs[0], store)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("Verify = true for tampered payload, want false")
	}
}

func TestVerifyUnknownKeyIDNeverMatches(t *testing.T) {
	signer := fakeKey{id: [16]byte{1}}
	other := fakeKey{id: [16]byte{2}}
	signStore := fakeStore{priv: []PrivateKey{signer}, pub: []PublicKey{signer}}
	trustStore := fakeStore{pub: []PublicKey{other}}

	ctx := NewVerifyContext([]byte("h"), []byte("p"))
	recs, err := Sign(ctx, signStore)
	if err != nil {
		t.Fatal(err)
	}

	ok, _, err := Verify(NewVerifyContext([]byte("h"), []byte("p")), recs[0], trustStore)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("Verify = true against a trust store with no matching key, want false")
	}
}

func TestSignNoPrivateKeys(t *testing.T) {
	ctx := NewVerifyContext([]byte("h"), []byte("p"))
	if _, err := Sign(ctx, fakeStore{}); err != ErrNoPrivateKeys {
		t.Errorf("err = %v, want ErrNoPrivateKeys", err)
	}
}

func TestVerifyUnsupportedVersion(t *testing.T) {
	rec := Record{Version: 2, Alg: HashSHA512, KeyID: [16]byte{1}}
	ctx := NewVerifyContext([]byte("h"), []byte("p"))
	if _, _, err := Verify(ctx, rec, fakeStore{}); err != ErrUnsupportedVer {
		t.Errorf("err = %v, want ErrUnsupportedVer", err)
	}
}
