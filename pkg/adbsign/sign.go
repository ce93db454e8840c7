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

// Package adbsign computes and checks detached signatures over an ADB
// container's header and ADB block payload. It knows nothing about
// key material or trust policy itself -- those live behind the
// TrustStore/PrivateKey/PublicKey interfaces, so a caller can plug in
// any keyring implementation (see pkg/trustpgp for one grounded on
// OpenPGP).
package adbsign

import (
	"crypto/sha512"
	"errors"
)

// HashAlg identifies the digest algorithm a Record was signed over.
// SHA-512 is the only one this package knows how to compute; a Record
// naming anything else fails to verify with ErrUnsupportedAlg.
type HashAlg uint8

const HashSHA512 HashAlg = 0

// recordPrefixSize is the fixed portion of a Record's wire encoding:
// one version byte, one hash-algorithm byte, a reserved 16-bit field,
// and a 16-byte key identifier, ahead of the variable-length signature
// bytes.
const recordPrefixSize = 1 + 1 + 2 + 16

const recordVersion = 0

var (
	ErrMalformed      = errors.New("adbsign: malformed signature record")
	ErrUnsupportedAlg = errors.New("adbsign: unsupported hash algorithm")
	ErrUnsupportedVer = errors.New("adbsign: unsupported signature record version")
	ErrNoPrivateKeys  = errors.New("adbsign: trust store has no private keys to sign with")
)

// Record is one detached signature, as carried by a single SIG block.
type Record struct {
	Version uint8
	Alg     HashAlg
	KeyID   [16]byte
	Sig     []byte
}

// Encode returns the wire encoding of r: version, algorithm, a
// reserved 16-bit field (always zero), key id, then the raw signature
// bytes, in that order, with no length prefix of its own -- the
// enclosing SIG block's size carries that.
func (r Record) Encode() []byte {
	buf := make([]byte, recordPrefixSize+len(r.Sig))
	buf[0] = r.Version
	buf[1] = byte(r.Alg)
	// buf[2:4] is the reserved field, left zero.
	copy(buf[4:20], r.KeyID[:])
	copy(buf[20:], r.Sig)
	return buf
}

// DecodeRecord parses a SIG block's payload into a Record.
func DecodeRecord(b []byte) (Record, error) {
	if len(b) < recordPrefixSize {
		return Record{}, ErrMalformed
	}
	var rec Record
	rec.Version = b[0]
	rec.Alg = HashAlg(b[1])
	copy(rec.KeyID[:], b[4:20])
	rec.Sig = append([]byte(nil), b[20:]...)
	return rec, nil
}

// VerifyContext memoizes the digest of a fixed (header, payload) pair
// across however many Records are checked against it, so a container
// with several SIG blocks only hashes the arena once per algorithm.
type VerifyContext struct {
	header  []byte
	payload []byte
	digests map[HashAlg][]byte
}

// NewVerifyContext binds a context to the exact bytes a signature was
// computed over: the container header (without the ADB block's own
// framing) and the ADB block's raw payload.
func NewVerifyContext(header, payload []byte) *VerifyContext {
	return &VerifyContext{
		header:  header,
		payload: payload,
		digests: make(map[HashAlg][]byte),
	}
}

// digest returns the memoized digest for alg, computing it on first
// use. The digest covers the ADB block's payload alone, not the
// container header -- the header is instead glued onto the front of
// the signed byte sequence by signInput, alongside the record's own
// prefix.
func (c *VerifyContext) digest(alg HashAlg) ([]byte, error) {
	if d, ok := c.digests[alg]; ok {
		return d, nil
	}
	switch alg {
	case HashSHA512:
		h := sha512.New()
		h.Write(c.payload)
		d := h.Sum(nil)
		c.digests[alg] = d
		return d, nil
	default:
		return nil, ErrUnsupportedAlg
	}
}

// signInput is the exact byte sequence a PrivateKey signs and a
// PublicKey verifies: the container header, the record's
// version/alg/key-id prefix, then the payload digest. Binding the
// header and the prefix into the signed bytes means a signature can't
// be replayed against a different container header, or under a
// different key id or algorithm label, without also being recomputed.
func (c *VerifyContext) signInput(rec Record, digest []byte) []byte {
	buf := make([]byte, 0, len(c.header)+recordPrefixSize+len(digest))
	buf = append(buf, c.header...)
	buf = append(buf, rec.Version, byte(rec.Alg))
	buf = append(buf, 0, 0) // reserved
	buf = append(buf, rec.KeyID[:]...)
	buf = append(buf, digest...)
	return buf
}

// PrivateKey signs an arbitrary byte string and identifies itself by
// a 16-byte key id, conventionally the low 16 bytes of the public
// key's own fingerprint.
type PrivateKey interface {
	KeyID() [16]byte
	Sign(data []byte) ([]byte, error)
}

// PublicKey verifies a signature produced by the matching PrivateKey.
type PublicKey interface {
	KeyID() [16]byte
	Verify(data, sig []byte) error
}

// TrustStore supplies the key material a Sign/Verify pass needs.
// PrivateKeys lists the identities to sign as; TrustedKeys lists the
// identities a Verify pass accepts -- trust.md's policy layer sits
// entirely behind this interface.
type TrustStore interface {
	PrivateKeys() []PrivateKey
	TrustedKeys() []PublicKey
}

// Sign produces one Record per private key in store, each over ctx's
// digest under HashSHA512.
func Sign(ctx *VerifyContext, store TrustStore) ([]Record, error) {
	keys := store.PrivateKeys()
	if len(keys) == 0 {
		return nil, ErrNoPrivateKeys
	}
	digest, err := ctx.digest(HashSHA512)
	if err != nil {
		return nil, err
	}
	recs := make([]Record, 0, len(keys))
	for _, k := range keys {
		rec := Record{Version: recordVersion, Alg: HashSHA512, KeyID: k.KeyID()}
		sig, err := k.Sign(ctx.signInput(rec, digest))
		if err != nil {
			return nil, err
		}
		rec.Sig = sig
		recs = append(recs, rec)
	}
	return recs, nil
}

// Verify checks rec against every key in store.TrustedKeys() whose
// key id matches. It reports whether any key verified, and if so,
// which key id. A Record with a version it doesn't recognize fails
// with ErrUnsupportedVer, and one naming an algorithm this package
// can't compute fails with ErrUnsupportedAlg; neither ever verifies.
// A key that merely fails its cryptographic check is not an error:
// Verify moves on to the next matching key.
func Verify(ctx *VerifyContext, rec Record, store TrustStore) (bool, [16]byte, error) {
	if rec.Version != recordVersion {
		return false, rec.KeyID, ErrUnsupportedVer
	}
	digest, err := ctx.digest(rec.Alg)
	if err != nil {
		return false, rec.KeyID, err
	}
	input := ctx.signInput(rec, digest)
	for _, k := range store.TrustedKeys() {
		if k.KeyID() != rec.KeyID {
			continue
		}
		if err := k.Verify(input, rec.Sig); err == nil {
			return true, rec.KeyID, nil
		}
	}
	return false, rec.KeyID, nil
}
