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

// Package adbcontainer frames an ADB arena on disk: a header followed
// by an ADB block, zero or more detached SIG blocks, and zero or more
// bulk DATA blocks. It supports mapping a whole file, parsing a
// caller-supplied byte range, streaming block-at-a-time with a user
// callback for DATA blocks, and rewriting a container block-by-block.
package adbcontainer

import (
	"encoding/binary"
	"errors"

	"github.com/chimera-linux/apk-tools/pkg/adbblock"
	"github.com/chimera-linux/apk-tools/pkg/adbsign"
)

// Magic is the container's fixed 4-byte header tag, 'A''D''B''.' in
// little-endian reading order (0x2e424441).
const Magic uint32 = 0x2e424441

// HeaderSize is the on-disk size of the container header.
const HeaderSize = 8

var (
	ErrMalformed      = errors.New("adbcontainer: malformed container")
	ErrSchemaMismatch = errors.New("adbcontainer: schema tag mismatch")
	ErrNoKey          = errors.New("adbcontainer: no trusted signature available yet")
	ErrKeyRejected    = errors.New("adbcontainer: all signatures failed to verify")
)

// Header is the container's 8-byte preamble.
type Header struct {
	Schema uint32
}

// Encode returns the 8-byte wire encoding of h.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Schema)
	return buf
}

// DecodeHeader parses and validates a container header.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, ErrMalformed
	}
	if binary.LittleEndian.Uint32(b[0:4]) != Magic {
		return Header{}, ErrMalformed
	}
	return Header{Schema: binary.LittleEndian.Uint32(b[4:8])}, nil
}

func checkSchema(h Header, want *uint32) error {
	if want != nil && h.Schema != *want {
		return ErrSchemaMismatch
	}
	return nil
}

// Container is a parsed ADB container: the ADB block's payload (the
// arena) plus whatever the signature pass learned about it. Call
// Close when done; Map-backed containers unmap their region, and
// Stream-backed ones close their input.
type Container struct {
	Header Header
	Arena  []byte

	Signed      bool
	SignerKeyID [16]byte

	closer func() error
}

// Close releases the container's underlying resource. It is safe to
// call more than once.
func (c *Container) Close() error {
	if c.closer == nil {
		return nil
	}
	err := c.closer()
	c.closer = nil
	return err
}

// verifyPass feeds blocks from a framer-produced cursor through every
// SIG block it encounters via adbsign, against headerBytes and the
// already-located ADB payload. It is shared between Map and Stream
// (which differ only in how they obtain the block data).
type verifyPass struct {
	ctx     *adbsign.VerifyContext
	trust   adbsign.TrustStore
	trusted bool
	keyID   [16]byte
	errs    int
}

func newVerifyPass(headerBytes, payload []byte, trust adbsign.TrustStore) *verifyPass {
	return &verifyPass{
		ctx:   adbsign.NewVerifyContext(headerBytes, payload),
		trust: trust,
	}
}

// feedSIG processes one SIG block's payload. It never returns an
// error itself; verification failure just leaves trusted as-is, the
// same as the reference design's "skip any key-id that doesn't
// match, first success wins."
func (p *verifyPass) feedSIG(payload []byte) {
	if p.trusted || p.trust == nil {
		return
	}
	rec, err := adbsign.DecodeRecord(payload)
	if err != nil {
		p.errs++
		return
	}
	ok, keyID, err := adbsign.Verify(p.ctx, rec, p.trust)
	if err != nil || !ok {
		p.errs++
		return
	}
	p.trusted = true
	p.keyID = keyID
}

// blockIsOrderValid enforces spec.md section 4.4/4.1's block ordering:
// exactly one ADB block, which must be first.
func blockIsOrderValid(t adbblock.Type, sawADB bool, first bool) error {
	if first && t != adbblock.TypeADB {
		return ErrMalformed
	}
	if !first && t == adbblock.TypeADB {
		return ErrMalformed
	}
	if t == adbblock.TypeReserved {
		return ErrMalformed
	}
	_ = sawADB
	return nil
}
