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
	"io"

	"github.com/chimera-linux/apk-tools/pkg/adbblock"
	"github.com/chimera-linux/apk-tools/pkg/adbsign"
)

// DataCallback is invoked once per DATA block encountered by Stream,
// with the block's declared payload length and a reader bounded to
// exactly that many bytes. The callback need not read the segment to
// completion; Stream discards whatever is left once the callback
// returns.
type DataCallback func(length int64, segment io.Reader) error

// Stream reads a container from r one block at a time: the ADB
// block's payload is buffered into an in-memory arena (there is no
// mmap to alias here), each SIG block is verified against trust as it
// arrives, and each DATA block is handed to datacb as a bounded
// segment. Per spec.md section 4.4, a DATA block may only appear once
// at least one signature has verified; Stream enforces that by
// returning ErrNoKey the first time this is violated. datacb may be
// nil if the caller expects no DATA blocks; a DATA block that arrives
// after a verified signature then fails with ErrMalformed (one that
// arrives before any verified signature still fails with ErrNoKey).
//
// The returned Container's Close closes r if it implements io.Closer;
// otherwise Close is a no-op. On error, Stream closes r itself if it
// implements io.Closer.
func Stream(r io.Reader, trust adbsign.TrustStore, schema *uint32, datacb DataCallback) (c *Container, err error) {
	defer func() {
		if err != nil {
			if closer, ok := r.(io.Closer); ok {
				closer.Close()
			}
		}
	}()
	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return nil, wrapReadErr(err)
	}
	hdr, err := DecodeHeader(headerBuf)
	if err != nil {
		return nil, err
	}
	if err := checkSchema(hdr, schema); err != nil {
		return nil, err
	}

	first, arena, err := readFirstBlock(r)
	if err != nil {
		return nil, err
	}
	if first.Type != adbblock.TypeADB {
		return nil, ErrMalformed
	}

	pass := newVerifyPass(headerBuf, arena, trust)

	for {
		blkHdr, ok, err := readBlockHeader(r)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if err := blockIsOrderValid(blkHdr.Type, true, false); err != nil {
			return nil, err
		}

		switch blkHdr.Type {
		case adbblock.TypeSIG:
			payload := make([]byte, blkHdr.PayloadSize())
			if _, err := io.ReadFull(r, payload); err != nil {
				return nil, wrapReadErr(err)
			}
			if err := discardPadding(r, blkHdr); err != nil {
				return nil, err
			}
			pass.feedSIG(payload)

		case adbblock.TypeDATA:
			if !pass.trusted {
				return nil, ErrNoKey
			}
			if datacb == nil {
				return nil, ErrMalformed
			}
			n := int64(blkHdr.PayloadSize())
			seg := io.LimitReader(r, n)
			if err := datacb(n, seg); err != nil {
				return nil, err
			}
			if _, err := io.Copy(io.Discard, seg); err != nil {
				return nil, wrapReadErr(err)
			}
			if err := discardPadding(r, blkHdr); err != nil {
				return nil, err
			}

		default:
			return nil, ErrMalformed
		}
	}

	c = &Container{
		Header:      hdr,
		Arena:       arena,
		Signed:      pass.trusted,
		SignerKeyID: pass.keyID,
	}
	if closer, ok := r.(io.Closer); ok {
		c.closer = closer.Close
	}
	return c, nil
}

func wrapReadErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrMalformed
	}
	return err
}

func readBlockHeader(r io.Reader) (adbblock.Header, bool, error) {
	buf := make([]byte, adbblock.HeaderSize)
	n, err := io.ReadFull(r, buf)
	if err == io.EOF && n == 0 {
		return adbblock.Header{}, false, nil
	}
	if err != nil {
		return adbblock.Header{}, false, wrapReadErr(err)
	}
	h, err := adbblock.DecodeHeaderBytes(buf)
	if err != nil {
		return adbblock.Header{}, false, err
	}
	return h, true, nil
}

func readFirstBlock(r io.Reader) (adbblock.Header, []byte, error) {
	h, ok, err := readBlockHeader(r)
	if err != nil {
		return adbblock.Header{}, nil, err
	}
	if !ok {
		return adbblock.Header{}, nil, ErrMalformed
	}
	payload := make([]byte, h.PayloadSize())
	if _, err := io.ReadFull(r, payload); err != nil {
		return adbblock.Header{}, nil, wrapReadErr(err)
	}
	if err := discardPadding(r, h); err != nil {
		return adbblock.Header{}, nil, err
	}
	return h, payload, nil
}

func discardPadding(r io.Reader, h adbblock.Header) error {
	pad := int64(h.PaddedSize() - h.Size)
	if pad == 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, pad); err != nil {
		return wrapReadErr(err)
	}
	return nil
}
