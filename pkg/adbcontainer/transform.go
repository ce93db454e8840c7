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
)

// Xfrm is the output side of a Transform pass: a thin wrapper that
// lets an XfrmCallback either let the driver bulk-copy a block
// verbatim, or write its own replacement block(s) directly.
type Xfrm struct {
	w io.Writer
}

// WriteBlock frames payload as a single block of type t and writes it
// (header, payload, and alignment padding) to the output.
func (x *Xfrm) WriteBlock(t adbblock.Type, payload []byte) error {
	buf := adbblock.AppendPadded(nil, t, payload)
	_, err := x.w.Write(buf)
	return err
}

// XfrmCallback is invoked once per input block. seg is bounded to
// exactly that block's payload (not including padding). Returning
// consumed == 0 and a nil error tells the driver to copy the block
// through verbatim (header, payload, and padding); returning
// consumed > 0 tells the driver the callback already wrote whatever
// it wanted to x itself, and the driver just needs to skip past
// whatever of the input the callback left unread.
type XfrmCallback func(x *Xfrm, header adbblock.Header, seg io.Reader) (consumed int64, err error)

// countingReader tracks how many bytes have been read through it, so
// Transform can tell whether a callback consumed anything from seg
// without requiring the callback to report that itself.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Transform reads a container from r and writes a transformed copy to
// w, one block at a time. The header is always copied through
// unchanged (a schema/magic rewrite isn't a supported transform).
// cb decides per block whether to pass it through, rewrite it, or
// drop it; see XfrmCallback.
func Transform(r io.Reader, w io.Writer, cb XfrmCallback) error {
	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return wrapReadErr(err)
	}
	if _, err := DecodeHeader(headerBuf); err != nil {
		return err
	}
	x := &Xfrm{w: w}
	if _, err := w.Write(headerBuf); err != nil {
		return err
	}

	first := true
	for {
		blkHdr, ok, err := readBlockHeader(r)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := blockIsOrderValid(blkHdr.Type, true, first); err != nil {
			return err
		}
		first = false

		payloadLen := int64(blkHdr.PayloadSize())
		cr := &countingReader{r: io.LimitReader(r, payloadLen)}

		consumed, err := cb(x, blkHdr, cr)
		if err != nil {
			return err
		}

		if consumed == 0 && cr.n == 0 {
			payload := make([]byte, payloadLen)
			if _, err := io.ReadFull(cr, payload); err != nil {
				return wrapReadErr(err)
			}
			if err := x.WriteBlock(blkHdr.Type, payload); err != nil {
				return err
			}
			if err := discardPadding(r, blkHdr); err != nil {
				return err
			}
			continue
		}

		if _, err := io.Copy(io.Discard, cr); err != nil {
			return wrapReadErr(err)
		}
		if err := discardPadding(r, blkHdr); err != nil {
			return err
		}
	}
	return nil
}
