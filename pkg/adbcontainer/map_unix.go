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

//go:build unix

package adbcontainer

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/chimera-linux/apk-tools/pkg/adbblock"
	"github.com/chimera-linux/apk-tools/pkg/adbsign"
)

// Map opens path read-only and maps the whole file, then parses its
// header, locates the (mandatory, first) ADB block, and verifies any
// SIG blocks that follow against trust. The mapping is zero-copy:
// Arena aliases the mapped region directly, so the file must outlive
// the Container until Close unmaps it.
//
// trust may be nil, in which case no SIG block is checked and
// Signed stays false; schema, if non-nil, is compared against the
// header's schema tag.
func Map(path string, trust adbsign.TrustStore, schema *uint32) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := st.Size()
	if size < HeaderSize {
		return nil, ErrMalformed
	}

	region, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}

	c, err := parseMapped(region, trust, schema)
	if err != nil {
		unix.Munmap(region)
		return nil, err
	}
	c.closer = func() error { return unix.Munmap(region) }
	return c, nil
}

func parseMapped(region []byte, trust adbsign.TrustStore, schema *uint32) (*Container, error) {
	hdr, err := DecodeHeader(region[:HeaderSize])
	if err != nil {
		return nil, err
	}
	if err := checkSchema(hdr, schema); err != nil {
		return nil, err
	}

	body := region[HeaderSize:]
	cur, ok, err := adbblock.First(body)
	if err != nil {
		return nil, err
	}
	if !ok || cur.Header.Type != adbblock.TypeADB {
		return nil, ErrMalformed
	}
	arena := cur.Payload(body)

	pass := newVerifyPass(region[:HeaderSize], arena, trust)
	first := true
	for {
		if err := blockIsOrderValid(cur.Header.Type, true, first); err != nil {
			return nil, err
		}
		if first {
			first = false
		} else if cur.Header.Type == adbblock.TypeSIG {
			pass.feedSIG(cur.Payload(body))
		}
		next, ok, err := adbblock.Next(cur, body)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		cur = next
	}

	return &Container{
		Header:      hdr,
		Arena:       arena,
		Signed:      pass.trusted,
		SignerKeyID: pass.keyID,
	}, nil
}
