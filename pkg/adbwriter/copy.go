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
	"github.com/chimera-linux/apk-tools/pkg/adbreader"
	"github.com/chimera-linux/apk-tools/pkg/adbval"
)

// maxSlotsPerLevel bounds the size of any single OBJECT/ARRAY vector
// Copy will walk, to keep a malicious or corrupt source from forcing
// unbounded work through recursive copy.
const maxSlotsPerLevel = 512

// Copy walks v, which lives in src, recursively and builds an
// equivalent value in dst. It is schema-agnostic: SPECIAL/INT copy by
// value; INT_32/BLOB_8/BLOB_16 copy the raw payload at the matching
// alignment; OBJECT/ARRAY recurse into every slot. INT_64 and BLOB_32
// aren't implemented, and any object/array with more than
// maxSlotsPerLevel fields/elements fails -- both per spec.md section
// 4.3.
func Copy(dst *DB, src *adbreader.DB, v adbval.Val) (adbval.Val, error) {
	switch v.Tag() {
	case adbval.TagSpecial, adbval.TagInt:
		return v, nil

	case adbval.TagInt64:
		return dst.fail(ErrNotImplemented)

	case adbval.TagInt32:
		off := int(v.Payload())
		if off < 0 || off+4 > len(src.Arena) {
			return dst.fail(ErrNotImplemented)
		}
		newOff, err := dst.Intern(4, src.Arena[off:off+4])
		if err != nil {
			return dst.fail(err)
		}
		return adbval.Offset(adbval.TagInt32, newOff), nil

	case adbval.TagBlob32:
		return dst.fail(ErrNotImplemented)

	case adbval.TagBlob8, adbval.TagBlob16:
		width := adbval.BlobPrefixWidth(v.Tag())
		off := int(v.Payload())
		if off < 0 || off+width > len(src.Arena) {
			return dst.fail(ErrNotImplemented)
		}
		var n int
		if width == 1 {
			n = int(src.Arena[off])
		} else {
			n = int(src.Arena[off]) | int(src.Arena[off+1])<<8
		}
		total := width + n
		if off+total > len(src.Arena) {
			return dst.fail(ErrNotImplemented)
		}
		newOff, err := dst.Intern(uint32(width), src.Arena[off:off+total])
		if err != nil {
			return dst.fail(err)
		}
		return adbval.Offset(v.Tag(), newOff), nil

	case adbval.TagObject, adbval.TagArray:
		off := int(v.Payload())
		if off < 0 || off+4 > len(src.Arena) {
			return dst.fail(ErrNotImplemented)
		}
		n := int(adbval.Uint32(src.Arena[off : off+4]))
		if n < 1 || off+n*4 > len(src.Arena) {
			return dst.fail(ErrNotImplemented)
		}
		if n-1 > maxSlotsPerLevel {
			return dst.fail(ErrTooLarge)
		}
		newSlots := make([]adbval.Val, n)
		for i := 1; i < n; i++ {
			childOff := off + i*4
			child := adbval.Val(adbval.Uint32(src.Arena[childOff : childOff+4]))
			copied, err := Copy(dst, src, child)
			if err != nil {
				return dst.fail(err)
			}
			newSlots[i] = copied
		}
		newSlots[0] = adbval.Val(uint32(n))
		buf := make([]byte, n*4)
		for i, sv := range newSlots {
			adbval.PutUint32(buf[i*4:i*4+4], uint32(sv))
		}
		newOff, err := dst.Intern(4, buf)
		if err != nil {
			return dst.fail(err)
		}
		return adbval.Offset(v.Tag(), newOff), nil

	default:
		return dst.fail(ErrNotImplemented)
	}
}
