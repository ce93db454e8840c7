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

import "github.com/chimera-linux/apk-tools/pkg/adbblock"

// FromBlob parses a caller-supplied byte range that is already
// block-framed starting with an ADB block -- no container header, no
// mmap, no signature pass. It is how a nested ADB value (an ADB-typed
// field whose payload is itself a full arena) is opened without
// re-parsing an outer container. Trailing blocks, if any, are
// ignored: a nested arena has no business carrying its own SIG/DATA
// blocks.
func FromBlob(data []byte) (*Container, error) {
	cur, ok, err := adbblock.First(data)
	if err != nil {
		return nil, err
	}
	if !ok || cur.Header.Type != adbblock.TypeADB {
		return nil, ErrMalformed
	}
	return &Container{Arena: cur.Payload(data)}, nil
}
