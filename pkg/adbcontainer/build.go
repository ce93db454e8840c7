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

// Assemble frames a complete container: the header, the ADB block
// carrying arena, one SIG block per signature record already in sig
// wire form, and one DATA block per entry in data. Order matches
// spec.md section 4.1: header, ADB, SIG*, DATA*.
func Assemble(header Header, arena []byte, sigRecords [][]byte, data [][]byte) []byte {
	buf := append([]byte(nil), header.Encode()...)
	buf = adbblock.AppendPadded(buf, adbblock.TypeADB, arena)
	for _, rec := range sigRecords {
		buf = adbblock.AppendPadded(buf, adbblock.TypeSIG, rec)
	}
	for _, d := range data {
		buf = adbblock.AppendPadded(buf, adbblock.TypeDATA, d)
	}
	return buf
}
