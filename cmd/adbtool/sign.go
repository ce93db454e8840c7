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

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/chimera-linux/apk-tools/internal/cmdmain"
	"github.com/chimera-linux/apk-tools/pkg/adbblock"
	"github.com/chimera-linux/apk-tools/pkg/adbcontainer"
	"github.com/chimera-linux/apk-tools/pkg/adbsign"
	"github.com/chimera-linux/apk-tools/pkg/trustpgp"
)

type signCmd struct {
	secring *string
}

func init() {
	cmdmain.RegisterCommand("sign", func(fs *flag.FlagSet) cmdmain.CommandRunner {
		c := &signCmd{}
		c.secring = fs.String("secring", "", "OpenPGP secret keyring to sign with")
		return c
	})
}

func (c *signCmd) Describe() string { return "append a detached signature to an unsigned container" }

func (c *signCmd) Usage() {
	fmt.Fprintln(cmdmain.Stderr, "Usage: adbtool sign -secring=<file> <infile> <outfile>")
}

func (c *signCmd) RunCommand(args []string) error {
	if len(args) != 2 || *c.secring == "" {
		return cmdmain.ErrUsage
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	hdr, err := adbcontainer.DecodeHeader(data[:adbcontainer.HeaderSize])
	if err != nil {
		return err
	}
	body := data[adbcontainer.HeaderSize:]
	cur, ok, err := adbblock.First(body)
	if err != nil {
		return err
	}
	if !ok || cur.Header.Type != adbblock.TypeADB {
		return adbcontainer.ErrMalformed
	}
	arena := cur.Payload(body)
	var dataBlocks [][]byte
	for blk := cur; ; {
		var more bool
		blk, more, err = adbblock.Next(blk, body)
		if err != nil {
			return err
		}
		if !more {
			break
		}
		if blk.Header.Type == adbblock.TypeDATA {
			dataBlocks = append(dataBlocks, blk.Payload(body))
		}
	}

	store := &trustpgp.KeyringStore{SecretKeyringFile: *c.secring}
	if err := store.Load(); err != nil {
		return err
	}

	ctx := adbsign.NewVerifyContext(data[:adbcontainer.HeaderSize], arena)
	recs, err := adbsign.Sign(ctx, store)
	if err != nil {
		return err
	}
	sigBytes := make([][]byte, len(recs))
	for i, r := range recs {
		sigBytes[i] = r.Encode()
	}

	out := adbcontainer.Assemble(hdr, arena, sigBytes, dataBlocks)
	return os.WriteFile(args[1], out, 0o644)
}
