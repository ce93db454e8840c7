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
)

type dumpCmd struct{}

func init() {
	cmdmain.RegisterCommand("dump", func(fs *flag.FlagSet) cmdmain.CommandRunner {
		return &dumpCmd{}
	})
}

func (c *dumpCmd) Describe() string { return "list a container's blocks" }

func (c *dumpCmd) Usage() {
	fmt.Fprintln(cmdmain.Stderr, "Usage: adbtool dump <file>")
}

func (c *dumpCmd) RunCommand(args []string) error {
	if len(args) != 1 {
		return cmdmain.ErrUsage
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	if len(data) < adbcontainer.HeaderSize {
		return adbcontainer.ErrMalformed
	}
	hdr, err := adbcontainer.DecodeHeader(data[:adbcontainer.HeaderSize])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmdmain.Stdout, "schema=0x%08x\n", hdr.Schema)

	body := data[adbcontainer.HeaderSize:]
	cur, ok, err := adbblock.First(body)
	if err != nil {
		return err
	}
	for ok {
		fmt.Fprintf(cmdmain.Stdout, "  block type=%d size=%d payload=%d\n",
			cur.Header.Type, cur.Header.Size, cur.Header.PayloadSize())
		cur, ok, err = adbblock.Next(cur, body)
		if err != nil {
			return err
		}
	}
	return nil
}
