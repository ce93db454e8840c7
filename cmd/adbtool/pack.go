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
	"github.com/chimera-linux/apk-tools/pkg/adbcontainer"
	"github.com/chimera-linux/apk-tools/pkg/adbwriter"
)

type packCmd struct {
	schema *uint
}

func init() {
	cmdmain.RegisterCommand("pack", func(fs *flag.FlagSet) cmdmain.CommandRunner {
		c := &packCmd{}
		c.schema = fs.Uint("schema", 0, "schema tag to stamp into the header")
		return c
	})
}

func (c *packCmd) Describe() string { return "wrap a raw file's bytes as a single-blob container" }

func (c *packCmd) Usage() {
	fmt.Fprintln(cmdmain.Stderr, "Usage: adbtool pack [-schema=N] <infile> <outfile>")
}

func (c *packCmd) RunCommand(args []string) error {
	if len(args) != 2 {
		return cmdmain.ErrUsage
	}
	content, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	db := adbwriter.NewWritable()
	root := db.WriteBlob(content)
	if err := db.SetRoot(root); err != nil {
		return err
	}
	if db.Poisoned {
		return db.Err
	}

	hdr := adbcontainer.Header{Schema: uint32(*c.schema)}
	out := adbcontainer.Assemble(hdr, db.Arena, nil, nil)
	return os.WriteFile(args[1], out, 0o644)
}
