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
	"io"
	"os"

	"github.com/chimera-linux/apk-tools/internal/cmdmain"
	"github.com/chimera-linux/apk-tools/pkg/adbblock"
	"github.com/chimera-linux/apk-tools/pkg/adbcontainer"
)

type xfrmCmd struct {
	dropData *bool
}

func init() {
	cmdmain.RegisterCommand("xfrm", func(fs *flag.FlagSet) cmdmain.CommandRunner {
		c := &xfrmCmd{}
		c.dropData = fs.Bool("drop-data", false, "drop all DATA blocks while rewriting")
		return c
	})
}

func (c *xfrmCmd) Describe() string { return "rewrite a container block by block" }

func (c *xfrmCmd) Usage() {
	fmt.Fprintln(cmdmain.Stderr, "Usage: adbtool xfrm [-drop-data] <infile> <outfile>")
}

func (c *xfrmCmd) RunCommand(args []string) error {
	if len(args) != 2 {
		return cmdmain.ErrUsage
	}
	in, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(args[1])
	if err != nil {
		return err
	}
	defer out.Close()

	drop := *c.dropData
	return adbcontainer.Transform(in, out, func(x *adbcontainer.Xfrm, h adbblock.Header, seg io.Reader) (int64, error) {
		if drop && h.Type == adbblock.TypeDATA {
			n, err := io.Copy(io.Discard, seg)
			return n + 1, err // nonzero: tell the driver we've handled it (by discarding)
		}
		return 0, nil
	})
}
