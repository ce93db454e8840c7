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

	"github.com/chimera-linux/apk-tools/internal/cmdmain"
	"github.com/chimera-linux/apk-tools/pkg/adbcontainer"
	"github.com/chimera-linux/apk-tools/pkg/trustpgp"
)

type verifyCmd struct {
	pubring *string
}

func init() {
	cmdmain.RegisterCommand("verify", func(fs *flag.FlagSet) cmdmain.CommandRunner {
		c := &verifyCmd{}
		c.pubring = fs.String("pubring", "", "OpenPGP public keyring of trusted signers")
		return c
	})
}

func (c *verifyCmd) Describe() string { return "check a container's signature against a trust store" }

func (c *verifyCmd) Usage() {
	fmt.Fprintln(cmdmain.Stderr, "Usage: adbtool verify -pubring=<file> <file>")
}

func (c *verifyCmd) RunCommand(args []string) error {
	if len(args) != 1 || *c.pubring == "" {
		return cmdmain.ErrUsage
	}

	store := &trustpgp.KeyringStore{PublicKeyringFile: *c.pubring}
	if err := store.Load(); err != nil {
		return err
	}

	cont, err := adbcontainer.Map(args[0], store, nil)
	if err != nil {
		return err
	}
	defer cont.Close()

	if !cont.Signed {
		return adbcontainer.ErrKeyRejected
	}
	fmt.Fprintf(cmdmain.Stdout, "trusted, signed by key %x\n", cont.SignerKeyID)
	return nil
}
