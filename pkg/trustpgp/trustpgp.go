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

// Package trustpgp is a pkg/adbsign.TrustStore backed by OpenPGP
// keyrings: signing entities come from a secret keyring file,
// trusted verification keys come from a public keyring file. It is
// the reference trust store; pkg/adbsign itself stays ignorant of
// any particular key format.
package trustpgp

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
	"golang.org/x/crypto/openpgp/packet"

	"github.com/chimera-linux/apk-tools/pkg/adbsign"
)

// entityKey adapts an *openpgp.Entity to adbsign.PrivateKey/PublicKey.
// The same adapter backs both interfaces; Sign fails on an entity
// with no usable private key, and Verify fails on one with no
// public key, which can't happen for an entity ReadKeyRing produced.
type entityKey struct {
	id     [16]byte
	entity *openpgp.Entity
}

func (k entityKey) KeyID() [16]byte { return k.id }

func (k entityKey) Sign(data []byte) ([]byte, error) {
	if k.entity.PrivateKey == nil {
		return nil, fmt.Errorf("trustpgp: entity %x has no private key", k.id)
	}
	signer := &packet.Config{}
	var out bytes.Buffer
	if err := openpgp.DetachSign(&out, k.entity, bytes.NewReader(data), signer); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (k entityKey) Verify(data, sig []byte) error {
	_, err := openpgp.CheckDetachedSignature(openpgp.EntityList{k.entity}, bytes.NewReader(data), bytes.NewReader(sig))
	return err
}

// keyID16 derives the 16-byte identifier a Record carries from an
// OpenPGP entity's 8-byte key id, zero-extended: ADB's key id field
// is wider than OpenPGP's native id, leaving room for other key
// formats to populate the high bytes without colliding.
func keyID16(fp uint64) [16]byte {
	var id [16]byte
	for i := 0; i < 8; i++ {
		id[i] = byte(fp >> (8 * (7 - i)))
	}
	return id
}

// KeyringStore loads its private and trusted-public keys from
// armored or binary OpenPGP keyring files, in the style of
// jsonsign's FileEntityFetcher.
type KeyringStore struct {
	SecretKeyringFile string
	PublicKeyringFile string

	priv []adbsign.PrivateKey
	pub  []adbsign.PublicKey
}

// Load reads both keyring files (either may be empty, in which case
// that half of the store is empty) and indexes their entities.
func (s *KeyringStore) Load() error {
	if s.SecretKeyringFile != "" {
		entities, err := readKeyring(s.SecretKeyringFile)
		if err != nil {
			return fmt.Errorf("trustpgp: reading secret keyring: %w", err)
		}
		for _, e := range entities {
			if e.PrivateKey == nil {
				continue
			}
			s.priv = append(s.priv, entityKey{id: keyID16(e.PrivateKey.KeyId), entity: e})
		}
	}
	if s.PublicKeyringFile != "" {
		entities, err := readKeyring(s.PublicKeyringFile)
		if err != nil {
			return fmt.Errorf("trustpgp: reading public keyring: %w", err)
		}
		for _, e := range entities {
			if e.PrimaryKey == nil {
				continue
			}
			s.pub = append(s.pub, entityKey{id: keyID16(e.PrimaryKey.KeyId), entity: e})
		}
	}
	return nil
}

func readKeyring(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if block, err := armor.Decode(f); err == nil {
		return openpgp.ReadKeyRing(block.Body)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	return openpgp.ReadKeyRing(f)
}

func (s *KeyringStore) PrivateKeys() []adbsign.PrivateKey { return s.priv }
func (s *KeyringStore) TrustedKeys() []adbsign.PublicKey  { return s.pub }

// AddTrustedArmored parses a single armored public key and adds it to
// the store directly, for callers building a trust list from embedded
// or fetched keys rather than a keyring file on disk.
func (s *KeyringStore) AddTrustedArmored(armoredKey []byte) error {
	block, err := armor.Decode(bytes.NewReader(armoredKey))
	if err != nil {
		return err
	}
	reader := packet.NewReader(block.Body)
	entity, err := openpgp.ReadEntity(reader)
	if err != nil {
		return err
	}
	s.pub = append(s.pub, entityKey{id: keyID16(entity.PrimaryKey.KeyId), entity: entity})
	return nil
}
