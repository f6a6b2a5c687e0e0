// Copyright 2026 The satellion Authors
// This file is part of the satellion library.
//
// The satellion library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The satellion library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the satellion library. If not, see <http://www.gnu.org/licenses/>.

package wallet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pkg/errors"

	"github.com/satellion/satellion/crypto/envelope"
	"github.com/satellion/satellion/crypto/secret"
)

// Store persists one envelope-encrypted JSON file per wallet.
type Store struct {
	dir            string
	params         *chaincfg.Params
	omitSeedPhrase bool
}

// NewStore serves wallet files from dir. When omitSeedPhrase is set, BIP39
// seeds are derived with an empty passphrase and the wallet passphrase only
// guards the envelope.
func NewStore(dir string, params *chaincfg.Params, omitSeedPhrase bool) *Store {
	return &Store{dir: dir, params: params, omitSeedPhrase: omitSeedPhrase}
}

func (s *Store) seedPassphrase(passphrase string) string {
	if s.omitSeedPhrase {
		return ""
	}
	return passphrase
}

// Create builds a new wallet from the mnemonic and writes it to disk. An
// empty name is auto-assigned as Wallet_<n>.
func (s *Store) Create(name, mnemonic, passphrase string) (*Wallet, error) {
	if name == "" {
		generated, err := s.nextWalletName()
		if err != nil {
			return nil, err
		}
		name = generated
	}
	if _, err := os.Stat(s.filePath(name)); err == nil {
		return nil, errors.Errorf("wallet %q already exists", name)
	}

	w, err := New(name, mnemonic, passphrase, s.seedPassphrase(passphrase), s.params)
	if err != nil {
		return nil, err
	}
	if err := s.Save(w); err != nil {
		w.Wipe()
		return nil, err
	}
	return w, nil
}

// Load decrypts and reconstructs a wallet. envelope.ErrBadPassphrase and
// envelope.ErrCorrupt surface unchanged so the caller can distinguish them.
func (s *Store) Load(name, passphrase string) (*Wallet, error) {
	raw, err := os.ReadFile(s.filePath(name))
	if os.IsNotExist(err) {
		return nil, errors.Errorf("wallet %q not found", name)
	}
	if err != nil {
		return nil, errors.Wrap(err, "cannot read wallet file")
	}

	var env envelope.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, envelope.ErrCorrupt
	}
	plaintext, err := envelope.Decrypt(&env, []byte(passphrase))
	if err != nil {
		return nil, err
	}

	var sw serializedWallet
	if err := json.Unmarshal(plaintext, &sw); err != nil {
		return nil, envelope.ErrCorrupt
	}
	return fromSerialized(&sw, passphrase, s.seedPassphrase(passphrase), s.params)
}

// Save re-serializes and re-encrypts the wallet under its resident
// passphrase.
func (s *Store) Save(w *Wallet) error {
	name, plaintext, passphrase, err := w.Snapshot()
	if err != nil {
		return err
	}
	defer secret.Zeroize(plaintext)
	defer secret.Zeroize(passphrase)
	return s.WriteEncrypted(name, plaintext, passphrase)
}

// WriteEncrypted seals an already-serialized wallet payload and writes it.
// Used by the session keeper, which snapshots under the session mutex and
// encrypts outside it.
func (s *Store) WriteEncrypted(name string, plaintext, passphrase []byte) error {
	env, err := envelope.Encrypt(plaintext, passphrase)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "cannot marshal envelope")
	}
	path := s.filePath(name)
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return errors.Wrapf(err, "cannot write wallet file %s", path)
	}
	return nil
}

// Delete removes the wallet file.
func (s *Store) Delete(name string) error {
	path := s.filePath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return errors.Errorf("wallet %q not found", name)
	}
	return errors.Wrapf(os.Remove(path), "cannot delete wallet %q", name)
}

// List returns the stored wallet names, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read wallets directory")
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) nextWalletName() (string, error) {
	existing, err := s.List()
	if err != nil {
		return "", err
	}
	max := 0
	for _, name := range existing {
		ordinal, ok := strings.CutPrefix(name, "Wallet_")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(ordinal); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("Wallet_%d", max+1), nil
}

func (s *Store) filePath(name string) string {
	return filepath.Join(s.dir, SanitizeName(name)+".json")
}

// SanitizeName maps a wallet name onto a safe filename: [A-Za-z0-9_-] pass
// through, everything else becomes '_', then leading/trailing '_' are
// trimmed.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
