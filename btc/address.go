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

package btc

import (
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
)

// NewMasterKey turns a BIP39 mnemonic into the wallet's BIP32 root key.
func NewMasterKey(params *chaincfg.Params, mnemonic, passphrase string) (*hdkeychain.ExtendedKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	key, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, errors.Wrap(err, "cannot derive master key")
	}
	return key, nil
}

// DeriveKey walks the master key down the given path.
func DeriveKey(master *hdkeychain.ExtendedKey, path DerivePath) (*hdkeychain.ExtendedKey, error) {
	key := master
	for _, step := range path.ToSlice() {
		child, err := key.Derive(step)
		if err != nil {
			return nil, errors.Wrapf(err, "derivation failed at %s", path)
		}
		key = child
	}
	return key, nil
}

// DeriveTaprootAddress derives the BIP86 key-path-only taproot address at the
// given path, together with its output script.
func DeriveTaprootAddress(master *hdkeychain.ExtendedKey, params *chaincfg.Params, path DerivePath) (*btcutil.AddressTaproot, []byte, error) {
	child, err := DeriveKey(master, path)
	if err != nil {
		return nil, nil, err
	}
	defer child.Zero()

	priv, err := child.ECPrivKey()
	if err != nil {
		return nil, nil, errors.Wrap(err, "cannot extract private key")
	}
	defer priv.Zero()

	// BIP341 tweak with no script tree: key-path spend only.
	taprootKey := txscript.ComputeTaprootKeyNoScript(priv.PubKey())

	addr, err := btcutil.NewAddressTaproot(schnorr.SerializePubKey(taprootKey), params)
	if err != nil {
		return nil, nil, errors.Wrap(err, "cannot build taproot address")
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, nil, errors.Wrap(err, "cannot build output script")
	}
	return addr, script, nil
}
