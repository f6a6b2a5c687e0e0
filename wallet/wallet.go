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

// Package wallet holds the in-memory wallet model and its encrypted
// persistence. Key material lives in zeroizing cells; dropping a wallet via
// Wipe cascades erasure through every cell.
package wallet

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pkg/errors"

	"github.com/satellion/satellion/crypto/secret"
	"github.com/satellion/satellion/log"
)

var logger = log.NewModuleLogger(log.Wallet)

// Chain tags the chain a wallet was last used on.
type Chain uint16

const (
	ChainBitcoin  Chain = 0
	ChainEthereum Chain = 1
)

// CurrentVersion is the wallet file schema version.
const CurrentVersion uint8 = 1

// Wallet is one unlocked (or freshly created) wallet.
type Wallet struct {
	Name          string
	LastUsedChain Chain
	CreatedAt     uint64
	Version       uint8

	// Mnemonic and Passphrase stay resident for re-encryption on state
	// change; both are wiped with the wallet.
	Mnemonic   *secret.Cell[[]byte]
	Passphrase *secret.Cell[[]byte]

	BTC *BitcoinData
	ETH *EthereumData
}

// New creates a wallet from a validated mnemonic. seedPassphrase is the
// BIP39 seed passphrase (possibly empty when the config omits it), while
// passphrase guards the on-disk envelope.
func New(name, mnemonic, passphrase, seedPassphrase string, params *chaincfg.Params) (*Wallet, error) {
	if err := ValidateMnemonic(mnemonic); err != nil {
		return nil, err
	}

	btcData, err := newBitcoinData(params, mnemonic, seedPassphrase)
	if err != nil {
		return nil, errors.Wrap(err, "cannot build bitcoin wallet data")
	}
	ethData, err := newEthereumData(mnemonic, seedPassphrase)
	if err != nil {
		btcData.Wipe()
		return nil, errors.Wrap(err, "cannot build ethereum wallet data")
	}

	return &Wallet{
		Name:          name,
		LastUsedChain: ChainBitcoin,
		CreatedAt:     uint64(time.Now().Unix()),
		Version:       CurrentVersion,
		Mnemonic:      secret.NewString(mnemonic),
		Passphrase:    secret.NewString(passphrase),
		BTC:           btcData,
		ETH:           ethData,
	}, nil
}

// Snapshot serializes the wallet and copies out its passphrase so the
// expensive encryption can run outside the session mutex. Both returned
// buffers contain secrets; the caller must zeroize them.
func (w *Wallet) Snapshot() (name string, plaintext, passphrase []byte, err error) {
	sw, err := w.toSerialized()
	if err != nil {
		return "", nil, nil, err
	}
	plaintext, err = marshalSerialized(sw)
	if err != nil {
		return "", nil, nil, err
	}
	err = w.Passphrase.Expose(func(b *[]byte) error {
		passphrase = append([]byte(nil), *b...)
		return nil
	})
	if err != nil {
		return "", nil, nil, errors.Wrap(err, "wallet passphrase is gone")
	}
	return w.Name, plaintext, passphrase, nil
}

// Wipe erases every secret the wallet holds.
func (w *Wallet) Wipe() {
	if w.Mnemonic != nil {
		w.Mnemonic.Wipe()
	}
	if w.Passphrase != nil {
		w.Passphrase.Wipe()
	}
	if w.BTC != nil {
		w.BTC.Wipe()
	}
	if w.ETH != nil {
		w.ETH.Wipe()
	}
}
