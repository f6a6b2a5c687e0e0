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
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"

	"github.com/satellion/satellion/btc"
	"github.com/satellion/satellion/crypto/secret"
)

// Script window defaults: how many receive and change scripts are derived
// ahead of use, and how close to the window top a hit must land to extend it.
const (
	ReceiveLookahead = 1000
	ChangeLookahead  = 100
	GapLimit         = 20
)

// BitcoinData is the per-wallet Bitcoin chain state.
type BitcoinData struct {
	InitialSyncDone      bool
	CFilterScannerHeight uint32
	DerivedChildren      []btc.LabeledPath

	utxos map[wire.OutPoint]btc.UTXO

	params *chaincfg.Params
	xprv   *secret.Cell[hdkeychain.ExtendedKey]

	// Runtime holds the per-node-start channels and last sync result;
	// recreated by the node lifecycle on every start, nil before the first
	// start and left in place when the node stops.
	Runtime *btc.Runtime
}

func newBitcoinData(params *chaincfg.Params, mnemonic, seedPassphrase string) (*BitcoinData, error) {
	master, err := btc.NewMasterKey(params, mnemonic, seedPassphrase)
	if err != nil {
		return nil, err
	}
	return &BitcoinData{
		params: params,
		xprv:   secret.NewCell(master, func(k *hdkeychain.ExtendedKey) { k.Zero() }),
		utxos:  make(map[wire.OutPoint]btc.UTXO),
	}, nil
}

func (d *BitcoinData) Wipe() {
	if d.xprv != nil {
		d.xprv.Wipe()
	}
}

// Params is the network the wallet's keys were derived on.
func (d *BitcoinData) Params() *chaincfg.Params { return d.params }

// DeriveAddress derives the taproot address at the given path.
func (d *BitcoinData) DeriveAddress(path btc.DerivePath) (*btcutil.AddressTaproot, []byte, error) {
	var (
		addr   *btcutil.AddressTaproot
		script []byte
	)
	err := d.xprv.Expose(func(master *hdkeychain.ExtendedKey) error {
		var derr error
		addr, script, derr = btc.DeriveTaprootAddress(master, d.params, path)
		return derr
	})
	if err != nil {
		return nil, nil, err
	}
	return addr, script, nil
}

// DeriveChild derives a labeled receive address and records it on the wallet.
func (d *BitcoinData) DeriveChild(label string, index uint32) (*btcutil.AddressTaproot, error) {
	path := btc.NewDerivePath(d.params, 0, btc.ChangeExternal, index)
	addr, _, err := d.DeriveAddress(path)
	if err != nil {
		return nil, err
	}
	d.DerivedChildren = append(d.DerivedChildren, btc.LabeledPath{Label: label, Path: path})
	return addr, nil
}

// UnoccupiedIndex returns the first receive index with no recorded child.
func (d *BitcoinData) UnoccupiedIndex() uint32 {
	used := make(map[uint32]bool, len(d.DerivedChildren))
	for _, child := range d.DerivedChildren {
		if child.Path.Change == btc.ChangeExternal {
			used[child.Path.Index] = true
		}
	}
	for i := uint32(0); ; i++ {
		if !used[i] {
			return i
		}
	}
}

// DeriveWindow derives count scripts on the given chain starting at from.
func (d *BitcoinData) DeriveWindow(change btc.Change, from, count uint32) ([]btc.DerivedScript, error) {
	out := make([]btc.DerivedScript, 0, count)
	err := d.xprv.Expose(func(master *hdkeychain.ExtendedKey) error {
		for i := from; i < from+count; i++ {
			path := btc.NewDerivePath(d.params, 0, change, i)
			_, script, derr := btc.DeriveTaprootAddress(master, d.params, path)
			if derr != nil {
				return errors.Wrapf(derr, "window derivation stopped at index %d", i)
			}
			out = append(out, btc.DerivedScript{Script: script, Path: path})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ScriptsOfInterest derives the initial watch window: receive plus change
// scripts up to the configured lookaheads.
func (d *BitcoinData) ScriptsOfInterest() ([]btc.DerivedScript, error) {
	receive, err := d.DeriveWindow(btc.ChangeExternal, 0, ReceiveLookahead)
	if err != nil {
		return nil, err
	}
	change, err := d.DeriveWindow(btc.ChangeInternal, 0, ChangeLookahead)
	if err != nil {
		return nil, err
	}
	return append(receive, change...), nil
}

// InsertUTXOs adds the given UTXOs, deduplicating by (txid, vout), and
// returns the ones that were actually new.
func (d *BitcoinData) InsertUTXOs(utxos []btc.UTXO) []btc.UTXO {
	added := make([]btc.UTXO, 0, len(utxos))
	for _, u := range utxos {
		op := u.OutPoint()
		if _, dup := d.utxos[op]; dup {
			continue
		}
		d.utxos[op] = u
		added = append(added, u)
	}
	return added
}

// UTXOs returns the tracked set ordered by block height, then outpoint.
func (d *BitcoinData) UTXOs() []btc.UTXO {
	out := make([]btc.UTXO, 0, len(d.utxos))
	for _, u := range d.utxos {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Block.Height != out[j].Block.Height {
			return out[i].Block.Height < out[j].Block.Height
		}
		if out[i].TxID != out[j].TxID {
			return out[i].TxID.String() < out[j].TxID.String()
		}
		return out[i].Vout < out[j].Vout
	})
	return out
}

// TotalBalance is the sum of all tracked UTXO values.
func (d *BitcoinData) TotalBalance() btcutil.Amount {
	var total btcutil.Amount
	for _, u := range d.utxos {
		total += u.Value
	}
	return total
}
