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
	"encoding/hex"
	"encoding/json"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"

	"github.com/satellion/satellion/btc"
)

// serializedWallet is the plaintext JSON payload sealed inside the envelope.
type serializedWallet struct {
	Name          string             `json:"name"`
	Mnemonic      string             `json:"mnemonic"`
	Bitcoin       serializedBitcoin  `json:"bitcoin_data"`
	Ethereum      serializedEthereum `json:"ethereum_data"`
	LastUsedChain uint16             `json:"last_used_chain"`
	CreatedAt     uint64             `json:"created_at"`
	Version       uint8              `json:"version"`
}

type serializedBitcoin struct {
	InitialSyncDone      bool               `json:"initial_sync_done"`
	CFilterScannerHeight uint32             `json:"cfilter_scanner_height"`
	DerivedChildren      []serializedChild  `json:"derived_children"`
	UTXOs                []serializedUTXO   `json:"utxos"`
}

type serializedChild struct {
	Label string             `json:"label"`
	Path  btc.DerivePathSlice `json:"derive_path"`
}

type serializedUTXO struct {
	TxID        string              `json:"txid"`
	Vout        uint32              `json:"vout"`
	Value       int64               `json:"value"`
	PkScript    string              `json:"script_pubkey"`
	DerivePath  btc.DerivePathSlice `json:"derive_path"`
	BlockHash   string              `json:"block_hash"`
	BlockHeight uint32              `json:"block_height"`
}

type serializedEthereum struct {
	TrackedTokens []Token `json:"tracked_tokens"`
}

func marshalSerialized(sw *serializedWallet) ([]byte, error) {
	payload, err := json.Marshal(sw)
	if err != nil {
		return nil, errors.Wrap(err, "cannot marshal wallet")
	}
	return payload, nil
}

func (w *Wallet) toSerialized() (*serializedWallet, error) {
	var mnemonic string
	if err := w.Mnemonic.Expose(func(b *[]byte) error {
		mnemonic = string(*b)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "wallet mnemonic is gone")
	}

	sw := &serializedWallet{
		Name:          w.Name,
		Mnemonic:      mnemonic,
		LastUsedChain: uint16(w.LastUsedChain),
		CreatedAt:     w.CreatedAt,
		Version:       w.Version,
		Ethereum:      serializedEthereum{TrackedTokens: w.ETH.TrackedTokens},
	}

	sw.Bitcoin = serializedBitcoin{
		InitialSyncDone:      w.BTC.InitialSyncDone,
		CFilterScannerHeight: w.BTC.CFilterScannerHeight,
	}
	for _, child := range w.BTC.DerivedChildren {
		sw.Bitcoin.DerivedChildren = append(sw.Bitcoin.DerivedChildren, serializedChild{
			Label: child.Label,
			Path:  child.Path.ToSlice(),
		})
	}
	for _, u := range w.BTC.UTXOs() {
		sw.Bitcoin.UTXOs = append(sw.Bitcoin.UTXOs, serializedUTXO{
			TxID:        u.TxID.String(),
			Vout:        u.Vout,
			Value:       int64(u.Value),
			PkScript:    hex.EncodeToString(u.PkScript),
			DerivePath:  u.DerivePath.ToSlice(),
			BlockHash:   u.Block.Hash.String(),
			BlockHeight: u.Block.Height,
		})
	}
	return sw, nil
}

func fromSerialized(sw *serializedWallet, passphrase, seedPassphrase string, params *chaincfg.Params) (*Wallet, error) {
	w, err := New(sw.Name, sw.Mnemonic, passphrase, seedPassphrase, params)
	if err != nil {
		return nil, err
	}
	w.LastUsedChain = Chain(sw.LastUsedChain)
	w.CreatedAt = sw.CreatedAt
	w.Version = sw.Version
	w.ETH.TrackedTokens = sw.Ethereum.TrackedTokens

	w.BTC.InitialSyncDone = sw.Bitcoin.InitialSyncDone
	w.BTC.CFilterScannerHeight = sw.Bitcoin.CFilterScannerHeight
	for _, child := range sw.Bitcoin.DerivedChildren {
		path, err := btc.DerivePathFromSlice(child.Path)
		if err != nil {
			w.Wipe()
			return nil, errors.Wrapf(err, "bad derive path on child %q", child.Label)
		}
		w.BTC.DerivedChildren = append(w.BTC.DerivedChildren, btc.LabeledPath{Label: child.Label, Path: path})
	}

	utxos := make([]btc.UTXO, 0, len(sw.Bitcoin.UTXOs))
	for _, su := range sw.Bitcoin.UTXOs {
		u, err := su.toModel()
		if err != nil {
			w.Wipe()
			return nil, err
		}
		utxos = append(utxos, u)
	}
	w.BTC.InsertUTXOs(utxos)
	return w, nil
}

func (su *serializedUTXO) toModel() (btc.UTXO, error) {
	txid, err := chainhash.NewHashFromStr(su.TxID)
	if err != nil {
		return btc.UTXO{}, errors.Wrapf(err, "bad txid %q", su.TxID)
	}
	blockHash, err := chainhash.NewHashFromStr(su.BlockHash)
	if err != nil {
		return btc.UTXO{}, errors.Wrapf(err, "bad block hash %q", su.BlockHash)
	}
	script, err := hex.DecodeString(su.PkScript)
	if err != nil {
		return btc.UTXO{}, errors.Wrap(err, "bad script encoding")
	}
	path, err := btc.DerivePathFromSlice(su.DerivePath)
	if err != nil {
		return btc.UTXO{}, errors.Wrap(err, "bad utxo derive path")
	}
	return btc.UTXO{
		TxID:       *txid,
		Vout:       su.Vout,
		Value:      btcutil.Amount(su.Value),
		PkScript:   script,
		DerivePath: path,
		Block:      btc.BlockMeta{Hash: *blockHash, Height: su.BlockHeight},
	}, nil
}
