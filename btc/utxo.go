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
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// BlockMeta locates the block a UTXO was found in.
type BlockMeta struct {
	Hash   chainhash.Hash
	Height uint32
}

// UTXO is one unspent output paying to a wallet-owned script.
type UTXO struct {
	TxID       chainhash.Hash
	Vout       uint32
	Value      btcutil.Amount
	PkScript   []byte
	DerivePath DerivePath
	Block      BlockMeta
}

// OutPoint is the wallet-wide identity of the UTXO.
func (u *UTXO) OutPoint() wire.OutPoint {
	return wire.OutPoint{Hash: u.TxID, Index: u.Vout}
}
