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

// Package chainclient defines the boundary to the BIP157/158 P2P client.
// The sync engine consumes these notification types and interfaces only;
// the wire protocol behind them belongs to the underlying library.
package chainclient

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/gcs"
	"github.com/btcsuite/btcd/btcutil/gcs/builder"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// IndexedHeader is a block header annotated with its chain height.
type IndexedHeader struct {
	Height uint32
	Header wire.BlockHeader
}

// BlockHash is the hash of the carried header.
func (h *IndexedHeader) BlockHash() chainhash.Hash {
	return h.Header.BlockHash()
}

// IndexedBlock is a full block annotated with its chain height.
type IndexedBlock struct {
	Height uint32
	Block  *btcutil.Block
}

// IndexedFilter is a BIP158 basic filter for one block.
type IndexedFilter struct {
	Height    uint32
	BlockHash chainhash.Hash
	Filter    *gcs.Filter
}

// MatchAny probabilistically tests whether any of the given scripts is
// committed to by the block: false negatives never occur, false positives at
// the filter's ~1/M rate.
func (f *IndexedFilter) MatchAny(scripts [][]byte) (bool, error) {
	if f.Filter == nil || f.Filter.N() == 0 {
		return false, nil
	}
	key := builder.DeriveKey(&f.BlockHash)
	return f.Filter.MatchAny(key, scripts)
}

// SyncUpdate reports that the filter chain reached the given tip.
type SyncUpdate struct {
	Tip IndexedHeader
}

// Event is a chain notification. Concrete types: FiltersSynced, ChainUpdate,
// FilterEvent, BlockEvent.
type Event interface{ chainEvent() }

// FiltersSynced fires when every compact filter up to the tip has been
// downloaded and delivered.
type FiltersSynced struct {
	Update SyncUpdate
}

// ChainUpdate carries a header-chain change.
type ChainUpdate struct {
	Changes HeaderChanges
}

// FilterEvent delivers one indexed compact filter.
type FilterEvent struct {
	Filter IndexedFilter
}

// BlockEvent announces an unsolicited full block. Blocks of interest arrive
// through the Requester instead, so consumers ignore it.
type BlockEvent struct {
	Block IndexedBlock
}

func (FiltersSynced) chainEvent() {}
func (ChainUpdate) chainEvent()   {}
func (FilterEvent) chainEvent()   {}
func (BlockEvent) chainEvent()    {}

// HeaderChanges is a header-chain delta. Concrete types: Connected,
// Reorganized, ForkAdded.
type HeaderChanges interface{ headerChanges() }

// Connected extends the chain by one header.
type Connected struct {
	Header IndexedHeader
}

// Reorganized replaces recently connected headers with a better branch.
type Reorganized struct {
	Accepted     []IndexedHeader
	Disconnected []IndexedHeader
}

// ForkAdded records a stale branch header; consumers ignore it.
type ForkAdded struct {
	Header IndexedHeader
}

func (Connected) headerChanges()   {}
func (Reorganized) headerChanges() {}
func (ForkAdded) headerChanges()   {}

// Info is a non-chain progress notification. Concrete types: Progress,
// SuccessfulHandshake, ConnectionsMet, BlockReceived.
type Info interface{ chainInfo() }

// Progress reports filter-header download completion in percent.
type Progress struct {
	Percent float64
}

// SuccessfulHandshake reports a completed peer handshake.
type SuccessfulHandshake struct{ Peer string }

// ConnectionsMet reports that the required peer count is connected.
type ConnectionsMet struct{}

// BlockReceived reports an inbound block by hash.
type BlockReceived struct{ Hash chainhash.Hash }

func (Progress) chainInfo()            {}
func (SuccessfulHandshake) chainInfo() {}
func (ConnectionsMet) chainInfo()      {}
func (BlockReceived) chainInfo()       {}

// Warning is a non-fatal node condition worth surfacing to the user.
type Warning struct {
	Msg string
}
