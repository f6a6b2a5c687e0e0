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
	"time"

	"github.com/satellion/satellion/btc/chainclient"
)

// SyncEvent flows from the sync engine's producers into the orchestrator.
// Concrete types: BlockHeaderEvent, NewUtxosEvent, ChainSyncedEvent,
// ReorganizedEvent.
// Events on distinct producer paths carry no cross-stream ordering: a UTXO
// may arrive before the header of its containing block.
type SyncEvent interface{ syncEvent() }

// BlockHeaderEvent asks for the header to be persisted.
type BlockHeaderEvent struct {
	Header chainclient.IndexedHeader
}

// NewUtxosEvent delivers the UTXOs extracted from one block.
type NewUtxosEvent struct {
	UTXOs []UTXO
}

// ChainSyncedEvent reports the completion of the initial sync cycle.
type ChainSyncedEvent struct {
	Result ChainSyncResult
}

// ReorganizedEvent replaces disconnected headers with the accepted branch.
type ReorganizedEvent struct {
	Accepted []chainclient.IndexedHeader
}

func (BlockHeaderEvent) syncEvent() {}
func (NewUtxosEvent) syncEvent()    {}
func (ChainSyncedEvent) syncEvent() {}
func (ReorganizedEvent) syncEvent() {}

// ChainSyncResult summarizes a completed filter sync.
type ChainSyncResult struct {
	Update  chainclient.SyncUpdate
	Elapsed time.Duration
}

const (
	syncEventChanSize = 4096
	scriptChanSize    = 1024
)

// Runtime carries the transient per-node-start channels of a wallet. It is
// recreated on every node start and never persisted.
type Runtime struct {
	// SyncEventCh feeds the orchestrator.
	SyncEventCh chan SyncEvent
	// ScriptCh feeds freshly derived scripts into the running scanner.
	ScriptCh chan DerivedScript
	// Result holds the last completed sync, for status reporting.
	Result *ChainSyncResult
}

func NewRuntime() *Runtime {
	return &Runtime{
		SyncEventCh: make(chan SyncEvent, syncEventChanSize),
		ScriptCh:    make(chan DerivedScript, scriptChanSize),
	}
}
