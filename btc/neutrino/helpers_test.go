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

package neutrino

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/gcs/builder"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/satellion/satellion/btc/chainclient"
	"github.com/satellion/satellion/session"
	"github.com/satellion/satellion/wallet"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// fakeRequester serves blocks from memory, optionally failing the first
// failures[hash] attempts.
type fakeRequester struct {
	mu       sync.Mutex
	blocks   map[chainhash.Hash]*chainclient.IndexedBlock
	failures map[chainhash.Hash]int
	inFlight int
	maxSeen  int
	delay    time.Duration
}

func newFakeRequester() *fakeRequester {
	return &fakeRequester{
		blocks:   make(map[chainhash.Hash]*chainclient.IndexedBlock),
		failures: make(map[chainhash.Hash]int),
	}
}

func (r *fakeRequester) add(block *chainclient.IndexedBlock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks[*block.Block.Hash()] = block
}

func (r *fakeRequester) failFirst(hash chainhash.Hash, times int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[hash] = times
}

func (r *fakeRequester) maxConcurrent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxSeen
}

func (r *fakeRequester) GetBlock(ctx context.Context, hash chainhash.Hash) (*chainclient.IndexedBlock, error) {
	r.mu.Lock()
	r.inFlight++
	if r.inFlight > r.maxSeen {
		r.maxSeen = r.inFlight
	}
	delay := r.delay
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			r.mu.Lock()
			r.inFlight--
			r.mu.Unlock()
			return nil, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight--
	if remaining := r.failures[hash]; remaining > 0 {
		r.failures[hash] = remaining - 1
		return nil, errors.New("simulated fetch failure")
	}
	block, ok := r.blocks[hash]
	if !ok {
		return nil, errors.Errorf("unknown block %s", hash)
	}
	return block, nil
}

// fakeClient feeds scripted notifications into the listener and doubles as
// the node whose Run blocks until cancellation.
type fakeClient struct {
	eventCh chan chainclient.Event
	infoCh  chan chainclient.Info
	warnCh  chan chainclient.Warning
	req     *fakeRequester
}

func newFakeClient(req *fakeRequester) *fakeClient {
	return &fakeClient{
		eventCh: make(chan chainclient.Event, 256),
		infoCh:  make(chan chainclient.Info, 64),
		warnCh:  make(chan chainclient.Warning, 16),
		req:     req,
	}
}

func (c *fakeClient) Events() <-chan chainclient.Event     { return c.eventCh }
func (c *fakeClient) Infos() <-chan chainclient.Info       { return c.infoCh }
func (c *fakeClient) Warnings() <-chan chainclient.Warning { return c.warnCh }
func (c *fakeClient) Requester() chainclient.Requester     { return c.req }

func (c *fakeClient) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// recordingEmitter captures every UI event for assertions.
type recordingEmitter struct {
	mu             sync.Mutex
	progressHeights []uint32
	completedHeights []uint32
	progressPcts   []float64
	warnings       []string
	utxoValues     []btcutil.Amount
	totals         []btcutil.Amount
}

func (e *recordingEmitter) HeightProgress(h uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progressHeights = append(e.progressHeights, h)
}

func (e *recordingEmitter) HeightCompleted(h uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.completedHeights = append(e.completedHeights, h)
}

func (e *recordingEmitter) SyncProgress(pct float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progressPcts = append(e.progressPcts, pct)
}

func (e *recordingEmitter) SyncWarning(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.warnings = append(e.warnings, msg)
}

func (e *recordingEmitter) NewUtxo(value, total btcutil.Amount) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.utxoValues = append(e.utxoValues, value)
	e.totals = append(e.totals, total)
}

func (e *recordingEmitter) completions() []uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]uint32(nil), e.completedHeights...)
}

func (e *recordingEmitter) utxos() []btcutil.Amount {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]btcutil.Amount(nil), e.utxoValues...)
}

// buildBlock assembles a block paying the given amounts to the given
// scripts, one output per script, plus a BIP158 basic filter for it.
func buildBlock(t *testing.T, height uint32, payments map[string]int64) (*chainclient.IndexedBlock, chainclient.IndexedFilter) {
	t.Helper()

	msg := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:   2,
			Timestamp: time.Unix(1700000000+int64(height), 0),
			Bits:      0x207fffff,
			Nonce:     height,
		},
	}
	var prev chainhash.Hash
	prev[0] = byte(height - 1)
	msg.Header.PrevBlock = prev

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.OutPoint{Index: 0xffffffff}})
	for script, value := range payments {
		tx.AddTxOut(&wire.TxOut{Value: value, PkScript: []byte(script)})
	}
	msg.AddTransaction(tx)

	block := btcutil.NewBlock(msg)
	block.SetHeight(int32(height))

	filter, err := builder.BuildBasicFilter(msg, nil)
	require.NoError(t, err)

	return &chainclient.IndexedBlock{Height: height, Block: block},
		chainclient.IndexedFilter{
			Height:    height,
			BlockHash: *block.Hash(),
			Filter:    filter,
		}
}

// newSessionKeeper builds a keeper with an unlocked regtest wallet.
func newSessionKeeper(t *testing.T) (*session.Keeper, *wallet.Wallet) {
	t.Helper()
	store := wallet.NewStore(t.TempDir(), &chaincfg.RegressionNetParams, false)
	w, err := store.Create("test_wallet", testMnemonic, "1111")
	require.NoError(t, err)
	keeper := session.NewKeeper(store, nil)
	keeper.Set(session.New(w))
	return keeper, w
}
