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
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satellion/satellion/btc"
	"github.com/satellion/satellion/btc/chainclient"
	"github.com/satellion/satellion/session"
	"github.com/satellion/satellion/storage/database"
	"github.com/satellion/satellion/wallet"
)

// pipeline wires listener, scanner, downloader and orchestrator against a
// fake client, mirroring what the starter assembles.
type pipeline struct {
	client  *fakeClient
	req     *fakeRequester
	emitter *recordingEmitter
	headers database.HeaderDB
	keeper  *session.Keeper
	wallet  *wallet.Wallet
	scripts *btc.ScriptSet
	cancel  context.CancelFunc
	done    chan struct{}
}

func startPipeline(t *testing.T) *pipeline {
	t.Helper()
	keeper, w := newSessionKeeper(t)
	req := newFakeRequester()
	client := newFakeClient(req)
	emitter := &recordingEmitter{}
	headers := database.NewMemDB()

	runtime := btc.NewRuntime()
	w.BTC.Runtime = runtime
	scripts := btc.NewScriptSet()

	filterCh := make(chan chainclient.IndexedFilter, 64)
	downloader := NewBlockDownloader(req)
	scanner := NewCompactFilterScanner(scripts, downloader, filterCh, runtime.ScriptCh)
	listener := NewNodeListener(client, emitter, runtime.SyncEventCh, filterCh, downloader, scanner, 1)
	orchestrator := NewSyncOrchestrator(keeper, headers, emitter, runtime.SyncEventCh, scripts, runtime.ScriptCh)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		go scanner.Run(ctx)
		go orchestrator.Run(ctx)
		listener.Run(ctx)
	}()

	p := &pipeline{
		client:  client,
		req:     req,
		emitter: emitter,
		headers: headers,
		keeper:  keeper,
		wallet:  w,
		scripts: scripts,
		cancel:  cancel,
		done:    done,
	}
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("pipeline did not stop")
		}
	})
	return p
}

func (p *pipeline) installWatched(t *testing.T, script []byte, path btc.DerivePath) {
	t.Helper()
	p.scripts.Install(btc.DerivedScript{Script: script, Path: path})
}

func (p *pipeline) balance() btcutil.Amount {
	var total btcutil.Amount
	_ = p.keeper.WithWallet(func(w *wallet.Wallet) error {
		total = w.BTC.TotalBalance()
		return nil
	})
	return total
}

// End-to-end receive: a funded address yields exactly one UTXO with the
// right value and derivation path shortly after the confirming block.
func TestPipeline_EndToEndReceive(t *testing.T) {
	p := startPipeline(t)

	// Derive receive address index 0 the way the command surface does.
	var script []byte
	require.NoError(t, p.keeper.WithWallet(func(w *wallet.Wallet) error {
		_, s, err := w.BTC.DeriveAddress(regtestPath(0))
		script = s
		return err
	}))
	p.installWatched(t, script, regtestPath(0))

	// Fund it with 1.2 BTC confirmed at height 101.
	block, filter := buildBlock(t, 101, map[string]int64{string(script): 120_000_000})
	p.req.add(block)

	p.client.eventCh <- chainclient.ChainUpdate{Changes: chainclient.Connected{
		Header: chainclient.IndexedHeader{Height: 101, Header: block.Block.MsgBlock().Header},
	}}
	p.client.eventCh <- chainclient.FilterEvent{Filter: filter}
	p.client.eventCh <- chainclient.FiltersSynced{Update: chainclient.SyncUpdate{
		Tip: chainclient.IndexedHeader{Height: 101, Header: block.Block.MsgBlock().Header},
	}}

	require.Eventually(t, func() bool {
		synced := false
		_ = p.keeper.WithWallet(func(w *wallet.Wallet) error {
			synced = w.BTC.InitialSyncDone
			return nil
		})
		return synced && p.balance() == 120_000_000
	}, 3*time.Second, 10*time.Millisecond, "utxo and sync completion did not arrive within 3s")

	require.NoError(t, p.keeper.WithWallet(func(w *wallet.Wallet) error {
		utxos := w.BTC.UTXOs()
		require.Len(t, utxos, 1)
		assert.Equal(t, btcutil.Amount(120_000_000), utxos[0].Value)
		assert.Equal(t, "m/86'/1'/0'/0/0", utxos[0].DerivePath.String())
		assert.Equal(t, uint32(101), utxos[0].Block.Height)
		assert.True(t, w.BTC.InitialSyncDone)
		assert.Equal(t, uint32(101), w.BTC.CFilterScannerHeight)
		return nil
	}))

	// Terminal events fired exactly once.
	require.Eventually(t, func() bool { return len(p.emitter.completions()) == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, []uint32{101}, p.emitter.completions())
	assert.Equal(t, []btcutil.Amount{120_000_000}, p.emitter.utxos())

	// The header made it to the store.
	last, err := p.headers.LastHeader()
	require.NoError(t, err)
	assert.Equal(t, uint32(101), last.Height)
}

// The drain pipeline completes exactly once even when FiltersSynced fires
// repeatedly, and the tip block is always examined.
func TestPipeline_DrainCompletesExactlyOnce(t *testing.T) {
	p := startPipeline(t)

	watched := taprootScript(t, 1)
	p.installWatched(t, watched, regtestPath(0))

	tipBlock, _ := buildBlock(t, 50, map[string]int64{string(taprootScript(t, 2)): 1})
	p.req.add(tipBlock)
	tip := chainclient.IndexedHeader{Height: 50, Header: tipBlock.Block.MsgBlock().Header}

	for i := 0; i < 3; i++ {
		p.client.eventCh <- chainclient.FiltersSynced{Update: chainclient.SyncUpdate{Tip: tip}}
	}

	require.Eventually(t, func() bool { return len(p.emitter.completions()) >= 1 },
		3*time.Second, 10*time.Millisecond)
	// Give a would-be duplicate time to appear.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []uint32{50}, p.emitter.completions())
}

// UTXOs are deduplicated by (txid, vout) even when the same block is
// processed twice.
func TestPipeline_DuplicateBlocksDoNotDuplicateUTXOs(t *testing.T) {
	p := startPipeline(t)

	script := taprootScript(t, 5)
	p.installWatched(t, script, regtestPath(3))

	block, filter := buildBlock(t, 60, map[string]int64{string(script): 9_000})
	p.req.add(block)
	tip := chainclient.IndexedHeader{Height: 60, Header: block.Block.MsgBlock().Header}

	p.client.eventCh <- chainclient.FilterEvent{Filter: filter}
	p.client.eventCh <- chainclient.FilterEvent{Filter: filter}
	p.client.eventCh <- chainclient.FiltersSynced{Update: chainclient.SyncUpdate{Tip: tip}}

	require.Eventually(t, func() bool { return p.balance() == 9_000 },
		3*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, btcutil.Amount(9_000), p.balance(), "duplicate block inflated the balance")
}

// A reorg overwrites replaced heights and prunes orphans above the new tip.
func TestPipeline_ReorgPrunesOrphans(t *testing.T) {
	p := startPipeline(t)
	p.installWatched(t, taprootScript(t, 1), regtestPath(0))

	var headers []chainclient.IndexedHeader
	for h := uint32(1); h <= 5; h++ {
		block, _ := buildBlock(t, h, map[string]int64{string(taprootScript(t, byte(h))): 1})
		hdr := chainclient.IndexedHeader{Height: h, Header: block.Block.MsgBlock().Header}
		headers = append(headers, hdr)
		p.client.eventCh <- chainclient.ChainUpdate{Changes: chainclient.Connected{Header: hdr}}
	}
	require.Eventually(t, func() bool {
		last, err := p.headers.LastHeader()
		return err == nil && last.Height == 5
	}, 3*time.Second, 10*time.Millisecond)

	// A competing branch replaces heights 3-4; 5 becomes an orphan.
	replacementA, _ := buildBlock(t, 3, map[string]int64{string(taprootScript(t, 0xaa)): 1})
	replacementB, _ := buildBlock(t, 4, map[string]int64{string(taprootScript(t, 0xbb)): 1})
	p.client.eventCh <- chainclient.ChainUpdate{Changes: chainclient.Reorganized{
		Accepted: []chainclient.IndexedHeader{
			{Height: 3, Header: replacementA.Block.MsgBlock().Header},
			{Height: 4, Header: replacementB.Block.MsgBlock().Header},
		},
		Disconnected: headers[2:],
	}}

	require.Eventually(t, func() bool {
		last, err := p.headers.LastHeader()
		return err == nil && last.Height == 4
	}, 3*time.Second, 10*time.Millisecond)

	got, err := p.headers.ReadHeader(3)
	require.NoError(t, err)
	assert.Equal(t, replacementA.Block.MsgBlock().Header.MerkleRoot, got.Header.MerkleRoot)
	_, err = p.headers.ReadHeader(5)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

// Warnings from the client surface as UI warnings.
func TestPipeline_WarningsForwarded(t *testing.T) {
	p := startPipeline(t)
	p.client.warnCh <- chainclient.Warning{Msg: "peer misbehaving"}

	require.Eventually(t, func() bool {
		p.emitter.mu.Lock()
		defer p.emitter.mu.Unlock()
		return len(p.emitter.warnings) == 1 && p.emitter.warnings[0] == "peer misbehaving"
	}, time.Second, 5*time.Millisecond)
}
