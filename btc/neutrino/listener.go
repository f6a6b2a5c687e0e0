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
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/satellion/satellion/btc"
	"github.com/satellion/satellion/btc/chainclient"
)

// EventEmitter is the outbound UI notification surface the sync engine
// drives. Throttling of repetitive events is the implementation's concern.
type EventEmitter interface {
	HeightProgress(height uint32)
	HeightCompleted(height uint32)
	SyncProgress(pct float64)
	SyncWarning(msg string)
	NewUtxo(value, totalBalance btcutil.Amount)
}

// NodeListener demultiplexes the P2P client's three notification streams
// into sync events, filter deliveries and UI updates.
type NodeListener struct {
	client      chainclient.Client
	emitter     EventEmitter
	syncEventCh chan<- btc.SyncEvent
	filterCh    chan<- chainclient.IndexedFilter

	downloader  *BlockDownloader
	scanner     *CompactFilterScanner
	resultCh    chan *chainclient.IndexedBlock
	concurrency int64

	drainStarted atomic.Bool
	startTime    time.Time
}

func NewNodeListener(
	client chainclient.Client,
	emitter EventEmitter,
	syncEventCh chan<- btc.SyncEvent,
	filterCh chan<- chainclient.IndexedFilter,
	downloader *BlockDownloader,
	scanner *CompactFilterScanner,
	concurrency int64,
) *NodeListener {
	return &NodeListener{
		client:      client,
		emitter:     emitter,
		syncEventCh: syncEventCh,
		filterCh:    filterCh,
		downloader:  downloader,
		scanner:     scanner,
		resultCh:    make(chan *chainclient.IndexedBlock, 256),
		concurrency: concurrency,
		startTime:   time.Now(),
	}
}

// Run consumes the client's streams until they close or the context ends.
func (l *NodeListener) Run(ctx context.Context) {
	events, infos, warnings := l.client.Events(), l.client.Infos(), l.client.Warnings()
	defer close(l.filterCh)

	for events != nil || infos != nil || warnings != nil {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			l.handleEvent(ctx, ev)
		case info, ok := <-infos:
			if !ok {
				infos = nil
				continue
			}
			l.handleInfo(info)
		case warning, ok := <-warnings:
			if !ok {
				warnings = nil
				continue
			}
			logger.Warn("chain client warning", "msg", warning.Msg)
			l.emitter.SyncWarning(warning.Msg)
		}
	}
	logger.Info("node listener streams closed, stopping")
}

func (l *NodeListener) handleEvent(ctx context.Context, ev chainclient.Event) {
	switch e := ev.(type) {
	case chainclient.FiltersSynced:
		l.handleFiltersSynced(ctx, e.Update)
	case chainclient.ChainUpdate:
		l.handleChainUpdate(ctx, e.Changes)
	case chainclient.FilterEvent:
		select {
		case l.filterCh <- e.Filter:
		case <-ctx.Done():
		}
	case chainclient.BlockEvent:
		// Blocks of interest arrive through the downloader.
	}
}

func (l *NodeListener) handleFiltersSynced(ctx context.Context, update chainclient.SyncUpdate) {
	elapsed := time.Since(l.startTime)
	logger.Info("compact filters synced", "height", update.Tip.Height, "elapsed", elapsed)

	// The tip block is always examined, even when its filter matched
	// nothing, so the drain pipeline has a guaranteed terminal block.
	if err := l.downloader.QueueBlock(update.Tip.BlockHash()); err != nil {
		logger.Error("cannot queue tip block", "err", err)
	}

	if l.drainStarted.CompareAndSwap(false, true) {
		l.startBlockDrain(ctx, update, elapsed)
	}
}

// startBlockDrain launches the downloader and its single consumer. The
// consumer emits the terminal sync events the first time the tip block
// passes through, then keeps scanning post-sync blocks until shutdown.
func (l *NodeListener) startBlockDrain(ctx context.Context, update chainclient.SyncUpdate, elapsed time.Duration) {
	logger.Info("starting block drain pipeline", "tip", update.Tip.Height)
	l.downloader.Spawn(ctx, l.concurrency, l.resultCh)

	go func() {
		completed := false
		processed := 0
		for block := range l.resultCh {
			processed++
			utxos := l.scanner.ExtractUTXOs(block)
			logger.Debug("processed block", "height", block.Height, "utxos", len(utxos))
			if len(utxos) > 0 {
				l.sendSyncEvent(ctx, btc.NewUtxosEvent{UTXOs: utxos})
			}

			if !completed && block.Height == update.Tip.Height {
				completed = true
				logger.Info("block drain reached tip", "height", block.Height, "processed", processed)
				l.sendSyncEvent(ctx, btc.ChainSyncedEvent{Result: btc.ChainSyncResult{
					Update:  update,
					Elapsed: elapsed,
				}})
				l.emitter.HeightCompleted(update.Tip.Height)
				l.emitter.SyncProgress(100)
			}
		}
		logger.Info("block drain pipeline terminated", "processed", processed)
	}()
}

func (l *NodeListener) handleChainUpdate(ctx context.Context, changes chainclient.HeaderChanges) {
	switch c := changes.(type) {
	case chainclient.Connected:
		l.sendSyncEvent(ctx, btc.BlockHeaderEvent{Header: c.Header})
		l.emitter.HeightProgress(c.Header.Height)
	case chainclient.Reorganized:
		if len(c.Accepted) == 0 {
			return
		}
		l.sendSyncEvent(ctx, btc.ReorganizedEvent{Accepted: c.Accepted})
		l.emitter.HeightProgress(c.Accepted[len(c.Accepted)-1].Height)
	case chainclient.ForkAdded:
		// Stale branches are irrelevant to the wallet.
	}
}

func (l *NodeListener) handleInfo(info chainclient.Info) {
	switch i := info.(type) {
	case chainclient.Progress:
		if i.Percent != 0 {
			l.emitter.SyncProgress(i.Percent)
		}
	case chainclient.SuccessfulHandshake:
		logger.Debug("peer handshake completed", "peer", i.Peer)
	case chainclient.ConnectionsMet:
		logger.Debug("required peer connections met")
	case chainclient.BlockReceived:
		logger.Debug("block received", "hash", i.Hash)
	}
}

func (l *NodeListener) sendSyncEvent(ctx context.Context, ev btc.SyncEvent) {
	select {
	case l.syncEventCh <- ev:
	case <-ctx.Done():
	}
}
