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

	"github.com/rcrowley/go-metrics"

	"github.com/satellion/satellion/btc"
	"github.com/satellion/satellion/session"
	"github.com/satellion/satellion/storage/database"
	"github.com/satellion/satellion/wallet"
)

var utxoInsertedCounter = metrics.NewRegisteredCounter("neutrino/orchestrator/utxos", nil)

// SyncOrchestrator is the single consumer of the sync-event channel: it
// reconciles headers, UTXO discoveries and sync completion into wallet and
// store state. Events across producers are unordered; every handler
// tolerates that.
type SyncOrchestrator struct {
	keeper   *session.Keeper
	headerDB database.HeaderDB
	emitter  EventEmitter

	syncEventCh <-chan btc.SyncEvent
	scripts     *btc.ScriptSet
	scriptCh    chan<- btc.DerivedScript
}

func NewSyncOrchestrator(
	keeper *session.Keeper,
	headerDB database.HeaderDB,
	emitter EventEmitter,
	syncEventCh <-chan btc.SyncEvent,
	scripts *btc.ScriptSet,
	scriptCh chan<- btc.DerivedScript,
) *SyncOrchestrator {
	return &SyncOrchestrator{
		keeper:      keeper,
		headerDB:    headerDB,
		emitter:     emitter,
		syncEventCh: syncEventCh,
		scripts:     scripts,
		scriptCh:    scriptCh,
	}
}

// Run consumes sync events until the channel closes or the context ends.
// Individual handler failures are logged; the sync is best-effort and
// resumable.
func (o *SyncOrchestrator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-o.syncEventCh:
			if !ok {
				logger.Info("sync event channel closed, orchestrator stopping")
				return
			}
			if err := o.handle(ctx, ev); err != nil {
				logger.Error("sync event handling failed", "err", err)
			}
		}
	}
}

func (o *SyncOrchestrator) handle(ctx context.Context, ev btc.SyncEvent) error {
	switch e := ev.(type) {
	case btc.BlockHeaderEvent:
		logger.Debug("new block header", "height", e.Header.Height)
		if err := o.headerDB.WriteHeader(&e.Header); err != nil {
			logger.Error("cannot persist block header", "height", e.Header.Height, "err", err)
		}
		return nil

	case btc.ReorganizedEvent:
		return o.handleReorg(e)

	case btc.NewUtxosEvent:
		return o.handleNewUtxos(ctx, e.UTXOs)

	case btc.ChainSyncedEvent:
		logger.Info("chain synced", "height", e.Result.Update.Tip.Height, "elapsed", e.Result.Elapsed)
		return o.keeper.MutateBTC(func(d *wallet.BitcoinData) error {
			d.CFilterScannerHeight = e.Result.Update.Tip.Height
			d.InitialSyncDone = true
			if d.Runtime != nil {
				result := e.Result
				d.Runtime.Result = &result
			}
			return nil
		})

	default:
		return nil
	}
}

// handleReorg overwrites the disconnected heights with the accepted branch
// and prunes anything the store still holds above the new tip, so no orphan
// row stays visible.
func (o *SyncOrchestrator) handleReorg(e btc.ReorganizedEvent) error {
	if len(e.Accepted) == 0 {
		return nil
	}
	for i := range e.Accepted {
		if err := o.headerDB.WriteHeader(&e.Accepted[i]); err != nil {
			logger.Error("cannot persist reorged header", "height", e.Accepted[i].Height, "err", err)
		}
	}
	tip := e.Accepted[len(e.Accepted)-1].Height
	logger.Warn("chain reorganized", "accepted", len(e.Accepted), "tip", tip)
	if err := o.headerDB.PruneAbove(tip); err != nil {
		logger.Error("cannot prune orphan headers", "above", tip, "err", err)
	}
	return nil
}

func (o *SyncOrchestrator) handleNewUtxos(ctx context.Context, utxos []btc.UTXO) error {
	if len(utxos) == 0 {
		return nil
	}
	var (
		added     []btc.UTXO
		extension []btc.DerivedScript
	)
	err := o.keeper.MutateBTC(func(d *wallet.BitcoinData) error {
		added = d.InsertUTXOs(utxos)
		for _, u := range added {
			o.emitter.NewUtxo(u.Value, d.TotalBalance())
		}
		var derr error
		extension, derr = o.extendWindows(d, added)
		return derr
	})
	if err != nil {
		return err
	}
	utxoInsertedCounter.Inc(int64(len(added)))

	for _, script := range extension {
		select {
		case o.scriptCh <- script:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// extendWindows keeps the gap limit ahead of the highest used index on each
// chain by deriving fresh scripts for the scanner.
func (o *SyncOrchestrator) extendWindows(d *wallet.BitcoinData, added []btc.UTXO) ([]btc.DerivedScript, error) {
	var out []btc.DerivedScript
	for _, u := range added {
		change := u.DerivePath.Change
		target := u.DerivePath.Index + wallet.GapLimit
		max := o.scripts.MaxIndex(change)
		if target <= max {
			continue
		}
		scripts, err := d.DeriveWindow(change, max+1, target-max)
		if err != nil {
			return out, err
		}
		out = append(out, scripts...)
	}
	return out, nil
}
