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

	"github.com/btcsuite/btcd/btcutil"
	"github.com/rcrowley/go-metrics"

	"github.com/satellion/satellion/btc"
	"github.com/satellion/satellion/btc/chainclient"
)

var (
	filtersScannedMeter = metrics.NewRegisteredMeter("neutrino/scanner/filters", nil)
	filterHitCounter    = metrics.NewRegisteredCounter("neutrino/scanner/hits", nil)
)

// CompactFilterScanner tests incoming compact filters against the wallet's
// script set and queues matching blocks for download.
type CompactFilterScanner struct {
	scripts    *btc.ScriptSet
	downloader *BlockDownloader

	filterCh <-chan chainclient.IndexedFilter
	scriptCh <-chan btc.DerivedScript
}

func NewCompactFilterScanner(
	scripts *btc.ScriptSet,
	downloader *BlockDownloader,
	filterCh <-chan chainclient.IndexedFilter,
	scriptCh <-chan btc.DerivedScript,
) *CompactFilterScanner {
	return &CompactFilterScanner{
		scripts:    scripts,
		downloader: downloader,
		filterCh:   filterCh,
		scriptCh:   scriptCh,
	}
}

// Run consumes filters and fresh scripts until both inputs are gone or the
// context is cancelled.
func (s *CompactFilterScanner) Run(ctx context.Context) {
	filterCh, scriptCh := s.filterCh, s.scriptCh
	for filterCh != nil || scriptCh != nil {
		select {
		case <-ctx.Done():
			return
		case filter, ok := <-filterCh:
			if !ok {
				filterCh = nil
				continue
			}
			s.handleFilter(filter)
		case script, ok := <-scriptCh:
			if !ok {
				scriptCh = nil
				continue
			}
			s.scripts.Install(script)
		}
	}
	logger.Info("filter scanner input closed, stopping")
}

func (s *CompactFilterScanner) handleFilter(filter chainclient.IndexedFilter) {
	filtersScannedMeter.Mark(1)

	if s.scripts.Len() == 0 {
		logger.Error("filter scanner has no scripts of interest", "height", filter.Height)
		return
	}

	matched, err := filter.MatchAny(s.scripts.Scripts())
	if err != nil {
		logger.Error("filter match failed", "height", filter.Height, "err", err)
		return
	}
	if !matched {
		return
	}

	filterHitCounter.Inc(1)
	logger.Debug("filter hit", "height", filter.Height, "block", filter.BlockHash)
	if err := s.downloader.QueueBlock(filter.BlockHash); err != nil {
		logger.Error("cannot queue matched block", "block", filter.BlockHash, "err", err)
	}
}

// ExtractUTXOs walks a downloaded block and collects every output paying to
// a watched script.
func (s *CompactFilterScanner) ExtractUTXOs(block *chainclient.IndexedBlock) []btc.UTXO {
	var utxos []btc.UTXO
	for _, tx := range block.Block.Transactions() {
		txid := *tx.Hash()
		for vout, out := range tx.MsgTx().TxOut {
			path, ok := s.scripts.Lookup(out.PkScript)
			if !ok {
				continue
			}
			utxos = append(utxos, btc.UTXO{
				TxID:       txid,
				Vout:       uint32(vout),
				Value:      btcutil.Amount(out.Value),
				PkScript:   append([]byte(nil), out.PkScript...),
				DerivePath: path,
				Block: btc.BlockMeta{
					Hash:   *block.Block.Hash(),
					Height: block.Height,
				},
			})
		}
	}
	return utxos
}
