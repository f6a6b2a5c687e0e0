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

package chainclient

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/walletdb"
	_ "github.com/btcsuite/btcwallet/walletdb/bdb" // driver registration
	"github.com/lightninglabs/neutrino"
	"github.com/pkg/errors"

	"github.com/satellion/satellion/log"
)

var logger = log.NewModuleLogger(log.ChainClient)

const (
	mainnetDNSSeed = "seed.bitcoin.sipa.be"

	dbOpenTimeout = 10 * time.Second
	pollInterval  = 500 * time.Millisecond
	tipInterval   = 2 * time.Second
)

// Connect builds the neutrino-backed node and client pair. The checkpoint,
// when present, is the last header the wallet has already scanned; filters
// are streamed from the following height.
func Connect(cfg Config, params *chaincfg.Params, checkpoint *IndexedHeader) (Node, Client, error) {
	peers, err := selectPeers(cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("connecting chain client", "network", params.Name, "peers", len(peers))

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, nil, errors.Wrap(err, "cannot create chain data dir")
	}
	db, err := walletdb.Create("bdb", filepath.Join(cfg.DataDir, "neutrino.db"), true, dbOpenTimeout)
	if err != nil {
		return nil, nil, errors.Wrap(err, "cannot open chain database")
	}

	cs, err := neutrino.NewChainService(neutrino.Config{
		DataDir:      cfg.DataDir,
		Database:     db,
		ChainParams:  *params,
		ConnectPeers: peers,
	})
	if err != nil {
		db.Close()
		return nil, nil, errors.Wrap(ErrPeerUnavailable, err.Error())
	}

	n := &neutrinoNode{
		cs:         cs,
		db:         db,
		checkpoint: checkpoint,
		required:   int(cfg.RequiredPeers),
		eventCh:    make(chan Event, 1024),
		infoCh:     make(chan Info, 256),
		warnCh:     make(chan Warning, 64),
	}
	return n, n, nil
}

func selectPeers(cfg Config) ([]string, error) {
	if cfg.Regtest {
		return []string{cfg.RegtestPeer}, nil
	}
	addrs, err := net.LookupHost(mainnetDNSSeed)
	if err != nil {
		return nil, errors.Wrapf(ErrPeerUnavailable, "dns seed lookup failed: %v", err)
	}
	peers := make([]string, 0, len(addrs))
	for _, a := range addrs {
		peers = append(peers, net.JoinHostPort(a, "8333"))
	}
	return peers, nil
}

// neutrinoNode adapts neutrino's pull-style API onto the push-style
// notification streams the sync engine consumes.
type neutrinoNode struct {
	cs         *neutrino.ChainService
	db         walletdb.DB
	checkpoint *IndexedHeader
	required   int

	eventCh chan Event
	infoCh  chan Info
	warnCh  chan Warning
}

func (n *neutrinoNode) Events() <-chan Event     { return n.eventCh }
func (n *neutrinoNode) Infos() <-chan Info       { return n.infoCh }
func (n *neutrinoNode) Warnings() <-chan Warning { return n.warnCh }
func (n *neutrinoNode) Requester() Requester     { return (*neutrinoRequester)(n) }

// Run drives the chain service: wait for peers, stream headers and filters
// from the checkpoint to the tip, report FiltersSynced, then follow the tip
// until the context is cancelled.
func (n *neutrinoNode) Run(ctx context.Context) error {
	defer close(n.eventCh)
	defer close(n.infoCh)
	defer close(n.warnCh)
	defer n.db.Close()

	if err := n.cs.Start(); err != nil {
		return errors.Wrapf(ErrPeerUnavailable, "chain service start: %v", err)
	}
	defer func() {
		if err := n.cs.Stop(); err != nil {
			logger.Error("chain service stop failed", "err", err)
		}
	}()

	if err := n.awaitPeers(ctx); err != nil {
		return err
	}
	n.pushInfo(ctx, ConnectionsMet{})

	tip, err := n.streamToTip(ctx)
	if err != nil {
		return err
	}
	n.pushEvent(ctx, FiltersSynced{Update: SyncUpdate{Tip: tip}})

	return n.followTip(ctx, tip)
}

func (n *neutrinoNode) awaitPeers(ctx context.Context) error {
	for {
		peers := n.cs.Peers()
		if len(peers) >= n.required && n.required > 0 {
			for _, p := range peers {
				n.pushInfo(ctx, SuccessfulHandshake{Peer: p.Addr()})
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// streamToTip replays headers and filters from the checkpoint up to the point
// where the filter chain is current, returning the tip header.
func (n *neutrinoNode) streamToTip(ctx context.Context) (IndexedHeader, error) {
	start := uint32(0)
	var tip IndexedHeader
	if n.checkpoint != nil {
		start = n.checkpoint.Height
		tip = *n.checkpoint
	}

	height := start
	for {
		if err := ctx.Err(); err != nil {
			return tip, err
		}
		best, err := n.cs.BestBlock()
		if err != nil {
			return tip, errors.Wrap(err, "cannot query best block")
		}
		if uint32(best.Height) <= height && n.cs.IsCurrent() {
			return tip, nil
		}
		for height < uint32(best.Height) {
			height++
			hdr, err := n.emitAt(ctx, height)
			if err != nil {
				return tip, err
			}
			tip = hdr
			if total := uint32(best.Height) - start; total > 0 {
				pct := float64(height-start) / float64(total) * 100
				n.pushInfo(ctx, Progress{Percent: pct})
			}
		}
		select {
		case <-ctx.Done():
			return tip, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// emitAt pushes the Connected header and its compact filter for one height.
func (n *neutrinoNode) emitAt(ctx context.Context, height uint32) (IndexedHeader, error) {
	hash, err := n.cs.GetBlockHash(int64(height))
	if err != nil {
		return IndexedHeader{}, errors.Wrapf(err, "no hash at height %d", height)
	}
	header, err := n.cs.GetBlockHeader(hash)
	if err != nil {
		return IndexedHeader{}, errors.Wrapf(err, "no header at height %d", height)
	}
	indexed := IndexedHeader{Height: height, Header: *header}
	n.pushEvent(ctx, ChainUpdate{Changes: Connected{Header: indexed}})

	filter, err := n.cs.GetCFilter(*hash, wire.GCSFilterRegular)
	if err != nil {
		n.pushWarning(ctx, Warning{Msg: errors.Wrapf(err, "filter fetch failed at height %d", height).Error()})
		return indexed, nil
	}
	n.pushEvent(ctx, FilterEvent{Filter: IndexedFilter{
		Height:    height,
		BlockHash: *hash,
		Filter:    filter,
	}})
	return indexed, nil
}

// followTip keeps emitting headers and filters as the chain grows, detecting
// reorgs by re-checking the hash of the last known tip.
func (n *neutrinoNode) followTip(ctx context.Context, tip IndexedHeader) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(tipInterval):
		}

		best, err := n.cs.BestBlock()
		if err != nil {
			n.pushWarning(ctx, Warning{Msg: errors.Wrap(err, "best block query failed").Error()})
			continue
		}

		reorged, forkHeight, err := n.detectReorg(tip)
		if err != nil {
			n.pushWarning(ctx, Warning{Msg: err.Error()})
			continue
		}
		if reorged {
			accepted, err := n.headersRange(forkHeight+1, uint32(best.Height))
			if err != nil {
				n.pushWarning(ctx, Warning{Msg: err.Error()})
				continue
			}
			n.pushEvent(ctx, ChainUpdate{Changes: Reorganized{Accepted: accepted}})
			if len(accepted) > 0 {
				tip = accepted[len(accepted)-1]
			}
			continue
		}

		for tip.Height < uint32(best.Height) {
			hdr, err := n.emitAt(ctx, tip.Height+1)
			if err != nil {
				n.pushWarning(ctx, Warning{Msg: err.Error()})
				break
			}
			tip = hdr
			n.pushInfo(ctx, BlockReceived{Hash: hdr.BlockHash()})
		}
	}
}

// detectReorg reports whether the remembered tip is no longer on the best
// chain and, if so, the highest height still shared with it.
func (n *neutrinoNode) detectReorg(tip IndexedHeader) (bool, uint32, error) {
	if tip.Height == 0 {
		return false, 0, nil
	}
	hash, err := n.cs.GetBlockHash(int64(tip.Height))
	if err != nil {
		return false, 0, errors.Wrapf(err, "no hash at height %d", tip.Height)
	}
	if *hash == tip.BlockHash() {
		return false, 0, nil
	}
	height := tip.Height
	for height > 0 {
		height--
		hash, err := n.cs.GetBlockHash(int64(height))
		if err != nil {
			return false, 0, errors.Wrapf(err, "no hash at height %d", height)
		}
		header, err := n.cs.GetBlockHeader(hash)
		if err != nil {
			return false, 0, errors.Wrapf(err, "no header at height %d", height)
		}
		// The walk stops at the first header whose successor on the best
		// chain references it.
		next, err := n.cs.GetBlockHash(int64(height + 1))
		if err == nil {
			nextHeader, err := n.cs.GetBlockHeader(next)
			if err == nil && nextHeader.PrevBlock == header.BlockHash() {
				return true, height, nil
			}
		}
	}
	return true, 0, nil
}

func (n *neutrinoNode) headersRange(from, to uint32) ([]IndexedHeader, error) {
	var out []IndexedHeader
	for h := from; h <= to; h++ {
		hash, err := n.cs.GetBlockHash(int64(h))
		if err != nil {
			return nil, errors.Wrapf(err, "no hash at height %d", h)
		}
		header, err := n.cs.GetBlockHeader(hash)
		if err != nil {
			return nil, errors.Wrapf(err, "no header at height %d", h)
		}
		out = append(out, IndexedHeader{Height: h, Header: *header})
	}
	return out, nil
}

func (n *neutrinoNode) pushEvent(ctx context.Context, ev Event) {
	select {
	case n.eventCh <- ev:
	case <-ctx.Done():
	}
}

func (n *neutrinoNode) pushInfo(ctx context.Context, info Info) {
	select {
	case n.infoCh <- info:
	case <-ctx.Done():
	}
}

func (n *neutrinoNode) pushWarning(ctx context.Context, w Warning) {
	select {
	case n.warnCh <- w:
	case <-ctx.Done():
	}
}

// neutrinoRequester serves on-demand block downloads over the chain service.
type neutrinoRequester neutrinoNode

func (r *neutrinoRequester) GetBlock(ctx context.Context, hash chainhash.Hash) (*IndexedBlock, error) {
	type result struct {
		block *IndexedBlock
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		block, err := r.cs.GetBlock(hash)
		if err != nil {
			ch <- result{err: errors.Wrapf(err, "block fetch %s", hash)}
			return
		}
		height, err := r.cs.GetBlockHeight(&hash)
		if err != nil {
			ch <- result{err: errors.Wrapf(err, "height lookup %s", hash)}
			return
		}
		ch <- result{block: &IndexedBlock{Height: uint32(height), Block: block}}
	}()

	select {
	case res := <-ch:
		return res.block, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
