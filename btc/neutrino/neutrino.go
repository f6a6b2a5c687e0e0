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

// Package neutrino is the BIP157/158 wallet sync engine: it streams compact
// filters from the P2P client, matches them against the wallet's scripts,
// downloads only the relevant blocks and reconciles the discovered UTXOs
// into the session's wallet.
package neutrino

import (
	"context"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pkg/errors"

	"github.com/satellion/satellion/btc"
	"github.com/satellion/satellion/btc/chainclient"
	"github.com/satellion/satellion/config"
	"github.com/satellion/satellion/log"
	"github.com/satellion/satellion/session"
	"github.com/satellion/satellion/storage/database"
	"github.com/satellion/satellion/wallet"
)

var logger = log.NewModuleLogger(log.NeutrinoSync)

// stopJoinTimeout bounds the best-effort wait for a previous node's tasks.
const stopJoinTimeout = 5 * time.Second

// ConnectFunc builds the node/client pair; swapped by tests.
type ConnectFunc func(cfg chainclient.Config, params *chaincfg.Params, checkpoint *chainclient.IndexedHeader) (chainclient.Node, chainclient.Client, error)

// Starter owns the node lifecycle: at most one sync engine runs at a time,
// bound to exactly one wallet. Starting for the same wallet is idempotent;
// starting for another wallet cancels the previous instance first.
type Starter struct {
	cfg      *config.Config
	keeper   *session.Keeper
	headerDB database.HeaderDB
	emitter  EventEmitter
	connect  ConnectFunc

	// downloadConcurrency is deliberately small: one in-flight block is
	// plenty on regtest and keeps mainnet peers unoffended.
	downloadConcurrency int64

	mu         sync.Mutex
	runningFor string
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewStarter(cfg *config.Config, keeper *session.Keeper, headerDB database.HeaderDB, emitter EventEmitter) *Starter {
	return &Starter{
		cfg:                 cfg,
		keeper:              keeper,
		headerDB:            headerDB,
		emitter:             emitter,
		connect:             chainclient.Connect,
		downloadConcurrency: 1,
	}
}

// RequestNodeStart ensures the sync engine is running for the given wallet.
func (s *Starter) RequestNodeStart(walletName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runningFor == walletName && s.isRunning() {
		logger.Debug("node already running for wallet", "wallet", walletName)
		return nil
	}
	s.stopCurrentLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.runningFor = walletName
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		if err := s.runNode(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("node run failed", "wallet", walletName, "err", err)
		}
	}()
	return nil
}

// Stop cancels the running node, if any, and joins its tasks.
func (s *Starter) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCurrentLocked()
	s.runningFor = ""
}

// RunningFor reports the wallet the node is currently bound to.
func (s *Starter) RunningFor() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning() {
		return "", false
	}
	return s.runningFor, true
}

func (s *Starter) isRunning() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Starter) stopCurrentLocked() {
	if s.cancel == nil {
		return
	}
	logger.Info("stopping node", "wallet", s.runningFor)
	s.cancel()
	s.cancel = nil
	if s.done != nil {
		select {
		case <-s.done:
		case <-time.After(stopJoinTimeout):
			logger.Error("node tasks did not stop in time", "wallet", s.runningFor)
		}
		s.done = nil
	}
}

// runNode wires and runs the four long-lived tasks of one sync instance:
// the P2P node, the event listener, the filter scanner and the orchestrator.
// All four share one cancellation tree; none outlives this call.
func (s *Starter) runNode(ctx context.Context) error {
	checkpoint, err := s.headerDB.LastHeader()
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return errors.Wrap(err, "cannot load sync checkpoint")
	}
	if checkpoint != nil {
		logger.Info("resuming from stored header", "height", checkpoint.Height)
	}

	params := s.cfg.Bitcoin.Network()
	node, client, err := s.connect(chainclient.Config{
		Regtest:       s.cfg.Bitcoin.Regtest,
		RegtestPeer:   s.cfg.Bitcoin.RegtestPeerSocket,
		RequiredPeers: s.cfg.Bitcoin.RequiredPeers(),
		DataDir:       s.cfg.ChainDataDir(),
	}, params, checkpoint)
	if err != nil {
		return errors.Wrap(err, "cannot connect chain client")
	}

	// Fresh runtime channels and watch window for this node instance.
	runtime := btc.NewRuntime()
	scripts := btc.NewScriptSet()
	err = s.keeper.WithWallet(func(w *wallet.Wallet) error {
		w.BTC.Runtime = runtime
		initial, derr := w.BTC.ScriptsOfInterest()
		if derr != nil {
			return derr
		}
		for _, ds := range initial {
			scripts.Install(ds)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "cannot install scripts of interest")
	}
	logger.Info("scripts of interest installed", "count", scripts.Len())

	filterCh := make(chan chainclient.IndexedFilter, 1024)
	downloader := NewBlockDownloader(client.Requester())
	scanner := NewCompactFilterScanner(scripts, downloader, filterCh, runtime.ScriptCh)
	listener := NewNodeListener(client, s.emitter, runtime.SyncEventCh, filterCh, downloader, scanner, s.downloadConcurrency)
	orchestrator := NewSyncOrchestrator(s.keeper, s.headerDB, s.emitter, runtime.SyncEventCh, scripts, runtime.ScriptCh)

	var wg sync.WaitGroup
	spawn := func(name string, task func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task(ctx)
			if ctx.Err() == nil {
				logger.Warn("node task exited early", "task", name)
			}
		}()
	}
	spawn("p2p node", func(ctx context.Context) {
		if err := node.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("p2p node failed", "err", err)
		}
	})
	spawn("node listener", listener.Run)
	spawn("filter scanner", scanner.Run)
	spawn("sync orchestrator", orchestrator.Run)

	wg.Wait()
	return ctx.Err()
}
