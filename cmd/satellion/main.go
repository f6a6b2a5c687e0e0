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

// satellion is the wallet backend daemon: it serves the host UI's commands
// over HTTP, streams sync events over websocket and runs the Bitcoin
// neutrino sync engine for the unlocked wallet.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/urfave/cli.v1"

	"github.com/satellion/satellion/api"
	"github.com/satellion/satellion/btc/neutrino"
	"github.com/satellion/satellion/cmd/utils"
	"github.com/satellion/satellion/config"
	"github.com/satellion/satellion/eth"
	"github.com/satellion/satellion/log"
	"github.com/satellion/satellion/session"
	"github.com/satellion/satellion/storage/database"
	"github.com/satellion/satellion/system"
	"github.com/satellion/satellion/wallet"
)

var logger = log.NewModuleLogger(log.CMD)

func main() {
	app := cli.NewApp()
	app.Name = "satellion"
	app.Usage = "non-custodial multi-chain wallet backend"
	app.Flags = []cli.Flag{
		utils.DataDirFlag,
		utils.RPCAddrFlag,
		utils.VerbosityFlag,
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	log.ChangeGlobalLogLevel(c.Int(utils.VerbosityFlag.Name))

	cfg, err := config.Load(c.String(utils.DataDirFlag.Name))
	if err != nil {
		return err
	}

	headerDB, err := database.NewHeaderDB(&database.DBConfig{
		Type: database.SQLiteDB,
		Path: cfg.DBPath(),
	})
	if err != nil {
		return err
	}
	defer headerDB.Close()

	hub := api.NewWSHub()
	defer hub.Close()
	emitter := api.NewEmitter(hub)

	store := wallet.NewStore(cfg.WalletsDir(), cfg.Bitcoin.Network(), cfg.OmitPassphraseOnPrivateKey)
	keeper := session.NewKeeper(store, emitter)
	keeper.StartMonitor(config.SessionMonitorInterval)

	starter := neutrino.NewStarter(cfg, keeper, headerDB, emitter)
	defer starter.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ethClient, err := eth.Dial(ctx, cfg.Ethereum.RPCURL)
	if err != nil {
		// The Bitcoin side works without an Ethereum endpoint.
		logger.Warn("ethereum endpoint unavailable", "url", cfg.Ethereum.RPCURL, "err", err)
	}

	monitor := system.NewNoopMonitor()
	defer monitor.Close()
	go watchOSSession(monitor, keeper)

	server := api.NewServer(cfg, store, keeper, starter, headerDB, ethClient, hub)
	return server.ListenAndServe(ctx, c.String(utils.RPCAddrFlag.Name))
}

// watchOSSession maps OS screen-lock transitions onto session actions: lock
// soft-terminates, unlock with no session tells the UI to re-prompt.
func watchOSSession(monitor system.Monitor, keeper *session.Keeper) {
	for ev := range monitor.Events() {
		switch ev {
		case system.SessionLocked:
			if keeper.SoftTerminate() {
				logger.Info("session locked with the OS")
			}
		case system.SessionUnlocked:
			if !keeper.HasSession() {
				keeper.NotifyExpired()
			}
		}
	}
}
