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

package log

// ModuleID identifies the subsystem a logger belongs to.
type ModuleID int

const (
	BaseLogger ModuleID = iota
	CMD
	Config
	Wallet
	Session
	Envelope
	BTC
	ChainClient
	NeutrinoSync
	StorageDatabase
	API
	ETH
	System
)

var moduleNames = [...]string{
	BaseLogger:      "base",
	CMD:             "cmd",
	Config:          "config",
	Wallet:          "wallet",
	Session:         "session",
	Envelope:        "envelope",
	BTC:             "btc",
	ChainClient:     "chainclient",
	NeutrinoSync:    "neutrino",
	StorageDatabase: "storage/database",
	API:             "api",
	ETH:             "eth",
	System:          "system",
}

func (mi ModuleID) String() string {
	if int(mi) < len(moduleNames) && moduleNames[mi] != "" {
		return moduleNames[mi]
	}
	return "unknown"
}
