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
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
)

// ResponseTimeout bounds a single peer request.
const ResponseTimeout = 30 * time.Second

// ErrPeerUnavailable is returned when no peer can be connected or the
// handshake fails.
var ErrPeerUnavailable = errors.New("chainclient: peer unavailable")

// Requester fetches data from connected peers on demand.
type Requester interface {
	// GetBlock downloads the full block with the given hash.
	GetBlock(ctx context.Context, hash chainhash.Hash) (*IndexedBlock, error)
}

// Client is the consumer-facing half of the P2P node: three notification
// streams plus the on-demand requester. The channels are closed when the
// node shuts down.
type Client interface {
	Events() <-chan Event
	Infos() <-chan Info
	Warnings() <-chan Warning
	Requester() Requester
}

// Node is the long-running half: Run drives the P2P machinery until the
// context is cancelled.
type Node interface {
	Run(ctx context.Context) error
}

// Config selects the network and peers for a connection attempt.
type Config struct {
	Regtest bool
	// RegtestPeer is the sole trusted peer on regtest ("host:port").
	RegtestPeer string
	// RequiredPeers is the mainnet peer quorum; regtest always uses 1.
	RequiredPeers uint8
	// DataDir holds the client's own header and filter state.
	DataDir string
}
