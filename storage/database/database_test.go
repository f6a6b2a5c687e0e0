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

package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satellion/satellion/btc/chainclient"
)

func testHeader(height uint32, nonce uint32) *chainclient.IndexedHeader {
	var prev chainhash.Hash
	prev[0] = byte(height - 1)
	var merkle chainhash.Hash
	merkle[0] = byte(height)
	return &chainclient.IndexedHeader{
		Height: height,
		Header: wire.BlockHeader{
			Version:    2,
			PrevBlock:  prev,
			MerkleRoot: merkle,
			Timestamp:  time.Unix(1700000000+int64(height), 0).UTC(),
			Bits:       0x1d00ffff,
			Nonce:      nonce,
		},
	}
}

// Both backends must satisfy the same contract.
func openBackends(t *testing.T) map[string]HeaderDB {
	t.Helper()
	sqlite, err := NewHeaderDB(&DBConfig{Type: SQLiteDB, Path: filepath.Join(t.TempDir(), "blockchain.db")})
	require.NoError(t, err)
	t.Cleanup(sqlite.Close)
	return map[string]HeaderDB{
		"sqlite": sqlite,
		"memory": NewMemDB(),
	}
}

func TestHeaderDB_WriteAndRead(t *testing.T) {
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := db.ReadHeader(100)
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = db.LastHeader()
			assert.ErrorIs(t, err, ErrNotFound)

			h := testHeader(100, 7)
			require.NoError(t, db.WriteHeader(h))

			got, err := db.ReadHeader(100)
			require.NoError(t, err)
			assert.Equal(t, h.Height, got.Height)
			assert.Equal(t, h.Header.MerkleRoot, got.Header.MerkleRoot)
			assert.Equal(t, h.Header.PrevBlock, got.Header.PrevBlock)
			assert.Equal(t, h.Header.Nonce, got.Header.Nonce)
			assert.Equal(t, h.Header.Timestamp.Unix(), got.Header.Timestamp.Unix())
		})
	}
}

func TestHeaderDB_IdempotentAndOverwrite(t *testing.T) {
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.WriteHeader(testHeader(10, 1)))
			// Same bytes: no-op.
			require.NoError(t, db.WriteHeader(testHeader(10, 1)))
			// Differing bytes at the same height: reorg overwrite.
			require.NoError(t, db.WriteHeader(testHeader(10, 99)))

			got, err := db.ReadHeader(10)
			require.NoError(t, err)
			assert.Equal(t, uint32(99), got.Header.Nonce)

			headers, err := db.ReadHeaders(10)
			require.NoError(t, err)
			assert.Len(t, headers, 1)
		})
	}
}

func TestHeaderDB_LastAndRecent(t *testing.T) {
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			for _, height := range []uint32{5, 3, 9, 7} {
				require.NoError(t, db.WriteHeader(testHeader(height, height)))
			}

			last, err := db.LastHeader()
			require.NoError(t, err)
			assert.Equal(t, uint32(9), last.Height)

			recent, err := db.ReadHeaders(3)
			require.NoError(t, err)
			require.Len(t, recent, 3)
			assert.Equal(t, uint32(9), recent[0].Height)
			assert.Equal(t, uint32(7), recent[1].Height)
			assert.Equal(t, uint32(5), recent[2].Height)
		})
	}
}

func TestHeaderDB_PruneAbove(t *testing.T) {
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			for height := uint32(1); height <= 8; height++ {
				require.NoError(t, db.WriteHeader(testHeader(height, height)))
			}
			require.NoError(t, db.PruneAbove(5))

			last, err := db.LastHeader()
			require.NoError(t, err)
			assert.Equal(t, uint32(5), last.Height)

			_, err = db.ReadHeader(6)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}
