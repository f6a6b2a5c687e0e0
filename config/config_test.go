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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_CreatesDefaultOnFirstRun(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "config.json"))
	assert.DirExists(t, filepath.Join(dir, "wallets"))
	assert.True(t, cfg.Bitcoin.Regtest)
	assert.Equal(t, "127.0.0.1:18444", cfg.Bitcoin.RegtestPeerSocket)

	// A second load round-trips the file it just wrote.
	again, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg.Bitcoin, again.Bitcoin)
	assert.Equal(t, cfg.Ethereum, again.Ethereum)
}

func TestLoad_ReadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	raw := `{
		"ethereum": {"rpc_url": "http://10.0.0.1:8545", "anvil": false},
		"bitcoin": {"regtest": false, "regtest_peer_socket": "127.0.0.1:18444", "min_peers": 3},
		"omit_passphrase_on_private_key": true
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(raw), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.1:8545", cfg.Ethereum.RPCURL)
	assert.False(t, cfg.Bitcoin.Regtest)
	assert.Equal(t, uint8(3), cfg.Bitcoin.MinPeers)
	assert.True(t, cfg.OmitPassphraseOnPrivateKey)
	assert.Equal(t, &chaincfg.MainNetParams, cfg.Bitcoin.Network())
	assert.Equal(t, uint8(3), cfg.Bitcoin.RequiredPeers())
}

func TestLoad_RejectsMinPeersOnRegtest(t *testing.T) {
	dir := t.TempDir()
	raw := `{"bitcoin": {"regtest": true, "regtest_peer_socket": "127.0.0.1:18444", "min_peers": 5}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(raw), 0o600))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "regtest")
}

func TestBitcoinConfig_Network(t *testing.T) {
	cfg := BitcoinConfig{Regtest: true}
	assert.Equal(t, &chaincfg.RegressionNetParams, cfg.Network())
	assert.Equal(t, uint8(1), cfg.RequiredPeers())
}
