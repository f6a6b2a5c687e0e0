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
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pkg/errors"

	"github.com/satellion/satellion/log"
)

var logger = log.NewModuleLogger(log.Config)

const (
	// MinPassphraseLen is the minimum accepted wallet passphrase length.
	MinPassphraseLen = 4

	// SessionInactivityTimeout is how long an unlocked session survives
	// without privileged access before the monitor locks it.
	SessionInactivityTimeout = 10 * time.Minute

	// SessionMonitorInterval is the tick period of the session monitor.
	SessionMonitorInterval = time.Minute
)

type EthereumConfig struct {
	RPCURL string `json:"rpc_url"`
	Anvil  bool   `json:"anvil"`
}

type BitcoinConfig struct {
	Regtest           bool   `json:"regtest"`
	RegtestPeerSocket string `json:"regtest_peer_socket"`
	MinPeers          uint8  `json:"min_peers"`
}

// Network maps the configured mode onto chain parameters.
func (c *BitcoinConfig) Network() *chaincfg.Params {
	if c.Regtest {
		return &chaincfg.RegressionNetParams
	}
	return &chaincfg.MainNetParams
}

// RequiredPeers is the peer count the node waits for before syncing.
// Regtest always runs against the single trusted peer.
func (c *BitcoinConfig) RequiredPeers() uint8 {
	if c.Regtest {
		return 1
	}
	if c.MinPeers == 0 {
		return 1
	}
	return c.MinPeers
}

type Config struct {
	Ethereum EthereumConfig `json:"ethereum"`
	Bitcoin  BitcoinConfig  `json:"bitcoin"`
	// OmitPassphraseOnPrivateKey derives seeds with an empty BIP39
	// passphrase so that the wallet passphrase only guards the envelope.
	OmitPassphraseOnPrivateKey bool `json:"omit_passphrase_on_private_key"`

	dataDir string
}

func defaultConfig(dataDir string) *Config {
	return &Config{
		Ethereum: EthereumConfig{
			RPCURL: "http://127.0.0.1:8545",
			Anvil:  true,
		},
		Bitcoin: BitcoinConfig{
			Regtest:           true,
			RegtestPeerSocket: "127.0.0.1:18444",
			MinPeers:          1,
		},
		dataDir: dataDir,
	}
}

// DefaultDataDir returns ${HOME}/.satellion.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		logger.Crit("cannot resolve home directory", "err", err)
	}
	return filepath.Join(home, ".satellion")
}

// Load reads the config file under dataDir, creating the directory tree and
// a default config on first run.
func Load(dataDir string) (*Config, error) {
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	if err := os.MkdirAll(filepath.Join(dataDir, "wallets"), 0o700); err != nil {
		return nil, errors.Wrap(err, "cannot create data directory")
	}

	path := filepath.Join(dataDir, "config.json")
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := defaultConfig(dataDir)
		if werr := cfg.write(path); werr != nil {
			return nil, werr
		}
		logger.Warn("config file not found, default config created", "path", path)
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "cannot read config file")
	}

	cfg := defaultConfig(dataDir)
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrapf(err, "malformed config file %s", path)
	}
	cfg.dataDir = dataDir
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Bitcoin.Regtest && c.Bitcoin.MinPeers > 1 {
		return errors.Errorf("min_peers=%d is not applicable on regtest, which uses the single trusted peer", c.Bitcoin.MinPeers)
	}
	return nil
}

func (c *Config) write(path string) error {
	payload, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "cannot marshal default config")
	}
	return errors.Wrapf(os.WriteFile(path, payload, 0o600), "cannot write config to %s", path)
}

// DataDir is the root directory of all persistent wallet state.
func (c *Config) DataDir() string { return c.dataDir }

// WalletsDir holds one encrypted JSON file per wallet.
func (c *Config) WalletsDir() string { return filepath.Join(c.dataDir, "wallets") }

// DBPath is the SQLite database holding synced block headers.
func (c *Config) DBPath() string { return filepath.Join(c.dataDir, "blockchain.db") }

// ChainDataDir holds the P2P client's own header/filter state.
func (c *Config) ChainDataDir() string { return filepath.Join(c.dataDir, "chain") }
