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

package wallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satellion/satellion/btc"
	"github.com/satellion/satellion/crypto/envelope"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), &chaincfg.RegressionNetParams, false)
}

func TestStore_CreateLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	created, err := store.Create("Wallet 1", testMnemonic, "1111")
	require.NoError(t, err)
	defer created.Wipe()

	created.BTC.InsertUTXOs([]btc.UTXO{testUTXO(7, 0, 120_000_000, 101)})
	created.BTC.CFilterScannerHeight = 101
	created.BTC.InitialSyncDone = true
	require.NoError(t, store.Save(created))

	loaded, err := store.Load("Wallet 1", "1111")
	require.NoError(t, err)
	defer loaded.Wipe()

	assert.Equal(t, "Wallet 1", loaded.Name)
	assert.True(t, loaded.BTC.InitialSyncDone)
	assert.Equal(t, uint32(101), loaded.BTC.CFilterScannerHeight)
	require.Len(t, loaded.BTC.UTXOs(), 1)
	assert.Equal(t, created.BTC.TotalBalance(), loaded.BTC.TotalBalance())
	assert.Equal(t, created.ETH.TrackedTokens, loaded.ETH.TrackedTokens)

	var mnemonic string
	require.NoError(t, loaded.Mnemonic.Expose(func(b *[]byte) error {
		mnemonic = string(*b)
		return nil
	}))
	assert.Equal(t, testMnemonic, mnemonic)
}

func TestStore_WrongPassphrase(t *testing.T) {
	store := newTestStore(t)
	w, err := store.Create("w", testMnemonic, "1111")
	require.NoError(t, err)
	defer w.Wipe()

	_, err = store.Load("w", "2222")
	assert.ErrorIs(t, err, envelope.ErrBadPassphrase)
}

func TestStore_CorruptFile(t *testing.T) {
	store := newTestStore(t)
	w, err := store.Create("w", testMnemonic, "1111")
	require.NoError(t, err)
	defer w.Wipe()

	path := filepath.Join(store.dir, "w.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err = store.Load("w", "1111")
	assert.ErrorIs(t, err, envelope.ErrCorrupt)
}

func TestStore_ListAndDelete(t *testing.T) {
	store := newTestStore(t)
	for _, name := range []string{"bravo", "alpha"} {
		w, err := store.Create(name, testMnemonic, "1111")
		require.NoError(t, err)
		w.Wipe()
	}

	names, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "bravo"}, names)

	require.NoError(t, store.Delete("alpha"))
	names, err = store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"bravo"}, names)

	assert.Error(t, store.Delete("alpha"))
}

func TestStore_AutoNames(t *testing.T) {
	store := newTestStore(t)

	a, err := store.Create("", testMnemonic, "1111")
	require.NoError(t, err)
	defer a.Wipe()
	assert.Equal(t, "Wallet_1", a.Name)

	b, err := store.Create("", testMnemonic, "1111")
	require.NoError(t, err)
	defer b.Wipe()
	assert.Equal(t, "Wallet_2", b.Name)
}

func TestStore_DuplicateNameRejected(t *testing.T) {
	store := newTestStore(t)
	w, err := store.Create("same", testMnemonic, "1111")
	require.NoError(t, err)
	defer w.Wipe()

	_, err = store.Create("same", testMnemonic, "1111")
	assert.Error(t, err)
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"Wallet 1":       "Wallet_1",
		"my-wallet_2":    "my-wallet_2",
		"../../etc/pass": "etc_pass",
		"__inner__":      "inner",
		"ünïcødé":        "n_c_d",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeName(in), "input %q", in)
	}
}
