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

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip39"

	"github.com/satellion/satellion/btc/neutrino"
	"github.com/satellion/satellion/config"
	"github.com/satellion/satellion/session"
	"github.com/satellion/satellion/storage/database"
	"github.com/satellion/satellion/wallet"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func newTestServer(t *testing.T) (*Server, *session.Keeper, *wallet.Store) {
	t.Helper()
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	store := wallet.NewStore(cfg.WalletsDir(), cfg.Bitcoin.Network(), cfg.OmitPassphraseOnPrivateKey)
	hub := NewWSHub()
	keeper := session.NewKeeper(store, NewEmitter(hub))
	headerDB := database.NewMemDB()
	starter := neutrino.NewStarter(cfg, keeper, headerDB, NewEmitter(hub))
	t.Cleanup(starter.Stop)

	return NewServer(cfg, store, keeper, starter, headerDB, nil, hub), keeper, store
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestServer_GenerateMnemonic(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/wallet/mnemonic", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, bip39.IsMnemonicValid(resp["mnemonic"]))
}

func TestServer_CreateAndListWallets(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/wallet/create", createWalletRequest{
		Name: "Wallet 1", Mnemonic: testMnemonic, Passphrase: "1111",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, srv, http.MethodGet, "/wallet/list", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Wallet_1"}, resp["wallets"])
}

func TestServer_CreateRejectsShortPassphrase(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/wallet/create", createWalletRequest{
		Name: "w", Mnemonic: testMnemonic, Passphrase: "123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least 4")
}

func TestServer_PrivilegedEndpointsNeedSession(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/btc/utxos", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/btc/start-node", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_DeriveAddressWithSession(t *testing.T) {
	srv, keeper, store := newTestServer(t)

	w, err := store.Create("w", testMnemonic, "1111")
	require.NoError(t, err)
	keeper.Set(session.New(w))

	rec := doJSON(t, srv, http.MethodPost, "/btc/derive-address", deriveAddressRequest{Label: "rent"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["address"])

	rec = doJSON(t, srv, http.MethodGet, "/btc/addresses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rent")
	assert.Contains(t, rec.Body.String(), "m/86'/1'/0'/0/0")
}

func TestServer_DeriveAddressWrongWalletTarget(t *testing.T) {
	srv, keeper, store := newTestServer(t)

	w, err := store.Create("w", testMnemonic, "1111")
	require.NoError(t, err)
	keeper.Set(session.New(w))

	rec := doJSON(t, srv, http.MethodPost, "/btc/derive-address", deriveAddressRequest{
		Wallet: "someone_else", Label: "x",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_ChainStatusEmpty(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/chain/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chainStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint32(0), resp.Height)
	assert.False(t, resp.SyncCompleted)
}

func TestServer_ForgetWallet(t *testing.T) {
	srv, keeper, store := newTestServer(t)

	w, err := store.Create("gone", testMnemonic, "1111")
	require.NoError(t, err)
	keeper.Set(session.New(w))

	rec := doJSON(t, srv, http.MethodPost, "/wallet/forget", forgetRequest{Name: "gone"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, keeper.HasSession())

	names, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}
