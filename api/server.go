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

// Package api is the host-facing surface: thin JSON command handlers plus
// the outbound event stream. Command errors cross the boundary as strings.
package api

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"

	"github.com/satellion/satellion/btc"
	"github.com/satellion/satellion/btc/neutrino"
	"github.com/satellion/satellion/config"
	"github.com/satellion/satellion/eth"
	"github.com/satellion/satellion/session"
	"github.com/satellion/satellion/storage/database"
	"github.com/satellion/satellion/wallet"
)

// Server exposes the wallet commands over HTTP and events over websocket.
type Server struct {
	cfg      *config.Config
	store    *wallet.Store
	keeper   *session.Keeper
	starter  *neutrino.Starter
	headerDB database.HeaderDB
	ethc     *eth.Client
	hub      *WSHub

	httpSrv *http.Server
}

func NewServer(
	cfg *config.Config,
	store *wallet.Store,
	keeper *session.Keeper,
	starter *neutrino.Starter,
	headerDB database.HeaderDB,
	ethc *eth.Client,
	hub *WSHub,
) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		keeper:   keeper,
		starter:  starter,
		headerDB: headerDB,
		ethc:     ethc,
		hub:      hub,
	}
}

// Router builds the command routing table.
func (s *Server) Router() *httprouter.Router {
	router := httprouter.New()
	router.POST("/wallet/mnemonic", s.generateMnemonic)
	router.POST("/wallet/create", s.createWallet)
	router.GET("/wallet/list", s.listWallets)
	router.POST("/wallet/unlock", s.unlockWallet)
	router.POST("/wallet/forget", s.forgetWallet)
	router.GET("/chain/status", s.chainStatus)
	router.POST("/btc/start-node", s.btcStartNode)
	router.POST("/btc/derive-address", s.btcDeriveAddress)
	router.GET("/btc/utxos", s.btcListUTXOs)
	router.GET("/btc/addresses", s.btcListAddresses)
	router.GET("/eth/balance", s.ethBalance)
	router.POST("/eth/track-token", s.ethTrackToken)
	router.POST("/eth/untrack-token", s.ethUntrackToken)
	router.POST("/eth/send", s.ethSend)
	router.Handler(http.MethodGet, "/events", s.hub)
	return router
}

// ListenAndServe blocks serving the API until the context ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpSrv = &http.Server{Addr: addr, Handler: s.Router()}
	go func() {
		<-ctx.Done()
		_ = s.httpSrv.Shutdown(context.Background())
	}()
	logger.Info("api listening", "addr", addr)
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Error("response encoding failed", "err", err)
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, session.ErrNoSession):
		status = http.StatusUnauthorized
	case errors.Is(err, session.ErrWrongSession):
		status = http.StatusConflict
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decode(r *http.Request, into interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		return errors.Wrap(err, "malformed request body")
	}
	return nil
}

func (s *Server) generateMnemonic(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mnemonic": mnemonic})
}

type createWalletRequest struct {
	Name       string `json:"name"`
	Mnemonic   string `json:"mnemonic"`
	Passphrase string `json:"passphrase"`
}

func (s *Server) createWallet(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createWalletRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Passphrase) < config.MinPassphraseLen {
		writeError(w, errors.Errorf("passphrase must contain at least %d characters", config.MinPassphraseLen))
		return
	}
	created, err := s.store.Create(req.Name, req.Mnemonic, req.Passphrase)
	if err != nil {
		writeError(w, err)
		return
	}
	name := created.Name
	created.Wipe()
	writeJSON(w, http.StatusOK, map[string]string{"name": name})
}

func (s *Server) listWallets(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	names, err := s.store.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"wallets": names})
}

type unlockRequest struct {
	Name       string `json:"name"`
	Passphrase string `json:"passphrase"`
}

type unlockResponse struct {
	Bitcoin struct {
		Address       string `json:"address"`
		ChangeAddress string `json:"change_address"`
	} `json:"bitcoin"`
	Ethereum struct {
		Address string `json:"address"`
	} `json:"ethereum"`
	LastUsedChain uint16 `json:"last_used_chain"`
}

func (s *Server) unlockWallet(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req unlockRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	unlocked, err := s.store.Load(req.Name, req.Passphrase)
	if err != nil {
		writeError(w, err)
		return
	}

	var resp unlockResponse
	params := s.cfg.Bitcoin.Network()
	receive, _, err := unlocked.BTC.DeriveAddress(btc.NewDerivePath(params, 0, btc.ChangeExternal, 0))
	if err != nil {
		unlocked.Wipe()
		writeError(w, err)
		return
	}
	change, _, err := unlocked.BTC.DeriveAddress(btc.NewDerivePath(params, 0, btc.ChangeInternal, 0))
	if err != nil {
		unlocked.Wipe()
		writeError(w, err)
		return
	}
	ethAddr, err := unlocked.ETH.Address()
	if err != nil {
		unlocked.Wipe()
		writeError(w, err)
		return
	}
	resp.Bitcoin.Address = receive.EncodeAddress()
	resp.Bitcoin.ChangeAddress = change.EncodeAddress()
	resp.Ethereum.Address = ethAddr.Hex()
	resp.LastUsedChain = uint16(unlocked.LastUsedChain)

	s.keeper.Set(session.New(unlocked).WithInactivityTimeout(config.SessionInactivityTimeout))

	// Sync starts in the background; unlock does not wait on peers.
	go func(name string) {
		if err := s.starter.RequestNodeStart(name); err != nil {
			logger.Error("node start failed after unlock", "wallet", name, "err", err)
		}
	}(unlocked.Name)

	writeJSON(w, http.StatusOK, resp)
}

type forgetRequest struct {
	Name string `json:"name"`
}

func (s *Server) forgetWallet(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req forgetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if name, ok := s.keeper.WalletName(); ok && name == req.Name {
		s.starter.Stop()
		s.keeper.Terminate()
	}
	if err := s.store.Delete(req.Name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type chainStatusResponse struct {
	Height        uint32 `json:"height"`
	SyncCompleted bool   `json:"sync_completed"`
}

func (s *Server) chainStatus(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	var resp chainStatusResponse
	last, err := s.headerDB.LastHeader()
	if err == nil {
		resp.Height = last.Height
	} else if !errors.Is(err, database.ErrNotFound) {
		writeError(w, err)
		return
	}
	_ = s.keeper.WithWallet(func(w *wallet.Wallet) error {
		resp.SyncCompleted = w.BTC.InitialSyncDone
		return nil
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) btcStartNode(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	name, ok := s.keeper.WalletName()
	if !ok {
		writeError(w, session.ErrNoSession)
		return
	}
	if err := s.starter.RequestNodeStart(name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type deriveAddressRequest struct {
	Wallet string `json:"wallet,omitempty"`
	Label  string `json:"label"`
	Index  *uint32 `json:"index,omitempty"`
}

func (s *Server) btcDeriveAddress(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req deriveAddressRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.checkSessionTarget(req.Wallet); err != nil {
		writeError(w, err)
		return
	}

	var (
		address string
		derived []btc.DerivedScript
		runtime *btc.Runtime
	)
	err := s.keeper.MutateBTC(func(d *wallet.BitcoinData) error {
		index := d.UnoccupiedIndex()
		if req.Index != nil {
			index = *req.Index
		}
		addr, derr := d.DeriveChild(req.Label, index)
		if derr != nil {
			return derr
		}
		address = addr.EncodeAddress()

		// Make the running scanner watch the fresh address too.
		path := btc.NewDerivePath(d.Params(), 0, btc.ChangeExternal, index)
		_, script, derr := d.DeriveAddress(path)
		if derr != nil {
			return derr
		}
		derived = append(derived, btc.DerivedScript{Script: script, Path: path})
		runtime = d.Runtime
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if runtime != nil {
		for _, ds := range derived {
			select {
			case runtime.ScriptCh <- ds:
			default:
				logger.Warn("script channel full, scanner will miss fresh address until restart")
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"address": address})
}

type utxoView struct {
	TxID       string `json:"txid"`
	Vout       uint32 `json:"vout"`
	Value      int64  `json:"value"`
	DerivePath string `json:"derive_path"`
	BlockHash  string `json:"block_hash"`
	Height     uint32 `json:"block_height"`
}

func (s *Server) btcListUTXOs(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	var views []utxoView
	var total int64
	err := s.keeper.WithWallet(func(wal *wallet.Wallet) error {
		for _, u := range wal.BTC.UTXOs() {
			views = append(views, utxoView{
				TxID:       u.TxID.String(),
				Vout:       u.Vout,
				Value:      int64(u.Value),
				DerivePath: u.DerivePath.String(),
				BlockHash:  u.Block.Hash.String(),
				Height:     u.Block.Height,
			})
		}
		total = int64(wal.BTC.TotalBalance())
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"utxos": views, "total_balance": total})
}

type addressView struct {
	Label      string `json:"label"`
	DerivePath string `json:"derive_path"`
	Address    string `json:"address"`
}

func (s *Server) btcListAddresses(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	var views []addressView
	err := s.keeper.WithWallet(func(wal *wallet.Wallet) error {
		for _, child := range wal.BTC.DerivedChildren {
			addr, _, derr := wal.BTC.DeriveAddress(child.Path)
			if derr != nil {
				return derr
			}
			views = append(views, addressView{
				Label:      child.Label,
				DerivePath: child.Path.String(),
				Address:    addr.EncodeAddress(),
			})
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"addresses": views})
}

// ethReady guards the Ethereum endpoints when the RPC endpoint was
// unreachable at startup.
func (s *Server) ethReady() error {
	if s.ethc == nil {
		return errors.New("ethereum endpoint unavailable")
	}
	return nil
}

func (s *Server) ethBalance(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := s.ethReady(); err != nil {
		writeError(w, err)
		return
	}
	var account ethcommon.Address
	err := s.keeper.WithWallet(func(wal *wallet.Wallet) error {
		addr, derr := wal.ETH.Address()
		account = addr
		return derr
	})
	if err != nil {
		writeError(w, err)
		return
	}
	balance, err := s.ethc.Balance(r.Context(), account)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"balance_wei": balance.String()})
}

type tokenRequest struct {
	Address string `json:"address"`
}

func (s *Server) ethTrackToken(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := s.ethReady(); err != nil {
		writeError(w, err)
		return
	}
	var req tokenRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !ethcommon.IsHexAddress(req.Address) {
		writeError(w, errors.Errorf("invalid token address %q", req.Address))
		return
	}
	token, err := s.ethc.TokenInfo(r.Context(), ethcommon.HexToAddress(req.Address))
	if err != nil {
		writeError(w, err)
		return
	}
	err = s.keeper.WithWallet(func(wal *wallet.Wallet) error {
		return wal.ETH.TrackToken(token)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

func (s *Server) ethUntrackToken(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req tokenRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	err := s.keeper.WithWallet(func(wal *wallet.Wallet) error {
		return wal.ETH.UntrackToken(req.Address)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type sendRequest struct {
	To           string `json:"to"`
	AmountWei    string `json:"amount"`
	TokenAddress string `json:"token_address,omitempty"`
	FeeMode      string `json:"fee_mode"`
}

func (s *Server) ethSend(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := s.ethReady(); err != nil {
		writeError(w, err)
		return
	}
	var req sendRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !ethcommon.IsHexAddress(req.To) {
		writeError(w, errors.Errorf("invalid recipient address %q", req.To))
		return
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(req.AmountWei), 10)
	if !ok || amount.Sign() <= 0 {
		writeError(w, errors.Errorf("invalid amount %q", req.AmountWei))
		return
	}

	transfer := eth.Transfer{
		To:     ethcommon.HexToAddress(req.To),
		Amount: amount,
		Mode:   eth.FeeMode(req.FeeMode),
	}

	var hash string
	err := s.keeper.WithWallet(func(wal *wallet.Wallet) error {
		if req.TokenAddress != "" {
			for i := range wal.ETH.TrackedTokens {
				if strings.EqualFold(wal.ETH.TrackedTokens[i].Address, req.TokenAddress) {
					transfer.Token = &wal.ETH.TrackedTokens[i]
					break
				}
			}
			if transfer.Token == nil {
				return errors.Errorf("token %s is not tracked", req.TokenAddress)
			}
		}

		from, derr := wal.ETH.Address()
		if derr != nil {
			return derr
		}
		tx, derr := s.ethc.Build(r.Context(), from, transfer)
		if derr != nil {
			return derr
		}
		signed, derr := s.ethc.Sign(tx, wal.ETH)
		if derr != nil {
			return derr
		}
		if derr := s.ethc.Send(r.Context(), signed); derr != nil {
			return derr
		}
		wal.LastUsedChain = wallet.ChainEthereum
		hash = signed.Hash().Hex()
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"tx_hash": hash})
}

// checkSessionTarget enforces that an operation naming a wallet matches the
// unlocked one.
func (s *Server) checkSessionTarget(name string) error {
	if name == "" {
		return nil
	}
	current, ok := s.keeper.WalletName()
	if !ok {
		return session.ErrNoSession
	}
	if current != name {
		return session.ErrWrongSession
	}
	return nil
}
