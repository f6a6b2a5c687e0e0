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

// Package eth talks to the configured Ethereum endpoint: balances, tracked
// ERC20 tokens, EIP-1559 fee estimation and transfer building.
package eth

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"

	"github.com/satellion/satellion/log"
)

var logger = log.NewModuleLogger(log.ETH)

// Backend is the slice of the RPC client surface this package consumes;
// *ethclient.Client satisfies it, tests substitute fakes.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FeeHistory(ctx context.Context, blockCount uint64, lastBlock *big.Int, rewardPercentiles []float64) (*ethereum.FeeHistory, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Client bundles the backend with its resolved chain id.
type Client struct {
	Backend Backend
	ChainID *big.Int
}

// Dial connects to the configured RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	backend, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot dial ethereum rpc %s", rpcURL)
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "cannot resolve chain id")
	}
	logger.Info("connected to ethereum endpoint", "url", rpcURL, "chainId", chainID)
	return &Client{Backend: backend, ChainID: chainID}, nil
}

// Balance returns the account's ether balance in wei.
func (c *Client) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	return c.Backend.BalanceAt(ctx, account, nil)
}
