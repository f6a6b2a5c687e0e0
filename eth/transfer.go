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

package eth

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/pkg/errors"

	"github.com/satellion/satellion/wallet"
)

const etherTransferGas = params.TxGas

// Balance-check failures carry formatted amounts for the UI.
type (
	// InsufficientEtherError: the ether balance cannot cover amount+fees.
	InsufficientEtherError struct {
		CurrentBalance string
		MaxSendable    string
	}
	// InsufficientGasError: the balance cannot even cover the fees.
	InsufficientGasError struct {
		CurrentBalance string
		EstimatedFee   string
	}
	// InsufficientTokensError: the token balance is below the requested
	// amount.
	InsufficientTokensError struct{}
)

func (e *InsufficientEtherError) Error() string {
	return "insufficient ETH: you can send a maximum of " + e.MaxSendable
}

func (e *InsufficientGasError) Error() string {
	return "insufficient ether for gas: balance is " + e.CurrentBalance +
		", but estimated fee cost is " + e.EstimatedFee
}

func (e *InsufficientTokensError) Error() string { return "not enough tokens" }

// Transfer is the tagged transfer variant: Token nil means plain ether,
// otherwise an ERC20 transfer of that token.
type Transfer struct {
	Token  *wallet.Token
	To     common.Address
	Amount *big.Int
	Mode   FeeMode
}

// Build assembles an unsigned EIP-1559 transaction for the transfer, after
// checking that the sender can actually fund it.
func (c *Client) Build(ctx context.Context, from common.Address, req Transfer) (*types.Transaction, error) {
	fees, err := c.EstimateFees(ctx)
	if err != nil {
		return nil, err
	}
	estimation := fees.Get(req.Mode)

	nonce, err := c.Backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, errors.Wrap(err, "cannot fetch nonce")
	}
	balance, err := c.Backend.BalanceAt(ctx, from, nil)
	if err != nil {
		return nil, errors.Wrap(err, "cannot fetch balance")
	}

	if req.Token == nil {
		return c.buildEther(from, req, nonce, balance, estimation)
	}
	return c.buildToken(ctx, from, req, nonce, balance, estimation)
}

func (c *Client) buildEther(from common.Address, req Transfer, nonce uint64, balance *big.Int, est Estimation) (*types.Transaction, error) {
	fee := new(big.Int).Mul(est.MaxFeePerGas, big.NewInt(int64(etherTransferGas)))
	if balance.Cmp(fee) < 0 {
		return nil, &InsufficientGasError{
			CurrentBalance: formatEther(balance),
			EstimatedFee:   formatEther(fee),
		}
	}
	maxSendable := new(big.Int).Sub(balance, fee)
	if req.Amount.Cmp(maxSendable) > 0 {
		return nil, &InsufficientEtherError{
			CurrentBalance: formatEther(balance),
			MaxSendable:    formatEther(maxSendable),
		}
	}

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.ChainID,
		Nonce:     nonce,
		To:        &req.To,
		Value:     req.Amount,
		Gas:       etherTransferGas,
		GasFeeCap: est.MaxFeePerGas,
		GasTipCap: est.MaxPriorityFeePerGas,
	}), nil
}

func (c *Client) buildToken(ctx context.Context, from common.Address, req Transfer, nonce uint64, balance *big.Int, est Estimation) (*types.Transaction, error) {
	tokenAddr := common.HexToAddress(req.Token.Address)

	tokenBalance, err := c.TokenBalance(ctx, tokenAddr, from)
	if err != nil {
		return nil, err
	}
	if tokenBalance.Cmp(req.Amount) < 0 {
		return nil, &InsufficientTokensError{}
	}

	data, err := PackTransfer(req.To, req.Amount)
	if err != nil {
		return nil, err
	}
	gas, err := c.Backend.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &tokenAddr,
		Data: data,
	})
	if err != nil {
		return nil, errors.Wrap(err, "token transfer gas estimation failed")
	}

	fee := new(big.Int).Mul(est.MaxFeePerGas, new(big.Int).SetUint64(gas))
	if balance.Cmp(fee) < 0 {
		return nil, &InsufficientGasError{
			CurrentBalance: formatEther(balance),
			EstimatedFee:   formatEther(fee),
		}
	}

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.ChainID,
		Nonce:     nonce,
		To:        &tokenAddr,
		Value:     big.NewInt(0),
		Gas:       gas,
		GasFeeCap: est.MaxFeePerGas,
		GasTipCap: est.MaxPriorityFeePerGas,
		Data:      data,
	}), nil
}

// Sign signs with the wallet's resident key and returns the signed tx.
func (c *Client) Sign(tx *types.Transaction, data *wallet.EthereumData) (*types.Transaction, error) {
	var signed *types.Transaction
	err := data.WithSigner(func(key *ecdsa.PrivateKey) error {
		var serr error
		signed, serr = types.SignTx(tx, types.LatestSignerForChainID(c.ChainID), key)
		return serr
	})
	if err != nil {
		return nil, errors.Wrap(err, "cannot sign transaction")
	}
	return signed, nil
}

// Send broadcasts a signed transaction.
func (c *Client) Send(ctx context.Context, tx *types.Transaction) error {
	if err := c.Backend.SendTransaction(ctx, tx); err != nil {
		return errors.Wrap(err, "transaction broadcast failed")
	}
	logger.Info("transaction broadcast", "hash", tx.Hash())
	return nil
}

// formatEther renders wei as a decimal ether string.
func formatEther(wei *big.Int) string {
	f := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.Ether))
	return f.Text('f', 6) + " ETH"
}
