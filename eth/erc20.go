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
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"math/big"

	"github.com/satellion/satellion/wallet"
)

const erc20ABIJSON = `[
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

var erc20ABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic(err)
	}
	erc20ABI = parsed
}

// TokenInfo queries symbol and decimals of an ERC20 contract so the wallet
// can start tracking it.
func (c *Client) TokenInfo(ctx context.Context, address common.Address) (wallet.Token, error) {
	symbolRaw, err := c.callERC20(ctx, address, "symbol")
	if err != nil {
		return wallet.Token{}, errors.Wrap(err, "cannot fetch token symbol")
	}
	symbolOut, err := erc20ABI.Unpack("symbol", symbolRaw)
	if err != nil || len(symbolOut) != 1 {
		return wallet.Token{}, errors.Wrap(err, "cannot decode token symbol")
	}
	symbol, ok := symbolOut[0].(string)
	if !ok {
		return wallet.Token{}, errors.New("token symbol is not a string")
	}

	decimalsRaw, err := c.callERC20(ctx, address, "decimals")
	if err != nil {
		return wallet.Token{}, errors.Wrap(err, "cannot fetch token decimals")
	}
	decimalsOut, err := erc20ABI.Unpack("decimals", decimalsRaw)
	if err != nil || len(decimalsOut) != 1 {
		return wallet.Token{}, errors.Wrap(err, "cannot decode token decimals")
	}
	decimals, ok := decimalsOut[0].(uint8)
	if !ok {
		return wallet.Token{}, errors.New("token decimals is not a uint8")
	}

	return wallet.Token{
		Address:  address.Hex(),
		Symbol:   symbol,
		Decimals: decimals,
	}, nil
}

// TokenBalance queries the holder's raw (undivided) token balance.
func (c *Client) TokenBalance(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	input, err := erc20ABI.Pack("balanceOf", holder)
	if err != nil {
		return nil, errors.Wrap(err, "cannot pack balanceOf")
	}
	out, err := c.Backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: input}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "balanceOf call failed")
	}
	decoded, err := erc20ABI.Unpack("balanceOf", out)
	if err != nil || len(decoded) != 1 {
		return nil, errors.Wrap(err, "cannot decode balanceOf")
	}
	balance, ok := decoded[0].(*big.Int)
	if !ok {
		return nil, errors.New("balanceOf result is not an integer")
	}
	return balance, nil
}

func (c *Client) callERC20(ctx context.Context, contract common.Address, method string) ([]byte, error) {
	input, err := erc20ABI.Pack(method)
	if err != nil {
		return nil, err
	}
	return c.Backend.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: input}, nil)
}

// PackTransfer builds ERC20 transfer calldata.
func PackTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	data, err := erc20ABI.Pack("transfer", to, amount)
	if err != nil {
		return nil, errors.Wrap(err, "cannot pack transfer")
	}
	return data, nil
}
