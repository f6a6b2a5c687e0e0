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
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	ethcommon "github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"

	"github.com/satellion/satellion/crypto/secret"
)

// Token is an ERC20 token tracked by the wallet, unique by address.
type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// DefaultTokens are installed on wallet creation.
func DefaultTokens() []Token {
	return []Token{
		{Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: 6},
		{Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Symbol: "USDT", Decimals: 6},
	}
}

// EthereumData is the per-wallet Ethereum chain state.
type EthereumData struct {
	TrackedTokens []Token

	key *secret.Cell[ecdsa.PrivateKey]
}

// ethDerivationSteps is BIP44 m/44'/60'/0'/0/0.
var ethDerivationSteps = []uint32{
	hdkeychain.HardenedKeyStart + 44,
	hdkeychain.HardenedKeyStart + 60,
	hdkeychain.HardenedKeyStart,
	0,
	0,
}

func newEthereumData(mnemonic, seedPassphrase string) (*EthereumData, error) {
	seed := bip39.NewSeed(mnemonic, seedPassphrase)
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, errors.Wrap(err, "cannot derive ethereum master key")
	}
	defer key.Zero()

	for _, step := range ethDerivationSteps {
		key, err = key.Derive(step)
		if err != nil {
			return nil, errors.Wrap(err, "ethereum signer derivation failed")
		}
	}
	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, errors.Wrap(err, "cannot extract ethereum private key")
	}
	ecdsaKey, err := ethcrypto.ToECDSA(priv.Serialize())
	priv.Zero()
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert ethereum private key")
	}

	return &EthereumData{
		TrackedTokens: DefaultTokens(),
		key: secret.NewCell(ecdsaKey, func(k *ecdsa.PrivateKey) {
			k.D.SetInt64(0)
			k.X, k.Y = big.NewInt(0), big.NewInt(0)
		}),
	}, nil
}

func (d *EthereumData) Wipe() {
	if d.key != nil {
		d.key.Wipe()
	}
}

// Address is the wallet's Ethereum account address.
func (d *EthereumData) Address() (ethcommon.Address, error) {
	var addr ethcommon.Address
	err := d.key.Expose(func(k *ecdsa.PrivateKey) error {
		addr = ethcrypto.PubkeyToAddress(k.PublicKey)
		return nil
	})
	return addr, err
}

// WithSigner exposes the signing key to f for the duration of the call.
func (d *EthereumData) WithSigner(f func(*ecdsa.PrivateKey) error) error {
	return d.key.Expose(f)
}

// TrackToken records a token. Tracking an already-known address is an error.
func (d *EthereumData) TrackToken(token Token) error {
	for _, t := range d.TrackedTokens {
		if strings.EqualFold(t.Address, token.Address) {
			return errors.Errorf("token %s is already tracked", token.Symbol)
		}
	}
	d.TrackedTokens = append(d.TrackedTokens, token)
	return nil
}

// UntrackToken removes a token by address.
func (d *EthereumData) UntrackToken(address string) error {
	for i, t := range d.TrackedTokens {
		if strings.EqualFold(t.Address, address) {
			d.TrackedTokens = append(d.TrackedTokens[:i], d.TrackedTokens[i+1:]...)
			return nil
		}
	}
	return errors.Errorf("token %s is not tracked", address)
}
