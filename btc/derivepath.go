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

package btc

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pkg/errors"
)

// Hardened is the BIP32 hardened derivation marker.
const Hardened uint32 = hdkeychain.HardenedKeyStart

// Change selects the external (receive) or internal (change) chain of an
// account.
type Change uint32

const (
	// ChangeExternal addresses are visible outside the wallet, e.g. for
	// receiving payments.
	ChangeExternal Change = 0
	// ChangeInternal addresses collect transaction change and are never
	// shown to counterparties.
	ChangeInternal Change = 1
)

func ChangeFromUint32(v uint32) (Change, error) {
	switch v {
	case 0:
		return ChangeExternal, nil
	case 1:
		return ChangeInternal, nil
	default:
		return 0, errors.Errorf("invalid change component: %d", v)
	}
}

// Purpose is the BIP43 purpose component. Only BIP86 (taproot, key-path
// spends) is supported.
type Purpose uint32

const PurposeBIP86 Purpose = 86

func PurposeFromUint32(v uint32) (Purpose, error) {
	if v != uint32(PurposeBIP86) {
		return 0, errors.Errorf("invalid purpose: %d", v)
	}
	return PurposeBIP86, nil
}

// CoinTypeForNetwork renders the network as a BIP44 coin type: 0 for mainnet,
// 1 for every test network.
func CoinTypeForNetwork(params *chaincfg.Params) uint32 {
	if params.Net == chaincfg.MainNetParams.Net {
		return 0
	}
	return 1
}

// DerivePathSlice is the fixed-width wire form of a derivation path:
// m / purpose' / coin_type' / account' / change / index, with the first three
// components carrying the hardened marker.
type DerivePathSlice [5]uint32

// DerivePath is one BIP86 key location inside the wallet tree.
type DerivePath struct {
	Purpose  Purpose
	CoinType uint32
	Account  uint32
	Change   Change
	Index    uint32
}

// NewDerivePath builds a BIP86 path on the given network.
func NewDerivePath(params *chaincfg.Params, account uint32, change Change, index uint32) DerivePath {
	return DerivePath{
		Purpose:  PurposeBIP86,
		CoinType: CoinTypeForNetwork(params),
		Account:  account,
		Change:   change,
		Index:    index,
	}
}

// String renders the canonical textual form, e.g. "m/86'/0'/0'/0/5".
func (p DerivePath) String() string {
	return fmt.Sprintf("m/%d'/%d'/%d'/%d/%d", p.Purpose, p.CoinType, p.Account, p.Change, p.Index)
}

// ToSlice encodes the path with hardened markers on the first three
// components.
func (p DerivePath) ToSlice() DerivePathSlice {
	return DerivePathSlice{
		Hardened + uint32(p.Purpose),
		Hardened + p.CoinType,
		Hardened + p.Account,
		uint32(p.Change),
		p.Index,
	}
}

// DerivePathFromSlice decodes a fixed-width tuple, validating hardened
// markers and component ranges.
func DerivePathFromSlice(v DerivePathSlice) (DerivePath, error) {
	if v[0] < Hardened || v[1] < Hardened || v[2] < Hardened {
		return DerivePath{}, errors.New("purpose, coin type and account must be hardened")
	}
	purpose, err := PurposeFromUint32(v[0] - Hardened)
	if err != nil {
		return DerivePath{}, err
	}
	coinType := v[1] - Hardened
	if coinType > 1 {
		return DerivePath{}, errors.Errorf("invalid coin type: %d", coinType)
	}
	change, err := ChangeFromUint32(v[3])
	if err != nil {
		return DerivePath{}, err
	}
	return DerivePath{
		Purpose:  purpose,
		CoinType: coinType,
		Account:  v[2] - Hardened,
		Change:   change,
		Index:    v[4],
	}, nil
}

// LabeledPath is a user-visible derived address entry.
type LabeledPath struct {
	Label string     `json:"label"`
	Path  DerivePath `json:"path"`
}
