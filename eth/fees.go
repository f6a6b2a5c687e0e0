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
	"math/big"

	"github.com/pkg/errors"
)

// FeeMode selects how aggressively a transfer bids for inclusion.
type FeeMode string

const (
	FeeMinimal   FeeMode = "minimal"
	FeeStandard  FeeMode = "standard"
	FeeIncreased FeeMode = "increased"
)

// feeHistoryBlocks is the sample window for percentile estimation.
const feeHistoryBlocks = 100

// Reward percentiles per fee mode, in the order sent to eth_feeHistory.
var feePercentiles = []float64{10, 50, 75}

// Estimation is one EIP-1559 fee pair.
type Estimation struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// Estimations carries the three fee tiers derived from recent history.
type Estimations struct {
	Minimal   Estimation
	Standard  Estimation
	Increased Estimation
}

// Get selects a tier.
func (e *Estimations) Get(mode FeeMode) Estimation {
	switch mode {
	case FeeMinimal:
		return e.Minimal
	case FeeIncreased:
		return e.Increased
	default:
		return e.Standard
	}
}

// EstimateFees derives the three tiers from eth_feeHistory: the priority fee
// is the average of the sampled percentile rewards, the max fee doubles the
// latest base fee on top of it.
func (c *Client) EstimateFees(ctx context.Context) (*Estimations, error) {
	history, err := c.Backend.FeeHistory(ctx, feeHistoryBlocks, nil, feePercentiles)
	if err != nil {
		return nil, errors.Wrap(err, "fee history query failed")
	}
	if len(history.BaseFee) == 0 {
		return nil, errors.New("fee history returned no base fee")
	}
	baseFee := history.BaseFee[len(history.BaseFee)-1]

	tiers := make([]Estimation, len(feePercentiles))
	for i := range feePercentiles {
		tip := averageReward(history.Reward, i)
		// base fee may double per block; bidding 2x absorbs short spikes.
		maxFee := new(big.Int).Mul(baseFee, big.NewInt(2))
		maxFee.Add(maxFee, tip)
		tiers[i] = Estimation{MaxFeePerGas: maxFee, MaxPriorityFeePerGas: tip}
	}
	return &Estimations{Minimal: tiers[0], Standard: tiers[1], Increased: tiers[2]}, nil
}

// averageReward averages column idx of the per-block percentile rewards.
func averageReward(rewards [][]*big.Int, idx int) *big.Int {
	sum := new(big.Int)
	count := int64(0)
	for _, block := range rewards {
		if idx >= len(block) || block[idx] == nil {
			continue
		}
		sum.Add(sum, block[idx])
		count++
	}
	if count == 0 {
		return big.NewInt(0)
	}
	return sum.Div(sum, big.NewInt(count))
}
