package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Direction is the side of a trade relative to the target token.
type Direction int

const (
	// Buy spends the native asset (or the intermediate token) for the target.
	Buy Direction = iota
	// Sell spends the target token.
	Sell
)

func (d Direction) String() string {
	switch d {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// TradeIntent captures one user-entered trade. Intents are immutable; every
// edit of the input field produces a fresh intent.
type TradeIntent struct {
	Direction   Direction
	InputAsset  common.Address
	OutputAsset common.Address
	InputAmount *big.Int
	SlippageBps uint32
	Deadline    int64
}

// MinimumOut applies the intent's slippage tolerance to an estimated output:
// estimated * (10000 - slippageBps) / 10000, floored. A tolerance at or above
// 100% accepts any output, so the floor is zero.
func (t TradeIntent) MinimumOut(estimated *big.Int) *big.Int {
	if estimated == nil {
		return new(big.Int)
	}
	bps := t.SlippageBps
	if bps > 10000 {
		bps = 10000
	}
	out := new(big.Int).Mul(estimated, big.NewInt(int64(10000-bps)))
	return out.Div(out, big.NewInt(10000))
}
