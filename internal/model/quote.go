package model

import "math/big"

// LiquiditySource tags which venue filled a portion of a quote.
type LiquiditySource string

const (
	SourceAMM LiquiditySource = "amm"
	SourceOTC LiquiditySource = "otc"
)

// Confidence grades how a quote was derived.
type Confidence int

const (
	// Exact quotes come straight from an on-chain simulation.
	Exact Confidence = iota
	// Estimated quotes went through the inverted-rate correction or a
	// fallback and may deviate from execution.
	Estimated
)

func (c Confidence) String() string {
	if c == Exact {
		return "exact"
	}
	return "estimated"
}

// SourcePortion is one venue's share of a quoted trade.
type SourcePortion struct {
	Source        LiquiditySource
	InputPortion  *big.Int
	OutputPortion *big.Int
}

// Quote is a disposable output estimate for one TradeIntent. A newer
// debounced request supersedes it.
type Quote struct {
	EstimatedOut *big.Int
	Breakdown    []SourcePortion
	Confidence   Confidence
}
