package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// RouterCall is the fully encoded payload for one router invocation.
type RouterCall struct {
	Commands []byte
	Inputs   [][]byte
	Deadline *big.Int
}

// PlannedCall is one entry of a BatchPlan.
type PlannedCall struct {
	Target   common.Address
	Calldata []byte
	Value    *big.Int
	Label    string
}

// BatchPlan is the ordered list of calls for one submission attempt. An
// approval call for a (token, spender) pair appears at most once and always
// precedes the call that depends on it.
type BatchPlan struct {
	Calls  []PlannedCall
	Atomic bool
}
