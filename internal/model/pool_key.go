package model

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
)

// NativeCurrency is the zero-address sentinel the pool manager uses for the
// chain's native asset. It sorts before every token address, so a native
// pair always has the native asset as Currency0.
var NativeCurrency = common.Address{}

// PoolKey identifies one concentrated-liquidity pool. Currencies are ordered
// canonically (lower address first); direction flags are always derived from
// this ordering, never assumed.
type PoolKey struct {
	Currency0   common.Address
	Currency1   common.Address
	Fee         uint32
	TickSpacing int32
	Hooks       common.Address
}

// NewPoolKey builds a PoolKey with a and b placed in canonical order.
func NewPoolKey(a, b common.Address, fee uint32, tickSpacing int32, hooks common.Address) PoolKey {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	return PoolKey{
		Currency0:   a,
		Currency1:   b,
		Fee:         fee,
		TickSpacing: tickSpacing,
		Hooks:       hooks,
	}
}

// ZeroForOne reports whether a swap spending input trades currency0 for
// currency1 in this pool.
func (k PoolKey) ZeroForOne(input common.Address) bool {
	return input == k.Currency0
}

// Involves reports whether the pool trades the given currency.
func (k PoolKey) Involves(currency common.Address) bool {
	return currency == k.Currency0 || currency == k.Currency1
}

// Other returns the pool currency paired with the given one.
func (k PoolKey) Other(currency common.Address) common.Address {
	if currency == k.Currency0 {
		return k.Currency1
	}
	return k.Currency0
}
