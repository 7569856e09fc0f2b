package approval

import (
	"math/big"

	"swapEngine/internal/model"
)

// ProxyAllowance is the spender proxy's grant toward the router.
type ProxyAllowance struct {
	Amount *big.Int
	Expiry int64
}

// DeriveState collapses the two allowance reads into one approval state. It
// is a pure function of its inputs and is recomputed whenever the required
// amount or the traded asset changes; the result is advisory only and never
// cached across those changes.
//
// A zero (or nil) required amount never yields an approval-needed state.
func DeriveState(tokenAllowance *big.Int, proxy ProxyAllowance, required *big.Int, now int64) model.ApprovalState {
	if required == nil || required.Sign() == 0 {
		return model.Ready
	}
	if tokenAllowance == nil || tokenAllowance.Cmp(required) < 0 {
		return model.NeedsSpenderApproval
	}
	if proxy.Amount == nil || proxy.Amount.Cmp(required) < 0 || proxy.Expiry < now {
		return model.NeedsRouterApproval
	}
	return model.Ready
}

// StateForIntent derives the state for a trade, short-circuiting to
// NotRequired when the spent asset is the native currency, which never needs
// an approval.
func StateForIntent(intent model.TradeIntent, tokenAllowance *big.Int, proxy ProxyAllowance, now int64) model.ApprovalState {
	if intent.InputAsset == model.NativeCurrency {
		return model.NotRequired
	}
	return DeriveState(tokenAllowance, proxy, intent.InputAmount, now)
}
