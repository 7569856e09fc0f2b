package batch

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapEngine/internal/approval"
	"swapEngine/internal/model"
)

// Planner assembles the minimal ordered list of calls for one submission
// attempt: outstanding approval step(s), if any, followed by the swap call.
type Planner struct {
	capability *Capability
	proxy      common.Address
	router     common.Address
	logger     *zap.Logger
}

// NewPlanner builds a Planner. proxy is the spender proxy, router the swap
// router the plan targets.
func NewPlanner(capability *Capability, proxy, router common.Address, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{
		capability: capability,
		proxy:      proxy,
		router:     router,
		logger:     logger,
	}
}

// Plan produces the call list for the given approval state. When the signer
// supports atomic multi-call submission and approvals are outstanding, the
// whole list is one atomic plan; otherwise callers submit sequentially,
// re-deriving the approval state between steps. A plan never carries an
// approval call for a state that is already Ready or NotRequired.
func (p *Planner) Plan(ctx context.Context, state model.ApprovalState, intent model.TradeIntent, swapCalldata []byte, signer common.Address, proxyExpiry int64) (model.BatchPlan, error) {
	if len(swapCalldata) == 0 {
		return model.BatchPlan{}, fmt.Errorf("swap calldata is empty")
	}

	calls := make([]model.PlannedCall, 0, 3)

	switch state {
	case model.NeedsSpenderApproval:
		tokenApprove, err := approval.TokenApproveCalldata(p.proxy)
		if err != nil {
			return model.BatchPlan{}, err
		}
		calls = append(calls, model.PlannedCall{
			Target:   intent.InputAsset,
			Calldata: tokenApprove,
			Value:    new(big.Int),
			Label:    "approve token",
		})
		fallthrough
	case model.NeedsRouterApproval:
		proxyApprove, err := approval.ProxyApproveCalldata(intent.InputAsset, p.router, proxyExpiry)
		if err != nil {
			return model.BatchPlan{}, err
		}
		calls = append(calls, model.PlannedCall{
			Target:   p.proxy,
			Calldata: proxyApprove,
			Value:    new(big.Int),
			Label:    "approve router",
		})
	case model.Ready, model.NotRequired:
		// No approval steps.
	default:
		return model.BatchPlan{}, fmt.Errorf("unknown approval state %d", state)
	}

	value := new(big.Int)
	if intent.InputAsset == model.NativeCurrency {
		value.Set(intent.InputAmount)
	}
	calls = append(calls, model.PlannedCall{
		Target:   p.router,
		Calldata: swapCalldata,
		Value:    value,
		Label:    "swap",
	})

	atomic := len(calls) > 1 && p.capability != nil && p.capability.SupportsAtomic(ctx, signer)
	if len(calls) > 1 && !atomic {
		p.logger.Debug("signer lacks atomic batching, plan will run sequentially",
			zap.Int("calls", len(calls)))
	}

	return model.BatchPlan{Calls: calls, Atomic: atomic}, nil
}
