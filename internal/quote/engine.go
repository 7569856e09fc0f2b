package quote

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapEngine/internal/metrics"
	"swapEngine/internal/model"
)

// ContractCaller is the read-only chain surface the engine needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Route is the resolved pool path for one trade: one key for a direct pair,
// two keys in hop order for the indirect buy path. Indirect marks pairs
// whose forward direction is not independently quotable, enabling the
// conservative sell fallback.
type Route struct {
	Keys     []model.PoolKey
	Indirect bool
}

// Engine computes output estimates by simulating against the on-chain quoter
// and decomposing hybrid-source pricing.
type Engine struct {
	caller     ContractCaller
	quoter     common.Address
	hybrid     common.Address
	correction *big.Rat
	probeUnit  *big.Int
	logger     *zap.Logger
}

// NewEngine builds an Engine. correction is the empirical factor applied to
// the inverted second-hop rate; it is calibrated against observed full-route
// simulations and may need re-calibration if fee tiers or liquidity depth
// change materially.
func NewEngine(caller ContractCaller, quoter, hybrid common.Address, correction float64, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	corr := new(big.Rat).SetFloat64(correction)
	if corr == nil || corr.Sign() <= 0 {
		corr = big.NewRat(77, 100)
	}
	return &Engine{
		caller:     caller,
		quoter:     quoter,
		hybrid:     hybrid,
		correction: corr,
		probeUnit:  new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil),
		logger:     logger,
	}
}

// SetProbeDecimals sizes the reverse-probe unit to the target token's
// decimals, so "one unit" stays one whole token for non-18-decimal targets.
// Out-of-range values keep the current unit.
func (e *Engine) SetProbeDecimals(decimals int) {
	if decimals <= 0 || decimals > 36 {
		return
	}
	e.probeUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// Quote estimates the output for one intent over the resolved route.
func (e *Engine) Quote(ctx context.Context, intent model.TradeIntent, route Route) (model.Quote, error) {
	start := time.Now()
	q, err := e.quote(ctx, intent, route)
	metrics.QuoteDuration.Observe(time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.QuoteRequests.WithLabelValues(intent.Direction.String(), status).Inc()
	return q, err
}

func (e *Engine) quote(ctx context.Context, intent model.TradeIntent, route Route) (model.Quote, error) {
	if intent.InputAmount == nil || intent.InputAmount.Sign() <= 0 {
		return model.Quote{}, fmt.Errorf("input amount must be positive")
	}
	if len(route.Keys) == 0 {
		return model.Quote{}, fmt.Errorf("route has no pools")
	}

	switch {
	case len(route.Keys) == 2 && intent.Direction == model.Buy:
		return e.quoteIndirectBuy(ctx, intent, route.Keys[0], route.Keys[1])
	case intent.Direction == model.Sell && route.Indirect:
		return e.quoteSellWithFallback(ctx, intent, route.Keys[0])
	default:
		out, err := e.simulateExactIn(ctx, route.Keys[0], intent.InputAsset, intent.InputAmount)
		if err != nil {
			return model.Quote{}, err
		}
		return model.Quote{
			EstimatedOut: out,
			Breakdown: []model.SourcePortion{{
				Source:        model.SourceAMM,
				InputPortion:  new(big.Int).Set(intent.InputAmount),
				OutputPortion: new(big.Int).Set(out),
			}},
			Confidence: model.Exact,
		}, nil
	}
}

// quoteIndirectBuy prices the two-hop buy path: native -> intermediate via
// the hybrid source, then intermediate -> target via an inverted reverse
// quote, since the forward leg is not independently quotable here.
func (e *Engine) quoteIndirectBuy(ctx context.Context, intent model.TradeIntent, first, second model.PoolKey) (model.Quote, error) {
	amountIn := intent.InputAmount

	// Un-split full-amount rate. Used both as the leg-1 baseline and as the
	// pro-rata rate for the OTC portion, which must not be priced at the
	// impacted marginal rate of the smaller AMM sub-swap.
	fullOut, err := e.simulateExactIn(ctx, first, intent.InputAsset, amountIn)
	if err != nil {
		return model.Quote{}, err
	}

	otcAmount, swapAmount, feeBps, err := e.hybridSplit(ctx, amountIn)
	if err != nil {
		e.logger.Debug("hybrid split unavailable, quoting leg as pure AMM", zap.Error(err))
		otcAmount, swapAmount = new(big.Int), new(big.Int).Set(amountIn)
		feeBps = new(big.Int)
	}

	leg1Out := new(big.Int)
	breakdown := make([]model.SourcePortion, 0, 2)

	if otcAmount.Sign() > 0 {
		swapOut := new(big.Int)
		if swapAmount.Sign() > 0 {
			swapOut, err = e.simulateExactIn(ctx, first, intent.InputAsset, swapAmount)
			if err != nil {
				return model.Quote{}, err
			}
		}

		otcOut := new(big.Int).Mul(fullOut, otcAmount)
		otcOut.Div(otcOut, amountIn)
		fee := new(big.Int).Mul(otcOut, feeBps)
		fee.Div(fee, big.NewInt(10000))
		otcOut.Sub(otcOut, fee)

		leg1Out.Add(swapOut, otcOut)
		breakdown = append(breakdown,
			model.SourcePortion{Source: model.SourceOTC, InputPortion: otcAmount, OutputPortion: otcOut},
			model.SourcePortion{Source: model.SourceAMM, InputPortion: swapAmount, OutputPortion: swapOut},
		)
	} else {
		leg1Out.Set(fullOut)
		breakdown = append(breakdown, model.SourcePortion{
			Source:        model.SourceAMM,
			InputPortion:  new(big.Int).Set(amountIn),
			OutputPortion: new(big.Int).Set(fullOut),
		})
	}

	// Reverse-quote one unit of the target through the second pool and
	// invert the rate algebraically, then damp it with the correction
	// factor for one-sided curvature and the extra hop's slippage.
	reverseOut, err := e.simulateExactIn(ctx, second, intent.OutputAsset, e.probeUnit)
	if err != nil {
		return model.Quote{}, err
	}
	if reverseOut.Sign() <= 0 {
		return model.Quote{}, fmt.Errorf("%w: reverse probe returned zero", model.ErrQuoteReverted)
	}

	finalOut := new(big.Int).Mul(leg1Out, e.probeUnit)
	finalOut.Div(finalOut, reverseOut)
	finalOut.Mul(finalOut, e.correction.Num())
	finalOut.Div(finalOut, e.correction.Denom())

	return model.Quote{
		EstimatedOut: finalOut,
		Breakdown:    breakdown,
		Confidence:   model.Estimated,
	}, nil
}

// quoteSellWithFallback quotes a single sell hop, degrading to a 1:1
// placeholder on revert so the trade form stays usable.
func (e *Engine) quoteSellWithFallback(ctx context.Context, intent model.TradeIntent, key model.PoolKey) (model.Quote, error) {
	out, err := e.simulateExactIn(ctx, key, intent.InputAsset, intent.InputAmount)
	confidence := model.Exact
	if err != nil {
		e.logger.Warn("sell quote reverted, falling back to 1:1", zap.Error(err))
		out = new(big.Int).Set(intent.InputAmount)
		confidence = model.Estimated
	}
	return model.Quote{
		EstimatedOut: out,
		Breakdown: []model.SourcePortion{{
			Source:        model.SourceAMM,
			InputPortion:  new(big.Int).Set(intent.InputAmount),
			OutputPortion: new(big.Int).Set(out),
		}},
		Confidence: confidence,
	}, nil
}

type quoterPoolKey struct {
	Currency0   common.Address
	Currency1   common.Address
	Fee         *big.Int
	TickSpacing *big.Int
	Hooks       common.Address
}

type quoteExactSingleParams struct {
	PoolKey     quoterPoolKey
	ZeroForOne  bool
	ExactAmount *big.Int
	HookData    []byte
}

// simulateExactIn issues one read-only quoter simulation. The zeroForOne
// flag is derived from the pool's canonical currency ordering.
func (e *Engine) simulateExactIn(ctx context.Context, key model.PoolKey, input common.Address, amount *big.Int) (*big.Int, error) {
	parsed, err := QuoterABI()
	if err != nil {
		return nil, fmt.Errorf("parse quoter abi: %w", err)
	}

	params := quoteExactSingleParams{
		PoolKey: quoterPoolKey{
			Currency0:   key.Currency0,
			Currency1:   key.Currency1,
			Fee:         new(big.Int).SetUint64(uint64(key.Fee)),
			TickSpacing: big.NewInt(int64(key.TickSpacing)),
			Hooks:       key.Hooks,
		},
		ZeroForOne:  key.ZeroForOne(input),
		ExactAmount: amount,
		HookData:    []byte{},
	}

	data, err := parsed.Pack("quoteExactInputSingle", params)
	if err != nil {
		return nil, fmt.Errorf("pack quote: %w", err)
	}

	msg := ethereum.CallMsg{To: &e.quoter, Data: data}
	resp, err := e.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrQuoteReverted, err)
	}

	values, err := parsed.Unpack("quoteExactInputSingle", resp)
	if err != nil {
		return nil, fmt.Errorf("unpack quote: %w", err)
	}
	out, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected amountOut type %T", values[0])
	}
	return out, nil
}

// hybridSplit asks the hybrid source how amountIn divides between its OTC
// reserve and the AMM pass-through, plus its current fee rate.
func (e *Engine) hybridSplit(ctx context.Context, amountIn *big.Int) (otcAmount, swapAmount, feeBps *big.Int, err error) {
	parsed, err := HybridABI()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse hybrid abi: %w", err)
	}

	data, err := parsed.Pack("quoteBuySplit", amountIn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("pack split: %w", err)
	}

	msg := ethereum.CallMsg{To: &e.hybrid, Data: data}
	resp, err := e.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("call split: %w", err)
	}

	values, err := parsed.Unpack("quoteBuySplit", resp)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("unpack split: %w", err)
	}
	if len(values) < 3 {
		return nil, nil, nil, fmt.Errorf("split returned %d values", len(values))
	}

	otcAmount, _ = values[0].(*big.Int)
	swapAmount, _ = values[1].(*big.Int)
	feeBps, _ = values[2].(*big.Int)
	if otcAmount == nil || swapAmount == nil || feeBps == nil {
		return nil, nil, nil, fmt.Errorf("split returned unexpected types")
	}
	return otcAmount, swapAmount, feeBps, nil
}
