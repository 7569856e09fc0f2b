package quote

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"swapEngine/internal/model"
)

var (
	quoterAddr = common.HexToAddress("0xaa00000000000000000000000000000000000001")
	hybridAddr = common.HexToAddress("0xbb00000000000000000000000000000000000002")
	tokenMid   = common.HexToAddress("0x1000000000000000000000000000000000000001")
	tokenOut   = common.HexToAddress("0x2000000000000000000000000000000000000002")
)

// amt scales n by 1e16, so amt(100) is one whole 18-decimal token.
func amt(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil))
}

type quoteRequest struct {
	currency0  common.Address
	currency1  common.Address
	zeroForOne bool
	amount     *big.Int
}

// fakeCaller answers quoter and hybrid calls by decoding the real calldata
// and packing real return data, so the engine's ABI handling is exercised.
type fakeCaller struct {
	t        *testing.T
	quoteFn  func(req quoteRequest) (*big.Int, error)
	splitFn  func(amountIn *big.Int) (otc, swap, fee *big.Int, err error)
	requests []quoteRequest
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	switch *msg.To {
	case quoterAddr:
		parsed, err := QuoterABI()
		if err != nil {
			f.t.Fatalf("parse quoter abi: %v", err)
		}
		method := parsed.Methods["quoteExactInputSingle"]
		values, err := method.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			f.t.Fatalf("unpack quoter call: %v", err)
		}
		params := reflect.ValueOf(values[0])
		pk := params.FieldByName("PoolKey")
		req := quoteRequest{
			currency0:  pk.FieldByName("Currency0").Interface().(common.Address),
			currency1:  pk.FieldByName("Currency1").Interface().(common.Address),
			zeroForOne: params.FieldByName("ZeroForOne").Bool(),
			amount:     params.FieldByName("ExactAmount").Interface().(*big.Int),
		}
		f.requests = append(f.requests, req)
		out, err := f.quoteFn(req)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(out, big.NewInt(0))
	case hybridAddr:
		if f.splitFn == nil {
			return nil, errors.New("execution reverted")
		}
		parsed, err := HybridABI()
		if err != nil {
			f.t.Fatalf("parse hybrid abi: %v", err)
		}
		method := parsed.Methods["quoteBuySplit"]
		values, err := method.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			f.t.Fatalf("unpack split call: %v", err)
		}
		otc, swap, fee, err := f.splitFn(values[0].(*big.Int))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(otc, swap, fee)
	default:
		return nil, fmt.Errorf("unexpected call target %s", msg.To.Hex())
	}
}

func TestQuoteDirectPairIsExact(t *testing.T) {
	// 1:2000 rate with a 0.3% fee, as the pool simulation would report it.
	caller := &fakeCaller{
		t: t,
		quoteFn: func(req quoteRequest) (*big.Int, error) {
			out := new(big.Int).Mul(req.amount, big.NewInt(2000))
			out.Mul(out, big.NewInt(997))
			return out.Div(out, big.NewInt(1000)), nil
		},
	}
	engine := NewEngine(caller, quoterAddr, hybridAddr, 0.77, nil)

	key := model.NewPoolKey(model.NativeCurrency, tokenMid, 3000, 60, common.Address{})
	intent := model.TradeIntent{
		Direction:   model.Buy,
		InputAsset:  model.NativeCurrency,
		OutputAsset: tokenMid,
		InputAmount: amt(100),
	}

	q, err := engine.Quote(context.Background(), intent, Route{Keys: []model.PoolKey{key}})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}

	if q.EstimatedOut.Cmp(amt(199_400)) != 0 {
		t.Fatalf("estimate mismatch: %s", q.EstimatedOut)
	}
	if q.Confidence != model.Exact {
		t.Fatalf("direct quote must be exact, got %s", q.Confidence)
	}
	if len(q.Breakdown) != 1 || q.Breakdown[0].Source != model.SourceAMM {
		t.Fatalf("unexpected breakdown: %+v", q.Breakdown)
	}
	if q.Breakdown[0].InputPortion.Cmp(intent.InputAmount) != 0 {
		t.Fatalf("breakdown must cover the full input")
	}
}

func TestQuoteIndirectBuyHybridSplit(t *testing.T) {
	amountIn := amt(100)
	fullOut := amt(200_000)
	swapOut := amt(59_000)
	reverseOut := amt(50)

	caller := &fakeCaller{
		t: t,
		quoteFn: func(req quoteRequest) (*big.Int, error) {
			if req.currency0 == model.NativeCurrency {
				switch {
				case req.amount.Cmp(amountIn) == 0:
					return new(big.Int).Set(fullOut), nil
				case req.amount.Cmp(amt(30)) == 0:
					return new(big.Int).Set(swapOut), nil
				}
				return nil, fmt.Errorf("unexpected first-hop amount %s", req.amount)
			}
			return new(big.Int).Set(reverseOut), nil
		},
		splitFn: func(in *big.Int) (*big.Int, *big.Int, *big.Int, error) {
			return amt(70), amt(30), big.NewInt(50), nil
		},
	}
	engine := NewEngine(caller, quoterAddr, hybridAddr, 0.77, nil)

	first := model.NewPoolKey(model.NativeCurrency, tokenMid, 3000, 60, common.Address{})
	second := model.NewPoolKey(tokenMid, tokenOut, 3000, 60, common.Address{})
	intent := model.TradeIntent{
		Direction:   model.Buy,
		InputAsset:  model.NativeCurrency,
		OutputAsset: tokenOut,
		InputAmount: amountIn,
	}

	q, err := engine.Quote(context.Background(), intent, Route{Keys: []model.PoolKey{first, second}})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}

	// otcOut = 200000 * 70/100 minus 50bps = 139300
	// leg1   = 59000 + 139300 = 198300
	// final  = 198300 * (100/50) * 0.77 = 305382
	want := amt(305_382)
	diff := new(big.Int).Sub(q.EstimatedOut, want)
	diff.Abs(diff)
	if diff.Cmp(new(big.Int).Div(want, big.NewInt(10_000))) > 0 {
		t.Fatalf("estimate %s not within 0.01%% of %s", q.EstimatedOut, want)
	}
	if q.Confidence != model.Estimated {
		t.Fatalf("indirect quote must be estimated, got %s", q.Confidence)
	}

	if len(q.Breakdown) != 2 {
		t.Fatalf("expected OTC and AMM portions, got %+v", q.Breakdown)
	}
	inputSum := new(big.Int).Add(q.Breakdown[0].InputPortion, q.Breakdown[1].InputPortion)
	if inputSum.Cmp(amountIn) != 0 {
		t.Fatalf("breakdown inputs sum to %s, want %s", inputSum, amountIn)
	}
	if q.Breakdown[0].Source != model.SourceOTC || q.Breakdown[0].OutputPortion.Cmp(amt(139_300)) != 0 {
		t.Fatalf("otc portion mismatch: %+v", q.Breakdown[0])
	}
	if q.Breakdown[1].Source != model.SourceAMM || q.Breakdown[1].OutputPortion.Cmp(swapOut) != 0 {
		t.Fatalf("amm portion mismatch: %+v", q.Breakdown[1])
	}

	// The second hop is probed in reverse: one unit of the target token,
	// which is currency1 of the second pool.
	probe := caller.requests[len(caller.requests)-1]
	if probe.currency0 != tokenMid || probe.zeroForOne {
		t.Fatalf("reverse probe mis-directed: %+v", probe)
	}
}

func TestQuoteIndirectBuyDegradesWithoutSplit(t *testing.T) {
	amountIn := amt(100)
	caller := &fakeCaller{
		t: t,
		quoteFn: func(req quoteRequest) (*big.Int, error) {
			if req.currency0 == model.NativeCurrency {
				return amt(200_000), nil
			}
			return amt(50), nil
		},
		// splitFn nil: the hybrid call reverts.
	}
	engine := NewEngine(caller, quoterAddr, hybridAddr, 0.77, nil)

	first := model.NewPoolKey(model.NativeCurrency, tokenMid, 3000, 60, common.Address{})
	second := model.NewPoolKey(tokenMid, tokenOut, 3000, 60, common.Address{})
	intent := model.TradeIntent{
		Direction:   model.Buy,
		InputAsset:  model.NativeCurrency,
		OutputAsset: tokenOut,
		InputAmount: amountIn,
	}

	q, err := engine.Quote(context.Background(), intent, Route{Keys: []model.PoolKey{first, second}})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if len(q.Breakdown) != 1 || q.Breakdown[0].Source != model.SourceAMM {
		t.Fatalf("without a split the leg is pure AMM, got %+v", q.Breakdown)
	}
	if q.Breakdown[0].InputPortion.Cmp(amountIn) != 0 {
		t.Fatalf("pure AMM portion must cover the full input")
	}
}

func TestQuoteIndirectProbeUnitTracksTargetDecimals(t *testing.T) {
	caller := &fakeCaller{
		t: t,
		quoteFn: func(req quoteRequest) (*big.Int, error) {
			if req.currency0 == model.NativeCurrency {
				return amt(200_000), nil
			}
			return big.NewInt(2_000_000), nil
		},
	}
	engine := NewEngine(caller, quoterAddr, hybridAddr, 0.77, nil)
	engine.SetProbeDecimals(6)

	first := model.NewPoolKey(model.NativeCurrency, tokenMid, 3000, 60, common.Address{})
	second := model.NewPoolKey(tokenMid, tokenOut, 3000, 60, common.Address{})
	intent := model.TradeIntent{
		Direction:   model.Buy,
		InputAsset:  model.NativeCurrency,
		OutputAsset: tokenOut,
		InputAmount: amt(100),
	}

	if _, err := engine.Quote(context.Background(), intent, Route{Keys: []model.PoolKey{first, second}}); err != nil {
		t.Fatalf("quote failed: %v", err)
	}

	probe := caller.requests[len(caller.requests)-1]
	if probe.amount.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("probe must be one whole 6-decimal unit, got %s", probe.amount)
	}

	engine.SetProbeDecimals(0)
	if engine.probeUnit.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("out-of-range decimals must not change the probe unit")
	}
}

func TestQuoteSellFallsBackOneToOne(t *testing.T) {
	caller := &fakeCaller{
		t: t,
		quoteFn: func(req quoteRequest) (*big.Int, error) {
			return nil, errors.New("execution reverted")
		},
	}
	engine := NewEngine(caller, quoterAddr, hybridAddr, 0.77, nil)

	key := model.NewPoolKey(tokenMid, tokenOut, 3000, 60, common.Address{})
	intent := model.TradeIntent{
		Direction:   model.Sell,
		InputAsset:  tokenOut,
		OutputAsset: tokenMid,
		InputAmount: amt(100),
	}

	q, err := engine.Quote(context.Background(), intent, Route{Keys: []model.PoolKey{key}, Indirect: true})
	if err != nil {
		t.Fatalf("fallback must not surface the revert: %v", err)
	}
	if q.EstimatedOut.Cmp(intent.InputAmount) != 0 {
		t.Fatalf("fallback must quote 1:1, got %s", q.EstimatedOut)
	}
	if q.Confidence != model.Estimated {
		t.Fatalf("fallback quote must be estimated, got %s", q.Confidence)
	}
}

func TestQuoteDirectRevertSurfaces(t *testing.T) {
	caller := &fakeCaller{
		t: t,
		quoteFn: func(req quoteRequest) (*big.Int, error) {
			return nil, errors.New("execution reverted")
		},
	}
	engine := NewEngine(caller, quoterAddr, hybridAddr, 0.77, nil)

	key := model.NewPoolKey(model.NativeCurrency, tokenMid, 3000, 60, common.Address{})
	intent := model.TradeIntent{
		Direction:   model.Buy,
		InputAsset:  model.NativeCurrency,
		OutputAsset: tokenMid,
		InputAmount: amt(100),
	}

	_, err := engine.Quote(context.Background(), intent, Route{Keys: []model.PoolKey{key}})
	if !errors.Is(err, model.ErrQuoteReverted) {
		t.Fatalf("expected ErrQuoteReverted, got %v", err)
	}
}

func TestQuoteZeroForOneDerivedFromOrdering(t *testing.T) {
	caller := &fakeCaller{
		t: t,
		quoteFn: func(req quoteRequest) (*big.Int, error) {
			return amt(1), nil
		},
	}
	engine := NewEngine(caller, quoterAddr, hybridAddr, 0.77, nil)
	key := model.NewPoolKey(tokenMid, tokenOut, 3000, 60, common.Address{})

	spend := func(input, output common.Address) {
		t.Helper()
		intent := model.TradeIntent{
			Direction:   model.Sell,
			InputAsset:  input,
			OutputAsset: output,
			InputAmount: amt(100),
		}
		if _, err := engine.Quote(context.Background(), intent, Route{Keys: []model.PoolKey{key}}); err != nil {
			t.Fatalf("quote failed: %v", err)
		}
	}

	spend(tokenMid, tokenOut)
	if !caller.requests[0].zeroForOne {
		t.Fatalf("spending currency0 must simulate zeroForOne=true")
	}
	spend(tokenOut, tokenMid)
	if caller.requests[1].zeroForOne {
		t.Fatalf("spending currency1 must simulate zeroForOne=false")
	}
}
