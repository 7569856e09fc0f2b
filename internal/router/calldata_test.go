package router

import (
	"bytes"
	"math/big"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"swapEngine/internal/model"
)

var (
	native = model.NativeCurrency
	tokenA = common.HexToAddress("0x1000000000000000000000000000000000000001")
	tokenB = common.HexToAddress("0x2000000000000000000000000000000000000002")
	hook   = common.HexToAddress("0x9000000000000000000000000000000000000009")
)

func buyIntent(amount int64) model.TradeIntent {
	return model.TradeIntent{
		Direction:   model.Buy,
		InputAsset:  native,
		OutputAsset: tokenA,
		InputAmount: big.NewInt(amount),
		SlippageBps: 50,
		Deadline:    1_800_000_000,
	}
}

func fixedQuote(out int64) model.Quote {
	return model.Quote{EstimatedOut: big.NewInt(out), Confidence: model.Exact}
}

func decodeEnvelope(t *testing.T, envelope []byte) ([]byte, [][]byte) {
	t.Helper()

	bytesType, err := abi.NewType("bytes", "", nil)
	if err != nil {
		t.Fatalf("bytes type: %v", err)
	}
	bytesArrayType, err := abi.NewType("bytes[]", "", nil)
	if err != nil {
		t.Fatalf("bytes[] type: %v", err)
	}

	args := abi.Arguments{{Type: bytesType}, {Type: bytesArrayType}}
	values, err := args.Unpack(envelope)
	if err != nil {
		t.Fatalf("unpack envelope: %v", err)
	}

	actions, ok := values[0].([]byte)
	if !ok {
		t.Fatalf("unexpected actions type %T", values[0])
	}
	params, ok := values[1].([][]byte)
	if !ok {
		t.Fatalf("unexpected params type %T", values[1])
	}
	return actions, params
}

func decodeSwapBlob(t *testing.T, blob []byte) (zeroForOne bool, amountIn, amountOutMinimum *big.Int) {
	t.Helper()

	parsed, err := ActionsABI()
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	values, err := parsed.Methods["swapExactInSingle"].Inputs.Unpack(blob)
	if err != nil {
		t.Fatalf("unpack swap blob: %v", err)
	}

	params := reflect.ValueOf(values[0])
	zeroForOne = params.FieldByName("ZeroForOne").Bool()
	amountIn = params.FieldByName("AmountIn").Interface().(*big.Int)
	amountOutMinimum = params.FieldByName("AmountOutMinimum").Interface().(*big.Int)
	return zeroForOne, amountIn, amountOutMinimum
}

func TestBuildIsDeterministic(t *testing.T) {
	key := model.NewPoolKey(native, tokenA, 3000, 60, hook)
	intent := buyIntent(1_000_000)
	q := fixedQuote(2_000_000)

	first, err := Build(intent, q, []model.PoolKey{key})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	second, err := Build(intent, q, []model.PoolKey{key})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if !bytes.Equal(first.Commands, second.Commands) {
		t.Fatalf("commands differ")
	}
	if len(first.Inputs) != len(second.Inputs) {
		t.Fatalf("inputs length differ")
	}
	for i := range first.Inputs {
		if !bytes.Equal(first.Inputs[i], second.Inputs[i]) {
			t.Fatalf("input %d differs", i)
		}
	}
	if first.Deadline.Cmp(second.Deadline) != 0 {
		t.Fatalf("deadlines differ")
	}
}

func TestBuildSingleHopActionSequence(t *testing.T) {
	key := model.NewPoolKey(native, tokenA, 3000, 60, hook)

	call, err := Build(buyIntent(1_000_000), fixedQuote(2_000_000), []model.PoolKey{key})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if !bytes.Equal(call.Commands, []byte{CommandV4Swap}) {
		t.Fatalf("commands byte mismatch: %x", call.Commands)
	}
	if len(call.Inputs) != 1 {
		t.Fatalf("expected one envelope input, got %d", len(call.Inputs))
	}

	actions, params := decodeEnvelope(t, call.Inputs[0])
	want := []byte{ActionSwapExactInSingle, ActionSettleAll, ActionTakeAll}
	if !bytes.Equal(actions, want) {
		t.Fatalf("action sequence mismatch: %x != %x", actions, want)
	}
	if len(params) != len(actions) {
		t.Fatalf("params count %d does not match actions count %d", len(params), len(actions))
	}
}

func TestBuildMultiHopSecondAmountInZero(t *testing.T) {
	first := model.NewPoolKey(native, tokenA, 3000, 60, hook)
	second := model.NewPoolKey(tokenA, tokenB, 3000, 60, common.Address{})

	intent := model.TradeIntent{
		Direction:   model.Buy,
		InputAsset:  native,
		OutputAsset: tokenB,
		InputAmount: big.NewInt(1_000_000),
		SlippageBps: 100,
		Deadline:    1_800_000_000,
	}
	// A large quote amount must not leak into the second hop's amountIn.
	call, err := Build(intent, fixedQuote(987_654_321), []model.PoolKey{first, second})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	actions, params := decodeEnvelope(t, call.Inputs[0])
	want := []byte{ActionSwapExactInSingle, ActionSwapExactInSingle, ActionSettleAll, ActionTakeAll}
	if !bytes.Equal(actions, want) {
		t.Fatalf("action sequence mismatch: %x != %x", actions, want)
	}

	_, firstAmountIn, _ := decodeSwapBlob(t, params[0])
	if firstAmountIn.Cmp(intent.InputAmount) != 0 {
		t.Fatalf("first hop amountIn mismatch: %s", firstAmountIn)
	}

	_, secondAmountIn, secondMin := decodeSwapBlob(t, params[1])
	if secondAmountIn.Sign() != 0 {
		t.Fatalf("second hop amountIn must be zero (consume prior output), got %s", secondAmountIn)
	}
	if secondMin.Cmp(intent.MinimumOut(big.NewInt(987_654_321))) != 0 {
		t.Fatalf("second hop minimum mismatch: %s", secondMin)
	}
}

func TestBuildZeroForOneFromOrdering(t *testing.T) {
	key := model.NewPoolKey(native, tokenA, 3000, 60, hook)

	// Spending currency0.
	call, err := Build(buyIntent(1_000_000), fixedQuote(2_000_000), []model.PoolKey{key})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	_, params := decodeEnvelope(t, call.Inputs[0])
	zeroForOne, _, _ := decodeSwapBlob(t, params[0])
	if !zeroForOne {
		t.Fatalf("spending currency0 must encode zeroForOne=true")
	}

	// Spending currency1 of the same pool.
	sellIntent := model.TradeIntent{
		Direction:   model.Sell,
		InputAsset:  tokenA,
		OutputAsset: native,
		InputAmount: big.NewInt(1_000_000),
		SlippageBps: 50,
		Deadline:    1_800_000_000,
	}
	call, err = Build(sellIntent, fixedQuote(400), []model.PoolKey{key})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	_, params = decodeEnvelope(t, call.Inputs[0])
	zeroForOne, _, _ = decodeSwapBlob(t, params[0])
	if zeroForOne {
		t.Fatalf("spending currency1 must encode zeroForOne=false")
	}
}

func TestBuildMinimumOutFloor(t *testing.T) {
	key := model.NewPoolKey(native, tokenA, 3000, 60, hook)
	intent := buyIntent(1_000_000)

	call, err := Build(intent, fixedQuote(2_000_000), []model.PoolKey{key})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	_, params := decodeEnvelope(t, call.Inputs[0])

	parsed, err := ActionsABI()
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	values, err := parsed.Methods["takeAll"].Inputs.Unpack(params[2])
	if err != nil {
		t.Fatalf("unpack takeAll: %v", err)
	}

	currency := values[0].(common.Address)
	if currency != intent.OutputAsset {
		t.Fatalf("takeAll names %s, want output asset", currency.Hex())
	}
	minAmount := values[1].(*big.Int)
	want := intent.MinimumOut(big.NewInt(2_000_000))
	if minAmount.Cmp(want) != 0 {
		t.Fatalf("minimum out mismatch: %s != %s", minAmount, want)
	}
}

func TestEncodeExecuteRoundTrip(t *testing.T) {
	key := model.NewPoolKey(native, tokenA, 3000, 60, hook)
	call, err := Build(buyIntent(1_000_000), fixedQuote(2_000_000), []model.PoolKey{key})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	data, err := EncodeExecute(call)
	if err != nil {
		t.Fatalf("encode execute: %v", err)
	}

	parsed, err := ExecuteABI()
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	if !bytes.Equal(data[:4], parsed.Methods["execute"].ID) {
		t.Fatalf("selector mismatch: %x", data[:4])
	}

	values, err := parsed.Methods["execute"].Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("unpack execute: %v", err)
	}
	if !bytes.Equal(values[0].([]byte), call.Commands) {
		t.Fatalf("commands round trip mismatch")
	}
}
