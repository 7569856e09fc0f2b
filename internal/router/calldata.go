package router

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"swapEngine/internal/model"
)

// Single-byte action codes of the v4 swap envelope.
const (
	ActionSwapExactInSingle = 0x06
	ActionSettleAll         = 0x0c
	ActionTakeAll           = 0x0f
)

// CommandV4Swap is the top-level command byte identifying a v4-style swap
// envelope.
const CommandV4Swap = 0x10

type actionPoolKey struct {
	Currency0   common.Address
	Currency1   common.Address
	Fee         *big.Int
	TickSpacing *big.Int
	Hooks       common.Address
}

type exactInputSingleParams struct {
	PoolKey          actionPoolKey
	ZeroForOne       bool
	AmountIn         *big.Int
	AmountOutMinimum *big.Int
	HookData         []byte
}

// Build encodes a swap intent into the router's wire protocol. The result is
// deterministic: identical (intent, quote, keys) always produce byte-identical
// calls.
//
// Single hop: [SwapExactInSingle, SettleAll, TakeAll]. Two hops: a second
// SwapExactInSingle is inserted with amountIn left at zero, which the router
// reads as "consume the previous swap's output". Encoding a computed amount
// there would desynchronize the hops.
func Build(intent model.TradeIntent, q model.Quote, keys []model.PoolKey) (model.RouterCall, error) {
	if len(keys) == 0 || len(keys) > 2 {
		return model.RouterCall{}, fmt.Errorf("route must have one or two pools, got %d", len(keys))
	}
	if intent.InputAmount == nil || intent.InputAmount.Sign() <= 0 {
		return model.RouterCall{}, fmt.Errorf("input amount must be positive")
	}
	if q.EstimatedOut == nil {
		return model.RouterCall{}, fmt.Errorf("quote has no estimated output")
	}
	if !keys[0].Involves(intent.InputAsset) {
		return model.RouterCall{}, fmt.Errorf("first pool does not trade input asset")
	}

	parsed, err := ActionsABI()
	if err != nil {
		return model.RouterCall{}, fmt.Errorf("parse actions abi: %w", err)
	}

	minOut := intent.MinimumOut(q.EstimatedOut)

	actions := make([]byte, 0, 4)
	params := make([][]byte, 0, 4)

	if len(keys) == 1 {
		swapBlob, err := packAction(parsed, "swapExactInSingle", exactInputSingleParams{
			PoolKey:          toActionKey(keys[0]),
			ZeroForOne:       keys[0].ZeroForOne(intent.InputAsset),
			AmountIn:         intent.InputAmount,
			AmountOutMinimum: minOut,
			HookData:         []byte{},
		})
		if err != nil {
			return model.RouterCall{}, err
		}
		actions = append(actions, ActionSwapExactInSingle)
		params = append(params, swapBlob)
	} else {
		intermediate := keys[0].Other(intent.InputAsset)
		if !keys[1].Involves(intermediate) {
			return model.RouterCall{}, fmt.Errorf("pools do not share an intermediate currency")
		}

		firstBlob, err := packAction(parsed, "swapExactInSingle", exactInputSingleParams{
			PoolKey:          toActionKey(keys[0]),
			ZeroForOne:       keys[0].ZeroForOne(intent.InputAsset),
			AmountIn:         intent.InputAmount,
			AmountOutMinimum: new(big.Int),
			HookData:         []byte{},
		})
		if err != nil {
			return model.RouterCall{}, err
		}

		// amountIn stays zero: consume the first swap's output.
		secondBlob, err := packAction(parsed, "swapExactInSingle", exactInputSingleParams{
			PoolKey:          toActionKey(keys[1]),
			ZeroForOne:       keys[1].ZeroForOne(intermediate),
			AmountIn:         new(big.Int),
			AmountOutMinimum: minOut,
			HookData:         []byte{},
		})
		if err != nil {
			return model.RouterCall{}, err
		}

		actions = append(actions, ActionSwapExactInSingle, ActionSwapExactInSingle)
		params = append(params, firstBlob, secondBlob)
	}

	settleBlob, err := packAction(parsed, "settleAll", intent.InputAsset, intent.InputAmount)
	if err != nil {
		return model.RouterCall{}, err
	}
	takeBlob, err := packAction(parsed, "takeAll", intent.OutputAsset, minOut)
	if err != nil {
		return model.RouterCall{}, err
	}
	actions = append(actions, ActionSettleAll, ActionTakeAll)
	params = append(params, settleBlob, takeBlob)

	envelope, err := encodeEnvelope(actions, params)
	if err != nil {
		return model.RouterCall{}, err
	}

	return model.RouterCall{
		Commands: []byte{CommandV4Swap},
		Inputs:   [][]byte{envelope},
		Deadline: big.NewInt(intent.Deadline),
	}, nil
}

// EncodeExecute packs a RouterCall into execute(commands, inputs, deadline)
// calldata for the router contract.
func EncodeExecute(call model.RouterCall) ([]byte, error) {
	parsed, err := ExecuteABI()
	if err != nil {
		return nil, fmt.Errorf("parse execute abi: %w", err)
	}
	data, err := parsed.Pack("execute", call.Commands, call.Inputs, call.Deadline)
	if err != nil {
		return nil, fmt.Errorf("pack execute: %w", err)
	}
	return data, nil
}

// packAction ABI-encodes a descriptive function call and strips the leading
// 4-byte selector; the router keys the parameter tail by action position.
func packAction(parsed abi.ABI, method string, args ...interface{}) ([]byte, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return data[4:], nil
}

// encodeEnvelope concatenates (actions, params) into the single input the
// commands byte points at. The actions byte order and the params slice order
// must stay aligned; a mismatch silently produces a wrong trade.
func encodeEnvelope(actions []byte, params [][]byte) ([]byte, error) {
	if len(actions) != len(params) {
		return nil, fmt.Errorf("actions/params length mismatch: %d != %d", len(actions), len(params))
	}

	bytesType, err := abi.NewType("bytes", "", nil)
	if err != nil {
		return nil, err
	}
	bytesArrayType, err := abi.NewType("bytes[]", "", nil)
	if err != nil {
		return nil, err
	}

	args := abi.Arguments{{Type: bytesType}, {Type: bytesArrayType}}
	return args.Pack(actions, params)
}

func toActionKey(key model.PoolKey) actionPoolKey {
	return actionPoolKey{
		Currency0:   key.Currency0,
		Currency1:   key.Currency1,
		Fee:         new(big.Int).SetUint64(uint64(key.Fee)),
		TickSpacing: big.NewInt(int64(key.TickSpacing)),
		Hooks:       key.Hooks,
	}
}
