package router

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// actionsABIJSON declares one purely descriptive function per router action.
// The router never sees these selectors: each action's parameter blob is the
// ABI-encoded call with the leading 4-byte selector stripped, interpreted by
// position in the actions byte string.
const actionsABIJSON = `[
  {
    "inputs": [
      {
        "components": [
          {
            "components": [
              {"internalType": "address", "name": "currency0", "type": "address"},
              {"internalType": "address", "name": "currency1", "type": "address"},
              {"internalType": "uint24", "name": "fee", "type": "uint24"},
              {"internalType": "int24", "name": "tickSpacing", "type": "int24"},
              {"internalType": "address", "name": "hooks", "type": "address"}
            ],
            "internalType": "struct PoolKey",
            "name": "poolKey",
            "type": "tuple"
          },
          {"internalType": "bool", "name": "zeroForOne", "type": "bool"},
          {"internalType": "uint128", "name": "amountIn", "type": "uint128"},
          {"internalType": "uint128", "name": "amountOutMinimum", "type": "uint128"},
          {"internalType": "bytes", "name": "hookData", "type": "bytes"}
        ],
        "internalType": "struct ExactInputSingleParams",
        "name": "params",
        "type": "tuple"
      }
    ],
    "name": "swapExactInSingle",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "currency", "type": "address"},
      {"internalType": "uint256", "name": "maxAmount", "type": "uint256"}
    ],
    "name": "settleAll",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "currency", "type": "address"},
      {"internalType": "uint256", "name": "minAmount", "type": "uint256"}
    ],
    "name": "takeAll",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

// executeABIJSON is the router's outer entry point.
const executeABIJSON = `[
  {
    "inputs": [
      {"internalType": "bytes", "name": "commands", "type": "bytes"},
      {"internalType": "bytes[]", "name": "inputs", "type": "bytes[]"},
      {"internalType": "uint256", "name": "deadline", "type": "uint256"}
    ],
    "name": "execute",
    "outputs": [],
    "stateMutability": "payable",
    "type": "function"
  }
]`

var (
	actionsABI     abi.ABI
	actionsABIOnce sync.Once
	actionsABIErr  error

	executeABI     abi.ABI
	executeABIOnce sync.Once
	executeABIErr  error
)

// ActionsABI returns the parsed action parameter ABI.
func ActionsABI() (abi.ABI, error) {
	actionsABIOnce.Do(func() {
		actionsABI, actionsABIErr = abi.JSON(strings.NewReader(actionsABIJSON))
	})
	return actionsABI, actionsABIErr
}

// ExecuteABI returns the parsed router execute ABI.
func ExecuteABI() (abi.ABI, error) {
	executeABIOnce.Do(func() {
		executeABI, executeABIErr = abi.JSON(strings.NewReader(executeABIJSON))
	})
	return executeABI, executeABIErr
}
