package quote

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// quoterABIJSON is the v4 quoter's read-only simulation entry point.
const quoterABIJSON = `[
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
          {"internalType": "uint128", "name": "exactAmount", "type": "uint128"},
          {"internalType": "bytes", "name": "hookData", "type": "bytes"}
        ],
        "internalType": "struct IV4Quoter.QuoteExactSingleParams",
        "name": "params",
        "type": "tuple"
      }
    ],
    "name": "quoteExactInputSingle",
    "outputs": [
      {"internalType": "uint256", "name": "amountOut", "type": "uint256"},
      {"internalType": "uint256", "name": "gasEstimate", "type": "uint256"}
    ],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

// hybridABIJSON is the hybrid AMM/OTC source's own quoting surface: how an
// input amount splits between its internal reserve and the AMM pass-through.
const hybridABIJSON = `[
  {
    "inputs": [{"internalType": "uint256", "name": "amountIn", "type": "uint256"}],
    "name": "quoteBuySplit",
    "outputs": [
      {"internalType": "uint256", "name": "otcAmount", "type": "uint256"},
      {"internalType": "uint256", "name": "swapAmount", "type": "uint256"},
      {"internalType": "uint256", "name": "feeBps", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "otcReserve",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	quoterABI     abi.ABI
	quoterABIOnce sync.Once
	quoterABIErr  error

	hybridABI     abi.ABI
	hybridABIOnce sync.Once
	hybridABIErr  error
)

// QuoterABI returns the parsed quoter ABI.
func QuoterABI() (abi.ABI, error) {
	quoterABIOnce.Do(func() {
		quoterABI, quoterABIErr = abi.JSON(strings.NewReader(quoterABIJSON))
	})
	return quoterABI, quoterABIErr
}

// HybridABI returns the parsed hybrid source ABI.
func HybridABI() (abi.ABI, error) {
	hybridABIOnce.Do(func() {
		hybridABI, hybridABIErr = abi.JSON(strings.NewReader(hybridABIJSON))
	})
	return hybridABI, hybridABIErr
}
