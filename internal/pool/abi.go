package pool

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// launcherABIJSON covers the token launcher registry that tracks the
// dynamically created default pool and its hook.
const launcherABIJSON = `[
  {
    "inputs": [],
    "name": "currentPoolId",
    "outputs": [{"internalType": "bytes32", "name": "", "type": "bytes32"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "poolHook",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

// hookABIJSON covers the hybrid hook contract, which exposes the full key
// tuple of the pool it is attached to.
const hookABIJSON = `[
  {
    "inputs": [],
    "name": "poolKey",
    "outputs": [
      {"internalType": "address", "name": "currency0", "type": "address"},
      {"internalType": "address", "name": "currency1", "type": "address"},
      {"internalType": "uint24", "name": "fee", "type": "uint24"},
      {"internalType": "int24", "name": "tickSpacing", "type": "int24"},
      {"internalType": "address", "name": "hooks", "type": "address"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	launcherABI     abi.ABI
	launcherABIOnce sync.Once
	launcherABIErr  error

	hookABI     abi.ABI
	hookABIOnce sync.Once
	hookABIErr  error
)

// LauncherABI returns the parsed launcher registry ABI.
func LauncherABI() (abi.ABI, error) {
	launcherABIOnce.Do(func() {
		launcherABI, launcherABIErr = abi.JSON(strings.NewReader(launcherABIJSON))
	})
	return launcherABI, launcherABIErr
}

// HookABI returns the parsed hook ABI.
func HookABI() (abi.ABI, error) {
	hookABIOnce.Do(func() {
		hookABI, hookABIErr = abi.JSON(strings.NewReader(hookABIJSON))
	})
	return hookABI, hookABIErr
}
