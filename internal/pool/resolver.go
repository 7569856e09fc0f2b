package pool

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapEngine/internal/chain"
	"swapEngine/internal/model"
)

// DefaultPairID names the single dynamically-registered pair whose key is
// read from the launcher registry instead of static configuration.
const DefaultPairID = "default"

// ContractCaller is the read-only chain surface the resolver needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// KeyCache holds resolved pool keys for one session. Writes happen only from
// the single control-flow goroutine; the lock guards incidental readers.
type KeyCache struct {
	mu   sync.RWMutex
	data map[string]model.PoolKey
}

func NewKeyCache() *KeyCache {
	return &KeyCache{data: make(map[string]model.PoolKey)}
}

func (c *KeyCache) Get(pairID string) (model.PoolKey, bool) {
	c.mu.RLock()
	key, ok := c.data[pairID]
	c.mu.RUnlock()
	return key, ok
}

func (c *KeyCache) Set(pairID string, key model.PoolKey) {
	c.mu.Lock()
	c.data[pairID] = key
	c.mu.Unlock()
}

// Invalidate drops a cached key, forcing re-resolution on next use.
func (c *KeyCache) Invalidate(pairID string) {
	c.mu.Lock()
	delete(c.data, pairID)
	c.mu.Unlock()
}

// Resolver resolves pool keys from static configuration or, for the default
// pair, from the launcher registry on chain.
type Resolver struct {
	caller       ContractCaller
	launcher     common.Address
	static       map[string]model.PoolKey
	cache        *KeyCache
	maxRetries   int
	retryBackoff time.Duration
	logger       *zap.Logger
}

// NewResolver builds a Resolver. static maps pair IDs to pre-configured keys;
// the launcher address backs the default pair.
func NewResolver(caller ContractCaller, launcher common.Address, static map[string]model.PoolKey, cache *KeyCache, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewKeyCache()
	}
	return &Resolver{
		caller:       caller,
		launcher:     launcher,
		static:       static,
		cache:        cache,
		maxRetries:   2,
		retryBackoff: 250 * time.Millisecond,
		logger:       logger,
	}
}

// SetRetryPolicy overrides the default read retry budget, e.g. from
// configuration. Negative maxRetries and non-positive backoffs are ignored.
func (r *Resolver) SetRetryPolicy(maxRetries int, backoff time.Duration) {
	if maxRetries >= 0 {
		r.maxRetries = maxRetries
	}
	if backoff > 0 {
		r.retryBackoff = backoff
	}
}

// Resolve returns the pool key for a pair. Static pairs come straight from
// configuration; the default pair is read from chain once per session and
// cached. Any failed read surfaces as ErrPoolKeyUnavailable, which callers
// treat as "quoting disabled for this pair".
func (r *Resolver) Resolve(ctx context.Context, pairID string) (model.PoolKey, error) {
	if key, ok := r.static[pairID]; ok {
		return key, nil
	}
	if pairID != DefaultPairID {
		return model.PoolKey{}, fmt.Errorf("%w: unknown pair %q", model.ErrPoolKeyUnavailable, pairID)
	}

	if key, ok := r.cache.Get(pairID); ok {
		return key, nil
	}

	key, err := r.resolveDefault(ctx)
	if err != nil {
		r.logger.Warn("default pair resolution failed", zap.Error(err))
		return model.PoolKey{}, fmt.Errorf("%w: %v", model.ErrPoolKeyUnavailable, err)
	}

	r.cache.Set(pairID, key)
	r.logger.Info("default pair resolved",
		zap.String("currency0", key.Currency0.Hex()),
		zap.String("currency1", key.Currency1.Hex()),
		zap.Uint32("fee", key.Fee),
		zap.String("hooks", key.Hooks.Hex()))
	return key, nil
}

// resolveDefault performs the three sequential reads: pool id, hook address,
// then the full key tuple from the hook.
func (r *Resolver) resolveDefault(ctx context.Context) (model.PoolKey, error) {
	if r.caller == nil {
		return model.PoolKey{}, fmt.Errorf("contract caller is nil")
	}

	launcherABI, err := LauncherABI()
	if err != nil {
		return model.PoolKey{}, fmt.Errorf("parse launcher abi: %w", err)
	}
	hookABI, err := HookABI()
	if err != nil {
		return model.PoolKey{}, fmt.Errorf("parse hook abi: %w", err)
	}

	values, err := r.callWithRetry(ctx, r.launcher, launcherABI, "currentPoolId")
	if err != nil {
		return model.PoolKey{}, err
	}
	poolID, err := asBytes32(values[0])
	if err != nil {
		return model.PoolKey{}, fmt.Errorf("pool id: %w", err)
	}
	if poolID == (common.Hash{}) {
		return model.PoolKey{}, fmt.Errorf("no pool registered")
	}

	values, err = r.callWithRetry(ctx, r.launcher, launcherABI, "poolHook")
	if err != nil {
		return model.PoolKey{}, err
	}
	hook, err := asAddress(values[0])
	if err != nil {
		return model.PoolKey{}, fmt.Errorf("hook address: %w", err)
	}

	values, err = r.callWithRetry(ctx, hook, hookABI, "poolKey")
	if err != nil {
		return model.PoolKey{}, err
	}
	if len(values) < 5 {
		return model.PoolKey{}, fmt.Errorf("pool key tuple has %d fields", len(values))
	}

	currency0, err := asAddress(values[0])
	if err != nil {
		return model.PoolKey{}, fmt.Errorf("currency0: %w", err)
	}
	currency1, err := asAddress(values[1])
	if err != nil {
		return model.PoolKey{}, fmt.Errorf("currency1: %w", err)
	}
	feeInt, err := asBigInt(values[2])
	if err != nil {
		return model.PoolKey{}, fmt.Errorf("fee: %w", err)
	}
	tickSpacingInt, err := asBigInt(values[3])
	if err != nil {
		return model.PoolKey{}, fmt.Errorf("tick spacing: %w", err)
	}
	tickSpacing, err := int24FromBig(tickSpacingInt)
	if err != nil {
		return model.PoolKey{}, fmt.Errorf("tick spacing: %w", err)
	}
	hooks, err := asAddress(values[4])
	if err != nil {
		return model.PoolKey{}, fmt.Errorf("hooks: %w", err)
	}

	return model.NewPoolKey(currency0, currency1, uint32(feeInt.Uint64()), tickSpacing, hooks), nil
}

func (r *Resolver) callWithRetry(ctx context.Context, target common.Address, parsed abi.ABI, method string) ([]interface{}, error) {
	var values []interface{}
	err := chain.WithRetry(ctx, r.maxRetries, r.retryBackoff, func(ctx context.Context) error {
		var err error
		values, err = callMethod(ctx, r.caller, target, parsed, method)
		if err != nil {
			r.logger.Warn("resolver read failed", zap.String("method", method), zap.Error(err))
		}
		return err
	})
	return values, err
}
