package approval

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapEngine/internal/chain"
)

// ContractCaller is the read-only chain surface the reader needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Reader performs the two allowance reads backing the approval state
// machine, plus the balance read the surrounding UI consumes.
type Reader struct {
	caller       ContractCaller
	proxy        common.Address
	router       common.Address
	maxRetries   int
	retryBackoff time.Duration
	logger       *zap.Logger
}

// NewReader builds a Reader. proxy is the spender proxy contract, router the
// spender it grants toward.
func NewReader(caller ContractCaller, proxy, router common.Address, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		caller:       caller,
		proxy:        proxy,
		router:       router,
		maxRetries:   2,
		retryBackoff: 250 * time.Millisecond,
		logger:       logger,
	}
}

// SetRetryPolicy overrides the default read retry budget, e.g. from
// configuration. Negative maxRetries and non-positive backoffs are ignored.
func (r *Reader) SetRetryPolicy(maxRetries int, backoff time.Duration) {
	if maxRetries >= 0 {
		r.maxRetries = maxRetries
	}
	if backoff > 0 {
		r.retryBackoff = backoff
	}
}

// TokenAllowance reads the token's allowance from owner to the spender proxy.
func (r *Reader) TokenAllowance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	values, err := r.call(ctx, token, parsed, "allowance", owner, r.proxy)
	if err != nil {
		return nil, err
	}
	amount, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected allowance type %T", values[0])
	}
	return amount, nil
}

// ProxyAllowanceFor reads the spender proxy's (amount, expiry) grant from
// owner toward the router for one token.
func (r *Reader) ProxyAllowanceFor(ctx context.Context, owner, token common.Address) (ProxyAllowance, error) {
	parsed, err := ProxyABI()
	if err != nil {
		return ProxyAllowance{}, fmt.Errorf("parse proxy abi: %w", err)
	}

	values, err := r.call(ctx, r.proxy, parsed, "allowance", owner, token, r.router)
	if err != nil {
		return ProxyAllowance{}, err
	}
	if len(values) < 2 {
		return ProxyAllowance{}, fmt.Errorf("proxy allowance returned %d values", len(values))
	}
	amount, ok := values[0].(*big.Int)
	if !ok {
		return ProxyAllowance{}, fmt.Errorf("unexpected amount type %T", values[0])
	}
	expiry, ok := values[1].(*big.Int)
	if !ok {
		return ProxyAllowance{}, fmt.Errorf("unexpected expiration type %T", values[1])
	}
	return ProxyAllowance{Amount: amount, Expiry: expiry.Int64()}, nil
}

// Balance reads the owner's token balance.
func (r *Reader) Balance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	values, err := r.call(ctx, token, parsed, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balance type %T", values[0])
	}
	return balance, nil
}

func (r *Reader) call(ctx context.Context, target common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	var resp []byte
	msg := ethereum.CallMsg{To: &target, Data: data}
	err = chain.WithRetry(ctx, r.maxRetries, r.retryBackoff, func(ctx context.Context) error {
		var err error
		resp, err = r.caller.CallContract(ctx, msg, nil)
		if err != nil {
			r.logger.Warn("allowance read failed", zap.String("method", method), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}
