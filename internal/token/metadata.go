package token

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"swapEngine/internal/model"
)

// Meta is the display metadata of one tradeable asset.
type Meta struct {
	Address  common.Address
	Symbol   string
	Name     string
	Decimals uint8
}

// FormatAmount renders a raw integer amount in the token's display units.
func (m Meta) FormatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	value := decimal.NewFromBigInt(amount, -int32(m.Decimals))
	if m.Symbol == "" {
		return value.String()
	}
	return fmt.Sprintf("%s %s", value.String(), m.Symbol)
}

// ContractCaller is the read-only chain surface the metadata reader needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// MetaCache caches token metadata by address for the session.
type MetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]Meta
}

func NewMetaCache() *MetaCache {
	return &MetaCache{data: make(map[common.Address]Meta)}
}

func (c *MetaCache) Get(address common.Address) (Meta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *MetaCache) Set(address common.Address, meta Meta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// Reader loads token metadata via ERC20 calls, caching per session.
type Reader struct {
	caller ContractCaller
	native Meta
	cache  *MetaCache
	logger *zap.Logger
}

// NewReader builds a Reader. nativeSymbol names the chain's native currency,
// which has no contract to query.
func NewReader(caller ContractCaller, nativeSymbol string, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if nativeSymbol == "" {
		nativeSymbol = "ETH"
	}
	return &Reader{
		caller: caller,
		native: Meta{Symbol: nativeSymbol, Name: nativeSymbol, Decimals: 18},
		cache:  NewMetaCache(),
		logger: logger,
	}
}

// Meta returns metadata for a token, reading it from chain on first use.
// Symbol and name failures degrade to empty strings; only a failed decimals
// read is an error, since amounts cannot be rendered without it.
func (r *Reader) Meta(ctx context.Context, token common.Address) (Meta, error) {
	if token == model.NativeCurrency {
		return r.native, nil
	}
	if meta, ok := r.cache.Get(token); ok {
		return meta, nil
	}

	meta, err := r.fetch(ctx, token)
	if err != nil {
		return Meta{}, err
	}
	r.cache.Set(token, meta)
	return meta, nil
}

func (r *Reader) fetch(ctx context.Context, token common.Address) (Meta, error) {
	meta := Meta{Address: token}
	if r.caller == nil {
		return meta, fmt.Errorf("contract caller is nil")
	}

	stringABI, err := metaABIStringInstance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := metaABIBytes32Instance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	call := func(method string, parsed abi.ABI) ([]interface{}, error) {
		data, err := parsed.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		msg := ethereum.CallMsg{To: &token, Data: data}
		resp, err := r.caller.CallContract(ctx, msg, nil)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		values, err := parsed.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method, err)
		}
		return values, nil
	}

	values, err := call("decimals", stringABI)
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, err
	}
	meta.Decimals = decimals

	if values, err := call("symbol", stringABI); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if values, err := call("symbol", bytes32ABI); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			meta.Symbol = symbol
		}
	} else {
		r.logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if values, err := call("name", stringABI); err == nil {
		if name, ok := values[0].(string); ok {
			meta.Name = name
		}
	} else if values, err := call("name", bytes32ABI); err == nil {
		if name, ok := bytes32ToString(values[0]); ok {
			meta.Name = name
		}
	} else {
		r.logger.Debug("name call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	return meta, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
