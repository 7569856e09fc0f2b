package batch

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// CodeReader probes deployed code at an address.
type CodeReader interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// Capability detects once per session whether a signer can execute an atomic
// multi-call batch, by checking whether its address carries executable code.
type Capability struct {
	reader CodeReader
	logger *zap.Logger

	mu     sync.Mutex
	probed map[common.Address]bool
}

func NewCapability(reader CodeReader, logger *zap.Logger) *Capability {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Capability{
		reader: reader,
		logger: logger,
		probed: make(map[common.Address]bool),
	}
}

// SupportsAtomic reports whether the signer supports atomic batching. The
// probe runs once per signer per session; a failed probe conservatively
// reports false without caching, so a later attempt can re-probe.
func (c *Capability) SupportsAtomic(ctx context.Context, signer common.Address) bool {
	c.mu.Lock()
	if supported, ok := c.probed[signer]; ok {
		c.mu.Unlock()
		return supported
	}
	c.mu.Unlock()

	code, err := c.reader.CodeAt(ctx, signer, nil)
	if err != nil {
		c.logger.Warn("signer code probe failed", zap.String("signer", signer.Hex()), zap.Error(err))
		return false
	}

	supported := len(code) > 0
	c.mu.Lock()
	c.probed[signer] = supported
	c.mu.Unlock()

	c.logger.Debug("signer capability probed",
		zap.String("signer", signer.Hex()),
		zap.Bool("atomic", supported))
	return supported
}
