package pool

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"swapEngine/internal/model"
)

// ParseStaticPairs parses configured pair specs of the form
// "id=currency0,currency1,feeBps,tickSpacing,hooks". The hooks field may be
// omitted for hookless pools.
func ParseStaticPairs(specs []string) (map[string]model.PoolKey, error) {
	pairs := make(map[string]model.PoolKey, len(specs))
	for _, spec := range specs {
		id, key, err := parsePairSpec(spec)
		if err != nil {
			return nil, err
		}
		if _, ok := pairs[id]; ok {
			return nil, fmt.Errorf("duplicate pair id %q", id)
		}
		pairs[id] = key
	}
	return pairs, nil
}

func parsePairSpec(spec string) (string, model.PoolKey, error) {
	id, rest, ok := strings.Cut(spec, "=")
	if !ok {
		return "", model.PoolKey{}, fmt.Errorf("pair spec %q missing '='", spec)
	}
	id = strings.TrimSpace(id)
	if id == "" || id == DefaultPairID {
		return "", model.PoolKey{}, fmt.Errorf("invalid pair id %q", id)
	}

	fields := strings.Split(rest, ",")
	if len(fields) < 4 || len(fields) > 5 {
		return "", model.PoolKey{}, fmt.Errorf("pair %q has %d fields, want 4 or 5", id, len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	if !common.IsHexAddress(fields[0]) || !common.IsHexAddress(fields[1]) {
		return "", model.PoolKey{}, fmt.Errorf("pair %q has invalid currency address", id)
	}
	currencyA := common.HexToAddress(fields[0])
	currencyB := common.HexToAddress(fields[1])

	fee, err := strconv.ParseUint(fields[2], 10, 24)
	if err != nil {
		return "", model.PoolKey{}, fmt.Errorf("pair %q fee: %w", id, err)
	}

	tickSpacing, err := strconv.ParseInt(fields[3], 10, 32)
	if err != nil {
		return "", model.PoolKey{}, fmt.Errorf("pair %q tick spacing: %w", id, err)
	}

	hooks := common.Address{}
	if len(fields) == 5 && fields[4] != "" {
		if !common.IsHexAddress(fields[4]) {
			return "", model.PoolKey{}, fmt.Errorf("pair %q has invalid hooks address", id)
		}
		hooks = common.HexToAddress(fields[4])
	}

	return id, model.NewPoolKey(currencyA, currencyB, uint32(fee), int32(tickSpacing), hooks), nil
}
