package approval

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// maxUint256 is the unlimited token-level grant toward the spender proxy.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// maxUint160 caps the proxy-level grant, matching the proxy's amount width.
var maxUint160 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 160), big.NewInt(1))

// TokenApproveCalldata encodes the token-level approve granting the spender
// proxy an unlimited allowance.
func TokenApproveCalldata(proxy common.Address) ([]byte, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	data, err := parsed.Pack("approve", proxy, maxUint256)
	if err != nil {
		return nil, fmt.Errorf("pack approve: %w", err)
	}
	return data, nil
}

// ProxyApproveCalldata encodes the proxy-level approve granting the router
// an allowance for one token until expiry.
func ProxyApproveCalldata(token, router common.Address, expiry int64) ([]byte, error) {
	parsed, err := ProxyABI()
	if err != nil {
		return nil, fmt.Errorf("parse proxy abi: %w", err)
	}
	data, err := parsed.Pack("approve", token, router, maxUint160, big.NewInt(expiry))
	if err != nil {
		return nil, fmt.Errorf("pack approve: %w", err)
	}
	return data, nil
}
