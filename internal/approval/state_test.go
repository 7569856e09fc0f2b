package approval

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"swapEngine/internal/model"
)

func TestDeriveState(t *testing.T) {
	now := int64(1_700_000_000)
	required := big.NewInt(1000)

	tests := []struct {
		name           string
		tokenAllowance *big.Int
		proxy          ProxyAllowance
		required       *big.Int
		want           model.ApprovalState
	}{
		{
			name:           "token allowance short",
			tokenAllowance: big.NewInt(999),
			proxy:          ProxyAllowance{Amount: big.NewInt(2000), Expiry: now + 100},
			required:       required,
			want:           model.NeedsSpenderApproval,
		},
		{
			name:           "proxy amount short",
			tokenAllowance: big.NewInt(5000),
			proxy:          ProxyAllowance{Amount: big.NewInt(999), Expiry: now + 100},
			required:       required,
			want:           model.NeedsRouterApproval,
		},
		{
			name:           "proxy grant expired",
			tokenAllowance: big.NewInt(5000),
			proxy:          ProxyAllowance{Amount: big.NewInt(2000), Expiry: now - 1},
			required:       required,
			want:           model.NeedsRouterApproval,
		},
		{
			name:           "ready",
			tokenAllowance: big.NewInt(5000),
			proxy:          ProxyAllowance{Amount: big.NewInt(2000), Expiry: now + 100},
			required:       required,
			want:           model.Ready,
		},
		{
			name:           "zero required never needs approval",
			tokenAllowance: new(big.Int),
			proxy:          ProxyAllowance{},
			required:       new(big.Int),
			want:           model.Ready,
		},
		{
			name:           "nil required never needs approval",
			tokenAllowance: nil,
			proxy:          ProxyAllowance{},
			required:       nil,
			want:           model.Ready,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveState(tt.tokenAllowance, tt.proxy, tt.required, now)
			if got != tt.want {
				t.Fatalf("state mismatch: %s != %s", got, tt.want)
			}
		})
	}
}

func TestDeriveStateIsPure(t *testing.T) {
	now := int64(1_700_000_000)
	allowance := big.NewInt(500)
	proxy := ProxyAllowance{Amount: big.NewInt(500), Expiry: now + 100}
	required := big.NewInt(1000)

	first := DeriveState(allowance, proxy, required, now)
	second := DeriveState(allowance, proxy, required, now)
	if first != second {
		t.Fatalf("same inputs produced different states: %s != %s", first, second)
	}
	if allowance.Cmp(big.NewInt(500)) != 0 || required.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("inputs were mutated")
	}
}

func TestStateForIntentNativeInput(t *testing.T) {
	intent := model.TradeIntent{
		InputAsset:  model.NativeCurrency,
		InputAmount: big.NewInt(1000),
	}
	got := StateForIntent(intent, nil, ProxyAllowance{}, 0)
	if got != model.NotRequired {
		t.Fatalf("native input must not require approval, got %s", got)
	}
}

// TestApprovalLadder walks the two-step sequence: both grants stale, then the
// token grant lands, then the proxy grant lands.
func TestApprovalLadder(t *testing.T) {
	now := int64(1_700_000_000)
	required := big.NewInt(1_000_000)
	token := common.HexToAddress("0x3000000000000000000000000000000000000003")

	intent := model.TradeIntent{InputAsset: token, InputAmount: required}

	state := StateForIntent(intent, new(big.Int), ProxyAllowance{}, now)
	if state != model.NeedsSpenderApproval {
		t.Fatalf("step 1: expected NeedsSpenderApproval, got %s", state)
	}

	tokenGrant := new(big.Int).Lsh(big.NewInt(1), 200)
	state = StateForIntent(intent, tokenGrant, ProxyAllowance{Amount: new(big.Int), Expiry: now - 10}, now)
	if state != model.NeedsRouterApproval {
		t.Fatalf("step 2: expected NeedsRouterApproval, got %s", state)
	}

	state = StateForIntent(intent, tokenGrant, ProxyAllowance{Amount: required, Expiry: now + 3600}, now)
	if state != model.Ready {
		t.Fatalf("step 3: expected Ready, got %s", state)
	}
}
