package model

// ApprovalState is derived from two allowance reads compared against the
// pending trade amount. It is recomputed on every input change, never stored.
type ApprovalState int

const (
	// NotRequired means the trade does not spend an asset that needs approval.
	NotRequired ApprovalState = iota
	// NeedsSpenderApproval means the token has not granted the spender proxy
	// enough allowance.
	NeedsSpenderApproval
	// NeedsRouterApproval means the spender proxy has not granted the router
	// enough allowance, or its grant expired.
	NeedsRouterApproval
	// Ready means the swap can be submitted directly.
	Ready
)

func (s ApprovalState) String() string {
	switch s {
	case NotRequired:
		return "not_required"
	case NeedsSpenderApproval:
		return "needs_spender_approval"
	case NeedsRouterApproval:
		return "needs_router_approval"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}
