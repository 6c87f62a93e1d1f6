package domain

// Capabilities describe how a payment variant moves an order to CONFIRMED.
type Capabilities struct {
	// RequiresPreauth variants authorize at checkout (WAITING -> PREAUTH)
	// and capture on finalize.
	RequiresPreauth bool
	// HostedInput variants send the buyer to a gateway page before
	// finalize (WAITING -> INPUT).
	HostedInput bool
	// SettlesOnCheckout variants need no buyer payment step; checkout
	// settles the order immediately (typically deferred settlement).
	SettlesOnCheckout bool
}

type Settlement int

const (
	// SettlementComplete means funds are collected; the order is confirmed.
	SettlementComplete Settlement = iota
	// SettlementDeferred means the sale is reserved but an operator must
	// confirm receipt of funds later.
	SettlementDeferred
)

func (s Settlement) String() string {
	switch s {
	case SettlementComplete:
		return "complete"
	case SettlementDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// CaptureResult is returned by a variant's Capture.
type CaptureResult struct {
	Settlement Settlement
	// Token replaces the order's gateway token when non-empty.
	Token string
}
