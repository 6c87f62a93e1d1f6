package payment

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Kreolis/cinema-ticketing/internal/core/domain"
)

const OfflineName = "advance_payment"

// Offline is settlement by bank transfer or cash. No gateway is involved:
// checkout reserves the sale and an operator confirms receipt later.
type Offline struct {
	name string
}

func NewOffline(name string) *Offline {
	if name == "" {
		name = OfflineName
	}
	return &Offline{name: name}
}

func (o *Offline) Name() string { return o.name }

func (o *Offline) Capabilities() domain.Capabilities {
	return domain.Capabilities{SettlesOnCheckout: true}
}

func (o *Offline) Authorize(ctx context.Context, order *domain.Order) (string, error) {
	return "", nil
}

func (o *Offline) Capture(ctx context.Context, order *domain.Order, token string) (domain.CaptureResult, error) {
	return domain.CaptureResult{Settlement: domain.SettlementDeferred}, nil
}

func (o *Offline) Refund(ctx context.Context, order *domain.Order, token string, amount *decimal.Decimal) error {
	return nil
}
