package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Kreolis/cinema-ticketing/internal/core/domain"
)

// PaymentVariant is one configured way of paying. The order state machine
// only reads Capabilities and calls the three operations below.
type PaymentVariant interface {
	Name() string
	Capabilities() domain.Capabilities
	// Authorize places a hold for order.Total and returns the gateway token.
	Authorize(ctx context.Context, order *domain.Order) (string, error)
	// Capture collects funds. token is empty when no Authorize preceded it.
	Capture(ctx context.Context, order *domain.Order, token string) (domain.CaptureResult, error)
	// Refund returns amount, or the whole order total when amount is nil.
	Refund(ctx context.Context, order *domain.Order, token string, amount *decimal.Decimal) error
}

type VariantRegistry interface {
	Variant(name string) (PaymentVariant, error)
	Names() []string
}
