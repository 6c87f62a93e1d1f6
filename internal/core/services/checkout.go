package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Kreolis/cinema-ticketing/internal/core/domain"
	"github.com/Kreolis/cinema-ticketing/internal/core/ports"
	"github.com/Kreolis/cinema-ticketing/internal/platform/metrics"
)

// BeginCheckout binds billing data and a payment variant to a WAITING
// order. Preauth variants authorize here and move the order to PREAUTH;
// variants that settle on checkout confirm it right away. A failed gateway
// call leaves the order in WAITING.
func (s *OrderService) BeginCheckout(ctx context.Context, sessionKey string, req CheckoutRequest) (*domain.Order, error) {
	billing := req.Billing.Normalize()
	if err := billing.Validate(); err != nil {
		return nil, err
	}

	variant, err := s.variants.Variant(req.Variant)
	if err != nil {
		if errors.Is(err, domain.ErrVariantNotFound) {
			return nil, domain.NewValidationError("variant", "unknown payment variant")
		}
		return nil, err
	}

	id, err := s.sessions.Lookup(ctx, sessionKey)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	order, err := s.mutate(ctx, id, true, func(tx ports.Tx, o *domain.Order) error {
		if err := o.RequireStatus("check out", domain.StatusWaiting); err != nil {
			return err
		}
		if len(o.Tickets) == 0 {
			return domain.NewValidationError("tickets", "order has no tickets")
		}

		o.Billing = billing
		o.Variant = variant.Name()
		o.PaymentSource = req.PaymentSource

		var changed []domain.Ticket
		for i := range o.Tickets {
			if o.Tickets[i].Email == "" {
				o.Tickets[i].Email = billing.Email
				changed = append(changed, o.Tickets[i])
			}
		}
		if len(changed) > 0 {
			if err := tx.UpdateTickets(ctx, changed); err != nil {
				return fmt.Errorf("copy billing email: %w", err)
			}
		}

		o.Touch(s.clock.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	caps := variant.Capabilities()
	switch {
	case caps.RequiresPreauth:
		return s.authorize(ctx, order, variant)
	case caps.SettlesOnCheckout:
		return s.settle(ctx, order, variant, "")
	default:
		return order, nil
	}
}

// BeginGatewayInput records that the buyer was sent to a hosted payment page.
func (s *OrderService) BeginGatewayInput(ctx context.Context, sessionKey string) (*domain.Order, error) {
	id, err := s.sessions.Lookup(ctx, sessionKey)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	order, err := s.mutate(ctx, id, true, func(tx ports.Tx, o *domain.Order) error {
		if err := o.RequireStatus("start payment input for", domain.StatusWaiting); err != nil {
			return err
		}
		if o.Variant == "" {
			return &domain.StateError{OrderID: o.ID, Status: o.Status, Op: "start payment input before checkout for"}
		}
		variant, err := s.variants.Variant(o.Variant)
		if err != nil {
			return err
		}
		if variant.Capabilities().RequiresPreauth {
			return &domain.StateError{OrderID: o.ID, Status: o.Status, Op: "start payment input with a preauth variant for"}
		}

		o.Status = domain.StatusInput
		o.Touch(s.clock.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.OrderTransition(string(order.Status), order.Variant)
	return order, nil
}

// Finalize completes payment. It is a no-op for orders that already reached
// a terminal status.
func (s *OrderService) Finalize(ctx context.Context, sessionKey string) (*domain.Order, error) {
	id, err := s.sessions.Lookup(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	return s.FinalizeOrder(ctx, id)
}

func (s *OrderService) FinalizeOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	current, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if current.Status.Terminal() {
		return current, nil
	}
	if current.Variant == "" {
		return nil, &domain.StateError{OrderID: current.ID, Status: current.Status, Op: "finalize unpaid"}
	}

	variant, err := s.variants.Variant(current.Variant)
	if err != nil {
		return nil, err
	}

	allowed := []domain.PaymentStatus{domain.StatusPreauth}
	if !variant.Capabilities().RequiresPreauth {
		allowed = []domain.PaymentStatus{domain.StatusWaiting, domain.StatusInput}
	}

	order, err := s.mutate(ctx, orderID, true, func(tx ports.Tx, o *domain.Order) error {
		if err := o.RequireStatus("finalize", allowed...); err != nil {
			return err
		}
		o.Touch(s.clock.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	token := ""
	if order.Status == domain.StatusPreauth {
		token = order.GatewayToken
	}
	return s.settle(ctx, order, variant, token)
}

func (s *OrderService) authorize(ctx context.Context, order *domain.Order, variant ports.PaymentVariant) (*domain.Order, error) {
	token, err := variant.Authorize(ctx, order)
	if err != nil {
		return nil, s.gatewayFailure(order, variant, "authorize", err)
	}

	authorized, err := s.apply(ctx, order.ID, order.Version, func(tx ports.Tx, o *domain.Order) error {
		o.Status = domain.StatusPreauth
		o.GatewayToken = token
		return nil
	})
	if err != nil {
		s.release(ctx, order, variant, token, domain.StatusPreauth)
		return nil, err
	}

	metrics.OrderTransition(string(authorized.Status), variant.Name())
	s.log.Info("payment authorized",
		slog.String("order_id", authorized.ID.String()),
		slog.String("variant", variant.Name()),
	)
	return authorized, nil
}

// settle captures funds and confirms the order. A deferred settlement
// confirms the sale but leaves IsConfirmed false until an operator
// records the payment.
func (s *OrderService) settle(ctx context.Context, order *domain.Order, variant ports.PaymentVariant, token string) (*domain.Order, error) {
	result, err := variant.Capture(ctx, order, token)
	if err != nil {
		return nil, s.gatewayFailure(order, variant, "capture", err)
	}

	confirmed, err := s.apply(ctx, order.ID, order.Version, func(tx ports.Tx, o *domain.Order) error {
		channel := domain.SoldAsPresaleOnline
		o.IsConfirmed = true
		if result.Settlement == domain.SettlementDeferred {
			channel = domain.SoldAsPresaleOnlineWaiting
			o.IsConfirmed = false
		}

		sold, err := s.ledger.MarkSold(ctx, tx, o.Tickets, channel)
		if err != nil {
			return err
		}
		o.Tickets = sold
		o.Status = domain.StatusConfirmed
		if result.Token != "" {
			o.GatewayToken = result.Token
		}
		return nil
	})
	if err != nil {
		if result.Settlement == domain.SettlementComplete {
			captured := token
			if result.Token != "" {
				captured = result.Token
			}
			s.release(ctx, order, variant, captured, domain.StatusConfirmed)
		}
		return nil, err
	}

	metrics.OrderTransition(string(confirmed.Status), variant.Name())
	s.log.Info("order confirmed",
		slog.String("order_id", confirmed.ID.String()),
		slog.String("variant", variant.Name()),
		slog.String("settlement", result.Settlement.String()),
		slog.String("total", confirmed.Total.StringFixed(2)),
	)
	s.notify(ctx, confirmed)
	return confirmed, nil
}

// release gives back funds held for an order that changed while the
// gateway call was in flight. held is the status the funds correspond to.
func (s *OrderService) release(ctx context.Context, order *domain.Order, variant ports.PaymentVariant, token string, held domain.PaymentStatus) {
	snapshot := order.Clone()
	snapshot.Status = held
	if token != "" {
		snapshot.GatewayToken = token
	}

	s.log.Warn("order changed during gateway call, releasing funds",
		slog.String("order_id", order.ID.String()),
		slog.String("variant", variant.Name()),
	)
	if err := variant.Refund(context.WithoutCancel(ctx), snapshot, token, nil); err != nil {
		metrics.GatewayFailure(variant.Name(), "refund")
		s.log.Error("releasing funds failed",
			slog.String("order_id", order.ID.String()),
			slog.Any("error", err),
		)
	}
}

func (s *OrderService) gatewayFailure(order *domain.Order, variant ports.PaymentVariant, op string, err error) error {
	metrics.GatewayFailure(variant.Name(), op)
	s.log.Error("payment gateway call failed",
		slog.String("order_id", order.ID.String()),
		slog.String("variant", variant.Name()),
		slog.String("operation", op),
		slog.Any("error", err),
	)

	var gerr *domain.GatewayError
	if errors.As(err, &gerr) {
		return gerr
	}
	return &domain.GatewayError{Variant: variant.Name(), Op: op, Err: err}
}
