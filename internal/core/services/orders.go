package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Kreolis/cinema-ticketing/internal/core/domain"
	"github.com/Kreolis/cinema-ticketing/internal/core/ports"
	"github.com/Kreolis/cinema-ticketing/internal/platform/clock"
	"github.com/Kreolis/cinema-ticketing/internal/platform/metrics"
)

const notifyTimeout = 10 * time.Second

type TicketRequest struct {
	EventID      uuid.UUID `json:"event_id"`
	PriceClassID uuid.UUID `json:"price_class_id"`
	Quantity     int       `json:"quantity"`
}

type CheckoutRequest struct {
	Billing       domain.BillingInfo `json:"billing"`
	Variant       string             `json:"variant"`
	PaymentSource string             `json:"payment_source,omitempty"`
}

// DeleteResult reports a refused deletion as a warning rather than an error.
type DeleteResult struct {
	Deleted bool   `json:"deleted"`
	Warning string `json:"warning,omitempty"`
}

type Deps struct {
	Store    ports.Store
	Ledger   *Ledger
	Sessions *SessionMap
	Variants ports.VariantRegistry
	Notifier ports.OrderNotifier
	Cache    ports.AvailabilityCache
	Clock    clock.Clock
	Logger   *slog.Logger
}

type OrderService struct {
	store    ports.Store
	ledger   *Ledger
	sessions *SessionMap
	variants ports.VariantRegistry
	notifier ports.OrderNotifier
	cache    ports.AvailabilityCache
	clock    clock.Clock
	log      *slog.Logger
	cfg      OrderConfig

	locks   *orderLocks
	pending sync.WaitGroup
}

func NewOrderService(deps Deps, cfg OrderConfig) *OrderService {
	s := &OrderService{
		store:    deps.Store,
		ledger:   deps.Ledger,
		sessions: deps.Sessions,
		variants: deps.Variants,
		notifier: deps.Notifier,
		cache:    deps.Cache,
		clock:    deps.Clock,
		log:      deps.Logger,
		cfg:      cfg.withDefaults(),
		locks:    newOrderLocks(),
	}
	if deps.Sessions != nil {
		deps.Sessions.onReplaced = s.abandon
	}
	return s
}

// Get returns the session's active order, creating an empty one if needed.
func (s *OrderService) Get(ctx context.Context, sessionKey string) (*domain.Order, error) {
	return s.sessions.GetOrCreateOrder(ctx, sessionKey)
}

func (s *OrderService) AddTickets(ctx context.Context, sessionKey string, req TicketRequest) (*domain.Order, error) {
	current, err := s.sessions.GetOrCreateOrder(ctx, sessionKey)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(current.ID)
	defer unlock()

	order, err := s.mutate(ctx, current.ID, true, func(tx ports.Tx, o *domain.Order) error {
		if err := o.RequireStatus("add tickets to", domain.StatusWaiting); err != nil {
			return err
		}

		tickets, err := s.ledger.Reserve(ctx, tx, ReserveRequest{
			EventID:      req.EventID,
			PriceClassID: req.PriceClassID,
			Quantity:     req.Quantity,
			OrderID:      o.ID,
		})
		if err != nil {
			return err
		}

		o.Tickets = append(o.Tickets, tickets...)
		return s.recompute(ctx, tx, o)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, req.EventID)
	s.log.Info("tickets reserved",
		slog.String("order_id", order.ID.String()),
		slog.String("event_id", req.EventID.String()),
		slog.Int("count", req.Quantity),
		slog.String("total", order.Total.StringFixed(2)),
	)
	return order, nil
}

func (s *OrderService) RemoveTicket(ctx context.Context, sessionKey string, ticketID uuid.UUID) (*domain.Order, error) {
	id, err := s.sessions.Lookup(ctx, sessionKey)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	var eventID uuid.UUID
	order, err := s.mutate(ctx, id, true, func(tx ports.Tx, o *domain.Order) error {
		if err := o.RequireStatus("remove tickets from", domain.StatusWaiting); err != nil {
			return err
		}

		ticket, ok := o.Ticket(ticketID)
		if !ok {
			return domain.ErrTicketNotFound
		}
		eventID = ticket.EventID

		if err := s.ledger.Release(ctx, tx, []domain.Ticket{ticket}); err != nil {
			return err
		}

		kept := o.Tickets[:0]
		for _, t := range o.Tickets {
			if t.ID != ticketID {
				kept = append(kept, t)
			}
		}
		o.Tickets = kept
		return s.recompute(ctx, tx, o)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, eventID)
	return order, nil
}

// UpdateTicketEmails sets the holder address on every ticket of the order.
func (s *OrderService) UpdateTicketEmails(ctx context.Context, sessionKey, email string) (*domain.Order, error) {
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}

	id, err := s.sessions.Lookup(ctx, sessionKey)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	return s.mutate(ctx, id, true, func(tx ports.Tx, o *domain.Order) error {
		if err := o.RequireStatus("edit tickets of", domain.StatusWaiting); err != nil {
			return err
		}
		for i := range o.Tickets {
			o.Tickets[i].Email = email
		}
		if err := tx.UpdateTickets(ctx, o.Tickets); err != nil {
			return fmt.Errorf("update ticket emails: %w", err)
		}
		o.Touch(s.clock.Now())
		return nil
	})
}

func (s *OrderService) ListAwaitingConfirmation(ctx context.Context) ([]*domain.Order, error) {
	status := domain.StatusConfirmed
	confirmed := false

	var orders []*domain.Order
	err := s.store.WithTx(ctx, func(tx ports.Tx) error {
		var err error
		orders, err = tx.ListOrders(ctx, ports.OrderFilter{Status: &status, IsConfirmed: &confirmed})
		return err
	})
	return orders, err
}

// ConfirmPayment records that an offline payment arrived.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	changed := false
	order, err := s.mutate(ctx, orderID, false, func(tx ports.Tx, o *domain.Order) error {
		if err := o.RequireStatus("confirm payment of", domain.StatusConfirmed); err != nil {
			return err
		}
		if o.IsConfirmed {
			return nil
		}

		sold, err := s.ledger.MarkSold(ctx, tx, o.Tickets, domain.SoldAsPresaleOnline)
		if err != nil {
			return err
		}
		o.Tickets = sold
		o.IsConfirmed = true
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.Info("payment confirmed by operator", slog.String("order_id", orderID.String()))
		s.notify(ctx, order)
	}
	return order, nil
}

// Refund pays back amount, or the whole remaining balance when amount is
// nil. The order becomes REFUNDED and its seats return to inventory only
// once nothing is left to refund.
func (s *OrderService) Refund(ctx context.Context, orderID uuid.UUID, amount *decimal.Decimal) (*domain.Order, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.RequireStatus("refund", domain.StatusConfirmed); err != nil {
		return nil, err
	}

	balance := order.Balance()
	refund := balance
	if amount != nil {
		if !amount.IsPositive() || amount.GreaterThan(balance) {
			return nil, domain.NewValidationError("amount", "must be positive and not exceed the refundable balance")
		}
		refund = *amount
	}
	full := refund.Equal(balance)

	if order.Variant != doorVariant {
		variant, err := s.variants.Variant(order.Variant)
		if err != nil {
			return nil, err
		}
		var partial *decimal.Decimal
		if !full || order.Refunded.IsPositive() {
			partial = &refund
		}
		if err := variant.Refund(ctx, order, order.GatewayToken, partial); err != nil {
			return nil, s.gatewayFailure(order, variant, "refund", err)
		}
	}

	refunded, err := s.mutate(ctx, orderID, false, func(tx ports.Tx, o *domain.Order) error {
		o.Refunded = o.Refunded.Add(refund)
		if !full {
			return nil
		}
		sold, err := s.ledger.MarkSold(ctx, tx, o.Tickets, domain.SoldAsRefunded)
		if err != nil {
			return err
		}
		o.Tickets = sold
		o.Status = domain.StatusRefunded
		return nil
	})
	if err != nil {
		s.log.Error("refund issued but order not updated",
			slog.String("order_id", orderID.String()),
			slog.String("amount", refund.StringFixed(2)),
			slog.Any("error", err),
		)
		return nil, err
	}

	s.log.Info("order refunded",
		slog.String("order_id", orderID.String()),
		slog.String("amount", refund.StringFixed(2)),
		slog.Bool("full", full),
	)
	if full {
		metrics.OrderTransition(string(domain.StatusRefunded), refunded.Variant)
		s.invalidateOrder(ctx, refunded)
	}
	return refunded, nil
}

// Delete releases the order's tickets and removes it. Confirmed orders are
// kept, with a warning, unless the configuration allows deleting them.
func (s *OrderService) Delete(ctx context.Context, orderID uuid.UUID) (DeleteResult, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	var (
		result  DeleteResult
		deleted *domain.Order
	)
	err := s.store.WithTx(ctx, func(tx ports.Tx) error {
		o, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == domain.StatusConfirmed && !s.cfg.AllowDeleteConfirmed {
			result.Warning = "confirmed orders cannot be deleted"
			return nil
		}

		if err := s.ledger.Release(ctx, tx, o.Tickets); err != nil {
			return err
		}
		if err := tx.DeleteOrder(ctx, o.ID); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		result.Deleted = true
		deleted = o
		return nil
	})
	if err != nil {
		return DeleteResult{}, err
	}

	if result.Deleted {
		s.log.Info("order deleted", slog.String("order_id", orderID.String()))
		s.abandon(ctx, deleted)
	} else {
		s.log.Warn("order deletion refused",
			slog.String("order_id", orderID.String()),
			slog.String("reason", result.Warning),
		)
	}
	return result, nil
}

// Availability returns the remaining seats for an event, cached.
func (s *OrderService) Availability(ctx context.Context, eventID uuid.UUID) (int, error) {
	remaining, ok, err := s.cache.GetAvailability(ctx, eventID)
	if err != nil {
		s.log.Warn("availability cache read failed", slog.String("event_id", eventID.String()), slog.Any("error", err))
	} else if ok {
		return remaining, nil
	}

	err = s.store.WithTx(ctx, func(tx ports.Tx) error {
		var err error
		remaining, err = s.ledger.Remaining(ctx, tx, eventID)
		return err
	})
	if err != nil {
		return 0, err
	}

	if err := s.cache.SetAvailability(ctx, eventID, remaining); err != nil {
		s.log.Warn("availability cache write failed", slog.String("event_id", eventID.String()), slog.Any("error", err))
	}
	return remaining, nil
}

// WaitNotifications blocks until in-flight notifications have been handed off.
func (s *OrderService) WaitNotifications() {
	s.pending.Wait()
}

func (s *OrderService) load(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	var order *domain.Order
	err := s.store.WithTx(ctx, func(tx ports.Tx) error {
		var err error
		order, err = tx.GetOrder(ctx, orderID)
		return err
	})
	return order, err
}

// mutate applies fn to the locked order and persists it with a new version.
// When checkExpiry is set an expired order is rejected before fn runs.
func (s *OrderService) mutate(ctx context.Context, orderID uuid.UUID, checkExpiry bool, fn func(tx ports.Tx, o *domain.Order) error) (*domain.Order, error) {
	var order *domain.Order
	err := s.store.WithTx(ctx, func(tx ports.Tx) error {
		o, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if checkExpiry && o.IsExpired(s.clock.Now()) {
			return domain.ErrOrderExpired
		}

		if err := fn(tx, o); err != nil {
			return err
		}

		o.Version++
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// apply is mutate guarded by the version observed before a gateway call.
func (s *OrderService) apply(ctx context.Context, orderID uuid.UUID, version int64, fn func(tx ports.Tx, o *domain.Order) error) (*domain.Order, error) {
	order, err := s.mutate(ctx, orderID, false, func(tx ports.Tx, o *domain.Order) error {
		if o.Version != version {
			return domain.ErrOrderChanged
		}
		return fn(tx, o)
	})
	if errors.Is(err, domain.ErrOrderNotFound) {
		return nil, domain.ErrOrderChanged
	}
	return order, err
}

func (s *OrderService) recompute(ctx context.Context, tx ports.Tx, o *domain.Order) error {
	prices, err := tx.PriceClassPrices(ctx, o.PriceClassIDs())
	if err != nil {
		return fmt.Errorf("load prices: %w", err)
	}
	if err := o.RecomputeTotal(prices); err != nil {
		return err
	}
	o.Touch(s.clock.Now())
	return nil
}

func (s *OrderService) invalidate(ctx context.Context, eventIDs ...uuid.UUID) {
	seen := make(map[uuid.UUID]struct{}, len(eventIDs))
	for _, id := range eventIDs {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		if err := s.cache.Invalidate(ctx, id); err != nil {
			s.log.Warn("availability cache invalidation failed", slog.String("event_id", id.String()), slog.Any("error", err))
		}
	}
}

func (s *OrderService) invalidateOrder(ctx context.Context, o *domain.Order) {
	ids := make([]uuid.UUID, len(o.Tickets))
	for i, t := range o.Tickets {
		ids[i] = t.EventID
	}
	s.invalidate(ctx, ids...)
}

// abandon follows up on an unpaid order removed outside the sweeper: cached
// availability for its events is dropped and a held authorization is
// reversed.
func (s *OrderService) abandon(ctx context.Context, o *domain.Order) {
	s.invalidateOrder(ctx, o)
	if o.Status != domain.StatusPreauth || o.GatewayToken == "" {
		return
	}

	variant, err := s.variants.Variant(o.Variant)
	if err != nil {
		s.log.Error("cannot release authorization",
			slog.String("order_id", o.ID.String()),
			slog.Any("error", err),
		)
		return
	}
	if err := variant.Refund(context.WithoutCancel(ctx), o, o.GatewayToken, nil); err != nil {
		metrics.GatewayFailure(variant.Name(), "refund")
		s.log.Error("releasing authorization failed",
			slog.String("order_id", o.ID.String()),
			slog.Any("error", err),
		)
		return
	}
	s.log.Info("authorization released", slog.String("order_id", o.ID.String()))
}

func (s *OrderService) notify(ctx context.Context, o *domain.Order) {
	event := ports.OrderConfirmed{
		OrderID:      o.ID,
		BillingEmail: o.Billing.Email,
		IsConfirmed:  o.IsConfirmed,
		Total:        o.Total,
		Currency:     o.Currency,
		TicketIDs:    o.TicketIDs(),
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		if err := s.notifier.NotifyOrderConfirmed(notifyCtx, event); err != nil {
			s.log.Error("order notification failed",
				slog.String("order_id", event.OrderID.String()),
				slog.Any("error", err),
			)
		}
	}()
}
