package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Kreolis/cinema-ticketing/internal/core/domain"
	"github.com/Kreolis/cinema-ticketing/internal/core/ports"
	"github.com/Kreolis/cinema-ticketing/internal/platform/metrics"
)

// doorVariant names orders paid at the box office. No gateway is involved.
const doorVariant = "door"

type DoorSaleRequest struct {
	EventID      uuid.UUID `json:"-"`
	PriceClassID uuid.UUID `json:"price_class_id"`
	Quantity     int       `json:"quantity"`
	Email        string    `json:"email,omitempty"`
}

// SellAtDoor records a box-office sale as a new order that is confirmed and
// paid at once. Secret price classes are available and the presale window
// does not apply; tickets sold before it closes are marked presale_door.
func (s *OrderService) SellAtDoor(ctx context.Context, req DoorSaleRequest) (*domain.Order, error) {
	email := strings.TrimSpace(req.Email)
	if email != "" {
		if err := domain.ValidateEmail(email); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	order := domain.NewOrder(NewSessionKey(), now, s.cfg.Timeout, s.cfg.Currency)

	err := s.store.WithTx(ctx, func(tx ports.Tx) error {
		if _, err := tx.InsertOrder(ctx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		tickets, err := s.ledger.Reserve(ctx, tx, ReserveRequest{
			EventID:      req.EventID,
			PriceClassID: req.PriceClassID,
			Quantity:     req.Quantity,
			OrderID:      order.ID,
			Door:         true,
		})
		if err != nil {
			return err
		}

		event, err := tx.GetEvent(ctx, req.EventID)
		if err != nil {
			return err
		}
		for i := range tickets {
			tickets[i].Email = email
		}
		sold, err := s.ledger.MarkSold(ctx, tx, tickets, event.DoorChannel(now))
		if err != nil {
			return err
		}

		order.Tickets = sold
		if err := s.recompute(ctx, tx, order); err != nil {
			return err
		}
		order.Billing.Email = email
		order.Variant = doorVariant
		order.Status = domain.StatusConfirmed
		order.IsConfirmed = true
		order.Version++
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, req.EventID)
	metrics.OrderTransition(string(domain.StatusConfirmed), doorVariant)
	s.log.Info("door sale recorded",
		slog.String("order_id", order.ID.String()),
		slog.String("event_id", req.EventID.String()),
		slog.Int("count", len(order.Tickets)),
		slog.String("sold_as", string(order.Tickets[0].SoldAs)),
		slog.String("total", order.Total.StringFixed(2)),
	)
	if email != "" {
		s.notify(ctx, order)
	}
	return order, nil
}
