package notifier

import (
	"context"
	"log/slog"

	"github.com/Kreolis/cinema-ticketing/internal/core/ports"
)

// Log writes order events to the logger. Used when no broker is configured.
type Log struct {
	log *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{log: logger}
}

func (l *Log) NotifyOrderConfirmed(ctx context.Context, event ports.OrderConfirmed) error {
	l.log.InfoContext(ctx, "order notification",
		slog.String("order_id", event.OrderID.String()),
		slog.Bool("is_confirmed", event.IsConfirmed),
		slog.String("total", event.Total.StringFixed(2)),
		slog.String("currency", event.Currency),
		slog.Int("tickets", len(event.TicketIDs)),
	)
	return nil
}
