package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Kreolis/cinema-ticketing/internal/core/domain"
)

func (r *repo) CountActiveTickets(ctx context.Context, eventID uuid.UUID) (int, error) {
	var n int
	err := r.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tickets WHERE event_id = $1 AND sold_as <> $2`,
		eventID, domain.SoldAsRefunded,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count tickets: %w", err)
	}
	return n, nil
}

func (r *repo) MaxSeat(ctx context.Context, eventID uuid.UUID) (int, error) {
	var seat int
	err := r.tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seat), 0) FROM tickets WHERE event_id = $1`,
		eventID,
	).Scan(&seat)
	if err != nil {
		return 0, fmt.Errorf("failed to read max seat: %w", err)
	}
	return seat, nil
}

func (r *repo) InsertTickets(ctx context.Context, tickets []domain.Ticket) error {
	query := `
	INSERT INTO tickets (id, event_id, price_class_id, order_id, seat, sold_as, email, activated, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	stmt, err := r.tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare ticket statement: %w", err)
	}

	defer stmt.Close()

	for _, t := range tickets {
		_, err := stmt.ExecContext(ctx, t.ID, t.EventID, t.PriceClassID, t.OrderID, nullSeat(t.Seat), t.SoldAs, t.Email, t.Activated, t.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("seat already assigned for ticket %s: %w", t.ID, err)
			}
			return fmt.Errorf("failed to insert ticket %s: %w", t.ID, err)
		}
	}

	return nil
}

func (r *repo) UpdateTickets(ctx context.Context, tickets []domain.Ticket) error {
	query := `
	UPDATE tickets
	SET sold_as = $1, email = $2, activated = $3
	WHERE id = $4
	`

	stmt, err := r.tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare ticket update: %w", err)
	}

	defer stmt.Close()

	for _, t := range tickets {
		res, err := stmt.ExecContext(ctx, t.SoldAs, t.Email, t.Activated, t.ID)
		if err != nil {
			return fmt.Errorf("failed to update ticket %s: %w", t.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("ticket %s: %w", t.ID, domain.ErrTicketNotFound)
		}
	}

	return nil
}

func (r *repo) DeleteTickets(ctx context.Context, ticketIDs []uuid.UUID) error {
	if len(ticketIDs) == 0 {
		return nil
	}
	_, err := r.tx.ExecContext(ctx, `DELETE FROM tickets WHERE id = ANY($1::uuid[])`, pq.Array(uuidStrings(ticketIDs)))
	if err != nil {
		return fmt.Errorf("failed to delete tickets: %w", err)
	}
	return nil
}

func (r *repo) ticketsFor(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]domain.Ticket, error) {
	out := make(map[uuid.UUID][]domain.Ticket, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}

	query := `
	SELECT id, event_id, price_class_id, order_id, seat, sold_as, email, activated, created_at
	FROM tickets
	WHERE order_id = ANY($1::uuid[])
	ORDER BY created_at, seat NULLS LAST, id
	`

	rows, err := r.tx.QueryContext(ctx, query, pq.Array(uuidStrings(orderIDs)))
	if err != nil {
		return nil, fmt.Errorf("failed to read tickets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t    domain.Ticket
			seat sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.EventID, &t.PriceClassID, &t.OrderID, &seat, &t.SoldAs, &t.Email, &t.Activated, &t.CreatedAt); err != nil {
			return nil, err
		}
		if seat.Valid {
			s := int(seat.Int64)
			t.Seat = &s
		}
		out[t.OrderID] = append(out[t.OrderID], t)
	}

	return out, rows.Err()
}

func nullSeat(seat *int) sql.NullInt64 {
	if seat == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*seat), Valid: true}
}
