package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kreolis/cinema-ticketing/internal/core/domain"
	"github.com/Kreolis/cinema-ticketing/internal/core/ports"
)

const orderColumns = `id, session_key, total, refunded, currency, status, variant, payment_source, gateway_token,
		billing, created_at, modified_at, timeout_seconds, is_confirmed, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o       domain.Order
		billing []byte
		timeout int64
	)

	err := row.Scan(
		&o.ID,
		&o.SessionKey,
		&o.Total,
		&o.Refunded,
		&o.Currency,
		&o.Status,
		&o.Variant,
		&o.PaymentSource,
		&o.GatewayToken,
		&billing,
		&o.CreatedAt,
		&o.ModifiedAt,
		&timeout,
		&o.IsConfirmed,
		&o.Version,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(billing, &o.Billing); err != nil {
		return nil, fmt.Errorf("failed to decode billing: %w", err)
	}
	o.Timeout = time.Duration(timeout) * time.Second
	return &o, nil
}

func (r *repo) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	return r.lockedOrder(ctx, query, orderID)
}

func (r *repo) GetOrderBySession(ctx context.Context, sessionKey string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE session_key = $1 FOR UPDATE`
	return r.lockedOrder(ctx, query, sessionKey)
}

func (r *repo) lockedOrder(ctx context.Context, query string, arg any) (*domain.Order, error) {
	o, err := scanOrder(r.tx.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to read order: %w", err)
	}

	tickets, err := r.ticketsFor(ctx, []uuid.UUID{o.ID})
	if err != nil {
		return nil, err
	}
	o.Tickets = tickets[o.ID]
	return o, nil
}

func (r *repo) InsertOrder(ctx context.Context, order *domain.Order) (bool, error) {
	billing, err := json.Marshal(order.Billing)
	if err != nil {
		return false, err
	}

	query := `
	INSERT INTO orders (` + orderColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (session_key) DO NOTHING
	`

	res, err := r.tx.ExecContext(ctx, query,
		order.ID, order.SessionKey, order.Total, order.Refunded, order.Currency, order.Status, order.Variant,
		order.PaymentSource, order.GatewayToken, billing, order.CreatedAt, order.ModifiedAt,
		int64(order.Timeout/time.Second), order.IsConfirmed, order.Version,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert order: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *repo) UpdateOrder(ctx context.Context, order *domain.Order) error {
	billing, err := json.Marshal(order.Billing)
	if err != nil {
		return err
	}

	query := `
	UPDATE orders
	SET session_key = $1, total = $2, refunded = $3, currency = $4, status = $5, variant = $6,
		payment_source = $7, gateway_token = $8, billing = $9, modified_at = $10, timeout_seconds = $11,
		is_confirmed = $12, version = $13
	WHERE id = $14
	`

	res, err := r.tx.ExecContext(ctx, query,
		order.SessionKey, order.Total, order.Refunded, order.Currency, order.Status, order.Variant, order.PaymentSource,
		order.GatewayToken, billing, order.ModifiedAt, int64(order.Timeout/time.Second), order.IsConfirmed,
		order.Version, order.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("session key already bound: %w", err)
		}
		return fmt.Errorf("failed to update order: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *repo) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	res, err := r.tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *repo) ListExpiryCandidates(ctx context.Context, now time.Time, limit int) ([]ports.ExpiryCandidate, error) {
	query := `
	SELECT id, version FROM orders
	WHERE status NOT IN ($1, $2)
		AND modified_at < $3::timestamptz - timeout_seconds * INTERVAL '1 second'
	ORDER BY modified_at
	LIMIT $4
	`

	var max sql.NullInt64
	if limit > 0 {
		max = sql.NullInt64{Int64: int64(limit), Valid: true}
	}

	rows, err := r.tx.QueryContext(ctx, query, domain.StatusConfirmed, domain.StatusRefunded, now, max)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired orders: %w", err)
	}

	defer rows.Close()

	var candidates []ports.ExpiryCandidate
	for rows.Next() {
		var c ports.ExpiryCandidate
		if err := rows.Scan(&c.OrderID, &c.Version); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

func (r *repo) ListOrders(ctx context.Context, filter ports.OrderFilter) ([]*domain.Order, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.IsConfirmed != nil {
		args = append(args, *filter.IsConfirmed)
		conds = append(conds, fmt.Sprintf("is_confirmed = $%d", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at`

	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	defer rows.Close()

	var (
		orders []*domain.Order
		ids    []uuid.UUID
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tickets, err := r.ticketsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		o.Tickets = tickets[o.ID]
	}
	return orders, nil
}
