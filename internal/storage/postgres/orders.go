package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gridwatt/energymarket/internal/storage"
	"github.com/gridwatt/energymarket/internal/types"
)

const orderColumns = `id, prosumer_address, side, energy_amount, price_per_unit, total_price, status, created_at, updated_at, expires_at`

func scanOrder(row pgx.Row) (*types.Order, error) {
	var o types.Order
	err := row.Scan(&o.ID, &o.ProsumerAddress, &o.Side, &o.EnergyAmount, &o.PricePerUnit,
		&o.TotalPrice, &o.Status, &o.CreatedAt, &o.UpdatedAt, &o.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrder inserts a new order row.
func (s *Store) CreateOrder(ctx context.Context, order *types.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO orders (id, prosumer_address, side, energy_amount, price_per_unit, total_price, status, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		order.ID, order.ProsumerAddress, order.Side, order.EnergyAmount, order.PricePerUnit,
		order.TotalPrice, order.Status, order.CreatedAt, order.UpdatedAt, order.ExpiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: order %s", types.ErrAlreadyExists, order.ID)
		}
		return internalErr("create order", err)
	}
	return nil
}

// GetOrder retrieves an order by id.
func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*types.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: order %s", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, internalErr("get order", err)
	}
	return o, nil
}

// ListOrders returns orders matching the filter, created_at ascending.
func (s *Store) ListOrders(ctx context.Context, filter storage.OrderFilter) ([]*types.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Side != "" {
		args = append(args, filter.Side)
		query += fmt.Sprintf(" AND side = $%d", len(args))
	}
	if filter.Owner != "" {
		args = append(args, filter.Owner)
		query += fmt.Sprintf(" AND prosumer_address = $%d", len(args))
	}

	limit, offset := window(filter.Page, filter.Limit)
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, internalErr("list orders", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

// ActiveOrders returns matchable orders for one side, created_at ascending.
func (s *Store) ActiveOrders(ctx context.Context, side types.Side, now time.Time) ([]*types.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = 'active'
		  AND side = $1
		  AND energy_amount > 0
		  AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY created_at ASC`, side, now)
	if err != nil {
		return nil, internalErr("active orders", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

// CancelOrder transitions an Active order to Cancelled inside one
// transaction; the row lock makes cancellation and settlement mutually
// exclusive, so exactly one wins.
func (s *Store) CancelOrder(ctx context.Context, id uuid.UUID, requester string, admin bool) (*types.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, internalErr("begin cancel", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: order %s", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, internalErr("lock order", err)
	}

	if !admin && o.ProsumerAddress != requester {
		return nil, fmt.Errorf("%w: order %s is not owned by %q", types.ErrForbidden, id, requester)
	}
	if o.Status != types.OrderActive {
		return nil, fmt.Errorf("%w: order %s is %s", types.ErrInvalidState, id, o.Status)
	}

	row = tx.QueryRow(ctx, `
		UPDATE orders SET status = 'cancelled', updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns, id)
	o, err = scanOrder(row)
	if err != nil {
		return nil, internalErr("cancel order", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, internalErr("commit cancel", err)
	}
	return o, nil
}

// ExpireDue sweeps past-expiry Active orders into Expired.
func (s *Store) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `
		UPDATE orders SET status = 'expired', updated_at = $1
		WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, internalErr("expire orders", err)
	}
	return tag.RowsAffected(), nil
}

func collectOrders(rows pgx.Rows) ([]*types.Order, error) {
	var out []*types.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, internalErr("scan order", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, internalErr("read orders", err)
	}
	return out, nil
}
