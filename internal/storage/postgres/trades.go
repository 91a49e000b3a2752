package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gridwatt/energymarket/internal/types"
)

const tradeColumns = `id, buy_order_id, sell_order_id, buyer_address, seller_address, energy_amount, price_per_unit, total_price, fee_amount, status, failure_reason, executed_at, created_at`

func scanTrade(row pgx.Row) (*types.Trade, error) {
	var t types.Trade
	err := row.Scan(&t.ID, &t.BuyOrderID, &t.SellOrderID, &t.BuyerAddress, &t.SellerAddress,
		&t.EnergyAmount, &t.PricePerUnit, &t.TotalPrice, &t.FeeAmount, &t.Status,
		&t.FailureReason, &t.ExecutedAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// RecordTrade inserts a trade in its final status.
func (s *Store) RecordTrade(ctx context.Context, trade *types.Trade) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx, insertTradeSQL,
		trade.ID, trade.BuyOrderID, trade.SellOrderID, trade.BuyerAddress, trade.SellerAddress,
		trade.EnergyAmount, trade.PricePerUnit, trade.TotalPrice, trade.FeeAmount,
		trade.Status, trade.FailureReason, trade.ExecutedAt, trade.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: trade %s", types.ErrAlreadyExists, trade.ID)
		}
		return internalErr("record trade", err)
	}
	return nil
}

const insertTradeSQL = `
	INSERT INTO trades (id, buy_order_id, sell_order_id, buyer_address, seller_address, energy_amount, price_per_unit, total_price, fee_amount, status, failure_reason, executed_at, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// GetTrade retrieves a trade by id.
func (s *Store) GetTrade(ctx context.Context, id uuid.UUID) (*types.Trade, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = $1`, id)
	t, err := scanTrade(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: trade %s", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, internalErr("get trade", err)
	}
	return t, nil
}

// ListTrades returns trades, most recent first.
func (s *Store) ListTrades(ctx context.Context, page, limit int) ([]*types.Trade, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	limit, offset := window(page, limit)
	rows, err := s.pool.Query(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, internalErr("list trades", err)
	}
	defer rows.Close()
	return collectTrades(rows)
}

// TradesByProsumer returns trades where the address is buyer or seller.
func (s *Store) TradesByProsumer(ctx context.Context, address string, page, limit int) ([]*types.Trade, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	limit, offset := window(page, limit)
	rows, err := s.pool.Query(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE buyer_address = $1 OR seller_address = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, address, limit, offset)
	if err != nil {
		return nil, internalErr("trades by prosumer", err)
	}
	defer rows.Close()
	return collectTrades(rows)
}

func collectTrades(rows pgx.Rows) ([]*types.Trade, error) {
	var out []*types.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, internalErr("scan trade", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, internalErr("read trades", err)
	}
	return out, nil
}
