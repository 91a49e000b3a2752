package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/gridwatt/energymarket/internal/types"
)

// Settle applies a proposed trade as one transaction. Both order rows are
// locked with FOR UPDATE (in id order, shared with CancelOrder's lock, so
// cancellation and settlement serialize and exactly one wins), re-validated
// against the live state, reduced, and the token and energy movements are
// applied before the trade row is inserted as Completed. Any failure rolls
// the whole unit back.
func (s *Store) Settle(ctx context.Context, trade *types.Trade, feeCollector string) error {
	if trade.Status != types.TradePending {
		return fmt.Errorf("%w: trade %s is %s, not pending", types.ErrInvalidState, trade.ID, trade.Status)
	}
	if !trade.EnergyAmount.IsPositive() {
		return fmt.Errorf("%w: trade amount must be positive", types.ErrInvalidAmount)
	}
	if trade.FeeAmount.IsPositive() && feeCollector == "" {
		return fmt.Errorf("%w: fee without a collector account", types.ErrInternal)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return internalErr("begin settlement", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	// Lock both orders in id order to avoid lock-order inversion between
	// concurrent settlements sharing an order.
	rows, err := tx.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1 OR id = $2
		ORDER BY id
		FOR UPDATE`, trade.BuyOrderID, trade.SellOrderID)
	if err != nil {
		return internalErr("lock orders", err)
	}
	locked, err := collectOrders(rows)
	if err != nil {
		return err
	}
	if len(locked) != 2 {
		return fmt.Errorf("%w: settlement orders not found", types.ErrConflict)
	}

	var buy, sell *types.Order
	for _, o := range locked {
		switch o.ID {
		case trade.BuyOrderID:
			buy = o
		case trade.SellOrderID:
			sell = o
		}
	}
	if buy == nil || sell == nil {
		return fmt.Errorf("%w: settlement orders not found", types.ErrConflict)
	}

	// Optimistic re-validation against the now-locked rows.
	if err := revalidateSide(buy, types.Buy, trade, now); err != nil {
		return err
	}
	if err := revalidateSide(sell, types.Sell, trade, now); err != nil {
		return err
	}

	for _, o := range []*types.Order{buy, sell} {
		remaining := o.EnergyAmount.Sub(trade.EnergyAmount)
		status := types.OrderActive
		if remaining.IsZero() {
			status = types.OrderCompleted
		}
		if _, err := tx.Exec(ctx, `
			UPDATE orders
			SET energy_amount = $2, total_price = $2 * price_per_unit, status = $3, updated_at = $4
			WHERE id = $1`, o.ID, remaining, status, now); err != nil {
			return internalErr("reduce order", err)
		}
	}

	// The buyer pays the full value; the seller receives value minus fee.
	total := trade.TotalPrice
	tag, err := tx.Exec(ctx, `
		UPDATE prosumers
		SET watt_tokens = watt_tokens - $1,
		    energy_consumed = energy_consumed + $2,
		    updated_at = $3
		WHERE address = $4 AND watt_tokens >= $1`,
		total, trade.EnergyAmount, now, trade.BuyerAddress)
	if err != nil {
		return internalErr("debit buyer", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: buyer %s cannot cover %s watt",
			types.ErrInsufficientFunds, trade.BuyerAddress, total)
	}

	proceeds := total.Sub(trade.FeeAmount)
	if _, err := tx.Exec(ctx, `
		UPDATE prosumers
		SET watt_tokens = watt_tokens + $1,
		    energy_generated = energy_generated + $2,
		    updated_at = $3
		WHERE address = $4`,
		proceeds, trade.EnergyAmount, now, trade.SellerAddress); err != nil {
		return internalErr("credit seller", err)
	}

	if trade.FeeAmount.IsPositive() && feeCollector != "" {
		tag, err := tx.Exec(ctx, `
			UPDATE prosumers SET watt_tokens = watt_tokens + $1, updated_at = $2
			WHERE address = $3`, trade.FeeAmount, now, feeCollector)
		if err != nil {
			return internalErr("credit fee collector", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: fee collector %q not found", types.ErrInternal, feeCollector)
		}
	}

	trade.Status = types.TradeCompleted
	trade.ExecutedAt = now
	if _, err := tx.Exec(ctx, insertTradeSQL,
		trade.ID, trade.BuyOrderID, trade.SellOrderID, trade.BuyerAddress, trade.SellerAddress,
		trade.EnergyAmount, trade.PricePerUnit, trade.TotalPrice, trade.FeeAmount,
		trade.Status, trade.FailureReason, trade.ExecutedAt, trade.CreatedAt); err != nil {
		trade.Status = types.TradePending
		return internalErr("record settled trade", err)
	}

	if err := tx.Commit(ctx); err != nil {
		trade.Status = types.TradePending
		return internalErr("commit settlement", err)
	}
	return nil
}

func revalidateSide(o *types.Order, side types.Side, trade *types.Trade, now time.Time) error {
	if o.Side != side {
		return fmt.Errorf("%w: order %s is a %s order", types.ErrConflict, o.ID, o.Side)
	}
	if !o.Matchable(now) {
		return fmt.Errorf("%w: order %s is no longer matchable (status %s)", types.ErrConflict, o.ID, o.Status)
	}
	if o.EnergyAmount.LessThan(trade.EnergyAmount) {
		return fmt.Errorf("%w: order %s has %s remaining, trade needs %s",
			types.ErrConflict, o.ID, o.EnergyAmount, trade.EnergyAmount)
	}
	return nil
}
