package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/gridwatt/energymarket/internal/types"
)

// Settle applies a proposed trade atomically. Both order entries and every
// involved account are locked (in deterministic order) for the duration of
// the unit; all validation happens before the first mutation, so an abort
// leaves no partial effect.
//
// Token flow: the buyer pays the full trade value in watt tokens; the seller
// receives the value minus the fee; the fee is credited to the collector.
func (s *Store) Settle(ctx context.Context, trade *types.Trade, feeCollector string) error {
	if trade.Status != types.TradePending {
		return fmt.Errorf("%w: trade %s is %s, not pending", types.ErrInvalidState, trade.ID, trade.Status)
	}
	if !trade.EnergyAmount.IsPositive() {
		return fmt.Errorf("%w: trade amount must be positive", types.ErrInvalidAmount)
	}

	buyEntry, ok := s.lookupOrder(trade.BuyOrderID)
	if !ok {
		return fmt.Errorf("%w: buy order %s not found", types.ErrConflict, trade.BuyOrderID)
	}
	sellEntry, ok := s.lookupOrder(trade.SellOrderID)
	if !ok {
		return fmt.Errorf("%w: sell order %s not found", types.ErrConflict, trade.SellOrderID)
	}

	buyer, ok := s.lookupAccount(trade.BuyerAddress)
	if !ok {
		return fmt.Errorf("%w: buyer %q not found", types.ErrConflict, trade.BuyerAddress)
	}
	seller, ok := s.lookupAccount(trade.SellerAddress)
	if !ok {
		return fmt.Errorf("%w: seller %q not found", types.ErrConflict, trade.SellerAddress)
	}

	accounts := map[string]*account{
		trade.BuyerAddress:  buyer,
		trade.SellerAddress: seller,
	}
	var collector *account
	if trade.FeeAmount.IsPositive() {
		if feeCollector == "" {
			return fmt.Errorf("%w: fee without a collector account", types.ErrInternal)
		}
		collector, ok = s.lookupAccount(feeCollector)
		if !ok {
			return fmt.Errorf("%w: fee collector %q not found", types.ErrInternal, feeCollector)
		}
		accounts[feeCollector] = collector
	}

	now := time.Now().UTC()

	unlockOrders := lockOrders(buyEntry, sellEntry)
	defer unlockOrders()
	unlockAccounts := lockAccounts(accounts)
	defer unlockAccounts()

	// Optimistic re-validation: the engine proposed this trade from a
	// snapshot that may be stale by now.
	if err := revalidate(&buyEntry.o, types.Buy, trade, now); err != nil {
		return err
	}
	if err := revalidate(&sellEntry.o, types.Sell, trade, now); err != nil {
		return err
	}

	s.tradesMu.RLock()
	_, dup := s.trades[trade.ID]
	s.tradesMu.RUnlock()
	if dup {
		return fmt.Errorf("%w: trade %s", types.ErrAlreadyExists, trade.ID)
	}

	total := trade.TotalPrice
	if buyer.p.WattTokens.LessThan(total) {
		return fmt.Errorf("%w: buyer %s has %s watt, trade needs %s",
			types.ErrInsufficientFunds, trade.BuyerAddress, buyer.p.WattTokens, total)
	}

	// Everything checked; mutate.
	reduceOrder(&buyEntry.o, trade, now)
	reduceOrder(&sellEntry.o, trade, now)

	proceeds := total.Sub(trade.FeeAmount)
	debit(&buyer.p, types.WattToken, total, now)
	credit(&seller.p, types.WattToken, proceeds, now)
	if collector != nil {
		credit(&collector.p, types.WattToken, trade.FeeAmount, now)
	}

	buyer.p.EnergyConsumed = buyer.p.EnergyConsumed.Add(trade.EnergyAmount)
	seller.p.EnergyGenerated = seller.p.EnergyGenerated.Add(trade.EnergyAmount)

	trade.Status = types.TradeCompleted
	trade.ExecutedAt = now

	s.tradesMu.Lock()
	defer s.tradesMu.Unlock()
	return s.recordTradeLocked(trade)
}

// revalidate checks one side of the trade against the live order state.
// Caller holds the order entry lock.
func revalidate(o *types.Order, side types.Side, trade *types.Trade, now time.Time) error {
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

// reduceOrder applies the fill to the order's remaining amount. Caller
// holds the entry lock and has already re-validated.
func reduceOrder(o *types.Order, trade *types.Trade, now time.Time) {
	o.EnergyAmount = o.EnergyAmount.Sub(trade.EnergyAmount)
	o.TotalPrice = o.EnergyAmount.Mul(o.PricePerUnit)
	if o.EnergyAmount.IsZero() {
		o.Status = types.OrderCompleted
	}
	o.UpdatedAt = now
}
