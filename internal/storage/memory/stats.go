package memory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/gridwatt/energymarket/internal/types"
)

// MarketStats derives a market-wide summary from snapshots of the three
// entity maps. Writers are never blocked beyond the short snapshot reads.
func (s *Store) MarketStats(ctx context.Context) (*types.MarketStats, error) {
	s.accountsMu.RLock()
	totalProsumers := int64(len(s.accounts))
	s.accountsMu.RUnlock()

	orders := s.snapshotOrders()

	stats := &types.MarketStats{
		TotalProsumers:    totalProsumers,
		TotalOrders:       int64(len(orders)),
		TotalEnergyTraded: decimal.Zero,
		TotalVolume:       decimal.Zero,
		AveragePrice:      decimal.Zero,
	}
	for _, o := range orders {
		if o.Status != types.OrderActive {
			continue
		}
		if o.Side == types.Buy {
			stats.ActiveBuyOrders++
		} else {
			stats.ActiveSellOrders++
		}
	}

	s.tradesMu.RLock()
	defer s.tradesMu.RUnlock()

	stats.TotalTrades = int64(len(s.trades))
	priceSum := decimal.Zero
	var completed int64
	for _, t := range s.trades {
		if t.Status != types.TradeCompleted {
			continue
		}
		completed++
		stats.TotalEnergyTraded = stats.TotalEnergyTraded.Add(t.EnergyAmount)
		stats.TotalVolume = stats.TotalVolume.Add(t.TotalPrice)
		priceSum = priceSum.Add(t.PricePerUnit)
	}
	if completed > 0 {
		stats.AveragePrice = priceSum.Div(decimal.NewFromInt(completed))
	}
	return stats, nil
}

// ProsumerStats derives a per-prosumer participation summary.
func (s *Store) ProsumerStats(ctx context.Context, address string) (*types.ProsumerStats, error) {
	a, ok := s.lookupAccount(address)
	if !ok {
		return nil, fmt.Errorf("%w: prosumer %q", types.ErrNotFound, address)
	}

	a.mu.Lock()
	p := a.p
	a.mu.Unlock()

	stats := &types.ProsumerStats{
		Address:           p.Address,
		Name:              p.Name,
		EnergyGenerated:   p.EnergyGenerated,
		EnergyConsumed:    p.EnergyConsumed,
		NetEnergy:         p.NetEnergy(),
		GridTokens:        p.GridTokens,
		WattTokens:        p.WattTokens,
		TotalEnergyTraded: decimal.Zero,
		TotalVolume:       decimal.Zero,
	}

	for _, o := range s.snapshotOrders() {
		if o.ProsumerAddress == address {
			stats.OrderCount++
		}
	}

	s.tradesMu.RLock()
	defer s.tradesMu.RUnlock()
	for _, t := range s.trades {
		if t.BuyerAddress != address && t.SellerAddress != address {
			continue
		}
		stats.TradeCount++
		if t.Status == types.TradeCompleted {
			stats.TotalEnergyTraded = stats.TotalEnergyTraded.Add(t.EnergyAmount)
			stats.TotalVolume = stats.TotalVolume.Add(t.TotalPrice)
		}
	}
	return stats, nil
}
