package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gridwatt/energymarket/internal/types"
)

// MarketStats runs a single snapshot query over the three tables. Totals
// cover Completed trades only.
func (s *Store) MarketStats(ctx context.Context) (*types.MarketStats, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var stats types.MarketStats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM prosumers),
			(SELECT COUNT(*) FROM orders),
			(SELECT COUNT(*) FROM trades),
			(SELECT COUNT(*) FROM orders WHERE status = 'active' AND side = 'buy'),
			(SELECT COUNT(*) FROM orders WHERE status = 'active' AND side = 'sell'),
			(SELECT COALESCE(SUM(energy_amount), 0) FROM trades WHERE status = 'completed'),
			(SELECT COALESCE(SUM(total_price), 0) FROM trades WHERE status = 'completed'),
			(SELECT COALESCE(AVG(price_per_unit), 0) FROM trades WHERE status = 'completed')`).
		Scan(&stats.TotalProsumers, &stats.TotalOrders, &stats.TotalTrades,
			&stats.ActiveBuyOrders, &stats.ActiveSellOrders,
			&stats.TotalEnergyTraded, &stats.TotalVolume, &stats.AveragePrice)
	if err != nil {
		return nil, internalErr("market stats", err)
	}
	return &stats, nil
}

// ProsumerStats runs a single per-prosumer snapshot query.
func (s *Store) ProsumerStats(ctx context.Context, address string) (*types.ProsumerStats, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var stats types.ProsumerStats
	err := s.pool.QueryRow(ctx, `
		SELECT
			p.address,
			p.name,
			p.energy_generated,
			p.energy_consumed,
			p.energy_generated - p.energy_consumed,
			p.grid_tokens,
			p.watt_tokens,
			(SELECT COUNT(*) FROM orders WHERE prosumer_address = p.address),
			(SELECT COUNT(*) FROM trades WHERE buyer_address = p.address OR seller_address = p.address),
			(SELECT COALESCE(SUM(energy_amount), 0) FROM trades
				WHERE (buyer_address = p.address OR seller_address = p.address) AND status = 'completed'),
			(SELECT COALESCE(SUM(total_price), 0) FROM trades
				WHERE (buyer_address = p.address OR seller_address = p.address) AND status = 'completed')
		FROM prosumers p
		WHERE p.address = $1`, address).
		Scan(&stats.Address, &stats.Name, &stats.EnergyGenerated, &stats.EnergyConsumed,
			&stats.NetEnergy, &stats.GridTokens, &stats.WattTokens,
			&stats.OrderCount, &stats.TradeCount, &stats.TotalEnergyTraded, &stats.TotalVolume)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: prosumer %q", types.ErrNotFound, address)
	}
	if err != nil {
		return nil, internalErr("prosumer stats", err)
	}
	return &stats, nil
}
