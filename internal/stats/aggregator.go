package stats

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/gridwatt/energymarket/internal/storage"
	"github.com/gridwatt/energymarket/internal/types"
)

// Aggregator serves read-only market summaries. The backend produces each
// snapshot; the aggregator stamps in configuration the backend cannot see.
type Aggregator struct {
	reader  storage.StatsReader
	feeRate decimal.Decimal
}

func NewAggregator(reader storage.StatsReader, feeRate decimal.Decimal) *Aggregator {
	return &Aggregator{reader: reader, feeRate: feeRate}
}

// Market returns the market-wide snapshot.
func (a *Aggregator) Market(ctx context.Context) (*types.MarketStats, error) {
	stats, err := a.reader.MarketStats(ctx)
	if err != nil {
		return nil, err
	}
	stats.GridFeeRate = a.feeRate
	return stats, nil
}

// Prosumer returns the per-account snapshot.
func (a *Aggregator) Prosumer(ctx context.Context, address string) (*types.ProsumerStats, error) {
	return a.reader.ProsumerStats(ctx, address)
}
