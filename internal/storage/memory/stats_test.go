package memory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwatt/energymarket/internal/storage/memory"
	"github.com/gridwatt/energymarket/internal/types"
)

func TestMarketStats(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	buy, sell := fundedMarket(t, store, "100")

	trade := pendingTrade(buy, sell, "30")
	require.NoError(t, store.Settle(ctx, trade, ""))

	stats, err := store.MarketStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.TotalProsumers)
	assert.Equal(t, int64(2), stats.TotalOrders)
	assert.Equal(t, int64(1), stats.TotalTrades)
	assert.Equal(t, int64(1), stats.ActiveBuyOrders, "both orders partially filled, still active")
	assert.Equal(t, int64(1), stats.ActiveSellOrders)
	assert.True(t, stats.TotalEnergyTraded.Equal(decimal.NewFromInt(30)))
	assert.True(t, stats.TotalVolume.Equal(decimal.RequireFromString("4.5")))
	assert.True(t, stats.AveragePrice.Equal(decimal.RequireFromString("0.15")))
}

func TestMarketStatsExcludesFailedTrades(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	buy, sell := fundedMarket(t, store, "100")

	failed := pendingTrade(buy, sell, "10")
	failed.Status = types.TradeFailed
	failed.FailureReason = "conflict: order gone"
	require.NoError(t, store.RecordTrade(ctx, failed))

	stats, err := store.MarketStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalTrades, "failed trades counted in the total")
	assert.True(t, stats.TotalEnergyTraded.IsZero(), "but excluded from traded sums")
	assert.True(t, stats.TotalVolume.IsZero())
}

func TestProsumerStats(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	buy, sell := fundedMarket(t, store, "100")

	trade := pendingTrade(buy, sell, "30")
	require.NoError(t, store.Settle(ctx, trade, ""))

	stats, err := store.ProsumerStats(ctx, "seller")
	require.NoError(t, err)

	assert.Equal(t, "seller", stats.Address)
	assert.Equal(t, int64(1), stats.OrderCount)
	assert.Equal(t, int64(1), stats.TradeCount)
	assert.True(t, stats.EnergyGenerated.Equal(decimal.NewFromInt(30)))
	assert.True(t, stats.TotalEnergyTraded.Equal(decimal.NewFromInt(30)))
	assert.True(t, stats.TotalVolume.Equal(decimal.RequireFromString("4.5")))
	assert.True(t, stats.WattTokens.Equal(decimal.RequireFromString("4.5")))

	_, err = store.ProsumerStats(ctx, "ghost")
	assert.ErrorIs(t, err, types.ErrNotFound)
}
