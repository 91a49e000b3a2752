package matching_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwatt/energymarket/internal/matching"
	"github.com/gridwatt/energymarket/internal/settlement"
	"github.com/gridwatt/energymarket/internal/storage/memory"
	"github.com/gridwatt/energymarket/internal/types"
)

// One full cycle: match the book, settle the candidates, verify the money
// and energy moved.
func TestCycleMatchesAndSettles(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	_, err := store.CreateAccount(ctx, "buyer", "Buyer")
	require.NoError(t, err)
	_, err = store.CreateAccount(ctx, "seller", "Seller")
	require.NoError(t, err)
	_, err = store.Issue(ctx, "buyer", decimal.NewFromInt(100), types.WattToken)
	require.NoError(t, err)

	postOrder(t, store, "buyer", types.Buy, "50", "0.20")
	postOrder(t, store, "seller", types.Sell, "50", "0.15")

	engine := matching.NewEngine(store, matching.Policy{}, zerolog.Nop())
	coord := settlement.NewCoordinator(store, store, nil, settlement.Config{}, zerolog.Nop())
	runner := matching.NewRunner(engine, coord, 0, zerolog.Nop())

	require.NoError(t, runner.Cycle(ctx))

	seller, _ := store.GetProsumer(ctx, "seller")
	buyer, _ := store.GetProsumer(ctx, "buyer")
	assert.True(t, seller.WattTokens.Equal(decimal.RequireFromString("7.5")))
	assert.True(t, buyer.WattTokens.Equal(decimal.RequireFromString("92.5")))
	assert.True(t, buyer.EnergyConsumed.Equal(decimal.NewFromInt(50)))

	trades, err := store.ListTrades(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, types.TradeCompleted, trades[0].Status)

	// A second cycle over the emptied book proposes nothing.
	require.NoError(t, runner.Cycle(ctx))
	trades, err = store.ListTrades(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}
