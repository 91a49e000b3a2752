package settlement_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwatt/energymarket/internal/settlement"
	"github.com/gridwatt/energymarket/internal/storage/memory"
	"github.com/gridwatt/energymarket/internal/types"
)

func marketWithOrders(t *testing.T, buyerFunds string) (*memory.Store, *types.Order, *types.Order) {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()

	_, err := store.CreateAccount(ctx, "buyer", "Buyer")
	require.NoError(t, err)
	_, err = store.CreateAccount(ctx, "seller", "Seller")
	require.NoError(t, err)
	if buyerFunds != "0" {
		_, err = store.Issue(ctx, "buyer", decimal.RequireFromString(buyerFunds), types.WattToken)
		require.NoError(t, err)
	}

	now := time.Now().UTC()
	buy, err := types.NewOrder("buyer", types.Buy,
		decimal.NewFromInt(50), decimal.RequireFromString("0.20"), nil, now)
	require.NoError(t, err)
	sell, err := types.NewOrder("seller", types.Sell,
		decimal.NewFromInt(50), decimal.RequireFromString("0.15"), nil, now)
	require.NoError(t, err)
	require.NoError(t, store.CreateOrder(ctx, buy))
	require.NoError(t, store.CreateOrder(ctx, sell))
	return store, buy, sell
}

func candidateFor(buy, sell *types.Order, amount string) types.Candidate {
	return types.Candidate{
		BuyOrderID:    buy.ID,
		SellOrderID:   sell.ID,
		BuyerAddress:  buy.ProsumerAddress,
		SellerAddress: sell.ProsumerAddress,
		EnergyAmount:  decimal.RequireFromString(amount),
		PricePerUnit:  sell.PricePerUnit,
	}
}

func TestExecuteSettlesCandidate(t *testing.T) {
	store, buy, sell := marketWithOrders(t, "100")
	coord := settlement.NewCoordinator(store, store, nil, settlement.Config{}, zerolog.Nop())

	trade, err := coord.Execute(context.Background(), candidateFor(buy, sell, "50"))
	require.NoError(t, err)
	assert.Equal(t, types.TradeCompleted, trade.Status)
	assert.True(t, trade.TotalPrice.Equal(decimal.RequireFromString("7.5")))
	assert.True(t, trade.FeeAmount.IsZero())

	seller, _ := store.GetProsumer(context.Background(), "seller")
	assert.True(t, seller.WattTokens.Equal(decimal.RequireFromString("7.5")))
}

func TestExecuteComputesFee(t *testing.T) {
	store, buy, sell := marketWithOrders(t, "100")
	ctx := context.Background()
	_, err := store.CreateAccount(ctx, "grid", "Grid Operator")
	require.NoError(t, err)

	coord := settlement.NewCoordinator(store, store, nil, settlement.Config{
		Rate:      decimal.RequireFromString("0.1"),
		Collector: "grid",
	}, zerolog.Nop())

	trade, err := coord.Execute(ctx, candidateFor(buy, sell, "50"))
	require.NoError(t, err)
	assert.True(t, trade.FeeAmount.Equal(decimal.RequireFromString("0.75")))

	grid, _ := store.GetProsumer(ctx, "grid")
	seller, _ := store.GetProsumer(ctx, "seller")
	assert.True(t, grid.WattTokens.Equal(decimal.RequireFromString("0.75")))
	assert.True(t, seller.WattTokens.Equal(decimal.RequireFromString("6.75")))
}

func TestExecuteRecordsFailedTrade(t *testing.T) {
	store, buy, sell := marketWithOrders(t, "0")
	ctx := context.Background()
	coord := settlement.NewCoordinator(store, store, nil, settlement.Config{}, zerolog.Nop())

	trade, err := coord.Execute(ctx, candidateFor(buy, sell, "50"))
	require.NoError(t, err, "a business abort is not an infrastructure error")
	require.NotNil(t, trade)
	assert.Equal(t, types.TradeFailed, trade.Status)
	assert.Contains(t, trade.FailureReason, "insufficient")

	// The failed trade is persisted for audit.
	got, err := store.GetTrade(ctx, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TradeFailed, got.Status)

	// Orders and balances are untouched.
	gotBuy, _ := store.GetOrder(ctx, buy.ID)
	assert.True(t, gotBuy.EnergyAmount.Equal(decimal.NewFromInt(50)))
	seller, _ := store.GetProsumer(ctx, "seller")
	assert.True(t, seller.WattTokens.IsZero())
}

func TestExecuteConflictAfterCancel(t *testing.T) {
	store, buy, sell := marketWithOrders(t, "100")
	ctx := context.Background()

	_, err := store.CancelOrder(ctx, sell.ID, "seller", false)
	require.NoError(t, err)

	coord := settlement.NewCoordinator(store, store, nil, settlement.Config{}, zerolog.Nop())
	trade, err := coord.Execute(ctx, candidateFor(buy, sell, "50"))
	require.NoError(t, err)
	assert.Equal(t, types.TradeFailed, trade.Status)

	buyer, _ := store.GetProsumer(ctx, "buyer")
	assert.True(t, buyer.WattTokens.Equal(decimal.NewFromInt(100)))
}

func TestExecuteBatchContinuesPastAborts(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	for _, addr := range []string{"b1", "b2", "s1", "s2"} {
		_, err := store.CreateAccount(ctx, addr, addr)
		require.NoError(t, err)
	}
	// Only the second buyer can pay.
	_, err := store.Issue(ctx, "b2", decimal.NewFromInt(100), types.WattToken)
	require.NoError(t, err)

	now := time.Now().UTC()
	mk := func(owner string, side types.Side) *types.Order {
		o, err := types.NewOrder(owner, side,
			decimal.NewFromInt(10), decimal.RequireFromString("0.15"), nil, now)
		require.NoError(t, err)
		require.NoError(t, store.CreateOrder(ctx, o))
		return o
	}
	buy1, sell1 := mk("b1", types.Buy), mk("s1", types.Sell)
	buy2, sell2 := mk("b2", types.Buy), mk("s2", types.Sell)

	coord := settlement.NewCoordinator(store, store, nil, settlement.Config{}, zerolog.Nop())
	trades, err := coord.ExecuteBatch(ctx, []types.Candidate{
		candidateFor(buy1, sell1, "10"),
		candidateFor(buy2, sell2, "10"),
	})
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, types.TradeFailed, trades[0].Status)
	assert.Equal(t, types.TradeCompleted, trades[1].Status)
}
