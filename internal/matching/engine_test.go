package matching_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwatt/energymarket/internal/matching"
	"github.com/gridwatt/energymarket/internal/storage/memory"
	"github.com/gridwatt/energymarket/internal/types"
)

func newEngine(t *testing.T, store *memory.Store, policy matching.Policy) *matching.Engine {
	t.Helper()
	return matching.NewEngine(store, policy, zerolog.Nop())
}

func postOrder(t *testing.T, store *memory.Store, owner string, side types.Side, amount, price string) *types.Order {
	t.Helper()
	o, err := types.NewOrder(owner, side,
		decimal.RequireFromString(amount), decimal.RequireFromString(price),
		nil, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, store.CreateOrder(context.Background(), o))
	return o
}

func TestCrossedOrdersMatchAtSellPrice(t *testing.T) {
	store := memory.NewStore()
	buy := postOrder(t, store, "buyer", types.Buy, "100", "0.20")
	sell := postOrder(t, store, "seller", types.Sell, "100", "0.15")

	cands, err := newEngine(t, store, matching.Policy{}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, cands, 1)

	assert.Equal(t, buy.ID, cands[0].BuyOrderID)
	assert.Equal(t, sell.ID, cands[0].SellOrderID)
	assert.True(t, cands[0].PricePerUnit.Equal(decimal.RequireFromString("0.15")),
		"execution price is the maker (sell) price")
	assert.True(t, cands[0].EnergyAmount.Equal(decimal.NewFromInt(100)))
}

func TestUncrossedOrdersDoNotMatch(t *testing.T) {
	store := memory.NewStore()
	postOrder(t, store, "buyer", types.Buy, "100", "0.10")
	postOrder(t, store, "seller", types.Sell, "100", "0.15")

	cands, err := newEngine(t, store, matching.Policy{}).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestPartialFillAmount(t *testing.T) {
	store := memory.NewStore()
	postOrder(t, store, "buyer", types.Buy, "30", "0.20")
	postOrder(t, store, "seller", types.Sell, "50", "0.15")

	cands, err := newEngine(t, store, matching.Policy{}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.True(t, cands[0].EnergyAmount.Equal(decimal.NewFromInt(30)),
		"fill amount is the smaller remaining amount")
}

func TestTimePriority(t *testing.T) {
	store := memory.NewStore()
	first := postOrder(t, store, "s1", types.Sell, "10", "0.15")
	postOrder(t, store, "s2", types.Sell, "10", "0.10")
	postOrder(t, store, "buyer", types.Buy, "10", "0.20")

	cands, err := newEngine(t, store, matching.Policy{}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, first.ID, cands[0].SellOrderID,
		"oldest compatible sell wins even when a later one is cheaper")
}

func TestOneBuyConsumesSeveralSells(t *testing.T) {
	store := memory.NewStore()
	postOrder(t, store, "buyer", types.Buy, "70", "0.20")
	postOrder(t, store, "s1", types.Sell, "30", "0.10")
	postOrder(t, store, "s2", types.Sell, "30", "0.12")
	postOrder(t, store, "s3", types.Sell, "30", "0.14")

	cands, err := newEngine(t, store, matching.Policy{}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, cands, 3)

	total := decimal.Zero
	for _, c := range cands {
		total = total.Add(c.EnergyAmount)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(70)),
		"buy is not over-committed across candidates in one cycle")
	assert.True(t, cands[2].EnergyAmount.Equal(decimal.NewFromInt(10)))
}

func TestBatchLimit(t *testing.T) {
	store := memory.NewStore()
	for i := 0; i < 15; i++ {
		postOrder(t, store, "buyer", types.Buy, "1", "0.20")
		postOrder(t, store, "seller", types.Sell, "1", "0.15")
	}

	cands, err := newEngine(t, store, matching.Policy{BatchLimit: 10, AllowSelfTrade: true}).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, cands, 10)
}

func TestSelfTradePolicy(t *testing.T) {
	store := memory.NewStore()
	postOrder(t, store, "alice", types.Buy, "10", "0.20")
	postOrder(t, store, "alice", types.Sell, "10", "0.15")

	cands, err := newEngine(t, store, matching.Policy{AllowSelfTrade: true}).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, cands, 1, "self-trade permitted by policy")

	cands, err = newEngine(t, store, matching.Policy{AllowSelfTrade: false}).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cands, "self-trade forbidden by policy")
}

func TestMinFillFloor(t *testing.T) {
	store := memory.NewStore()
	postOrder(t, store, "buyer", types.Buy, "2", "0.20")
	postOrder(t, store, "seller", types.Sell, "50", "0.15")

	policy := matching.Policy{MinFill: decimal.NewFromInt(5)}
	cands, err := newEngine(t, store, policy).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cands, "fills below the floor are skipped")
}

func TestRunSweepsExpiredOrders(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	expiry := time.Now().UTC().Add(10 * time.Millisecond)
	sell, err := types.NewOrder("seller", types.Sell,
		decimal.NewFromInt(10), decimal.RequireFromString("0.15"), &expiry, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, store.CreateOrder(ctx, sell))
	postOrder(t, store, "buyer", types.Buy, "10", "0.20")

	engine := newEngine(t, store, matching.Policy{}).
		WithClock(func() time.Time { return expiry.Add(time.Second) })

	cands, err := engine.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, cands, "expired sell must not match")

	got, err := store.GetOrder(ctx, sell.ID)
	require.NoError(t, err)
	assert.Equal(t, types.OrderExpired, got.Status)
}
