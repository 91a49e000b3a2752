package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwatt/energymarket/internal/storage"
	"github.com/gridwatt/energymarket/internal/storage/memory"
	"github.com/gridwatt/energymarket/internal/types"
)

func mustOrder(t *testing.T, owner string, side types.Side, amount, price string, expiresAt *time.Time) *types.Order {
	t.Helper()
	o, err := types.NewOrder(owner, side,
		decimal.RequireFromString(amount), decimal.RequireFromString(price),
		expiresAt, time.Now().UTC())
	require.NoError(t, err)
	return o
}

func TestCreateAndGetOrder(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	order := mustOrder(t, "alice", types.Sell, "50", "0.15", nil)
	require.NoError(t, store.CreateOrder(ctx, order))

	got, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.True(t, got.EnergyAmount.Equal(order.EnergyAmount))

	assert.ErrorIs(t, store.CreateOrder(ctx, order), types.ErrAlreadyExists)

	_, err = store.GetOrder(ctx, uuid.New())
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestListOrdersFilter(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	buy := mustOrder(t, "alice", types.Buy, "10", "0.20", nil)
	sell1 := mustOrder(t, "alice", types.Sell, "20", "0.10", nil)
	sell2 := mustOrder(t, "bob", types.Sell, "30", "0.12", nil)
	for _, o := range []*types.Order{buy, sell1, sell2} {
		require.NoError(t, store.CreateOrder(ctx, o))
	}

	sells, err := store.ListOrders(ctx, storage.OrderFilter{Side: types.Sell})
	require.NoError(t, err)
	assert.Len(t, sells, 2)

	alices, err := store.ListOrders(ctx, storage.OrderFilter{Owner: "alice"})
	require.NoError(t, err)
	assert.Len(t, alices, 2)

	active, err := store.ListOrders(ctx, storage.OrderFilter{Status: types.OrderActive})
	require.NoError(t, err)
	assert.Len(t, active, 3)
}

func TestActiveOrdersOrderingAndExpiry(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	soon := now.Add(time.Millisecond)
	expiring := mustOrder(t, "alice", types.Sell, "5", "0.10", &soon)
	lasting := mustOrder(t, "bob", types.Sell, "5", "0.20", nil)
	require.NoError(t, store.CreateOrder(ctx, expiring))
	require.NoError(t, store.CreateOrder(ctx, lasting))

	active, err := store.ActiveOrders(ctx, types.Sell, now)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, expiring.ID, active[0].ID, "creation order, oldest first")

	// After the expiry passes, the order drops out of candidacy even before
	// the sweep has stored the Expired status.
	active, err = store.ActiveOrders(ctx, types.Sell, now.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, lasting.ID, active[0].ID)
}

func TestCancelOrder(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	order := mustOrder(t, "alice", types.Buy, "10", "0.20", nil)
	require.NoError(t, store.CreateOrder(ctx, order))

	_, err := store.CancelOrder(ctx, order.ID, "bob", false)
	assert.ErrorIs(t, err, types.ErrForbidden)

	cancelled, err := store.CancelOrder(ctx, order.ID, "alice", false)
	require.NoError(t, err)
	assert.Equal(t, types.OrderCancelled, cancelled.Status)

	// Second cancel hits a terminal status.
	_, err = store.CancelOrder(ctx, order.ID, "alice", false)
	assert.ErrorIs(t, err, types.ErrInvalidState)

	_, err = store.CancelOrder(ctx, uuid.New(), "alice", false)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestCancelOrderAdminOverride(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	order := mustOrder(t, "alice", types.Buy, "10", "0.20", nil)
	require.NoError(t, store.CreateOrder(ctx, order))

	cancelled, err := store.CancelOrder(ctx, order.ID, "operator", true)
	require.NoError(t, err)
	assert.Equal(t, types.OrderCancelled, cancelled.Status)
}

func TestExpireDue(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	soon := now.Add(time.Millisecond)
	expiring := mustOrder(t, "alice", types.Sell, "5", "0.10", &soon)
	lasting := mustOrder(t, "bob", types.Sell, "5", "0.20", nil)
	require.NoError(t, store.CreateOrder(ctx, expiring))
	require.NoError(t, store.CreateOrder(ctx, lasting))

	swept, err := store.ExpireDue(ctx, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	got, err := store.GetOrder(ctx, expiring.ID)
	require.NoError(t, err)
	assert.Equal(t, types.OrderExpired, got.Status)

	// Sweep is idempotent.
	swept, err = store.ExpireDue(ctx, now.Add(2*time.Second))
	require.NoError(t, err)
	assert.Zero(t, swept)
}
