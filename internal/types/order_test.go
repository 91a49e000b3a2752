package types_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwatt/energymarket/internal/types"
)

func TestNewOrderValid(t *testing.T) {
	now := time.Now().UTC()
	amount := decimal.RequireFromString("50")
	price := decimal.RequireFromString("0.15")

	order, err := types.NewOrder("alice", types.Sell, amount, price, nil, now)
	require.NoError(t, err)

	assert.Equal(t, types.OrderActive, order.Status)
	assert.Equal(t, "alice", order.ProsumerAddress)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("7.5")))
	assert.True(t, order.Matchable(now))
}

func TestNewOrderRejectsBadInput(t *testing.T) {
	now := time.Now().UTC()
	one := decimal.NewFromInt(1)
	past := now.Add(-time.Minute)

	cases := []struct {
		name      string
		owner     string
		amount    decimal.Decimal
		price     decimal.Decimal
		expiresAt *time.Time
	}{
		{"missing owner", "", one, one, nil},
		{"zero amount", "alice", decimal.Zero, one, nil},
		{"negative amount", "alice", decimal.NewFromInt(-5), one, nil},
		{"zero price", "alice", one, decimal.Zero, nil},
		{"negative price", "alice", one, decimal.NewFromInt(-1), nil},
		{"expiry in the past", "alice", one, one, &past},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := types.NewOrder(tc.owner, types.Buy, tc.amount, tc.price, tc.expiresAt, now)
			assert.ErrorIs(t, err, types.ErrInvalidOrder)
		})
	}
}

func TestOrderExpiry(t *testing.T) {
	now := time.Now().UTC()
	expiry := now.Add(time.Hour)

	order, err := types.NewOrder("bob", types.Buy, decimal.NewFromInt(10), decimal.NewFromInt(1), &expiry, now)
	require.NoError(t, err)

	assert.False(t, order.IsExpired(now))
	assert.True(t, order.Matchable(now))

	later := now.Add(2 * time.Hour)
	assert.True(t, order.IsExpired(later))
	assert.False(t, order.Matchable(later), "expired order must not be matchable even while still Active")
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.False(t, types.OrderActive.Terminal())
	assert.True(t, types.OrderCompleted.Terminal())
	assert.True(t, types.OrderCancelled.Terminal())
	assert.True(t, types.OrderExpired.Terminal())
}

func TestParseSide(t *testing.T) {
	side, err := types.ParseSide("buy")
	require.NoError(t, err)
	assert.Equal(t, types.Buy, side)

	side, err = types.ParseSide("sell")
	require.NoError(t, err)
	assert.Equal(t, types.Sell, side)

	_, err = types.ParseSide("hold")
	assert.ErrorIs(t, err, types.ErrInvalidOrder)
}

func TestParseTokenKind(t *testing.T) {
	for input, want := range map[string]types.TokenKind{
		"grid":        types.GridToken,
		"grid_tokens": types.GridToken,
		"watt":        types.WattToken,
		"watt_tokens": types.WattToken,
	} {
		kind, err := types.ParseTokenKind(input)
		require.NoError(t, err)
		assert.Equal(t, want, kind)
	}

	_, err := types.ParseTokenKind("volt")
	assert.ErrorIs(t, err, types.ErrInvalidAmount)
}

func TestCandidateTotalPrice(t *testing.T) {
	cand := types.Candidate{
		EnergyAmount: decimal.RequireFromString("30"),
		PricePerUnit: decimal.RequireFromString("0.15"),
	}
	assert.True(t, cand.TotalPrice().Equal(decimal.RequireFromString("4.5")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, types.Retryable(types.ErrConflict))
	assert.True(t, types.Retryable(types.ErrInternal))
	assert.False(t, types.Retryable(types.ErrInsufficientFunds))
	assert.False(t, types.Retryable(types.ErrNotFound))
}
