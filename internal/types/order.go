package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// ParseSide converts a wire string into a Side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return "", fmt.Errorf("%w: side must be 'buy' or 'sell'", ErrInvalidOrder)
	}
}

// OrderStatus is the order lifecycle state. Active is the only non-terminal
// state: Active -> Completed | Cancelled | Expired, with no transition out of
// a terminal state.
type OrderStatus string

const (
	OrderActive    OrderStatus = "active"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
	OrderExpired   OrderStatus = "expired"
)

// Terminal reports whether no further transition is allowed from s.
func (s OrderStatus) Terminal() bool {
	return s != OrderActive
}

// Order is a buy or sell offer for energy. EnergyAmount is the remaining
// unfilled amount; partial fills reduce it in place and TotalPrice tracks
// remaining * price. Orders are retained for audit, never deleted.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	ProsumerAddress string          `json:"prosumer_address"`
	Side            Side            `json:"side"`
	EnergyAmount    decimal.Decimal `json:"energy_amount"`
	PricePerUnit    decimal.Decimal `json:"price_per_unit"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
}

// NewOrder builds a validated Active order. Returns ErrInvalidOrder when the
// amount or price is non-positive or the expiry is not in the future.
func NewOrder(owner string, side Side, amount, price decimal.Decimal, expiresAt *time.Time, now time.Time) (*Order, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: prosumer address required", ErrInvalidOrder)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: energy amount must be positive", ErrInvalidOrder)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidOrder)
	}
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, fmt.Errorf("%w: expiry must be in the future", ErrInvalidOrder)
	}

	return &Order{
		ID:              uuid.New(),
		ProsumerAddress: owner,
		Side:            side,
		EnergyAmount:    amount,
		PricePerUnit:    price,
		TotalPrice:      amount.Mul(price),
		Status:          OrderActive,
		CreatedAt:       now,
		UpdatedAt:       now,
		ExpiresAt:       expiresAt,
	}, nil
}

// IsExpired reports whether the order's expiry timestamp has passed. The
// matching engine treats such orders as inactive even before the expiry
// sweep has stored the Expired status.
func (o *Order) IsExpired(now time.Time) bool {
	return o.ExpiresAt != nil && !o.ExpiresAt.After(now)
}

// Matchable reports whether the order can still participate in matching.
func (o *Order) Matchable(now time.Time) bool {
	return o.Status == OrderActive && !o.IsExpired(now) && o.EnergyAmount.IsPositive()
}
