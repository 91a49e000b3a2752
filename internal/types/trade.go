package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradeStatus is the trade lifecycle state: Pending -> Completed | Failed.
// A Completed trade is immutable.
type TradeStatus string

const (
	TradePending   TradeStatus = "pending"
	TradeCompleted TradeStatus = "completed"
	TradeFailed    TradeStatus = "failed"
)

// Trade records an execution between a buy and a sell order. Failed trades
// are kept so callers can audit why a proposed match did not settle.
type Trade struct {
	ID            uuid.UUID       `json:"id"`
	BuyOrderID    uuid.UUID       `json:"buy_order_id"`
	SellOrderID   uuid.UUID       `json:"sell_order_id"`
	BuyerAddress  string          `json:"buyer_address"`
	SellerAddress string          `json:"seller_address"`
	EnergyAmount  decimal.Decimal `json:"energy_amount"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	FeeAmount     decimal.Decimal `json:"fee_amount"`
	Status        TradeStatus     `json:"status"`
	FailureReason string          `json:"failure_reason,omitempty"`
	ExecutedAt    time.Time       `json:"executed_at"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Candidate is a match proposed by the engine but not yet settled. The
// engine computes it from a possibly stale snapshot; the settlement
// coordinator re-validates everything before applying it.
type Candidate struct {
	BuyOrderID    uuid.UUID
	SellOrderID   uuid.UUID
	BuyerAddress  string
	SellerAddress string
	EnergyAmount  decimal.Decimal
	PricePerUnit  decimal.Decimal
}

// TotalPrice is the value moved from buyer to seller if the candidate settles.
func (c Candidate) TotalPrice() decimal.Decimal {
	return c.EnergyAmount.Mul(c.PricePerUnit)
}
