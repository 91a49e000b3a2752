package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gridwatt/energymarket/internal/types"
)

// OrderFilter narrows List results. Zero values mean "any".
type OrderFilter struct {
	Status types.OrderStatus
	Side   types.Side
	Owner  string
	Page   int // 1-based; 0 means first page
	Limit  int // 0 means backend default
}

// OrderStore holds orders keyed by id. Orders are never deleted; terminal
// status transitions are the only mutations besides partial fills applied
// through a Settler.
type OrderStore interface {
	// CreateOrder persists a new Active order.
	CreateOrder(ctx context.Context, order *types.Order) error

	// GetOrder retrieves an order by id, ErrNotFound if unknown.
	GetOrder(ctx context.Context, id uuid.UUID) (*types.Order, error)

	// ListOrders returns orders matching the filter, created_at ascending.
	ListOrders(ctx context.Context, filter OrderFilter) ([]*types.Order, error)

	// ActiveOrders returns Active, non-expired orders for one side,
	// created_at ascending. The snapshot may be stale by the time the
	// caller acts on it; the Settler re-validates.
	ActiveOrders(ctx context.Context, side types.Side, now time.Time) ([]*types.Order, error)

	// CancelOrder transitions an Active order to Cancelled in a single
	// atomic check-then-update. ErrNotFound if unknown, ErrForbidden if
	// the requester neither owns the order nor is an administrator,
	// ErrInvalidState if the order is not Active.
	CancelOrder(ctx context.Context, id uuid.UUID, requester string, admin bool) (*types.Order, error)

	// ExpireDue transitions Active orders whose expiry has passed to
	// Expired and reports how many were swept.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)

	// Close releases any resources held by the store.
	Close() error
}

// TradeStore persists trades, including Failed ones, for audit.
type TradeStore interface {
	// RecordTrade inserts a trade in its final status.
	RecordTrade(ctx context.Context, trade *types.Trade) error

	// GetTrade retrieves a trade by id, ErrNotFound if unknown.
	GetTrade(ctx context.Context, id uuid.UUID) (*types.Trade, error)

	// ListTrades returns trades, most recent first, paginated.
	ListTrades(ctx context.Context, page, limit int) ([]*types.Trade, error)

	// TradesByProsumer returns trades where the address is buyer or seller.
	TradesByProsumer(ctx context.Context, address string, page, limit int) ([]*types.Trade, error)

	// Close releases any resources held by the store.
	Close() error
}

// Ledger holds prosumer accounts with their two token balances and energy
// counters. Balances are never allowed to go negative; the check is part of
// the same atomic step that debits.
type Ledger interface {
	// CreateAccount initializes both balances to zero.
	// ErrAlreadyExists if the address is taken.
	CreateAccount(ctx context.Context, address, name string) (*types.Prosumer, error)

	// GetProsumer retrieves a prosumer, ErrNotFound if absent.
	GetProsumer(ctx context.Context, address string) (*types.Prosumer, error)

	// ListProsumers returns prosumers paginated by registration time.
	ListProsumers(ctx context.Context, page, limit int) ([]*types.Prosumer, error)

	// Rename updates the display name.
	Rename(ctx context.Context, address, name string) (*types.Prosumer, error)

	// RecordEnergy adds non-negative deltas to the cumulative counters.
	RecordEnergy(ctx context.Context, address string, generated, consumed decimal.Decimal) (*types.Prosumer, error)

	// Issue credits newly created tokens to an account. This is the only
	// way tokens enter the ledger; it is reserved for the operator.
	Issue(ctx context.Context, address string, amount decimal.Decimal, kind types.TokenKind) (*types.Prosumer, error)

	// Transfer debits from and credits to as one atomic step and returns
	// the audit record. ErrInvalidAmount, ErrNotFound,
	// ErrInsufficientFunds as per the ledger contract.
	Transfer(ctx context.Context, from, to string, amount decimal.Decimal, kind types.TokenKind) (*types.Transfer, error)

	// Deactivate marks the account inactive. Accounts are never deleted.
	Deactivate(ctx context.Context, address string) error

	// Close releases any resources held by the ledger.
	Close() error
}

// Settler applies a proposed trade as one atomic unit: re-validate both
// orders, reduce or complete them, move watt tokens from buyer to seller
// (fee to the collector when set), update both prosumers' energy counters
// and persist the trade as Completed. Any failure aborts the whole unit
// with no partial effect: ErrConflict when re-validation fails,
// ErrInsufficientFunds when the buyer cannot pay.
//
// The trade passed in must be Pending with fee fields already computed;
// on success its status is Completed and it has been persisted.
type Settler interface {
	Settle(ctx context.Context, trade *types.Trade, feeCollector string) error
}

// StatsReader produces snapshot-consistent read-only summaries. It must not
// block writers.
type StatsReader interface {
	MarketStats(ctx context.Context) (*types.MarketStats, error)
	ProsumerStats(ctx context.Context, address string) (*types.ProsumerStats, error)
}

// Backend is the full persistence surface one storage implementation
// provides. Settlement spans orders, trades and balances, so all of them
// must live in the same backend.
type Backend interface {
	OrderStore
	TradeStore
	Ledger
	Settler
	StatsReader
}
