package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gridwatt/energymarket/internal/audit"
	"github.com/gridwatt/energymarket/internal/storage"
	"github.com/gridwatt/energymarket/internal/types"
)

// FeeScale is the number of decimal places fee amounts are rounded to,
// matching the NUMERIC(20,8) ledger columns.
const FeeScale = 8

// Config sets the grid fee taken out of each settled trade. A zero rate
// disables the fee; when the rate is positive Collector must name an
// existing account.
type Config struct {
	Rate      decimal.Decimal
	Collector string
}

// Coordinator turns candidates into settled trades. Each candidate becomes
// one Pending trade handed to the backend Settler; an aborted settlement is
// recorded as a Failed trade so the miss is auditable.
type Coordinator struct {
	settler storage.Settler
	trades  storage.TradeStore
	notify  audit.Notifier
	fee     Config
	log     zerolog.Logger
	clock   func() time.Time
}

func NewCoordinator(settler storage.Settler, trades storage.TradeStore, notify audit.Notifier, fee Config, log zerolog.Logger) *Coordinator {
	if notify == nil {
		notify = audit.Nop{}
	}
	return &Coordinator{
		settler: settler,
		trades:  trades,
		notify:  notify,
		fee:     fee,
		log:     log.With().Str("component", "settlement").Logger(),
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the coordinator's time source.
func (c *Coordinator) WithClock(clock func() time.Time) *Coordinator {
	c.clock = clock
	return c
}

// Execute settles one candidate. Business aborts (stale orders, an
// underfunded buyer) come back as a Failed trade and a nil error; the error
// return is reserved for infrastructure problems.
func (c *Coordinator) Execute(ctx context.Context, cand types.Candidate) (*types.Trade, error) {
	trade := c.buildTrade(cand)

	err := c.settler.Settle(ctx, trade, c.fee.Collector)
	if err == nil {
		c.notify.TradeSettled(ctx, trade)
		return trade, nil
	}

	if errors.Is(err, types.ErrConflict) || errors.Is(err, types.ErrInsufficientFunds) {
		return c.recordFailure(ctx, trade, err)
	}
	return nil, err
}

// ExecuteBatch settles candidates in order, skipping over business aborts.
func (c *Coordinator) ExecuteBatch(ctx context.Context, cands []types.Candidate) ([]*types.Trade, error) {
	trades := make([]*types.Trade, 0, len(cands))
	for _, cand := range cands {
		if err := ctx.Err(); err != nil {
			return trades, err
		}
		trade, err := c.Execute(ctx, cand)
		if err != nil {
			return trades, err
		}
		trades = append(trades, trade)
	}
	return trades, nil
}

func (c *Coordinator) buildTrade(cand types.Candidate) *types.Trade {
	total := cand.TotalPrice()
	var fee decimal.Decimal
	if c.fee.Rate.IsPositive() {
		fee = total.Mul(c.fee.Rate).Round(FeeScale)
	}
	return &types.Trade{
		ID:            uuid.New(),
		BuyOrderID:    cand.BuyOrderID,
		SellOrderID:   cand.SellOrderID,
		BuyerAddress:  cand.BuyerAddress,
		SellerAddress: cand.SellerAddress,
		EnergyAmount:  cand.EnergyAmount,
		PricePerUnit:  cand.PricePerUnit,
		TotalPrice:    total,
		FeeAmount:     fee,
		Status:        types.TradePending,
		CreatedAt:     c.clock(),
	}
}

// recordFailure persists the trade as Failed with the abort reason. The
// settler guarantees an aborted unit left no partial effect, so the Failed
// row is the only write.
func (c *Coordinator) recordFailure(ctx context.Context, trade *types.Trade, cause error) (*types.Trade, error) {
	trade.Status = types.TradeFailed
	trade.FailureReason = cause.Error()
	trade.ExecutedAt = c.clock()

	if err := c.trades.RecordTrade(ctx, trade); err != nil {
		c.log.Error().Err(err).Str("trade_id", trade.ID.String()).Msg("failed trade not recorded")
		return nil, err
	}
	c.notify.TradeFailed(ctx, trade)
	return trade, nil
}
