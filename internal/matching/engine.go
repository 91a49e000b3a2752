package matching

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gridwatt/energymarket/internal/storage"
	"github.com/gridwatt/energymarket/internal/types"
)

// DefaultBatchLimit caps candidates per cycle when the policy leaves it unset.
const DefaultBatchLimit = 10

// Policy tunes a matching cycle.
type Policy struct {
	// BatchLimit caps how many candidates one cycle may propose.
	BatchLimit int
	// AllowSelfTrade permits matching a prosumer's buy against their own sell.
	AllowSelfTrade bool
	// MinFill rejects fills below this amount; zero disables the floor.
	MinFill decimal.Decimal
}

// Engine proposes trades from a snapshot of the active order book using
// price-time priority: oldest buy first, oldest compatible sell first,
// execution at the sell (maker) price. The engine never mutates orders or
// balances; the settlement coordinator re-validates every candidate.
type Engine struct {
	orders storage.OrderStore
	policy Policy
	log    zerolog.Logger
	clock  func() time.Time
}

func NewEngine(orders storage.OrderStore, policy Policy, log zerolog.Logger) *Engine {
	if policy.BatchLimit <= 0 {
		policy.BatchLimit = DefaultBatchLimit
	}
	return &Engine{
		orders: orders,
		policy: policy,
		log:    log.With().Str("component", "matching").Logger(),
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the engine's time source.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// Run performs one matching cycle: sweep expired orders, snapshot both
// sides of the book and pair them up to the batch limit.
func (e *Engine) Run(ctx context.Context) ([]types.Candidate, error) {
	now := e.clock()

	swept, err := e.orders.ExpireDue(ctx, now)
	if err != nil {
		return nil, err
	}
	if swept > 0 {
		e.log.Info().Int64("orders", swept).Msg("expired orders swept")
	}

	buys, err := e.orders.ActiveOrders(ctx, types.Buy, now)
	if err != nil {
		return nil, err
	}
	sells, err := e.orders.ActiveOrders(ctx, types.Sell, now)
	if err != nil {
		return nil, err
	}

	candidates := e.pair(buys, sells)
	if len(candidates) > 0 {
		e.log.Info().
			Int("candidates", len(candidates)).
			Int("buys", len(buys)).
			Int("sells", len(sells)).
			Msg("matching cycle proposed trades")
	}
	return candidates, nil
}

// pair walks both sides in creation order, tracking fills locally so one
// cycle never over-commits an order across multiple candidates.
func (e *Engine) pair(buys, sells []*types.Order) []types.Candidate {
	remaining := make(map[uuid.UUID]decimal.Decimal, len(buys)+len(sells))
	for _, o := range buys {
		remaining[o.ID] = o.EnergyAmount
	}
	for _, o := range sells {
		remaining[o.ID] = o.EnergyAmount
	}

	var candidates []types.Candidate
	for _, buy := range buys {
		if len(candidates) >= e.policy.BatchLimit {
			break
		}
		for _, sell := range sells {
			if len(candidates) >= e.policy.BatchLimit {
				break
			}
			if !remaining[buy.ID].IsPositive() {
				break
			}
			if !remaining[sell.ID].IsPositive() {
				continue
			}
			if !e.policy.AllowSelfTrade && buy.ProsumerAddress == sell.ProsumerAddress {
				continue
			}
			if buy.PricePerUnit.LessThan(sell.PricePerUnit) {
				continue
			}

			amount := decimal.Min(remaining[buy.ID], remaining[sell.ID])
			if e.policy.MinFill.IsPositive() && amount.LessThan(e.policy.MinFill) {
				continue
			}

			candidates = append(candidates, types.Candidate{
				BuyOrderID:    buy.ID,
				SellOrderID:   sell.ID,
				BuyerAddress:  buy.ProsumerAddress,
				SellerAddress: sell.ProsumerAddress,
				EnergyAmount:  amount,
				PricePerUnit:  sell.PricePerUnit,
			})
			remaining[buy.ID] = remaining[buy.ID].Sub(amount)
			remaining[sell.ID] = remaining[sell.ID].Sub(amount)
		}
	}
	return candidates
}
