package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/gridwatt/energymarket/internal/types"
)

// Notifier receives market events after they have been committed. Notifiers
// are best-effort observers; a notifier failure never unwinds the event.
type Notifier interface {
	TradeSettled(ctx context.Context, trade *types.Trade)
	TradeFailed(ctx context.Context, trade *types.Trade)
	TokensTransferred(ctx context.Context, transfer *types.Transfer)
}

// LogNotifier writes each event as a structured log line.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "audit").Logger()}
}

func (n *LogNotifier) TradeSettled(_ context.Context, trade *types.Trade) {
	n.log.Info().
		Str("trade_id", trade.ID.String()).
		Str("buyer", trade.BuyerAddress).
		Str("seller", trade.SellerAddress).
		Str("energy_amount", trade.EnergyAmount.String()).
		Str("price_per_unit", trade.PricePerUnit.String()).
		Str("total_price", trade.TotalPrice.String()).
		Str("fee_amount", trade.FeeAmount.String()).
		Msg("trade settled")
}

func (n *LogNotifier) TradeFailed(_ context.Context, trade *types.Trade) {
	n.log.Warn().
		Str("trade_id", trade.ID.String()).
		Str("buy_order_id", trade.BuyOrderID.String()).
		Str("sell_order_id", trade.SellOrderID.String()).
		Str("reason", trade.FailureReason).
		Msg("trade failed")
}

func (n *LogNotifier) TokensTransferred(_ context.Context, transfer *types.Transfer) {
	n.log.Info().
		Str("from", transfer.From).
		Str("to", transfer.To).
		Str("token", string(transfer.Kind)).
		Str("amount", transfer.Amount.String()).
		Msg("tokens transferred")
}

// Multi fans an event out to several notifiers in order.
type Multi []Notifier

func (m Multi) TradeSettled(ctx context.Context, trade *types.Trade) {
	for _, n := range m {
		n.TradeSettled(ctx, trade)
	}
}

func (m Multi) TradeFailed(ctx context.Context, trade *types.Trade) {
	for _, n := range m {
		n.TradeFailed(ctx, trade)
	}
}

func (m Multi) TokensTransferred(ctx context.Context, transfer *types.Transfer) {
	for _, n := range m {
		n.TokensTransferred(ctx, transfer)
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) TradeSettled(context.Context, *types.Trade) {}

func (Nop) TradeFailed(context.Context, *types.Trade) {}

func (Nop) TokensTransferred(context.Context, *types.Transfer) {}
