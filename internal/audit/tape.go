package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/gridwatt/energymarket/internal/types"
)

// TradeTape is the sink for settled trades, typically the Redis tape.
type TradeTape interface {
	Append(ctx context.Context, trade *types.Trade) error
}

// TapeNotifier copies settled trades onto a trade tape. Failed trades and
// transfers are not taped.
type TapeNotifier struct {
	tape TradeTape
	log  zerolog.Logger
}

func NewTapeNotifier(tape TradeTape, log zerolog.Logger) *TapeNotifier {
	return &TapeNotifier{tape: tape, log: log}
}

func (n *TapeNotifier) TradeSettled(ctx context.Context, trade *types.Trade) {
	if err := n.tape.Append(ctx, trade); err != nil {
		n.log.Warn().Err(err).Str("trade_id", trade.ID.String()).Msg("trade tape append failed")
	}
}

func (n *TapeNotifier) TradeFailed(context.Context, *types.Trade) {}

func (n *TapeNotifier) TokensTransferred(context.Context, *types.Transfer) {}
