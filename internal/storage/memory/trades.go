package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gridwatt/energymarket/internal/types"
)

// RecordTrade inserts a trade in its final status.
func (s *Store) RecordTrade(ctx context.Context, trade *types.Trade) error {
	s.tradesMu.Lock()
	defer s.tradesMu.Unlock()
	return s.recordTradeLocked(trade)
}

// recordTradeLocked inserts a copy of the trade. Caller holds tradesMu.
func (s *Store) recordTradeLocked(trade *types.Trade) error {
	if _, ok := s.trades[trade.ID]; ok {
		return fmt.Errorf("%w: trade %s", types.ErrAlreadyExists, trade.ID)
	}
	t := *trade
	s.trades[trade.ID] = &t
	s.tradeSeq = append(s.tradeSeq, trade.ID)
	return nil
}

// GetTrade retrieves a copy of the trade by id.
func (s *Store) GetTrade(ctx context.Context, id uuid.UUID) (*types.Trade, error) {
	s.tradesMu.RLock()
	defer s.tradesMu.RUnlock()

	t, ok := s.trades[id]
	if !ok {
		return nil, fmt.Errorf("%w: trade %s", types.ErrNotFound, id)
	}
	out := *t
	return &out, nil
}

// ListTrades returns trades, most recent first.
func (s *Store) ListTrades(ctx context.Context, page, limit int) ([]*types.Trade, error) {
	s.tradesMu.RLock()
	defer s.tradesMu.RUnlock()

	out := make([]*types.Trade, 0, len(s.tradeSeq))
	for i := len(s.tradeSeq) - 1; i >= 0; i-- {
		t := *s.trades[s.tradeSeq[i]]
		out = append(out, &t)
	}

	lo, hi := paginate(len(out), page, limit)
	return out[lo:hi], nil
}

// TradesByProsumer returns trades where the address is buyer or seller,
// most recent first.
func (s *Store) TradesByProsumer(ctx context.Context, address string, page, limit int) ([]*types.Trade, error) {
	s.tradesMu.RLock()
	defer s.tradesMu.RUnlock()

	var out []*types.Trade
	for i := len(s.tradeSeq) - 1; i >= 0; i-- {
		t := s.trades[s.tradeSeq[i]]
		if t.BuyerAddress == address || t.SellerAddress == address {
			cp := *t
			out = append(out, &cp)
		}
	}

	lo, hi := paginate(len(out), page, limit)
	return out[lo:hi], nil
}
