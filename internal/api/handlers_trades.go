package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gridwatt/energymarket/internal/types"
)

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	page, limit := s.pageParams(r)
	trades, err := s.trades.ListTrades(r.Context(), page, limit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, trades)
}

func (s *Server) handleGetTrade(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, fmt.Errorf("%w: invalid trade id", types.ErrInvalidAmount))
		return
	}

	trade, err := s.trades.GetTrade(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, trade)
}

// handleRecentTrades serves from the Redis tape when configured, falling
// back to the trade store.
func (s *Server) handleRecentTrades(w http.ResponseWriter, r *http.Request) {
	_, limit := s.pageParams(r)

	if s.tape != nil {
		trades, err := s.tape.Recent(r.Context(), limit)
		if err == nil {
			s.respond(w, http.StatusOK, trades)
			return
		}
		s.log.Warn().Err(err).Msg("trade tape read failed, falling back to store")
	}

	trades, err := s.trades.ListTrades(r.Context(), 1, limit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, trades)
}

func (s *Server) handleProsumerTrades(w http.ResponseWriter, r *http.Request) {
	page, limit := s.pageParams(r)
	trades, err := s.trades.TradesByProsumer(r.Context(), chi.URLParam(r, "address"), page, limit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, trades)
}
