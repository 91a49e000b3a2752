package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gridwatt/energymarket/internal/storage"
	"github.com/gridwatt/energymarket/internal/types"
)

type placeOrderRequest struct {
	ProsumerAddress string          `json:"prosumer_address"`
	Side            string          `json:"side"`
	EnergyAmount    decimal.Decimal `json:"energy_amount"`
	PricePerUnit    decimal.Decimal `json:"price_per_unit"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, fmt.Errorf("%w: invalid JSON body", types.ErrInvalidOrder))
		return
	}

	side, err := types.ParseSide(req.Side)
	if err != nil {
		s.respondError(w, err)
		return
	}

	order, err := s.market.Place(r.Context(), req.ProsumerAddress, side, req.EnergyAmount, req.PricePerUnit, req.ExpiresAt)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, order)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	page, limit := s.pageParams(r)
	filter := storage.OrderFilter{
		Owner: r.URL.Query().Get("prosumer"),
		Page:  page,
		Limit: limit,
	}

	if v := r.URL.Query().Get("side"); v != "" {
		side, err := types.ParseSide(v)
		if err != nil {
			s.respondError(w, err)
			return
		}
		filter.Side = side
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = types.OrderStatus(v)
	}

	orders, err := s.market.List(r.Context(), filter)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, orders)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, fmt.Errorf("%w: invalid order id", types.ErrInvalidOrder))
		return
	}

	order, err := s.market.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, order)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, fmt.Errorf("%w: invalid order id", types.ErrInvalidOrder))
		return
	}

	requester := r.URL.Query().Get("requester")
	admin := s.isAdmin(r)
	if requester == "" && !admin {
		s.respondError(w, fmt.Errorf("%w: requester required", types.ErrForbidden))
		return
	}

	order, err := s.market.Cancel(r.Context(), id, requester, admin)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, order)
}

// pageParams reads 1-based page/limit query parameters, clamped to the
// configured maximum.
func (s *Server) pageParams(r *http.Request) (int, int) {
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := queryInt(r, "limit", s.cfg.DefaultPageLimit)
	if limit < 1 {
		limit = s.cfg.DefaultPageLimit
	}
	if limit > s.cfg.MaxPageLimit {
		limit = s.cfg.MaxPageLimit
	}
	return page, limit
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
