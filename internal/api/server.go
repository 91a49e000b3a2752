package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/gridwatt/energymarket/config"
	"github.com/gridwatt/energymarket/internal/ledger"
	"github.com/gridwatt/energymarket/internal/market"
	"github.com/gridwatt/energymarket/internal/stats"
	"github.com/gridwatt/energymarket/internal/storage"
	"github.com/gridwatt/energymarket/internal/types"
)

// RecentTrades reads the fast recent-trade tape when one is configured.
type RecentTrades interface {
	Recent(ctx context.Context, limit int) ([]*types.Trade, error)
}

// Server wires the HTTP surface to the market services.
type Server struct {
	market *market.Service
	ledger *ledger.Service
	trades storage.TradeStore
	stats  *stats.Aggregator
	tape   RecentTrades
	cfg    config.APIConfig
	log    zerolog.Logger
}

func NewServer(m *market.Service, l *ledger.Service, trades storage.TradeStore, agg *stats.Aggregator, tape RecentTrades, cfg config.APIConfig, log zerolog.Logger) *Server {
	return &Server{
		market: m,
		ledger: l,
		trades: trades,
		stats:  agg,
		tape:   tape,
		cfg:    cfg,
		log:    log.With().Str("component", "api").Logger(),
	}
}

// Router builds the chi router with the full route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/prosumers", func(r chi.Router) {
			r.Post("/", s.handleRegisterProsumer)
			r.Get("/", s.handleListProsumers)
			r.Route("/{address}", func(r chi.Router) {
				r.Get("/", s.handleGetProsumer)
				r.Patch("/", s.handleRenameProsumer)
				r.Delete("/", s.handleDeactivateProsumer)
				r.Post("/energy", s.handleRecordEnergy)
				r.Post("/issue", s.handleIssueTokens)
				r.Get("/stats", s.handleProsumerStats)
				r.Get("/trades", s.handleProsumerTrades)
			})
		})

		r.Post("/transfers", s.handleTransfer)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", s.handlePlaceOrder)
			r.Get("/", s.handleListOrders)
			r.Get("/{id}", s.handleGetOrder)
			r.Delete("/{id}", s.handleCancelOrder)
		})

		r.Route("/trades", func(r chi.Router) {
			r.Get("/", s.handleListTrades)
			r.Get("/recent", s.handleRecentTrades)
			r.Get("/{id}", s.handleGetTrade)
		})

		r.Get("/stats/market", s.handleMarketStats)
	})

	return r
}
