package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMarketStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.Market(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, stats)
}

func (s *Server) handleProsumerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.Prosumer(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, stats)
}
