package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/gridwatt/energymarket/internal/types"
)

type registerProsumerRequest struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

type renameProsumerRequest struct {
	Name string `json:"name"`
}

type recordEnergyRequest struct {
	Generated decimal.Decimal `json:"generated"`
	Consumed  decimal.Decimal `json:"consumed"`
}

type transferRequest struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
	Token  string          `json:"token"`
}

func (s *Server) handleRegisterProsumer(w http.ResponseWriter, r *http.Request) {
	var req registerProsumerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, fmt.Errorf("%w: invalid JSON body", types.ErrInvalidAmount))
		return
	}

	prosumer, err := s.ledger.Register(r.Context(), req.Address, req.Name)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, prosumer)
}

func (s *Server) handleListProsumers(w http.ResponseWriter, r *http.Request) {
	page, limit := s.pageParams(r)
	prosumers, err := s.ledger.List(r.Context(), page, limit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, prosumers)
}

func (s *Server) handleGetProsumer(w http.ResponseWriter, r *http.Request) {
	prosumer, err := s.ledger.Get(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, prosumer)
}

func (s *Server) handleRenameProsumer(w http.ResponseWriter, r *http.Request) {
	var req renameProsumerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, fmt.Errorf("%w: invalid JSON body", types.ErrInvalidAmount))
		return
	}

	prosumer, err := s.ledger.Rename(r.Context(), chi.URLParam(r, "address"), req.Name)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, prosumer)
}

func (s *Server) handleDeactivateProsumer(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if err := s.ledger.Deactivate(r.Context(), address); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"address": address, "status": "deactivated"})
}

func (s *Server) handleRecordEnergy(w http.ResponseWriter, r *http.Request) {
	var req recordEnergyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, fmt.Errorf("%w: invalid JSON body", types.ErrInvalidAmount))
		return
	}

	prosumer, err := s.ledger.RecordEnergy(r.Context(), chi.URLParam(r, "address"), req.Generated, req.Consumed)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, prosumer)
}

type issueTokensRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Token  string          `json:"token"`
}

// handleIssueTokens credits new tokens to an account. Operator only.
func (s *Server) handleIssueTokens(w http.ResponseWriter, r *http.Request) {
	if !s.isAdmin(r) {
		s.respondError(w, fmt.Errorf("%w: operator token required", types.ErrForbidden))
		return
	}

	var req issueTokensRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, fmt.Errorf("%w: invalid JSON body", types.ErrInvalidAmount))
		return
	}

	kind, err := types.ParseTokenKind(req.Token)
	if err != nil {
		s.respondError(w, err)
		return
	}

	prosumer, err := s.ledger.Issue(r.Context(), chi.URLParam(r, "address"), req.Amount, kind)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, prosumer)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, fmt.Errorf("%w: invalid JSON body", types.ErrInvalidAmount))
		return
	}

	kind, err := types.ParseTokenKind(req.Token)
	if err != nil {
		s.respondError(w, err)
		return
	}

	transfer, err := s.ledger.Transfer(r.Context(), req.From, req.To, req.Amount, kind)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, transfer)
}
