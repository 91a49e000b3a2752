package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gridwatt/energymarket/internal/types"
)

// envelope is the uniform response body.
type envelope struct {
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func (s *Server) respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{
		Success:   true,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}); err != nil {
		s.log.Error().Err(err).Msg("response encoding failed")
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
		msg = "internal error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{
		Success:   false,
		Timestamp: time.Now().UTC(),
		Error:     msg,
	})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidOrder), errors.Is(err, types.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, types.ErrAlreadyExists),
		errors.Is(err, types.ErrInvalidState),
		errors.Is(err, types.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, types.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}
