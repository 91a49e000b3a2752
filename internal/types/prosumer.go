package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TokenKind identifies one of the two token balances a prosumer holds.
type TokenKind string

const (
	// GridToken is the staking-eligible token.
	GridToken TokenKind = "grid"
	// WattToken is the utility token used to settle trades.
	WattToken TokenKind = "watt"
)

// ParseTokenKind converts a wire string into a TokenKind.
// Accepts the long forms used by older clients ("grid_tokens", "watt_tokens").
func ParseTokenKind(s string) (TokenKind, error) {
	switch s {
	case "grid", "grid_tokens":
		return GridToken, nil
	case "watt", "watt_tokens":
		return WattToken, nil
	default:
		return "", fmt.Errorf("%w: unknown token kind %q", ErrInvalidAmount, s)
	}
}

// Prosumer is an account that may both produce and consume energy and hold
// token balances. Prosumers are never deleted, only deactivated.
type Prosumer struct {
	Address         string          `json:"address"`
	Name            string          `json:"name"`
	EnergyGenerated decimal.Decimal `json:"energy_generated"`
	EnergyConsumed  decimal.Decimal `json:"energy_consumed"`
	GridTokens      decimal.Decimal `json:"grid_tokens"`
	WattTokens      decimal.Decimal `json:"watt_tokens"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NetEnergy is cumulative generation minus cumulative consumption.
// May be negative for net consumers.
func (p *Prosumer) NetEnergy() decimal.Decimal {
	return p.EnergyGenerated.Sub(p.EnergyConsumed)
}

// Balance returns the balance for the given token kind.
func (p *Prosumer) Balance(kind TokenKind) decimal.Decimal {
	if kind == GridToken {
		return p.GridTokens
	}
	return p.WattTokens
}

// Transfer is the audit record of a completed token movement.
type Transfer struct {
	ID        uuid.UUID       `json:"id"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	Kind      TokenKind       `json:"token_kind"`
	CreatedAt time.Time       `json:"created_at"`
}
