package ledger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gridwatt/energymarket/internal/audit"
	"github.com/gridwatt/energymarket/internal/storage"
	"github.com/gridwatt/energymarket/internal/types"
)

// Service fronts the balance ledger with input validation and audit
// notifications. Balance arithmetic and its atomicity live in the backend.
type Service struct {
	store  storage.Ledger
	notify audit.Notifier
	log    zerolog.Logger
}

func NewService(store storage.Ledger, notify audit.Notifier, log zerolog.Logger) *Service {
	if notify == nil {
		notify = audit.Nop{}
	}
	return &Service{
		store:  store,
		notify: notify,
		log:    log.With().Str("component", "ledger").Logger(),
	}
}

// Register creates a prosumer account with zero balances.
func (s *Service) Register(ctx context.Context, address, name string) (*types.Prosumer, error) {
	if address == "" {
		return nil, fmt.Errorf("%w: address required", types.ErrInvalidAmount)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name required", types.ErrInvalidAmount)
	}

	prosumer, err := s.store.CreateAccount(ctx, address, name)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("prosumer", address).Str("name", name).Msg("prosumer registered")
	return prosumer, nil
}

// Get retrieves one prosumer by address.
func (s *Service) Get(ctx context.Context, address string) (*types.Prosumer, error) {
	return s.store.GetProsumer(ctx, address)
}

// List returns prosumers paginated by registration time.
func (s *Service) List(ctx context.Context, page, limit int) ([]*types.Prosumer, error) {
	return s.store.ListProsumers(ctx, page, limit)
}

// Rename updates the display name.
func (s *Service) Rename(ctx context.Context, address, name string) (*types.Prosumer, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name required", types.ErrInvalidAmount)
	}
	return s.store.Rename(ctx, address, name)
}

// RecordEnergy adds meter readings to the cumulative counters. Either delta
// may be zero; negative deltas are rejected by the backend.
func (s *Service) RecordEnergy(ctx context.Context, address string, generated, consumed decimal.Decimal) (*types.Prosumer, error) {
	return s.store.RecordEnergy(ctx, address, generated, consumed)
}

// Issue credits newly created tokens to an account. The API layer restricts
// it to the operator.
func (s *Service) Issue(ctx context.Context, address string, amount decimal.Decimal, kind types.TokenKind) (*types.Prosumer, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: issue amount must be positive", types.ErrInvalidAmount)
	}

	prosumer, err := s.store.Issue(ctx, address, amount, kind)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("prosumer", address).
		Str("token", string(kind)).
		Str("amount", amount.String()).
		Msg("tokens issued")
	return prosumer, nil
}

// Transfer moves tokens between two accounts atomically and notifies the
// audit trail once the movement has committed.
func (s *Service) Transfer(ctx context.Context, from, to string, amount decimal.Decimal, kind types.TokenKind) (*types.Transfer, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: transfer amount must be positive", types.ErrInvalidAmount)
	}
	if from == to {
		return nil, fmt.Errorf("%w: transfer endpoints must differ", types.ErrInvalidAmount)
	}

	transfer, err := s.store.Transfer(ctx, from, to, amount, kind)
	if err != nil {
		return nil, err
	}
	s.notify.TokensTransferred(ctx, transfer)
	return transfer, nil
}

// Deactivate marks the account inactive; its history and balances remain.
func (s *Service) Deactivate(ctx context.Context, address string) error {
	if err := s.store.Deactivate(ctx, address); err != nil {
		return err
	}
	s.log.Info().Str("prosumer", address).Msg("prosumer deactivated")
	return nil
}
