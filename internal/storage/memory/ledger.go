package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gridwatt/energymarket/internal/types"
)

// CreateAccount initializes a prosumer with zero balances and counters.
func (s *Store) CreateAccount(ctx context.Context, address, name string) (*types.Prosumer, error) {
	if address == "" {
		return nil, fmt.Errorf("%w: address required", types.ErrInvalidAmount)
	}

	s.accountsMu.Lock()
	defer s.accountsMu.Unlock()

	if _, ok := s.accounts[address]; ok {
		return nil, fmt.Errorf("%w: prosumer %q", types.ErrAlreadyExists, address)
	}

	now := time.Now().UTC()
	a := &account{p: types.Prosumer{
		Address:         address,
		Name:            name,
		EnergyGenerated: decimal.Zero,
		EnergyConsumed:  decimal.Zero,
		GridTokens:      decimal.Zero,
		WattTokens:      decimal.Zero,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}}
	s.accounts[address] = a

	p := a.p
	return &p, nil
}

// GetProsumer returns a copy of the prosumer.
func (s *Store) GetProsumer(ctx context.Context, address string) (*types.Prosumer, error) {
	a, ok := s.lookupAccount(address)
	if !ok {
		return nil, fmt.Errorf("%w: prosumer %q", types.ErrNotFound, address)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.p
	return &p, nil
}

// ListProsumers returns prosumers ordered by registration time.
func (s *Store) ListProsumers(ctx context.Context, page, limit int) ([]*types.Prosumer, error) {
	s.accountsMu.RLock()
	all := make([]*account, 0, len(s.accounts))
	for _, a := range s.accounts {
		all = append(all, a)
	}
	s.accountsMu.RUnlock()

	snapshot := make([]*types.Prosumer, 0, len(all))
	for _, a := range all {
		a.mu.Lock()
		p := a.p
		a.mu.Unlock()
		snapshot = append(snapshot, &p)
	}
	sortProsumers(snapshot)

	lo, hi := paginate(len(snapshot), page, limit)
	return snapshot[lo:hi], nil
}

// Rename updates the display name.
func (s *Store) Rename(ctx context.Context, address, name string) (*types.Prosumer, error) {
	a, ok := s.lookupAccount(address)
	if !ok {
		return nil, fmt.Errorf("%w: prosumer %q", types.ErrNotFound, address)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.p.Name = name
	a.p.UpdatedAt = time.Now().UTC()
	p := a.p
	return &p, nil
}

// RecordEnergy adds the deltas to the cumulative counters. Counters are
// monotonic, so negative deltas are rejected.
func (s *Store) RecordEnergy(ctx context.Context, address string, generated, consumed decimal.Decimal) (*types.Prosumer, error) {
	if generated.IsNegative() || consumed.IsNegative() {
		return nil, fmt.Errorf("%w: energy deltas must be non-negative", types.ErrInvalidAmount)
	}

	a, ok := s.lookupAccount(address)
	if !ok {
		return nil, fmt.Errorf("%w: prosumer %q", types.ErrNotFound, address)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.p.EnergyGenerated = a.p.EnergyGenerated.Add(generated)
	a.p.EnergyConsumed = a.p.EnergyConsumed.Add(consumed)
	a.p.UpdatedAt = time.Now().UTC()
	p := a.p
	return &p, nil
}

// Issue credits freshly issued tokens to the account.
func (s *Store) Issue(ctx context.Context, address string, amount decimal.Decimal, kind types.TokenKind) (*types.Prosumer, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: issue amount must be positive", types.ErrInvalidAmount)
	}

	a, ok := s.lookupAccount(address)
	if !ok {
		return nil, fmt.Errorf("%w: prosumer %q", types.ErrNotFound, address)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	credit(&a.p, kind, amount, time.Now().UTC())
	p := a.p
	return &p, nil
}

// Transfer debits from and credits to under both account locks, so the
// sufficiency check and the mutation are one step. No intermediate state is
// observable.
func (s *Store) Transfer(ctx context.Context, from, to string, amount decimal.Decimal, kind types.TokenKind) (*types.Transfer, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: transfer amount must be positive", types.ErrInvalidAmount)
	}
	if from == to {
		return nil, fmt.Errorf("%w: transfer to self", types.ErrInvalidAmount)
	}

	src, ok := s.lookupAccount(from)
	if !ok {
		return nil, fmt.Errorf("%w: prosumer %q", types.ErrNotFound, from)
	}
	dst, ok := s.lookupAccount(to)
	if !ok {
		return nil, fmt.Errorf("%w: prosumer %q", types.ErrNotFound, to)
	}

	unlock := lockAccounts(map[string]*account{from: src, to: dst})
	defer unlock()

	if src.p.Balance(kind).LessThan(amount) {
		return nil, fmt.Errorf("%w: %s has %s %s, needs %s",
			types.ErrInsufficientFunds, from, src.p.Balance(kind), kind, amount)
	}

	now := time.Now().UTC()
	debit(&src.p, kind, amount, now)
	credit(&dst.p, kind, amount, now)

	tr := &types.Transfer{
		ID:        uuid.New(),
		From:      from,
		To:        to,
		Amount:    amount,
		Kind:      kind,
		CreatedAt: now,
	}
	s.transfersMu.Lock()
	s.transfers = append(s.transfers, tr)
	s.transfersMu.Unlock()

	return tr, nil
}

// Deactivate marks the account inactive.
func (s *Store) Deactivate(ctx context.Context, address string) error {
	a, ok := s.lookupAccount(address)
	if !ok {
		return fmt.Errorf("%w: prosumer %q", types.ErrNotFound, address)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.p.IsActive = false
	a.p.UpdatedAt = time.Now().UTC()
	return nil
}

func debit(p *types.Prosumer, kind types.TokenKind, amount decimal.Decimal, now time.Time) {
	if kind == types.GridToken {
		p.GridTokens = p.GridTokens.Sub(amount)
	} else {
		p.WattTokens = p.WattTokens.Sub(amount)
	}
	p.UpdatedAt = now
}

func credit(p *types.Prosumer, kind types.TokenKind, amount decimal.Decimal, now time.Time) {
	if kind == types.GridToken {
		p.GridTokens = p.GridTokens.Add(amount)
	} else {
		p.WattTokens = p.WattTokens.Add(amount)
	}
	p.UpdatedAt = now
}

func sortProsumers(ps []*types.Prosumer) {
	sort.Slice(ps, func(i, j int) bool {
		return ps[i].CreatedAt.Before(ps[j].CreatedAt)
	})
}
