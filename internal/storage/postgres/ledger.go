package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/gridwatt/energymarket/internal/types"
)

const prosumerColumns = `address, name, energy_generated, energy_consumed, grid_tokens, watt_tokens, is_active, created_at, updated_at`

func scanProsumer(row pgx.Row) (*types.Prosumer, error) {
	var p types.Prosumer
	err := row.Scan(&p.Address, &p.Name, &p.EnergyGenerated, &p.EnergyConsumed,
		&p.GridTokens, &p.WattTokens, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateAccount inserts a prosumer row with zero balances.
func (s *Store) CreateAccount(ctx context.Context, address, name string) (*types.Prosumer, error) {
	if address == "" {
		return nil, fmt.Errorf("%w: address required", types.ErrInvalidAmount)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx, `
		INSERT INTO prosumers (address, name)
		VALUES ($1, $2)
		RETURNING `+prosumerColumns,
		address, name)

	p, err := scanProsumer(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: prosumer %q", types.ErrAlreadyExists, address)
		}
		return nil, internalErr("create account", err)
	}
	return p, nil
}

// GetProsumer retrieves a prosumer by address.
func (s *Store) GetProsumer(ctx context.Context, address string) (*types.Prosumer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT `+prosumerColumns+` FROM prosumers WHERE address = $1`, address)

	p, err := scanProsumer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: prosumer %q", types.ErrNotFound, address)
	}
	if err != nil {
		return nil, internalErr("get prosumer", err)
	}
	return p, nil
}

// ListProsumers returns prosumers ordered by registration time.
func (s *Store) ListProsumers(ctx context.Context, page, limit int) ([]*types.Prosumer, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	limit, offset := window(page, limit)
	rows, err := s.pool.Query(ctx, `
		SELECT `+prosumerColumns+`
		FROM prosumers
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, internalErr("list prosumers", err)
	}
	defer rows.Close()

	var out []*types.Prosumer
	for rows.Next() {
		p, err := scanProsumer(rows)
		if err != nil {
			return nil, internalErr("scan prosumer", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, internalErr("list prosumers", err)
	}
	return out, nil
}

// Rename updates the display name.
func (s *Store) Rename(ctx context.Context, address, name string) (*types.Prosumer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx, `
		UPDATE prosumers SET name = $2, updated_at = now()
		WHERE address = $1
		RETURNING `+prosumerColumns, address, name)

	p, err := scanProsumer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: prosumer %q", types.ErrNotFound, address)
	}
	if err != nil {
		return nil, internalErr("rename prosumer", err)
	}
	return p, nil
}

// RecordEnergy adds the deltas to the cumulative counters in one statement.
func (s *Store) RecordEnergy(ctx context.Context, address string, generated, consumed decimal.Decimal) (*types.Prosumer, error) {
	if generated.IsNegative() || consumed.IsNegative() {
		return nil, fmt.Errorf("%w: energy deltas must be non-negative", types.ErrInvalidAmount)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx, `
		UPDATE prosumers
		SET energy_generated = energy_generated + $2,
		    energy_consumed = energy_consumed + $3,
		    updated_at = now()
		WHERE address = $1
		RETURNING `+prosumerColumns, address, generated, consumed)

	p, err := scanProsumer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: prosumer %q", types.ErrNotFound, address)
	}
	if err != nil {
		return nil, internalErr("record energy", err)
	}
	return p, nil
}

// Issue credits freshly issued tokens to the account in one statement.
func (s *Store) Issue(ctx context.Context, address string, amount decimal.Decimal, kind types.TokenKind) (*types.Prosumer, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: issue amount must be positive", types.ErrInvalidAmount)
	}

	column := "watt_tokens"
	if kind == types.GridToken {
		column = "grid_tokens"
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`UPDATE prosumers SET `+column+` = `+column+` + $2, updated_at = now()
		 WHERE address = $1
		 RETURNING `+prosumerColumns, address, amount)

	p, err := scanProsumer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: prosumer %q", types.ErrNotFound, address)
	}
	if err != nil {
		return nil, internalErr("issue tokens", err)
	}
	return p, nil
}

// Transfer moves tokens between two accounts in one transaction. The
// sufficiency check is the conditional debit itself, not a separate read,
// which closes the race between check and mutation.
func (s *Store) Transfer(ctx context.Context, from, to string, amount decimal.Decimal, kind types.TokenKind) (*types.Transfer, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: transfer amount must be positive", types.ErrInvalidAmount)
	}
	if from == to {
		return nil, fmt.Errorf("%w: transfer to self", types.ErrInvalidAmount)
	}

	column := "watt_tokens"
	if kind == types.GridToken {
		column = "grid_tokens"
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, internalErr("begin transfer", err)
	}
	defer tx.Rollback(ctx)

	// The recipient must exist before we debit; the debit's WHERE clause
	// covers both the sender's existence and their balance.
	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM prosumers WHERE address = $1)`, to).Scan(&exists); err != nil {
		return nil, internalErr("check recipient", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: prosumer %q", types.ErrNotFound, to)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE prosumers SET `+column+` = `+column+` - $1, updated_at = now()
		 WHERE address = $2 AND `+column+` >= $1`, amount, from)
	if err != nil {
		return nil, internalErr("debit sender", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing sender from an underfunded one.
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM prosumers WHERE address = $1)`, from).Scan(&exists); err != nil {
			return nil, internalErr("check sender", err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: prosumer %q", types.ErrNotFound, from)
		}
		return nil, fmt.Errorf("%w: %s cannot cover %s %s", types.ErrInsufficientFunds, from, amount, kind)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE prosumers SET `+column+` = `+column+` + $1, updated_at = now()
		 WHERE address = $2`, amount, to); err != nil {
		return nil, internalErr("credit recipient", err)
	}

	tr := &types.Transfer{
		ID:     uuid.New(),
		From:   from,
		To:     to,
		Amount: amount,
		Kind:   kind,
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO transfers (id, from_addr, to_addr, amount, token_kind)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		tr.ID, tr.From, tr.To, tr.Amount, tr.Kind).Scan(&tr.CreatedAt); err != nil {
		return nil, internalErr("record transfer", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, internalErr("commit transfer", err)
	}
	return tr, nil
}

// Deactivate marks the account inactive.
func (s *Store) Deactivate(ctx context.Context, address string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx,
		`UPDATE prosumers SET is_active = FALSE, updated_at = now() WHERE address = $1`, address)
	if err != nil {
		return internalErr("deactivate prosumer", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: prosumer %q", types.ErrNotFound, address)
	}
	return nil
}

// window converts 1-based page/limit into LIMIT/OFFSET values.
func window(page, limit int) (int, int) {
	if limit <= 0 {
		limit = 100
	}
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}
