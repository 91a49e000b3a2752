package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gridwatt/energymarket/internal/types"
)

// Per-call execution windows. Persistence calls never hang: a timeout
// surfaces as a retryable ErrInternal.
const (
	opTimeout    = 5 * time.Second
	queryTimeout = 10 * time.Second
)

// Config holds PostgreSQL connection settings.
type Config struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	MaxConns        int32
	ConnMaxLifetime time.Duration
	SSLMode         string
}

// DSN renders the config as a connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.User, c.Password, c.SSLMode)
}

// Store is the PostgreSQL backend. Compound check-then-mutate sequences run
// as single transactions with row locks, giving the serializable-or-better
// isolation the settlement and transfer contracts require.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects, verifies the connection and runs migrations.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// internalErr wraps a driver failure as a retryable ErrInternal.
func internalErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", types.ErrInternal, op, err)
}

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
