package postgres

import (
	"context"
	"fmt"
	"time"

	"civic-ledger/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	applicationName   = "sup-ledger"
	healthCheckPeriod = 30 * time.Second
	connectTimeout    = 10 * time.Second
)

// poolConfig maps DatabaseConfig onto a pgxpool config.
func poolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	pc.HealthCheckPeriod = healthCheckPeriod
	pc.ConnConfig.RuntimeParams["application_name"] = applicationName
	return pc, nil
}

// NewPool opens the pool and fails unless the server answers a ping.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*pgxpool.Pool, error) {
	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.DBName, err)
	}

	log.Info().
		Str("host", cfg.Host).
		Str("dbname", cfg.DBName).
		Int32("max_conns", pc.MaxConns).
		Int32("min_conns", pc.MinConns).
		Msg("Connected to ledger database")
	return pool, nil
}

// ApplySchema runs ddl in a single transaction so a failing statement
// leaves the schema untouched.
func ApplySchema(ctx context.Context, pool Pool, ddl string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Transactor opens the read-committed units of work the processor runs in.
// Row locks taken with FOR UPDATE give per-account serialization on top.
type Transactor struct {
	pool Pool
}

func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
}

// HealthCheck reports whether the database answers queries.
type HealthCheck struct {
	pool Pool
}

func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	var one int
	if err := h.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

func (h *HealthCheck) Name() string { return "postgresql" }
