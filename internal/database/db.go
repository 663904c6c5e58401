package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"confluence-engine/internal/logging"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
	log  *logging.Logger
}

// Config holds database configuration
type Config struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
}

// NewDB creates a new database connection
func NewDB(cfg Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log := logging.WithComponent("database")
	log.Info("Connected to PostgreSQL")

	return &DB{Pool: pool, log: log}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.log.Info("Database connection closed")
	}
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	db.log.Info("Running database migrations")

	migrations := []string{
		// Evaluations: one row per engine run, full result as JSONB for replay
		`CREATE TABLE IF NOT EXISTS evaluations (
			id UUID PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL,
			profile_version VARCHAR(64) NOT NULL,
			action VARCHAR(10) NOT NULL,
			confidence_tier VARCHAR(10) NOT NULL,
			agreement VARCHAR(10) NOT NULL,
			risk_dispersion VARCHAR(10) NOT NULL,
			score DECIMAL(6, 2) NOT NULL,
			recommendation JSONB NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_symbol ON evaluations(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_created_at ON evaluations(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_action ON evaluations(action)`,

		// Per-horizon breakdown of an evaluation
		`CREATE TABLE IF NOT EXISTS timeframe_results (
			id SERIAL PRIMARY KEY,
			evaluation_id UUID NOT NULL REFERENCES evaluations(id) ON DELETE CASCADE,
			horizon VARCHAR(20) NOT NULL,
			direction VARCHAR(10) NOT NULL,
			signal_count INT NOT NULL,
			calibrated_win_rate DECIMAL(8, 6) NOT NULL,
			score DECIMAL(6, 2) NOT NULL,
			multiplier_applied DECIMAL(8, 4) NOT NULL,
			actionable BOOLEAN NOT NULL,
			signals JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_timeframe_results_eval ON timeframe_results(evaluation_id)`,

		// Profile versions: calibration history, active row drives the engine
		`CREATE TABLE IF NOT EXISTS profile_versions (
			id SERIAL PRIMARY KEY,
			version VARCHAR(64) NOT NULL UNIQUE,
			profile JSONB NOT NULL,
			active BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_profile_versions_active ON profile_versions(active)`,

		// Watchlist: symbols the scheduler sweeps
		`CREATE TABLE IF NOT EXISTS watchlist (
			id SERIAL PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL UNIQUE,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// Users for API authentication
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'user',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_login_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	db.log.Info("Database migrations completed")
	return nil
}
