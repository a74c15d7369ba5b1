package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS vault_records (
			record_id BIGSERIAL PRIMARY KEY,
			owner TEXT NOT NULL,
			lp_token_mint TEXT NOT NULL,
			slot BIGINT NOT NULL,
			version SMALLINT NOT NULL,
			record BYTEA NOT NULL,
			saved_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_vault_records_mint_slot ON vault_records (lp_token_mint, slot DESC);

		CREATE TABLE IF NOT EXISTS vault_parameters (
			params_id SERIAL PRIMARY KEY,
			config_name TEXT NOT NULL,
			version INTEGER NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			deposit_cap BIGINT NOT NULL,
			fee_carry_bps INTEGER NOT NULL,
			fee_mgmt_bps INTEGER NOT NULL,
			referral_fee_pct SMALLINT NOT NULL,
			allocation_cap_pct SMALLINT NOT NULL,
			rebalance_mode TEXT NOT NULL,
			strategy_type TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (config_name, version)
		);

		CREATE TABLE IF NOT EXISTS cycle_snapshots (
			snapshot_id BIGSERIAL PRIMARY KEY,
			cycle_id UUID NOT NULL UNIQUE,
			cycle_number INTEGER NOT NULL,
			slot BIGINT NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL,
			initial_value BIGINT NOT NULL,
			consolidated_value BIGINT NOT NULL,
			final_value BIGINT NOT NULL,
			final_idle BIGINT NOT NULL,
			accrued_fees BIGINT NOT NULL,
			success BOOLEAN NOT NULL,
			error_message TEXT,
			duration_seconds DOUBLE PRECISION NOT NULL,
			snapshot JSONB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_cycle_snapshots_timestamp ON cycle_snapshots (snapshot_timestamp DESC);

		CREATE TABLE IF NOT EXISTS action_receipts (
			receipt_id BIGSERIAL PRIMARY KEY,
			snapshot_id BIGINT NOT NULL REFERENCES cycle_snapshots(snapshot_id) ON DELETE CASCADE,
			provider TEXT NOT NULL,
			action_type TEXT NOT NULL,
			amount BIGINT NOT NULL,
			success BOOLEAN NOT NULL,
			message TEXT,
			slot BIGINT NOT NULL,
			executed_at TIMESTAMPTZ NOT NULL
		);
	`

	if _, err := DB.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	if err := ensureCycleCounterTable(); err != nil {
		return err
	}

	log.Info().Msg("Database schema ensured")
	return nil
}

// DropSchema removes every table EnsureSchema creates.
func DropSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	dropSQL := `
		DROP TABLE IF EXISTS action_receipts CASCADE;
		DROP TABLE IF EXISTS cycle_snapshots CASCADE;
		DROP TABLE IF EXISTS vault_parameters CASCADE;
		DROP TABLE IF EXISTS vault_records CASCADE;
		DROP TABLE IF EXISTS keeper_cycle_counters CASCADE;
	`
	if _, err := DB.Exec(dropSQL); err != nil {
		return fmt.Errorf("failed to drop vault tables: %w", err)
	}
	log.Warn().Msg("Dropped vault tables")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
