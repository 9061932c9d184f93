package state

import (
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
		CREATE TABLE IF NOT EXISTS donations (
			donation_id BIGSERIAL PRIMARY KEY,
			adapter_id VARCHAR(255) NOT NULL,
			depositor_id VARCHAR(255) NOT NULL,
			amount NUMERIC(39, 0) NOT NULL CHECK (amount > 0),
			donated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_donations_adapter ON donations(adapter_id, donated_at DESC);
		CREATE INDEX IF NOT EXISTS idx_donations_depositor ON donations(depositor_id, donated_at DESC);

		CREATE TABLE IF NOT EXISTS harvest_snapshots (
			snapshot_id BIGSERIAL PRIMARY KEY,
			cycle_number INTEGER NOT NULL,
			cycle_id VARCHAR(64) NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL,
			initial_portfolio_value NUMERIC(39, 0) NOT NULL,
			final_portfolio_value NUMERIC(39, 0) NOT NULL,
			reports JSONB NOT NULL,
			failed_adapters TEXT[] NOT NULL DEFAULT '{}',
			total_gain NUMERIC(39, 0) NOT NULL,
			total_donated NUMERIC(39, 0) NOT NULL,
			total_queued NUMERIC(39, 0) NOT NULL,
			duration_ms BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_harvest_snapshots_cycle ON harvest_snapshots(cycle_number DESC);

		CREATE TABLE IF NOT EXISTS harvest_cycle_counter (
			id INTEGER PRIMARY KEY DEFAULT 1,
			current_cycle INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);
		INSERT INTO harvest_cycle_counter (id, current_cycle)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING;
	`
	if _, err := DB.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	log.Debug().Msg("Database schema ensured")
	return nil
}
