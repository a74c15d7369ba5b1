package config

import (
	"strconv"

	"github.com/elys-network/yieldvault/internal/state"
	"github.com/rs/zerolog/log"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// WebListenAddr is where the status API and /metrics are served.
	WebListenAddr string

	// DatabaseEnabled turns on PostgreSQL persistence of snapshots and vault records.
	DatabaseEnabled bool
	// Database holds the PostgreSQL connection settings; only read when DatabaseEnabled.
	Database state.DBConfig
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var err error

	WebListenAddr = getEnvOrDefault("WEB_LISTEN_ADDR", ":8080")

	DatabaseEnabled, err = getEnvAsBool("DB_ENABLED", false)
	if err != nil {
		return err
	}
	if !DatabaseEnabled {
		log.Debug().Str("WebListenAddr", WebListenAddr).Msg("Endpoint configuration loaded; database disabled.")
		return nil
	}

	if Database, err = LoadDatabaseConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("WebListenAddr", WebListenAddr).
		Str("DBHost", Database.Host).
		Str("DBPort", strconv.Itoa(Database.Port)).
		Str("DBName", Database.DBName).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}

// LoadDatabaseConfig reads the DB_* variables. DB_USER and DB_PASSWORD are required.
func LoadDatabaseConfig() (state.DBConfig, error) {
	port, err := getEnvAsUint64OrDefault("DB_PORT", 5432)
	if err != nil {
		return state.DBConfig{}, err
	}
	cfg := state.DBConfig{
		Host:    getEnvOrDefault("DB_HOST", "localhost"),
		Port:    int(port),
		DBName:  getEnvOrDefault("DB_NAME", "yieldvault"),
		SSLMode: getEnvOrDefault("DB_SSLMODE", "disable"),
	}
	if cfg.User, err = getEnv("DB_USER"); err != nil {
		return state.DBConfig{}, err
	}
	if cfg.Password, err = getEnv("DB_PASSWORD"); err != nil {
		return state.DBConfig{}, err
	}
	return cfg, nil
}
