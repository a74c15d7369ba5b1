package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// LogFile, when set, receives a copy of all log output.
	LogFile string

	// VaultOwner is the administrator key recorded on the vault.
	VaultOwner solana.PublicKey
	// LpTokenMint identifies the vault; persisted records are keyed by it.
	LpTokenMint solana.PublicKey
	// VaultConfigName selects the stored vault parameters to activate.
	VaultConfigName string

	// KeeperSchedule is the cron spec for keeper cycles.
	KeeperSchedule string
	// SlotDuration converts wall time into slots for the simulated cluster.
	SlotDuration time.Duration

	// MarketsFile is the YAML file describing the lending markets.
	MarketsFile string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// VAULT_OWNER and VAULT_LP_TOKEN_MINT are required; the rest have defaults.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	VaultOwner, err = getEnvAsPublicKey("VAULT_OWNER")
	if err != nil {
		return err
	}

	LpTokenMint, err = getEnvAsPublicKey("VAULT_LP_TOKEN_MINT")
	if err != nil {
		return err
	}

	LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	LogFile = getEnvOrDefault("LOG_FILE", "")
	VaultConfigName = getEnvOrDefault("VAULT_CONFIG_NAME", DefaultVaultConfigName)
	KeeperSchedule = getEnvOrDefault("KEEPER_SCHEDULE", "@every 10s")
	MarketsFile = getEnvOrDefault("MARKETS_FILE", "markets.yaml")

	slotMs, err := getEnvAsUint64OrDefault("SLOT_DURATION_MS", 400)
	if err != nil {
		return err
	}
	if slotMs == 0 {
		return errors.New("environment variable SLOT_DURATION_MS must be positive")
	}
	SlotDuration = time.Duration(slotMs) * time.Millisecond

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("LpTokenMint", LpTokenMint.String()).
		Str("KeeperSchedule", KeeperSchedule).
		Dur("SlotDuration", SlotDuration).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

func getEnvOrDefault(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getEnvAsUint64 retrieves an environment variable as a uint64. Returns error if not set or invalid.
func getEnvAsUint64(key string) (uint64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}

func getEnvAsUint64OrDefault(key string, fallback uint64) (uint64, error) {
	if _, exists := os.LookupEnv(key); !exists {
		return fallback, nil
	}
	return getEnvAsUint64(key)
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return false, errors.New("environment variable " + key + " must be a valid bool, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsPublicKey retrieves a base58 public key. Returns error if not set or invalid.
func getEnvAsPublicKey(key string) (solana.PublicKey, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return solana.PublicKey{}, err
	}
	pk, err := solana.PublicKeyFromBase58(valueStr)
	if err != nil {
		return solana.PublicKey{}, errors.New("environment variable " + key + " must be a base58 public key, got: " + valueStr)
	}
	return pk, nil
}
