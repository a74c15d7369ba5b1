package main

import (
	"flag"

	"github.com/elys-network/yieldvault/internal/config"
	"github.com/elys-network/yieldvault/internal/logger"
	"github.com/elys-network/yieldvault/internal/state"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// reset_db drops every vault table and recreates the schema. With -seed it also stores the
// default vault parameters as the active version.
func main() {
	seed := flag.Bool("seed", false, "store the default vault parameters after recreating the schema")
	configName := flag.String("config", config.DefaultVaultConfigName, "parameter set name used with -seed")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}
	if err := logger.Initialize("info", ""); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	dbCfg, err := config.LoadDatabaseConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load database configuration")
	}
	log.Info().
		Str("host", dbCfg.Host).
		Int("port", dbCfg.Port).
		Str("dbname", dbCfg.DBName).
		Msg("Connecting to database")

	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database connection")
	}
	defer state.CloseDB()

	if err := state.DropSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to drop tables")
	}
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to recreate database schema")
	}
	log.Info().Msg("Database schema recreated")

	if *seed {
		id, err := state.SaveVaultParameters(config.DefaultVaultParameters, *configName, config.DefaultVaultConfigVersion, true)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to seed default vault parameters")
		}
		log.Info().Int64("config_id", id).Str("config_name", *configName).Msg("Seeded default vault parameters")
	}
}
