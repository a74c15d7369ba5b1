package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/elys-network/yieldvault/internal/avm"
	"github.com/elys-network/yieldvault/internal/config"
	"github.com/elys-network/yieldvault/internal/lending"
	"github.com/elys-network/yieldvault/internal/logger"
	"github.com/elys-network/yieldvault/internal/state"
	"github.com/elys-network/yieldvault/internal/vault"
	"github.com/elys-network/yieldvault/internal/web"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// main is the entry point for the vault keeper.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := logger.Initialize(config.LogLevel, config.LogFile); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}
	log.Info().Msg("Yield vault keeper starting...")

	var store avm.Store
	if config.DatabaseEnabled {
		if err := state.InitDB(config.Database); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer state.CloseDB()
		if err := state.EnsureSchema(); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure database schema")
		}
		store = state.PostgresStore{LpTokenMint: config.LpTokenMint}
	}

	params := loadParameters()

	// --- 2. Markets and Vault ---
	ledger := vault.NewMemoryLedger()
	specs, err := config.LoadMarkets(config.MarketsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load market fixtures")
	}
	registry, err := config.BuildMarkets(specs, ledger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build lending markets")
	}

	startSlot := resumeSlot()
	v := newVault(params, registry, startSlot)
	slots := avm.WallClock{
		Genesis:      time.Now().Add(-time.Duration(startSlot+1) * config.SlotDuration),
		SlotDuration: config.SlotDuration,
	}

	// --- 3. Keeper ---
	keeper, err := avm.NewAVM(avm.Config{
		Vault:    v,
		Ledger:   ledger,
		Registry: registry,
		Slots:    slots,
		Store:    store,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create AVM instance")
	}

	// --- 4. Web Server ---
	webServer := web.NewWebServer(config.WebListenAddr, keeper, config.DatabaseEnabled)
	go func() {
		if err := webServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Web server stopped")
		}
	}()

	// --- 5. Schedule ---
	scheduler := avm.NewScheduler(logger.Logger)
	if err := scheduler.AddJob(config.KeeperSchedule, keeper); err != nil {
		log.Fatal().Err(err).Str("schedule", config.KeeperSchedule).Msg("Invalid keeper schedule")
	}
	if err := keeper.Run(); err != nil {
		log.Error().Err(err).Msg("Initial keeper cycle failed")
	}
	scheduler.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("Shutdown signal received")
	scheduler.Stop()
}

// loadParameters returns the stored active parameters, seeding the defaults when none exist.
func loadParameters() vault.VaultParameters {
	if !config.DatabaseEnabled {
		return config.DefaultVaultParameters
	}
	params, err := state.LoadActiveVaultParameters(config.VaultConfigName)
	if err == nil {
		return *params
	}
	log.Warn().Err(err).Msg("Failed to load active vault parameters, using defaults and saving.")
	defaults := config.DefaultVaultParameters
	if _, err := state.SaveVaultParameters(defaults, config.VaultConfigName, config.DefaultVaultConfigVersion, true); err != nil {
		log.Fatal().Err(err).Msg("Failed to save initial default vault parameters.")
	}
	return defaults
}

// resumeSlot returns the slot of the latest stored vault record so the slot clock keeps
// advancing across restarts. Venue positions live in memory, so the record itself is not restored.
func resumeSlot() uint64 {
	if !config.DatabaseEnabled {
		return 0
	}
	previous, err := state.LoadLatestVault(config.LpTokenMint)
	if errors.Is(err, state.ErrVaultNotFound) {
		return 0
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load stored vault")
	}
	slot := previous.Value().LastUpdate.Slot
	log.Info().
		Uint64("slot", slot).
		Uint64("value", previous.Value().Value).
		Msg("Found previous vault record; starting a new vault after its last slot")
	return slot
}

// newVault creates a vault with every configured market attached as a yield source.
func newVault(params vault.VaultParameters, registry *lending.Registry, slot uint64) *vault.Vault {
	handles := vault.Handles{
		Owner:               config.VaultOwner,
		VaultAuthority:      solana.NewWallet().PublicKey(),
		ReserveMint:         solana.NewWallet().PublicKey(),
		VaultReserveAccount: solana.NewWallet().PublicKey(),
		LpTokenMint:         config.LpTokenMint,
		FeeReceiver:         config.VaultOwner,
		ReferralFeeReceiver: config.VaultOwner,
	}
	v, err := vault.NewVault(handles, params, slot)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create vault")
	}
	for _, m := range registry.Markets() {
		if err := v.AttachYieldSource(m.Provider(), m.Address()); err != nil {
			log.Fatal().Err(err).Str("provider", m.Provider().String()).Msg("Failed to attach yield source")
		}
	}
	return v
}
