package avm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/elys-network/yieldvault/internal/analyzer"
	"github.com/elys-network/yieldvault/internal/lending"
	"github.com/elys-network/yieldvault/internal/logger"
	"github.com/elys-network/yieldvault/internal/metrics"
	"github.com/elys-network/yieldvault/internal/types"
	"github.com/elys-network/yieldvault/internal/utils"
	"github.com/elys-network/yieldvault/internal/vault"
	"github.com/gagliardetto/solana-go"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxRecentSnapshots bounds the in-memory cycle history served when no store is configured.
const maxRecentSnapshots = 100

// SlotSource reports the current slot.
type SlotSource interface {
	CurrentSlot() uint64
}

// SlotFunc adapts a function to SlotSource.
type SlotFunc func() uint64

func (f SlotFunc) CurrentSlot() uint64 { return f() }

// WallClock derives slots from elapsed wall time since Genesis.
type WallClock struct {
	Genesis      time.Time
	SlotDuration time.Duration
}

func (c WallClock) CurrentSlot() uint64 {
	elapsed := time.Since(c.Genesis)
	if elapsed <= 0 || c.SlotDuration <= 0 {
		return 0
	}
	return uint64(elapsed / c.SlotDuration)
}

// Store persists cycle results. It is optional.
type Store interface {
	NextCycleNumber() (int, error)
	SaveCycleSnapshot(types.CycleSnapshot) (int64, error)
	SaveVault(vault.Manager) (int64, error)
}

// AVM is the keeper that drives the vault through its per-slot cycle.
type AVM struct {
	logger   zerolog.Logger
	vault    vault.Manager
	ledger   vault.TokenLedger
	registry *lending.Registry
	slots    SlotSource
	store    Store

	mu         sync.Mutex
	cycleCount int
	lastSlot   uint64
	recent     []types.CycleSnapshot
}

// Config holds the configuration for creating a new AVM instance
type Config struct {
	Vault    vault.Manager
	Ledger   vault.TokenLedger
	Registry *lending.Registry
	Slots    SlotSource
	Store    Store
}

// NewAVM creates a new AVM instance with dependency injection
func NewAVM(cfg Config) (*AVM, error) {
	if err := validateAVMConfig(cfg); err != nil {
		return nil, fmt.Errorf("AVM configuration validation failed: %w", err)
	}

	a := &AVM{
		logger:   logger.GetForComponent("avm_core"),
		vault:    cfg.Vault,
		ledger:   cfg.Ledger,
		registry: cfg.Registry,
		slots:    cfg.Slots,
		store:    cfg.Store,
	}

	a.logger.Info().
		Str("lpTokenMint", cfg.Vault.Handles().LpTokenMint.String()).
		Int("markets", len(cfg.Registry.Markets())).
		Bool("persistent", cfg.Store != nil).
		Msg("AVM instance created")
	return a, nil
}

func validateAVMConfig(cfg Config) error {
	if cfg.Vault == nil {
		return fmt.Errorf("vault cannot be nil")
	}
	if cfg.Ledger == nil {
		return fmt.Errorf("ledger cannot be nil")
	}
	if cfg.Registry == nil {
		return fmt.Errorf("market registry cannot be nil")
	}
	if cfg.Slots == nil {
		return fmt.Errorf("slot source cannot be nil")
	}
	return nil
}

// RunLoop runs a cycle immediately and then on every interval until ctx is done.
func (a *AVM) RunLoop(ctx context.Context, interval time.Duration) {
	a.logger.Info().Dur("interval", interval).Msg("Starting AVM main loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.runLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("AVM loop stopped due to context cancellation")
			return
		case <-ticker.C:
			a.runLogged(ctx)
		}
	}
}

// Run executes one cycle; it lets the keeper be scheduled as a Job.
func (a *AVM) Run() error {
	_, err := a.RunCycle(context.Background())
	return err
}

func (a *AVM) Name() string { return "keeper_cycle" }

func (a *AVM) runLogged(ctx context.Context) {
	if _, err := a.RunCycle(ctx); err != nil {
		a.logger.Error().Err(err).Msg("AVM cycle failed")
	}
}

// RunCycle executes refresh, consolidate, rebalance and reconcile for every enabled yield source
// at the current slot. The snapshot is returned and recorded even when a step fails.
func (a *AVM) RunCycle(ctx context.Context) (types.CycleSnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	now := a.slots.CurrentSlot()
	cycleID := uuid.New().String()
	cycleLogger := a.logger.With().Str("cycle_id", cycleID).Uint64("slot", now).Logger()

	snapshot := types.CycleSnapshot{
		CycleID:        cycleID,
		CycleNumber:    a.nextCycleNumber(),
		Slot:           now,
		Timestamp:      start,
		InitialValue:   a.vault.Value().Value,
		ActionReceipts: make([]types.ActionReceipt, 0),
	}
	snapshot.InitialPositions = a.positions()

	cycleLogger.Info().Int("cycleNumber", snapshot.CycleNumber).Msg("--- Starting AVM Cycle ---")

	err := a.cycle(ctx, now, &snapshot, cycleLogger)

	snapshot.FinalValue = a.vault.Value().Value
	snapshot.FinalIdle = a.ledger.ReserveBalance()
	snapshot.FinalPositions = a.positions()
	snapshot.Success = err == nil
	if err != nil {
		snapshot.Error = err.Error()
	}
	snapshot.Duration = time.Since(start).Seconds()

	a.record(snapshot, cycleLogger)
	a.lastSlot = now

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.Cycles.WithLabelValues(status).Inc()
	metrics.CycleDuration.Observe(snapshot.Duration)

	cycleLogger.Info().
		Bool("success", snapshot.Success).
		Uint64("finalValue", snapshot.FinalValue).
		Uint64("finalIdle", snapshot.FinalIdle).
		Float64("durationSeconds", snapshot.Duration).
		Msg("--- AVM Cycle Complete ---")
	return snapshot, err
}

func (a *AVM) cycle(ctx context.Context, now uint64, snapshot *types.CycleSnapshot, cycleLogger zerolog.Logger) error {
	markets, err := a.enabledMarkets()
	if err != nil {
		return err
	}

	// --- Step 1: Refresh ---
	cycleLogger.Info().Int("sources", len(markets)).Msg("Step 1: Refreshing yield sources...")
	for _, m := range markets {
		err := a.vault.Refresh(ctx, m, now)
		metrics.ObserveOperation("refresh", err)
		if err != nil {
			return fmt.Errorf("refresh %s: %w", m.Provider(), err)
		}
	}

	// --- Step 2: Consolidate ---
	fees, err := a.vault.Consolidate(a.ledger, now)
	metrics.ObserveOperation("consolidate", err)
	if err != nil {
		return fmt.Errorf("consolidate: %w", err)
	}
	snapshot.ConsolidatedValue = a.vault.Value().Value
	snapshot.AccruedFees = fees.Total
	metrics.VaultValue.Set(float64(snapshot.ConsolidatedValue))
	metrics.AccruedFees.Add(float64(fees.Total))
	cycleLogger.Info().
		Uint64("value", snapshot.ConsolidatedValue).
		Uint64("fees", fees.Total).
		Msg("Step 2: Vault value consolidated.")

	// --- Step 3: Rebalance ---
	weights, err := a.rebalance(markets, now, cycleLogger)
	metrics.ObserveOperation("rebalance", err)
	if err != nil {
		return fmt.Errorf("rebalance: %w", err)
	}
	snapshot.TargetWeights = make(map[string]types.Rate, len(markets))
	for _, m := range markets {
		p := m.Provider()
		snapshot.TargetWeights[p.String()] = weights[p]
		metrics.TargetWeight.WithLabelValues(p.String()).Set(weightFloat(weights[p]))
	}
	snapshot.TargetAllocations = a.vault.TargetAllocations().Values(a.vault.YieldSourceFlags())
	if apr, err := a.projectedAPR(markets, weights); err != nil {
		cycleLogger.Warn().Err(err).Msg("Failed to project APR")
	} else {
		snapshot.ProjectedAPR = apr
	}
	cycleLogger.Info().Interface("targets", snapshot.TargetAllocations).Msg("Step 3: Target allocations set.")

	// --- Step 4: Reconcile ---
	// Sources above target are drained first so deposits can draw on the freed reserve.
	var failed error
	for _, m := range a.reconcileOrder(markets) {
		action, err := a.vault.Reconcile(ctx, m, 0, now)
		metrics.ObserveOperation("reconcile", err)
		receipt := types.ActionReceipt{
			Action:    action,
			Success:   err == nil,
			Slot:      now,
			Timestamp: time.Now(),
		}
		if err != nil {
			receipt.Action = types.Action{Type: types.ActionNoOp, Provider: m.Provider()}
			receipt.Message = err.Error()
			failed = errors.Join(failed, fmt.Errorf("reconcile %s: %w", m.Provider(), err))
			cycleLogger.Error().Err(err).Str("provider", m.Provider().String()).Msg("Reconcile failed")
		}
		snapshot.ActionReceipts = append(snapshot.ActionReceipts, receipt)
	}
	cycleLogger.Info().Int("actions", len(snapshot.ActionReceipts)).Msg("Step 4: Reconcile complete.")
	return failed
}

// rebalance computes targets. In proof-checker mode the keeper proposes the configured
// strategy's weights and falls back to a max-yield proposal if the proof rejects them.
func (a *AVM) rebalance(markets []lending.Market, now uint64, cycleLogger zerolog.Logger) (analyzer.Weights, error) {
	cfg := a.vault.Config()
	if cfg.RebalanceMode() == types.RebalanceModeCalculator {
		return a.vault.Rebalance(markets, nil, now)
	}

	sources := a.sources(markets)
	proposal, err := analyzer.CalculateWeights(cfg.StrategyType(), sources, cfg.AllocationCap())
	if err != nil {
		return analyzer.Weights{}, err
	}
	weights, err := a.vault.Rebalance(markets, &proposal, now)
	if !errors.Is(err, types.ErrRebalanceProofCheckFailed) || cfg.StrategyType() == types.StrategyMaxYield {
		return weights, err
	}

	cycleLogger.Warn().Str("strategy", cfg.StrategyType().String()).Msg("Proposal rejected by proof check, proposing max yield")
	proposal, err = analyzer.MaxYield(sources, cfg.AllocationCap())
	if err != nil {
		return analyzer.Weights{}, err
	}
	return a.vault.Rebalance(markets, &proposal, now)
}

func (a *AVM) sources(markets []lending.Market) []analyzer.Source {
	actual := a.vault.ActualAllocations()
	sources := make([]analyzer.Source, 0, len(markets))
	for _, m := range markets {
		sources = append(sources, analyzer.Source{
			Provider:   m.Provider(),
			Returns:    m.ReturnCalculator(),
			Allocation: actual[m.Provider()].Value,
		})
	}
	return sources
}

func (a *AVM) projectedAPR(markets []lending.Market, w analyzer.Weights) (types.Rate, error) {
	return analyzer.BlendedAPR(w, a.sources(markets), a.vault.Value().Value)
}

func (a *AVM) reconcileOrder(markets []lending.Market) []lending.Market {
	target, actual := a.vault.TargetAllocations(), a.vault.ActualAllocations()
	ordered := make([]lending.Market, 0, len(markets))
	var deposits []lending.Market
	for _, m := range markets {
		p := m.Provider()
		if target[p].Value < actual[p].Value {
			ordered = append(ordered, m)
		} else {
			deposits = append(deposits, m)
		}
	}
	return append(ordered, deposits...)
}

func (a *AVM) enabledMarkets() ([]lending.Market, error) {
	enabled := a.vault.YieldSourceFlags().EnabledProviders()
	markets := make([]lending.Market, 0, len(enabled))
	for _, p := range enabled {
		m, err := a.registry.Get(p)
		if err != nil {
			return nil, err
		}
		markets = append(markets, m)
	}
	return markets, nil
}

func (a *AVM) positions() []types.Position {
	target := a.vault.TargetAllocations()
	var positions []types.Position
	for _, p := range a.vault.YieldSourceFlags().EnabledProviders() {
		m, err := a.registry.Get(p)
		if err != nil {
			continue
		}
		shares := m.SharesBalance()
		value, err := m.ConvertSharesToReserve(shares)
		if err != nil {
			a.logger.Warn().Err(err).Str("provider", p.String()).Msg("Failed to value position")
		}
		positions = append(positions, types.Position{
			Provider:     p,
			Shares:       shares,
			ReserveValue: value,
			Target:       target[p].Value,
		})
		metrics.Allocation.WithLabelValues(p.String(), "actual").Set(float64(value))
		metrics.Allocation.WithLabelValues(p.String(), "target").Set(float64(target[p].Value))
	}
	metrics.IdleReserve.Set(float64(a.ledger.ReserveBalance()))
	return positions
}

func (a *AVM) nextCycleNumber() int {
	a.cycleCount++
	if a.store == nil {
		return a.cycleCount
	}
	n, err := a.store.NextCycleNumber()
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to increment cycle number, using fallback")
		return a.cycleCount
	}
	return n
}

func (a *AVM) record(snapshot types.CycleSnapshot, cycleLogger zerolog.Logger) {
	a.recent = append(a.recent, snapshot)
	if len(a.recent) > maxRecentSnapshots {
		a.recent = a.recent[len(a.recent)-maxRecentSnapshots:]
	}
	if a.store == nil {
		return
	}
	if id, err := a.store.SaveCycleSnapshot(snapshot); err != nil {
		cycleLogger.Error().Err(err).Msg("Failed to save cycle snapshot to database")
	} else {
		cycleLogger.Debug().Int64("snapshot_id", id).Msg("Cycle snapshot saved")
	}
	if _, err := a.store.SaveVault(a.vault); err != nil {
		cycleLogger.Error().Err(err).Msg("Failed to save vault record")
	}
}

// Deposit serializes a user deposit with the keeper cycle.
func (a *AVM) Deposit(user solana.PublicKey, amount uint64) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	shares, err := a.vault.Deposit(a.ledger, user, amount, a.slots.CurrentSlot())
	metrics.ObserveOperation("deposit", err)
	return shares, err
}

// Withdraw serializes a user withdrawal with the keeper cycle.
func (a *AVM) Withdraw(user solana.PublicKey, shares uint64) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	amount, err := a.vault.Withdraw(a.ledger, user, shares, a.slots.CurrentSlot())
	metrics.ObserveOperation("withdraw", err)
	return amount, err
}

// Status is a point-in-time view of the vault for readers outside the keeper.
type Status struct {
	Handles          vault.Handles          `json:"-"`
	LpTokenMint      string                 `json:"lp_token_mint"`
	Slot             uint64                 `json:"slot"`
	LastCycleSlot    uint64                 `json:"last_cycle_slot"`
	Value            types.SlotTrackedValue `json:"value"`
	IdleReserve      uint64                 `json:"idle_reserve"`
	TotalShares      uint64                 `json:"total_shares"`
	HaltFlags        types.HaltFlags        `json:"halt_flags"`
	YieldSources     []string               `json:"yield_sources"`
	Parameters       vault.VaultParameters  `json:"parameters"`
	Positions        []types.Position       `json:"positions"`
	TargetAllocation map[string]uint64      `json:"target_allocations"`
	ActualAllocation map[string]uint64      `json:"actual_allocations"`
}

func (a *AVM) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	flags := a.vault.YieldSourceFlags()
	names := make([]string, 0, flags.Count())
	for _, p := range flags.EnabledProviders() {
		names = append(names, p.String())
	}
	h := a.vault.Handles()
	return Status{
		Handles:          h,
		LpTokenMint:      h.LpTokenMint.String(),
		Slot:             a.slots.CurrentSlot(),
		LastCycleSlot:    a.lastSlot,
		Value:            a.vault.Value(),
		IdleReserve:      a.ledger.ReserveBalance(),
		TotalShares:      a.ledger.TotalShares(),
		HaltFlags:        a.vault.HaltFlags(),
		YieldSources:     names,
		Parameters:       a.vault.Config().Parameters(),
		Positions:        a.positions(),
		TargetAllocation: a.vault.TargetAllocations().Values(flags),
		ActualAllocation: a.vault.ActualAllocations().Values(flags),
	}
}

// RecentSnapshots returns up to limit in-memory cycle snapshots, newest first.
func (a *AVM) RecentSnapshots(limit int) []types.CycleSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	if limit <= 0 || limit > len(a.recent) {
		limit = len(a.recent)
	}
	out := make([]types.CycleSnapshot, 0, limit)
	for i := len(a.recent) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, a.recent[i])
	}
	return out
}

func weightFloat(r types.Rate) float64 {
	f, err := utils.RateToFloat64(r)
	if err != nil {
		return 0
	}
	return f
}
