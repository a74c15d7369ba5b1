package avm

import (
	"context"
	"testing"
	"time"

	"github.com/elys-network/yieldvault/internal/lending"
	"github.com/elys-network/yieldvault/internal/types"
	"github.com/elys-network/yieldvault/internal/vault"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	cycles    int
	snapshots []types.CycleSnapshot
	records   [][]byte
}

func (s *memStore) NextCycleNumber() (int, error) {
	s.cycles++
	return s.cycles, nil
}

func (s *memStore) SaveCycleSnapshot(snapshot types.CycleSnapshot) (int64, error) {
	s.snapshots = append(s.snapshots, snapshot)
	return int64(len(s.snapshots)), nil
}

func (s *memStore) SaveVault(v vault.Manager) (int64, error) {
	data, err := v.Encode()
	if err != nil {
		return 0, err
	}
	s.records = append(s.records, data)
	return int64(len(s.records)), nil
}

type keeperFixture struct {
	avm    *AVM
	vault  *vault.Vault
	ledger *vault.MemoryLedger
	store  *memStore
	slot   uint64
}

func testParams() vault.VaultParameters {
	return vault.VaultParameters{
		DepositCap:       1_000_000_000_000,
		FeeCarryBps:      1_000,
		FeeMgmtBps:       200,
		ReferralFeePct:   20,
		AllocationCapPct: 60,
		RebalanceMode:    types.RebalanceModeCalculator,
		StrategyType:     types.StrategyMaxYield,
	}
}

func newKeeperFixture(t *testing.T, params vault.VaultParameters) *keeperFixture {
	t.Helper()
	handles := vault.Handles{
		Owner:               solana.NewWallet().PublicKey(),
		VaultReserveAccount: solana.NewWallet().PublicKey(),
		LpTokenMint:         solana.NewWallet().PublicKey(),
	}
	v, err := vault.NewVault(handles, params, 0)
	require.NoError(t, err)
	ledger := vault.NewMemoryLedger()

	curve := lending.KinkedCurve{
		OptimalUtilization: types.RateFromPercent(80),
		MinRate:            types.ZeroRate(),
		OptimalRate:        types.RateFromPercent(10),
		MaxRate:            types.RateFromPercent(100),
	}
	solendReserve, err := lending.NewReserve(lending.ReserveState{
		AvailableLiquidity: 1_000_000, BorrowedAmount: 1_000_000, CollateralSupply: 2_000_000,
	}, curve)
	require.NoError(t, err)
	portReserve, err := lending.NewReserve(lending.ReserveState{
		AvailableLiquidity: 1_600_000, BorrowedAmount: 400_000, CollateralSupply: 2_000_000,
	}, curve)
	require.NoError(t, err)

	solend, err := lending.NewSolendMarket(solana.NewWallet().PublicKey(), solendReserve, ledger, zerolog.Nop())
	require.NoError(t, err)
	port, err := lending.NewPortMarket(solana.NewWallet().PublicKey(), portReserve, ledger, zerolog.Nop())
	require.NoError(t, err)
	registry, err := lending.NewRegistry(solend, port)
	require.NoError(t, err)
	require.NoError(t, v.AttachYieldSource(types.ProviderSolend, solend.Address()))
	require.NoError(t, v.AttachYieldSource(types.ProviderPort, port.Address()))

	f := &keeperFixture{vault: v, ledger: ledger, store: &memStore{}, slot: 1}
	f.avm, err = NewAVM(Config{
		Vault:    v,
		Ledger:   ledger,
		Registry: registry,
		Slots:    SlotFunc(func() uint64 { return f.slot }),
		Store:    f.store,
	})
	require.NoError(t, err)
	return f
}

func TestNewAVMValidatesConfig(t *testing.T) {
	_, err := NewAVM(Config{})
	assert.Error(t, err)
}

func TestRunCycleConvergesDeposits(t *testing.T) {
	f := newKeeperFixture(t, testParams())
	ctx := context.Background()

	// An empty vault still completes a cycle and becomes fresh.
	snapshot, err := f.avm.RunCycle(ctx)
	require.NoError(t, err)
	assert.True(t, snapshot.Success)
	assert.Equal(t, 1, snapshot.CycleNumber)
	assert.Zero(t, snapshot.ConsolidatedValue)

	user := solana.NewWallet().PublicKey()
	require.NoError(t, f.ledger.Fund(user, 1_000_000))
	shares, err := f.avm.Deposit(user, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), shares)

	f.slot = 2
	snapshot, err = f.avm.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), snapshot.ConsolidatedValue)
	assert.Equal(t, map[string]uint64{"solend": 600_000, "port": 400_000}, snapshot.TargetAllocations)
	require.Len(t, snapshot.ActionReceipts, 2)
	assert.Equal(t, types.Action{Type: types.ActionDeposit, Provider: types.ProviderSolend, Amount: 600_000}, snapshot.ActionReceipts[0].Action)
	assert.Equal(t, types.Action{Type: types.ActionDeposit, Provider: types.ProviderPort, Amount: 400_000}, snapshot.ActionReceipts[1].Action)
	assert.Zero(t, snapshot.FinalIdle)
	assert.True(t, snapshot.ProjectedAPR.GT(types.ZeroRate()))

	require.Len(t, snapshot.FinalPositions, 2)
	assert.Equal(t, uint64(600_000), snapshot.FinalPositions[0].ReserveValue)

	// Both cycles were persisted.
	assert.Len(t, f.store.snapshots, 2)
	require.Len(t, f.store.records, 2)
	restored, err := vault.DecodeVault(f.store.records[1])
	require.NoError(t, err)
	assert.Equal(t, f.vault.Value(), restored.Value())

	recent := f.avm.RecentSnapshots(1)
	require.Len(t, recent, 1)
	assert.Equal(t, snapshot.CycleID, recent[0].CycleID)
}

func TestRunCycleRecordsFailure(t *testing.T) {
	f := newKeeperFixture(t, testParams())
	require.NoError(t, f.vault.SetHaltFlags(uint16(types.HaltRefreshes)))

	snapshot, err := f.avm.RunCycle(context.Background())
	assert.ErrorIs(t, err, types.ErrHaltedVault)
	assert.False(t, snapshot.Success)
	assert.NotEmpty(t, snapshot.Error)
	assert.Len(t, f.store.snapshots, 1)
}

func TestRunCycleProofCheckerFallsBackToMaxYield(t *testing.T) {
	params := testParams()
	params.RebalanceMode = types.RebalanceModeProofChecker
	params.StrategyType = types.StrategyEqualAllocation
	f := newKeeperFixture(t, params)
	ctx := context.Background()

	_, err := f.avm.RunCycle(ctx)
	require.NoError(t, err)
	user := solana.NewWallet().PublicKey()
	require.NoError(t, f.ledger.Fund(user, 1_000_000))
	_, err = f.avm.Deposit(user, 1_000_000)
	require.NoError(t, err)

	f.slot = 2
	snapshot, err := f.avm.RunCycle(ctx)
	require.NoError(t, err)
	assert.True(t, snapshot.TargetWeights["solend"].Equal(types.RateFromPercent(60)))
	assert.Equal(t, uint64(600_000), snapshot.TargetAllocations["solend"])
}

func TestStatus(t *testing.T) {
	f := newKeeperFixture(t, testParams())
	_, err := f.avm.RunCycle(context.Background())
	require.NoError(t, err)

	status := f.avm.Status()
	assert.Equal(t, uint64(1), status.LastCycleSlot)
	assert.Equal(t, []string{"solend", "port"}, status.YieldSources)
	assert.Equal(t, uint8(60), status.Parameters.AllocationCapPct)
	assert.Len(t, status.Positions, 2)
}

func TestWallClock(t *testing.T) {
	assert.Zero(t, WallClock{}.CurrentSlot())
}

type countingJob struct{ runs int }

func (j *countingJob) Run() error   { j.runs++; return nil }
func (j *countingJob) Name() string { return "counting" }

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(zerolog.Nop())
	assert.Error(t, s.AddJob("not a schedule", &countingJob{}))
	assert.NoError(t, s.AddJob("@every 1h", &countingJob{}))
	s.Start()
	s.Stop()
}

func TestKeeperIsAJob(t *testing.T) {
	f := newKeeperFixture(t, testParams())
	var job Job = f.avm
	assert.Equal(t, "keeper_cycle", job.Name())
	assert.NoError(t, job.Run())
}

func TestWithdrawThroughKeeper(t *testing.T) {
	f := newKeeperFixture(t, testParams())
	ctx := context.Background()
	_, err := f.avm.RunCycle(ctx)
	require.NoError(t, err)

	user := solana.NewWallet().PublicKey()
	require.NoError(t, f.ledger.Fund(user, 1_000_000))
	_, err = f.avm.Deposit(user, 1_000_000)
	require.NoError(t, err)

	// Idle reserve still holds the deposit until the next cycle reconciles it.
	amount, err := f.avm.Withdraw(user, 400_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(400_000), amount)
	assert.Equal(t, uint64(400_000), f.ledger.TokenBalance(user))

	f.slot = 2
	_, err = f.avm.RunCycle(ctx)
	require.NoError(t, err)
	_, err = f.avm.Withdraw(user, 1)
	assert.ErrorIs(t, err, types.ErrInsufficientLiquidity)
}

func TestRunLoopStopsOnCancel(t *testing.T) {
	f := newKeeperFixture(t, testParams())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		f.avm.RunLoop(ctx, time.Hour)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("RunLoop did not return after cancellation")
	}
	assert.Len(t, f.store.snapshots, 1)
}
