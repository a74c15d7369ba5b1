package vault

import (
	"context"
	"testing"

	"github.com/elys-network/yieldvault/internal/lending"
	"github.com/elys-network/yieldvault/internal/types"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testParams() VaultParameters {
	return VaultParameters{
		DepositCap:       1_000_000_000_000,
		FeeCarryBps:      1_000,
		FeeMgmtBps:       200,
		ReferralFeePct:   20,
		AllocationCapPct: 60,
		RebalanceMode:    types.RebalanceModeCalculator,
		StrategyType:     types.StrategyMaxYield,
	}
}

func testHandles() Handles {
	return Handles{
		Owner:               solana.NewWallet().PublicKey(),
		VaultAuthority:      solana.NewWallet().PublicKey(),
		ReserveMint:         solana.NewWallet().PublicKey(),
		VaultReserveAccount: solana.NewWallet().PublicKey(),
		LpTokenMint:         solana.NewWallet().PublicKey(),
		FeeReceiver:         solana.NewWallet().PublicKey(),
		ReferralFeeReceiver: solana.NewWallet().PublicKey(),
	}
}

type fixture struct {
	vault   *Vault
	ledger  *MemoryLedger
	solend  lending.Market
	port    lending.Market
	markets []lending.Market
}

func testCurve() lending.KinkedCurve {
	return lending.KinkedCurve{
		OptimalUtilization: types.RateFromPercent(80),
		MinRate:            types.ZeroRate(),
		OptimalRate:        types.RateFromPercent(10),
		MaxRate:            types.RateFromPercent(100),
	}
}

// newFixture builds a vault with Solend (50% utilized) and Port (20% utilized) attached.
func newFixture(t *testing.T, params VaultParameters) *fixture {
	t.Helper()
	v, err := NewVault(testHandles(), params, 0)
	require.NoError(t, err)
	ledger := NewMemoryLedger()

	solendReserve, err := lending.NewReserve(lending.ReserveState{
		AvailableLiquidity: 1_000_000,
		BorrowedAmount:     1_000_000,
		CollateralSupply:   2_000_000,
	}, testCurve())
	require.NoError(t, err)
	portReserve, err := lending.NewReserve(lending.ReserveState{
		AvailableLiquidity: 1_600_000,
		BorrowedAmount:     400_000,
		CollateralSupply:   2_000_000,
	}, testCurve())
	require.NoError(t, err)

	solend, err := lending.NewSolendMarket(solana.NewWallet().PublicKey(), solendReserve, ledger, zerolog.Nop())
	require.NoError(t, err)
	port, err := lending.NewPortMarket(solana.NewWallet().PublicKey(), portReserve, ledger, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, v.AttachYieldSource(types.ProviderSolend, solend.Address()))
	require.NoError(t, v.AttachYieldSource(types.ProviderPort, port.Address()))

	return &fixture{
		vault:   v,
		ledger:  ledger,
		solend:  solend,
		port:    port,
		markets: []lending.Market{solend, port},
	}
}

// refreshAll refreshes every market and consolidates at slot.
func (f *fixture) refreshAll(t *testing.T, slot uint64) Fees {
	t.Helper()
	for _, m := range f.markets {
		require.NoError(t, f.vault.Refresh(context.Background(), m, slot))
	}
	fees, err := f.vault.Consolidate(f.ledger, slot)
	require.NoError(t, err)
	return fees
}

func (f *fixture) fundedUser(t *testing.T, amount uint64) solana.PublicKey {
	t.Helper()
	user := solana.NewWallet().PublicKey()
	require.NoError(t, f.ledger.Fund(user, amount))
	return user
}
