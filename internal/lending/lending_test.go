package lending

import (
	"context"
	"errors"
	"testing"

	"github.com/elys-network/yieldvault/internal/types"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAccount struct {
	balance uint64
}

func (a *testAccount) ReserveBalance() uint64 { return a.balance }

func (a *testAccount) DebitReserve(amount uint64) error {
	if amount > a.balance {
		return types.ErrInsufficientLiquidity
	}
	a.balance -= amount
	return nil
}

func (a *testAccount) CreditReserve(amount uint64) error {
	a.balance += amount
	return nil
}

func testCurve() KinkedCurve {
	return KinkedCurve{
		OptimalUtilization: types.RateFromPercent(80),
		MinRate:            types.ZeroRate(),
		OptimalRate:        types.RateFromPercent(10),
		MaxRate:            types.RateFromPercent(100),
	}
}

func halfBorrowedReserve(t *testing.T) *Reserve {
	t.Helper()
	r, err := NewReserve(ReserveState{
		AvailableLiquidity: 500_000,
		BorrowedAmount:     500_000,
		CollateralSupply:   1_000_000,
	}, testCurve())
	require.NoError(t, err)
	return r
}

func TestKinkedCurve(t *testing.T) {
	c := testCurve()
	require.NoError(t, c.Validate())

	tests := []struct {
		util string
		want types.Rate
	}{
		{"zero", types.ZeroRate()},
		{"half", types.RateFromBips(625)},
		{"optimal", types.RateFromPercent(10)},
		{"ninety", types.RateFromPercent(55)},
		{"full", types.RateFromPercent(100)},
	}
	utilizations := map[string]types.Rate{
		"zero":    types.ZeroRate(),
		"half":    types.RateFromPercent(50),
		"optimal": types.RateFromPercent(80),
		"ninety":  types.RateFromPercent(90),
		"full":    types.OneRate(),
	}
	for _, tt := range tests {
		got, err := c.BorrowRate(utilizations[tt.util])
		require.NoError(t, err)
		assert.True(t, tt.want.Equal(got), "%s: want %s got %s", tt.util, tt.want, got)
	}

	bad := c
	bad.MinRate = types.RateFromPercent(20)
	assert.True(t, errors.Is(bad.Validate(), types.ErrTryFromReserveError))
}

func TestSegmentedCurve(t *testing.T) {
	c := SegmentedCurve{
		Utilization1: types.RateFromPercent(50),
		Utilization2: types.RateFromPercent(90),
		Rate0:        types.ZeroRate(),
		Rate1:        types.RateFromPercent(4),
		Rate2:        types.RateFromPercent(20),
		Rate3:        types.RateFromPercent(200),
	}
	require.NoError(t, c.Validate())

	got, err := c.BorrowRate(types.RateFromPercent(70))
	require.NoError(t, err)
	assert.True(t, types.RateFromPercent(12).Equal(got), "got %s", got)

	got, err = c.BorrowRate(types.OneRate())
	require.NoError(t, err)
	assert.True(t, types.RateFromPercent(200).Equal(got))
}

func TestReserveConversionsRoundDown(t *testing.T) {
	r, err := NewReserve(ReserveState{AvailableLiquidity: 1_000, BorrowedAmount: 500, CollateralSupply: 1_000}, testCurve())
	require.NoError(t, err)

	shares, err := r.ReserveToCollateral(100)
	require.NoError(t, err)
	assert.Equal(t, uint64(66), shares)

	amount, err := r.CollateralToReserve(shares)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), amount)

	empty, err := NewReserve(ReserveState{}, testCurve())
	require.NoError(t, err)
	shares, err = empty.ReserveToCollateral(1_000)
	require.NoError(t, err)
	assert.Equal(t, 1_000*types.InitialCollateralRatio, shares)
}

func TestReserveAccrue(t *testing.T) {
	r := halfBorrowedReserve(t)
	require.NoError(t, r.Accrue(types.SlotsPerYear))
	assert.Equal(t, uint64(531_250), r.State().BorrowedAmount)

	err := r.Accrue(1)
	assert.True(t, errors.Is(err, types.ErrMathError))
}

func TestCalculateReturn(t *testing.T) {
	calc := halfBorrowedReserve(t).ReturnCalculator()

	current, err := calc.CalculateReturn(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "0.031250000000000000", current.String())

	diluted, err := calc.CalculateReturn(500_000, 0)
	require.NoError(t, err)
	assert.True(t, diluted.LT(current), "more supply lowers utilization and return")

	_, err = calc.CalculateReturn(0, 2_000_000)
	assert.True(t, errors.Is(err, types.ErrMathError))
}

func TestMarketDepositRedeem(t *testing.T) {
	ctx := context.Background()
	account := &testAccount{balance: 10_000}
	m, err := NewSolendMarket(solana.NewWallet().PublicKey(), halfBorrowedReserve(t), account, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, m.Deposit(ctx, 4_000))
	assert.Equal(t, uint64(6_000), m.ReserveBalance())
	assert.Equal(t, uint64(4_000), m.SharesBalance())

	value, err := m.ConvertSharesToReserve(m.SharesBalance())
	require.NoError(t, err)
	assert.Equal(t, uint64(4_000), value)

	require.NoError(t, m.Redeem(ctx, 1_000))
	assert.Equal(t, uint64(7_000), account.balance)
	assert.Equal(t, uint64(3_000), m.SharesBalance())

	err = m.Redeem(ctx, 5_000)
	assert.True(t, errors.Is(err, types.ErrInsufficientLiquidity))
	assert.Equal(t, uint64(3_000), m.SharesBalance())

	err = m.Deposit(ctx, 1_000_000)
	assert.Error(t, err)
	assert.Equal(t, uint64(7_000), account.balance)
}

func TestPortRejectsDustDeposit(t *testing.T) {
	r, err := NewReserve(ReserveState{AvailableLiquidity: 10, BorrowedAmount: 10, CollateralSupply: 1}, testCurve())
	require.NoError(t, err)
	m, err := NewPortMarket(solana.NewWallet().PublicKey(), r, &testAccount{balance: 100}, zerolog.Nop())
	require.NoError(t, err)

	err = m.Deposit(context.Background(), 5)
	assert.True(t, errors.Is(err, types.ErrMathError))
}

func TestJetRedeemBurnsNotesForTokens(t *testing.T) {
	ctx := context.Background()
	account := &testAccount{balance: 1_000}
	m, err := NewJetMarket(solana.NewWallet().PublicKey(), halfBorrowedReserve(t), account, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, m.Deposit(ctx, 1_000))
	require.NoError(t, m.Redeem(ctx, 400))
	assert.Equal(t, uint64(600), m.SharesBalance())
	assert.Equal(t, uint64(400), account.balance)
}

func TestRegistry(t *testing.T) {
	account := &testAccount{}
	solend, err := NewSolendMarket(solana.NewWallet().PublicKey(), halfBorrowedReserve(t), account, zerolog.Nop())
	require.NoError(t, err)

	reg, err := NewRegistry(solend)
	require.NoError(t, err)

	got, err := reg.Get(types.ProviderSolend)
	require.NoError(t, err)
	assert.Equal(t, types.ProviderSolend, got.Provider())

	_, err = reg.Get(types.ProviderJet)
	assert.True(t, errors.Is(err, types.ErrInsufficientAccounts))

	assert.True(t, errors.Is(reg.Register(solend), types.ErrInvalidAccount))
	assert.Len(t, reg.Markets(), 1)
}

func TestNewMarketRequiresAddress(t *testing.T) {
	_, err := NewJetMarket(solana.PublicKey{}, halfBorrowedReserve(t), &testAccount{}, zerolog.Nop())
	assert.True(t, errors.Is(err, types.ErrInvalidAccount))
}
