package lending

import (
	"context"
	"fmt"
	"sync"

	"github.com/elys-network/yieldvault/internal/types"
	"github.com/elys-network/yieldvault/internal/utils"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

// venue carries what every adapter shares: the reserve, the vault's idle account and the
// collateral the vault holds.
type venue struct {
	provider types.Provider
	address  solana.PublicKey
	reserve  *Reserve
	account  ReserveAccount
	logger   zerolog.Logger

	mu     sync.RWMutex
	shares uint64
}

func newVenue(provider types.Provider, address solana.PublicKey, reserve *Reserve, account ReserveAccount, logger zerolog.Logger) (*venue, error) {
	if reserve == nil || account == nil {
		return nil, fmt.Errorf("%w: %s market needs a reserve and a vault account", types.ErrInsufficientAccounts, provider)
	}
	if address.IsZero() {
		return nil, fmt.Errorf("%w: %s market has no address", types.ErrInvalidAccount, provider)
	}
	return &venue{
		provider: provider,
		address:  address,
		reserve:  reserve,
		account:  account,
		logger:   logger.With().Str("provider", provider.String()).Logger(),
	}, nil
}

func (v *venue) Provider() types.Provider           { return v.provider }
func (v *venue) Address() solana.PublicKey          { return v.address }
func (v *venue) Reserve() *Reserve                  { return v.reserve }
func (v *venue) ReserveBalance() uint64             { return v.account.ReserveBalance() }
func (v *venue) ReturnCalculator() ReturnCalculator { return v.reserve.ReturnCalculator() }

func (v *venue) SharesBalance() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.shares
}

func (v *venue) Refresh(ctx context.Context, slot uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return v.reserve.Accrue(slot)
}

func (v *venue) ConvertReserveToShares(amount uint64) (uint64, error) {
	return v.reserve.ReserveToCollateral(amount)
}

func (v *venue) ConvertSharesToReserve(shares uint64) (uint64, error) {
	return v.reserve.CollateralToReserve(shares)
}

func (v *venue) UtilizationRate() (types.Rate, error) { return v.reserve.UtilizationRate() }
func (v *venue) BorrowRate() (types.Rate, error)      { return v.reserve.BorrowRate() }

// supply moves idle reserve into the venue and credits the minted collateral to the vault.
func (v *venue) supply(ctx context.Context, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}
	if err := v.account.DebitReserve(amount); err != nil {
		return err
	}
	minted, err := v.reserve.Supply(amount)
	if err != nil {
		if rerr := v.account.CreditReserve(amount); rerr != nil {
			v.logger.Error().Err(rerr).Uint64("amount", amount).Msg("Failed to return reserve after rejected supply")
		}
		return err
	}

	v.mu.Lock()
	held, err := utils.CheckedAdd(v.shares, minted)
	if err == nil {
		v.shares = held
	}
	v.mu.Unlock()
	if err != nil {
		return err
	}

	v.logger.Debug().Uint64("amount", amount).Uint64("shares", minted).Msg("Supplied reserve to venue")
	return nil
}

// withdraw burns vault collateral and credits the released reserve to the idle account.
func (v *venue) withdraw(ctx context.Context, shares uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if shares == 0 {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if shares > v.shares {
		return fmt.Errorf("%w: redeem of %d shares exceeds %d held", types.ErrInsufficientLiquidity, shares, v.shares)
	}
	amount, err := v.reserve.Withdraw(shares)
	if err != nil {
		return err
	}
	if err := v.account.CreditReserve(amount); err != nil {
		return err
	}
	v.shares -= shares

	v.logger.Debug().Uint64("shares", shares).Uint64("amount", amount).Msg("Redeemed collateral from venue")
	return nil
}
