package vault

import (
	"github.com/elys-network/yieldvault/internal/types"
	"github.com/elys-network/yieldvault/internal/utils"
)

const bpsDenominator = 10_000

// Fees is the fee accrued between the vault's last valuation and a new one.
type Fees struct {
	Carry      uint64 `json:"carry"`
	Management uint64 `json:"management"`
	Total      uint64 `json:"total"`
}

// CalculateFees derives carry on value growth and management on assets over the elapsed slots.
// It does not mutate the vault.
func (v *Vault) CalculateFees(newValue, now uint64) (Fees, error) {
	var diff uint64
	if newValue > v.value.Value {
		diff = newValue - v.value.Value
	}
	elapsed, err := v.value.LastUpdate.SlotsElapsed(now)
	if err != nil {
		return Fees{}, err
	}

	carry, err := utils.MulDiv(diff, uint64(v.config.FeeCarryBps()), bpsDenominator)
	if err != nil {
		return Fees{}, err
	}
	mgmt, err := utils.MulDivChain(newValue, uint64(v.config.FeeMgmtBps()), elapsed, bpsDenominator, types.SlotsPerYear)
	if err != nil {
		return Fees{}, err
	}
	total, err := utils.CheckedAdd(carry, mgmt)
	if err != nil {
		return Fees{}, err
	}
	return Fees{Carry: carry, Management: mgmt, Total: total}, nil
}

// SplitFees divides total between the primary and referral receivers, rounding the referral
// part down.
func SplitFees(total uint64, referralFeePct uint8) (primary, referral uint64, err error) {
	if referralFeePct > maxReferralFeePct {
		return 0, 0, types.ErrInvalidReferralFeeConfig
	}
	referral, err = utils.MulDiv(total, uint64(referralFeePct), 100)
	if err != nil {
		return 0, 0, err
	}
	return total - referral, referral, nil
}
