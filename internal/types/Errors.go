/*

This file contains the error catalog shared by every vault operation. Each error carries a stable
numeric code so callers can report a single code per failed operation.

*/

package types

import (
	"errors"
	"fmt"
)

// VaultError is a sentinel failure of a vault operation.
type VaultError struct {
	Code uint32
	Name string
	Msg  string
}

func (e *VaultError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Msg)
}

func newVaultError(code uint32, name, msg string) *VaultError {
	return &VaultError{Code: code, Name: name, Msg: msg}
}

var (
	// Arithmetic
	ErrMathError     = newVaultError(6000, "MathError", "checked arithmetic failed")
	ErrOverflowError = newVaultError(6001, "OverflowError", "arithmetic overflow")

	// Staleness
	ErrVaultIsNotRefreshed    = newVaultError(6010, "VaultIsNotRefreshed", "vault value is stale, consolidate first")
	ErrAllocationIsNotUpdated = newVaultError(6011, "AllocationIsNotUpdated", "allocation was not updated recently enough")

	// Policy / validation
	ErrInvalidFeeConfig          = newVaultError(6020, "InvalidFeeConfig", "fee rate exceeds 100%")
	ErrInvalidReferralFeeConfig  = newVaultError(6021, "InvalidReferralFeeConfig", "referral fee exceeds 50%")
	ErrInvalidAllocationCap      = newVaultError(6022, "InvalidAllocationCap", "allocation cap out of range")
	ErrInvalidVaultFlags         = newVaultError(6023, "InvalidVaultFlags", "unknown flag bits")
	ErrInvalidProposedWeights    = newVaultError(6024, "InvalidProposedWeights", "proposed weights are invalid")
	ErrRebalanceProofCheckFailed = newVaultError(6025, "RebalanceProofCheckFailed", "proposed allocation yields less than the proof")
	ErrDepositCapError           = newVaultError(6026, "DepositCapError", "deposit exceeds vault cap")
	ErrStrategyError             = newVaultError(6027, "StrategyError", "strategy could not produce valid weights")

	// Integrity
	ErrInvalidAccount        = newVaultError(6030, "InvalidAccount", "account does not match vault state")
	ErrInsufficientAccounts  = newVaultError(6031, "InsufficientAccounts", "missing account for enabled yield source")
	ErrTryFromReserveError   = newVaultError(6032, "TryFromReserveError", "reserve layout conversion failed")
	ErrInsufficientLiquidity = newVaultError(6033, "InsufficientLiquidity", "venue or vault lacks liquidity")
	ErrInsufficientFunds     = newVaultError(6034, "InsufficientFunds", "account balance too low")

	// Operational
	ErrHaltedVault = newVaultError(6040, "HaltedVault", "operation halted by administrator")
)

// ErrorCode returns the code of the vault error wrapped in err, or 0.
func ErrorCode(err error) uint32 {
	var ve *VaultError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return 0
}
