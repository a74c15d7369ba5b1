/*

This file contains the vault aggregate: its handles, flags, tracked value and allocations, and
the administrative lifecycle (creation, attaching yield sources, halting, reconfiguring).

*/

package vault

import (
	"fmt"

	"github.com/elys-network/yieldvault/internal/logger"
	"github.com/elys-network/yieldvault/internal/types"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

// Handles are the accounts a vault is bound to at creation.
type Handles struct {
	Owner               solana.PublicKey `json:"owner"`
	VaultAuthority      solana.PublicKey `json:"vault_authority"`
	ReserveMint         solana.PublicKey `json:"reserve_mint"`
	VaultReserveAccount solana.PublicKey `json:"vault_reserve_account"`
	LpTokenMint         solana.PublicKey `json:"lp_token_mint"`
	FeeReceiver         solana.PublicKey `json:"fee_receiver"`
	ReferralFeeReceiver solana.PublicKey `json:"referral_fee_receiver"`
}

// Vault is the aggregate root. Operations either complete or leave it untouched.
type Vault struct {
	handles      Handles
	yieldSources [types.NumProviders]solana.PublicKey

	haltFlags        types.HaltFlags
	yieldSourceFlags types.YieldSourceFlags

	value             types.SlotTrackedValue
	targetAllocations types.Allocations
	actualAllocations types.Allocations

	config VaultConfig
	logger zerolog.Logger
}

// NewVault creates a vault with no yield sources attached and no halts.
func NewVault(handles Handles, params VaultParameters, slot uint64) (*Vault, error) {
	config, err := NewVaultConfig(params, types.NumProviders)
	if err != nil {
		return nil, err
	}
	if handles.Owner.IsZero() || handles.LpTokenMint.IsZero() || handles.VaultReserveAccount.IsZero() {
		return nil, fmt.Errorf("%w: owner, reserve account and lp mint are required", types.ErrInvalidAccount)
	}
	v := &Vault{
		handles:           handles,
		value:             types.NewSlotTrackedValue(slot),
		targetAllocations: types.NewAllocations(slot),
		actualAllocations: types.NewAllocations(slot),
		config:            config,
	}
	v.logger = newVaultLogger(handles)
	return v, nil
}

func newVaultLogger(h Handles) zerolog.Logger {
	return logger.GetForComponent("vault").With().Str("vault", h.VaultAuthority.String()).Logger()
}

// AttachYieldSource enables provider at address. Re-attaching the same address is a no-op.
func (v *Vault) AttachYieldSource(p types.Provider, address solana.PublicKey) error {
	if !p.Valid() {
		return fmt.Errorf("%w: provider %d", types.ErrInvalidAccount, uint8(p))
	}
	if address.IsZero() {
		return fmt.Errorf("%w: %s address is empty", types.ErrInvalidAccount, p)
	}
	if v.yieldSourceFlags.Enabled(p) {
		if v.yieldSources[p] != address {
			return fmt.Errorf("%w: %s already attached at %s", types.ErrInvalidAccount, p, v.yieldSources[p])
		}
		return nil
	}
	flags, err := types.ParseYieldSourceFlags(uint16(v.yieldSourceFlags.With(p)))
	if err != nil {
		return err
	}
	v.yieldSources[p] = address
	v.yieldSourceFlags = flags
	v.logger.Info().Str("provider", p.String()).Str("address", address.String()).Msg("Yield source attached")
	return nil
}

// SetHaltFlags replaces the halt flags.
func (v *Vault) SetHaltFlags(bits uint16) error {
	flags, err := types.ParseHaltFlags(bits)
	if err != nil {
		return err
	}
	v.haltFlags = flags
	v.logger.Warn().Uint16("haltFlags", bits).Msg("Halt flags updated")
	return nil
}

// UpdateConfig revalidates and swaps in new parameters. Once sources are attached the cap must
// also cover them.
func (v *Vault) UpdateConfig(params VaultParameters) error {
	config, err := NewVaultConfig(params, types.NumProviders)
	if err != nil {
		return err
	}
	if k := v.yieldSourceFlags.Count(); k > 0 {
		if err := config.CoversSources(k); err != nil {
			return err
		}
	}
	v.config = config
	return nil
}

func (v *Vault) Handles() Handles                         { return v.handles }
func (v *Vault) Config() VaultConfig                      { return v.config }
func (v *Vault) HaltFlags() types.HaltFlags               { return v.haltFlags }
func (v *Vault) YieldSourceFlags() types.YieldSourceFlags { return v.yieldSourceFlags }
func (v *Vault) Value() types.SlotTrackedValue            { return v.value }
func (v *Vault) TargetAllocations() types.Allocations     { return v.targetAllocations }
func (v *Vault) ActualAllocations() types.Allocations     { return v.actualAllocations }

// YieldSource returns the address recorded for p, if attached.
func (v *Vault) YieldSource(p types.Provider) (solana.PublicKey, bool) {
	if !v.yieldSourceFlags.Enabled(p) {
		return solana.PublicKey{}, false
	}
	return v.yieldSources[p], true
}

func (v *Vault) checkHalt(mask types.HaltFlags, op string) error {
	if v.haltFlags.Has(mask) {
		return fmt.Errorf("%w: %s", types.ErrHaltedVault, op)
	}
	return nil
}

// checkSource requires p to be enabled and address to match the recorded one.
func (v *Vault) checkSource(p types.Provider, address solana.PublicKey) error {
	recorded, ok := v.YieldSource(p)
	if !ok {
		return fmt.Errorf("%w: %s is not enabled", types.ErrInvalidAccount, p)
	}
	if recorded != address {
		return fmt.Errorf("%w: %s expected %s, got %s", types.ErrInvalidAccount, p, recorded, address)
	}
	return nil
}

func (v *Vault) requireFreshValue(now uint64) error {
	stale, err := v.value.LastUpdate.IsStale(now)
	if err != nil {
		return err
	}
	if stale {
		return fmt.Errorf("%w: value updated at slot %d, now %d", types.ErrVaultIsNotRefreshed, v.value.LastUpdate.Slot, now)
	}
	return nil
}
