/*

This file contains the vault's bitset flags. Every write goes through a parser that rejects
unknown bits.

*/

package types

import "fmt"

// HaltFlags disables categories of operations.
type HaltFlags uint16

const (
	HaltReconciles        HaltFlags = 1 << 0
	HaltRefreshes         HaltFlags = 1 << 1
	HaltDepositsWithdraws HaltFlags = 1 << 2

	HaltAll = HaltReconciles | HaltRefreshes | HaltDepositsWithdraws
)

func ParseHaltFlags(bits uint16) (HaltFlags, error) {
	if bits&^uint16(HaltAll) != 0 {
		return 0, fmt.Errorf("%w: halt bits %#x", ErrInvalidVaultFlags, bits)
	}
	return HaltFlags(bits), nil
}

func (f HaltFlags) Has(mask HaltFlags) bool {
	return f&mask == mask
}

// YieldSourceFlags marks which providers are attached to the vault.
type YieldSourceFlags uint16

const (
	YieldSourceSolend YieldSourceFlags = 1 << ProviderSolend
	YieldSourcePort   YieldSourceFlags = 1 << ProviderPort
	YieldSourceJet    YieldSourceFlags = 1 << ProviderJet

	yieldSourceAll = YieldSourceSolend | YieldSourcePort | YieldSourceJet
)

func ParseYieldSourceFlags(bits uint16) (YieldSourceFlags, error) {
	if bits&^uint16(yieldSourceAll) != 0 {
		return 0, fmt.Errorf("%w: yield source bits %#x", ErrInvalidVaultFlags, bits)
	}
	return YieldSourceFlags(bits), nil
}

func YieldSourceFlag(p Provider) YieldSourceFlags {
	return 1 << p
}

func (f YieldSourceFlags) Enabled(p Provider) bool {
	return p.Valid() && f&YieldSourceFlag(p) != 0
}

func (f YieldSourceFlags) With(p Provider) YieldSourceFlags {
	return f | YieldSourceFlag(p)
}

// EnabledProviders lists enabled providers in enum order.
func (f YieldSourceFlags) EnabledProviders() []Provider {
	out := make([]Provider, 0, NumProviders)
	for _, p := range AllProviders() {
		if f.Enabled(p) {
			out = append(out, p)
		}
	}
	return out
}

func (f YieldSourceFlags) Count() int {
	return len(f.EnabledProviders())
}
