package types

// Allocations holds one tracked value per provider slot.
type Allocations [NumProviders]SlotTrackedValue

func NewAllocations(slot uint64) Allocations {
	var a Allocations
	for i := range a {
		a[i] = NewSlotTrackedValue(slot)
	}
	return a
}

// Get returns the slot for p. p must be valid.
func (a *Allocations) Get(p Provider) *SlotTrackedValue {
	return &a[p]
}

// Values returns the plain values keyed by provider name, for logging and snapshots.
func (a Allocations) Values(flags YieldSourceFlags) map[string]uint64 {
	out := make(map[string]uint64, NumProviders)
	for _, p := range AllProviders() {
		if flags.Enabled(p) {
			out[p.String()] = a[p].Value
		}
	}
	return out
}
