/*

This file contains the slot-based freshness primitives. Ordering between vault operations is
enforced entirely through these staleness windows.

*/

package types

import "fmt"

const (
	// FreshnessWindow is the slot age at which a tracked value becomes stale.
	FreshnessWindow uint64 = 2
	// RebalanceMaxAge is how many slots a target allocation stays usable by reconcile.
	RebalanceMaxAge uint64 = 100
	// SlotsPerYear assumes 400ms slots.
	SlotsPerYear uint64 = 78_840_000
)

// LastUpdate records when a value was last written.
type LastUpdate struct {
	Slot  uint64 `json:"slot"`
	Stale bool   `json:"stale"`
}

// NewLastUpdate starts stale so nothing reads it before a real update.
func NewLastUpdate(slot uint64) LastUpdate {
	return LastUpdate{Slot: slot, Stale: true}
}

// SlotsElapsed fails when the clock is behind the recorded slot.
func (l LastUpdate) SlotsElapsed(now uint64) (uint64, error) {
	if now < l.Slot {
		return 0, fmt.Errorf("%w: slot %d is before last update %d", ErrMathError, now, l.Slot)
	}
	return now - l.Slot, nil
}

func (l LastUpdate) IsStale(now uint64) (bool, error) {
	elapsed, err := l.SlotsElapsed(now)
	if err != nil {
		return true, err
	}
	return l.Stale || elapsed >= FreshnessWindow, nil
}

func (l *LastUpdate) UpdateSlot(slot uint64) {
	l.Slot = slot
	l.Stale = false
}

func (l *LastUpdate) MarkStale() {
	l.Stale = true
}

// SlotTrackedValue pairs a value with the slot it was observed at.
type SlotTrackedValue struct {
	Value      uint64     `json:"value"`
	LastUpdate LastUpdate `json:"last_update"`
}

func NewSlotTrackedValue(slot uint64) SlotTrackedValue {
	return SlotTrackedValue{LastUpdate: NewLastUpdate(slot)}
}

func (s *SlotTrackedValue) Update(value, slot uint64) {
	s.Value = value
	s.LastUpdate.UpdateSlot(slot)
}

func (s *SlotTrackedValue) Reset() {
	s.Value = 0
	s.LastUpdate.MarkStale()
}
