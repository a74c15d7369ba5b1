package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLastUpdateStaleness(t *testing.T) {
	lu := NewLastUpdate(10)
	stale, err := lu.IsStale(10)
	require.NoError(t, err)
	assert.True(t, stale, "new values start stale")

	lu.UpdateSlot(10)
	tests := []struct {
		now   uint64
		stale bool
	}{
		{10, false},
		{11, false},
		{12, true},
		{500, true},
	}
	for _, tt := range tests {
		stale, err := lu.IsStale(tt.now)
		require.NoError(t, err)
		assert.Equal(t, tt.stale, stale, "now=%d", tt.now)
	}

	lu.MarkStale()
	stale, err = lu.IsStale(10)
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestLastUpdateClockRegression(t *testing.T) {
	lu := NewLastUpdate(10)
	_, err := lu.SlotsElapsed(9)
	assert.True(t, errors.Is(err, ErrMathError))
	_, err = lu.IsStale(9)
	assert.True(t, errors.Is(err, ErrMathError))
}

func TestSlotTrackedValue(t *testing.T) {
	v := NewSlotTrackedValue(0)
	v.Update(1_000, 7)
	assert.Equal(t, uint64(1_000), v.Value)
	assert.Equal(t, uint64(7), v.LastUpdate.Slot)
	assert.False(t, v.LastUpdate.Stale)

	v.Reset()
	assert.Zero(t, v.Value)
	assert.True(t, v.LastUpdate.Stale)
	assert.Equal(t, uint64(7), v.LastUpdate.Slot)
}

func TestAllocations(t *testing.T) {
	a := NewAllocations(3)
	a.Get(ProviderPort).Update(500, 4)
	assert.Equal(t, uint64(500), a[ProviderPort].Value)

	values := a.Values(YieldSourceSolend | YieldSourcePort)
	assert.Equal(t, map[string]uint64{"solend": 0, "port": 500}, values)
}
