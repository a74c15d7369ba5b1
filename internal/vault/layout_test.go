package vault

import (
	"context"
	"errors"
	"testing"

	"github.com/elys-network/yieldvault/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultRecordRoundTrip(t *testing.T) {
	f := newFixture(t, testParams())
	f.refreshAll(t, 1)
	user := f.fundedUser(t, 1_000_000)
	_, err := f.vault.Deposit(f.ledger, user, 1_000_000, 1)
	require.NoError(t, err)
	_, err = f.vault.Rebalance(f.markets, nil, 1)
	require.NoError(t, err)
	_, err = f.vault.Reconcile(context.Background(), f.solend, 0, 2)
	require.NoError(t, err)
	require.NoError(t, f.vault.SetHaltFlags(uint16(types.HaltReconciles)))

	data, err := f.vault.Encode()
	require.NoError(t, err)
	assert.Len(t, data, VaultRecordSize)

	decoded, err := DecodeVault(data)
	require.NoError(t, err)
	assert.Equal(t, f.vault.Snapshot(), decoded.Snapshot())
	assert.Equal(t, f.vault.Config().Parameters(), decoded.Config().Parameters())
}

func TestDecodeVaultValidates(t *testing.T) {
	v, err := NewVault(testHandles(), testParams(), 0)
	require.NoError(t, err)

	_, err = DecodeVault(make([]byte, VaultRecordSize-1))
	assert.True(t, errors.Is(err, types.ErrTryFromReserveError))

	record := v.Snapshot()
	record.HaltFlags = 1 << 9
	_, err = FromRecord(record)
	assert.True(t, errors.Is(err, types.ErrInvalidVaultFlags))

	record = v.Snapshot()
	record.YieldSourceFlags = 1 << 6
	_, err = FromRecord(record)
	assert.True(t, errors.Is(err, types.ErrInvalidVaultFlags))

	record = v.Snapshot()
	record.FeeCarryBps = 10_001
	_, err = FromRecord(record)
	assert.True(t, errors.Is(err, types.ErrInvalidFeeConfig))

	record = v.Snapshot()
	record.Version = 9
	_, err = FromRecord(record)
	assert.True(t, errors.Is(err, types.ErrTryFromReserveError))
}
