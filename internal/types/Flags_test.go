package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHaltFlags(t *testing.T) {
	flags, err := ParseHaltFlags(uint16(HaltAll))
	require.NoError(t, err)
	assert.True(t, flags.Has(HaltRefreshes))
	assert.True(t, flags.Has(HaltReconciles|HaltDepositsWithdraws))

	flags, err = ParseHaltFlags(0)
	require.NoError(t, err)
	assert.False(t, flags.Has(HaltRefreshes))

	_, err = ParseHaltFlags(1 << 3)
	assert.True(t, errors.Is(err, ErrInvalidVaultFlags))
}

func TestYieldSourceFlags(t *testing.T) {
	_, err := ParseYieldSourceFlags(1 << 5)
	assert.True(t, errors.Is(err, ErrInvalidVaultFlags))

	var flags YieldSourceFlags
	flags = flags.With(ProviderJet).With(ProviderSolend)
	assert.True(t, flags.Enabled(ProviderJet))
	assert.False(t, flags.Enabled(ProviderPort))
	assert.False(t, flags.Enabled(Provider(9)))
	assert.Equal(t, []Provider{ProviderSolend, ProviderJet}, flags.EnabledProviders())
	assert.Equal(t, 2, flags.Count())
}

func TestProviderText(t *testing.T) {
	p, err := ParseProvider("PORT")
	require.NoError(t, err)
	assert.Equal(t, ProviderPort, p)

	_, err = ParseProvider("mango")
	assert.Error(t, err)

	text, err := ProviderJet.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "jet", string(text))
}
