/*

This file contains the closed set of yield sources the vault can deploy reserve tokens into.

*/

package types

import (
	"fmt"
	"strings"
)

// Provider identifies one external money-market venue.
type Provider uint8

const (
	ProviderSolend Provider = iota
	ProviderPort
	ProviderJet
)

// NumProviders is the number of yield-source slots a vault record carries.
const NumProviders = 3

// AllProviders returns every provider in enum order.
func AllProviders() []Provider {
	return []Provider{ProviderSolend, ProviderPort, ProviderJet}
}

func (p Provider) Valid() bool {
	return p < NumProviders
}

func (p Provider) String() string {
	switch p {
	case ProviderSolend:
		return "solend"
	case ProviderPort:
		return "port"
	case ProviderJet:
		return "jet"
	default:
		return "unknown"
	}
}

// ParseProvider maps a provider name (case-insensitive) to its tag.
func ParseProvider(name string) (Provider, error) {
	for _, p := range AllProviders() {
		if strings.EqualFold(name, p.String()) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown provider %q", name)
}

// MarshalText lets providers be used as JSON map keys.
func (p Provider) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid provider %d", uint8(p))
	}
	return []byte(p.String()), nil
}

func (p *Provider) UnmarshalText(text []byte) error {
	parsed, err := ParseProvider(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
