package tokens

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type catalogFile struct {
	PrimaryStable string         `toml:"primary_stable"`
	Tokens        []catalogToken `toml:"tokens"`
}

type catalogToken struct {
	Symbol   string `toml:"symbol"`
	Name     string `toml:"name"`
	Address  string `toml:"address"`
	Decimals uint32 `toml:"decimals"`
	Kind     string `toml:"kind"`
}

// LoadCatalog reads a token catalog from a toml file and builds a registry
// from it.
func LoadCatalog(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token catalog: %w", err)
	}
	var file catalogFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse token catalog: %w", err)
	}
	if file.PrimaryStable == "" {
		return nil, fmt.Errorf("token catalog is missing primary_stable")
	}
	catalog := make([]Token, 0, len(file.Tokens))
	for _, t := range file.Tokens {
		kind := Kind(t.Kind)
		if t.Kind == "" {
			kind = KindStandard
		}
		catalog = append(catalog, Token{
			Symbol:   t.Symbol,
			Name:     t.Name,
			Address:  t.Address,
			Decimals: t.Decimals,
			Kind:     kind,
		})
	}
	return NewRegistry(catalog, file.PrimaryStable)
}

// DefaultRegistry returns the built-in mainnet catalog used when no catalog
// file is configured.
func DefaultRegistry() *Registry {
	r, err := NewRegistry([]Token{
		{Symbol: "MAS", Name: "Massa", Decimals: 9, Kind: KindNative},
		{Symbol: "WMAS", Name: "Wrapped Massa", Decimals: 9, Kind: KindWrappedNative,
			Address: "AS12U4TZfNK7qoLyEERBBRDMu8nm5MKoRzPXDXans4v9wdATZedz9"},
		{Symbol: "USDC.e", Name: "Bridged USD Coin", Decimals: 6, Kind: KindStandard,
			Address: "AS1hCJXjndR4c9vekLWsXGnrdigp4AaZ7uYG3UKFzzKnWVsrNLPJ"},
		{Symbol: "USDT.e", Name: "Bridged Tether USD", Decimals: 6, Kind: KindStandard,
			Address: "AS12k8viVachWv7ZqNUv44mdFigPGAA1PbZcSsSmKwKCr3rT2KtWe"},
		{Symbol: "WETH.e", Name: "Bridged Wrapped Ether", Decimals: 18, Kind: KindStandard,
			Address: "AS124vf3YfAJCSCQVYKczzuWWpXrximFpbTmX4rheLs5uNSftiiRY"},
		{Symbol: "DAI.e", Name: "Bridged Dai Stablecoin", Decimals: 18, Kind: KindStandard,
			Address: "AS1ZGF1upwp9kPRvDKLxFAKRebgg7b3RWDnhgV7VvdprsnEdiEsv"},
	}, "USDC.e")
	if err != nil {
		// The built-in catalog is static; failing to build it is a bug.
		panic(err)
	}
	return r
}
