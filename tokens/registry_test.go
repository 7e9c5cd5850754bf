package tokens_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/zeebo/assert"

	"github.com/osprey-wallet/massa-swap/tokens"
)

func TestResolveKnownAndUnknown(t *testing.T) {
	reg := tokens.DefaultRegistry()

	mas, err := reg.Resolve("MAS")
	assert.NoError(t, err)
	assert.True(t, mas.IsNative())
	assert.Equal(t, "", mas.Address)

	_, err = reg.Resolve("DOGE")
	assert.Error(t, err)
	var unknown *tokens.UnknownTokenError
	assert.True(t, errors.As(err, &unknown))
	assert.Equal(t, "DOGE", unknown.Symbol)
}

func TestNativeRefSubstitutesWrapped(t *testing.T) {
	reg := tokens.DefaultRegistry()
	mas, _ := reg.Resolve("MAS")
	wmas, _ := reg.Resolve("WMAS")

	assert.Equal(t, wmas.Address, reg.Ref(mas))
	assert.Equal(t, wmas.Address, reg.Ref(wmas))

	usdc, _ := reg.Resolve("USDC.e")
	assert.Equal(t, usdc.Address, reg.Ref(usdc))
}

func TestHubs(t *testing.T) {
	reg := tokens.DefaultRegistry()
	assert.Equal(t, "WMAS", reg.Wrapped().Symbol)
	assert.Equal(t, "USDC.e", reg.Stable().Symbol)
}

func TestRegistryValidation(t *testing.T) {
	wmas := tokens.Token{
		Symbol: "WMAS", Decimals: 9, Kind: tokens.KindWrappedNative,
		Address: "AS12U4TZfNK7qoLyEERBBRDMu8nm5MKoRzPXDXans4v9wdATZedz9",
	}
	usdc := tokens.Token{
		Symbol: "USDC.e", Decimals: 6, Kind: tokens.KindStandard,
		Address: "AS1hCJXjndR4c9vekLWsXGnrdigp4AaZ7uYG3UKFzzKnWVsrNLPJ",
	}

	// Missing native token.
	_, err := tokens.NewRegistry([]tokens.Token{wmas, usdc}, "USDC.e")
	assert.Error(t, err)

	// Native token with an address.
	_, err = tokens.NewRegistry([]tokens.Token{
		{Symbol: "MAS", Decimals: 9, Kind: tokens.KindNative, Address: usdc.Address},
		wmas, usdc,
	}, "USDC.e")
	assert.Error(t, err)

	// Stable hub not in catalog.
	_, err = tokens.NewRegistry([]tokens.Token{
		{Symbol: "MAS", Decimals: 9, Kind: tokens.KindNative},
		wmas, usdc,
	}, "USDT.e")
	assert.Error(t, err)
}

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, tokens.ValidateAddress("AS12U4TZfNK7qoLyEERBBRDMu8nm5MKoRzPXDXans4v9wdATZedz9"))

	assert.Error(t, tokens.ValidateAddress(""))
	assert.Error(t, tokens.ValidateAddress("AS"))
	assert.Error(t, tokens.ValidateAddress("XX12U4TZfNK7qoLyEERBBRDMu8nm5MKoRzPXDXans4v9wdATZedz9"))
	assert.Error(t, tokens.ValidateAddress("AS0000"))
	assert.Error(t, tokens.ValidateAddress("AS1abc"))
}

func TestParseAndFormatAmount(t *testing.T) {
	v, err := tokens.ParseAmount("10", 9)
	assert.NoError(t, err)
	assert.Equal(t, "10000000000", v.Dec())

	v, err = tokens.ParseAmount("42.7", 6)
	assert.NoError(t, err)
	assert.Equal(t, "42700000", v.Dec())
	assert.Equal(t, "42.7", tokens.FormatAmount(v, 6))

	// Excess precision truncates.
	v, err = tokens.ParseAmount("1.23456789", 6)
	assert.NoError(t, err)
	assert.Equal(t, "1234567", v.Dec())

	_, err = tokens.ParseAmount("-1", 6)
	assert.Error(t, err)
	_, err = tokens.ParseAmount("abc", 6)
	assert.Error(t, err)
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.toml")
	data := `
primary_stable = "USDC.e"

[[tokens]]
symbol = "MAS"
name = "Massa"
decimals = 9
kind = "native"

[[tokens]]
symbol = "WMAS"
name = "Wrapped Massa"
address = "AS12U4TZfNK7qoLyEERBBRDMu8nm5MKoRzPXDXans4v9wdATZedz9"
decimals = 9
kind = "wrapped"

[[tokens]]
symbol = "USDC.e"
name = "Bridged USD Coin"
address = "AS1hCJXjndR4c9vekLWsXGnrdigp4AaZ7uYG3UKFzzKnWVsrNLPJ"
decimals = 6
`
	assert.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	reg, err := tokens.LoadCatalog(path)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(reg.All()))
	assert.Equal(t, "USDC.e", reg.Stable().Symbol)

	_, err = tokens.LoadCatalog(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}
