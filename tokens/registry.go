// Package tokens holds the immutable token catalog the swap engine trades
// against, including the native asset, its wrapped counterpart and the stable
// hub used for multi-hop routing.
package tokens

import "fmt"

// Kind distinguishes the chain's native asset and its wrapped form from
// ordinary tokens.
type Kind string

const (
	KindStandard      Kind = "standard"
	KindNative        Kind = "native"
	KindWrappedNative Kind = "wrapped"
)

// Token describes one tradable asset. Address is empty for the native asset,
// which has no on-chain contract; everywhere a call needs an address the
// wrapped counterpart is substituted (see Registry.Ref).
type Token struct {
	Symbol   string
	Name     string
	Address  string
	Decimals uint32
	Kind     Kind
}

// IsNative reports whether the token is the chain's native asset.
func (t Token) IsNative() bool { return t.Kind == KindNative }

// IsWrappedNative reports whether the token is the wrapped form of the native
// asset.
func (t Token) IsWrappedNative() bool { return t.Kind == KindWrappedNative }

// UnknownTokenError is returned when a symbol is not in the catalog.
type UnknownTokenError struct {
	Symbol string
}

func (e *UnknownTokenError) Error() string {
	return fmt.Sprintf("unknown token %q", e.Symbol)
}

// Registry is the immutable symbol catalog, defined once at startup.
type Registry struct {
	bySymbol map[string]Token
	ordered  []string
	native   Token
	wrapped  Token
	stable   Token
}

// NewRegistry builds a registry from a catalog. The catalog must contain
// exactly one native token, exactly one wrapped-native token, and the named
// stable hub; every non-native token must carry a valid contract address.
func NewRegistry(catalog []Token, stableSymbol string) (*Registry, error) {
	r := &Registry{bySymbol: make(map[string]Token, len(catalog))}
	for _, t := range catalog {
		if t.Symbol == "" {
			return nil, fmt.Errorf("token with empty symbol in catalog")
		}
		if _, dup := r.bySymbol[t.Symbol]; dup {
			return nil, fmt.Errorf("duplicate token symbol %q", t.Symbol)
		}
		switch t.Kind {
		case KindNative:
			if t.Address != "" {
				return nil, fmt.Errorf("native token %q must not have an address", t.Symbol)
			}
			if r.native.Symbol != "" {
				return nil, fmt.Errorf("catalog has more than one native token")
			}
			r.native = t
		case KindWrappedNative:
			if r.wrapped.Symbol != "" {
				return nil, fmt.Errorf("catalog has more than one wrapped-native token")
			}
			fallthrough
		case KindStandard:
			if err := ValidateAddress(t.Address); err != nil {
				return nil, fmt.Errorf("token %q: %w", t.Symbol, err)
			}
			if !IsContractAddress(t.Address) {
				return nil, fmt.Errorf("token %q address is not a contract address", t.Symbol)
			}
			if t.Kind == KindWrappedNative {
				r.wrapped = t
			}
		default:
			return nil, fmt.Errorf("token %q has unknown kind %q", t.Symbol, t.Kind)
		}
		r.bySymbol[t.Symbol] = t
		r.ordered = append(r.ordered, t.Symbol)
	}
	if r.native.Symbol == "" {
		return nil, fmt.Errorf("catalog has no native token")
	}
	if r.wrapped.Symbol == "" {
		return nil, fmt.Errorf("catalog has no wrapped-native token")
	}
	stable, ok := r.bySymbol[stableSymbol]
	if !ok {
		return nil, fmt.Errorf("stable hub %q not in catalog", stableSymbol)
	}
	if stable.Kind != KindStandard {
		return nil, fmt.Errorf("stable hub %q must be an ordinary token", stableSymbol)
	}
	r.stable = stable
	return r, nil
}

// Resolve looks a token up by symbol.
func (r *Registry) Resolve(symbol string) (Token, error) {
	t, ok := r.bySymbol[symbol]
	if !ok {
		return Token{}, &UnknownTokenError{Symbol: symbol}
	}
	return t, nil
}

// Native returns the chain's native asset.
func (r *Registry) Native() Token { return r.native }

// Wrapped returns the wrapped form of the native asset (routing hub A).
func (r *Registry) Wrapped() Token { return r.wrapped }

// Stable returns the primary stable asset (routing hub B).
func (r *Registry) Stable() Token { return r.stable }

// Ref returns the token's on-chain reference. The native asset has none, so
// its wrapped counterpart's address stands in; the exchange only trades the
// wrapped form.
func (r *Registry) Ref(t Token) string {
	if t.IsNative() {
		return r.wrapped.Address
	}
	return t.Address
}

// All returns the catalog in declaration order.
func (r *Registry) All() []Token {
	out := make([]Token, 0, len(r.ordered))
	for _, sym := range r.ordered {
		out = append(out, r.bySymbol[sym])
	}
	return out
}
