package router

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/osprey-wallet/massa-swap/abi"
	"github.com/osprey-wallet/massa-swap/massa"
	"github.com/osprey-wallet/massa-swap/tokens"
)

// quoterFunction is the quoter contract's entry point for exact-input quotes.
const quoterFunction = "findBestPathFromAmountIn"

// fallbackImpactPct stands in for price impact when the quoter reports a zero
// slippage-free amount, to avoid dividing by zero.
var fallbackImpactPct = decimal.NewFromFloat(0.01)

// NodeCaller is the read-only slice of the node client the resolver needs.
type NodeCaller interface {
	ExecuteReadOnlyCall(ctx context.Context, p massa.ReadOnlyCallParams) ([]byte, error)
}

// ResolverConfig holds the contract binding for quote resolution.
type ResolverConfig struct {
	// QuoterAddress is the on-chain quoter contract.
	QuoterAddress string
	// MaxGas is the gas ceiling for read-only quote calls.
	MaxGas uint64
	// IncludeLegacyPools asks the quoter to consider legacy pair pools.
	IncludeLegacyPools bool
}

// Resolver turns a (from, to, amount) intent into a Quote by trying candidate
// routes against the on-chain quoter, first positive output wins.
type Resolver struct {
	node     NodeCaller
	registry *tokens.Registry
	config   ResolverConfig
}

// NewResolver creates a quote resolver over the given node and token registry.
func NewResolver(node NodeCaller, registry *tokens.Registry, config ResolverConfig) *Resolver {
	return &Resolver{node: node, registry: registry, config: config}
}

// Resolve finds the best quote for swapping amountIn of fromSymbol into
// toSymbol. Candidate routes are tried in enumeration order and the first one
// with a positive output is returned. Native<->wrapped conversions are
// answered locally at a 1:1 rate without touching the node.
func (r *Resolver) Resolve(ctx context.Context, fromSymbol, toSymbol string, amountIn *uint256.Int) (*Quote, error) {
	from, err := r.registry.Resolve(fromSymbol)
	if err != nil {
		return nil, err
	}
	to, err := r.registry.Resolve(toSymbol)
	if err != nil {
		return nil, err
	}

	if isWrapPair(from, to) {
		routerLog.Debug().
			Str("from", from.Symbol).
			Str("to", to.Symbol).
			Msg("Synthesized 1:1 conversion quote")
		return &Quote{
			FromSymbol:  from.Symbol,
			ToSymbol:    to.Symbol,
			AmountIn:    amountIn.Clone(),
			AmountOut:   amountIn.Clone(),
			Rate:        decimal.NewFromInt(1),
			PriceImpact: decimal.Zero,
			Route:       []string{r.registry.Wrapped().Address},
			Wrap:        true,
		}, nil
	}

	candidates := EnumerateRoutes(
		r.registry.Ref(from),
		r.registry.Ref(to),
		r.registry.Wrapped().Address,
		r.registry.Stable().Address,
	)

	routerLog.Info().
		Str("from", from.Symbol).
		Str("to", to.Symbol).
		Str("amountIn", amountIn.Dec()).
		Int("candidates", len(candidates)).
		Msg("Resolving quote")

	for i, route := range candidates {
		quote, err := r.quoteRoute(ctx, route, amountIn)
		if err != nil {
			routerLog.Debug().
				Err(err).
				Int("attempt", i+1).
				Int("hops", len(route)-1).
				Msg("Candidate route failed, trying next")
			continue
		}
		quote.FromSymbol = from.Symbol
		quote.ToSymbol = to.Symbol
		quote.Rate = rate(amountIn, from.Decimals, quote.AmountOut, to.Decimals)

		routerLog.Info().
			Int("hops", len(quote.Route)-1).
			Str("amountOut", quote.AmountOut.Dec()).
			Str("impactPct", quote.PriceImpact.String()).
			Msg("Quote resolved")
		return quote, nil
	}

	routerLog.Warn().
		Str("from", from.Symbol).
		Str("to", to.Symbol).
		Msg("All candidate routes failed")
	return nil, &NoRouteError{From: from.Symbol, To: to.Symbol}
}

// quoteRoute asks the quoter for an exact-input quote along one candidate
// route and decodes its response.
func (r *Resolver) quoteRoute(ctx context.Context, route []string, amountIn *uint256.Int) (*Quote, error) {
	payload := abi.NewArgs().
		StringArray(route).
		U256(amountIn).
		Bool(r.config.IncludeLegacyPools).
		Bytes()

	out, err := r.node.ExecuteReadOnlyCall(ctx, massa.ReadOnlyCallParams{
		Target:    r.config.QuoterAddress,
		Function:  quoterFunction,
		Parameter: payload,
		MaxGas:    r.config.MaxGas,
	})
	if err != nil {
		return nil, err
	}
	return decodeQuote(out, amountIn)
}

// decodeQuote parses the quoter's response. Field order is fixed by the
// contract: route, pairs, bin steps, amounts, slippage-free amounts, fees,
// legacy flags. The last amount is the output; pairs and fees are not used.
func decodeQuote(raw []byte, amountIn *uint256.Int) (*Quote, error) {
	rd := abi.NewReader(raw)

	route, err := rd.StringArray()
	if err != nil {
		return nil, err
	}
	if _, err := rd.StringArray(); err != nil { // pairs
		return nil, err
	}
	binSteps, err := rd.U64Array()
	if err != nil {
		return nil, err
	}
	amounts, err := rd.U256Array()
	if err != nil {
		return nil, err
	}
	virtualAmounts, err := rd.U256Array()
	if err != nil {
		return nil, err
	}
	if _, err := rd.U256Array(); err != nil { // fees
		return nil, err
	}
	isLegacy, err := rd.BoolArray()
	if err != nil {
		return nil, err
	}

	if len(route) == 0 || len(amounts) == 0 || len(virtualAmounts) == 0 {
		return nil, fmt.Errorf("quoter returned an empty route")
	}

	// A route of n tokens has exactly n-1 hops, one bin step and one legacy
	// flag per hop. Anything else cannot be turned into swap parameters.
	hops := len(route) - 1
	if len(binSteps) != hops || len(isLegacy) != hops {
		return nil, fmt.Errorf("quoter returned %d bin steps and %d legacy flags for %d hops", len(binSteps), len(isLegacy), hops)
	}

	amountOut := amounts[len(amounts)-1]
	if amountOut.IsZero() {
		return nil, fmt.Errorf("quoter returned zero output")
	}

	return &Quote{
		AmountIn:    amountIn.Clone(),
		AmountOut:   amountOut,
		PriceImpact: priceImpact(amountOut, virtualAmounts[len(virtualAmounts)-1]),
		Route:       route,
		BinSteps:    binSteps,
		IsLegacy:    isLegacy,
	}, nil
}

// priceImpact compares the real output against the slippage-free output and
// returns the loss as a percentage, clamped at zero.
func priceImpact(amountOut, virtualOut *uint256.Int) decimal.Decimal {
	if virtualOut.IsZero() {
		return fallbackImpactPct
	}
	real := decimal.NewFromBigInt(amountOut.ToBig(), 0)
	virtual := decimal.NewFromBigInt(virtualOut.ToBig(), 0)
	impact := virtual.Sub(real).Div(virtual).Mul(decimal.NewFromInt(100))
	if impact.IsNegative() {
		return decimal.Zero
	}
	return impact
}

// rate is the human-unit exchange rate between the quoted amounts.
func rate(amountIn *uint256.Int, inDecimals uint32, amountOut *uint256.Int, outDecimals uint32) decimal.Decimal {
	in := decimal.NewFromBigInt(amountIn.ToBig(), -int32(inDecimals))
	out := decimal.NewFromBigInt(amountOut.ToBig(), -int32(outDecimals))
	if in.IsZero() {
		return decimal.Zero
	}
	return out.Div(in)
}

func isWrapPair(from, to tokens.Token) bool {
	return (from.IsNative() && to.IsWrappedNative()) ||
		(from.IsWrappedNative() && to.IsNative())
}
