package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/zeebo/assert"

	"github.com/osprey-wallet/massa-swap/abi"
	"github.com/osprey-wallet/massa-swap/massa"
	"github.com/osprey-wallet/massa-swap/tokens"
)

// fakeQuoter answers read-only calls from a per-route response table keyed by
// the first payload route element count and content.
type fakeQuoter struct {
	mu       sync.Mutex
	calls    [][]string
	respond  func(route []string, amountIn *uint256.Int) ([]byte, error)
	function string
}

func (f *fakeQuoter) ExecuteReadOnlyCall(_ context.Context, p massa.ReadOnlyCallParams) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.function = p.Function

	rd := abi.NewReader(p.Parameter)
	route, err := rd.StringArray()
	if err != nil {
		return nil, err
	}
	amountIn, err := rd.U256()
	if err != nil {
		return nil, err
	}
	f.calls = append(f.calls, route)
	return f.respond(route, amountIn)
}

// encodeQuoteResponse builds a quoter return payload in contract field order.
func encodeQuoteResponse(route []string, binSteps []uint64, amounts, virtual []*uint256.Int, isLegacy []bool) []byte {
	pairs := make([]string, 0, len(route)-1)
	fees := make([]*uint256.Int, 0, len(route)-1)
	for i := 0; i < len(route)-1; i++ {
		pairs = append(pairs, "AS_pair")
		fees = append(fees, uint256.NewInt(1000))
	}
	return abi.NewArgs().
		StringArray(route).
		StringArray(pairs).
		U64Array(binSteps).
		U256Array(amounts).
		U256Array(virtual).
		U256Array(fees).
		BoolArray(isLegacy).
		Bytes()
}

func newTestResolver(node NodeCaller) (*Resolver, *tokens.Registry) {
	reg := tokens.DefaultRegistry()
	r := NewResolver(node, reg, ResolverConfig{
		QuoterAddress:      "AS_quoter",
		MaxGas:             100_000_000,
		IncludeLegacyPools: true,
	})
	return r, reg
}

func TestResolveNativeToStable(t *testing.T) {
	// 10 MAS in, 42.7 USDC.e out.
	amountIn := uint256.NewInt(10_000_000_000)
	amountOut := uint256.NewInt(42_700_000)
	virtual := uint256.NewInt(42_750_000)

	node := &fakeQuoter{respond: func(route []string, in *uint256.Int) ([]byte, error) {
		return encodeQuoteResponse(route, []uint64{20}, []*uint256.Int{in, amountOut}, []*uint256.Int{in, virtual}, []bool{false}), nil
	}}
	r, reg := newTestResolver(node)

	quote, err := r.Resolve(context.Background(), "MAS", "USDC.e", amountIn)
	assert.NoError(t, err)
	assert.Equal(t, "MAS", quote.FromSymbol)
	assert.Equal(t, "USDC.e", quote.ToSymbol)
	assert.Equal(t, "42700000", quote.AmountOut.Dec())
	assert.True(t, quote.Rate.Equal(decimal.RequireFromString("4.27")))
	assert.False(t, quote.Wrap)

	// Native endpoint is substituted with the wrapped hub before enumeration.
	assert.DeepEqual(t, []string{reg.Wrapped().Address, reg.Stable().Address}, quote.Route)
	assert.Equal(t, "findBestPathFromAmountIn", node.function)
}

func TestResolveFallsBackToHubRoute(t *testing.T) {
	amountIn := uint256.NewInt(1_000_000_000_000_000_000)

	node := &fakeQuoter{respond: func(route []string, in *uint256.Int) ([]byte, error) {
		if len(route) == 2 {
			// Direct pool is empty.
			return encodeQuoteResponse(route, []uint64{10}, []*uint256.Int{in, uint256.NewInt(0)}, []*uint256.Int{in, uint256.NewInt(0)}, []bool{false}), nil
		}
		out := uint256.NewInt(500_000)
		return encodeQuoteResponse(route,
			[]uint64{10, 20},
			[]*uint256.Int{in, uint256.NewInt(700), out},
			[]*uint256.Int{in, uint256.NewInt(700), uint256.NewInt(501_000)},
			[]bool{false, false}), nil
	}}
	r, reg := newTestResolver(node)

	quote, err := r.Resolve(context.Background(), "WETH.e", "DAI.e", amountIn)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(quote.Route))
	assert.Equal(t, reg.Wrapped().Address, quote.Route[1])
	assert.Equal(t, "500000", quote.AmountOut.Dec())

	// Direct candidate was tried first and rejected.
	assert.Equal(t, 2, len(node.calls))
	assert.Equal(t, 2, len(node.calls[0]))
	assert.Equal(t, 3, len(node.calls[1]))
}

func TestResolveNoRoute(t *testing.T) {
	node := &fakeQuoter{respond: func(route []string, in *uint256.Int) ([]byte, error) {
		return nil, errors.New("no pool")
	}}
	r, _ := newTestResolver(node)

	_, err := r.Resolve(context.Background(), "WETH.e", "DAI.e", uint256.NewInt(1))
	var noRoute *NoRouteError
	assert.True(t, errors.As(err, &noRoute))
	assert.Equal(t, "WETH.e", noRoute.From)
	assert.Equal(t, "DAI.e", noRoute.To)

	// Every candidate was attempted.
	assert.Equal(t, 5, len(node.calls))
}

func TestResolveMalformedResponseSkipsRoute(t *testing.T) {
	good := uint256.NewInt(900)
	node := &fakeQuoter{respond: func(route []string, in *uint256.Int) ([]byte, error) {
		if len(route) == 2 {
			// Truncated payload must be treated as a failed candidate.
			return []byte{1, 2, 3}, nil
		}
		return encodeQuoteResponse(route, []uint64{10, 10}, []*uint256.Int{in, uint256.NewInt(5), good}, []*uint256.Int{in, uint256.NewInt(5), good}, []bool{false, false}), nil
	}}
	r, _ := newTestResolver(node)

	quote, err := r.Resolve(context.Background(), "WETH.e", "DAI.e", uint256.NewInt(100))
	assert.NoError(t, err)
	assert.Equal(t, "900", quote.AmountOut.Dec())
}

func TestResolveRejectsMismatchedHopCounts(t *testing.T) {
	good := uint256.NewInt(900)
	node := &fakeQuoter{respond: func(route []string, in *uint256.Int) ([]byte, error) {
		if len(route) == 2 {
			// Two-hop response carrying one bin step and three legacy flags.
			expanded := []string{route[0], "AS_mid", route[1]}
			return encodeQuoteResponse(expanded,
				[]uint64{10},
				[]*uint256.Int{in, uint256.NewInt(5), good},
				[]*uint256.Int{in, uint256.NewInt(5), good},
				[]bool{false, false, false}), nil
		}
		return encodeQuoteResponse(route,
			[]uint64{10, 10},
			[]*uint256.Int{in, uint256.NewInt(5), good},
			[]*uint256.Int{in, uint256.NewInt(5), good},
			[]bool{false, false}), nil
	}}
	r, _ := newTestResolver(node)

	quote, err := r.Resolve(context.Background(), "WETH.e", "DAI.e", uint256.NewInt(100))
	assert.NoError(t, err)

	// The direct candidate was rejected and the next one won.
	assert.Equal(t, 2, len(node.calls))
	assert.Equal(t, 3, len(quote.Route))
	assert.Equal(t, len(quote.Route)-1, len(quote.BinSteps))
	assert.Equal(t, len(quote.Route)-1, len(quote.IsLegacy))
}

func TestResolveUnknownToken(t *testing.T) {
	node := &fakeQuoter{respond: func(route []string, in *uint256.Int) ([]byte, error) {
		t.Fatal("unexpected node call")
		return nil, nil
	}}
	r, _ := newTestResolver(node)

	_, err := r.Resolve(context.Background(), "DOGE", "USDC.e", uint256.NewInt(1))
	var unknown *tokens.UnknownTokenError
	assert.True(t, errors.As(err, &unknown))
}

func TestWrapQuoteSynthesized(t *testing.T) {
	node := &fakeQuoter{respond: func(route []string, in *uint256.Int) ([]byte, error) {
		t.Fatal("wrap quote must not touch the node")
		return nil, nil
	}}
	r, reg := newTestResolver(node)

	amountIn := uint256.NewInt(5_000_000_000)
	quote, err := r.Resolve(context.Background(), "MAS", "WMAS", amountIn)
	assert.NoError(t, err)
	assert.True(t, quote.Wrap)
	assert.True(t, quote.AmountOut.Eq(amountIn))
	assert.True(t, quote.Rate.Equal(decimal.NewFromInt(1)))
	assert.True(t, quote.PriceImpact.IsZero())
	assert.DeepEqual(t, []string{reg.Wrapped().Address}, quote.Route)

	// And the reverse direction.
	quote, err = r.Resolve(context.Background(), "WMAS", "MAS", amountIn)
	assert.NoError(t, err)
	assert.True(t, quote.Wrap)
}

func TestPriceImpact(t *testing.T) {
	// 1% loss against the slippage-free amount.
	impact := priceImpact(uint256.NewInt(99), uint256.NewInt(100))
	assert.True(t, impact.Equal(decimal.NewFromInt(1)))

	// Better than virtual clamps at zero.
	impact = priceImpact(uint256.NewInt(101), uint256.NewInt(100))
	assert.True(t, impact.IsZero())

	// Zero virtual amount falls back to a placeholder instead of dividing.
	impact = priceImpact(uint256.NewInt(50), uint256.NewInt(0))
	assert.True(t, impact.Equal(fallbackImpactPct))
}

func TestQuoteMatches(t *testing.T) {
	q := &Quote{FromSymbol: "MAS", ToSymbol: "USDC.e", AmountIn: uint256.NewInt(10)}
	assert.True(t, q.Matches("MAS", "USDC.e", uint256.NewInt(10)))
	assert.False(t, q.Matches("MAS", "USDC.e", uint256.NewInt(11)))
	assert.False(t, q.Matches("MAS", "USDT.e", uint256.NewInt(10)))
}

func TestDebounceSupersession(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	results := make(chan string, 3)

	// Keystrokes arriving faster than the settle delay.
	for _, amount := range []string{"1", "12", "123"} {
		d.Schedule(context.Background(), func(ctx context.Context) {
			results <- amount
		})
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case got := <-results:
		assert.Equal(t, "123", got)
	case <-time.After(time.Second):
		t.Fatal("debounced task never ran")
	}

	// No superseded task may deliver afterwards.
	select {
	case got := <-results:
		t.Fatalf("superseded input %q observed", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebounceStopCancelsOutstanding(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	ran := make(chan struct{}, 1)

	d.Schedule(context.Background(), func(ctx context.Context) {
		ran <- struct{}{}
	})
	d.Stop()

	select {
	case <-ran:
		t.Fatal("stopped task still ran")
	case <-time.After(100 * time.Millisecond):
	}
}
