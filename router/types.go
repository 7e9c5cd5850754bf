// Package router resolves swap quotes: it enumerates candidate trade routes
// through the hub assets, queries the on-chain quoter for each candidate in
// order and returns the first route with a positive output.
package router

import (
	"fmt"
	"os"
	"time"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var routerLog zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	routerLog = zerolog.New(out).With().Timestamp().Str("component", "router").Logger()
}

// Quote is a resolved price for one swap intent. It binds the route that
// produced it together with the pair and amount it was quoted for, so the
// executor can reject a stale quote.
type Quote struct {
	FromSymbol string
	ToSymbol   string
	// AmountIn is the quoted input, in the source token's smallest unit.
	AmountIn *uint256.Int
	// AmountOut is the expected output, in the destination token's smallest unit.
	AmountOut *uint256.Int
	// Rate is the human-unit exchange rate (out per in).
	Rate decimal.Decimal
	// PriceImpact is a percentage, e.g. 0.3 for 0.3%.
	PriceImpact decimal.Decimal
	// Route is the token address path the quoter selected.
	Route []string
	// BinSteps and IsLegacy describe each pool hop along Route.
	BinSteps []uint64
	IsLegacy []bool
	// Wrap marks a synthesized native<->wrapped conversion quote.
	Wrap bool
}

// Matches reports whether the quote was resolved for the given pair and
// amount.
func (q *Quote) Matches(from, to string, amountIn *uint256.Int) bool {
	return q.FromSymbol == from && q.ToSymbol == to && q.AmountIn.Eq(amountIn)
}

// NoRouteError reports that every candidate route failed to produce a
// positive output for the pair.
type NoRouteError struct {
	From string
	To   string
}

func (e *NoRouteError) Error() string {
	return fmt.Sprintf("no route found for %s -> %s", e.From, e.To)
}
