package executor

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/osprey-wallet/massa-swap/abi"
	"github.com/osprey-wallet/massa-swap/massa"
	"github.com/osprey-wallet/massa-swap/router"
)

// Router contract entry points.
const (
	fnSwapNativeForTokens = "swapExactMASForTokens"
	fnSwapTokensForNative = "swapExactTokensForMAS"
	fnSwapTokensForTokens = "swapExactTokensForTokens"
	fnDeposit             = "deposit"
	fnWithdraw            = "withdraw"
	fnIncreaseAllowance   = "increaseAllowance"
)

// StorageCost is the fixed native amount attached to swap parameters to cover
// on-chain storage for new balance entries, in smallest units.
const StorageCost uint64 = 100_000_000

// maxAllowance is the unlimited approval amount.
var maxAllowance = new(uint256.Int).Not(uint256.NewInt(0))

// minOut applies the slippage tolerance to the quoted output, rounding down.
func minOut(quotedOut *uint256.Int, slippage decimal.Decimal) (*uint256.Int, error) {
	if slippage.IsNegative() || slippage.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("slippage fraction %s out of range [0, 1)", slippage)
	}
	out := decimal.NewFromBigInt(quotedOut.ToBig(), 0).
		Mul(decimal.NewFromInt(1).Sub(slippage)).
		Floor()
	v, overflow := uint256.FromBig(out.BigInt())
	if overflow {
		return nil, fmt.Errorf("minimum output overflows u256")
	}
	return v, nil
}

// buildApprovalCall builds the allowance increase on the source token's
// contract, granting the swap router an effectively unlimited allowance.
func (e *Executor) buildApprovalCall(tokenAddress string, expiry uint64) massa.CallParams {
	payload := abi.NewArgs().
		String(e.config.RouterAddress).
		U256(maxAllowance).
		Bytes()
	return massa.CallParams{
		Target:    tokenAddress,
		Function:  fnIncreaseAllowance,
		Parameter: payload,
		Fee:       e.config.Fee,
		MaxGas:    e.config.MaxGas,
		Expiry:    expiry,
	}
}

// buildTradeCall builds the main operation for a classified trade.
func (e *Executor) buildTradeCall(kind TradeKind, w *Workflow, expiry uint64) (massa.CallParams, error) {
	switch kind {
	case KindWrap:
		return e.buildWrapCall(w, expiry)
	case KindUnwrap:
		return e.buildUnwrapCall(w, expiry)
	case KindSwapNativeIn:
		return e.buildSwapCall(w, fnSwapNativeForTokens, false, expiry)
	case KindSwapTokenForNative:
		return e.buildSwapCall(w, fnSwapTokensForNative, true, expiry)
	case KindSwapTokenForToken:
		return e.buildSwapCall(w, fnSwapTokensForTokens, true, expiry)
	default:
		return massa.CallParams{}, fmt.Errorf("unknown trade kind %q", kind)
	}
}

// buildWrapCall deposits the input amount into the wrapped-asset contract.
// The amount travels as the call's native value, not as a parameter.
func (e *Executor) buildWrapCall(w *Workflow, expiry uint64) (massa.CallParams, error) {
	if !w.intent.AmountIn.IsUint64() {
		return massa.CallParams{}, fmt.Errorf("wrap amount %s exceeds the native coin range", w.intent.AmountIn.Dec())
	}
	return massa.CallParams{
		Target:   e.registry.Wrapped().Address,
		Function: fnDeposit,
		Coins:    w.intent.AmountIn.Uint64(),
		Fee:      e.config.Fee,
		MaxGas:   e.config.MaxGas,
		Expiry:   expiry,
	}, nil
}

// buildUnwrapCall withdraws from the wrapped-asset contract to the recipient.
func (e *Executor) buildUnwrapCall(w *Workflow, expiry uint64) (massa.CallParams, error) {
	if !w.intent.AmountIn.IsUint64() {
		return massa.CallParams{}, fmt.Errorf("unwrap amount %s exceeds the native coin range", w.intent.AmountIn.Dec())
	}
	payload := abi.NewArgs().
		U64(w.intent.AmountIn.Uint64()).
		String(w.recipient()).
		Bytes()
	return massa.CallParams{
		Target:    e.registry.Wrapped().Address,
		Function:  fnWithdraw,
		Parameter: payload,
		Fee:       e.config.Fee,
		MaxGas:    e.config.MaxGas,
		Expiry:    expiry,
	}, nil
}

// buildSwapCall builds a router swap. Token-sourced trades prepend the input
// amount as a parameter; native-sourced trades attach it as the call's value.
func (e *Executor) buildSwapCall(w *Workflow, function string, tokenIn bool, expiry uint64) (massa.CallParams, error) {
	mo, err := minOut(w.quote.AmountOut, w.intent.Slippage)
	if err != nil {
		return massa.CallParams{}, err
	}
	w.minOut = mo

	args := abi.NewArgs()
	if tokenIn {
		args.U256(w.intent.AmountIn)
	}
	args.U256(mo).
		U64Array(w.quote.BinSteps).
		BoolArray(w.quote.IsLegacy).
		StringArray(w.quote.Route).
		String(w.recipient()).
		U64(w.deadlineMs).
		U64(StorageCost)

	params := massa.CallParams{
		Target:    e.config.RouterAddress,
		Function:  function,
		Parameter: args.Bytes(),
		Fee:       e.config.Fee,
		MaxGas:    e.config.MaxGas,
		Expiry:    expiry,
	}
	if !tokenIn {
		if !w.intent.AmountIn.IsUint64() {
			return massa.CallParams{}, fmt.Errorf("swap amount %s exceeds the native coin range", w.intent.AmountIn.Dec())
		}
		params.Coins = w.intent.AmountIn.Uint64()
	}
	return params, nil
}

// unwrapRoute is the bookkeeping route for unwrap trades. Unwrap never needs
// multi-hop parameters, so any cached quote route is discarded.
func unwrapRoute(wrappedAddress string) []string {
	return []string{wrappedAddress}
}

// normalizeQuote forces the route invariants the trade kind demands.
func (e *Executor) normalizeQuote(kind TradeKind, q *router.Quote) *router.Quote {
	if kind != KindUnwrap {
		return q
	}
	nq := *q
	nq.Route = unwrapRoute(e.registry.Wrapped().Address)
	nq.BinSteps = nil
	nq.IsLegacy = nil
	return &nq
}
