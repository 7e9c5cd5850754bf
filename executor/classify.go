package executor

import "github.com/osprey-wallet/massa-swap/tokens"

// TradeKind is the shape of on-chain calls a trade needs.
type TradeKind string

const (
	// KindWrap deposits native coins into the wrapped-asset contract.
	KindWrap TradeKind = "wrap"
	// KindUnwrap withdraws native coins from the wrapped-asset contract.
	KindUnwrap TradeKind = "unwrap"
	// KindSwapNativeIn swaps attached native value for tokens.
	KindSwapNativeIn TradeKind = "swap-native-in"
	// KindSwapTokenForNative swaps tokens for native coins, approval first.
	KindSwapTokenForNative TradeKind = "swap-token-for-native"
	// KindSwapTokenForToken swaps tokens for tokens, approval first.
	KindSwapTokenForToken TradeKind = "swap-token-for-token"
)

// NeedsApproval reports whether the trade spends a token balance and so must
// be preceded by a confirmed allowance increase.
func (k TradeKind) NeedsApproval() bool {
	return k == KindSwapTokenForNative || k == KindSwapTokenForToken
}

// Classify maps a token pair to its trade kind. Rules are mutually exclusive
// and checked in order.
func Classify(from, to tokens.Token) TradeKind {
	switch {
	case from.IsNative() && to.IsWrappedNative():
		return KindWrap
	case from.IsWrappedNative() && to.IsNative():
		return KindUnwrap
	case from.IsNative():
		return KindSwapNativeIn
	case to.IsNative():
		return KindSwapTokenForNative
	default:
		return KindSwapTokenForToken
	}
}
