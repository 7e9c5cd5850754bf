package tokens

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// ParseAmount converts a human decimal amount into the token's smallest unit.
// Excess fractional digits beyond the token's precision are truncated.
func ParseAmount(s string, decimals uint32) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("amount %q is negative", s)
	}
	raw := d.Shift(int32(decimals)).Floor()
	v, overflow := uint256.FromBig(raw.BigInt())
	if overflow {
		return nil, fmt.Errorf("amount %q overflows u256", s)
	}
	return v, nil
}

// FormatAmount converts a smallest-unit value back into a human decimal
// string.
func FormatAmount(v *uint256.Int, decimals uint32) string {
	return decimal.NewFromBigInt(v.ToBig(), -int32(decimals)).String()
}
