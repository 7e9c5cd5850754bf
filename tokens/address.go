package tokens

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
)

// Massa addresses are a two-letter class prefix ("AU" for user accounts,
// "AS" for smart contracts) followed by a base58-encoded version byte and
// hash.
const minDecodedAddressLen = 30

// ValidateAddress checks that an address is well formed.
func ValidateAddress(addr string) error {
	if len(addr) < 4 {
		return fmt.Errorf("address %q too short", addr)
	}
	prefix := addr[:2]
	if prefix != "AU" && prefix != "AS" {
		return fmt.Errorf("address %q has unknown prefix %q", addr, prefix)
	}
	body := addr[2:]
	if strings.ContainsAny(body, "0OIl") {
		return fmt.Errorf("address %q contains non-base58 characters", addr)
	}
	decoded := base58.Decode(body)
	if len(decoded) == 0 {
		return fmt.Errorf("address %q is not valid base58", addr)
	}
	if len(decoded) < minDecodedAddressLen {
		return fmt.Errorf("address %q decodes to %d bytes, want at least %d", addr, len(decoded), minDecodedAddressLen)
	}
	return nil
}

// IsContractAddress reports whether the address names a smart contract.
func IsContractAddress(addr string) bool {
	return strings.HasPrefix(addr, "AS")
}
