package massa

import (
	"fmt"

	"github.com/btcsuite/btcutil/base58"

	"github.com/osprey-wallet/massa-swap/abi"
)

// opTypeCallSC is the operation type tag for smart contract calls.
const opTypeCallSC uint32 = 4

// serializeCallOperation builds the signable binary content of a call
// operation. Field order is fixed by the node's deserializer; the sender
// address is bound by the signature, not the payload.
func serializeCallOperation(p CallParams, sender string) ([]byte, error) {
	if p.Target == "" {
		return nil, fmt.Errorf("call operation has no target")
	}
	if p.Function == "" {
		return nil, fmt.Errorf("call operation has no function")
	}
	if sender == "" {
		return nil, fmt.Errorf("call operation has no sender")
	}

	content := abi.NewArgs().
		U64(p.Fee).
		U64(p.Expiry).
		U32(opTypeCallSC).
		U64(p.MaxGas).
		U64(p.Coins).
		String(p.Target).
		String(p.Function).
		String(string(p.Parameter))
	return content.Bytes(), nil
}

// encodeSignature renders a raw signature in the node's textual form.
func encodeSignature(sig []byte) string {
	return base58.Encode(sig)
}
