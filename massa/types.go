// Package massa is the node-facing client: read-only contract calls,
// operation submission, confirmation status queries and balance reads over
// the node's JSON-RPC API, with endpoint failover.
package massa

import (
	"fmt"
	"strconv"
	"strings"
)

// NetworkError wraps a failed or timed-out remote call.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("node %s failed: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Signer provides the signing material for operation submission. It is owned
// by the wallet's key-management layer; this package never sees raw keys.
type Signer interface {
	// Address returns the sender account address.
	Address() string
	// PublicKey returns the textual public key attached to submissions.
	PublicKey() string
	// Sign signs the serialized operation content.
	Sign(content []byte) ([]byte, error)
}

// ReadOnlyCallParams describes a contract call executed without submitting an
// operation.
type ReadOnlyCallParams struct {
	Target    string
	Function  string
	Parameter []byte
	MaxGas    uint64
	Caller    string
}

// CallParams describes a state-changing contract call operation.
type CallParams struct {
	Target    string
	Function  string
	Parameter []byte
	// Coins is the native value attached to the call, in smallest units.
	Coins  uint64
	Fee    uint64
	MaxGas uint64
	// Expiry is the period after which the network rejects the operation.
	Expiry uint64
}

// OperationStatus is the chain's view of a submitted operation.
type OperationStatus struct {
	ID      string
	IsFinal bool
	// Succeeded is nil while execution status is unknown.
	Succeeded *bool
	// Error carries the chain's failure message, when available.
	Error string
}

// byteArray marshals as a JSON array of numbers, the node's wire shape for
// binary payloads (encoding/json would base64 a plain []byte).
type byteArray []byte

func (b byteArray) MarshalJSON() ([]byte, error) {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(int(v)))
	}
	sb.WriteByte(']')
	return []byte(sb.String()), nil
}

func (b *byteArray) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*b = nil
		return nil
	}
	if len(trimmed) < 2 || trimmed[0] != '[' || trimmed[len(trimmed)-1] != ']' {
		return fmt.Errorf("byte array: expected JSON array, got %q", trimmed)
	}
	inner := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if inner == "" {
		*b = []byte{}
		return nil
	}
	parts := strings.Split(inner, ",")
	out := make([]byte, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 255 {
			return fmt.Errorf("byte array: invalid element %q", p)
		}
		out = append(out, byte(n))
	}
	*b = out
	return nil
}
