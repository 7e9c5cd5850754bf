// Package abi implements the Massa VM argument wire format used by smart
// contract calls: fixed-width little-endian integers, byte-length-prefixed
// strings and byte-length-prefixed arrays.
//
// Array prefixes hold the total byte size of the serialized elements, not the
// element count. Strings inside arrays carry their own length prefix.
package abi

import (
	"encoding/binary"

	"github.com/holiman/uint256"
)

const (
	u32Size  = 4
	u64Size  = 8
	u256Size = 32
	boolSize = 1
)

// Args builds a binary argument payload for a contract call. Methods append in
// call order and return the receiver so payloads can be built fluently.
type Args struct {
	buf []byte
}

// NewArgs returns an empty argument builder.
func NewArgs() *Args {
	return &Args{buf: make([]byte, 0, 64)}
}

// U32 appends a 4-byte little-endian unsigned integer.
func (a *Args) U32(v uint32) *Args {
	a.buf = binary.LittleEndian.AppendUint32(a.buf, v)
	return a
}

// U64 appends an 8-byte little-endian unsigned integer.
func (a *Args) U64(v uint64) *Args {
	a.buf = binary.LittleEndian.AppendUint64(a.buf, v)
	return a
}

// U256 appends a 32-byte little-endian unsigned integer. Byte 0 is the least
// significant byte; the value is zero-padded to the full width.
func (a *Args) U256(v *uint256.Int) *Args {
	be := v.Bytes32()
	le := make([]byte, u256Size)
	for i := 0; i < u256Size; i++ {
		le[i] = be[u256Size-1-i]
	}
	a.buf = append(a.buf, le...)
	return a
}

// Bool appends a single byte, 1 for true and 0 for false.
func (a *Args) Bool(v bool) *Args {
	if v {
		a.buf = append(a.buf, 1)
	} else {
		a.buf = append(a.buf, 0)
	}
	return a
}

// String appends a 4-byte little-endian byte-length prefix followed by the
// UTF-8 bytes. The prefix counts encoded bytes, not characters.
func (a *Args) String(s string) *Args {
	a.buf = binary.LittleEndian.AppendUint32(a.buf, uint32(len(s)))
	a.buf = append(a.buf, s...)
	return a
}

// U64Array appends a byte-size prefix (8 x len) followed by the little-endian
// elements.
func (a *Args) U64Array(vs []uint64) *Args {
	a.buf = binary.LittleEndian.AppendUint32(a.buf, uint32(len(vs)*u64Size))
	for _, v := range vs {
		a.buf = binary.LittleEndian.AppendUint64(a.buf, v)
	}
	return a
}

// U256Array appends a byte-size prefix (32 x len) followed by the
// little-endian elements.
func (a *Args) U256Array(vs []*uint256.Int) *Args {
	a.buf = binary.LittleEndian.AppendUint32(a.buf, uint32(len(vs)*u256Size))
	for _, v := range vs {
		a.U256(v)
	}
	return a
}

// BoolArray appends a byte-size prefix (1 x len) followed by one byte per
// element.
func (a *Args) BoolArray(vs []bool) *Args {
	a.buf = binary.LittleEndian.AppendUint32(a.buf, uint32(len(vs)))
	for _, v := range vs {
		if v {
			a.buf = append(a.buf, 1)
		} else {
			a.buf = append(a.buf, 0)
		}
	}
	return a
}

// StringArray appends a byte-size prefix covering every serialized element
// (each element carries its own length prefix) followed by the elements.
func (a *Args) StringArray(ss []string) *Args {
	total := 0
	for _, s := range ss {
		total += u32Size + len(s)
	}
	a.buf = binary.LittleEndian.AppendUint32(a.buf, uint32(total))
	for _, s := range ss {
		a.buf = binary.LittleEndian.AppendUint32(a.buf, uint32(len(s)))
		a.buf = append(a.buf, s...)
	}
	return a
}

// RawBytes appends bytes verbatim with no prefix.
func (a *Args) RawBytes(b []byte) *Args {
	a.buf = append(a.buf, b...)
	return a
}

// Bytes returns the serialized payload.
func (a *Args) Bytes() []byte {
	return a.buf
}
