package abi

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"
)

// CodecError reports a malformed or truncated payload. A read that would run
// past the end of the buffer is always an error, never zero-filled.
type CodecError struct {
	What   string
	Offset int
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("abi: %s at offset %d", e.What, e.Offset)
}

// Reader consumes a binary payload produced by the Args convention. All reads
// are bounds checked against the supplied buffer.
type Reader struct {
	buf []byte
	off int
}

// NewReader wraps buf for decoding. The reader does not copy the buffer.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

func (r *Reader) take(n int, what string) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, &CodecError{What: "truncated " + what, Offset: r.off}
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// U32 reads a 4-byte little-endian unsigned integer.
func (r *Reader) U32() (uint32, error) {
	b, err := r.take(u32Size, "u32")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// U64 reads an 8-byte little-endian unsigned integer.
func (r *Reader) U64() (uint64, error) {
	b, err := r.take(u64Size, "u64")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// U256 reads a 32-byte little-endian unsigned integer.
func (r *Reader) U256() (*uint256.Int, error) {
	b, err := r.take(u256Size, "u256")
	if err != nil {
		return nil, err
	}
	be := make([]byte, u256Size)
	for i := 0; i < u256Size; i++ {
		be[i] = b[u256Size-1-i]
	}
	return new(uint256.Int).SetBytes(be), nil
}

// Bool reads a single byte. Any non-zero value decodes as true.
func (r *Reader) Bool() (bool, error) {
	b, err := r.take(boolSize, "bool")
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

// String reads a byte-length-prefixed UTF-8 string.
func (r *Reader) String() (string, error) {
	n, err := r.U32()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n), "string body")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// body reads an array body: the byte-size prefix, then exactly that many
// bytes. Element parsing happens on the returned sub-reader.
func (r *Reader) body(what string) (*Reader, error) {
	n, err := r.U32()
	if err != nil {
		return nil, err
	}
	b, err := r.take(int(n), what)
	if err != nil {
		return nil, err
	}
	return &Reader{buf: b}, nil
}

// U64Array reads a byte-size-prefixed array of u64 elements. The body must
// divide evenly into 8-byte elements.
func (r *Reader) U64Array() ([]uint64, error) {
	body, err := r.body("u64 array body")
	if err != nil {
		return nil, err
	}
	if len(body.buf)%u64Size != 0 {
		return nil, &CodecError{What: "u64 array body not a multiple of 8", Offset: r.off}
	}
	out := make([]uint64, 0, len(body.buf)/u64Size)
	for body.Remaining() > 0 {
		v, err := body.U64()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// U256Array reads a byte-size-prefixed array of u256 elements.
func (r *Reader) U256Array() ([]*uint256.Int, error) {
	body, err := r.body("u256 array body")
	if err != nil {
		return nil, err
	}
	if len(body.buf)%u256Size != 0 {
		return nil, &CodecError{What: "u256 array body not a multiple of 32", Offset: r.off}
	}
	out := make([]*uint256.Int, 0, len(body.buf)/u256Size)
	for body.Remaining() > 0 {
		v, err := body.U256()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// BoolArray reads a byte-size-prefixed array of one-byte booleans.
func (r *Reader) BoolArray() ([]bool, error) {
	body, err := r.body("bool array body")
	if err != nil {
		return nil, err
	}
	out := make([]bool, 0, len(body.buf))
	for body.Remaining() > 0 {
		v, err := body.Bool()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// StringArray reads a byte-size-prefixed array of length-prefixed strings.
// Elements are parsed out of the body until it is exhausted; a string whose
// declared length crosses the body end is a CodecError.
func (r *Reader) StringArray() ([]string, error) {
	body, err := r.body("string array body")
	if err != nil {
		return nil, err
	}
	var out []string
	for body.Remaining() > 0 {
		s, err := body.String()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
