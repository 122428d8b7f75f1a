package dex

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// WordSize is the fixed argument alignment of the contract ABI.
const WordSize = 32

// Uint256Word encodes an unsigned integer as a big-endian 32-byte word.
// Values wider than 256 bits are truncated to the low 256 bits, matching
// on-chain arithmetic.
func Uint256Word(v *big.Int) []byte {
	word := make([]byte, WordSize)
	if v == nil || v.Sign() <= 0 {
		return word
	}
	b := v.Bytes()
	if len(b) > WordSize {
		b = b[len(b)-WordSize:]
	}
	copy(word[WordSize-len(b):], b)
	return word
}

// AddressWord left-pads a 20-byte address into a 32-byte word.
func AddressWord(addr common.Address) []byte {
	word := make([]byte, WordSize)
	copy(word[12:], addr.Bytes())
	return word
}

// OffsetWord encodes a head-relative byte offset to a dynamic argument.
func OffsetWord(offset int) []byte {
	return Uint256Word(big.NewInt(int64(offset)))
}

// AddressArrayTail encodes the tail of a dynamic address[] argument: the
// length word followed by one word per element. The head offset pointing at
// it is the caller's responsibility (it is a fixed constant per operation
// layout).
func AddressArrayTail(addrs []common.Address) []byte {
	out := make([]byte, 0, WordSize*(1+len(addrs)))
	out = append(out, Uint256Word(big.NewInt(int64(len(addrs))))...)
	for _, a := range addrs {
		out = append(out, AddressWord(a)...)
	}
	return out
}

// EncodeCall assembles calldata from a selector and pre-encoded words.
func EncodeCall(sel Selector, words ...[]byte) []byte {
	size := 4
	for _, w := range words {
		size += len(w)
	}
	out := make([]byte, 0, size)
	out = append(out, sel.Bytes()...)
	for _, w := range words {
		out = append(out, w...)
	}
	return out
}

// Decoding. Every decoder returns ok=false for the empty-result sentinel (a
// call against a non-contract or a reverted read returns zero bytes) instead
// of erroring: callers treat absent as a domain state, not a fault.

// DecodeUint256 reads the first 32-byte word as an unsigned integer.
func DecodeUint256(data []byte) (*big.Int, bool) {
	if len(data) < WordSize {
		return nil, false
	}
	return new(big.Int).SetBytes(data[:WordSize]), true
}

// DecodeBool reads the first word as a boolean.
func DecodeBool(data []byte) (bool, bool) {
	v, ok := DecodeUint256(data)
	if !ok {
		return false, false
	}
	return v.Sign() != 0, true
}

// DecodeAddress reads the first word as a right-aligned 20-byte address.
func DecodeAddress(data []byte) (common.Address, bool) {
	if len(data) < WordSize {
		return common.Address{}, false
	}
	return common.BytesToAddress(data[12:WordSize]), true
}

// DecodeReserves decodes a pair's getReserves() result: reserve0, reserve1
// and the sync timestamp, one word each. The timestamp is discarded.
func DecodeReserves(data []byte) (reserve0, reserve1 *big.Int, ok bool) {
	if len(data) < 2*WordSize {
		return nil, nil, false
	}
	reserve0 = new(big.Int).SetBytes(data[:WordSize])
	reserve1 = new(big.Int).SetBytes(data[WordSize : 2*WordSize])
	return reserve0, reserve1, true
}

// DecodeUint256Array decodes a dynamic uint256[] return value
// (offset word, length word, elements).
func DecodeUint256Array(data []byte) ([]*big.Int, bool) {
	if len(data) < WordSize {
		return nil, false
	}
	offset, ok := wordAsInt(data, 0)
	if !ok || offset+WordSize > len(data) {
		return nil, false
	}
	length := new(big.Int).SetBytes(data[offset : offset+WordSize])
	if !length.IsInt64() {
		return nil, false
	}
	n := int(length.Int64())
	if n < 0 || offset+WordSize+n*WordSize > len(data) {
		return nil, false
	}

	out := make([]*big.Int, n)
	base := offset + WordSize
	for i := 0; i < n; i++ {
		out[i] = new(big.Int).SetBytes(data[base+i*WordSize : base+(i+1)*WordSize])
	}
	return out, true
}

// DecodeString decodes a string return value. Well-formed tokens return the
// head-tail ABI encoding (offset, length, bytes); some early contracts return
// a bytes32 with the text inline. Both forms are tolerated and embedded zero
// bytes are stripped, since callers only use the result for display and
// lexical checks.
func DecodeString(data []byte) (string, bool) {
	if len(data) == 0 {
		return "", false
	}

	if len(data) >= 2*WordSize {
		if offset, ok := wordAsInt(data, 0); ok && offset == WordSize {
			length := new(big.Int).SetBytes(data[WordSize : 2*WordSize])
			if length.IsInt64() {
				n := int(length.Int64())
				if n >= 0 && 2*WordSize+n <= len(data) {
					return stripZeroBytes(data[2*WordSize : 2*WordSize+n]), true
				}
			}
		}
	}

	// Inline bytes32 form.
	if len(data) >= WordSize {
		return stripZeroBytes(data[:WordSize]), true
	}
	return stripZeroBytes(data), true
}

func wordAsInt(data []byte, wordIndex int) (int, bool) {
	start := wordIndex * WordSize
	if start+WordSize > len(data) {
		return 0, false
	}
	v := new(big.Int).SetBytes(data[start : start+WordSize])
	if !v.IsInt64() || v.Int64() < 0 || v.Int64() > int64(len(data)) {
		return 0, false
	}
	return int(v.Int64()), true
}

func stripZeroBytes(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		if c != 0 {
			sb.WriteByte(c)
		}
	}
	return strings.TrimSpace(sb.String())
}
