// Package codec converts between the chain's hexadecimal wire encoding and
// the store's compact binary / decimal-string encoding.
package codec

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// HexToBytes decodes a hex string, with or without a leading 0x, into bytes.
func HexToBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("codec: malformed hex %q: %w", s, err)
	}
	return b, nil
}

// BytesToHex encodes bytes as a 0x-prefixed hex string.
func BytesToHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// HexToUint64 parses a 0x-prefixed or bare hex string into a uint64.
func HexToUint64(s string) (uint64, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	if trimmed == "" {
		return 0, nil
	}
	v, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return 0, fmt.Errorf("codec: malformed hex %q", s)
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("codec: hex %q overflows uint64", s)
	}
	return v.Uint64(), nil
}

// Uint64ToHex renders a uint64 as a 0x-prefixed hex string.
func Uint64ToHex(n uint64) string {
	return "0x" + new(big.Int).SetUint64(n).Text(16)
}

// HexToDecimalString converts a 0x-prefixed or bare hex big integer to its
// decimal string representation. The store keeps numbers as decimal text so
// that backends with no native 64-bit (or wider) integer type never have to
// worry about overflow.
func HexToDecimalString(s string) (string, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	if trimmed == "" {
		return "0", nil
	}
	v, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return "", fmt.Errorf("codec: malformed hex %q", s)
	}
	return v.String(), nil
}

// DecimalStringToHex converts a decimal string back into a 0x-prefixed hex
// big integer.
func DecimalStringToHex(s string) (string, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return "", fmt.Errorf("codec: malformed decimal string %q", s)
	}
	return "0x" + v.Text(16), nil
}

// LeftPadHex zero-pads the hex body of s (after stripping any 0x prefix) on
// the left until it is n characters long. It never truncates.
func LeftPadHex(s string, n int) string {
	body := strings.TrimPrefix(s, "0x")
	if len(body) >= n {
		return "0x" + body
	}
	return "0x" + strings.Repeat("0", n-len(body)) + body
}

// DataLEToUint128 reads the first 16 bytes of data as a little-endian u128
// and renders it as a decimal string. If data has fewer than 16 bytes, the
// missing high-order bytes are treated as zero (the value is zero-padded on
// the right before decoding).
func DataLEToUint128(data []byte) string {
	buf := make([]byte, 16)
	copy(buf, data)

	// buf is little-endian; reverse into big-endian for big.Int.SetBytes.
	be := make([]byte, 16)
	for i, b := range buf {
		be[15-i] = b
	}
	return new(big.Int).SetBytes(be).String()
}

// PadLeft pads b with zero bytes on the left to reach length, leaving longer
// slices untouched.
func PadLeft(b []byte, length int) []byte {
	if len(b) >= length {
		return b
	}
	out := make([]byte, length)
	copy(out[length-len(b):], b)
	return out
}

// PadRight pads b with zero bytes on the right to reach length, leaving
// longer slices untouched.
func PadRight(b []byte, length int) []byte {
	if len(b) >= length {
		return b
	}
	out := make([]byte, length)
	copy(out, b)
	return out
}

// CompareBytes compares two byte slices lexicographically, returning -1, 0,
// or 1 the way bytes.Compare does.
func CompareBytes(a, b []byte) int {
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// HasPrefix reports whether b starts with the byte sequence prefix.
func HasPrefix(b, prefix []byte) bool {
	if len(prefix) > len(b) {
		return false
	}
	return CompareBytes(b[:len(prefix)], prefix) == 0
}
