package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

var (
	ErrEmptyWord    = errors.New("empty word")
	ErrWordOverflow = errors.New("word exceeds 256 bits")
	ErrInvalidWord  = errors.New("invalid word")
)

// ParseWord parses a 256-bit unsigned integer written in decimal or as
// 0x-prefixed hex. Hex input may be zero padded up to 32 bytes.
func ParseWord(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyWord
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		digits := s[2:]
		if digits == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidWord, s)
		}
		if len(digits)%2 == 1 {
			digits = "0" + digits
		}
		b, err := hex.DecodeString(digits)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidWord, s, err)
		}
		if len(b) > 32 {
			return nil, fmt.Errorf("%w: %q", ErrWordOverflow, s)
		}
		return new(uint256.Int).SetBytes(b), nil
	}

	z := new(uint256.Int)
	if err := z.SetFromDecimal(s); err != nil {
		if errors.Is(err, uint256.ErrBig256Range) {
			return nil, fmt.Errorf("%w: %q", ErrWordOverflow, s)
		}
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidWord, s, err)
	}
	return z, nil
}

// MustParseWord is ParseWord for constants and tests.
func MustParseWord(s string) *uint256.Int {
	z, err := ParseWord(s)
	if err != nil {
		panic(err)
	}
	return z
}

// HashWord returns the hex sha256 of the word's 32-byte big-endian form.
// Seeds are logged and reported by this hash only.
func HashWord(w *uint256.Int) string {
	if w == nil {
		return ""
	}
	b := w.Bytes32()
	hash := sha256.Sum256(b[:])
	return hex.EncodeToString(hash[:])
}
