// Package amount centralizes every conversion between human decimal strings
// and on-chain base-unit integers. On-chain amounts are integers; a rounding
// mistake here is a fund-loss risk, so nothing else in the repo is allowed to
// do its own digit arithmetic.
package amount

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	xerr "github.com/Dev72112/xlamaexchange/internal/errors"
)

var decimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// ToSmallestUnit converts a human decimal amount ("1.5") into the token's
// smallest-unit integer string ("1500000" at 6 decimals). Fractional digits
// beyond the token's precision are truncated, never rounded up, so
// ("0.0001", 2) yields "0". The result is a plain base-10 string with no
// leading zeros and is never shorter than "0".
func ToSmallestUnit(decimal string, decimals int) (string, error) {
	clean := strings.TrimSpace(decimal)
	if !decimalPattern.MatchString(clean) {
		return "", xerr.New(xerr.CodeUsage, fmt.Sprintf("amount must be a plain decimal like 1.23, got %q", decimal))
	}
	if decimals < 0 {
		return "", xerr.New(xerr.CodeUsage, "token decimals must be >= 0")
	}

	parts := strings.SplitN(clean, ".", 2)
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if len(fracPart) > decimals {
		fracPart = fracPart[:decimals]
	}
	fracPart = fracPart + strings.Repeat("0", decimals-len(fracPart))

	combined := strings.TrimLeft(intPart+fracPart, "0")
	if combined == "" {
		return "0", nil
	}
	if _, ok := new(big.Int).SetString(combined, 10); !ok {
		return "", xerr.New(xerr.CodeInternal, "amount conversion produced a non-integer result")
	}
	return combined, nil
}

// FromSmallestUnit renders a base-unit integer string as a human decimal,
// trimming trailing fractional zeros.
func FromSmallestUnit(baseUnits string, decimals int) (string, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(baseUnits), 10)
	if !ok || n.Sign() < 0 {
		return "", xerr.New(xerr.CodeUsage, fmt.Sprintf("base units must be a non-negative integer string, got %q", baseUnits))
	}
	if decimals <= 0 {
		return n.String(), nil
	}

	s := n.String()
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	intPart := s[:len(s)-decimals]
	fracPart := strings.TrimRight(s[len(s)-decimals:], "0")
	if fracPart == "" {
		return intPart, nil
	}
	return intPart + "." + fracPart, nil
}

// ParseBaseUnits validates and normalizes a base-unit integer string.
func ParseBaseUnits(v string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(v), 10)
	if !ok {
		return nil, xerr.New(xerr.CodeUsage, fmt.Sprintf("invalid base-unit amount %q", v))
	}
	if n.Sign() < 0 {
		return nil, xerr.New(xerr.CodeUsage, "amount must be non-negative")
	}
	return n, nil
}

// MaxUint returns 2^bits-1 as a decimal string, the unlimited-approval value
// for a token whose allowance slot is `bits` wide. Decimal notation only;
// callers must never see scientific notation on an approval payload.
func MaxUint(bits int) (string, error) {
	if bits <= 0 || bits > 256 || bits%8 != 0 {
		return "", xerr.New(xerr.CodeUsage, fmt.Sprintf("unsupported integer width %d", bits))
	}
	max := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	max.Sub(max, big.NewInt(1))
	return max.String(), nil
}
