// Package ethunit converts between raw on-chain integer amounts
// (smallest unit, e.g. wei) and human-readable decimal values.
package ethunit

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var ErrTooManyDecimals = errors.New("ethunit: value has more decimal places than the unit allows")

// FromRaw converts a smallest-unit integer into a decimal using the
// given number of decimals (18 for wei -> ether).
func FromRaw(raw *big.Int, decimals int32) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -decimals)
}

// ToRaw converts a decimal value into the smallest-unit integer.
// Fails if the value carries more fractional digits than the unit holds.
func ToRaw(value decimal.Decimal, decimals int32) (*big.Int, error) {
	shifted := value.Shift(decimals)
	if !shifted.IsInteger() {
		return nil, ErrTooManyDecimals
	}
	return shifted.BigInt(), nil
}

// Format renders a raw amount with its symbol:
// Format(1500000000000000000, 18, "ETH") -> "1.5 ETH".
func Format(raw *big.Int, decimals int32, symbol string) string {
	return fmt.Sprintf("%s %s", FromRaw(raw, decimals).String(), symbol)
}

// FormatFixed renders a raw amount with a fixed number of display
// places, for aligned table output.
func FormatFixed(raw *big.Int, decimals int32, places int32, symbol string) string {
	return fmt.Sprintf("%s %s", FromRaw(raw, decimals).StringFixed(places), symbol)
}
