package ethunit_test

import (
	"math/big"
	"testing"

	"github.com/fd1az/walletgate/internal/ethunit"
	"github.com/shopspring/decimal"
)

func TestFromRaw(t *testing.T) {
	// 1 ETH = 1e18 wei
	oneETH := ethunit.FromRaw(big.NewInt(1e18), 18)
	if !oneETH.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", oneETH.String())
	}

	// 1.5 ETH
	raw, _ := new(big.Int).SetString("1500000000000000000", 10)
	if got := ethunit.FromRaw(raw, 18); !got.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("expected 1.5, got %s", got.String())
	}

	// USDC-style 6 decimals
	if got := ethunit.FromRaw(big.NewInt(2500000), 6); !got.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("expected 2.5, got %s", got.String())
	}

	if got := ethunit.FromRaw(nil, 18); !got.IsZero() {
		t.Errorf("nil raw should convert to zero, got %s", got.String())
	}
}

func TestToRaw(t *testing.T) {
	raw, err := ethunit.ToRaw(decimal.RequireFromString("1.5"), 18)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want, _ := new(big.Int).SetString("1500000000000000000", 10)
	if raw.Cmp(want) != 0 {
		t.Errorf("expected %s wei, got %s", want, raw)
	}

	// More fractional digits than the unit can carry.
	if _, err := ethunit.ToRaw(decimal.RequireFromString("0.0000001"), 6); err == nil {
		t.Error("expected error for sub-unit precision")
	}
}

func TestFormat(t *testing.T) {
	raw, _ := new(big.Int).SetString("1500000000000000000", 10)

	if got := ethunit.Format(raw, 18, "ETH"); got != "1.5 ETH" {
		t.Errorf("Format = %q, want %q", got, "1.5 ETH")
	}
	if got := ethunit.FormatFixed(raw, 18, 4, "ETH"); got != "1.5000 ETH" {
		t.Errorf("FormatFixed = %q, want %q", got, "1.5000 ETH")
	}
}
