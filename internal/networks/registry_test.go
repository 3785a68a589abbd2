package networks

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestParseChainID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    uint64
		wantErr bool
	}{
		{name: "hex mainnet", input: "0x1", want: 1},
		{name: "hex sepolia", input: "0xaa36a7", want: 11155111},
		{name: "hex uppercase prefix", input: "0X89", want: 137},
		{name: "decimal", input: "42161", want: 42161},
		{name: "whitespace", input: "  0xa  ", want: 10},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "0xzz", wantErr: true},
		{name: "bare prefix", input: "0x", wantErr: true},
		{name: "negative", input: "-5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChainID(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseChainID(%q) expected error, got %d", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseChainID(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseChainID(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatChainID(t *testing.T) {
	if got := FormatChainID(1); got != "0x1" {
		t.Errorf("FormatChainID(1) = %q, want %q", got, "0x1")
	}
	if got := FormatChainID(11155111); got != "0xaa36a7" {
		t.Errorf("FormatChainID(11155111) = %q, want %q", got, "0xaa36a7")
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(Network{ChainID: 31337, Name: "Localnet", NativeSymbol: "ETH", NativeDecimals: 18})

	n, ok := r.Get(31337)
	if !ok {
		t.Fatal("expected chain 31337 to be registered")
	}
	if n.Name != "Localnet" {
		t.Errorf("expected name Localnet, got %q", n.Name)
	}

	if _, ok := r.Get(1); ok {
		t.Error("chain 1 should not be registered in an empty registry")
	}
	if r.IsSupported(1) {
		t.Error("IsSupported(1) should be false")
	}
	if !r.IsSupported(31337) {
		t.Error("IsSupported(31337) should be true")
	}
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(Ethereum)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	r.Register(Ethereum)
}

func TestRegistry_AllOrdered(t *testing.T) {
	r := DefaultRegistry()

	all := r.All()
	if len(all) != r.Len() {
		t.Fatalf("All() returned %d networks, Len() is %d", len(all), r.Len())
	}

	for i := 1; i < len(all); i++ {
		if all[i-1].ChainID >= all[i].ChainID {
			t.Fatalf("All() not ordered by chain id: %d before %d", all[i-1].ChainID, all[i].ChainID)
		}
	}
}

func TestDefaultRegistry_WellKnown(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		chainID uint64
		name    string
	}{
		{ChainIDEthereum, "Ethereum Mainnet"},
		{ChainIDOptimism, "OP Mainnet"},
		{ChainIDPolygon, "Polygon PoS"},
		{ChainIDBase, "Base"},
		{ChainIDArbitrum, "Arbitrum One"},
		{ChainIDSepolia, "Sepolia"},
	}

	for _, tt := range tests {
		n, ok := r.Get(tt.chainID)
		if !ok {
			t.Errorf("chain %d missing from default registry", tt.chainID)
			continue
		}
		if n.Name != tt.name {
			t.Errorf("chain %d: name %q, want %q", tt.chainID, n.Name, tt.name)
		}
	}

	// Mainnet carries the canonical USDC deployment.
	eth := r.MustGet(ChainIDEthereum)
	usdc, ok := eth.Contract(ContractUSDC)
	if !ok {
		t.Fatal("mainnet should list a USDC contract")
	}
	if usdc != common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48") {
		t.Errorf("unexpected mainnet USDC address: %s", usdc.Hex())
	}
}

func TestRegistry_ReadsAreCopies(t *testing.T) {
	r := DefaultRegistry()

	n, _ := r.Get(ChainIDEthereum)
	n.Contracts[ContractUSDC] = common.Address{}
	n.Name = "mutated"

	again, _ := r.Get(ChainIDEthereum)
	if again.Name != "Ethereum Mainnet" {
		t.Error("mutating a returned network leaked into the registry")
	}
	if again.Contracts[ContractUSDC] == (common.Address{}) {
		t.Error("mutating a returned contracts map leaked into the registry")
	}
}
