// Package networks holds the static descriptors of supported blockchain
// networks: an immutable, process-lifetime mapping from chain id to
// network configuration.
package networks

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Network describes one supported chain.
type Network struct {
	ChainID        uint64
	Name           string
	ShortName      string
	NativeSymbol   string
	NativeDecimals int32
	RPCURL         string
	ExplorerURL    string

	// Contracts maps a well-known contract label (e.g. "USDC", "WETH")
	// to its deployed address on this chain.
	Contracts map[string]common.Address
}

// Contract returns the address registered under label.
func (n Network) Contract(label string) (common.Address, bool) {
	addr, ok := n.Contracts[label]
	return addr, ok
}

// String renders "Name (chain id)".
func (n Network) String() string {
	return fmt.Sprintf("%s (%d)", n.Name, n.ChainID)
}

// clone deep-copies the network so registry reads stay immutable.
func (n Network) clone() Network {
	out := n
	if n.Contracts != nil {
		out.Contracts = make(map[string]common.Address, len(n.Contracts))
		for k, v := range n.Contracts {
			out.Contracts[k] = v
		}
	}
	return out
}

// ParseChainID parses a chain id as emitted by wallet providers: a
// hexadecimal "0x..." string or a plain decimal string.
func ParseChainID(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("networks: empty chain id")
	}

	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}

	id, ok := new(big.Int).SetString(s, base)
	if !ok {
		return 0, fmt.Errorf("networks: malformed chain id %q", s)
	}
	if !id.IsUint64() {
		return 0, fmt.Errorf("networks: chain id %q out of range", s)
	}

	return id.Uint64(), nil
}

// FormatChainID renders a chain id in the hexadecimal wire form used by
// wallet providers.
func FormatChainID(id uint64) string {
	return fmt.Sprintf("0x%x", id)
}
