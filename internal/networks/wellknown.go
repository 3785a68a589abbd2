package networks

import "github.com/ethereum/go-ethereum/common"

// Chain IDs
const (
	ChainIDEthereum = 1
	ChainIDOptimism = 10
	ChainIDPolygon  = 137
	ChainIDBase     = 8453
	ChainIDArbitrum = 42161
	ChainIDSepolia  = 11155111
)

// Well-known contract labels used as Contracts map keys.
const (
	ContractUSDC = "USDC"
	ContractWETH = "WETH"
)

// Ethereum is the canonical mainnet descriptor.
var Ethereum = Network{
	ChainID:        ChainIDEthereum,
	Name:           "Ethereum Mainnet",
	ShortName:      "eth",
	NativeSymbol:   "ETH",
	NativeDecimals: 18,
	RPCURL:         "https://cloudflare-eth.com",
	ExplorerURL:    "https://etherscan.io",
	Contracts: map[string]common.Address{
		ContractUSDC: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		ContractWETH: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
	},
}

var Optimism = Network{
	ChainID:        ChainIDOptimism,
	Name:           "OP Mainnet",
	ShortName:      "oeth",
	NativeSymbol:   "ETH",
	NativeDecimals: 18,
	RPCURL:         "https://mainnet.optimism.io",
	ExplorerURL:    "https://optimistic.etherscan.io",
	Contracts: map[string]common.Address{
		ContractUSDC: common.HexToAddress("0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85"),
		ContractWETH: common.HexToAddress("0x4200000000000000000000000000000000000006"),
	},
}

var Polygon = Network{
	ChainID:        ChainIDPolygon,
	Name:           "Polygon PoS",
	ShortName:      "matic",
	NativeSymbol:   "POL",
	NativeDecimals: 18,
	RPCURL:         "https://polygon-rpc.com",
	ExplorerURL:    "https://polygonscan.com",
	Contracts: map[string]common.Address{
		ContractUSDC: common.HexToAddress("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359"),
		ContractWETH: common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619"),
	},
}

var Base = Network{
	ChainID:        ChainIDBase,
	Name:           "Base",
	ShortName:      "base",
	NativeSymbol:   "ETH",
	NativeDecimals: 18,
	RPCURL:         "https://mainnet.base.org",
	ExplorerURL:    "https://basescan.org",
	Contracts: map[string]common.Address{
		ContractUSDC: common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
		ContractWETH: common.HexToAddress("0x4200000000000000000000000000000000000006"),
	},
}

var Arbitrum = Network{
	ChainID:        ChainIDArbitrum,
	Name:           "Arbitrum One",
	ShortName:      "arb1",
	NativeSymbol:   "ETH",
	NativeDecimals: 18,
	RPCURL:         "https://arb1.arbitrum.io/rpc",
	ExplorerURL:    "https://arbiscan.io",
	Contracts: map[string]common.Address{
		ContractUSDC: common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"),
		ContractWETH: common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"),
	},
}

var Sepolia = Network{
	ChainID:        ChainIDSepolia,
	Name:           "Sepolia",
	ShortName:      "sep",
	NativeSymbol:   "ETH",
	NativeDecimals: 18,
	RPCURL:         "https://rpc.sepolia.org",
	ExplorerURL:    "https://sepolia.etherscan.io",
	Contracts: map[string]common.Address{
		ContractWETH: common.HexToAddress("0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14"),
	},
}

// DefaultRegistry returns a registry pre-populated with the well-known
// networks.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(Ethereum)
	r.Register(Optimism)
	r.Register(Polygon)
	r.Register(Base)
	r.Register(Arbitrum)
	r.Register(Sepolia)

	return r
}
