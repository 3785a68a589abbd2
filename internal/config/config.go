// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/fd1az/walletgate/internal/networks"
)

// Wallet provider modes.
const (
	ModeBridge = "bridge" // remote browser wallet over the WebSocket bridge
	ModeDev    = "dev"    // in-process signing wallet for local development
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Networks  NetworksConfig  `mapstructure:"networks"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Health    HealthConfig    `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// WalletConfig holds wallet provider configuration.
type WalletConfig struct {
	Mode           string        `mapstructure:"mode"` // bridge | dev
	BridgeURL      string        `mapstructure:"bridge_url"`
	AutoConnect    bool          `mapstructure:"auto_connect"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	PromptTimeout  time.Duration `mapstructure:"prompt_timeout"` // user-facing approval steps
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	DevChainID     uint64        `mapstructure:"dev_chain_id"`
	DevPrivateKey  string        `mapstructure:"dev_private_key"`
	DevRPCURL      string        `mapstructure:"dev_rpc_url"`
	TUIMode        bool          `mapstructure:"-"` // Set at runtime, not from config file
}

// IsBridgeMode reports whether the wallet provider is the WebSocket bridge.
func (c *WalletConfig) IsBridgeMode() bool { return c.Mode == ModeBridge }

// IsDevMode reports whether the wallet provider is the in-process dev wallet.
func (c *WalletConfig) IsDevMode() bool { return c.Mode == ModeDev }

// NetworksConfig extends or restricts the built-in network registry.
type NetworksConfig struct {
	Allowed []uint64       `mapstructure:"allowed"` // restrict supported chains to this set (empty = all registered)
	Extra   []NetworkEntry `mapstructure:"extra"`
}

// NetworkEntry declares an additional supported network.
type NetworkEntry struct {
	ChainID        uint64            `mapstructure:"chain_id"`
	Name           string            `mapstructure:"name"`
	ShortName      string            `mapstructure:"short_name"`
	NativeSymbol   string            `mapstructure:"native_symbol"`
	NativeDecimals int32             `mapstructure:"native_decimals"`
	RPCURL         string            `mapstructure:"rpc_url"`
	ExplorerURL    string            `mapstructure:"explorer_url"`
	Contracts      map[string]string `mapstructure:"contracts"`
}

// Network converts the entry into a registry Network. Zero decimals means 18,
// an empty symbol means ETH.
func (e NetworkEntry) Network() networks.Network {
	n := networks.Network{
		ChainID:        e.ChainID,
		Name:           e.Name,
		ShortName:      e.ShortName,
		NativeSymbol:   e.NativeSymbol,
		NativeDecimals: e.NativeDecimals,
		RPCURL:         e.RPCURL,
		ExplorerURL:    e.ExplorerURL,
	}
	if n.NativeSymbol == "" {
		n.NativeSymbol = "ETH"
	}
	if n.NativeDecimals == 0 {
		n.NativeDecimals = 18
	}
	if len(e.Contracts) > 0 {
		n.Contracts = make(map[string]common.Address, len(e.Contracts))
		for label, addr := range e.Contracts {
			n.Contracts[label] = common.HexToAddress(addr)
		}
	}
	return n
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// HealthConfig holds health check server configuration.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("WALLETGATE")
	v.AutomaticEnv()

	// Bind env vars to config keys
	bindEnvVars(v)

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "WALLETGATE_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "WALLETGATE_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "WALLETGATE_LOG_LEVEL", "LOG_LEVEL")

	// Wallet
	v.BindEnv("wallet.mode", "WALLETGATE_MODE", "WALLET_MODE")
	v.BindEnv("wallet.bridge_url", "WALLETGATE_BRIDGE_URL", "WALLET_BRIDGE_URL")
	v.BindEnv("wallet.auto_connect", "WALLETGATE_AUTO_CONNECT")
	v.BindEnv("wallet.request_timeout", "WALLETGATE_REQUEST_TIMEOUT")
	v.BindEnv("wallet.dev_chain_id", "WALLETGATE_DEV_CHAIN_ID")
	v.BindEnv("wallet.dev_private_key", "WALLETGATE_DEV_PRIVATE_KEY", "DEV_PRIVATE_KEY")
	v.BindEnv("wallet.dev_rpc_url", "WALLETGATE_DEV_RPC_URL")

	// Telemetry
	v.BindEnv("telemetry.enabled", "WALLETGATE_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "WALLETGATE_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "WALLETGATE_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")

	// Health
	v.BindEnv("health.enabled", "WALLETGATE_HEALTH_ENABLED")
	v.BindEnv("health.port", "WALLETGATE_HEALTH_PORT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "walletgate")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Wallet defaults
	v.SetDefault("wallet.mode", ModeBridge)
	v.SetDefault("wallet.auto_connect", false)
	v.SetDefault("wallet.request_timeout", "30s")
	v.SetDefault("wallet.prompt_timeout", "2m")
	v.SetDefault("wallet.max_reconnects", 0) // infinite
	v.SetDefault("wallet.initial_backoff", "1s")
	v.SetDefault("wallet.max_backoff", "30s")
	v.SetDefault("wallet.dev_chain_id", networks.ChainIDSepolia)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "walletgate")
	v.SetDefault("telemetry.prometheus_port", 9090)

	// Health defaults
	v.SetDefault("health.enabled", true)
	v.SetDefault("health.port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Wallet.Mode {
	case ModeBridge:
		if c.Wallet.BridgeURL == "" {
			return fmt.Errorf("wallet.bridge_url is required in bridge mode")
		}
	case ModeDev:
		if c.Wallet.DevChainID == 0 {
			return fmt.Errorf("wallet.dev_chain_id is required in dev mode")
		}
	default:
		return fmt.Errorf("unknown wallet.mode: %q (expected %q or %q)", c.Wallet.Mode, ModeBridge, ModeDev)
	}
	if c.Wallet.RequestTimeout <= 0 {
		return fmt.Errorf("wallet.request_timeout must be positive")
	}
	seen := make(map[uint64]string, len(c.Networks.Extra))
	for _, e := range c.Networks.Extra {
		if e.ChainID == 0 {
			return fmt.Errorf("networks.extra entry %q: chain_id is required", e.Name)
		}
		if prev, dup := seen[e.ChainID]; dup {
			return fmt.Errorf("networks.extra entries %q and %q share chain_id %d", prev, e.Name, e.ChainID)
		}
		seen[e.ChainID] = e.Name
		for label, addr := range e.Contracts {
			if !common.IsHexAddress(addr) {
				return fmt.Errorf("networks.extra entry %q: invalid %s address: %s", e.Name, label, addr)
			}
		}
	}
	return nil
}
