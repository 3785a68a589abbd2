package metrics

// Provider selects a metrics exporter backend.
type Provider string

const (
	PrometheusProvider Provider = "prometheus"
	OtelCollector      Provider = "otelCollector"
)

// Config carries the meter provider configuration assembled by options.
type Config struct {
	ServiceName string
	Provider    []ProviderCfg
}

// ProviderCfg configures one exporter backend.
type ProviderCfg struct {
	Provider Provider
	Endpoint string
	Headers  map[string]string
	Insecure bool
}

// OptionFn customizes the Config passed to NewMetricProvider.
type OptionFn func(config Config) Config

// WithServiceName sets the service.name resource attribute.
func WithServiceName(serviceName string) OptionFn {
	return func(config Config) Config {
		config.ServiceName = serviceName
		return config
	}
}

// WithProviderConfig adds an exporter backend.
func WithProviderConfig(provider ProviderCfg) OptionFn {
	return func(config Config) Config {
		config.Provider = append(config.Provider, provider)
		return config
	}
}

// PromServerConfig configures the Prometheus scrape endpoint.
type PromServerConfig struct {
	port string
}

// PromOptionFn customizes the scrape endpoint.
type PromOptionFn func(config PromServerConfig) PromServerConfig

// WithPort sets the scrape endpoint port.
func WithPort(port string) PromOptionFn {
	return func(config PromServerConfig) PromServerConfig {
		config.port = port
		return config
	}
}
