// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"fmt"

	"github.com/fd1az/walletgate/internal/config"
	"github.com/fd1az/walletgate/internal/di"
	"github.com/fd1az/walletgate/internal/logger"
	"github.com/fd1az/walletgate/internal/networks"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	Networks() *networks.Registry
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// app implements the Monolith interface.
type app struct {
	config    *config.Config
	logger    logger.LoggerInterface
	networks  *networks.Registry
	container di.Container
}

// New creates a new Monolith instance.
func New(cfg *config.Config, log logger.LoggerInterface) (*app, error) {
	registry, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	container := di.NewContainer()

	// Register global services
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("networks", registry)

	return &app{
		config:    cfg,
		logger:    log,
		networks:  registry,
		container: container,
	}, nil
}

// buildRegistry assembles the supported-network registry from the built-in
// networks and the config overrides. Config-declared entries take precedence
// over built-ins with the same chain id; a non-empty allowlist restricts the
// registry to the listed chain ids.
func buildRegistry(cfg *config.Config) (*networks.Registry, error) {
	allowed := func(uint64) bool { return true }
	if len(cfg.Networks.Allowed) > 0 {
		set := make(map[uint64]struct{}, len(cfg.Networks.Allowed))
		for _, id := range cfg.Networks.Allowed {
			set[id] = struct{}{}
		}
		allowed = func(id uint64) bool {
			_, ok := set[id]
			return ok
		}
	}

	registry := networks.NewRegistry()
	for _, e := range cfg.Networks.Extra {
		if allowed(e.ChainID) {
			registry.Register(e.Network())
		}
	}
	for _, n := range networks.DefaultRegistry().All() {
		if allowed(n.ChainID) && !registry.IsSupported(n.ChainID) {
			registry.Register(n)
		}
	}

	if registry.Len() == 0 {
		return nil, fmt.Errorf("networks.allowed excludes every registered network")
	}
	return registry, nil
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) Networks() *networks.Registry {
	return a.networks
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
