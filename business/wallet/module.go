// Package wallet implements the wallet bounded context: provider
// transports, the session state machine and its reporting surfaces.
package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/fd1az/walletgate/business/wallet/app"
	walletDI "github.com/fd1az/walletgate/business/wallet/di"
	"github.com/fd1az/walletgate/business/wallet/domain"
	"github.com/fd1az/walletgate/business/wallet/infra"
	"github.com/fd1az/walletgate/business/wallet/infra/bridge"
	"github.com/fd1az/walletgate/business/wallet/infra/devwallet"
	"github.com/fd1az/walletgate/internal/config"
	"github.com/fd1az/walletgate/internal/di"
	"github.com/fd1az/walletgate/internal/logger"
	"github.com/fd1az/walletgate/internal/monolith"
	"github.com/fd1az/walletgate/internal/networks"
)

// Module implements the wallet bounded context.
type Module struct{}

// RegisterServices registers all wallet services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register ProviderSource (private - selected by wallet.mode)
	di.RegisterToken(c, walletDI.ProviderSource, func(sr di.ServiceRegistry) app.ProviderSource {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if cfg.Wallet.IsDevMode() {
			devCfg := devwallet.DefaultConfig(cfg.Wallet.DevPrivateKey, cfg.Wallet.DevChainID)
			devCfg.RPCURL = cfg.Wallet.DevRPCURL
			wallet, err := devwallet.NewProvider(devCfg, log)
			if err != nil {
				panic("failed to create dev wallet: " + err.Error())
			}
			return devwallet.NewSource(wallet)
		}

		bridgeCfg := bridge.DefaultConfig(cfg.Wallet.BridgeURL)
		if cfg.Wallet.RequestTimeout > 0 {
			bridgeCfg.RequestTimeout = cfg.Wallet.RequestTimeout
		}
		if cfg.Wallet.InitialBackoff > 0 {
			bridgeCfg.InitialBackoff = cfg.Wallet.InitialBackoff
		}
		if cfg.Wallet.MaxBackoff > 0 {
			bridgeCfg.MaxBackoff = cfg.Wallet.MaxBackoff
		}
		bridgeCfg.MaxReconnects = cfg.Wallet.MaxReconnects

		provider, err := bridge.NewProvider(bridgeCfg, log)
		if err != nil {
			panic("failed to create wallet bridge: " + err.Error())
		}
		return bridge.NewSource(provider)
	})

	// Register Reporter (private - TUI or console per run mode)
	di.RegisterToken(c, walletDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get("config").(*config.Config)
		if cfg.Wallet.TUIMode {
			return infra.NewTUIReporter()
		}
		return infra.NewConsoleReporter()
	})

	// Register SessionController (public - exposed to other modules)
	di.RegisterToken(c, walletDI.SessionController, func(sr di.ServiceRegistry) *app.Controller {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(*logger.Logger)
		registry := sr.Get("networks").(*networks.Registry)
		source := walletDI.GetProviderSource(sr)

		return app.NewController(source, registry, app.ControllerConfig{
			RequestTimeout: cfg.Wallet.RequestTimeout,
			PromptTimeout:  cfg.Wallet.PromptTimeout,
		}, log.Slog())
	})

	return nil
}

// Startup initializes the wallet module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	// Bring the provider transport up. A dead bridge does not fail
	// startup: the session layer re-resolves the provider on every
	// attempt, so a late transport is picked up by the next connect.
	source := walletDI.GetProviderSource(mono.Services())
	if connector, ok := source.(interface{ Connect(context.Context) error }); ok {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := connector.Connect(connectCtx); err != nil {
			log.Warn(ctx, "wallet provider connection failed, will retry in background", "error", err)
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-time.After(5 * time.Second):
						if err := connector.Connect(ctx); err != nil {
							log.Warn(ctx, "wallet provider retry failed", "error", err)
						} else {
							log.Info(ctx, "wallet provider connected")
							return
						}
					}
				}
			}()
		}
	}

	reporter := walletDI.GetReporter(mono.Services())
	if err := reporter.Start(ctx); err != nil {
		return fmt.Errorf("failed to start reporter: %w", err)
	}

	ctl := walletDI.GetSessionController(mono.Services())

	// Session metrics ride the same subscription mechanism as the
	// reporter. Without a meter provider the instruments are no-ops.
	if sm, err := infra.NewSessionMetrics(); err != nil {
		log.Warn(ctx, "session metrics disabled", "error", err)
	} else {
		ctl.Subscribe(sm.Observe)
	}

	// Mirror every accepted transition to the reporter. Activity lines
	// and the balance refresh fire on state changes only, so the
	// immediate subscribe snapshot does not produce a phantom entry.
	last := domain.StateDisconnected
	ctl.Subscribe(func(status domain.ConnectionStatus) {
		reporter.UpdateStatus(status)

		changed := status.State != last
		last = status.State
		if !changed {
			return
		}

		switch {
		case status.IsConnected() && status.Network != nil:
			handle := status.Network
			net := handle.Network()
			reporter.Activity("connected to " + net.String())
			// Balance reads go through the provider; keep them off the
			// notification path.
			go func() {
				bctx, cancel := context.WithTimeout(ctx, 15*time.Second)
				defer cancel()
				balance, err := handle.Balance(bctx)
				if err != nil {
					log.Warn(bctx, "balance refresh failed", "error", err)
					return
				}
				reporter.UpdateBalance(balance, net.NativeSymbol)
			}()
		case status.IsLoading():
			reporter.Activity("connecting to wallet...")
		case status.Err != nil:
			reporter.Activity("connection failed: " + status.Err.Error())
		default:
			reporter.Activity("session ended")
		}
	})

	// Detect an already-authorized wallet and settle silently.
	if err := ctl.Start(ctx); err != nil {
		log.Warn(ctx, "wallet detection failed", "error", err)
	}

	if cfg.Wallet.AutoConnect && !ctl.IsConnected() {
		go func() {
			if _, err := ctl.Connect(ctx); err != nil {
				log.Warn(ctx, "auto-connect failed", "error", err)
			}
		}()
	}

	log.Info(ctx, "wallet module started", "mode", cfg.Wallet.Mode)
	return nil
}
