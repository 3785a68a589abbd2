// Package main is the entry point for the WalletGate session daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/fd1az/walletgate/business/wallet"
	walletApp "github.com/fd1az/walletgate/business/wallet/app"
	walletDI "github.com/fd1az/walletgate/business/wallet/di"
	"github.com/fd1az/walletgate/internal/apm"
	"github.com/fd1az/walletgate/internal/config"
	"github.com/fd1az/walletgate/internal/health"
	"github.com/fd1az/walletgate/internal/logger"
	"github.com/fd1az/walletgate/internal/metrics"
	"github.com/fd1az/walletgate/internal/monolith"
	"github.com/fd1az/walletgate/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Parse flags
	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("walletgate %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for debugging
	tuiMode := !*cliMode

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	// Run application
	if err := run(ctx, *configPath, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, tuiMode bool) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set TUI mode in config so modules know
	cfg.Wallet.TUIMode = tuiMode

	// Setup logger (only log to stderr in CLI mode)
	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}

	var log *logger.Logger
	if tuiMode {
		// In TUI mode, suppress logs (discard output)
		log = logger.New(io.Discard, logLevel, cfg.App.Name, nil)
	} else {
		log = logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
		log.Info(ctx, "starting WalletGate",
			"version", version,
			"environment", cfg.App.Environment,
			"mode", cfg.Wallet.Mode,
		)
	}

	// Initialize observability if enabled
	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		// Set service name env var for OTEL
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		// Initialize tracing with Zipkin (local dev friendly)
		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		// Initialize metrics with Prometheus
		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		)

		// Start Prometheus metrics server in background
		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	// Create monolith (application container)
	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}

	// Register module services
	modules := []monolith.Module{&wallet.Module{}}
	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	ctl := walletDI.GetSessionController(mono.Services())

	// Start health check server
	if cfg.Health.Enabled {
		healthServer := health.NewServer(cfg.Health.Port, version, log)
		healthServer.RegisterCheck("provider", func(hctx context.Context) (bool, string) {
			if _, err := walletDI.GetProviderSource(mono.Services()).Current(hctx); err != nil {
				return false, err.Error()
			}
			return true, "session " + string(ctl.Status().State)
		})
		if err := healthServer.Start(); err != nil {
			log.Warn(ctx, "failed to start health server", "error", err)
		} else {
			log.Info(ctx, "health server started", "port", cfg.Health.Port)
		}
		defer healthServer.Stop(ctx)
	}

	// Shared shutdown path: end the session, release the transport,
	// stop the reporter
	shutdown := func() {
		ctl.Disconnect()
		if closer, ok := walletDI.GetProviderSource(mono.Services()).(io.Closer); ok {
			if err := closer.Close(); err != nil {
				log.Error(ctx, "error closing wallet provider", "error", err)
			}
		}
		if err := walletDI.GetReporter(mono.Services()).Stop(); err != nil {
			log.Error(ctx, "error stopping reporter", "error", err)
		}
	}

	if tuiMode {
		// TUI mode: Start modules in background so TUI shows immediately
		startFunc := func() error {
			ui.Send(ui.StartupMsg{Step: "config", Status: "done"})

			if err := mono.StartModules(ctx, modules...); err != nil {
				ui.Send(ui.StartupMsg{Step: "provider", Status: "failed"})
				return fmt.Errorf("failed to start modules: %w", err)
			}

			linkName := "wallet-bridge"
			if cfg.Wallet.IsDevMode() {
				linkName = "dev-wallet"
			}
			if _, err := walletDI.GetProviderSource(mono.Services()).Current(ctx); err == nil {
				ui.Send(ui.StartupMsg{Step: "provider", Status: "connected"})
				ui.Send(ui.ConnectionStatusMsg{Name: linkName, Connected: true})
			} else {
				ui.Send(ui.ConnectionStatusMsg{Name: linkName, Connected: false})
			}
			ui.Send(ui.NetworksMsg{Networks: ctl.SupportedNetworks()})
			return nil
		}
		return runTUI(ctx, ctl, startFunc, shutdown)
	}

	// CLI mode: Start modules synchronously
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	return runCLI(ctx, log, shutdown)
}

func runCLI(ctx context.Context, log *logger.Logger, shutdown func()) error {
	log.Info(ctx, "all modules started, wallet session ready")

	// Wait for shutdown
	<-ctx.Done()

	log.Info(ctx, "shutting down")
	shutdown()
	return nil
}

func runTUI(ctx context.Context, ctl *walletApp.Controller, startFunc func() error, shutdown func()) error {
	// Channel to receive StartModulesMsg signal
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	// Session keys drive the controller; failures land on the status
	// snapshot the TUI already renders
	ui.OnConnect = func() { _, _ = ctl.Connect(ctx) }
	ui.OnDisconnect = func() { ctl.Disconnect() }
	ui.OnRefresh = func() { ctl.Refresh(ctx) }

	// Create and start the TUI program IMMEDIATELY (shows welcome screen)
	p := tea.NewProgram(ui.New(), tea.WithAltScreen())
	ui.Program = p

	// Run session logic in background (non-blocking)
	errCh := make(chan error, 1)
	go func() {
		// Wait for welcome screen to complete (StartModulesMsg signal)
		select {
		case <-startSignal:
			// Welcome complete, start modules
		case <-ctx.Done():
			errCh <- nil
			return
		}

		// Start modules (connections happen here, TUI shows progress)
		if err := startFunc(); err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}

		// Wait for context cancellation
		<-ctx.Done()

		shutdown()
		errCh <- nil
	}()

	// Run TUI (blocking) - shows immediately with welcome screen
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	// Check for session errors
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
