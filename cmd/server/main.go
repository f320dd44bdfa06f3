package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/api"
	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/audit"
	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/auth"
	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/config"
	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/logging"
	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/mcp"
	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/metrics"
	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/repository"
	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/services"
	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/tls"
	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/tools"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "mcp-gateway",
	Short:         "Insurance verification gateway for AI agents",
	Long:          "Serves masked patient and insurance data to agents over REST (/call) and MCP (/mcp/sse).\nEvery tool invocation is audited with the field paths it disclosed.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServer,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to config.yaml (default ./config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mcp-gateway: %v\n", err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		"storage", cfg.Storage.Driver,
		"api_keys", len(cfg.Gateway.APIKeys),
		"practice_keys", len(cfg.Gateway.PracticeKeys),
		"allow_agent_unmask", cfg.Gateway.AllowAgentUnmask,
		"tls", cfg.TLS.Enable,
	)

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.New(prometheus.DefaultRegisterer)
	recorder := audit.NewRecorder(store, logger, m, cfg.Gateway.AuditTimeout)

	svc := services.NewVerificationService(store)
	dispatcher := tools.NewDispatcher(tools.NewRegistry(svc), recorder, logger, m)
	gate := auth.New(auth.Options{
		APIKeys:          cfg.Gateway.APIKeys,
		PracticeKeys:     cfg.PracticeKeyMap(),
		AllowAgentUnmask: cfg.Gateway.AllowAgentUnmask,
	}, logger, m)
	if cfg.Gateway.AllowAgentUnmask {
		logger.Warn("agents may request unmasked fields")
	}

	mcpServer := mcp.NewServer(dispatcher, gate, logger, version)
	e := api.NewServer(api.Options{
		Dispatcher:  dispatcher,
		Gate:        gate,
		Store:       store,
		Logger:      logger,
		Version:     version,
		CORSOrigins: cfg.Gateway.CORSOrigins,
		Metrics:     promhttp.Handler(),
		MCP:         mcpServer.Handler(),
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      e,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	if cfg.TLS.Enable {
		generated, err := tls.EnsureCertificate(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames)
		if err != nil {
			return fmt.Errorf("prepare tls certificate: %w", err)
		}
		if generated {
			logger.Warn("generated self-signed certificate", "cert_file", cfg.TLS.CertFile, "hosts", cfg.TLS.Hostnames)
		}
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server starting", "address", cfg.Server.Addr, "tls", cfg.TLS.Enable, "version", version)
		if cfg.TLS.Enable {
			serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
			return
		}
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		// open event streams would otherwise hold Shutdown until its deadline
		mcpServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("server close error", "error", err)
			}
		}

		drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.Gateway.AuditDrain)
		defer cancelDrain()
		if err := recorder.Close(drainCtx); err != nil {
			logger.Error("audit writes still pending at shutdown", "error", err)
		}
		logger.Info("server stopped gracefully")
	}
	return nil
}

// openStore returns the configured repository and a function releasing it.
// The memory driver is loaded with the demo fixtures.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Repository, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		store := repository.NewMemoryStore()
		if err := repository.DemoFixtures().Load(ctx, store); err != nil {
			return nil, nil, err
		}
		logger.Warn("using in-memory storage with demo fixtures; audit rows are not persisted")
		return store, func() {}, nil
	default:
		pool, err := repository.Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("database initialization failed: %w", err)
		}
		if cfg.DB.Migrate {
			if err := repository.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
			logger.Info("database schema applied")
		}
		logger.Info("database connected", "host", cfg.DB.Host, "name", cfg.DB.Name)
		return repository.NewPostgresStore(pool), pool.Close, nil
	}
}
