package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"atm_ledger/internal/api"
	"atm_ledger/internal/config"
	"atm_ledger/internal/repository/memory"
	"atm_ledger/internal/service"
	"atm_ledger/pkg/crypto"
	"atm_ledger/pkg/metrics"
	"atm_ledger/pkg/money"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type serveRunner struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the ledger HTTP API and metrics servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.New(), cfgFile)
			if err != nil {
				return err
			}

			runner := &serveRunner{
				cfg:    cfg,
				logger: setupLogger(cfg.Log.Level),
			}
			return runner.Run(cmd.Context())
		},
	}
}

func (r *serveRunner) Run(ctx context.Context) error {
	logger := r.logger
	logger.Info("Starting application",
		slog.String("name", appName),
		slog.String("config", r.cfg.ConfigPath))

	metricsCollector := metrics.NewMetricsCollector(logger)
	hasher := crypto.NewPINHasher(r.cfg.Security.PINSecret, logger)
	store := memory.NewAccountStore()
	receipts := service.NewReceiptService(
		&service.LogSender{Logger: logger},
		r.cfg.Display.CurrencySymbol,
		r.cfg.Receipts.Workers,
		r.cfg.Receipts.QueueSize,
		logger,
	)
	ledger := service.NewLedgerService(store, hasher, metricsCollector, receipts, logger)

	if err := seedAccounts(ctx, ledger, r.cfg.Accounts, r.cfg.Display.CurrencySymbol, logger); err != nil {
		return err
	}

	apiHandler := api.NewAPIHandler(ledger, r.cfg.Display.CurrencySymbol, logger)
	metricsServer := metricsCollector.StartMetricsServer(r.cfg.Metrics.Addr)
	httpServer := startHTTPServer(r.cfg.HTTP.Addr, apiHandler, logger)
	waitForShutdown(logger, httpServer, metricsServer, receipts, metricsCollector)
	logger.Info("Application shutdown complete")
	return nil
}

func seedAccounts(ctx context.Context, ledger *service.LedgerService, accounts []config.AccountConfig, symbol string, logger *slog.Logger) error {
	for _, acc := range accounts {
		handle, err := ledger.ProvisionAccount(ctx, acc.Name, acc.ID, acc.PIN)
		if err != nil {
			return fmt.Errorf("failed to seed account %d: %w", acc.ID, err)
		}
		if acc.OpeningBalance == "" {
			continue
		}

		opening, err := money.Parse(acc.OpeningBalance)
		if err != nil {
			return fmt.Errorf("failed to seed account %d: %w", acc.ID, err)
		}
		if opening > 0 {
			if _, err := ledger.Deposit(ctx, handle, opening); err != nil {
				return fmt.Errorf("failed to seed account %d: %w", acc.ID, err)
			}
		}
	}

	all, err := ledger.Accounts(ctx)
	if err != nil {
		return err
	}
	for _, acc := range all {
		logger.Info("Account ready",
			slog.Int64("account_id", acc.ID()),
			slog.String("name", acc.DisplayName()),
			slog.String("balance", money.FormatWithSymbol(symbol, acc.Balance())))
	}
	return nil
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: lvl,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

func startHTTPServer(addr string, apiHandler *api.APIHandler, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()

	apiHandler.RegisterRoutes(mux)

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"name": "%s", "status": "ok"}`, appName)
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	return server
}

func waitForShutdown(
	logger *slog.Logger,
	httpServer *http.Server,
	metricsServer *http.Server,
	receipts *service.ReceiptService,
	metricsCollector *metrics.MetricsCollector,
) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
	}

	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Error("Metrics server shutdown failed", slog.String("error", err.Error()))
	}

	if err := receipts.Shutdown(ctx); err != nil {
		logger.Error("Receipt service shutdown failed", slog.String("error", err.Error()))
	}

	if err := metricsCollector.Shutdown(ctx); err != nil {
		logger.Error("Metrics collector shutdown failed", slog.String("error", err.Error()))
	}
}
