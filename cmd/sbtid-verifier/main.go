package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tonbound/sbtid-verifier/internal/config"
	"github.com/tonbound/sbtid-verifier/internal/observability/metrics"
	"github.com/tonbound/sbtid-verifier/internal/server"
	"github.com/tonbound/sbtid-verifier/internal/telegram"
	"github.com/tonbound/sbtid-verifier/internal/ton"
	"github.com/tonbound/sbtid-verifier/internal/toncenter"
	"github.com/tonbound/sbtid-verifier/internal/verification/domain"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "sbtid-verifier",
		Short:   "sbtid-verifier - identity-bound token payment verification",
		Version: version,
	}

	// Default behavior (no subcommand) is to serve
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runServe()
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newDeriveCmd())
	rootCmd.AddCommand(newAddressCmd())

	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := setupLogger(cfg)
	logger.Info("starting sbtid-verifier", "version", version)

	metrics.Init(cfg.Metrics.Enabled, "sbtid_verifier")

	client, svc, err := buildVerifier(cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	srv := server.New(cfg, svc, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// The Telegram transport is optional: without a token the HTTP API
	// still serves payment checks.
	if token := resolveBotToken(cfg); token != "" {
		collection, err := ton.ParseAddress(cfg.TON.CollectionAddress)
		if err != nil {
			return fmt.Errorf("parsing collection address: %w", err)
		}
		b, err := telegram.New(telegram.Config{
			Token:         token,
			Collection:    collection,
			PaymentAppURL: cfg.Telegram.PaymentAppURL,
			VerifyTimeout: time.Duration(cfg.Telegram.CheckTimeout) * time.Second,
		}, svc, logger)
		if err != nil {
			return fmt.Errorf("starting telegram bot: %w", err)
		}
		go b.Run(ctx)
	} else {
		logger.Info("BOT_TOKEN not set, telegram transport disabled")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig)
	}

	// Stop bot polling, then drain HTTP
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// verifier is the service surface the commands use.
type verifier interface {
	Verify(ctx context.Context, identity *big.Int) (*domain.Result, error)
	DeriveItemAddress(ctx context.Context, identity *big.Int) (ton.Address, error)
}

// buildVerifier wires the indexer client and the verification service.
func buildVerifier(cfg *config.Config, logger *slog.Logger) (*toncenter.Client, verifier, error) {
	collection, err := ton.ParseAddress(cfg.TON.CollectionAddress)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing collection address: %w", err)
	}

	client := toncenter.New(cfg.TON.Endpoint,
		toncenter.WithAPIKey(cfg.TON.APIKey),
		toncenter.WithCallTimeout(time.Duration(cfg.TON.CallTimeout)*time.Second),
		toncenter.WithRateLimit(float64(cfg.TON.RequestsPerSecond), cfg.TON.RequestBurst),
		toncenter.WithSeqnoTTL(time.Duration(cfg.TON.SeqnoTTL)*time.Second),
		toncenter.WithLogger(logger),
	)

	svc := domain.NewService(collection, client, client, logger,
		domain.WithMaxAttempts(cfg.Verify.MaxAttempts),
		domain.WithBackoff(
			time.Duration(cfg.Verify.BackoffBaseMS)*time.Millisecond,
			time.Duration(cfg.Verify.BackoffCapMS)*time.Millisecond,
		),
	)

	return client, svc, nil
}

// resolveBotToken returns the configured token, prompting on a terminal
// so the token never has to live in shell history.
func resolveBotToken(cfg *config.Config) string {
	if cfg.Telegram.BotToken != "" {
		return cfg.Telegram.BotToken
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return ""
	}

	fmt.Fprint(os.Stderr, "Bot token (leave empty to disable the Telegram transport): ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
