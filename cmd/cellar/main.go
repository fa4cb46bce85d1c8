package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"cellar/internal/auth"
	"cellar/internal/cellar"
	"cellar/internal/config"
	"cellar/internal/store"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "cellar",
	Short: "An S3-compatible object store backed by the local filesystem",
	Long: `Cellar serves an S3-compatible HTTP API where every bucket is a
directory and every object is a plain file. The filesystem is the only
source of truth: anything placed in the data directory by other means is
served as if it had been uploaded.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
}

// setupLogging installs a charmbracelet/log handler as the slog default.
func setupLogging(cfg config.LoggingConfig) {
	level := log.InfoLevel
	switch cfg.Level {
	case "DEBUG":
		level = log.DebugLevel
	case "WARN":
		level = log.WarnLevel
	case "ERROR":
		level = log.ErrorLevel
	}

	formatter := log.TextFormatter
	if cfg.Format == "json" {
		formatter = log.JSONFormatter
	}

	handler := log.NewWithOptions(os.Stdout, log.Options{
		Level:           level,
		Formatter:       formatter,
		TimeFormat:      time.RFC3339,
		ReportTimestamp: true,
		TimeFunction:    log.NowUTC,
	})

	slog.SetDefault(slog.New(handler))
}

// buildAuthEngine returns the authentication engine for the configured
// credentials, or nil when authentication is disabled.
func buildAuthEngine(cfg config.AuthConfig) auth.AuthEngine {
	if !cfg.Enabled() {
		slog.Warn("No credentials configured; serving unauthenticated")
		return nil
	}

	creds := auth.Credentials{
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	}

	return auth.NewCompoundAuthEngine(
		auth.NewAwsHmacAuthEngine(creds),
		auth.NewBasicAuthEngine(creds),
	)
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	setupLogging(cfg.Logging)

	// Resolve the data directory to an absolute path for easier debugging.
	absDataDir, err := filepath.Abs(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("failed to resolve data directory: %w", err)
	}

	st, err := store.New(absDataDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	server := cellar.NewServer(st, cfg.Server.Region)
	router := server.Handler(buildAuthEngine(cfg.Auth))

	httpServer := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
	}

	httpsServer := &http.Server{
		TLSConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		Addr:              cfg.Server.TLSListen,
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)

	shutdown := func(srv *http.Server) func() error {
		return func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	}
	eg.Go(shutdown(httpServer))
	eg.Go(shutdown(httpsServer))

	eg.Go(func() error {
		if cfg.Server.TLSListen == "" {
			slog.Debug("Skipping HTTPS service because no TLS listen address was configured")
			return nil
		}

		slog.Info("Starting Cellar HTTPS server", "addr", cfg.Server.TLSListen)
		err := httpsServer.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	eg.Go(func() error {
		if cfg.Server.Listen == "" {
			slog.Debug("Skipping HTTP service because no listen address was configured")
			return nil
		}

		slog.Info("Starting Cellar HTTP server", "addr", cfg.Server.Listen)
		err := httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	slog.Info("Cellar started", "data_dir", absDataDir, "region", cfg.Server.Region)
	return eg.Wait()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("Cellar exited with error", "error", err)
		os.Exit(1)
	}
}
