package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"SetupScan/internal/di"
	"SetupScan/pkg/config"
	"SetupScan/pkg/server"

	"github.com/spf13/cobra"
)

var (
	// set during build time using -ldflags
	version = "dev"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "setupscan",
	Short: "Scans a symbol universe for trade setups and streams scan progress.",
	Long: `setupscan analyzes every symbol of a configured universe, keeps the setups that pass the
configured filters and ranks them by confidence.

Run "setupscan serve" for the HTTP service with live progress over SSE and WebSocket,
"setupscan scan" for a one-shot scan in the terminal, or "setupscan analyze SYMBOL"
to probe a single symbol.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and reports a failure on stderr.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(rootCmd.ErrOrStderr(), "%v", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config/config.yaml", "Configuration file path")
	rootCmd.AddCommand(serveCmd, scanCmd, analyzeCmd)
}

// loadConfig reads the YAML file plus environment overrides. Terminal commands keep stdout
// for their own output, so a stdout logger is moved to stderr.
func loadConfig(terminal bool) (*config.Config, error) {
	cfg, err := config.LoadWithEnv(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	if terminal && cfg.Logger.Output == "stdout" {
		cfg.Logger.Output = "stderr"
	}
	return cfg, nil
}

func buildApp(cfg *config.Config) (*server.App, error) {
	app, err := di.InitializeApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("app initialization failed: %w", err)
	}
	return app, nil
}
