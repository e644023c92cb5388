package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/papertrade/api"
	"github.com/rustyeddy/papertrade/config"
	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/yahoo"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ledger HTTP API",
	Long: `Start the HTTP server exposing the paper-trading API.

Example:
  papertrade serve --addr :8000 --db ./papertrade.db
  papertrade serve --config papertrade.yaml`,
	RunE: runServe,
}

var (
	serveConfigPath string
	serveAddr       string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "path to config file")
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if serveConfigPath != "" {
		loaded, err := config.LoadFromFile(serveConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if cmd.Flags().Changed("db") {
		cfg.Store.Path = dbPath
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	store, err := ledger.NewSQLite(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	quotes := yahoo.NewClient(cfg.Market.BaseURL)
	engine := ledger.NewEngine(store, quotes, logger)
	if timeout, err := cfg.Market.ParseQuoteTimeout(); err == nil && timeout > 0 {
		engine.QuoteTimeout = timeout
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(cfg.Server.Addr, engine, quotes, logger)
	return server.Start(ctx)
}
