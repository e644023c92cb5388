package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/ledger"
)

var rootCmd = &cobra.Command{
	Use:   "papertrade",
	Short: "A paper-trading ledger with live market prices",
	Long: `Papertrade tracks a simulated cash account, a portfolio of share
holdings and a transaction history, priced from live market data.

It provides tools for:
  - Serving the ledger HTTP API
  - Inspecting the account, portfolio and transaction log
  - Resetting the account to its opening balance
  - Fetching live quotes
  - Bulk-importing ledger state from CSV files`,
}

var dbPath string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "./papertrade.db", "path to the ledger database")
}

// openStore opens the ledger database named by the persistent --db flag.
func openStore() (*ledger.SQLiteStore, error) {
	store, err := ledger.NewSQLite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return store, nil
}
