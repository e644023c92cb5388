package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/ledger"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-import ledger state from CSV files",
	Long: `Load balance, portfolio and transaction data from CSV files in a
directory. Expected files (each optional, header row required):

  balance.csv       id,amount
  portfolio.csv     symbol,quantity
  transactions.csv  id,type,symbol,price,quantity,date

All rows are applied in a single atomic block; a malformed row aborts the
entire import.

Example:
  papertrade import --dir ./fixtures --db ./papertrade.db`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

var importDir string

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importDir, "dir", ".", "directory containing the CSV files")
}

func runImport(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := ledger.ImportCSV(cmd.Context(), store, importDir); err != nil {
		return fmt.Errorf("import: %w", err)
	}

	fmt.Printf("Imported ledger data from %s\n", importDir)
	return nil
}
