package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/ledger"
)

var transactionsCmd = &cobra.Command{
	Use:   "transactions",
	Short: "List the transaction log, newest first",
	Args:  cobra.NoArgs,
	RunE:  runTransactions,
}

var transactionsLimit int

func init() {
	rootCmd.AddCommand(transactionsCmd)

	transactionsCmd.Flags().IntVarP(&transactionsLimit, "limit", "n", 0, "show at most n transactions (0 = all)")
}

func runTransactions(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	engine := ledger.NewEngine(store, nil, nil)
	records, err := engine.Transactions(cmd.Context())
	if err != nil {
		return err
	}
	if transactionsLimit > 0 && len(records) > transactionsLimit {
		records = records[:transactionsLimit]
	}

	if len(records) == 0 {
		fmt.Println("No transactions.")
		return nil
	}

	fmt.Printf("%-20s %-5s %-8s %12s %8s\n", "DATE", "TYPE", "SYMBOL", "PRICE", "QTY")
	for _, rec := range records {
		fmt.Printf("%-20s %-5s %-8s %12s %8d\n",
			rec.Date.UTC().Format(time.RFC3339),
			rec.Type,
			rec.Symbol,
			rec.Price.StringFixed(2),
			rec.Quantity)
	}
	return nil
}
