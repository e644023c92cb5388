package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/ledger"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show the cash balance and portfolio",
	Args:  cobra.NoArgs,
	RunE:  runAccount,
}

func init() {
	rootCmd.AddCommand(accountCmd)
}

func runAccount(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	engine := ledger.NewEngine(store, nil, nil)
	acct, err := engine.Account(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Balance: %s\n", acct.Balance.StringFixed(2))
	if len(acct.Portfolio) == 0 {
		fmt.Println("Portfolio: empty")
		return nil
	}

	symbols := make([]string, 0, len(acct.Portfolio))
	for s := range acct.Portfolio {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	fmt.Println("Portfolio:")
	for _, s := range symbols {
		fmt.Printf("  %-8s %d\n", s, acct.Portfolio[s])
	}
	return nil
}
