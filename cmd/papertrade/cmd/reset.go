package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/ledger"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the account to its opening balance",
	Long: `Restore the opening cash balance and delete all positions and
transactions. This cannot be undone.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	engine := ledger.NewEngine(store, nil, nil)
	if err := engine.Reset(cmd.Context()); err != nil {
		return err
	}

	fmt.Printf("Account reset. Balance: %s\n", ledger.OpeningBalance.StringFixed(2))
	return nil
}
