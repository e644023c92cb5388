package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/yahoo"
)

var quoteCmd = &cobra.Command{
	Use:   "quote <symbol>",
	Short: "Fetch the current price for a symbol",
	Long: `Fetch the current market price for a ticker symbol.

Example:
  papertrade quote AAPL`,
	Args: cobra.ExactArgs(1),
	RunE: runQuote,
}

var quoteBaseURL string

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().StringVar(&quoteBaseURL, "base-url", "", "market data base URL (default: public Yahoo endpoint)")
}

func runQuote(cmd *cobra.Command, args []string) error {
	client := yahoo.NewClient(quoteBaseURL)

	price, err := client.GetPrice(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("quote %s: %w", args[0], err)
	}

	fmt.Printf("%s %s\n", args[0], price.StringFixed(2))
	return nil
}
