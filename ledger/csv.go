package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// CSV fixture file names expected by ImportCSV.
const (
	BalanceCSV      = "balance.csv"
	PortfolioCSV    = "portfolio.csv"
	TransactionsCSV = "transactions.csv"
)

// ImportCSV bulk-loads ledger state from CSV files in dir. Each file is
// optional; present files must carry a header row. All rows from all files
// are applied inside one atomic block, so a malformed row aborts the entire
// import. Transactions are appended in file order; the store reassigns ids.
//
// Expected columns:
//
//	balance.csv       id,amount
//	portfolio.csv     symbol,quantity
//	transactions.csv  id,type,symbol,price,quantity,date (RFC 3339)
func ImportCSV(ctx context.Context, store Store, dir string) error {
	balances, err := readCSV(filepath.Join(dir, BalanceCSV))
	if err != nil {
		return err
	}
	positions, err := readCSV(filepath.Join(dir, PortfolioCSV))
	if err != nil {
		return err
	}
	transactions, err := readCSV(filepath.Join(dir, TransactionsCSV))
	if err != nil {
		return err
	}

	return store.RunAtomic(ctx, func(tx Tx) error {
		for _, row := range balances {
			if len(row) < 2 {
				return fmt.Errorf("%s: expected id,amount row, got %v", BalanceCSV, row)
			}
			amount, err := decimal.NewFromString(row[1])
			if err != nil {
				return fmt.Errorf("%s: parse amount %q: %w", BalanceCSV, row[1], err)
			}
			if err := tx.SetBalance(amount); err != nil {
				return err
			}
		}

		for _, row := range positions {
			if len(row) < 2 {
				return fmt.Errorf("%s: expected symbol,quantity row, got %v", PortfolioCSV, row)
			}
			quantity, err := strconv.ParseInt(row[1], 10, 64)
			if err != nil {
				return fmt.Errorf("%s: parse quantity %q: %w", PortfolioCSV, row[1], err)
			}
			if quantity == 0 {
				// Zero-quantity positions must not exist as rows.
				if err := tx.DeletePosition(row[0]); err != nil {
					return err
				}
				continue
			}
			if err := tx.UpsertPosition(row[0], quantity); err != nil {
				return err
			}
		}

		for _, row := range transactions {
			rec, err := parseTransactionRow(row)
			if err != nil {
				return err
			}
			if err := tx.AppendTransaction(&rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func parseTransactionRow(row []string) (Transaction, error) {
	if len(row) < 6 {
		return Transaction{}, fmt.Errorf("%s: expected id,type,symbol,price,quantity,date row, got %v",
			TransactionsCSV, row)
	}
	side := Side(row[1])
	if side != Buy && side != Sell {
		return Transaction{}, fmt.Errorf("%s: unknown type %q", TransactionsCSV, row[1])
	}
	price, err := decimal.NewFromString(row[3])
	if err != nil {
		return Transaction{}, fmt.Errorf("%s: parse price %q: %w", TransactionsCSV, row[3], err)
	}
	quantity, err := strconv.ParseInt(row[4], 10, 64)
	if err != nil {
		return Transaction{}, fmt.Errorf("%s: parse quantity %q: %w", TransactionsCSV, row[4], err)
	}
	date, err := time.Parse(time.RFC3339, row[5])
	if err != nil {
		return Transaction{}, fmt.Errorf("%s: parse date %q: %w", TransactionsCSV, row[5], err)
	}
	return Transaction{
		Type:     side,
		Symbol:   row[2],
		Price:    price,
		Quantity: quantity,
		Date:     date.UTC(),
	}, nil
}

// readCSV returns the data rows of path, skipping the header. A missing
// file yields no rows and no error.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s header: %w", path, err)
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}
