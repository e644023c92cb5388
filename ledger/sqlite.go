package ledger

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// SQLiteStore is a Store backed by a local SQLite database. Transactions
// are opened with an immediate lock so concurrent check-then-mutate
// sequences serialize at BEGIN instead of failing mid-flight.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path, provisions the
// schema and seeds the singleton balance row with the opening balance.
func NewSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	// Seed the singleton balance row; a no-op on an existing database.
	_, err = db.Exec(`INSERT INTO balance (id, amount) VALUES (1, ?) ON CONFLICT (id) DO NOTHING`,
		OpeningBalance.String())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("seed balance: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// RunAtomic executes fn within a single database transaction, committing
// only if fn returns nil.
func (s *SQLiteStore) RunAtomic(ctx context.Context, fn func(Tx) error) error {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	if err := fn(&sqliteTx{tx: dbtx}); err != nil {
		return err
	}
	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) GetBalance() (decimal.Decimal, error) {
	var amount string
	err := t.tx.QueryRow(`SELECT amount FROM balance WHERE id = 1`).Scan(&amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read balance: %w", err)
	}
	bal, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance %q: %w", amount, err)
	}
	return bal, nil
}

func (t *sqliteTx) SetBalance(amount decimal.Decimal) error {
	_, err := t.tx.Exec(`UPDATE balance SET amount = ? WHERE id = 1`, amount.String())
	if err != nil {
		return fmt.Errorf("write balance: %w", err)
	}
	return nil
}

func (t *sqliteTx) GetPosition(symbol string) (int64, bool, error) {
	var quantity int64
	err := t.tx.QueryRow(`SELECT quantity FROM positions WHERE symbol = ?`, symbol).Scan(&quantity)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read position %s: %w", symbol, err)
	}
	return quantity, true, nil
}

func (t *sqliteTx) ListPositions() (map[string]int64, error) {
	rows, err := t.tx.Query(`SELECT symbol, quantity FROM positions`)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var symbol string
		var quantity int64
		if err := rows.Scan(&symbol, &quantity); err != nil {
			return nil, err
		}
		out[symbol] = quantity
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *sqliteTx) UpsertPosition(symbol string, quantity int64) error {
	_, err := t.tx.Exec(`
		INSERT INTO positions (symbol, quantity) VALUES (?, ?)
		ON CONFLICT (symbol) DO UPDATE SET quantity = excluded.quantity`,
		symbol, quantity)
	if err != nil {
		return fmt.Errorf("upsert position %s: %w", symbol, err)
	}
	return nil
}

func (t *sqliteTx) DeletePosition(symbol string) error {
	_, err := t.tx.Exec(`DELETE FROM positions WHERE symbol = ?`, symbol)
	if err != nil {
		return fmt.Errorf("delete position %s: %w", symbol, err)
	}
	return nil
}

func (t *sqliteTx) DeleteAllPositions() error {
	_, err := t.tx.Exec(`DELETE FROM positions`)
	if err != nil {
		return fmt.Errorf("delete positions: %w", err)
	}
	return nil
}

func (t *sqliteTx) AppendTransaction(rec *Transaction) error {
	res, err := t.tx.Exec(`
		INSERT INTO transactions (type, symbol, price, quantity, date)
		VALUES (?, ?, ?, ?, ?)`,
		string(rec.Type), rec.Symbol, rec.Price.String(), rec.Quantity, rec.Date)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	rec.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("transaction id: %w", err)
	}
	return nil
}

func (t *sqliteTx) ListTransactions() ([]Transaction, error) {
	rows, err := t.tx.Query(`
		SELECT id, type, symbol, price, quantity, date
		FROM transactions
		ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var rec Transaction
		var side, price string
		if err := rows.Scan(&rec.ID, &side, &rec.Symbol, &price, &rec.Quantity, &rec.Date); err != nil {
			return nil, err
		}
		rec.Type = Side(side)
		rec.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", price, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *sqliteTx) DeleteAllTransactions() error {
	_, err := t.tx.Exec(`DELETE FROM transactions`)
	if err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	return nil
}
