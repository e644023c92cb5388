// Package ledger implements a single-account paper-trading ledger: one cash
// balance, a set of share positions keyed by symbol, and an append-only
// transaction log, all updated atomically through a Store.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OpeningBalance is the cash amount a fresh or reset account starts with.
var OpeningBalance = decimal.NewFromInt(100000)

// Side is the direction of a completed trade.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Transaction is an immutable record of a completed buy or sell.
// ID is assigned by the store on append.
type Transaction struct {
	ID       int64
	Type     Side
	Symbol   string
	Price    decimal.Decimal
	Quantity int64
	Date     time.Time
}

// Account is a snapshot of the cash balance and all open positions.
type Account struct {
	Balance   decimal.Decimal
	Portfolio map[string]int64
}

// Tx is the set of store operations available inside an atomic block.
// Every call sees the same consistent snapshot; mutations become visible
// only if the enclosing RunAtomic commits.
type Tx interface {
	GetBalance() (decimal.Decimal, error)
	SetBalance(amount decimal.Decimal) error

	// GetPosition reports the held quantity for symbol. ok is false when
	// no position exists.
	GetPosition(symbol string) (quantity int64, ok bool, err error)
	// ListPositions returns every open position as a symbol->quantity map.
	ListPositions() (map[string]int64, error)
	UpsertPosition(symbol string, quantity int64) error
	DeletePosition(symbol string) error
	DeleteAllPositions() error

	// AppendTransaction inserts t and fills in its ID.
	AppendTransaction(t *Transaction) error
	// ListTransactions returns all transactions ordered by date descending,
	// id descending as the tie-break.
	ListTransactions() ([]Transaction, error)
	DeleteAllTransactions() error
}

// Store is the persistence boundary for ledger state. RunAtomic executes fn
// against a single transaction: if fn returns an error every enclosed
// mutation is rolled back, otherwise all commit together. Concurrent
// RunAtomic calls touching the same rows must serialize so that
// check-then-mutate sequences never act on a stale snapshot.
type Store interface {
	RunAtomic(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// PriceSource returns the current price for a ticker symbol.
type PriceSource interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}
