package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	store, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestSQLiteSeedsOpeningBalance(t *testing.T) {
	t.Parallel()

	store := newTestSQLite(t)

	var bal decimal.Decimal
	err := store.RunAtomic(context.Background(), func(tx Tx) error {
		var err error
		bal, err = tx.GetBalance()
		return err
	})
	require.NoError(t, err)
	assert.True(t, bal.Equal(OpeningBalance), "balance = %s", bal)
}

func TestSQLiteSeedIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	store, err := NewSQLite(path)
	require.NoError(t, err)

	err = store.RunAtomic(context.Background(), func(tx Tx) error {
		return tx.SetBalance(dec("123.45"))
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening must not reset the stored balance.
	store, err = NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var bal decimal.Decimal
	err = store.RunAtomic(context.Background(), func(tx Tx) error {
		var err error
		bal, err = tx.GetBalance()
		return err
	})
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("123.45")), "balance = %s", bal)
}

func TestSQLitePositionLifecycle(t *testing.T) {
	t.Parallel()

	store := newTestSQLite(t)
	ctx := context.Background()

	err := store.RunAtomic(ctx, func(tx Tx) error {
		if _, ok, err := tx.GetPosition("AAPL"); err != nil {
			return err
		} else if ok {
			t.Error("unexpected position before insert")
		}
		if err := tx.UpsertPosition("AAPL", 10); err != nil {
			return err
		}
		return tx.UpsertPosition("MSFT", 4)
	})
	require.NoError(t, err)

	err = store.RunAtomic(ctx, func(tx Tx) error {
		q, ok, err := tx.GetPosition("AAPL")
		if err != nil {
			return err
		}
		assert.True(t, ok)
		assert.Equal(t, int64(10), q)

		if err := tx.UpsertPosition("AAPL", 7); err != nil {
			return err
		}
		return tx.DeletePosition("MSFT")
	})
	require.NoError(t, err)

	var positions map[string]int64
	err = store.RunAtomic(ctx, func(tx Tx) error {
		var err error
		positions, err = tx.ListPositions()
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"AAPL": 7}, positions)
}

func TestSQLiteTransactionOrdering(t *testing.T) {
	t.Parallel()

	store := newTestSQLite(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	err := store.RunAtomic(ctx, func(tx Tx) error {
		// Two records sharing a timestamp, one earlier, one later.
		for _, rec := range []Transaction{
			{Type: Buy, Symbol: "AAPL", Price: dec("150"), Quantity: 10, Date: base},
			{Type: Buy, Symbol: "MSFT", Price: dec("400"), Quantity: 2, Date: base.Add(-time.Hour)},
			{Type: Sell, Symbol: "AAPL", Price: dec("160"), Quantity: 5, Date: base},
			{Type: Buy, Symbol: "NVDA", Price: dec("900"), Quantity: 1, Date: base.Add(time.Hour)},
		} {
			rec := rec
			if err := tx.AppendTransaction(&rec); err != nil {
				return err
			}
			assert.NotZero(t, rec.ID)
		}
		return nil
	})
	require.NoError(t, err)

	var recs []Transaction
	err = store.RunAtomic(ctx, func(tx Tx) error {
		var err error
		recs, err = tx.ListTransactions()
		return err
	})
	require.NoError(t, err)
	require.Len(t, recs, 4)

	// Newest date first; equal dates break the tie on id descending.
	assert.Equal(t, "NVDA", recs[0].Symbol)
	assert.Equal(t, Sell, recs[1].Type)
	assert.Equal(t, "AAPL", recs[1].Symbol)
	assert.Equal(t, Buy, recs[2].Type)
	assert.Equal(t, "AAPL", recs[2].Symbol)
	assert.Equal(t, "MSFT", recs[3].Symbol)
	assert.True(t, recs[2].Price.Equal(dec("150")))
}

func TestSQLiteRollbackOnError(t *testing.T) {
	t.Parallel()

	store := newTestSQLite(t)
	ctx := context.Background()

	fault := errors.New("fault")
	err := store.RunAtomic(ctx, func(tx Tx) error {
		if err := tx.SetBalance(dec("1")); err != nil {
			return err
		}
		if err := tx.UpsertPosition("AAPL", 10); err != nil {
			return err
		}
		rec := Transaction{Type: Buy, Symbol: "AAPL", Price: dec("150"), Quantity: 10, Date: time.Now().UTC()}
		if err := tx.AppendTransaction(&rec); err != nil {
			return err
		}
		return fault
	})
	assert.ErrorIs(t, err, fault)

	err = store.RunAtomic(ctx, func(tx Tx) error {
		bal, err := tx.GetBalance()
		if err != nil {
			return err
		}
		assert.True(t, bal.Equal(OpeningBalance), "balance = %s", bal)

		positions, err := tx.ListPositions()
		if err != nil {
			return err
		}
		assert.Empty(t, positions)

		recs, err := tx.ListTransactions()
		if err != nil {
			return err
		}
		assert.Empty(t, recs)
		return nil
	})
	require.NoError(t, err)
}

func TestSQLiteEngineScenario(t *testing.T) {
	t.Parallel()

	store := newTestSQLite(t)
	ctx := context.Background()

	e := NewEngine(store, &stubPricer{price: dec("150")}, nil)
	_, err := e.Buy(ctx, "AAPL", 10)
	require.NoError(t, err)

	e.prices = &stubPricer{price: dec("160")}
	_, err = e.Sell(ctx, "AAPL", 10)
	require.NoError(t, err)

	acct, err := e.Account(ctx)
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(dec("100100")), "balance = %s", acct.Balance)
	assert.Empty(t, acct.Portfolio)

	recs, err := e.Transactions(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, Sell, recs[0].Type)
	assert.Equal(t, Buy, recs[1].Type)
}

func TestSQLiteConcurrentSellsSerialize(t *testing.T) {
	t.Parallel()

	store := newTestSQLite(t)
	ctx := context.Background()

	e := NewEngine(store, &stubPricer{price: dec("100")}, nil)
	_, err := e.Buy(ctx, "AAPL", 6)
	require.NoError(t, err)

	const sellers = 5
	var wg sync.WaitGroup
	results := make(chan error, sellers)
	for i := 0; i < sellers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Sell(ctx, "AAPL", 2)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientShares)
		}
	}
	assert.Equal(t, 3, succeeded, "6 held, 2 per sell")

	acct, err := e.Account(ctx)
	require.NoError(t, err)
	assert.Empty(t, acct.Portfolio)
}
