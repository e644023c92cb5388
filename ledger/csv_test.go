package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestImportCSV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFixture(t, dir, BalanceCSV, "id,amount\n1,98500.50\n")
	writeFixture(t, dir, PortfolioCSV, "symbol,quantity\nAAPL,10\nMSFT,0\n")
	writeFixture(t, dir, TransactionsCSV,
		"id,type,symbol,price,quantity,date\n"+
			"1,buy,AAPL,150.25,10,2024-03-01T10:00:00Z\n"+
			"2,sell,AAPL,160,5,2024-03-01T11:00:00Z\n")

	store := newMemStore()
	require.NoError(t, ImportCSV(context.Background(), store, dir))

	assert.True(t, store.state.balance.Equal(dec("98500.50")), "balance = %s", store.state.balance)
	// Zero-quantity rows are dropped, not stored.
	assert.Equal(t, map[string]int64{"AAPL": 10}, store.state.positions)

	require.Len(t, store.state.transactions, 2)
	assert.Equal(t, Buy, store.state.transactions[0].Type)
	assert.True(t, store.state.transactions[0].Price.Equal(dec("150.25")))
	assert.Equal(t, Sell, store.state.transactions[1].Type)
	assert.Equal(t, int64(5), store.state.transactions[1].Quantity)
}

func TestImportCSVMissingFilesAreSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFixture(t, dir, PortfolioCSV, "symbol,quantity\nTSLA,3\n")

	store := newMemStore()
	require.NoError(t, ImportCSV(context.Background(), store, dir))

	assert.True(t, store.state.balance.Equal(OpeningBalance))
	assert.Equal(t, map[string]int64{"TSLA": 3}, store.state.positions)
	assert.Empty(t, store.state.transactions)
}

func TestImportCSVMalformedRowAbortsEverything(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFixture(t, dir, BalanceCSV, "id,amount\n1,50000\n")
	writeFixture(t, dir, TransactionsCSV,
		"id,type,symbol,price,quantity,date\n"+
			"1,buy,AAPL,150,10,2024-03-01T10:00:00Z\n"+
			"2,hold,AAPL,150,10,2024-03-01T11:00:00Z\n")

	store := newMemStore()
	err := ImportCSV(context.Background(), store, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")

	// The balance row before the bad transaction must also roll back.
	assert.True(t, store.state.balance.Equal(OpeningBalance))
	assert.Empty(t, store.state.transactions)
}

func TestImportCSVIntoSQLite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFixture(t, dir, BalanceCSV, "id,amount\n1,75000\n")
	writeFixture(t, dir, PortfolioCSV, "symbol,quantity\nAAPL,2\n")
	writeFixture(t, dir, TransactionsCSV,
		"id,type,symbol,price,quantity,date\n"+
			"1,buy,AAPL,125,2,2024-03-01T10:00:00Z\n")

	store := newTestSQLite(t)
	require.NoError(t, ImportCSV(context.Background(), store, dir))

	e := NewEngine(store, nil, nil)
	acct, err := e.Account(context.Background())
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(dec("75000")))
	assert.Equal(t, map[string]int64{"AAPL": 2}, acct.Portfolio)

	recs, err := e.Transactions(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "AAPL", recs[0].Symbol)
}
