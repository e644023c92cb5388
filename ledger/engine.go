package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultQuoteTimeout bounds the price lookup performed by Buy and Sell.
const DefaultQuoteTimeout = 10 * time.Second

// Engine validates and applies ledger operations against a Store, pricing
// trades through a PriceSource. The quote is fetched exactly once per trade,
// strictly before the store transaction opens, and is used both for the
// funds/shares check and the recorded transaction.
type Engine struct {
	store  Store
	prices PriceSource
	logger *zap.Logger

	// QuoteTimeout bounds PriceSource calls. Zero means DefaultQuoteTimeout.
	QuoteTimeout time.Duration

	// now is swapped out by tests.
	now func() time.Time
}

// NewEngine creates an Engine. prices may be nil for deployments that only
// read or reset the ledger; Buy and Sell then fail with ErrNoPriceData.
func NewEngine(store Store, prices PriceSource, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:  store,
		prices: prices,
		logger: logger,
		now:    time.Now,
	}
}

// Reset restores the opening balance and deletes all positions and
// transactions as one atomic unit. It is idempotent.
func (e *Engine) Reset(ctx context.Context) error {
	err := e.store.RunAtomic(ctx, func(tx Tx) error {
		if err := tx.SetBalance(OpeningBalance); err != nil {
			return err
		}
		if err := tx.DeleteAllPositions(); err != nil {
			return err
		}
		return tx.DeleteAllTransactions()
	})
	if err != nil {
		return fmt.Errorf("reset account: %w", err)
	}
	e.logger.Info("account reset", zap.String("balance", OpeningBalance.String()))
	return nil
}

// Account returns the current balance and a symbol->quantity map of all
// open positions, read from one consistent snapshot.
func (e *Engine) Account(ctx context.Context) (Account, error) {
	var acct Account
	err := e.store.RunAtomic(ctx, func(tx Tx) error {
		bal, err := tx.GetBalance()
		if err != nil {
			return err
		}
		positions, err := tx.ListPositions()
		if err != nil {
			return err
		}
		acct = Account{Balance: bal, Portfolio: positions}
		return nil
	})
	if err != nil {
		return Account{}, fmt.Errorf("fetch account: %w", err)
	}
	return acct, nil
}

// Transactions returns the full transaction log, newest first.
func (e *Engine) Transactions(ctx context.Context) ([]Transaction, error) {
	var out []Transaction
	err := e.store.RunAtomic(ctx, func(tx Tx) error {
		var err error
		out, err = tx.ListTransactions()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}
	return out, nil
}

// Buy purchases quantity shares of symbol at the current market price,
// debiting the balance and appending a buy transaction atomically. It
// returns the executed price.
func (e *Engine) Buy(ctx context.Context, symbol string, quantity int64) (decimal.Decimal, error) {
	symbol, err := validate(symbol, quantity)
	if err != nil {
		return decimal.Zero, err
	}

	price, err := e.quote(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	cost := price.Mul(decimal.NewFromInt(quantity))

	err = e.store.RunAtomic(ctx, func(tx Tx) error {
		bal, err := tx.GetBalance()
		if err != nil {
			return err
		}
		if bal.LessThan(cost) {
			return ErrInsufficientFunds
		}
		if err := tx.SetBalance(bal.Sub(cost)); err != nil {
			return err
		}
		held, _, err := tx.GetPosition(symbol)
		if err != nil {
			return err
		}
		if err := tx.UpsertPosition(symbol, held+quantity); err != nil {
			return err
		}
		return tx.AppendTransaction(&Transaction{
			Type:     Buy,
			Symbol:   symbol,
			Price:    price,
			Quantity: quantity,
			Date:     e.now().UTC(),
		})
	})
	if err != nil {
		return decimal.Zero, tradeErr("buy", symbol, err)
	}

	e.logger.Info("buy executed",
		zap.String("symbol", symbol),
		zap.Int64("quantity", quantity),
		zap.String("price", price.String()),
		zap.String("cost", cost.String()))
	return price, nil
}

// Sell disposes of quantity shares of symbol at the current market price,
// crediting the balance and appending a sell transaction atomically. The
// position row is deleted when it reaches exactly zero. It returns the
// executed price.
func (e *Engine) Sell(ctx context.Context, symbol string, quantity int64) (decimal.Decimal, error) {
	symbol, err := validate(symbol, quantity)
	if err != nil {
		return decimal.Zero, err
	}

	price, err := e.quote(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	proceeds := price.Mul(decimal.NewFromInt(quantity))

	err = e.store.RunAtomic(ctx, func(tx Tx) error {
		held, ok, err := tx.GetPosition(symbol)
		if err != nil {
			return err
		}
		if !ok || held < quantity {
			return ErrInsufficientShares
		}
		bal, err := tx.GetBalance()
		if err != nil {
			return err
		}
		if err := tx.SetBalance(bal.Add(proceeds)); err != nil {
			return err
		}
		if held == quantity {
			if err := tx.DeletePosition(symbol); err != nil {
				return err
			}
		} else {
			if err := tx.UpsertPosition(symbol, held-quantity); err != nil {
				return err
			}
		}
		return tx.AppendTransaction(&Transaction{
			Type:     Sell,
			Symbol:   symbol,
			Price:    price,
			Quantity: quantity,
			Date:     e.now().UTC(),
		})
	})
	if err != nil {
		return decimal.Zero, tradeErr("sell", symbol, err)
	}

	e.logger.Info("sell executed",
		zap.String("symbol", symbol),
		zap.Int64("quantity", quantity),
		zap.String("price", price.String()),
		zap.String("proceeds", proceeds.String()))
	return price, nil
}

// quote fetches the current price for symbol, bounded by QuoteTimeout.
// Every failure mode, timeouts included, surfaces as ErrNoPriceData so the
// caller treats them uniformly.
func (e *Engine) quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if e.prices == nil {
		return decimal.Zero, fmt.Errorf("quote %s: %w", symbol, ErrNoPriceData)
	}

	timeout := e.QuoteTimeout
	if timeout <= 0 {
		timeout = DefaultQuoteTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	price, err := e.prices.GetPrice(ctx, symbol)
	if err != nil {
		e.logger.Warn("quote failed", zap.String("symbol", symbol), zap.Error(err))
		return decimal.Zero, fmt.Errorf("quote %s: %w", symbol, ErrNoPriceData)
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("quote %s: %w", symbol, ErrNoPriceData)
	}
	return price, nil
}

func validate(symbol string, quantity int64) (string, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return "", ErrInvalidSymbol
	}
	if quantity < 1 {
		return "", ErrInvalidQuantity
	}
	return symbol, nil
}

// tradeErr keeps business rejections recognizable via errors.Is while
// giving store faults operation context.
func tradeErr(op, symbol string, err error) error {
	if IsClientError(err) {
		return err
	}
	return fmt.Errorf("%s %s: %w", op, symbol, err)
}
