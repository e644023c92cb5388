// Package api exposes the ledger engine over HTTP. Handlers carry no
// business logic: they parse request shapes, invoke the engine or quote
// client, and translate outcomes to status codes and JSON bodies.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/pkg/id"
	"github.com/rustyeddy/papertrade/yahoo"
)

// Quoter is the market-data surface needed by the price and history
// endpoints. *yahoo.Client satisfies it.
type Quoter interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	GetHistory(ctx context.Context, req yahoo.HistoryRequest) ([]yahoo.Bar, error)
}

// Server serves the ledger HTTP API.
type Server struct {
	Addr   string
	engine *ledger.Engine
	quotes Quoter
	logger *zap.Logger
}

// NewServer creates a Server around an engine and a quote client.
func NewServer(addr string, engine *ledger.Engine, quotes Quoter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Addr: addr, engine: engine, quotes: quotes, logger: logger}
}

// Handler returns the full route tree wrapped in recovery and access-log
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.HandleFunc("/api/account", s.handleAccount)
	mux.HandleFunc("/api/transactions", s.handleTransactions)
	mux.HandleFunc("/api/buy", s.handleBuy)
	mux.HandleFunc("/api/sell", s.handleSell)
	mux.HandleFunc("/api/price/", s.handlePrice)
	mux.HandleFunc("/api/history/", s.handleHistory)
	return s.recoverPanics(s.logRequests(mux))
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Invalid request method.")
		return
	}
	if err := s.engine.Reset(r.Context()); err != nil {
		s.logger.Error("reset failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to reset account.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Account has been reset."})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Invalid request method.")
		return
	}
	acct, err := s.engine.Account(r.Context())
	if err != nil {
		s.logger.Error("account fetch failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch account data.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"balance":   acct.Balance.InexactFloat64(),
		"portfolio": acct.Portfolio,
	})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Invalid request method.")
		return
	}
	records, err := s.engine.Transactions(r.Context())
	if err != nil {
		s.logger.Error("transactions fetch failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch transactions.")
		return
	}

	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		out = append(out, map[string]any{
			"type":     string(rec.Type),
			"symbol":   rec.Symbol,
			"price":    rec.Price.InexactFloat64(),
			"quantity": rec.Quantity,
			"date":     rec.Date.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// tradeRequest is the POST body of /api/buy and /api/sell. Quantity is a
// json.Number so a fractional value is rejected rather than truncated.
type tradeRequest struct {
	Symbol   string      `json:"symbol"`
	Quantity json.Number `json:"quantity"`
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Invalid request method.")
		return
	}
	symbol, quantity, ok := decodeTrade(w, r)
	if !ok {
		return
	}

	price, err := s.engine.Buy(r.Context(), symbol, quantity)
	if err != nil {
		s.writeTradeError(w, err, "Insufficient funds.", "Failed to complete purchase.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Purchase successful.",
		"price":   price.InexactFloat64(),
	})
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Invalid request method.")
		return
	}
	symbol, quantity, ok := decodeTrade(w, r)
	if !ok {
		return
	}

	price, err := s.engine.Sell(r.Context(), symbol, quantity)
	if err != nil {
		s.writeTradeError(w, err, "Insufficient shares.", "Failed to complete sale.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Sale successful.",
		"price":   price.InexactFloat64(),
	})
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Invalid request method.")
		return
	}
	symbol := strings.TrimPrefix(r.URL.Path, "/api/price/")
	if symbol == "" || strings.Contains(symbol, "/") {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}

	price, err := s.quotes.GetPrice(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, yahoo.ErrNoData) {
			writeError(w, http.StatusBadRequest, "Invalid price data.")
			return
		}
		s.logger.Error("price fetch failed", zap.String("symbol", symbol), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error fetching price data.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"price": price.InexactFloat64()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Invalid request method.")
		return
	}
	symbol := strings.TrimPrefix(r.URL.Path, "/api/history/")
	if symbol == "" || strings.Contains(symbol, "/") {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}

	q := r.URL.Query()
	from, err := parseDay(q.Get("period1"), "2020-01-01")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period.")
		return
	}
	to, err := parseDay(q.Get("period2"), time.Now().UTC().Format("2006-01-02"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period.")
		return
	}
	interval := q.Get("interval")
	if interval == "" {
		interval = "1d"
	}

	bars, err := s.quotes.GetHistory(r.Context(), yahoo.HistoryRequest{
		Symbol:   symbol,
		From:     from,
		To:       to,
		Interval: interval,
	})
	if err != nil {
		if errors.Is(err, yahoo.ErrNoData) {
			writeError(w, http.StatusBadRequest, "No historical data found.")
			return
		}
		s.logger.Error("history fetch failed", zap.String("symbol", symbol), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error fetching historical data.")
		return
	}

	out := make([]map[string]any, 0, len(bars))
	for _, b := range bars {
		out = append(out, map[string]any{
			"date":   b.Time.Format(time.RFC3339),
			"open":   b.Open,
			"high":   b.High,
			"low":    b.Low,
			"close":  b.Close,
			"volume": b.Volume,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// decodeTrade parses a buy/sell body, writing the error response itself
// when the shape is invalid.
func decodeTrade(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return "", 0, false
	}
	if strings.TrimSpace(req.Symbol) == "" {
		writeError(w, http.StatusBadRequest, "Invalid symbol.")
		return "", 0, false
	}
	if req.Quantity == "" {
		writeError(w, http.StatusBadRequest, "Invalid quantity.")
		return "", 0, false
	}
	quantity, err := req.Quantity.Int64()
	if err != nil || quantity < 1 {
		writeError(w, http.StatusBadRequest, "Invalid quantity.")
		return "", 0, false
	}
	return req.Symbol, quantity, true
}

// writeTradeError maps an engine error to the response the original API
// contract specifies for buy/sell.
func (s *Server) writeTradeError(w http.ResponseWriter, err error, businessMsg, faultMsg string) {
	switch {
	case errors.Is(err, ledger.ErrInvalidSymbol):
		writeError(w, http.StatusBadRequest, "Invalid symbol.")
	case errors.Is(err, ledger.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "Invalid quantity.")
	case errors.Is(err, ledger.ErrNoPriceData):
		writeError(w, http.StatusBadRequest, "No price data available.")
	case errors.Is(err, ledger.ErrInsufficientFunds), errors.Is(err, ledger.ErrInsufficientShares):
		writeError(w, http.StatusBadRequest, businessMsg)
	default:
		s.logger.Error("trade failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, faultMsg)
	}
}

// parseDay parses a YYYY-MM-DD query value, substituting fallback when the
// value is empty.
func parseDay(value, fallback string) (time.Time, error) {
	if value == "" {
		value = fallback
	}
	return time.Parse("2006-01-02", value)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusRecorder captures the response code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("request_id", id.New()),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

// recoverPanics converts handler panics into generic 500 responses so no
// internal detail leaks to the client.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.logger.Error("handler panic", zap.Any("panic", v), zap.String("path", r.URL.Path))
				writeError(w, http.StatusInternalServerError, "Internal server error.")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
