// Package db persists candle history, backtest results, and journal events,
// backed by Postgres or an in-memory store.
package db

import (
	"context"
	"time"

	"github.com/tradelab/backtester/internal/candle"
	"github.com/tradelab/backtester/internal/journal"
)

// BacktestRecord is a persisted backtest run. Result holds the
// JSON-encoded result document.
type BacktestRecord struct {
	ID        string
	Symbol    string
	Strategy  string
	CreatedAt time.Time
	Result    []byte
}

// Storage persists candles, completed backtest runs, and journal events.
type Storage interface {
	SaveCandles(ctx context.Context, candles []candle.Candle) error
	GetCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]candle.Candle, error)
	GetCandleCount(ctx context.Context, symbol, timeframe string, start, end time.Time) (int, error)

	SaveBacktestResult(ctx context.Context, rec BacktestRecord) error
	GetBacktestResults(ctx context.Context, symbol string) ([]BacktestRecord, error)

	LogEvent(ctx context.Context, event journal.Event) error

	Close() error
}
