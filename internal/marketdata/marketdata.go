// Package marketdata provides historical candle providers and the fallback
// chain the backtest runner loads data through. Providers return candles in
// ascending chronological order; ordering, deduplication, and integrity
// checks are finalized by the loader before the engine runs.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tradelab/backtester/internal/candle"
)

// ErrNoData indicates a provider (or the whole chain) has no candles for
// the requested symbol and range.
var ErrNoData = errors.New("no market data available")

// FetchError wraps a provider failure (network, timeout, rate limit).
type FetchError struct {
	Provider string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: fetching candles: %v", e.Provider, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher fetches historical candles for a symbol.
type Fetcher interface {
	Name() string
	FetchCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]candle.Candle, error)
}

var _ Fetcher = (*BinanceClient)(nil)
var _ Fetcher = (*WallexClient)(nil)
var _ Fetcher = (*SimulatedSource)(nil)
var _ Fetcher = (*Chain)(nil)
