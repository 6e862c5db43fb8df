package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradelab/backtester/internal/candle"
	"github.com/tradelab/backtester/internal/db"
)

// Loader loads candles for a backtest: the candle cache is consulted first,
// and on a miss the fetcher is asked, the result normalized (sorted,
// deduplicated, trimmed) and written back to the cache.
type Loader struct {
	storage db.Storage
	fetcher Fetcher
	logger  zerolog.Logger
}

func NewLoader(storage db.Storage, fetcher Fetcher, logger zerolog.Logger) *Loader {
	return &Loader{
		storage: storage,
		fetcher: fetcher,
		logger:  logger.With().Str("component", "loader").Logger(),
	}
}

// Load returns ordered, deduplicated candles in [from, to).
func (l *Loader) Load(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]candle.Candle, error) {
	if l.storage != nil {
		cached, err := l.storage.GetCandles(ctx, symbol, timeframe, from, to)
		if err != nil {
			return nil, fmt.Errorf("loading candles from storage: %w", err)
		}
		if len(cached) > 0 {
			l.logger.Debug().Str("symbol", symbol).Int("count", len(cached)).Msg("loaded candles from cache")
			return cached, nil
		}
	}

	fetched, err := l.fetcher.FetchCandles(ctx, symbol, timeframe, from, to)
	if err != nil {
		return nil, err
	}

	normalized := candle.NormalizeSeries(fetched, timeframe, from, to)

	if l.storage != nil && len(normalized) > 0 {
		if err := l.storage.SaveCandles(ctx, normalized); err != nil {
			return nil, fmt.Errorf("saving candles to storage: %w", err)
		}
		l.logger.Debug().Str("symbol", symbol).Int("count", len(normalized)).Msg("cached downloaded candles")
	}

	return normalized, nil
}
