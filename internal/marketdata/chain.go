package marketdata

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradelab/backtester/internal/candle"
)

// Chain tries providers in order and returns the first non-empty result.
// A provider failure or empty series moves on to the next provider; only
// when every provider has been exhausted does the chain fail.
type Chain struct {
	fetchers []Fetcher
	logger   zerolog.Logger
}

func NewChain(logger zerolog.Logger, fetchers ...Fetcher) *Chain {
	return &Chain{
		fetchers: fetchers,
		logger:   logger.With().Str("provider", "chain").Logger(),
	}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) FetchCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]candle.Candle, error) {
	var lastErr error
	for _, f := range c.fetchers {
		candles, err := f.FetchCandles(ctx, symbol, timeframe, start, end)
		if err != nil {
			c.logger.Warn().Err(err).Str("fetcher", f.Name()).Str("symbol", symbol).
				Msg("provider failed, falling back")
			lastErr = err
			continue
		}
		if len(candles) == 0 {
			c.logger.Warn().Str("fetcher", f.Name()).Str("symbol", symbol).
				Msg("provider returned no candles, falling back")
			lastErr = &FetchError{Provider: f.Name(), Err: ErrNoData}
			continue
		}
		return candles, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNoData
}
