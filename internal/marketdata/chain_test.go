package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelab/backtester/internal/candle"
)

// stubFetcher returns a fixed series or error and counts invocations.
type stubFetcher struct {
	name    string
	candles []candle.Candle
	err     error
	calls   int
}

func (s *stubFetcher) Name() string { return s.name }

func (s *stubFetcher) FetchCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]candle.Candle, error) {
	s.calls++
	return s.candles, s.err
}

func stubCandles(n int) []candle.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]candle.Candle, n)
	for i := range out {
		out[i] = candle.Candle{
			Timestamp: base.AddDate(0, 0, i),
			Open:      100, High: 101, Low: 99, Close: 100,
			Volume: 10, Symbol: "STUBUSDT", Timeframe: "1d", Source: "stub",
		}
	}
	return out
}

func TestChainFirstProviderWins(t *testing.T) {
	first := &stubFetcher{name: "first", candles: stubCandles(3)}
	second := &stubFetcher{name: "second", candles: stubCandles(5)}
	chain := NewChain(zerolog.Nop(), first, second)

	got, err := chain.FetchCandles(context.Background(), "STUBUSDT", "1d", time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Zero(t, second.calls, "fallback must not be consulted on success")
}

func TestChainFallsBackOnError(t *testing.T) {
	first := &stubFetcher{name: "first", err: errors.New("down")}
	second := &stubFetcher{name: "second", candles: stubCandles(5)}
	chain := NewChain(zerolog.Nop(), first, second)

	got, err := chain.FetchCandles(context.Background(), "STUBUSDT", "1d", time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, 1, first.calls)
}

func TestChainFallsBackOnEmptyResult(t *testing.T) {
	first := &stubFetcher{name: "first"} // no candles, no error
	second := &stubFetcher{name: "second", candles: stubCandles(2)}
	chain := NewChain(zerolog.Nop(), first, second)

	got, err := chain.FetchCandles(context.Background(), "STUBUSDT", "1d", time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestChainAllProvidersFail(t *testing.T) {
	first := &stubFetcher{name: "first", err: errors.New("down")}
	second := &stubFetcher{name: "second"}
	chain := NewChain(zerolog.Nop(), first, second)

	_, err := chain.FetchCandles(context.Background(), "STUBUSDT", "1d", time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)
	// The last failure surfaces: an empty provider reports ErrNoData.
	assert.ErrorIs(t, err, ErrNoData)
}

func TestChainNoProviders(t *testing.T) {
	chain := NewChain(zerolog.Nop())
	_, err := chain.FetchCandles(context.Background(), "STUBUSDT", "1d", time.Now().Add(-time.Hour), time.Now())
	assert.ErrorIs(t, err, ErrNoData)
}
