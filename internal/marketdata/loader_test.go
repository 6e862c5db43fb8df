package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelab/backtester/internal/db"
)

func TestLoaderFetchesAndCaches(t *testing.T) {
	storage := db.NewMemory()
	fetcher := &stubFetcher{name: "stub", candles: stubCandles(5)}
	loader := NewLoader(storage, fetcher, zerolog.Nop())

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 5)

	got, err := loader.Load(context.Background(), "STUBUSDT", "1d", from, to)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, 1, fetcher.calls)

	// Second load is served from the cache.
	got, err = loader.Load(context.Background(), "STUBUSDT", "1d", from, to)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, 1, fetcher.calls, "cache hit must not refetch")
}

func TestLoaderNormalizesFetchedSeries(t *testing.T) {
	candles := stubCandles(5)
	// Shuffle in a duplicate and reverse the order.
	candles = append(candles, candles[2])
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}

	loader := NewLoader(nil, &stubFetcher{name: "stub", candles: candles}, zerolog.Nop())

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := loader.Load(context.Background(), "STUBUSDT", "1d", from, from.AddDate(0, 0, 5))
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].Timestamp.After(got[i-1].Timestamp), "series must be strictly ordered")
	}
}

func TestLoaderTrimsToRange(t *testing.T) {
	loader := NewLoader(nil, &stubFetcher{name: "stub", candles: stubCandles(10)}, zerolog.Nop())

	from := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 2)
	got, err := loader.Load(context.Background(), "STUBUSDT", "1d", from, to)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, from, got[0].Timestamp)
}

func TestLoaderPropagatesFetchError(t *testing.T) {
	fetchErr := &FetchError{Provider: "stub", Err: ErrNoData}
	loader := NewLoader(db.NewMemory(), &stubFetcher{name: "stub", err: fetchErr}, zerolog.Nop())

	_, err := loader.Load(context.Background(), "STUBUSDT", "1d", time.Now().Add(-time.Hour), time.Now())
	assert.ErrorIs(t, err, ErrNoData)
}
