package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	wallex "github.com/wallexchange/wallex-go"

	"github.com/tradelab/backtester/internal/candle"
)

// WallexConfig configures the Wallex provider.
type WallexConfig struct {
	APIKey     string
	MaxRetries int
	RetryDelay time.Duration
	Logger     zerolog.Logger
}

// WallexClient fetches candles from the Wallex exchange API.
type WallexClient struct {
	client     *wallex.Client
	maxRetries int
	retryDelay time.Duration
	logger     zerolog.Logger
}

func NewWallexClient(cfg WallexConfig) *WallexClient {
	c := &WallexClient{
		client:     wallex.New(wallex.ClientOptions{APIKey: cfg.APIKey}),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger.With().Str("provider", "wallex").Logger(),
	}
	if c.maxRetries <= 0 {
		c.maxRetries = 3
	}
	if c.retryDelay <= 0 {
		c.retryDelay = 2 * time.Second
	}
	return c
}

func (w *WallexClient) Name() string { return "wallex" }

// retry wraps a function with retry logic for transient errors, using
// exponential backoff capped at one minute.
func (w *WallexClient) retry(ctx context.Context, fn func() error) error {
	backoff := w.retryDelay
	var lastErr error
	for i := 1; i <= w.maxRetries; i++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		w.logger.Warn().Err(lastErr).Int("attempt", i).Int("max", w.maxRetries).Dur("backoff", backoff).
			Msg("wallex request failed")
		if i == w.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < time.Minute {
			backoff *= 2
		}
	}
	return errors.New("all retry attempts failed")
}

// FetchCandles fetches candles from Wallex. Symbols like btc-usdt are
// normalized to BTCUSDT, and the timeframe to Wallex's resolution tokens.
func (w *WallexClient) FetchCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]candle.Candle, error) {
	if !candle.IsValidTimeframe(timeframe) {
		return nil, fmt.Errorf("unsupported timeframe: %s", timeframe)
	}

	normalizedSymbol := strings.ToUpper(strings.ReplaceAll(symbol, "-", ""))
	resolution := strings.TrimSuffix(timeframe, "m")

	var wallexCandles []*wallex.Candle
	err := w.retry(ctx, func() error {
		var err error
		wallexCandles, err = w.client.Candles(normalizedSymbol, resolution, start, end)
		if err != nil {
			return fmt.Errorf("fetching candles: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, &FetchError{Provider: w.Name(), Err: err}
	}

	dur := candle.GetTimeframeDuration(timeframe)
	candles := make([]candle.Candle, 0, len(wallexCandles))
	for _, wc := range wallexCandles {
		open, _ := strconv.ParseFloat(string(wc.Open), 64)
		high, _ := strconv.ParseFloat(string(wc.High), 64)
		low, _ := strconv.ParseFloat(string(wc.Low), 64)
		closePrice, _ := strconv.ParseFloat(string(wc.Close), 64)
		volume, _ := strconv.ParseFloat(string(wc.Volume), 64)

		c := candle.Candle{
			Timestamp: wc.Timestamp.UTC().Truncate(dur),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
			Symbol:    symbol,
			Timeframe: timeframe,
			Source:    w.Name(),
		}
		if err := c.Validate(); err != nil {
			continue // skip invalid candles
		}
		candles = append(candles, c)
	}
	return candles, nil
}
