package marketdata

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/tradelab/backtester/internal/candle"
)

const (
	binanceBaseURL    = "https://api.binance.com/api/v3/klines"
	binanceKlineLimit = 1000

	backoffFactor = 2.0
	jitterRange   = 0.1 // ±10% jitter
)

// BinanceConfig configures the Binance public-API client.
type BinanceConfig struct {
	// BaseURL overrides the klines endpoint, for tests.
	BaseURL string
	// ProxyURL routes requests through an HTTP proxy when set.
	ProxyURL   string
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Logger     zerolog.Logger
}

// BinanceClient fetches candles from the Binance public klines API.
type BinanceClient struct {
	baseURL    string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	httpc      *http.Client
	logger     zerolog.Logger
}

// NewBinanceClient creates a Binance client with retry and optional proxy support.
func NewBinanceClient(cfg BinanceConfig) (*BinanceClient, error) {
	transport := &http.Transport{}
	if cfg.ProxyURL != "" {
		proxyParsed, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyParsed)
	}

	c := &BinanceClient{
		baseURL:    cfg.BaseURL,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
		maxDelay:   cfg.MaxDelay,
		httpc: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		logger: cfg.Logger.With().Str("provider", "binance").Logger(),
	}
	if c.baseURL == "" {
		c.baseURL = binanceBaseURL
	}
	if c.maxRetries <= 0 {
		c.maxRetries = 3
	}
	if c.baseDelay <= 0 {
		c.baseDelay = 2 * time.Second
	}
	if c.maxDelay <= 0 {
		c.maxDelay = 15 * time.Second
	}
	return c, nil
}

func (c *BinanceClient) Name() string { return "binance" }

// FetchCandles downloads candles in chunks sized to the API's kline limit.
func (c *BinanceClient) FetchCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]candle.Candle, error) {
	dur, err := candle.ParseTimeframe(timeframe)
	if err != nil {
		return nil, fmt.Errorf("unsupported timeframe %q: %w", timeframe, err)
	}

	// Convert e.g. btc-usdt to BTCUSDT; Binance interval tokens match ours.
	apiSymbol := strings.ToUpper(strings.ReplaceAll(symbol, "-", ""))

	chunk := dur * binanceKlineLimit
	var all []candle.Candle
	for curr := start; curr.Before(end); curr = curr.Add(chunk) {
		next := curr.Add(chunk)
		if next.After(end) {
			next = end
		}
		candles, err := c.fetchChunk(ctx, symbol, apiSymbol, timeframe, curr, next)
		if err != nil {
			return nil, err
		}
		c.logger.Debug().
			Str("symbol", symbol).
			Int("count", len(candles)).
			Time("from", curr).
			Time("to", next).
			Msg("downloaded candle chunk")
		all = append(all, candles...)
	}
	return all, nil
}

// fetchChunk downloads a single request's worth of klines with retries.
func (c *BinanceClient) fetchChunk(ctx context.Context, symbol, apiSymbol, timeframe string, start, end time.Time) ([]candle.Candle, error) {
	apiURL := fmt.Sprintf("%s?symbol=%s&interval=%s&startTime=%d&endTime=%d&limit=%d",
		c.baseURL, apiSymbol, timeframe, start.UnixMilli(), end.UnixMilli(), binanceKlineLimit)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelay(attempt-1, c.baseDelay, c.maxDelay)
			c.logger.Warn().Err(lastErr).Dur("delay", delay).Int("attempt", attempt+1).Msg("retrying kline download")
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		body, retryable, err := c.doRequest(ctx, apiURL)
		if err != nil {
			lastErr = err
			if !retryable {
				break
			}
			continue
		}

		candles, err := parseKlines(body, symbol, timeframe)
		if err != nil {
			lastErr = err
			continue
		}
		return candles, nil
	}
	return nil, &FetchError{Provider: c.Name(), Err: fmt.Errorf("after %d attempts: %w", c.maxRetries, lastErr)}
}

// doRequest performs one HTTP round trip. The second return value reports
// whether a failure is worth retrying.
func (c *BinanceClient) doRequest(ctx context.Context, apiURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, isRetryableHTTPStatus(resp.StatusCode),
			fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, false, nil
}

// parseKlines converts a Binance klines response into candles. Binance
// returns rows of the form [openTime, open, high, low, close, volume, ...]
// with prices as strings.
func parseKlines(body []byte, symbol, timeframe string) ([]candle.Candle, error) {
	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("unexpected klines payload: %s", truncate(string(body), 120))
	}

	rows := parsed.Array()
	candles := make([]candle.Candle, 0, len(rows))
	for _, row := range rows {
		fields := row.Array()
		if len(fields) < 6 {
			continue
		}
		c := candle.Candle{
			Timestamp: time.UnixMilli(fields[0].Int()).UTC(),
			Open:      fields[1].Float(),
			High:      fields[2].Float(),
			Low:       fields[3].Float(),
			Close:     fields[4].Float(),
			Volume:    fields[5].Float(),
			Symbol:    symbol,
			Timeframe: timeframe,
			Source:    "binance",
		}
		if err := c.Validate(); err != nil {
			continue
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// retryDelay computes an exponential backoff with jitter, capped at max.
func retryDelay(attempt int, base, max time.Duration) time.Duration {
	delay := float64(base) * math.Pow(backoffFactor, float64(attempt))
	if delay > float64(max) {
		delay = float64(max)
	}
	delay += delay * jitterRange * (2*rand.Float64() - 1)
	if delay < 0 {
		delay = float64(base)
	}
	return time.Duration(delay)
}

// isRetryableHTTPStatus determines if an HTTP status code indicates a retryable error
func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
