package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tradelab/backtester/internal/candle"
	"github.com/tradelab/backtester/internal/journal"
)

// MemoryStorage is an in-memory Storage, used when no database is configured
// and in tests.
type MemoryStorage struct {
	mu sync.RWMutex

	// Candles keyed by symbol|timeframe|timestamp
	candles map[string]candle.Candle

	results []BacktestRecord
	events  []journal.Event
}

func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		candles: make(map[string]candle.Candle),
	}
}

func (m *MemoryStorage) Close() error { return nil }

func candleKey(symbol, timeframe string, ts time.Time) string {
	return strings.ToUpper(symbol) + "|" + timeframe + "|" + ts.UTC().Format(time.RFC3339Nano)
}

func (m *MemoryStorage) SaveCandles(ctx context.Context, candles []candle.Candle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range candles {
		if err := c.Validate(); err != nil {
			return err
		}
		m.candles[candleKey(c.Symbol, c.Timeframe, c.Timestamp)] = c
	}
	return nil
}

func (m *MemoryStorage) GetCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]candle.Candle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []candle.Candle
	for _, c := range m.candles {
		if !strings.EqualFold(c.Symbol, symbol) || c.Timeframe != timeframe {
			continue
		}
		if c.Timestamp.Before(start) || !c.Timestamp.Before(end) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (m *MemoryStorage) GetCandleCount(ctx context.Context, symbol, timeframe string, start, end time.Time) (int, error) {
	candles, err := m.GetCandles(ctx, symbol, timeframe, start, end)
	if err != nil {
		return 0, err
	}
	return len(candles), nil
}

func (m *MemoryStorage) SaveBacktestResult(ctx context.Context, rec BacktestRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, rec)
	return nil
}

func (m *MemoryStorage) GetBacktestResults(ctx context.Context, symbol string) ([]BacktestRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []BacktestRecord
	for _, r := range m.results {
		if strings.EqualFold(r.Symbol, symbol) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryStorage) LogEvent(ctx context.Context, event journal.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of all journaled events.
func (m *MemoryStorage) Events() []journal.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]journal.Event, len(m.events))
	copy(out, m.events)
	return out
}
