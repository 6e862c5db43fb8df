package backtest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelab/backtester/internal/candle"
	"github.com/tradelab/backtester/internal/strategy"
)

// candlesFromCloses builds a daily series from closing prices. Each candle's
// range collapses to its close, which is enough for the close-driven engine.
func candlesFromCloses(closes []float64) []candle.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]candle.Candle, len(closes))
	for i, c := range closes {
		out[i] = candle.Candle{
			Timestamp: base.AddDate(0, 0, i),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    100,
			Symbol:    "TESTUSDT",
			Timeframe: "1d",
			Source:    "test",
		}
	}
	return out
}

// oscillation is a 40-candle series engineered to trigger exactly one trade
// under an RSI 30/70 strategy: flat, then a steady decline into oversold,
// then a recovery into overbought.
func oscillation() []float64 {
	closes := make([]float64, 0, 40)
	for i := 0; i < 21; i++ {
		closes = append(closes, 100)
	}
	for p := 99.0; p >= 89; p-- { // indices 21..31
		closes = append(closes, p)
	}
	for p := 92.0; len(closes) < 40; p += 3 { // indices 32..39
		closes = append(closes, p)
	}
	return closes
}

func TestSimulateRSIRoundTrip(t *testing.T) {
	strat := strategy.Config{
		Name: "rsi",
		EntryRules: strategy.EntryRules{
			RSIOversold:   30,
			RSIOverbought: 70,
		},
		PositionSize: 9000,
	}

	candles := candlesFromCloses(oscillation())
	trades, balance := simulate("TESTUSDT", strat, candles, 10000, zerolog.Nop())

	require.Len(t, trades, 1)
	tr := trades[0]

	// Oversold entry at the bottom of the decline.
	assert.Equal(t, candles[30].Timestamp, tr.EntryDate)
	assert.InDelta(t, 90, tr.EntryPrice, 1e-9)
	assert.Contains(t, tr.Reason, "RSI overbought")

	// Overbought exit on the recovery leg.
	assert.Equal(t, candles[38].Timestamp, tr.ExitDate)
	assert.InDelta(t, 110, tr.ExitPrice, 1e-9)

	assert.InDelta(t, 100, tr.Quantity, 1e-9) // 9000 / 90
	assert.InDelta(t, 2000, tr.PnL, 1e-6)
	assert.InDelta(t, 100.0/90*20, tr.PnLPercent, 1e-6)
	assert.Equal(t, "BUY", tr.Type)

	assert.InDelta(t, 12000, balance, 1e-6)
}

func TestSimulateNoEntryRulesNeverTrades(t *testing.T) {
	strat := strategy.Config{Name: "inert", PositionSize: 1000}
	candles := candlesFromCloses(oscillation())

	trades, balance := simulate("TESTUSDT", strat, candles, 10000, zerolog.Nop())
	assert.Empty(t, trades)
	assert.Equal(t, 10000.0, balance, "untouched balance must be exact")
}

func TestSimulateForcedCloseAtEnd(t *testing.T) {
	// A strict decline keeps RSI at 0: the 100 threshold enters immediately
	// and no exit rule ever fires.
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	strat := strategy.Config{
		Name:         "hold",
		EntryRules:   strategy.EntryRules{RSIOversold: 100},
		PositionSize: 1000,
	}

	candles := candlesFromCloses(closes)
	trades, balance := simulate("TESTUSDT", strat, candles, 10000, zerolog.Nop())

	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, "End of backtest period", tr.Reason)
	assert.Equal(t, candles[len(candles)-1].Timestamp, tr.ExitDate)
	assert.InDelta(t, 170, tr.EntryPrice, 1e-9)
	assert.InDelta(t, 161, tr.ExitPrice, 1e-9)
	assert.InDelta(t, 10000+tr.PnL, balance, 1e-9)
}

func TestSimulateSkipsEntryWithoutFreeBalance(t *testing.T) {
	strat := strategy.Config{
		Name:         "broke",
		EntryRules:   strategy.EntryRules{RSIOversold: 100},
		PositionSize: 1000,
	}
	candles := candlesFromCloses(oscillation())

	// Balance equal to the position size is not enough; entry needs cash
	// strictly above it.
	trades, balance := simulate("TESTUSDT", strat, candles, 1000, zerolog.Nop())
	assert.Empty(t, trades)
	assert.Equal(t, 1000.0, balance)
}

func TestSimulateBollingerEntry(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		if i < 34 {
			closes[i] = 100
		} else {
			closes[i] = 80
		}
	}
	candles := candlesFromCloses(closes)
	candles[34].Volume = 500 // spike over the flat 100 baseline

	strat := strategy.Config{
		Name: "bb",
		EntryRules: strategy.EntryRules{
			UseBollingerBands: true,
			VolumeThreshold:   1.5,
		},
		PositionSize: 1000,
	}

	trades, _ := simulate("TESTUSDT", strat, candles, 10000, zerolog.Nop())
	require.Len(t, trades, 1)
	tr := trades[0]

	// The drop pierces the lower band; no exit rule is configured, so the
	// position rides to the end of the series.
	assert.Equal(t, candles[34].Timestamp, tr.EntryDate)
	assert.InDelta(t, 80, tr.EntryPrice, 1e-9)
	assert.Contains(t, tr.Reason, "End of backtest period")
}

func TestSimulateVolumeAloneNeverEnters(t *testing.T) {
	candles := candlesFromCloses(oscillation())
	for i := range candles {
		candles[i].Volume = 100
	}
	candles[35].Volume = 10000

	strat := strategy.Config{
		Name:         "volume-only",
		EntryRules:   strategy.EntryRules{VolumeThreshold: 1.5},
		PositionSize: 1000,
	}

	trades, balance := simulate("TESTUSDT", strat, candles, 10000, zerolog.Nop())
	assert.Empty(t, trades)
	assert.Equal(t, 10000.0, balance)
}

func TestSimulateTakeProfitAndStopLossPriority(t *testing.T) {
	// Decline into oversold, then a sharp recovery: take profit triggers
	// before the RSI overbought exit gets a chance.
	strat := strategy.Config{
		Name: "tp",
		EntryRules: strategy.EntryRules{
			RSIOversold:   30,
			RSIOverbought: 70,
		},
		ExitRules:    strategy.ExitRules{TakeProfitPercent: 10},
		PositionSize: 1000,
	}

	candles := candlesFromCloses(oscillation())
	trades, _ := simulate("TESTUSDT", strat, candles, 10000, zerolog.Nop())

	require.NotEmpty(t, trades)
	assert.Equal(t, "Take profit", trades[0].Reason)
	// Entry at 90: +10% is first reached at 101.
	assert.InDelta(t, 101, trades[0].ExitPrice, 1e-9)
}

func TestSimulateStopLoss(t *testing.T) {
	strat := strategy.Config{
		Name:         "sl",
		EntryRules:   strategy.EntryRules{RSIOversold: 100},
		ExitRules:    strategy.ExitRules{StopLossPercent: 5},
		PositionSize: 1000,
	}

	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	candles := candlesFromCloses(closes)
	trades, _ := simulate("TESTUSDT", strat, candles, 10000, zerolog.Nop())

	require.NotEmpty(t, trades)
	assert.Equal(t, "Stop loss", trades[0].Reason)
	// Entry at 170; -5% is 161.5, first crossed at 161.
	assert.InDelta(t, 170, trades[0].EntryPrice, 1e-9)
	assert.InDelta(t, 161, trades[0].ExitPrice, 1e-9)
}

func TestTradeJSONFieldNames(t *testing.T) {
	payload, err := json.Marshal(Trade{Type: "BUY"})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(payload, &fields))
	assert.Contains(t, fields, "entry_date")
	assert.Contains(t, fields, "exit_date")
}

func TestSimulateSinglePosition(t *testing.T) {
	// Re-entry can only happen after a close: trades never overlap.
	strat := strategy.Config{
		Name: "rsi",
		EntryRules: strategy.EntryRules{
			RSIOversold:   30,
			RSIOverbought: 70,
		},
		PositionSize: 1000,
	}

	candles := candlesFromCloses(oscillation())
	trades, _ := simulate("TESTUSDT", strat, candles, 10000, zerolog.Nop())

	for i := 1; i < len(trades); i++ {
		assert.False(t, trades[i].EntryDate.Before(trades[i-1].ExitDate),
			"trade %d overlaps previous exit", i)
	}
}
