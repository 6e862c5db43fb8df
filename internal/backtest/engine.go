// Package backtest runs single-position long-only strategy simulations over
// historical candle series and aggregates the resulting trade statistics.
package backtest

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradelab/backtester/internal/candle"
	"github.com/tradelab/backtester/internal/indicator"
	"github.com/tradelab/backtester/internal/strategy"
)

const (
	// minCandles is the number of candles required inside the date range;
	// the walk skips this many candles as indicator warm-up.
	minCandles = 30

	rsiPeriod    = 14
	macdFast     = 12
	macdSlow     = 26
	macdSignal   = 9
	bbPeriod     = 20
	bbStdDev     = 2.0
	volumePeriod = 20
)

// Trade is a completed round trip, immutable once emitted.
type Trade struct {
	EntryDate  time.Time `json:"entry_date"`
	ExitDate   time.Time `json:"exit_date"`
	Symbol     string    `json:"symbol"`
	Type       string    `json:"type"` // always "BUY"; the engine is long-only
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   float64   `json:"quantity"`
	PnL        float64   `json:"pnl"`
	PnLPercent float64   `json:"pnl_percent"`
	Reason     string    `json:"reason"`
}

// position is the single open position during a walk. At most one exists
// at any time.
type position struct {
	entryPrice float64
	entryTime  time.Time
	quantity   float64
}

// simulate walks the candle series sequentially and simulates trade
// execution. It is pure: no I/O, no state across calls. All indicator
// series are precomputed over the full window and indexed by candle index.
//
// Entry rules are OR-combined: any one configured rule firing opens a
// position (sized at PositionSize dollars, only when cash exceeds it).
// Exit triggers are evaluated in priority order, first true wins:
// take profit, stop loss, RSI overbought, bearish MACD crossover.
// A position still open after the last candle is force-closed at its close.
func simulate(symbol string, strat strategy.Config, candles []candle.Candle, initialBalance float64, logger zerolog.Logger) ([]Trade, float64) {
	closes := candle.Closes(candles)
	volumes := candle.Volumes(candles)

	rsi := indicator.CalculateRSI(closes, rsiPeriod)
	macd := indicator.CalculateMACD(closes, macdFast, macdSlow, macdSignal)
	bb := indicator.CalculateBollingerBands(closes, bbPeriod, bbStdDev)
	avgVolume := indicator.CalculateAvgVolume(volumes, volumePeriod)

	balance := initialBalance
	var pos *position
	var trades []Trade

	for i := minCandles; i < len(candles); i++ {
		c := candles[i]

		if pos == nil {
			reason := entryReason(strat.EntryRules, i, c, rsi, macd, bb, avgVolume)
			if reason != "" && balance > strat.PositionSize {
				pos = &position{
					entryPrice: c.Close,
					entryTime:  c.Timestamp,
					quantity:   strat.PositionSize / c.Close,
				}
				balance -= strat.PositionSize
				logger.Debug().Str("symbol", symbol).Time("time", c.Timestamp).
					Float64("price", c.Close).Str("reason", reason).Msg("opened position")
			}
		}

		if pos != nil {
			pnlPercent := (c.Close - pos.entryPrice) / pos.entryPrice * 100
			reason := exitReason(strat, i, pnlPercent, rsi, macd)
			if reason != "" {
				trades = append(trades, closeTrade(symbol, pos, c.Close, c.Timestamp, reason))
				balance += c.Close * pos.quantity
				logger.Debug().Str("symbol", symbol).Time("time", c.Timestamp).
					Float64("price", c.Close).Str("reason", reason).Msg("closed position")
				pos = nil
			}
		}
	}

	// Force-close anything still open at the end of the walked range.
	if pos != nil {
		last := candles[len(candles)-1]
		trades = append(trades, closeTrade(symbol, pos, last.Close, last.Timestamp, "End of backtest period"))
		balance += last.Close * pos.quantity
	}

	return trades, balance
}

// entryReason evaluates the OR-combined entry rules at candle i and returns
// the accumulated human-readable reasoning, or "" when no rule fired.
// High volume is appended as an annotation only, never a trigger.
func entryReason(rules strategy.EntryRules, i int, c candle.Candle, rsi []float64, macd indicator.MACDResult, bb indicator.BollingerResult, avgVolume []float64) string {
	var reasons []string

	if rules.RSIOversold > 0 && indicator.IsOversold(rsi[i], rules.RSIOversold) {
		reasons = append(reasons, fmt.Sprintf("RSI oversold (%.1f)", rsi[i]))
	}
	if rules.UseMACDCrossover && i > 0 &&
		indicator.IsMACDBullishCrossover(macd.MACD[i], macd.Signal[i], macd.MACD[i-1], macd.Signal[i-1]) {
		reasons = append(reasons, "MACD bullish crossover")
	}
	if rules.UseBollingerBands && !math.IsNaN(bb.Lower[i]) && c.Close < bb.Lower[i] {
		reasons = append(reasons, "Price below BB lower band")
	}
	if len(reasons) > 0 && rules.VolumeThreshold > 0 &&
		!math.IsNaN(avgVolume[i]) && c.Volume > avgVolume[i]*rules.VolumeThreshold {
		reasons = append(reasons, "high volume")
	}

	return strings.Join(reasons, ", ")
}

// exitReason evaluates the exit triggers at candle i in priority order and
// returns the first firing trigger's reason, or "" to stay in the position.
func exitReason(strat strategy.Config, i int, pnlPercent float64, rsi []float64, macd indicator.MACDResult) string {
	exit := strat.ExitRules
	entry := strat.EntryRules

	switch {
	case exit.TakeProfitPercent > 0 && pnlPercent >= exit.TakeProfitPercent:
		return "Take profit"
	case exit.StopLossPercent > 0 && pnlPercent <= -exit.StopLossPercent:
		return "Stop loss"
	case entry.RSIOverbought > 0 && indicator.IsOverbought(rsi[i], entry.RSIOverbought):
		return fmt.Sprintf("RSI overbought (%.1f)", rsi[i])
	case entry.UseMACDCrossover && i > 0 &&
		indicator.IsMACDBearishCrossover(macd.MACD[i], macd.Signal[i], macd.MACD[i-1], macd.Signal[i-1]):
		return "MACD bearish crossover"
	}
	return ""
}

func closeTrade(symbol string, pos *position, exitPrice float64, exitTime time.Time, reason string) Trade {
	return Trade{
		EntryDate:  pos.entryTime,
		ExitDate:   exitTime,
		Symbol:     symbol,
		Type:       "BUY",
		EntryPrice: pos.entryPrice,
		ExitPrice:  exitPrice,
		Quantity:   pos.quantity,
		PnL:        (exitPrice - pos.entryPrice) * pos.quantity,
		PnLPercent: (exitPrice - pos.entryPrice) / pos.entryPrice * 100,
		Reason:     reason,
	}
}
