package backtest

import (
	"encoding/json"
	"math"
)

// tradingDaysPerYear annualizes the per-trade Sharpe ratio. Each trade is
// treated as one period; this is deliberately not a time-weighted return
// series, to keep output magnitudes comparable with the dashboard.
const tradingDaysPerYear = 252

// ProfitFactor is the average win over the average loss. It is +Inf when a
// run has winners and no losers; encoding/json rejects infinities, so that
// case is encoded as null and restored to +Inf on decode.
type ProfitFactor float64

// IsInf reports the no-losses sentinel.
func (p ProfitFactor) IsInf() bool { return math.IsInf(float64(p), 1) }

func (p ProfitFactor) MarshalJSON() ([]byte, error) {
	if p.IsInf() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(p))
}

func (p *ProfitFactor) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = ProfitFactor(math.Inf(1))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*p = ProfitFactor(f)
	return nil
}

// Metrics are aggregate statistics over a finished trade list. Degenerate
// inputs produce defined values, never NaN: zero trades yield a zero win
// rate and Sharpe, and ProfitFactor is +Inf only in the documented
// no-losses case.
type Metrics struct {
	TotalTrades        int          `json:"total_trades"`
	WinningTrades      int          `json:"winning_trades"`
	LosingTrades       int          `json:"losing_trades"`
	WinRate            float64      `json:"win_rate"`
	ProfitFactor       ProfitFactor `json:"profit_factor"`
	MaxDrawdown        float64      `json:"max_drawdown"`
	MaxDrawdownPercent float64      `json:"max_drawdown_percent"`
	SharpeRatio        float64      `json:"sharpe_ratio"`
	AvgWin             float64      `json:"avg_win"`
	AvgLoss            float64      `json:"avg_loss"`
	LargestWin         float64      `json:"largest_win"`
	LargestLoss        float64      `json:"largest_loss"`
}

// CalculateMetrics derives aggregate statistics from a completed trade list.
// Trades with exactly zero PnL count toward TotalTrades but are neither
// wins nor losses.
func CalculateMetrics(trades []Trade, initialBalance float64) Metrics {
	m := Metrics{TotalTrades: len(trades)}

	var winSum, lossSum float64
	for _, t := range trades {
		switch {
		case t.PnL > 0:
			m.WinningTrades++
			winSum += t.PnL
			if t.PnL > m.LargestWin {
				m.LargestWin = t.PnL
			}
		case t.PnL < 0:
			m.LosingTrades++
			lossSum += t.PnL
			if t.PnL < m.LargestLoss {
				m.LargestLoss = t.PnL
			}
		}
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	}
	if m.WinningTrades > 0 {
		m.AvgWin = winSum / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = math.Abs(lossSum / float64(m.LosingTrades))
	}

	switch {
	case m.AvgLoss > 0:
		m.ProfitFactor = ProfitFactor(m.AvgWin / m.AvgLoss)
	case m.AvgWin > 0:
		m.ProfitFactor = ProfitFactor(math.Inf(1))
	}

	// Max drawdown over the chronological realized-PnL balance curve.
	peak := initialBalance
	balance := initialBalance
	for _, t := range trades {
		balance += t.PnL
		if balance > peak {
			peak = balance
		}
		if dd := peak - balance; dd > m.MaxDrawdown {
			m.MaxDrawdown = dd
		}
	}
	if initialBalance > 0 {
		m.MaxDrawdownPercent = m.MaxDrawdown / initialBalance * 100
	}

	m.SharpeRatio = sharpeRatio(trades)

	return m
}

// sharpeRatio computes mean per-trade return percent over its population
// standard deviation, annualized by sqrt(252). Zero when undefined.
func sharpeRatio(trades []Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	var mean float64
	for _, t := range trades {
		mean += t.PnLPercent
	}
	mean /= float64(len(trades))

	var variance float64
	for _, t := range trades {
		d := t.PnLPercent - mean
		variance += d * d
	}
	stdDev := math.Sqrt(variance / float64(len(trades)))
	if stdDev == 0 {
		return 0
	}
	return mean / stdDev * math.Sqrt(tradingDaysPerYear)
}
