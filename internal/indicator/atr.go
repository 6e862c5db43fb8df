package indicator

import (
	"math"

	"github.com/tradelab/backtester/internal/candle"
)

// CalculateATR computes the Average True Range: the true range
// max(high-low, |high-prevClose|, |low-prevClose|) averaged over the
// trailing period. The first true range exists at index 1, so ATR is
// defined from index period onward.
func CalculateATR(candles []candle.Candle, period int) []float64 {
	out := nanSlice(len(candles))
	if period <= 0 || len(candles) <= period {
		return out
	}
	tr := nanSlice(len(candles))
	for i := 1; i < len(candles); i++ {
		high := candles[i].High
		low := candles[i].Low
		prevClose := candles[i-1].Close
		tr[i] = math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
	}
	for i := period; i < len(candles); i++ {
		var sum float64
		for j := i - period + 1; j <= i; j++ {
			sum += tr[j]
		}
		out[i] = sum / float64(period)
	}
	return out
}
