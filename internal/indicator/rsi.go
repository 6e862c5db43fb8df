package indicator

// CalculateRSI computes the Relative Strength Index using a simple (not
// exponentially smoothed) moving average of per-step gains and losses over
// the trailing period. RSI is 100 when the window has no losses. Defined
// from index period onward, since the first price change exists at index 1.
func CalculateRSI(prices []float64, period int) []float64 {
	out := nanSlice(len(prices))
	if period <= 0 || len(prices) <= period {
		return out
	}
	for i := period; i < len(prices); i++ {
		var gain, loss float64
		for j := i - period + 1; j <= i; j++ {
			change := prices[j] - prices[j-1]
			if change > 0 {
				gain += change
			} else {
				loss += -change
			}
		}
		avgGain := gain / float64(period)
		avgLoss := loss / float64(period)
		if avgLoss == 0 {
			out[i] = 100
		} else {
			rs := avgGain / avgLoss
			out[i] = 100 - (100 / (1 + rs))
		}
	}
	return out
}

// IsOversold reports whether the RSI value is below the threshold.
// NaN input never reports oversold.
func IsOversold(rsi, threshold float64) bool {
	return rsi < threshold
}

// IsOverbought reports whether the RSI value is above the threshold.
func IsOverbought(rsi, threshold float64) bool {
	return rsi > threshold
}
