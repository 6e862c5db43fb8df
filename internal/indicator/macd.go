package indicator

import "math"

// MACDResult holds the MACD line, its signal line, and the histogram.
// All three series are aligned to the input price series.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// CalculateMACD computes the MACD line as EMA(fast) − EMA(slow), the signal
// line as an EMA over the defined portion of the MACD line, and the
// histogram as their difference. The MACD line is defined from index
// slowPeriod-1, the signal and histogram from slowPeriod+signalPeriod-2.
func CalculateMACD(prices []float64, fastPeriod, slowPeriod, signalPeriod int) MACDResult {
	n := len(prices)
	res := MACDResult{
		MACD:      nanSlice(n),
		Signal:    nanSlice(n),
		Histogram: nanSlice(n),
	}
	if fastPeriod <= 0 || slowPeriod <= 0 || signalPeriod <= 0 || n < slowPeriod {
		return res
	}

	fast := CalculateEMA(prices, fastPeriod)
	slow := CalculateEMA(prices, slowPeriod)
	for i := 0; i < n; i++ {
		if !math.IsNaN(fast[i]) && !math.IsNaN(slow[i]) {
			res.MACD[i] = fast[i] - slow[i]
		}
	}

	// Signal line smooths only the defined MACD values, then is re-aligned
	// to the price index at which each smoothed value was produced.
	start := slowPeriod - 1
	signal := CalculateEMA(res.MACD[start:], signalPeriod)
	for j, v := range signal {
		if !math.IsNaN(v) {
			res.Signal[start+j] = v
			res.Histogram[start+j] = res.MACD[start+j] - v
		}
	}

	return res
}

// IsMACDBullishCrossover reports whether the MACD line crossed above the
// signal line between the previous and current step. Strict inequalities on
// both sides; NaN input never reports a crossover.
func IsMACDBullishCrossover(currentMACD, currentSignal, previousMACD, previousSignal float64) bool {
	return previousMACD < previousSignal && currentMACD > currentSignal
}

// IsMACDBearishCrossover is the mirror of IsMACDBullishCrossover.
func IsMACDBearishCrossover(currentMACD, currentSignal, previousMACD, previousSignal float64) bool {
	return previousMACD > previousSignal && currentMACD < currentSignal
}
