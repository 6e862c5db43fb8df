package indicator

import "math"

// BollingerResult holds the three Bollinger Bands aligned to the input.
type BollingerResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// CalculateBollingerBands computes bands at middle ± stdDev standard
// deviations, where middle is the SMA over the trailing window and the
// deviation uses population variance. Defined from index period-1 onward.
func CalculateBollingerBands(prices []float64, period int, stdDev float64) BollingerResult {
	n := len(prices)
	res := BollingerResult{
		Upper:  nanSlice(n),
		Middle: CalculateSMA(prices, period),
		Lower:  nanSlice(n),
	}
	if period <= 0 || n < period {
		return res
	}
	for i := period - 1; i < n; i++ {
		mean := res.Middle[i]
		var variance float64
		for j := i - period + 1; j <= i; j++ {
			d := prices[j] - mean
			variance += d * d
		}
		variance /= float64(period)
		sd := math.Sqrt(variance)
		res.Upper[i] = mean + stdDev*sd
		res.Lower[i] = mean - stdDev*sd
	}
	return res
}
