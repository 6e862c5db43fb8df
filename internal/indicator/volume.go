package indicator

// CalculateAvgVolume computes the rolling mean of the period volumes strictly
// before each index (the current candle's volume is excluded, so it can be
// compared against the average). Defined from index period onward.
func CalculateAvgVolume(volumes []float64, period int) []float64 {
	out := nanSlice(len(volumes))
	if period <= 0 || len(volumes) < period+1 {
		return out
	}
	var sum float64
	for i := 0; i < len(volumes); i++ {
		if i >= period {
			out[i] = sum / float64(period)
			sum -= volumes[i-period]
		}
		sum += volumes[i]
	}
	return out
}
