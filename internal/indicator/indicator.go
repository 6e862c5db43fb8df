// Package indicator implements the technical indicators used by the backtest
// engine. Every function returns a series with the same length as its input,
// aligned one-to-one by index, with math.NaN() marking indices where not
// enough history exists yet. Callers index all series uniformly by candle
// index and must guard reads with math.IsNaN.
package indicator

import "math"

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
