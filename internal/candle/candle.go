// Package candle defines the OHLCV model and series helpers shared by the
// data layer and the backtest engine.
package candle

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Source    string    `json:"source"`
}

// Validate checks if a candle has valid data
func (c *Candle) Validate() error {
	if c.Timestamp.IsZero() {
		return errors.New("candle timestamp is zero")
	}
	if !isFinite(c.Open) || !isFinite(c.High) || !isFinite(c.Low) || !isFinite(c.Close) || !isFinite(c.Volume) {
		return errors.New("candle contains a non-finite value")
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return errors.New("candle prices must be positive")
	}
	if c.High < c.Low {
		return errors.New("candle high cannot be less than low")
	}
	if c.Open < c.Low || c.Open > c.High {
		return errors.New("candle open price must be between high and low")
	}
	if c.Close < c.Low || c.Close > c.High {
		return errors.New("candle close price must be between high and low")
	}
	if c.Volume < 0 {
		return errors.New("candle volume cannot be negative")
	}
	if c.Symbol == "" {
		return errors.New("candle symbol cannot be empty")
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// IntegrityError reports a malformed candle inside a fetched series.
// Series are validated once at ingestion; the backtest engine assumes
// validated input and does not defend against bad candles itself.
type IntegrityError struct {
	Index  int
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("candle at index %d: %s", e.Index, e.Reason)
}

// NormalizeSeries sorts candles by timestamp, eliminates duplicates (first
// occurrence per bucket wins), and trims to [from, to). Timestamps are
// truncated to the timeframe bucket. Missing buckets are left missing.
func NormalizeSeries(candles []Candle, timeframe string, from, to time.Time) []Candle {
	if len(candles) == 0 {
		return candles
	}

	dur := GetTimeframeDuration(timeframe)

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})

	seen := make(map[time.Time]struct{}, len(candles))
	out := make([]Candle, 0, len(candles))
	for _, c := range candles {
		if dur > 0 {
			c.Timestamp = c.Timestamp.Truncate(dur)
		}
		if _, ok := seen[c.Timestamp]; ok {
			continue
		}
		seen[c.Timestamp] = struct{}{}
		if c.Timestamp.Before(from) || !c.Timestamp.Before(to) {
			continue
		}
		out = append(out, c)
	}

	return out
}

// ValidateSeries checks every candle and the ordering of the whole series.
func ValidateSeries(candles []Candle) error {
	for i := range candles {
		if err := candles[i].Validate(); err != nil {
			return &IntegrityError{Index: i, Reason: err.Error()}
		}
		if i > 0 && !candles[i].Timestamp.After(candles[i-1].Timestamp) {
			return &IntegrityError{Index: i, Reason: "timestamp is not strictly increasing"}
		}
	}
	return nil
}

// FilterRange returns the candles whose timestamps fall inside [start, end],
// inclusive on both ends.
func FilterRange(candles []Candle, start, end time.Time) []Candle {
	var out []Candle
	for _, c := range candles {
		if c.Timestamp.Before(start) || c.Timestamp.After(end) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Closes extracts the closing prices of a series.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Close
	}
	return out
}

// Volumes extracts the volumes of a series.
func Volumes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Volume
	}
	return out
}
