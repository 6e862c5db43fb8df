package backtest

import (
	"context"
	"sync"
	"time"

	"github.com/tradelab/backtester/internal/strategy"
)

// MultiResult aggregates concurrent runs of one strategy over many symbols.
type MultiResult struct {
	Results        map[string]*Result `json:"results"`
	Errors         map[string]error   `json:"-"`
	Strategy       string             `json:"strategy"`
	StartTime      time.Time          `json:"start_time"`
	EndTime        time.Time          `json:"end_time"`
	TotalSymbols   int                `json:"total_symbols"`
	SuccessfulRuns int                `json:"successful_runs"`
	FailedRuns     int                `json:"failed_runs"`
}

// RunAll backtests the strategy over every symbol concurrently. Runs are
// independent: each owns its cash, position, and trade log, so no state is
// shared beyond the result map.
func (r *Runner) RunAll(ctx context.Context, symbols []string, strat strategy.Config, start, end time.Time, initialBalance float64) *MultiResult {
	multi := &MultiResult{
		Results:      make(map[string]*Result, len(symbols)),
		Errors:       make(map[string]error),
		Strategy:     strat.Name,
		StartTime:    time.Now().UTC(),
		TotalSymbols: len(symbols),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			res, err := r.Run(ctx, symbol, strat, start, end, initialBalance)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.logger.Error().Err(err).Str("symbol", symbol).Msg("backtest run failed")
				multi.Errors[symbol] = err
				multi.FailedRuns++
				return
			}
			multi.Results[symbol] = res
			multi.SuccessfulRuns++
		}(symbol)
	}
	wg.Wait()

	multi.EndTime = time.Now().UTC()
	return multi
}
