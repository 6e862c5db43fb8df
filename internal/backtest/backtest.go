package backtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tradelab/backtester/internal/candle"
	"github.com/tradelab/backtester/internal/db"
	"github.com/tradelab/backtester/internal/journal"
	"github.com/tradelab/backtester/internal/strategy"
)

// ErrNoData indicates the data source returned no candles at all for the
// symbol. Widening the date range will not help.
var ErrNoData = errors.New("no historical data available")

// InsufficientDataError indicates too few candles fell inside the requested
// date range. The caller may widen the range and retry.
type InsufficientDataError struct {
	Candles int
	Min     int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for backtesting: %d candles, need at least %d", e.Candles, e.Min)
}

// CandleLoader is the external market-data capability the runner depends
// on. It owns retries, provider fallback, and caching; the runner only sees
// an ordered candle series or an error.
type CandleLoader interface {
	Load(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]candle.Candle, error)
}

// Result is the immutable outcome of one backtest run. All percentages are
// expressed in the 0-100 range.
type Result struct {
	ID             string          `json:"id"`
	Strategy       strategy.Config `json:"strategy"`
	Symbol         string          `json:"symbol"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	InitialBalance float64         `json:"initial_balance"`
	FinalBalance   float64         `json:"final_balance"`
	TotalReturn    float64         `json:"total_return"`
	TotalReturnPct float64         `json:"total_return_percent"`
	Metrics
	Trades []Trade `json:"trades"`
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	Loader    CandleLoader
	Timeframe string
	// Storage persists results and journal events when set.
	Storage db.Storage
	Logger  zerolog.Logger
}

// Runner executes backtest runs. It holds no per-run state; independent
// runs may execute concurrently.
type Runner struct {
	loader    CandleLoader
	timeframe string
	storage   db.Storage
	logger    zerolog.Logger
}

func NewRunner(cfg RunnerConfig) *Runner {
	tf := cfg.Timeframe
	if tf == "" {
		tf = "1d"
	}
	return &Runner{
		loader:    cfg.Loader,
		timeframe: tf,
		storage:   cfg.Storage,
		logger:    cfg.Logger.With().Str("component", "backtest").Logger(),
	}
}

// Run executes a single backtest: load candles, filter to the date range,
// validate, walk, and aggregate metrics. Any error aborts the run; a
// partial Result is never returned.
func (r *Runner) Run(ctx context.Context, symbol string, strat strategy.Config, start, end time.Time, initialBalance float64) (*Result, error) {
	if err := strat.Validate(); err != nil {
		return nil, fmt.Errorf("invalid strategy: %w", err)
	}
	if initialBalance <= 0 {
		return nil, errors.New("initial balance must be positive")
	}

	runID := uuid.NewString()
	r.journal(ctx, "backtest_started", map[string]any{
		"run_id": runID, "symbol": symbol, "strategy": strat.Name,
	})

	candles, err := r.loader.Load(ctx, symbol, r.timeframe, start, end.Add(candle.GetTimeframeDuration(r.timeframe)))
	if err != nil {
		r.journal(ctx, "backtest_failed", map[string]any{"run_id": runID, "error": err.Error()})
		return nil, err
	}
	if len(candles) == 0 {
		r.journal(ctx, "backtest_failed", map[string]any{"run_id": runID, "error": ErrNoData.Error()})
		return nil, fmt.Errorf("%w for %s", ErrNoData, symbol)
	}

	filtered := candle.FilterRange(candles, start, end)
	if len(filtered) < minCandles {
		err := &InsufficientDataError{Candles: len(filtered), Min: minCandles}
		r.journal(ctx, "backtest_failed", map[string]any{"run_id": runID, "error": err.Error()})
		return nil, err
	}
	if err := candle.ValidateSeries(filtered); err != nil {
		r.journal(ctx, "backtest_failed", map[string]any{"run_id": runID, "error": err.Error()})
		return nil, fmt.Errorf("rejecting candle series: %w", err)
	}

	r.logger.Info().Str("symbol", symbol).Int("candles", len(filtered)).
		Time("from", start).Time("to", end).Msg("running backtest")

	trades, finalBalance := simulate(symbol, strat, filtered, initialBalance, r.logger)

	res := &Result{
		ID:             runID,
		Strategy:       strat,
		Symbol:         symbol,
		StartDate:      start,
		EndDate:        end,
		InitialBalance: initialBalance,
		FinalBalance:   finalBalance,
		TotalReturn:    finalBalance - initialBalance,
		TotalReturnPct: (finalBalance - initialBalance) / initialBalance * 100,
		Metrics:        CalculateMetrics(trades, initialBalance),
		Trades:         trades,
	}

	r.persist(ctx, res)
	r.journal(ctx, "backtest_completed", map[string]any{
		"run_id": runID, "symbol": symbol, "trades": res.TotalTrades, "final_balance": res.FinalBalance,
	})
	return res, nil
}

func (r *Runner) persist(ctx context.Context, res *Result) {
	if r.storage == nil {
		return
	}
	payload, err := json.Marshal(res)
	if err != nil {
		r.logger.Warn().Err(err).Msg("encoding backtest result")
		return
	}
	rec := db.BacktestRecord{
		ID:        res.ID,
		Symbol:    res.Symbol,
		Strategy:  res.Strategy.Name,
		CreatedAt: time.Now().UTC(),
		Result:    payload,
	}
	if err := r.storage.SaveBacktestResult(ctx, rec); err != nil {
		r.logger.Warn().Err(err).Msg("persisting backtest result")
	}
}

func (r *Runner) journal(ctx context.Context, description string, data map[string]any) {
	if r.storage == nil {
		return
	}
	if err := r.storage.LogEvent(ctx, journal.NewEvent("backtest", description, data)); err != nil {
		r.logger.Warn().Err(err).Msg("journaling event")
	}
}
