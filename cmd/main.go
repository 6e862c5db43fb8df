package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradelab/backtester/internal/backtest"
	"github.com/tradelab/backtester/internal/config"
	"github.com/tradelab/backtester/internal/db"
	"github.com/tradelab/backtester/internal/marketdata"
)

// handleTermination cancels the run context on an interrupt signal.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-interrupt:
		cancel()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Error().Err(err).Msg("loading config")
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleTermination(ctx, cancel)

	var storage db.Storage
	if cfg.DBConnStr != "" {
		pg, err := db.NewPostgres(db.Config{ConnStr: cfg.DBConnStr, MaxOpen: cfg.DBMaxOpen, MaxIdle: cfg.DBMaxIdle})
		if err != nil {
			logger.Error().Err(err).Msg("connecting to postgres")
			os.Exit(1)
		}
		storage = pg
	} else {
		storage = db.NewMemory()
	}
	defer storage.Close()

	binance, err := marketdata.NewBinanceClient(marketdata.BinanceConfig{
		ProxyURL:   cfg.ProxyURL,
		MaxRetries: cfg.APIRetryMaxAttempts,
		BaseDelay:  cfg.APIRetryBaseDelay,
		MaxDelay:   cfg.APIRetryMaxDelay,
		Logger:     logger,
	})
	if err != nil {
		logger.Error().Err(err).Msg("creating binance client")
		os.Exit(1)
	}

	fetchers := []marketdata.Fetcher{binance}
	if cfg.WallexAPIKey != "" {
		fetchers = append(fetchers, marketdata.NewWallexClient(marketdata.WallexConfig{
			APIKey: cfg.WallexAPIKey,
			Logger: logger,
		}))
	}
	if cfg.SimulatedFallback {
		fetchers = append(fetchers, marketdata.NewSimulatedSource(logger))
	}

	loader := marketdata.NewLoader(storage, marketdata.NewChain(logger, fetchers...), logger)
	runner := backtest.NewRunner(backtest.RunnerConfig{
		Loader:    loader,
		Timeframe: cfg.Timeframe,
		Storage:   storage,
		Logger:    logger,
	})

	multi := runner.RunAll(ctx, cfg.Symbols, cfg.Strategy, cfg.From, cfg.To, cfg.InitialBalance)

	for _, symbol := range cfg.Symbols {
		res, ok := multi.Results[symbol]
		if !ok {
			continue
		}
		backtest.PrintResult(logger, res)
		if err := backtest.SaveCSV(cfg.OutputDir, res); err != nil {
			logger.Warn().Err(err).Str("symbol", symbol).Msg("saving CSV report")
		}
	}

	logger.Info().Int("total", multi.TotalSymbols).Int("succeeded", multi.SuccessfulRuns).
		Int("failed", multi.FailedRuns).Dur("elapsed", multi.EndTime.Sub(multi.StartTime)).
		Msg("all backtests finished")

	if multi.SuccessfulRuns == 0 {
		os.Exit(1)
	}
}
