// Package config assembles runtime configuration from flags, environment
// variables, and an optional YAML file.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tradelab/backtester/internal/strategy"
)

/*
YAML config example:

symbols: ["BTC-USDT", "ETH-USDT"]
timeframe: "1d"
from: "2024-01-01"
to: "2025-01-01"
initial_balance: 100000
strategy:
  name: "rsi-reversion"
  entry_rules:
    rsi_oversold: 30
    rsi_overbought: 70
    use_macd_crossover: true
  exit_rules:
    take_profit_percent: 5
    stop_loss_percent: 2
  position_size: 10000
db_conn_str: "host=localhost ..."
wallex_api_key: "..."
*/

type Config struct {
	Symbols             []string        `yaml:"symbols"`
	Timeframe           string          `yaml:"timeframe"`
	From                time.Time       `yaml:"-"`
	To                  time.Time       `yaml:"-"`
	FromStr             string          `yaml:"from"`
	ToStr               string          `yaml:"to"`
	InitialBalance      float64         `yaml:"initial_balance"`
	Strategy            strategy.Config `yaml:"strategy"`
	DBConnStr           string          `yaml:"db_conn_str"`
	DBMaxOpen           int             `yaml:"db_max_open"`
	DBMaxIdle           int             `yaml:"db_max_idle"`
	WallexAPIKey        string          `yaml:"wallex_api_key"`
	ProxyURL            string          `yaml:"proxy_url"`
	APIRetryMaxAttempts int             `yaml:"api_retry_max_attempts"`
	APIRetryBaseDelay   time.Duration   `yaml:"api_retry_base_delay"`
	APIRetryMaxDelay    time.Duration   `yaml:"api_retry_max_delay"`
	SimulatedFallback   bool            `yaml:"simulated_fallback"`
	LogLevel            string          `yaml:"log_level"`
	OutputDir           string          `yaml:"output_dir"`
}

const dateLayout = "2006-01-02"

// Load parses flags and, when -config is given, overrides everything with
// the YAML file's contents.
func Load() (Config, error) {
	symbolsFlag := flag.String("symbols", "BTC-USDT", "Comma-separated list of symbols to backtest")
	timeframe := flag.String("timeframe", "1d", "Candle timeframe (1m, 5m, 15m, 30m, 1h, 4h, 1d)")
	from := flag.String("from", time.Now().AddDate(-1, 0, 0).Format(dateLayout), "Backtest start date (YYYY-MM-DD)")
	to := flag.String("to", time.Now().Format(dateLayout), "Backtest end date (YYYY-MM-DD)")
	initialBalance := flag.Float64("initial-balance", 100000, "Starting cash balance")
	strategyName := flag.String("strategy-name", "custom", "Strategy name used in reports")
	positionSize := flag.Float64("position-size", 10000, "Dollar amount committed per trade")
	rsiOversold := flag.Float64("rsi-oversold", 0, "Enter when RSI drops below this (0 disables)")
	rsiOverbought := flag.Float64("rsi-overbought", 0, "Exit when RSI rises above this (0 disables)")
	useMACD := flag.Bool("use-macd", false, "Trade MACD signal-line crossovers")
	useBollinger := flag.Bool("use-bollinger", false, "Enter when price drops below the lower Bollinger band")
	volumeThreshold := flag.Float64("volume-threshold", 0, "Annotate entries when volume exceeds this multiple of the 20-period average (0 disables)")
	takeProfit := flag.Float64("take-profit", 0, "Take profit percent (0 disables)")
	stopLoss := flag.Float64("stop-loss", 0, "Stop loss percent (0 disables)")
	dbConnStr := flag.String("db-conn", os.Getenv("DB_CONN_STR"), "Postgres connection string for the candle cache (empty = in-memory)")
	wallexAPIKey := flag.String("wallex-api-key", os.Getenv("WALLEX_API_KEY"), "Wallex API key for the fallback provider")
	proxyURL := flag.String("proxy", "", "HTTP proxy URL for provider requests")
	retries := flag.Int("api-retries", 3, "Max download attempts per request")
	retryBaseDelay := flag.Duration("api-retry-base-delay", 2*time.Second, "Base delay between download retries")
	retryMaxDelay := flag.Duration("api-retry-max-delay", 15*time.Second, "Max delay between download retries")
	simulatedFallback := flag.Bool("simulated-fallback", false, "Fall back to simulated data when every provider fails")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	outputDir := flag.String("output-dir", ".", "Directory for CSV reports")
	configFile := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	cfg := Config{
		Symbols:        splitTrim(*symbolsFlag),
		Timeframe:      *timeframe,
		FromStr:        *from,
		ToStr:          *to,
		InitialBalance: *initialBalance,
		Strategy: strategy.Config{
			Name: *strategyName,
			EntryRules: strategy.EntryRules{
				RSIOversold:       *rsiOversold,
				RSIOverbought:     *rsiOverbought,
				UseMACDCrossover:  *useMACD,
				UseBollingerBands: *useBollinger,
				VolumeThreshold:   *volumeThreshold,
			},
			ExitRules: strategy.ExitRules{
				TakeProfitPercent: *takeProfit,
				StopLossPercent:   *stopLoss,
			},
			PositionSize: *positionSize,
		},
		DBConnStr:           *dbConnStr,
		DBMaxOpen:           10,
		DBMaxIdle:           5,
		WallexAPIKey:        *wallexAPIKey,
		ProxyURL:            *proxyURL,
		APIRetryMaxAttempts: *retries,
		APIRetryBaseDelay:   *retryBaseDelay,
		APIRetryMaxDelay:    *retryMaxDelay,
		SimulatedFallback:   *simulatedFallback,
		LogLevel:            *logLevel,
		OutputDir:           *outputDir,
	}

	if *configFile != "" {
		data, err := os.ReadFile(*configFile)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}

	var err error
	if cfg.From, err = time.Parse(dateLayout, cfg.FromStr); err != nil {
		return Config{}, fmt.Errorf("parsing from date %q: %w", cfg.FromStr, err)
	}
	if cfg.To, err = time.Parse(dateLayout, cfg.ToStr); err != nil {
		return Config{}, fmt.Errorf("parsing to date %q: %w", cfg.ToStr, err)
	}
	if !cfg.From.Before(cfg.To) {
		return Config{}, fmt.Errorf("from date %s must precede to date %s", cfg.FromStr, cfg.ToStr)
	}
	if len(cfg.Symbols) == 0 {
		return Config{}, fmt.Errorf("no symbols configured")
	}

	return cfg, nil
}

func splitTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
