package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/tradelab/backtester/internal/candle"
	"github.com/tradelab/backtester/internal/journal"
)

// Config holds Postgres connection settings.
type Config struct {
	ConnStr string
	MaxOpen int
	MaxIdle int
}

// Postgres implements Storage on top of PostgreSQL.
type Postgres struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS candles (
	symbol TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL,
	open DOUBLE PRECISION NOT NULL,
	high DOUBLE PRECISION NOT NULL,
	low DOUBLE PRECISION NOT NULL,
	close DOUBLE PRECISION NOT NULL,
	volume DOUBLE PRECISION NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (symbol, timeframe, timestamp)
);
CREATE TABLE IF NOT EXISTS backtest_results (
	id UUID PRIMARY KEY,
	symbol TEXT NOT NULL,
	strategy TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	result JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS backtest_results_symbol_idx ON backtest_results (symbol, created_at);
CREATE TABLE IF NOT EXISTS events (
	id UUID PRIMARY KEY,
	time TIMESTAMPTZ NOT NULL,
	type TEXT NOT NULL,
	description TEXT NOT NULL,
	data JSONB
);
`

// NewPostgres opens the database, verifies connectivity, and applies the schema.
func NewPostgres(cfg Config) (*Postgres, error) {
	sqlDB, err := sql.Open("postgres", cfg.ConnStr)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if cfg.MaxOpen > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	}
	if cfg.MaxIdle > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Postgres{db: sqlDB}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

// SaveCandles upserts candles in a single transaction.
func (p *Postgres) SaveCandles(ctx context.Context, candles []candle.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (symbol, timeframe, timestamp, open, high, low, close, volume, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (symbol, timeframe, timestamp) DO UPDATE SET
			open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low,
			close = EXCLUDED.close, volume = EXCLUDED.volume, source = EXCLUDED.source`)
	if err != nil {
		return fmt.Errorf("preparing candle upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid candle %s %s: %w", c.Symbol, c.Timestamp.Format(time.RFC3339), err)
		}
		if _, err := stmt.ExecContext(ctx, c.Symbol, c.Timeframe, c.Timestamp.UTC(),
			c.Open, c.High, c.Low, c.Close, c.Volume, c.Source); err != nil {
			return fmt.Errorf("upserting candle: %w", err)
		}
	}
	return tx.Commit()
}

// GetCandles returns candles in [start, end), ordered by timestamp.
func (p *Postgres) GetCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]candle.Candle, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT symbol, timeframe, timestamp, open, high, low, close, volume, source
		FROM candles
		WHERE symbol = $1 AND timeframe = $2 AND timestamp >= $3 AND timestamp < $4
		ORDER BY timestamp ASC`,
		symbol, timeframe, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("querying candles: %w", err)
	}
	defer rows.Close()

	var candles []candle.Candle
	for rows.Next() {
		var c candle.Candle
		if err := rows.Scan(&c.Symbol, &c.Timeframe, &c.Timestamp,
			&c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Source); err != nil {
			return nil, fmt.Errorf("scanning candle: %w", err)
		}
		c.Timestamp = c.Timestamp.UTC()
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

func (p *Postgres) GetCandleCount(ctx context.Context, symbol, timeframe string, start, end time.Time) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM candles
		WHERE symbol = $1 AND timeframe = $2 AND timestamp >= $3 AND timestamp < $4`,
		symbol, timeframe, start.UTC(), end.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting candles: %w", err)
	}
	return count, nil
}

func (p *Postgres) SaveBacktestResult(ctx context.Context, rec BacktestRecord) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO backtest_results (id, symbol, strategy, created_at, result)
		VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.Symbol, rec.Strategy, rec.CreatedAt.UTC(), rec.Result)
	if err != nil {
		return fmt.Errorf("saving backtest result: %w", err)
	}
	return nil
}

func (p *Postgres) GetBacktestResults(ctx context.Context, symbol string) ([]BacktestRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, symbol, strategy, created_at, result
		FROM backtest_results WHERE symbol = $1 ORDER BY created_at ASC`, symbol)
	if err != nil {
		return nil, fmt.Errorf("querying backtest results: %w", err)
	}
	defer rows.Close()

	var recs []BacktestRecord
	for rows.Next() {
		var r BacktestRecord
		if err := rows.Scan(&r.ID, &r.Symbol, &r.Strategy, &r.CreatedAt, &r.Result); err != nil {
			return nil, fmt.Errorf("scanning backtest result: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func (p *Postgres) LogEvent(ctx context.Context, event journal.Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("encoding event data: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO events (id, time, type, description, data)
		VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.Time.UTC(), event.Type, event.Description, data)
	if err != nil {
		return fmt.Errorf("saving event: %w", err)
	}
	return nil
}
