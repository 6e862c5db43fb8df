// Package strategy holds the declarative trading-rule configuration the
// backtest engine evaluates.
package strategy

import (
	"errors"
	"fmt"
)

// EntryRules describes the long-entry triggers of a strategy. Every
// configured rule is an independent trigger: the engine enters when ANY of
// them fires (OR-combined), not when all of them agree. A zero value
// disables a rule. VolumeThreshold never gates an entry; high volume is
// only recorded as part of the entry reasoning.
type EntryRules struct {
	RSIOversold       float64 `json:"rsi_oversold" yaml:"rsi_oversold"`
	RSIOverbought     float64 `json:"rsi_overbought" yaml:"rsi_overbought"`
	UseMACDCrossover  bool    `json:"use_macd_crossover" yaml:"use_macd_crossover"`
	UseBollingerBands bool    `json:"use_bollinger_bands" yaml:"use_bollinger_bands"`
	VolumeThreshold   float64 `json:"volume_threshold" yaml:"volume_threshold"`
}

// ExitRules describes the exit triggers of a strategy. A zero value
// disables a rule.
//
// The trailing-stop fields are declared for forward compatibility with
// strategy configurations that carry them, but the engine never evaluates
// them.
type ExitRules struct {
	TakeProfitPercent   float64 `json:"take_profit_percent" yaml:"take_profit_percent"`
	StopLossPercent     float64 `json:"stop_loss_percent" yaml:"stop_loss_percent"`
	UseTrailingStop     bool    `json:"use_trailing_stop" yaml:"use_trailing_stop"`
	TrailingStopPercent float64 `json:"trailing_stop_percent" yaml:"trailing_stop_percent"`
}

// Config is a data-only description of a strategy. It is immutable input:
// the engine never mutates it.
type Config struct {
	Name         string     `json:"name" yaml:"name"`
	EntryRules   EntryRules `json:"entry_rules" yaml:"entry_rules"`
	ExitRules    ExitRules  `json:"exit_rules" yaml:"exit_rules"`
	PositionSize float64    `json:"position_size" yaml:"position_size"` // dollar amount committed per trade
}

// Validate checks the configured parameters for sanity. A strategy with no
// entry rules is legal; it simply never trades.
func (c Config) Validate() error {
	if c.PositionSize <= 0 {
		return errors.New("position size must be positive")
	}
	if c.EntryRules.RSIOversold < 0 || c.EntryRules.RSIOversold > 100 {
		return fmt.Errorf("rsi oversold threshold %.2f out of range [0,100]", c.EntryRules.RSIOversold)
	}
	if c.EntryRules.RSIOverbought < 0 || c.EntryRules.RSIOverbought > 100 {
		return fmt.Errorf("rsi overbought threshold %.2f out of range [0,100]", c.EntryRules.RSIOverbought)
	}
	if c.EntryRules.VolumeThreshold < 0 {
		return errors.New("volume threshold cannot be negative")
	}
	if c.ExitRules.TakeProfitPercent < 0 {
		return errors.New("take profit percent cannot be negative")
	}
	if c.ExitRules.StopLossPercent < 0 {
		return errors.New("stop loss percent cannot be negative")
	}
	if c.ExitRules.TrailingStopPercent < 0 {
		return errors.New("trailing stop percent cannot be negative")
	}
	return nil
}
