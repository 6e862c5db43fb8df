package backtest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// PrintResult logs a human-readable summary of a run.
func PrintResult(logger zerolog.Logger, res *Result) {
	profitFactor := "0.00"
	switch {
	case res.ProfitFactor.IsInf():
		profitFactor = "inf"
	case res.ProfitFactor != 0:
		profitFactor = fmt.Sprintf("%.2f", float64(res.ProfitFactor))
	}

	logger.Info().Str("symbol", res.Symbol).Str("strategy", res.Strategy.Name).
		Msgf("Backtest results: Trades=%d Wins=%d Losses=%d WinRate=%.2f%%",
			res.TotalTrades, res.WinningTrades, res.LosingTrades, res.WinRate)
	logger.Info().
		Msgf("  Balance %.2f -> %.2f (%.2f%%), MaxDrawdown=%.2f (%.2f%%)",
			res.InitialBalance, res.FinalBalance, res.TotalReturnPct,
			res.MaxDrawdown, res.MaxDrawdownPercent)
	logger.Info().
		Msgf("  AvgWin=%.2f AvgLoss=%.2f ProfitFactor=%s Sharpe=%.2f LargestWin=%.2f LargestLoss=%.2f",
			res.AvgWin, res.AvgLoss, profitFactor, res.SharpeRatio, res.LargestWin, res.LargestLoss)

	const maxTrades = 10
	for i, t := range res.Trades {
		if i >= maxTrades {
			logger.Info().Msgf("  ... and %d more trades", len(res.Trades)-maxTrades)
			break
		}
		logger.Info().Msgf("  Trade %d: Entry=%.2f at %s, Exit=%.2f at %s, PnL=%.2f, Reason=%s",
			i+1, t.EntryPrice, t.EntryDate.Format(time.RFC3339),
			t.ExitPrice, t.ExitDate.Format(time.RFC3339), t.PnL, t.Reason)
	}
}

// SaveCSV writes the trade log and the realized-balance curve to CSV files
// under dir, named after the symbol.
func SaveCSV(dir string, res *Result) error {
	tradeRows := [][]string{{"Trade#", "EntryDate", "EntryPrice", "ExitDate", "ExitPrice", "Quantity", "PnL", "PnLPercent", "Reason"}}
	for i, t := range res.Trades {
		tradeRows = append(tradeRows, []string{
			fmt.Sprintf("%d", i+1),
			t.EntryDate.Format(time.RFC3339),
			fmt.Sprintf("%.8f", t.EntryPrice),
			t.ExitDate.Format(time.RFC3339),
			fmt.Sprintf("%.8f", t.ExitPrice),
			fmt.Sprintf("%.8f", t.Quantity),
			fmt.Sprintf("%.2f", t.PnL),
			fmt.Sprintf("%.4f", t.PnLPercent),
			t.Reason,
		})
	}

	balance := res.InitialBalance
	balanceRows := [][]string{{"Trade#", "Balance"}}
	balanceRows = append(balanceRows, []string{"0", fmt.Sprintf("%.2f", balance)})
	for i, t := range res.Trades {
		balance += t.PnL
		balanceRows = append(balanceRows, []string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%.2f", balance),
		})
	}

	if err := saveCSV(filepath.Join(dir, res.Symbol+"_trades.csv"), tradeRows); err != nil {
		return err
	}
	return saveCSV(filepath.Join(dir, res.Symbol+"_balance.csv"), balanceRows)
}

func saveCSV(filename string, rows [][]string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filename, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing %s: %w", filename, err)
		}
	}
	return nil
}
