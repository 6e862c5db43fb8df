package backtest

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelab/backtester/internal/strategy"
)

func TestSaveCSV(t *testing.T) {
	dir := t.TempDir()
	entry := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	res := &Result{
		Symbol:         "BTCUSDT",
		Strategy:       strategy.Config{Name: "rsi"},
		InitialBalance: 10000,
		FinalBalance:   12000,
		Trades: []Trade{
			{
				EntryDate: entry, ExitDate: entry.AddDate(0, 0, 8),
				Symbol: "BTCUSDT", Type: "BUY",
				EntryPrice: 90, ExitPrice: 110, Quantity: 100,
				PnL: 2000, PnLPercent: 22.22, Reason: "Take profit",
			},
		},
	}

	require.NoError(t, SaveCSV(dir, res))

	trades := readCSV(t, filepath.Join(dir, "BTCUSDT_trades.csv"))
	require.Len(t, trades, 2, "header plus one trade")
	assert.Equal(t, "Trade#", trades[0][0])
	assert.Equal(t, "Take profit", trades[1][8])

	balances := readCSV(t, filepath.Join(dir, "BTCUSDT_balance.csv"))
	require.Len(t, balances, 3, "header, starting balance, one trade")
	assert.Equal(t, []string{"0", "10000.00"}, balances[1])
	assert.Equal(t, []string{"1", "12000.00"}, balances[2])
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}
