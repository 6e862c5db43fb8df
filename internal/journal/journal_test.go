package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEvent(t *testing.T) {
	a := NewEvent("backtest", "backtest_started", map[string]any{"symbol": "BTC-USDT"})
	b := NewEvent("backtest", "backtest_started", nil)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID, "every event gets a fresh ID")
	assert.False(t, a.Time.IsZero())
	assert.Equal(t, "backtest", a.Type)
	assert.Equal(t, "backtest_started", a.Description)
	assert.Equal(t, "BTC-USDT", a.Data["symbol"])
}
