package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/Anhbaza/Bot-Binance/internal/models"
	"github.com/stretchr/testify/assert"
)

var opened = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func floatPtr(v float64) *float64 { return &v }

func TestTrades(t *testing.T) {
	var buf bytes.Buffer
	Trades(&buf, []models.Trade{
		{ID: 1, Symbol: "BTCUSDT", Type: models.Long, Status: models.StatusOpen, EntryPrice: 42000.5, TakeProfit: 43000, StopLoss: 41500, Quantity: 0.002, OpenTime: opened},
		{ID: 2, Symbol: "ETHUSDT", Type: models.Short, Status: models.StatusClosed, EntryPrice: 2000, ExitPrice: floatPtr(1900), TakeProfit: 1900, StopLoss: 2050, Quantity: 0.05, Profit: floatPtr(5), Reason: models.ReasonTakeProfit, OpenTime: opened},
	})

	out := buf.String()
	assert.Contains(t, out, "SYMBOL")
	assert.Contains(t, out, "BTCUSDT")
	assert.Contains(t, out, "42000.5")
	assert.Contains(t, out, "0.002")
	assert.Contains(t, out, "5.00")
	assert.Contains(t, out, "Take profit")
	assert.Contains(t, out, "2024-01-02 03:04:05")
}

func TestClosedTrades_Total(t *testing.T) {
	var buf bytes.Buffer
	ClosedTrades(&buf, []models.ClosedTrade{
		{ID: 1, Symbol: "BTCUSDT", Type: models.Long, EntryPrice: 100, ExitPrice: 110, Quantity: 1, Profit: 10, ProfitPercent: 10, CloseTime: opened},
		{ID: 2, Symbol: "BTCUSDT", Type: models.Long, EntryPrice: 100, ExitPrice: 97.5, Quantity: 1, Profit: -2.5, ProfitPercent: -2.5, CloseTime: opened},
	})

	out := buf.String()
	assert.Contains(t, out, "10.00 %")
	assert.Contains(t, out, "-2.50 %")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "7.50")
}

func TestSignals(t *testing.T) {
	var buf bytes.Buffer
	trade := int64(7)
	Signals(&buf, []models.Signal{
		{ID: 3, Symbol: "SOLUSDT", Type: models.Long, EntryPrice: 100, TakeProfit: 104, StopLoss: 98, Confidence: 85, RSI: floatPtr(55.4), VolumeRatio: floatPtr(2.618), Processed: true, TradeID: &trade, Time: opened},
	})

	out := buf.String()
	assert.Contains(t, out, "SOLUSDT")
	assert.Contains(t, out, "85")
	assert.Contains(t, out, "55.4")
	assert.Contains(t, out, "2.62")
	assert.Contains(t, out, "true")
}

func TestPairs(t *testing.T) {
	var buf bytes.Buffer
	Pairs(&buf, []models.Pair{
		{Symbol: "BTCUSDT", BaseAsset: "BTC", QuoteAsset: "USDT", Enabled: true, MinQty: 0.00001, MinNotional: 5, QtyPrecision: 5, Volume24h: floatPtr(1234567.891)},
	})

	out := buf.String()
	assert.Contains(t, out, "BTCUSDT")
	assert.Contains(t, out, "0.00001")
	assert.Contains(t, out, "1234567.89")
}

func TestStatistics(t *testing.T) {
	var buf bytes.Buffer
	Statistics(&buf,
		&models.Statistics{TotalTrades: 4, WinningTrades: 2, LosingTrades: 2, TotalProfit: 15, WinRate: 50, AvgProfit: 3.75, MaxDrawdown: 15, UpdatedAt: opened},
		&models.Aggregate{BestTrade: 20, WorstTrade: -10},
	)

	out := buf.String()
	assert.Contains(t, out, "Win rate")
	assert.Contains(t, out, "50.0 %")
	assert.Contains(t, out, "3.75")
	assert.Contains(t, out, "Worst trade")
	assert.Contains(t, out, "-10.00")
	assert.Contains(t, out, "2024-01-02T03:04:05Z")
}
