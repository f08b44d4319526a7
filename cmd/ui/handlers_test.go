package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Anhbaza/Bot-Binance/internal/database"
	"github.com/Anhbaza/Bot-Binance/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupServer(t *testing.T) (*httptest.Server, *database.Store) {
	db, err := database.NewDatabase("file::memory:")
	require.NoError(t, err)
	store := database.NewStore(db, zap.NewNop())
	t.Cleanup(func() { _ = store.Close() })

	mux := http.NewServeMux()
	NewAPIHandler(zap.NewNop(), store).Routes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, store
}

func seed(t *testing.T, store *database.Store) {
	ctx := context.Background()
	vol := 2e6
	require.NoError(t, store.UpsertPair(ctx, models.Pair{Symbol: "BTCUSDT", BaseAsset: "BTC", QuoteAsset: "USDT", Enabled: true, Volume24h: &vol}))
	require.NoError(t, store.UpsertPair(ctx, models.Pair{Symbol: "DOGEUSDT", BaseAsset: "DOGE", QuoteAsset: "USDT"}))

	win := &models.Trade{Symbol: "BTCUSDT", Type: models.Long, EntryPrice: 100, TakeProfit: 102, StopLoss: 99, Quantity: 1}
	open := &models.Trade{Symbol: "BTCUSDT", Type: models.Short, EntryPrice: 100, TakeProfit: 98, StopLoss: 101, Quantity: 1}
	require.NoError(t, store.InsertTrade(ctx, win))
	require.NoError(t, store.InsertTrade(ctx, open))
	_, err := store.CloseTrade(ctx, win.ID, 110, models.ReasonTakeProfit)
	require.NoError(t, err)

	pending := &models.Signal{Symbol: "BTCUSDT", Type: models.Long, EntryPrice: 100, TakeProfit: 102, StopLoss: 99, Confidence: 80}
	done := &models.Signal{Symbol: "BTCUSDT", Type: models.Long, EntryPrice: 100, TakeProfit: 102, StopLoss: 99, Confidence: 75}
	require.NoError(t, store.InsertSignal(ctx, pending))
	require.NoError(t, store.InsertSignal(ctx, done))
	require.NoError(t, store.MarkSignalProcessed(ctx, done.ID, &win.ID))

	_, err = store.RefreshStatistics(ctx)
	require.NoError(t, err)
}

func getJSON(t *testing.T, url string, v interface{}) int {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestTradesHandler(t *testing.T) {
	server, store := setupServer(t)
	seed(t, store)

	tests := []struct {
		name   string
		query  string
		status int
		count  int
	}{
		{name: "all", query: "", status: http.StatusOK, count: 2},
		{name: "closed", query: "?status=closed", status: http.StatusOK, count: 1},
		{name: "by symbol", query: "?symbol=ethusdt", status: http.StatusOK, count: 0},
		{name: "limit", query: "?limit=1", status: http.StatusOK, count: 1},
		{name: "bad limit", query: "?limit=abc", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var trades []models.Trade
			code := getJSON(t, server.URL+"/api/trades"+tt.query, &trades)
			assert.Equal(t, tt.status, code)
			assert.Len(t, trades, tt.count)
		})
	}
}

func TestTradesHandler_OpenFirst(t *testing.T) {
	server, store := setupServer(t)
	seed(t, store)

	var trades []models.Trade
	require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/trades", &trades))
	require.Len(t, trades, 2)
	assert.Equal(t, models.StatusOpen, trades[0].Status)
	assert.Equal(t, models.StatusClosed, trades[1].Status)
}

func TestOpenAndClosedTradesHandlers(t *testing.T) {
	server, store := setupServer(t)
	seed(t, store)

	var open []models.Trade
	require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/trades/open", &open))
	require.Len(t, open, 1)
	assert.Equal(t, models.Short, open[0].Type)

	var closed []models.ClosedTrade
	require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/trades/closed", &closed))
	require.Len(t, closed, 1)
	assert.InDelta(t, 10.0, closed[0].Profit, 1e-9)
	assert.InDelta(t, 10.0, closed[0].ProfitPercent, 1e-9)
}

func TestSignalsHandler(t *testing.T) {
	server, store := setupServer(t)
	seed(t, store)

	var all, pending, processed []models.Signal
	require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/signals", &all))
	require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/signals?pending=true", &pending))
	require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/signals?pending=false", &processed))

	assert.Len(t, all, 2)
	require.Len(t, pending, 1)
	assert.False(t, pending[0].Processed)
	require.Len(t, processed, 1)
	assert.NotNil(t, processed[0].TradeID)

	var ignored []models.Signal
	assert.Equal(t, http.StatusBadRequest, getJSON(t, server.URL+"/api/signals?pending=maybe", &ignored))
}

func TestPairsHandlers(t *testing.T) {
	server, store := setupServer(t)
	seed(t, store)

	var all, enabled []models.Pair
	require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/pairs", &all))
	require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/pairs?enabled=true", &enabled))
	assert.Len(t, all, 2)
	require.Len(t, enabled, 1)
	assert.Equal(t, "BTCUSDT", enabled[0].Symbol)

	var active []models.ActivePair
	require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/pairs/active", &active))
	require.Len(t, active, 1)
	assert.Equal(t, int64(1), active[0].OpenTrades)
}

func TestStatisticsHandler(t *testing.T) {
	server, store := setupServer(t)
	seed(t, store)

	var resp StatisticsResponse
	require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/statistics", &resp))
	require.NotNil(t, resp.Summary)
	require.NotNil(t, resp.Aggregate)
	assert.Equal(t, int64(1), resp.Summary.TotalTrades)
	assert.Equal(t, 100.0, resp.Summary.WinRate)
	assert.InDelta(t, 10.0, resp.Aggregate.TotalProfit, 1e-9)
	assert.InDelta(t, 10.0, resp.Aggregate.BestTrade, 1e-9)
}

func TestStatusHandler(t *testing.T) {
	server, store := setupServer(t)
	seed(t, store)

	var resp StatusResponse
	require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/status", &resp))
	assert.Equal(t, int64(1), resp.OpenTrades)
	assert.Equal(t, 1, resp.Pending)
}
