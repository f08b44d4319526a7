package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Anhbaza/Bot-Binance/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupStore opens a fresh in-memory database with a deterministic clock
// that advances one second per call.
func setupStore(t *testing.T) *Store {
	db, err := NewDatabase("file::memory:")
	require.NoError(t, err)

	store := NewStore(db, zap.NewNop())
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func openTrade(t *testing.T, s *Store, symbol string, dir models.Direction, entry, qty float64) *models.Trade {
	trade := &models.Trade{
		Symbol:     symbol,
		Type:       dir,
		EntryPrice: entry,
		TakeProfit: entry * 1.01,
		StopLoss:   entry * 0.995,
		Quantity:   qty,
	}
	require.NoError(t, s.InsertTrade(context.Background(), trade))
	return trade
}

func floatPtr(v float64) *float64 { return &v }

func TestMigrate_Idempotent(t *testing.T) {
	s := setupStore(t)

	assert.NoError(t, Migrate(s.DB()))

	var rows int64
	require.NoError(t, s.DB().Raw("SELECT COUNT(*) FROM statistics").Scan(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestInsertTrade_Defaults(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	trade := openTrade(t, s, "BTCUSDT", models.Long, 100, 1)
	assert.NotZero(t, trade.ID)

	got, err := s.GetTrade(ctx, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, got.Status)
	assert.Equal(t, models.Long, got.Type)
	assert.Nil(t, got.ExitPrice)
	assert.Nil(t, got.Profit)
	assert.Nil(t, got.CloseTime)
}

func TestInsertTrade_RejectsUnknownDirection(t *testing.T) {
	s := setupStore(t)

	err := s.InsertTrade(context.Background(), &models.Trade{
		Symbol: "BTCUSDT", Type: models.Direction("SIDEWAYS"), EntryPrice: 100, TakeProfit: 101, StopLoss: 99, Quantity: 1,
	})
	assert.Error(t, err)
}

func TestGetTrade_NotFound(t *testing.T) {
	s := setupStore(t)

	_, err := s.GetTrade(context.Background(), 42)
	assert.ErrorIs(t, err, ErrTradeNotFound)
}

func TestCloseTrade_Profit(t *testing.T) {
	tests := []struct {
		name      string
		dir       models.Direction
		exitPrice float64
		want      float64
	}{
		{name: "long gain", dir: models.Long, exitPrice: 110, want: 20},
		{name: "long loss", dir: models.Long, exitPrice: 95, want: -10},
		{name: "short gain", dir: models.Short, exitPrice: 90, want: 20},
		{name: "short loss", dir: models.Short, exitPrice: 105, want: -10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupStore(t)
			trade := openTrade(t, s, "ETHUSDT", tt.dir, 100, 2)

			closed, err := s.CloseTrade(context.Background(), trade.ID, tt.exitPrice, models.ReasonTakeProfit)
			require.NoError(t, err)

			assert.Equal(t, models.StatusClosed, closed.Status)
			require.NotNil(t, closed.Profit)
			assert.InDelta(t, tt.want, *closed.Profit, 1e-9)
			require.NotNil(t, closed.ExitPrice)
			assert.Equal(t, tt.exitPrice, *closed.ExitPrice)
			assert.NotNil(t, closed.CloseTime)
			assert.Equal(t, models.ReasonTakeProfit, closed.Reason)
		})
	}
}

func TestCloseTrade_BumpsUpdatedAt(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	err := s.DB().Exec(`INSERT INTO trades (id, symbol, type, entry_price, take_profit, stop_loss, quantity, created_at, updated_at)
VALUES (7, 'BTCUSDT', 'LONG', 100, 101, 99, 1, '2000-01-01 00:00:00', '2000-01-01 00:00:00')`).Error
	require.NoError(t, err)

	closed, err := s.CloseTrade(ctx, 7, 101, models.ReasonTakeProfit)
	require.NoError(t, err)

	old := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, closed.UpdatedAt.After(old), "updated_at = %v", closed.UpdatedAt)
	assert.True(t, closed.CreatedAt.Equal(old))
}

func TestTradeStatus_IsFinal(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	closed := openTrade(t, s, "BTCUSDT", models.Long, 100, 1)
	_, err := s.CloseTrade(ctx, closed.ID, 101, models.ReasonTakeProfit)
	require.NoError(t, err)

	cancelled := openTrade(t, s, "BTCUSDT", models.Long, 100, 1)
	require.NoError(t, s.CancelTrade(ctx, cancelled.ID, models.ReasonManual))

	t.Run("close twice", func(t *testing.T) {
		_, err := s.CloseTrade(ctx, closed.ID, 102, models.ReasonManual)
		assert.ErrorIs(t, err, ErrTradeNotOpen)
	})

	t.Run("cancel closed", func(t *testing.T) {
		assert.ErrorIs(t, s.CancelTrade(ctx, closed.ID, models.ReasonManual), ErrTradeNotOpen)
	})

	t.Run("close cancelled", func(t *testing.T) {
		_, err := s.CloseTrade(ctx, cancelled.ID, 101, models.ReasonManual)
		assert.ErrorIs(t, err, ErrTradeNotOpen)
	})

	t.Run("unknown trade", func(t *testing.T) {
		assert.ErrorIs(t, s.CancelTrade(ctx, 999, models.ReasonManual), ErrTradeNotFound)
	})

	t.Run("raw reopen is rejected", func(t *testing.T) {
		err := s.DB().Exec("UPDATE trades SET status = 'OPEN' WHERE id = ?", closed.ID).Error
		assert.Error(t, err)
	})

	t.Run("cancelled keeps null exit and profit", func(t *testing.T) {
		got, err := s.GetTrade(ctx, cancelled.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, got.Status)
		assert.Nil(t, got.ExitPrice)
		assert.Nil(t, got.Profit)
	})
}

func TestOpenAndClosedTrades(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	a := openTrade(t, s, "BTCUSDT", models.Long, 100, 1)
	b := openTrade(t, s, "ETHUSDT", models.Short, 200, 1)
	openTrade(t, s, "BNBUSDT", models.Long, 300, 1)

	_, err := s.CloseTrade(ctx, a.ID, 110, models.ReasonTakeProfit)
	require.NoError(t, err)
	_, err = s.CloseTrade(ctx, b.ID, 210, models.ReasonStopLoss)
	require.NoError(t, err)

	open, err := s.OpenTrades(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "BNBUSDT", open[0].Symbol)

	closed, err := s.ClosedTrades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, closed, 2)
	// Newest close first.
	assert.Equal(t, "ETHUSDT", closed[0].Symbol)
	assert.InDelta(t, -5.0, closed[0].ProfitPercent, 1e-9)
	assert.Equal(t, "BTCUSDT", closed[1].Symbol)
	assert.InDelta(t, 10.0, closed[1].ProfitPercent, 1e-9)

	limited, err := s.ClosedTrades(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	all, err := s.ListTrades(ctx, TradeFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, models.StatusOpen, all[0].Status)

	btc, err := s.ListTrades(ctx, TradeFilter{Symbol: "BTCUSDT"})
	require.NoError(t, err)
	assert.Len(t, btc, 1)

	n, err := s.CountOpenTrades(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRealizedProfitSince(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	first := openTrade(t, s, "BTCUSDT", models.Long, 100, 1)
	_, err := s.CloseTrade(ctx, first.ID, 90, models.ReasonStopLoss)
	require.NoError(t, err)

	cutoff := s.now()

	second := openTrade(t, s, "BTCUSDT", models.Long, 100, 1)
	_, err = s.CloseTrade(ctx, second.ID, 95, models.ReasonStopLoss)
	require.NoError(t, err)

	total, err := s.RealizedProfitSince(ctx, cutoff)
	require.NoError(t, err)
	assert.InDelta(t, -5.0, total, 1e-9)
}

func TestSignals_ProcessedOnce(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	low := &models.Signal{Symbol: "BTCUSDT", Type: models.Long, EntryPrice: 100, TakeProfit: 104, StopLoss: 98, Confidence: 72}
	high := &models.Signal{Symbol: "ETHUSDT", Type: models.Short, EntryPrice: 100, TakeProfit: 96, StopLoss: 102, Confidence: 90, RSI: floatPtr(55)}
	require.NoError(t, s.InsertSignal(ctx, low))
	require.NoError(t, s.InsertSignal(ctx, high))

	pending, err := s.UnprocessedSignals(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, high.ID, pending[0].ID)
	require.NotNil(t, pending[0].RSI)
	assert.Equal(t, 55.0, *pending[0].RSI)
	assert.Nil(t, pending[0].VolumeRatio)

	trade := openTrade(t, s, "ETHUSDT", models.Short, 100, 1)
	require.NoError(t, s.MarkSignalProcessed(ctx, high.ID, &trade.ID))
	assert.ErrorIs(t, s.MarkSignalProcessed(ctx, high.ID, nil), ErrSignalProcessed)
	assert.ErrorIs(t, s.MarkSignalProcessed(ctx, 999, nil), ErrSignalNotFound)

	got, err := s.GetSignal(ctx, high.ID)
	require.NoError(t, err)
	assert.True(t, got.Processed)
	require.NotNil(t, got.TradeID)
	assert.Equal(t, trade.ID, *got.TradeID)

	pending, err = s.UnprocessedSignals(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, low.ID, pending[0].ID)

	processed := true
	done, err := s.ListSignals(ctx, SignalFilter{Processed: &processed})
	require.NoError(t, err)
	assert.Len(t, done, 1)
}

func TestActivePairs(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	pairs := []models.Pair{
		{Symbol: "BTCUSDT", BaseAsset: "BTC", QuoteAsset: "USDT", Enabled: true, Volume24h: floatPtr(5_000_000)},
		{Symbol: "ETHUSDT", BaseAsset: "ETH", QuoteAsset: "USDT", Enabled: true, Volume24h: floatPtr(3_000_000)},
		{Symbol: "BNBUSDT", BaseAsset: "BNB", QuoteAsset: "USDT", Enabled: true, Volume24h: floatPtr(4_000_000)},
		{Symbol: "DOGEUSDT", BaseAsset: "DOGE", QuoteAsset: "USDT", Enabled: false, Volume24h: floatPtr(9_000_000)},
	}
	require.NoError(t, s.UpsertPairs(ctx, pairs))

	for i := 0; i < 5; i++ {
		openTrade(t, s, "BNBUSDT", models.Long, 300, 1)
	}
	for i := 0; i < 4; i++ {
		openTrade(t, s, "ETHUSDT", models.Long, 200, 1)
	}

	active, err := s.ActivePairs(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "BTCUSDT", active[0].Symbol)
	assert.Equal(t, int64(0), active[0].OpenTrades)
	assert.Equal(t, "ETHUSDT", active[1].Symbol)
	assert.Equal(t, int64(4), active[1].OpenTrades)

	enabled := false
	disabled, err := s.ListPairs(ctx, &enabled)
	require.NoError(t, err)
	require.Len(t, disabled, 1)
	assert.Equal(t, "DOGEUSDT", disabled[0].Symbol)
}

func TestUpsertPair_UpdatesExisting(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertPair(ctx, models.Pair{Symbol: "BTCUSDT", BaseAsset: "BTC", QuoteAsset: "USDT", Enabled: true, PricePrecision: 2}))
	require.NoError(t, s.UpsertPair(ctx, models.Pair{Symbol: "BTCUSDT", BaseAsset: "BTC", QuoteAsset: "USDT", Enabled: false, PricePrecision: 1, LastPrice: floatPtr(65000)}))

	p, err := s.GetPair(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.False(t, p.Enabled)
	assert.Equal(t, int32(1), p.PricePrecision)
	require.NotNil(t, p.LastPrice)
	assert.Equal(t, 65000.0, *p.LastPrice)

	_, err = s.GetPair(ctx, "XRPUSDT")
	assert.ErrorIs(t, err, ErrPairNotFound)
}

func TestUpsertPair_BumpsUpdatedAt(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	err := s.DB().Exec(`INSERT INTO pairs (symbol, base_asset, quote_asset, enabled, updated_at)
VALUES ('BTCUSDT', 'BTC', 'USDT', 1, '2000-01-01 00:00:00')`).Error
	require.NoError(t, err)

	require.NoError(t, s.UpsertPair(ctx, models.Pair{Symbol: "BTCUSDT", BaseAsset: "BTC", QuoteAsset: "USDT", Enabled: true, LastPrice: floatPtr(65000)}))

	p, err := s.GetPair(ctx, "BTCUSDT")
	require.NoError(t, err)
	old := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, p.UpdatedAt.After(old), "updated_at = %v", p.UpdatedAt)
}

func TestSyncPairs_DisablesMissing(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertPairs(ctx, []models.Pair{
		{Symbol: "BTCUSDT", BaseAsset: "BTC", QuoteAsset: "USDT", Enabled: true},
		{Symbol: "ETHUSDT", BaseAsset: "ETH", QuoteAsset: "USDT", Enabled: true},
		{Symbol: "ETHBTC", BaseAsset: "ETH", QuoteAsset: "BTC", Enabled: true},
	}))

	enabled := func(symbol string) bool {
		p, err := s.GetPair(ctx, symbol)
		require.NoError(t, err)
		return p.Enabled
	}

	t.Run("missing pair disabled", func(t *testing.T) {
		disabled, err := s.SyncPairs(ctx, "USDT", []models.Pair{
			{Symbol: "BTCUSDT", BaseAsset: "BTC", QuoteAsset: "USDT", Enabled: true},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), disabled)
		assert.True(t, enabled("BTCUSDT"))
		assert.False(t, enabled("ETHUSDT"))
		assert.True(t, enabled("ETHBTC"), "other quote asset untouched")
	})

	t.Run("empty sync disables quote asset", func(t *testing.T) {
		disabled, err := s.SyncPairs(ctx, "USDT", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), disabled)
		assert.False(t, enabled("BTCUSDT"))
		assert.True(t, enabled("ETHBTC"))
	})

	t.Run("reappearing pair enabled again", func(t *testing.T) {
		disabled, err := s.SyncPairs(ctx, "USDT", []models.Pair{
			{Symbol: "ETHUSDT", BaseAsset: "ETH", QuoteAsset: "USDT", Enabled: true},
		})
		require.NoError(t, err)
		assert.Zero(t, disabled)
		assert.True(t, enabled("ETHUSDT"))
	})
}

func TestRefreshStatistics(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	// Profits in close order: +10, -5, -10, +20. Equity 10, 5, -5, 15.
	for _, exit := range []float64{110, 95, 90, 120} {
		trade := openTrade(t, s, "BTCUSDT", models.Long, 100, 1)
		_, err := s.CloseTrade(ctx, trade.ID, exit, "")
		require.NoError(t, err)
	}
	openTrade(t, s, "BTCUSDT", models.Long, 100, 1)

	stats, err := s.RefreshStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalTrades)
	assert.Equal(t, int64(2), stats.WinningTrades)
	assert.Equal(t, int64(2), stats.LosingTrades)
	assert.InDelta(t, 15.0, stats.TotalProfit, 1e-9)
	assert.InDelta(t, 50.0, stats.WinRate, 1e-9)
	assert.InDelta(t, 3.75, stats.AvgProfit, 1e-9)
	assert.InDelta(t, 15.0, stats.MaxDrawdown, 1e-9)

	agg, err := s.AggregateStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), agg.TotalTrades)
	assert.InDelta(t, 20.0, agg.BestTrade, 1e-9)
	assert.InDelta(t, -10.0, agg.WorstTrade, 1e-9)
}

func TestRefreshStatistics_Empty(t *testing.T) {
	s := setupStore(t)

	stats, err := s.RefreshStatistics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalTrades)
	assert.Zero(t, stats.WinRate)
	assert.Zero(t, stats.MaxDrawdown)
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name    string
		profits []float64
		want    float64
	}{
		{name: "empty", profits: nil, want: 0},
		{name: "only gains", profits: []float64{1, 2, 3}, want: 0},
		{name: "initial loss", profits: []float64{-4, 1}, want: 4},
		{name: "recovery then deeper", profits: []float64{5, -3, 4, -8}, want: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MaxDrawdown(tt.profits), 1e-9)
		})
	}
}

func TestWithTx_RollsBack(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *Store) error {
		trade := openTrade(t, tx, "BTCUSDT", models.Long, 100, 1)
		assert.NotZero(t, trade.ID)
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	n, err := s.CountOpenTrades(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBackup_KeepsNewest(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	openTrade(t, s, "BTCUSDT", models.Long, 100, 1)

	var paths []string
	for i := 0; i < 3; i++ {
		p, err := s.Backup(ctx, dir, 2)
		require.NoError(t, err)
		paths = append(paths, p)
	}

	files, err := filepath.Glob(filepath.Join(dir, "trading_*.db"))
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = os.Stat(paths[0])
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(paths[2])
	assert.NoError(t, err)

	backup, err := NewDatabase(paths[2])
	require.NoError(t, err)
	var n int64
	require.NoError(t, backup.Raw("SELECT COUNT(*) FROM trades").Scan(&n).Error)
	assert.Equal(t, int64(1), n)

	assert.NoError(t, s.Vacuum(ctx))
}
