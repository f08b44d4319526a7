package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Anhbaza/Bot-Binance/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TradeFilter narrows ListTrades. Zero values mean no filter.
type TradeFilter struct {
	Status models.TradeStatus
	Symbol string
	Limit  int
	Offset int
}

// InsertTrade stores t as a new OPEN trade and sets its ID.
func (s *Store) InsertTrade(ctx context.Context, t *models.Trade) error {
	if t.OpenTime.IsZero() {
		t.OpenTime = s.now()
	}
	var id int64
	err := s.db.WithContext(ctx).Raw(QueryInsertTrade, map[string]interface{}{
		"symbol":      t.Symbol,
		"type":        string(t.Type),
		"entry_price": t.EntryPrice,
		"take_profit": t.TakeProfit,
		"stop_loss":   t.StopLoss,
		"quantity":    t.Quantity,
		"reason":      t.Reason,
		"open_time":   t.OpenTime.UTC(),
	}).Scan(&id).Error
	if err != nil {
		return fmt.Errorf("failed to insert trade for %s: %w", t.Symbol, err)
	}
	t.ID = id
	t.Status = models.StatusOpen
	s.log.Debug("Trade inserted", zap.Int64("trade_id", id), zap.String("symbol", t.Symbol))
	return nil
}

// GetTrade loads a trade by id.
func (s *Store) GetTrade(ctx context.Context, id int64) (*models.Trade, error) {
	var t models.Trade
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTradeNotFound
		}
		return nil, fmt.Errorf("failed to get trade %d: %w", id, err)
	}
	return &t, nil
}

// OpenTrades returns every OPEN trade, newest first.
func (s *Store) OpenTrades(ctx context.Context) ([]models.Trade, error) {
	var trades []models.Trade
	if err := s.db.WithContext(ctx).Raw(QueryOpenTrades).Scan(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list open trades: %w", err)
	}
	return trades, nil
}

// ClosedTrades returns up to limit CLOSED trades with their profit percentage.
func (s *Store) ClosedTrades(ctx context.Context, limit int) ([]models.ClosedTrade, error) {
	if limit <= 0 {
		limit = 100
	}
	var trades []models.ClosedTrade
	err := s.db.WithContext(ctx).Raw(QueryClosedTrades, map[string]interface{}{"limit": limit}).Scan(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list closed trades: %w", err)
	}
	return trades, nil
}

// ListTrades returns trades ordered OPEN first, then CLOSED, then the rest,
// newest first within each status.
func (s *Store) ListTrades(ctx context.Context, f TradeFilter) ([]models.Trade, error) {
	q := s.db.WithContext(ctx).Model(&models.Trade{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Symbol != "" {
		q = q.Where("symbol = ?", f.Symbol)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	var trades []models.Trade
	err := q.Order("CASE status WHEN 'OPEN' THEN 1 WHEN 'CLOSED' THEN 2 ELSE 3 END").
		Order("open_time DESC").
		Limit(limit).
		Offset(f.Offset).
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

// CountOpenTrades counts OPEN trades, optionally for a single symbol.
func (s *Store) CountOpenTrades(ctx context.Context, symbol string) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Trade{}).Where("status = ?", models.StatusOpen)
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count open trades: %w", err)
	}
	return n, nil
}

// CloseTrade closes an OPEN trade at exitPrice and returns the updated row.
// Profit is computed in the database from the trade direction.
func (s *Store) CloseTrade(ctx context.Context, id int64, exitPrice float64, reason string) (*models.Trade, error) {
	res := s.db.WithContext(ctx).Exec(QueryCloseTrade, map[string]interface{}{
		"id":         id,
		"exit_price": exitPrice,
		"close_time": s.now(),
		"reason":     reason,
	})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to close trade %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, s.notOpen(ctx, id)
	}

	t, err := s.GetTrade(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("Trade closed",
		zap.Int64("trade_id", id),
		zap.String("symbol", t.Symbol),
		zap.Float64("exit_price", exitPrice),
		zap.String("reason", reason))
	return t, nil
}

// CancelTrade moves an OPEN trade to CANCELLED. Exit price and profit stay null.
func (s *Store) CancelTrade(ctx context.Context, id int64, reason string) error {
	res := s.db.WithContext(ctx).Exec(queryCancelTrade, map[string]interface{}{
		"id":         id,
		"close_time": s.now(),
		"reason":     reason,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to cancel trade %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return s.notOpen(ctx, id)
	}
	s.log.Info("Trade cancelled", zap.Int64("trade_id", id), zap.String("reason", reason))
	return nil
}

// RealizedProfitSince sums the profit of trades closed at or after since.
func (s *Store) RealizedProfitSince(ctx context.Context, since time.Time) (float64, error) {
	var total float64
	err := s.db.WithContext(ctx).Raw(queryRealizedProfitSince, map[string]interface{}{"since": since.UTC()}).Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum realized profit: %w", err)
	}
	return total, nil
}

func (s *Store) notOpen(ctx context.Context, id int64) error {
	if _, err := s.GetTrade(ctx, id); err != nil {
		return err
	}
	return ErrTradeNotOpen
}
