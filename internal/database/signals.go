package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/Anhbaza/Bot-Binance/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SignalFilter narrows ListSignals. A nil Processed matches both states.
type SignalFilter struct {
	Symbol    string
	Processed *bool
	Limit     int
}

// InsertSignal stores sig as unprocessed and sets its ID.
func (s *Store) InsertSignal(ctx context.Context, sig *models.Signal) error {
	if sig.Time.IsZero() {
		sig.Time = s.now()
	}
	var id int64
	err := s.db.WithContext(ctx).Raw(queryInsertSignal, map[string]interface{}{
		"symbol":       sig.Symbol,
		"type":         string(sig.Type),
		"entry_price":  sig.EntryPrice,
		"take_profit":  sig.TakeProfit,
		"stop_loss":    sig.StopLoss,
		"confidence":   sig.Confidence,
		"rsi":          sig.RSI,
		"volume_ratio": sig.VolumeRatio,
		"reason":       sig.Reason,
		"time":         sig.Time.UTC(),
	}).Scan(&id).Error
	if err != nil {
		return fmt.Errorf("failed to insert signal for %s: %w", sig.Symbol, err)
	}
	sig.ID = id
	sig.Processed = false
	sig.TradeID = nil
	s.log.Debug("Signal inserted",
		zap.Int64("signal_id", id),
		zap.String("symbol", sig.Symbol),
		zap.String("type", string(sig.Type)),
		zap.Float64("confidence", sig.Confidence))
	return nil
}

// GetSignal loads a signal by id.
func (s *Store) GetSignal(ctx context.Context, id int64) (*models.Signal, error) {
	var sig models.Signal
	if err := s.db.WithContext(ctx).First(&sig, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSignalNotFound
		}
		return nil, fmt.Errorf("failed to get signal %d: %w", id, err)
	}
	return &sig, nil
}

// UnprocessedSignals returns pending signals, most confident first.
func (s *Store) UnprocessedSignals(ctx context.Context) ([]models.Signal, error) {
	var signals []models.Signal
	if err := s.db.WithContext(ctx).Raw(QueryUnprocessedSignals).Scan(&signals).Error; err != nil {
		return nil, fmt.Errorf("failed to list unprocessed signals: %w", err)
	}
	return signals, nil
}

// ListSignals returns signals newest first.
func (s *Store) ListSignals(ctx context.Context, f SignalFilter) ([]models.Signal, error) {
	q := s.db.WithContext(ctx).Model(&models.Signal{})
	if f.Symbol != "" {
		q = q.Where("symbol = ?", f.Symbol)
	}
	if f.Processed != nil {
		q = q.Where("processed = ?", *f.Processed)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	var signals []models.Signal
	if err := q.Order("time DESC").Order("id DESC").Limit(limit).Find(&signals).Error; err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}
	return signals, nil
}

// MarkSignalProcessed flags a signal as consumed and links the trade it opened.
// A nil tradeID records a rejected signal. A signal can be processed once.
func (s *Store) MarkSignalProcessed(ctx context.Context, id int64, tradeID *int64) error {
	res := s.db.WithContext(ctx).Exec(queryMarkSignalProcessed, map[string]interface{}{
		"id":       id,
		"trade_id": tradeID,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to mark signal %d processed: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetSignal(ctx, id); err != nil {
			return err
		}
		return ErrSignalProcessed
	}
	return nil
}
