package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/Anhbaza/Bot-Binance/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UpsertPair inserts p or refreshes the stored metadata for its symbol.
// Updates go through ON CONFLICT so the updated_at trigger fires.
func (s *Store) UpsertPair(ctx context.Context, p models.Pair) error {
	err := s.db.WithContext(ctx).Exec(QueryUpsertPair, map[string]interface{}{
		"symbol":          p.Symbol,
		"base_asset":      p.BaseAsset,
		"quote_asset":     p.QuoteAsset,
		"min_price":       p.MinPrice,
		"min_qty":         p.MinQty,
		"min_notional":    p.MinNotional,
		"price_precision": p.PricePrecision,
		"qty_precision":   p.QtyPrecision,
		"enabled":         p.Enabled,
		"last_price":      p.LastPrice,
		"volume_24h":      p.Volume24h,
		"updated_at":      s.now(),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to upsert pair %s: %w", p.Symbol, err)
	}
	return nil
}

// UpsertPairs upserts every pair in a single transaction.
func (s *Store) UpsertPairs(ctx context.Context, pairs []models.Pair) error {
	return s.WithTx(ctx, func(tx *Store) error {
		return tx.upsertAll(ctx, pairs)
	})
}

func (s *Store) upsertAll(ctx context.Context, pairs []models.Pair) error {
	for _, p := range pairs {
		if err := s.UpsertPair(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// SyncPairs upserts pairs and disables every enabled pair in quoteAsset that
// is not among them, in one transaction. It returns the number disabled.
func (s *Store) SyncPairs(ctx context.Context, quoteAsset string, pairs []models.Pair) (int64, error) {
	var disabled int64
	err := s.WithTx(ctx, func(tx *Store) error {
		if err := tx.upsertAll(ctx, pairs); err != nil {
			return err
		}

		q := tx.db.WithContext(ctx).Model(&models.Pair{}).
			Where("quote_asset = ? AND enabled = ?", quoteAsset, true)
		if len(pairs) > 0 {
			symbols := make([]string, len(pairs))
			for i, p := range pairs {
				symbols[i] = p.Symbol
			}
			q = q.Where("symbol NOT IN ?", symbols)
		}
		res := q.Update("enabled", false)
		if res.Error != nil {
			return fmt.Errorf("failed to disable missing pairs: %w", res.Error)
		}
		disabled = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	if disabled > 0 {
		s.log.Info("Pairs missing from exchange disabled", zap.Int64("count", disabled))
	}
	return disabled, nil
}

// GetPair loads a pair by symbol.
func (s *Store) GetPair(ctx context.Context, symbol string) (*models.Pair, error) {
	var p models.Pair
	if err := s.db.WithContext(ctx).Where("symbol = ?", symbol).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPairNotFound
		}
		return nil, fmt.Errorf("failed to get pair %s: %w", symbol, err)
	}
	return &p, nil
}

// ActivePairs returns enabled pairs below the open trade cap, highest volume first.
func (s *Store) ActivePairs(ctx context.Context) ([]models.ActivePair, error) {
	var pairs []models.ActivePair
	if err := s.db.WithContext(ctx).Raw(QueryActivePairs).Scan(&pairs).Error; err != nil {
		return nil, fmt.Errorf("failed to list active pairs: %w", err)
	}
	return pairs, nil
}

// ListPairs returns stored pairs by volume. A nil enabled matches all.
func (s *Store) ListPairs(ctx context.Context, enabled *bool) ([]models.Pair, error) {
	q := s.db.WithContext(ctx).Model(&models.Pair{})
	if enabled != nil {
		q = q.Where("enabled = ?", *enabled)
	}
	var pairs []models.Pair
	if err := q.Order("volume_24h DESC").Order("symbol").Find(&pairs).Error; err != nil {
		return nil, fmt.Errorf("failed to list pairs: %w", err)
	}
	return pairs, nil
}
