package database

import (
	"context"
	"fmt"

	"github.com/Anhbaza/Bot-Binance/internal/models"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// RefreshStatistics recomputes the statistics row from closed trades.
func (s *Store) RefreshStatistics(ctx context.Context) (*models.Statistics, error) {
	var stats *models.Statistics
	err := s.WithTx(ctx, func(tx *Store) error {
		var profits []float64
		if err := tx.db.WithContext(ctx).Raw(queryClosedProfits).Scan(&profits).Error; err != nil {
			return fmt.Errorf("failed to load closed profits: %w", err)
		}

		err := tx.db.WithContext(ctx).Exec(QueryRefreshStatistics, map[string]interface{}{
			"max_drawdown": MaxDrawdown(profits),
			"now":          tx.now(),
		}).Error
		if err != nil {
			return fmt.Errorf("failed to refresh statistics: %w", err)
		}

		stats, err = tx.Statistics(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("Statistics refreshed",
		zap.Int64("total_trades", stats.TotalTrades),
		zap.Float64("win_rate", stats.WinRate),
		zap.Float64("max_drawdown", stats.MaxDrawdown))
	return stats, nil
}

// Statistics returns the stored statistics row.
func (s *Store) Statistics(ctx context.Context) (*models.Statistics, error) {
	var stats models.Statistics
	if err := s.db.WithContext(ctx).First(&stats, 1).Error; err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}
	return &stats, nil
}

// AggregateStatistics computes totals over closed trades without touching the statistics row.
func (s *Store) AggregateStatistics(ctx context.Context) (*models.Aggregate, error) {
	var agg models.Aggregate
	if err := s.db.WithContext(ctx).Raw(QueryAggregateStatistics).Scan(&agg).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate statistics: %w", err)
	}
	return &agg, nil
}

// MaxDrawdown returns the largest peak-to-trough decline of the cumulative
// profit curve. The curve starts at zero, so an initial loss counts.
func MaxDrawdown(profits []float64) float64 {
	if len(profits) == 0 {
		return 0
	}
	equity := floats.CumSum(make([]float64, len(profits)), profits)

	var peak, maxDD float64
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if dd := peak - e; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
