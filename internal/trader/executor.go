package trader

import (
	"context"
	"errors"
	"time"

	"github.com/Anhbaza/Bot-Binance/internal/database"
	"github.com/Anhbaza/Bot-Binance/internal/models"
	"github.com/Anhbaza/Bot-Binance/internal/risk"
	"go.uber.org/zap"
)

const (
	outcomeOpened   = "opened"
	outcomeRejected = "rejected"
)

// consumeSignals turns pending signals into paper trades, most confident first.
// Each signal is consumed in its own transaction; a rejected signal is marked
// processed without a trade. Metrics are only counted once the transaction
// has committed.
func (e *Engine) consumeSignals(ctx context.Context) error {
	signals, err := e.store.UnprocessedSignals(ctx)
	if err != nil {
		return err
	}

	now := e.now()
	var errs []error
	for _, sig := range signals {
		var outcome string
		err := e.store.WithTx(ctx, func(tx *database.Store) error {
			var err error
			outcome, err = e.consume(ctx, tx, sig, now)
			return err
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if outcome == outcomeOpened {
			e.metrics.TradesOpened.Inc()
		}
		e.metrics.SignalsConsumed.WithLabelValues(outcome).Inc()
	}
	return errors.Join(errs...)
}

func (e *Engine) consume(ctx context.Context, tx *database.Store, sig models.Signal, now time.Time) (string, error) {
	l := e.logger.With(
		zap.Int64("signal_id", sig.ID),
		zap.String("symbol", sig.Symbol),
		zap.String("type", string(sig.Type)),
	)

	state, err := e.riskState(ctx, tx, sig.Symbol, now)
	if err != nil {
		return "", err
	}

	if ok, reason := e.risk.CanOpen(state, sig); !ok {
		l.Info("Signal rejected", zap.String("reason", reason))
		return e.reject(ctx, tx, sig)
	}

	qty, err := e.risk.PositionSize(*state.Pair, sig.EntryPrice, sig.StopLoss)
	if errors.Is(err, risk.ErrInsufficientQuantity) || errors.Is(err, risk.ErrBelowMinNotional) {
		l.Info("Signal rejected", zap.Error(err))
		return e.reject(ctx, tx, sig)
	}
	if err != nil {
		return "", err
	}

	trade := &models.Trade{
		Symbol:     sig.Symbol,
		Type:       sig.Type,
		EntryPrice: sig.EntryPrice,
		TakeProfit: sig.TakeProfit,
		StopLoss:   sig.StopLoss,
		Quantity:   qty,
		Reason:     sig.Reason,
		OpenTime:   now,
	}
	if err := tx.InsertTrade(ctx, trade); err != nil {
		return "", err
	}
	if err := tx.MarkSignalProcessed(ctx, sig.ID, &trade.ID); err != nil {
		return "", err
	}

	l.Info("Trade opened",
		zap.Int64("trade_id", trade.ID),
		zap.Float64("entry", trade.EntryPrice),
		zap.Float64("quantity", trade.Quantity),
		zap.Float64("take_profit", trade.TakeProfit),
		zap.Float64("stop_loss", trade.StopLoss))
	return outcomeOpened, nil
}

func (e *Engine) reject(ctx context.Context, tx *database.Store, sig models.Signal) (string, error) {
	if err := tx.MarkSignalProcessed(ctx, sig.ID, nil); err != nil {
		return "", err
	}
	return outcomeRejected, nil
}

func (e *Engine) riskState(ctx context.Context, tx *database.Store, symbol string, now time.Time) (risk.State, error) {
	state := risk.State{Now: now}

	pair, err := tx.GetPair(ctx, symbol)
	switch {
	case errors.Is(err, database.ErrPairNotFound):
	case err != nil:
		return state, err
	default:
		state.Pair = pair
	}

	if state.OpenTrades, err = tx.CountOpenTrades(ctx, ""); err != nil {
		return state, err
	}
	if state.OpenForSymbol, err = tx.CountOpenTrades(ctx, symbol); err != nil {
		return state, err
	}
	if state.RealizedToday, err = tx.RealizedProfitSince(ctx, startOfDay(now)); err != nil {
		return state, err
	}
	return state, nil
}

// monitorTrades closes open trades whose stop loss or take profit was hit.
func (e *Engine) monitorTrades(ctx context.Context) error {
	open, err := e.store.OpenTrades(ctx)
	if err != nil {
		return err
	}
	remaining := len(open)
	defer func() {
		e.metrics.OpenTrades.Set(float64(remaining))
		e.setStatus(func(s *Status) { s.OpenTrades = remaining })
	}()
	if remaining == 0 {
		return nil
	}

	prices, err := e.client.GetAllTickerPrices(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, t := range open {
		price, ok := prices[t.Symbol]
		if !ok {
			e.logger.Warn("No price for open trade", zap.Int64("trade_id", t.ID), zap.String("symbol", t.Symbol))
			continue
		}
		closeIt, reason := risk.ShouldClose(t, price)
		if !closeIt {
			continue
		}

		closed, err := e.store.CloseTrade(ctx, t.ID, price, reason)
		if errors.Is(err, database.ErrTradeNotOpen) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		remaining--
		e.metrics.TradesClosed.WithLabelValues(reason).Inc()

		fields := []zap.Field{
			zap.Int64("trade_id", closed.ID),
			zap.String("symbol", closed.Symbol),
			zap.String("reason", reason),
			zap.Float64("exit_price", price),
		}
		if closed.Profit != nil {
			fields = append(fields, zap.Float64("profit", *closed.Profit))
		}
		e.logger.Info("Exit level hit", fields...)
	}

	return errors.Join(errs...)
}
