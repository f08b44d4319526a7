package signal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Anhbaza/Bot-Binance/internal/binance"
	"github.com/Anhbaza/Bot-Binance/internal/config"
	"github.com/Anhbaza/Bot-Binance/internal/models"
	"github.com/samber/lo"
	"github.com/xhit/go-str2duration/v2"
	"go.uber.org/zap"
)

// Store is the persistence the scanner needs.
type Store interface {
	ActivePairs(ctx context.Context) ([]models.ActivePair, error)
	InsertSignal(ctx context.Context, sig *models.Signal) error
}

// ScanResult summarizes one pass over the active pairs.
type ScanResult struct {
	Pairs    int
	Analyzed int
	Signals  int
	Errors   int
}

// Scanner runs the analyzer over every active pair and timeframe and stores
// the valid signals it finds. A timeframe is analyzed once per closed candle.
type Scanner struct {
	client     binance.RestClientInterface
	store      Store
	analyzer   *Analyzer
	policy     *config.Policy
	timeframes []string
	durations  map[string]time.Duration
	klineLimit int
	logger     *zap.Logger
	now        func() time.Time

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

func NewScanner(client binance.RestClientInterface, store Store, analyzer *Analyzer, policy *config.Policy, timeframes []string, klineLimit int, logger *zap.Logger) (*Scanner, error) {
	durations := make(map[string]time.Duration, len(timeframes))
	for _, tf := range timeframes {
		d, err := str2duration.ParseDuration(tf)
		if err != nil {
			return nil, fmt.Errorf("invalid timeframe %q: %w", tf, err)
		}
		durations[tf] = d
	}
	return &Scanner{
		client:     client,
		store:      store,
		analyzer:   analyzer,
		policy:     policy,
		timeframes: timeframes,
		durations:  durations,
		klineLimit: klineLimit,
		logger:     logger.Named("scanner"),
		now:        time.Now,
		lastSeen:   make(map[string]time.Time),
	}, nil
}

// ScanOnce analyzes every active pair on every timeframe whose candle closed
// since the previous scan. Per-pair failures are logged and counted.
func (s *Scanner) ScanOnce(ctx context.Context) (ScanResult, error) {
	var res ScanResult

	pairs, err := s.store.ActivePairs(ctx)
	if err != nil {
		return res, err
	}
	pairs = lo.Filter(pairs, func(p models.ActivePair, _ int) bool { return !s.policy.IsExcluded(p.Symbol) })
	res.Pairs = len(pairs)

	now := s.now().UTC()
	for _, pair := range pairs {
		for _, tf := range s.timeframesFor(pair.Symbol) {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}

			boundary := now.Truncate(s.durations[tf])
			if !s.isDue(pair.Symbol, tf, boundary) {
				continue
			}

			sig, err := s.scanPair(ctx, pair.Symbol, tf, now)
			res.Analyzed++
			// Failed fetches are retried on the next scan within the same candle.
			if err == nil || errors.Is(err, ErrNotEnoughData) {
				s.markScanned(pair.Symbol, tf, boundary)
			}
			if err != nil {
				res.Errors++
				s.logger.Warn("Scan failed", zap.String("symbol", pair.Symbol), zap.String("timeframe", tf), zap.Error(err))
				continue
			}
			if sig != nil {
				res.Signals++
			}
		}
	}

	s.logger.Debug("Scan finished",
		zap.Int("pairs", res.Pairs),
		zap.Int("analyzed", res.Analyzed),
		zap.Int("signals", res.Signals),
		zap.Int("errors", res.Errors))
	return res, nil
}

// scanPair fetches, analyzes and stores a single symbol/timeframe.
func (s *Scanner) scanPair(ctx context.Context, symbol, tf string, now time.Time) (*models.Signal, error) {
	klines, err := s.client.GetKlines(ctx, symbol, tf, s.klineLimit)
	if err != nil {
		return nil, err
	}
	// The newest candle is still forming until its close time passes.
	if n := len(klines); n > 0 && klines[n-1].CloseTime.After(now) {
		klines = klines[:n-1]
	}

	sig, err := s.analyzer.Analyze(symbol, tf, klines)
	if err != nil || sig == nil {
		return nil, err
	}

	if err := s.analyzer.Validate(sig); err != nil {
		s.logger.Debug("Signal rejected", zap.String("symbol", symbol), zap.Error(err))
		return nil, nil
	}
	if minConf := s.policy.SettingsFor(symbol).MinConfidence; sig.Confidence < minConf {
		s.logger.Debug("Signal below pair confidence", zap.String("symbol", symbol), zap.Float64("min", minConf))
		return nil, nil
	}

	if err := s.store.InsertSignal(ctx, sig); err != nil {
		return nil, err
	}
	s.logger.Info("Found signal",
		zap.String("symbol", symbol),
		zap.String("timeframe", tf),
		zap.String("type", string(sig.Type)),
		zap.Float64("confidence", sig.Confidence),
		zap.Float64("entry", sig.EntryPrice))
	return sig, nil
}

// timeframesFor limits the configured timeframes to the ones the pair's
// policy settings allow.
func (s *Scanner) timeframesFor(symbol string) []string {
	allowed := s.policy.SettingsFor(symbol).Timeframes
	if len(allowed) == 0 {
		return s.timeframes
	}
	return lo.Intersect(s.timeframes, allowed)
}

// isDue reports whether the candle ending at boundary has not been scanned yet.
func (s *Scanner) isDue(symbol, tf string, boundary time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.lastSeen[symbol+"|"+tf]
	return !ok || boundary.After(prev)
}

func (s *Scanner) markScanned(symbol, tf string, boundary time.Time) {
	s.mu.Lock()
	s.lastSeen[symbol+"|"+tf] = boundary
	s.mu.Unlock()
}

// Volatility fetches days daily candles for symbol and returns their return volatility.
func (s *Scanner) Volatility(ctx context.Context, symbol string, days int) (float64, error) {
	klines, err := s.client.GetKlines(ctx, symbol, "1d", days)
	if err != nil {
		return 0, err
	}
	closes := lo.Map(klines, func(k binance.Kline, _ int) float64 { return k.Close })
	return Volatility(closes), nil
}
