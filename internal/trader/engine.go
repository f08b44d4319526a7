package trader

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Anhbaza/Bot-Binance/internal/binance"
	"github.com/Anhbaza/Bot-Binance/internal/config"
	"github.com/Anhbaza/Bot-Binance/internal/database"
	"github.com/Anhbaza/Bot-Binance/internal/market"
	"github.com/Anhbaza/Bot-Binance/internal/risk"
	"github.com/Anhbaza/Bot-Binance/internal/signal"
	"go.uber.org/zap"
)

// Status is a snapshot of the engine for the status endpoint.
type Status struct {
	Name        string    `json:"name"`
	StartTime   time.Time `json:"start_time"`
	Uptime      string    `json:"uptime"`
	Ticks       int64     `json:"ticks"`
	LastTick    time.Time `json:"last_tick"`
	LastRefresh time.Time `json:"last_refresh"`
	LastScan    time.Time `json:"last_scan"`
	LastBackup  time.Time `json:"last_backup"`
	OpenTrades  int       `json:"open_trades"`
	LastError   string    `json:"last_error,omitempty"`
}

// Engine drives the bot: it refreshes pairs, scans for signals, turns
// signals into paper trades and closes trades that hit their levels.
type Engine struct {
	Name string

	logger    *zap.Logger
	cfg       *config.Config
	client    binance.RestClientInterface
	store     *database.Store
	refresher *market.Refresher
	scanner   *signal.Scanner
	risk      *risk.Manager
	metrics   *Metrics
	now       func() time.Time

	mu     sync.RWMutex
	status Status
}

// NewEngine wires the engine components from the settings and pairs policy.
func NewEngine(logger *zap.Logger, cfg *config.Config, policy *config.Policy, client binance.RestClientInterface, store *database.Store) (*Engine, error) {
	analyzer := signal.NewAnalyzer(signal.ParamsFrom(cfg.Signal, policy.Indicators), logger)
	scanner, err := signal.NewScanner(client, store, analyzer, policy, cfg.Trading.Timeframes, cfg.Signal.KlineLimit, logger)
	if err != nil {
		return nil, err
	}

	name, _ := os.Hostname()
	return &Engine{
		Name:      name,
		logger:    logger.Named("engine"),
		cfg:       cfg,
		client:    client,
		store:     store,
		refresher: market.NewRefresher(client, store, policy, cfg.Trading.QuoteAsset, logger),
		scanner:   scanner,
		risk:      risk.NewManager(policy),
		metrics:   NewMetrics(),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Metrics exposes the engine collectors.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// Status returns a copy of the current engine status.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := e.status
	if !s.StartTime.IsZero() {
		s.Uptime = e.now().Sub(s.StartTime).Round(time.Second).String()
	}
	return s
}

// Run starts the trading engine's main loop and blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	e.mu.Lock()
	e.status.Name = e.Name
	e.status.StartTime = e.now()
	e.mu.Unlock()

	interval := e.cfg.Trading.TickInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("Starting engine loop", zap.Duration("interval", interval))
	e.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Stopping trading engine...")
			return
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Tick runs one engine cycle. Each step logs its own failure and the cycle continues.
func (e *Engine) Tick(ctx context.Context) {
	now := e.now()
	e.mu.RLock()
	st := e.status
	e.mu.RUnlock()

	if due(st.LastRefresh, e.cfg.Trading.PairRefreshInterval, now) {
		ok := e.step("refresh", func() error {
			res, err := e.refresher.Refresh(ctx)
			if err == nil {
				e.metrics.PairsEnabled.Set(float64(res.Enabled))
			}
			return err
		})
		if ok {
			e.setStatus(func(s *Status) { s.LastRefresh = now })
		}
	}

	if due(st.LastScan, e.cfg.Trading.ScanInterval, now) {
		ok := e.step("scan", func() error {
			res, err := e.scanner.ScanOnce(ctx)
			e.metrics.SignalsFound.Add(float64(res.Signals))
			return err
		})
		if ok {
			e.setStatus(func(s *Status) { s.LastScan = now })
		}
	}

	e.step("signals", func() error { return e.consumeSignals(ctx) })
	e.step("monitor", func() error { return e.monitorTrades(ctx) })
	e.step("statistics", func() error { return e.refreshStatistics(ctx) })

	db := e.cfg.Database
	if db.BackupDir != "" && db.BackupInterval > 0 && due(st.LastBackup, db.BackupInterval, now) {
		ok := e.step("backup", func() error {
			_, err := e.store.Backup(ctx, db.BackupDir, db.KeepBackups)
			return err
		})
		if ok {
			e.setStatus(func(s *Status) { s.LastBackup = now })
		}
	}

	e.setStatus(func(s *Status) {
		s.Ticks++
		s.LastTick = now
	})
}

// step runs fn and reports whether it succeeded. A scheduled step is only
// stamped as done on success, so a failure is retried on the next tick.
func (e *Engine) step(name string, fn func() error) bool {
	err := fn()
	if err == nil {
		return true
	}
	e.metrics.StepErrors.WithLabelValues(name).Inc()
	e.logger.Error("Engine step failed", zap.String("step", name), zap.Error(err))
	e.setStatus(func(s *Status) { s.LastError = fmt.Sprintf("%s: %v", name, err) })
	return false
}

func (e *Engine) refreshStatistics(ctx context.Context) error {
	stats, err := e.store.RefreshStatistics(ctx)
	if err != nil {
		return err
	}
	e.metrics.TotalProfit.Set(stats.TotalProfit)
	e.metrics.WinRate.Set(stats.WinRate)
	e.metrics.MaxDrawdown.Set(stats.MaxDrawdown)
	return nil
}

func (e *Engine) setStatus(fn func(s *Status)) {
	e.mu.Lock()
	fn(&e.status)
	e.mu.Unlock()
}

// due reports whether a step last run at last is due again at now.
func due(last time.Time, interval time.Duration, now time.Time) bool {
	return last.IsZero() || now.Sub(last) >= interval
}

// startOfDay is midnight UTC of t.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
