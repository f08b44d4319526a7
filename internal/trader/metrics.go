package trader

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the engine's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	SignalsFound    prometheus.Counter
	SignalsConsumed *prometheus.CounterVec
	TradesOpened    prometheus.Counter
	TradesClosed    *prometheus.CounterVec
	StepErrors      *prometheus.CounterVec
	PairsEnabled    prometheus.Gauge
	OpenTrades      prometheus.Gauge
	TotalProfit     prometheus.Gauge
	WinRate         prometheus.Gauge
	MaxDrawdown     prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SignalsFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bot", Name: "signals_found_total", Help: "Signals stored by the scanner",
		}),
		SignalsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bot", Name: "signals_consumed_total", Help: "Signals processed by outcome",
		}, []string{"outcome"}),
		TradesOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bot", Name: "trades_opened_total", Help: "Paper trades opened",
		}),
		TradesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bot", Name: "trades_closed_total", Help: "Trades closed by reason",
		}, []string{"reason"}),
		StepErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bot", Name: "step_errors_total", Help: "Engine step failures",
		}, []string{"step"}),
		PairsEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bot", Name: "pairs_enabled", Help: "Pairs enabled by the last refresh",
		}),
		OpenTrades: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bot", Name: "open_trades", Help: "Currently open trades",
		}),
		TotalProfit: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bot", Name: "total_profit", Help: "Realized profit of closed trades",
		}),
		WinRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bot", Name: "win_rate_percent", Help: "Winning share of closed trades",
		}),
		MaxDrawdown: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bot", Name: "max_drawdown", Help: "Largest decline of cumulative realized profit",
		}),
	}
	m.registry.MustRegister(
		m.SignalsFound, m.SignalsConsumed, m.TradesOpened, m.TradesClosed, m.StepErrors,
		m.PairsEnabled, m.OpenTrades, m.TotalProfit, m.WinRate, m.MaxDrawdown,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
