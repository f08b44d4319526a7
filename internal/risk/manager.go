package risk

import (
	"errors"
	"fmt"
	"time"

	"github.com/Anhbaza/Bot-Binance/internal/config"
	"github.com/Anhbaza/Bot-Binance/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientQuantity = errors.New("quantity below exchange minimum")
	ErrBelowMinNotional     = errors.New("order value below exchange minimum notional")
)

// State is the portfolio snapshot a signal is checked against.
type State struct {
	OpenTrades    int64
	OpenForSymbol int64
	RealizedToday float64
	Pair          *models.Pair
	Now           time.Time
}

// Manager applies the risk_management section of the pairs policy.
type Manager struct {
	policy *config.Policy
}

func NewManager(policy *config.Policy) *Manager {
	return &Manager{policy: policy}
}

// Capital is the notional the bot may have deployed at once.
func (m *Manager) Capital() float64 {
	rm := m.policy.RiskManagement
	return rm.OrderSize * float64(rm.MaxOpenTrades)
}

// DailyLossLimit is the realized loss, in quote currency, that stops new trades for the day.
func (m *Manager) DailyLossLimit() float64 {
	return m.Capital() * m.policy.RiskManagement.DailyLossLimit / 100
}

// CanOpen reports whether a trade may be opened for sig, and why not otherwise.
func (m *Manager) CanOpen(state State, sig models.Signal) (bool, string) {
	rm := m.policy.RiskManagement

	if state.Pair == nil {
		return false, "Unknown pair"
	}
	if !state.Pair.Enabled {
		return false, "Pair disabled"
	}
	if m.policy.IsExcluded(sig.Symbol) {
		return false, "Pair excluded"
	}
	if state.OpenTrades >= int64(rm.MaxOpenTrades) {
		return false, "Maximum open trades reached"
	}
	if state.OpenForSymbol >= int64(rm.MaxTradesPerPair) {
		return false, "Maximum trades for pair reached"
	}
	if state.RealizedToday < -m.DailyLossLimit() {
		return false, fmt.Sprintf("Daily loss limit reached: %.2f", state.RealizedToday)
	}
	if !m.policy.InTradingHours(state.Now) {
		return false, "Outside trading hours"
	}
	return true, ""
}

// OrderSize is the quote amount to commit to symbol.
func (m *Manager) OrderSize(symbol string) float64 {
	if size := m.policy.SettingsFor(symbol).OrderSize; size > 0 {
		return size
	}
	return m.policy.RiskManagement.OrderSize
}

// PositionSize converts the order size for pair into a quantity at price,
// floored to the pair's quantity precision. The quantity is reduced so that
// a stop at stop loses at most max_loss_percent of capital.
func (m *Manager) PositionSize(pair models.Pair, price, stop float64) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("invalid price %v", price)
	}
	p := decimal.NewFromFloat(price)
	qty := decimal.NewFromFloat(m.OrderSize(pair.Symbol)).Div(p)

	if riskPerUnit := decimal.NewFromFloat(price - stop).Abs(); riskPerUnit.IsPositive() {
		maxLoss := decimal.NewFromFloat(m.Capital() * m.policy.RiskManagement.MaxLossPercent / 100)
		if capped := maxLoss.Div(riskPerUnit); capped.LessThan(qty) {
			qty = capped
		}
	}

	qty = qty.Truncate(pair.QtyPrecision)
	if !qty.IsPositive() || qty.LessThan(decimal.NewFromFloat(pair.MinQty)) {
		return 0, fmt.Errorf("%w: %s < %v", ErrInsufficientQuantity, qty, pair.MinQty)
	}
	if notional := qty.Mul(p); notional.LessThan(decimal.NewFromFloat(pair.MinNotional)) {
		return 0, fmt.Errorf("%w: %s < %v", ErrBelowMinNotional, notional.StringFixed(2), pair.MinNotional)
	}
	return qty.InexactFloat64(), nil
}

// DefaultLevels returns take-profit and stop-loss prices from the pair's
// percentage settings, rounded to its price precision. They are used for
// trades opened without analyzer levels.
func (m *Manager) DefaultLevels(pair models.Pair, dir models.Direction, entry float64) (takeProfit, stopLoss float64) {
	s := m.policy.SettingsFor(pair.Symbol)
	e := decimal.NewFromFloat(entry)
	tp := decimal.NewFromFloat(s.TakeProfitPercent).Div(decimal.NewFromInt(100))
	sl := decimal.NewFromFloat(s.StopLossPercent).Div(decimal.NewFromInt(100))
	one := decimal.NewFromInt(1)

	up := func(pct decimal.Decimal) float64 {
		return e.Mul(one.Add(pct)).Round(pair.PricePrecision).InexactFloat64()
	}
	down := func(pct decimal.Decimal) float64 {
		return e.Mul(one.Sub(pct)).Round(pair.PricePrecision).InexactFloat64()
	}
	if dir == models.Short {
		return down(tp), up(sl)
	}
	return up(tp), down(sl)
}

// ShouldClose reports whether price hits the trade's stop loss or take profit.
func ShouldClose(trade models.Trade, price float64) (bool, string) {
	switch trade.Type {
	case models.Long:
		if price <= trade.StopLoss {
			return true, models.ReasonStopLoss
		}
		if price >= trade.TakeProfit {
			return true, models.ReasonTakeProfit
		}
	case models.Short:
		if price >= trade.StopLoss {
			return true, models.ReasonStopLoss
		}
		if price <= trade.TakeProfit {
			return true, models.ReasonTakeProfit
		}
	}
	return false, ""
}
