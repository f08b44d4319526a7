package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Policy is the trading-pairs policy loaded from pairs.yml.
type Policy struct {
	DefaultSettings PairSettings            `yaml:"default_settings"`
	PriorityPairs   []string                `yaml:"priority_pairs"`
	CustomPairs     map[string]PairSettings `yaml:"custom_pairs"`
	ExcludedPairs   []string                `yaml:"excluded_pairs"`
	Volume          VolumeThresholds        `yaml:"volume"`
	TradingHours    TradingHours            `yaml:"trading_hours"`
	Indicators      Indicators              `yaml:"indicators"`
	RiskManagement  RiskManagement          `yaml:"risk_management"`
}

// PairSettings are per-pair trading parameters. Zero fields in a custom
// entry inherit from default_settings.
type PairSettings struct {
	Enabled           *bool    `yaml:"enabled,omitempty"`
	OrderSize         float64  `yaml:"order_size,omitempty"`
	TakeProfitPercent float64  `yaml:"take_profit_percent,omitempty"`
	StopLossPercent   float64  `yaml:"stop_loss_percent,omitempty"`
	MinConfidence     float64  `yaml:"min_confidence,omitempty"`
	Timeframes        []string `yaml:"timeframes,omitempty"`
}

// IsEnabled treats an unset flag as enabled.
func (s PairSettings) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

type VolumeThresholds struct {
	Min24h         float64 `yaml:"min_24h"`
	PriorityMin24h float64 `yaml:"priority_min_24h"`
}

type TradingHours struct {
	Enabled  bool      `yaml:"enabled"`
	Timezone string    `yaml:"timezone"`
	Sessions []Session `yaml:"sessions"`
}

// Session is a daily window in HH:MM. End before start wraps past midnight.
type Session struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type Indicators struct {
	RSI  RSISettings  `yaml:"rsi"`
	MACD MACDSettings `yaml:"macd"`
}

type RSISettings struct {
	Period     int     `yaml:"period"`
	Overbought float64 `yaml:"overbought"`
	Oversold   float64 `yaml:"oversold"`
}

type MACDSettings struct {
	Fast   int `yaml:"fast"`
	Slow   int `yaml:"slow"`
	Signal int `yaml:"signal"`
}

type RiskManagement struct {
	MaxOpenTrades    int     `yaml:"max_open_trades"`
	MaxTradesPerPair int     `yaml:"max_trades_per_pair"`
	MaxLossPercent   float64 `yaml:"max_loss_percent"`
	DailyLossLimit   float64 `yaml:"daily_loss_limit"`
	OrderSize        float64 `yaml:"order_size"`
}

// DefaultPolicy returns the policy used when no pairs file is present.
func DefaultPolicy() *Policy {
	enabled := true
	return &Policy{
		DefaultSettings: PairSettings{
			Enabled:           &enabled,
			OrderSize:         100,
			TakeProfitPercent: 1.0,
			StopLossPercent:   0.5,
			MinConfidence:     70,
			Timeframes:        []string{"1m", "5m", "15m", "1h", "4h"},
		},
		CustomPairs: map[string]PairSettings{},
		Volume:      VolumeThresholds{Min24h: 1_000_000},
		TradingHours: TradingHours{
			Timezone: "UTC",
		},
		Indicators: Indicators{
			RSI:  RSISettings{Period: 14, Overbought: 70, Oversold: 30},
			MACD: MACDSettings{Fast: 12, Slow: 26, Signal: 9},
		},
		RiskManagement: RiskManagement{
			MaxOpenTrades:    5,
			MaxTradesPerPair: 1,
			MaxLossPercent:   2,
			DailyLossLimit:   5,
			OrderSize:        100,
		},
	}
}

// PolicyFromTrading is DefaultPolicy seeded with the order size, trade limit
// and default take-profit and stop-loss of the trading section.
func PolicyFromTrading(t Trading) *Policy {
	p := DefaultPolicy()
	if t.OrderSize > 0 {
		p.DefaultSettings.OrderSize = t.OrderSize
		p.RiskManagement.OrderSize = t.OrderSize
	}
	if t.MaxTrades > 0 {
		p.RiskManagement.MaxOpenTrades = t.MaxTrades
	}
	if t.DefaultTPPercent > 0 {
		p.DefaultSettings.TakeProfitPercent = t.DefaultTPPercent
	}
	if t.DefaultSLPercent > 0 {
		p.DefaultSettings.StopLossPercent = t.DefaultSLPercent
	}
	if len(t.Timeframes) > 0 {
		p.DefaultSettings.Timeframes = t.Timeframes
	}
	return p
}

// LoadOrDefaultPolicy loads the pairs policy at path, falling back to
// PolicyFromTrading when the file does not exist.
func LoadOrDefaultPolicy(path string, t Trading) (policy *Policy, fromFile bool, err error) {
	policy, err = LoadPolicy(path)
	if errors.Is(err, fs.ErrNotExist) {
		return PolicyFromTrading(t), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return policy, true, nil
}

// LoadPolicy decodes a pairs policy over DefaultPolicy. Unknown keys are an error.
func LoadPolicy(path string) (*Policy, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open policy: %w", err)
	}
	defer file.Close()

	policy := DefaultPolicy()
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(policy); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	policy.normalize()

	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return policy, nil
}

func (p *Policy) normalize() {
	p.PriorityPairs = lo.Map(p.PriorityPairs, func(s string, _ int) string { return strings.ToUpper(s) })
	p.ExcludedPairs = lo.Map(p.ExcludedPairs, func(s string, _ int) string { return strings.ToUpper(s) })
	custom := make(map[string]PairSettings, len(p.CustomPairs))
	for symbol, settings := range p.CustomPairs {
		custom[strings.ToUpper(symbol)] = settings
	}
	p.CustomPairs = custom
}

// Validate checks ranges and session clock formats.
func (p *Policy) Validate() error {
	var errs []error
	if p.DefaultSettings.OrderSize <= 0 {
		errs = append(errs, errors.New("default_settings.order_size must be positive"))
	}
	if p.DefaultSettings.TakeProfitPercent <= 0 || p.DefaultSettings.StopLossPercent <= 0 {
		errs = append(errs, errors.New("default_settings take profit and stop loss must be positive"))
	}
	for symbol, s := range p.CustomPairs {
		if s.OrderSize < 0 || s.TakeProfitPercent < 0 || s.StopLossPercent < 0 {
			errs = append(errs, fmt.Errorf("custom_pairs.%s: values must not be negative", symbol))
		}
	}
	if both := lo.Intersect(p.PriorityPairs, p.ExcludedPairs); len(both) > 0 {
		errs = append(errs, fmt.Errorf("pairs both prioritized and excluded: %s", strings.Join(both, ", ")))
	}
	if p.Volume.Min24h < 0 || p.Volume.PriorityMin24h < 0 {
		errs = append(errs, errors.New("volume thresholds must not be negative"))
	}
	if p.TradingHours.Timezone != "" {
		if _, err := time.LoadLocation(p.TradingHours.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("trading_hours.timezone: %w", err))
		}
	}
	for i, s := range p.TradingHours.Sessions {
		if _, err := parseClock(s.Start); err != nil {
			errs = append(errs, fmt.Errorf("trading_hours.sessions[%d].start: %w", i, err))
		}
		if _, err := parseClock(s.End); err != nil {
			errs = append(errs, fmt.Errorf("trading_hours.sessions[%d].end: %w", i, err))
		}
	}
	if p.TradingHours.Enabled && len(p.TradingHours.Sessions) == 0 {
		errs = append(errs, errors.New("trading_hours enabled without sessions"))
	}
	rsi := p.Indicators.RSI
	if rsi.Period <= 1 || rsi.Oversold <= 0 || rsi.Overbought >= 100 || rsi.Oversold >= rsi.Overbought {
		errs = append(errs, errors.New("indicators.rsi: need period > 1 and 0 < oversold < overbought < 100"))
	}
	macd := p.Indicators.MACD
	if macd.Fast <= 0 || macd.Slow <= macd.Fast || macd.Signal <= 0 {
		errs = append(errs, errors.New("indicators.macd: need 0 < fast < slow and signal > 0"))
	}
	rm := p.RiskManagement
	if rm.MaxOpenTrades <= 0 || rm.MaxTradesPerPair <= 0 {
		errs = append(errs, errors.New("risk_management trade caps must be positive"))
	}
	if rm.MaxLossPercent <= 0 || rm.DailyLossLimit <= 0 || rm.OrderSize <= 0 {
		errs = append(errs, errors.New("risk_management limits must be positive"))
	}
	return errors.Join(errs...)
}

// IsExcluded reports whether symbol is on the exclusion list.
func (p *Policy) IsExcluded(symbol string) bool {
	return lo.Contains(p.ExcludedPairs, strings.ToUpper(symbol))
}

// IsPriority reports whether symbol is on the priority list.
func (p *Policy) IsPriority(symbol string) bool {
	return lo.Contains(p.PriorityPairs, strings.ToUpper(symbol))
}

// SettingsFor merges the custom entry for symbol over default_settings.
func (p *Policy) SettingsFor(symbol string) PairSettings {
	s := p.DefaultSettings
	custom, ok := p.CustomPairs[strings.ToUpper(symbol)]
	if !ok {
		return s
	}
	if custom.Enabled != nil {
		s.Enabled = custom.Enabled
	}
	if custom.OrderSize > 0 {
		s.OrderSize = custom.OrderSize
	}
	if custom.TakeProfitPercent > 0 {
		s.TakeProfitPercent = custom.TakeProfitPercent
	}
	if custom.StopLossPercent > 0 {
		s.StopLossPercent = custom.StopLossPercent
	}
	if custom.MinConfidence > 0 {
		s.MinConfidence = custom.MinConfidence
	}
	if len(custom.Timeframes) > 0 {
		s.Timeframes = custom.Timeframes
	}
	return s
}

// MinVolume is the 24h quote volume symbol needs to be tradeable.
func (p *Policy) MinVolume(symbol string) float64 {
	if p.IsPriority(symbol) && p.Volume.PriorityMin24h > 0 {
		return p.Volume.PriorityMin24h
	}
	return p.Volume.Min24h
}

// Eligible decides the enabled flag of a pair on refresh.
func (p *Policy) Eligible(symbol string, quoteVolume float64) bool {
	if p.IsExcluded(symbol) {
		return false
	}
	if !p.SettingsFor(symbol).IsEnabled() {
		return false
	}
	return quoteVolume >= p.MinVolume(symbol)
}

// InTradingHours reports whether t falls inside any configured session.
// Always true when trading hours are disabled.
func (p *Policy) InTradingHours(t time.Time) bool {
	th := p.TradingHours
	if !th.Enabled {
		return true
	}
	loc := time.UTC
	if th.Timezone != "" {
		if l, err := time.LoadLocation(th.Timezone); err == nil {
			loc = l
		}
	}
	local := t.In(loc)
	minute := local.Hour()*60 + local.Minute()

	for _, s := range th.Sessions {
		start, err1 := parseClock(s.Start)
		end, err2 := parseClock(s.End)
		if err1 != nil || err2 != nil {
			continue
		}
		if start <= end {
			if minute >= start && minute < end {
				return true
			}
		} else if minute >= start || minute < end {
			return true
		}
	}
	return false
}

// parseClock converts HH:MM to minutes after midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q, want HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
