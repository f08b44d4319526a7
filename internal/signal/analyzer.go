// Package signal detects trading setups from candles and stores them as signals.
package signal

import (
	"errors"
	"fmt"
	"math"

	"github.com/Anhbaza/Bot-Binance/internal/binance"
	"github.com/Anhbaza/Bot-Binance/internal/config"
	"github.com/Anhbaza/Bot-Binance/internal/models"
	"github.com/markcheno/go-talib"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// trendWindow is the number of trailing candles a trend or volume rise must hold for.
const trendWindow = 5

var (
	ErrNotEnoughData = errors.New("not enough candles")
	ErrInvalidSignal = errors.New("invalid signal")
)

// Params are the analyzer thresholds and indicator periods.
type Params struct {
	FastMA         int
	SlowMA         int
	RSIPeriod      int
	RSIOverbought  float64
	RSIOversold    float64
	MACDFast       int
	MACDSlow       int
	MACDSignal     int
	VolumePeriod   int
	VolumeRatioMin float64
	BBPeriod       int
	BBDeviation    float64
	MinConfidence  float64
	MinRiskReward  float64
}

// ParamsFrom combines the bot settings with the policy indicator section.
// Policy values win where both define a period.
func ParamsFrom(s config.Signal, ind config.Indicators) Params {
	p := Params{
		FastMA:         s.FastMA,
		SlowMA:         s.SlowMA,
		RSIPeriod:      s.RSIPeriod,
		RSIOverbought:  70,
		RSIOversold:    30,
		MACDFast:       12,
		MACDSlow:       26,
		MACDSignal:     9,
		VolumePeriod:   s.VolumePeriod,
		VolumeRatioMin: s.VolumeRatioMin,
		BBPeriod:       s.BBPeriod,
		BBDeviation:    s.BBDeviation,
		MinConfidence:  s.MinConfidence,
		MinRiskReward:  s.MinRiskReward,
	}
	if ind.RSI.Period > 0 {
		p.RSIPeriod = ind.RSI.Period
	}
	if ind.RSI.Overbought > 0 {
		p.RSIOverbought = ind.RSI.Overbought
	}
	if ind.RSI.Oversold > 0 {
		p.RSIOversold = ind.RSI.Oversold
	}
	if ind.MACD.Fast > 0 && ind.MACD.Slow > ind.MACD.Fast && ind.MACD.Signal > 0 {
		p.MACDFast, p.MACDSlow, p.MACDSignal = ind.MACD.Fast, ind.MACD.Slow, ind.MACD.Signal
	}
	return p
}

// DefaultParams mirrors the shipped configuration.
func DefaultParams() Params {
	return Params{
		FastMA: 12, SlowMA: 26,
		RSIPeriod: 14, RSIOverbought: 70, RSIOversold: 30,
		MACDFast: 12, MACDSlow: 26, MACDSignal: 9,
		VolumePeriod: 20, VolumeRatioMin: 1.5,
		BBPeriod: 20, BBDeviation: 2,
		MinConfidence: 70, MinRiskReward: 2,
	}
}

// minCandles is the shortest series every indicator can be computed on.
func (p Params) minCandles() int {
	return lo.Max([]int{
		p.SlowMA + trendWindow,
		p.MACDSlow + p.MACDSignal,
		p.RSIPeriod + 1,
		p.BBPeriod,
		p.VolumePeriod,
		trendWindow + 1,
	})
}

// Analyzer turns a candle series into at most one signal.
type Analyzer struct {
	params Params
	logger *zap.Logger
}

func NewAnalyzer(params Params, logger *zap.Logger) *Analyzer {
	return &Analyzer{params: params, logger: logger.Named("analyzer")}
}

// Params returns the thresholds the analyzer runs with.
func (a *Analyzer) Params() Params {
	return a.params
}

// Analyze evaluates the closed candles of symbol on timeframe. It returns
// nil without error when the series shows no setup.
func (a *Analyzer) Analyze(symbol, timeframe string, klines []binance.Kline) (*models.Signal, error) {
	p := a.params
	if len(klines) < p.minCandles() {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughData, len(klines), p.minCandles())
	}

	closes := lo.Map(klines, func(k binance.Kline, _ int) float64 { return k.Close })
	volumes := lo.Map(klines, func(k binance.Kline, _ int) float64 { return k.Volume })

	ratio, ok := volumeRatio(volumes, p.VolumePeriod)
	if !ok || ratio < p.VolumeRatioMin || !risingVolume(volumes) {
		return nil, nil
	}

	dir, ok := trend(talib.Sma(closes, p.FastMA), talib.Sma(closes, p.SlowMA))
	if !ok {
		return nil, nil
	}

	upper, _, lower := talib.BBands(closes, p.BBPeriod, p.BBDeviation, p.BBDeviation, talib.SMA)
	entry := round(last(closes), 8)
	var stop, target float64
	if dir == models.Long {
		stop = round(last(lower), 8)
		target = entry + (entry-stop)*2
	} else {
		stop = round(last(upper), 8)
		target = entry - (stop-entry)*2
	}
	if entry <= 0 || stop <= 0 || target <= 0 {
		return nil, nil
	}

	rsi := last(talib.Rsi(closes, p.RSIPeriod))
	macd, macdSignal, _ := talib.Macd(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	confidence := a.confidence(dir, ratio, rsi, last(macd), last(macdSignal))
	if confidence < p.MinConfidence {
		a.logger.Debug("Setup below confidence",
			zap.String("symbol", symbol),
			zap.String("timeframe", timeframe),
			zap.Float64("confidence", confidence))
		return nil, nil
	}

	rsiRounded := round(rsi, 2)
	ratioRounded := round(ratio, 2)
	return &models.Signal{
		Symbol:      symbol,
		Type:        dir,
		EntryPrice:  entry,
		TakeProfit:  target,
		StopLoss:    stop,
		Confidence:  confidence,
		RSI:         &rsiRounded,
		VolumeRatio: &ratioRounded,
		Reason:      fmt.Sprintf("%s %s trend, volume x%.2f", timeframe, dir, ratio),
		Time:        last(klines).CloseTime,
	}, nil
}

// confidence scores a setup out of 100: trend 30, volume 30, RSI 20, MACD 20.
func (a *Analyzer) confidence(dir models.Direction, ratio, rsi, macd, macdSignal float64) float64 {
	var score float64
	if (dir == models.Long && macd > macdSignal) || (dir == models.Short && macd < macdSignal) {
		score += 30
	}
	score += math.Min(30, ratio*10)
	if rsi > a.params.RSIOversold && rsi < a.params.RSIOverbought {
		score += 20
	}
	if macd != macdSignal {
		score += 20
	}
	return round(score, 2)
}

// Validate checks a signal's levels before it is stored or traded.
func (a *Analyzer) Validate(sig *models.Signal) error {
	if sig == nil {
		return fmt.Errorf("%w: nil signal", ErrInvalidSignal)
	}
	if !sig.Type.Valid() {
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidSignal, sig.Type)
	}
	if sig.Confidence < a.params.MinConfidence {
		return fmt.Errorf("%w: confidence %.2f below %.2f", ErrInvalidSignal, sig.Confidence, a.params.MinConfidence)
	}
	if sig.EntryPrice <= 0 {
		return fmt.Errorf("%w: entry price must be positive", ErrInvalidSignal)
	}
	risk, reward := sig.RiskReward()
	if risk <= 0 || reward <= 0 {
		return fmt.Errorf("%w: stop loss and take profit on the wrong side of entry", ErrInvalidSignal)
	}
	// Levels built as an exact multiple of the risk may be off by an ulp.
	if reward/risk < a.params.MinRiskReward-1e-6 {
		return fmt.Errorf("%w: reward/risk %.2f below %.2f", ErrInvalidSignal, reward/risk, a.params.MinRiskReward)
	}
	return nil
}

func volumeRatio(volumes []float64, period int) (float64, bool) {
	avg := last(talib.Sma(volumes, period))
	if avg <= 0 {
		return 0, false
	}
	return last(volumes) / avg, true
}

// risingVolume reports whether each of the last trendWindow volumes is at
// least the one before it.
func risingVolume(volumes []float64) bool {
	n := len(volumes)
	for i := n - trendWindow; i < n; i++ {
		if volumes[i] < volumes[i-1] {
			return false
		}
	}
	return true
}

// trend requires the fast average to stay on one side of the slow average
// for the last trendWindow candles.
func trend(fast, slow []float64) (models.Direction, bool) {
	n := len(fast)
	above, below := 0, 0
	for i := n - trendWindow; i < n; i++ {
		switch {
		case fast[i] > slow[i]:
			above++
		case fast[i] < slow[i]:
			below++
		}
	}
	if above == trendWindow {
		return models.Long, true
	}
	if below == trendWindow {
		return models.Short, true
	}
	return "", false
}

func last[T any](s []T) T {
	return s[len(s)-1]
}

func round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
