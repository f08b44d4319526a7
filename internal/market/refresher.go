// Package market keeps the pairs table in sync with exchange metadata.
package market

import (
	"context"
	"fmt"
	"strings"

	"github.com/Anhbaza/Bot-Binance/internal/binance"
	"github.com/Anhbaza/Bot-Binance/internal/config"
	"github.com/Anhbaza/Bot-Binance/internal/models"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const statusTrading = "TRADING"

// PairStore persists refreshed pairs and disables the ones no longer listed.
type PairStore interface {
	SyncPairs(ctx context.Context, quoteAsset string, pairs []models.Pair) (int64, error)
}

// Result summarizes one refresh.
type Result struct {
	Seen     int
	Upserted int
	Enabled  int
	Disabled int
}

// Refresher builds pair rows from exchange info and 24h tickers.
type Refresher struct {
	client     binance.RestClientInterface
	store      PairStore
	policy     *config.Policy
	quoteAsset string
	logger     *zap.Logger
}

func NewRefresher(client binance.RestClientInterface, store PairStore, policy *config.Policy, quoteAsset string, logger *zap.Logger) *Refresher {
	return &Refresher{
		client:     client,
		store:      store,
		policy:     policy,
		quoteAsset: strings.ToUpper(quoteAsset),
		logger:     logger.Named("market"),
	}
}

// Refresh upserts every symbol quoted in the configured asset. The enabled
// flag is recomputed on every run: only TRADING symbols the policy accepts are
// enabled, and stored pairs missing from the exchange info are disabled.
func (r *Refresher) Refresh(ctx context.Context) (Result, error) {
	var res Result

	info, err := r.client.GetExchangeInfo(ctx)
	if err != nil {
		return res, err
	}
	tickers, err := r.client.Get24hTickers(ctx)
	if err != nil {
		return res, err
	}
	res.Seen = len(info.Symbols)

	bySymbol := lo.KeyBy(tickers, func(t binance.Ticker24h) string { return t.Symbol })
	symbols := lo.Filter(info.Symbols, func(s binance.SymbolInfo, _ int) bool {
		return s.QuoteAsset == r.quoteAsset
	})

	pairs := make([]models.Pair, 0, len(symbols))
	for _, s := range symbols {
		p, err := buildPair(s)
		if err != nil {
			r.logger.Warn("Skipping symbol with invalid filters", zap.String("symbol", s.Symbol), zap.Error(err))
			continue
		}

		var quoteVolume float64
		if t, ok := bySymbol[s.Symbol]; ok {
			last, vol := t.LastPrice, t.QuoteVolume
			p.LastPrice = &last
			p.Volume24h = &vol
			quoteVolume = vol
		}
		p.Enabled = s.Status == statusTrading && r.policy.Eligible(s.Symbol, quoteVolume)
		if p.Enabled {
			res.Enabled++
		}
		pairs = append(pairs, p)
	}

	disabled, err := r.store.SyncPairs(ctx, r.quoteAsset, pairs)
	if err != nil {
		return res, fmt.Errorf("failed to store pairs: %w", err)
	}
	res.Upserted = len(pairs)
	res.Disabled = int(disabled)

	r.logger.Info("Pairs refreshed",
		zap.Int("seen", res.Seen),
		zap.Int("upserted", res.Upserted),
		zap.Int("enabled", res.Enabled),
		zap.Int("disabled", res.Disabled))
	return res, nil
}

func buildPair(s binance.SymbolInfo) (models.Pair, error) {
	p := models.Pair{
		Symbol:         s.Symbol,
		BaseAsset:      s.BaseAsset,
		QuoteAsset:     s.QuoteAsset,
		PricePrecision: 8,
		QtyPrecision:   8,
	}

	if f, ok := s.Filter("PRICE_FILTER"); ok {
		minPrice, err := parseDecimal(f.MinPrice)
		if err != nil {
			return p, fmt.Errorf("minPrice: %w", err)
		}
		tick, err := parseDecimal(f.TickSize)
		if err != nil {
			return p, fmt.Errorf("tickSize: %w", err)
		}
		p.MinPrice = minPrice.InexactFloat64()
		p.PricePrecision = Precision(tick)
	}

	if f, ok := s.Filter("LOT_SIZE"); ok {
		minQty, err := parseDecimal(f.MinQty)
		if err != nil {
			return p, fmt.Errorf("minQty: %w", err)
		}
		step, err := parseDecimal(f.StepSize)
		if err != nil {
			return p, fmt.Errorf("stepSize: %w", err)
		}
		p.MinQty = minQty.InexactFloat64()
		p.QtyPrecision = Precision(step)
	}

	// Spot symbols carry NOTIONAL; older listings still report MIN_NOTIONAL.
	for _, name := range []string{"NOTIONAL", "MIN_NOTIONAL"} {
		if f, ok := s.Filter(name); ok {
			n, err := parseDecimal(f.MinNotional)
			if err != nil {
				return p, fmt.Errorf("minNotional: %w", err)
			}
			p.MinNotional = n.InexactFloat64()
			break
		}
	}
	return p, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// Precision returns the number of decimal places a tick or step size allows.
// "0.01000000" has precision 2 and "1.00000000" has precision 0.
func Precision(step decimal.Decimal) int32 {
	if step.Sign() <= 0 {
		return 8
	}
	for p := int32(0); p < 18; p++ {
		if step.Equal(step.Truncate(p)) {
			return p
		}
	}
	return 18
}
