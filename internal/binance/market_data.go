package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// TickerPrice represents the response for a single ticker price.
type TickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// GetAllTickerPrices fetches the latest price for all symbols.
// Entries with unparsable prices are skipped.
func (c *RestClient) GetAllTickerPrices(ctx context.Context) (map[string]float64, error) {
	var prices []TickerPrice

	req := c.client.R().SetResult(&prices)

	resp, err := c.doRequest(ctx, http.MethodGet, "/ticker/price", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get all ticker prices: %w", err)
	}

	result := *resp.Result().(*[]TickerPrice)
	priceMap := make(map[string]float64, len(result))
	for _, p := range result {
		price, err := strconv.ParseFloat(p.Price, 64)
		if err != nil {
			continue
		}
		priceMap[p.Symbol] = price
	}
	return priceMap, nil
}

// ExchangeInfoResponse represents the full response from the /exchangeInfo endpoint.
type ExchangeInfoResponse struct {
	Symbols []SymbolInfo `json:"symbols"`
}

// SymbolInfo contains information about a specific trading symbol.
type SymbolInfo struct {
	Symbol     string   `json:"symbol"`
	Status     string   `json:"status"`
	BaseAsset  string   `json:"baseAsset"`
	QuoteAsset string   `json:"quoteAsset"`
	Filters    []Filter `json:"filters"`
}

// Filter holds the fields of the PRICE_FILTER, LOT_SIZE and
// MIN_NOTIONAL/NOTIONAL filters.
type Filter struct {
	FilterType  string `json:"filterType"`
	MinPrice    string `json:"minPrice,omitempty"`
	MaxPrice    string `json:"maxPrice,omitempty"`
	TickSize    string `json:"tickSize,omitempty"`
	MinQty      string `json:"minQty,omitempty"`
	MaxQty      string `json:"maxQty,omitempty"`
	StepSize    string `json:"stepSize,omitempty"`
	MinNotional string `json:"minNotional,omitempty"`
}

// Filter returns the filter of the given type.
func (s SymbolInfo) Filter(filterType string) (Filter, bool) {
	for _, f := range s.Filters {
		if f.FilterType == filterType {
			return f, true
		}
	}
	return Filter{}, false
}

// GetExchangeInfo fetches exchange trading rules and symbol information.
func (c *RestClient) GetExchangeInfo(ctx context.Context) (*ExchangeInfoResponse, error) {
	var exchangeInfo ExchangeInfoResponse

	req := c.client.R().SetResult(&exchangeInfo)

	resp, err := c.doRequest(ctx, http.MethodGet, "/exchangeInfo", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange info: %w", err)
	}

	return resp.Result().(*ExchangeInfoResponse), nil
}

type ticker24hResponse struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	Volume             string `json:"volume"`
	QuoteVolume        string `json:"quoteVolume"`
}

// Ticker24h is the rolling 24h statistics of a symbol.
type Ticker24h struct {
	Symbol             string
	LastPrice          float64
	PriceChangePercent float64
	Volume             float64
	QuoteVolume        float64
}

// Get24hTickers fetches 24h statistics for every symbol.
func (c *RestClient) Get24hTickers(ctx context.Context) ([]Ticker24h, error) {
	var raw []ticker24hResponse

	req := c.client.R().SetResult(&raw)

	resp, err := c.doRequest(ctx, http.MethodGet, "/ticker/24hr", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get 24h tickers: %w", err)
	}

	result := *resp.Result().(*[]ticker24hResponse)
	tickers := make([]Ticker24h, 0, len(result))
	for _, r := range result {
		t := Ticker24h{Symbol: r.Symbol}
		var perr error
		if t.LastPrice, perr = strconv.ParseFloat(r.LastPrice, 64); perr != nil {
			continue
		}
		t.PriceChangePercent, _ = strconv.ParseFloat(r.PriceChangePercent, 64)
		t.Volume, _ = strconv.ParseFloat(r.Volume, 64)
		t.QuoteVolume, _ = strconv.ParseFloat(r.QuoteVolume, 64)
		tickers = append(tickers, t)
	}
	return tickers, nil
}

// Kline is a single OHLCV candle.
type Kline struct {
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}

// GetKlines fetches up to limit candles for symbol, oldest first.
func (c *RestClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	var raw [][]interface{}

	req := c.client.R().
		SetQueryParams(map[string]string{
			"symbol":   symbol,
			"interval": interval,
			"limit":    strconv.Itoa(limit),
		}).
		SetResult(&raw)

	resp, err := c.doRequest(ctx, http.MethodGet, "/klines", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get klines for %s %s: %w", symbol, interval, err)
	}

	rows := *resp.Result().(*[][]interface{})
	klines := make([]Kline, 0, len(rows))
	for i, row := range rows {
		k, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("kline %d for %s: %w", i, symbol, err)
		}
		klines = append(klines, k)
	}
	return klines, nil
}

// parseKline decodes [openTime, open, high, low, close, volume, closeTime, ...].
func parseKline(row []interface{}) (Kline, error) {
	if len(row) < 7 {
		return Kline{}, fmt.Errorf("expected at least 7 fields, got %d", len(row))
	}

	var k Kline
	openMs, ok := row[0].(float64)
	if !ok {
		return k, fmt.Errorf("invalid open time %v", row[0])
	}
	closeMs, ok := row[6].(float64)
	if !ok {
		return k, fmt.Errorf("invalid close time %v", row[6])
	}
	k.OpenTime = time.UnixMilli(int64(openMs)).UTC()
	k.CloseTime = time.UnixMilli(int64(closeMs)).UTC()

	fields := []*float64{&k.Open, &k.High, &k.Low, &k.Close, &k.Volume}
	for i, dst := range fields {
		s, ok := row[i+1].(string)
		if !ok {
			return k, fmt.Errorf("invalid field %d: %v", i+1, row[i+1])
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return k, fmt.Errorf("invalid field %d: %w", i+1, err)
		}
		*dst = v
	}
	return k, nil
}
