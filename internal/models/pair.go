package models

import "time"

// Pair holds exchange metadata for a tradeable symbol.
// Rows are upserted on every market-data refresh.
type Pair struct {
	Symbol         string    `gorm:"column:symbol;primaryKey" json:"symbol"`
	BaseAsset      string    `gorm:"column:base_asset" json:"base_asset"`
	QuoteAsset     string    `gorm:"column:quote_asset" json:"quote_asset"`
	MinPrice       float64   `gorm:"column:min_price" json:"min_price"`
	MinQty         float64   `gorm:"column:min_qty" json:"min_qty"`
	MinNotional    float64   `gorm:"column:min_notional" json:"min_notional"`
	PricePrecision int32     `gorm:"column:price_precision" json:"price_precision"`
	QtyPrecision   int32     `gorm:"column:qty_precision" json:"qty_precision"`
	Enabled        bool      `gorm:"column:enabled" json:"enabled"`
	LastPrice      *float64  `gorm:"column:last_price" json:"last_price,omitempty"`
	Volume24h      *float64  `gorm:"column:volume_24h" json:"volume_24h,omitempty"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime:false" json:"updated_at"`
}

// TableName pins the table to the schema name.
func (Pair) TableName() string { return "pairs" }

// ActivePair is a row of the active pairs query.
type ActivePair struct {
	Symbol     string   `gorm:"column:symbol" json:"symbol"`
	BaseAsset  string   `gorm:"column:base_asset" json:"base_asset"`
	QuoteAsset string   `gorm:"column:quote_asset" json:"quote_asset"`
	LastPrice  *float64 `gorm:"column:last_price" json:"last_price,omitempty"`
	Volume24h  *float64 `gorm:"column:volume_24h" json:"volume_24h,omitempty"`
	OpenTrades int64    `gorm:"column:open_trades" json:"open_trades"`
}
