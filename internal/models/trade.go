package models

import "time"

// Trade represents a position opened from a signal.
// ExitPrice, Profit and CloseTime stay nil until the trade is CLOSED.
type Trade struct {
	ID         int64       `gorm:"column:id;primaryKey" json:"id"`
	Symbol     string      `gorm:"column:symbol" json:"symbol"`
	Type       Direction   `gorm:"column:type" json:"type"`
	EntryPrice float64     `gorm:"column:entry_price" json:"entry_price"`
	ExitPrice  *float64    `gorm:"column:exit_price" json:"exit_price,omitempty"`
	TakeProfit float64     `gorm:"column:take_profit" json:"take_profit"`
	StopLoss   float64     `gorm:"column:stop_loss" json:"stop_loss"`
	Quantity   float64     `gorm:"column:quantity" json:"quantity"`
	Profit     *float64    `gorm:"column:profit" json:"profit,omitempty"`
	Status     TradeStatus `gorm:"column:status" json:"status"`
	Reason     string      `gorm:"column:reason" json:"reason"`
	OpenTime   time.Time   `gorm:"column:open_time" json:"open_time"`
	CloseTime  *time.Time  `gorm:"column:close_time" json:"close_time,omitempty"`
	CreatedAt  time.Time   `gorm:"column:created_at;autoCreateTime:false" json:"created_at"`
	UpdatedAt  time.Time   `gorm:"column:updated_at;autoUpdateTime:false" json:"updated_at"`
}

// TableName pins the table to the schema name.
func (Trade) TableName() string { return "trades" }

// Notional is the position value at entry.
func (t Trade) Notional() float64 {
	return t.EntryPrice * t.Quantity
}

// ProfitAt returns the profit the trade would realize if closed at price.
func (t Trade) ProfitAt(price float64) float64 {
	if t.Type == Short {
		return (t.EntryPrice - price) * t.Quantity
	}
	return (price - t.EntryPrice) * t.Quantity
}

// ClosedTrade is a row of the closed trade history query.
type ClosedTrade struct {
	ID            int64     `gorm:"column:id" json:"id"`
	Symbol        string    `gorm:"column:symbol" json:"symbol"`
	Type          Direction `gorm:"column:type" json:"type"`
	EntryPrice    float64   `gorm:"column:entry_price" json:"entry_price"`
	ExitPrice     float64   `gorm:"column:exit_price" json:"exit_price"`
	Quantity      float64   `gorm:"column:quantity" json:"quantity"`
	Profit        float64   `gorm:"column:profit" json:"profit"`
	ProfitPercent float64   `gorm:"column:profit_percent" json:"profit_percent"`
	Reason        string    `gorm:"column:reason" json:"reason"`
	OpenTime      time.Time `gorm:"column:open_time" json:"open_time"`
	CloseTime     time.Time `gorm:"column:close_time" json:"close_time"`
}
