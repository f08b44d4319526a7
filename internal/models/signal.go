package models

import "time"

// Signal is a trading opportunity produced by the analyzer.
type Signal struct {
	ID          int64     `gorm:"column:id;primaryKey" json:"id"`
	Symbol      string    `gorm:"column:symbol" json:"symbol"`
	Type        Direction `gorm:"column:type" json:"type"`
	EntryPrice  float64   `gorm:"column:entry_price" json:"entry_price"`
	TakeProfit  float64   `gorm:"column:take_profit" json:"take_profit"`
	StopLoss    float64   `gorm:"column:stop_loss" json:"stop_loss"`
	Confidence  float64   `gorm:"column:confidence" json:"confidence"`
	RSI         *float64  `gorm:"column:rsi" json:"rsi,omitempty"`
	VolumeRatio *float64  `gorm:"column:volume_ratio" json:"volume_ratio,omitempty"`
	Reason      string    `gorm:"column:reason" json:"reason"`
	Processed   bool      `gorm:"column:processed" json:"processed"`
	TradeID     *int64    `gorm:"column:trade_id" json:"trade_id,omitempty"`
	Time        time.Time `gorm:"column:time" json:"time"`
}

// TableName pins the table to the schema name.
func (Signal) TableName() string { return "signals" }

// RiskReward returns the risk and reward distances implied by the levels.
func (s Signal) RiskReward() (risk, reward float64) {
	if s.Type == Short {
		return s.StopLoss - s.EntryPrice, s.EntryPrice - s.TakeProfit
	}
	return s.EntryPrice - s.StopLoss, s.TakeProfit - s.EntryPrice
}
