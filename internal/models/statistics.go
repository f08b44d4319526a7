package models

import "time"

// Statistics is the single rolling aggregate row derived from closed trades.
type Statistics struct {
	ID            int64     `gorm:"column:id;primaryKey" json:"-"`
	TotalTrades   int64     `gorm:"column:total_trades" json:"total_trades"`
	WinningTrades int64     `gorm:"column:winning_trades" json:"winning_trades"`
	LosingTrades  int64     `gorm:"column:losing_trades" json:"losing_trades"`
	TotalProfit   float64   `gorm:"column:total_profit" json:"total_profit"`
	WinRate       float64   `gorm:"column:win_rate" json:"win_rate"`
	AvgProfit     float64   `gorm:"column:avg_profit" json:"avg_profit"`
	MaxDrawdown   float64   `gorm:"column:max_drawdown" json:"max_drawdown"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime:false" json:"updated_at"`
}

// TableName pins the table to the schema name.
func (Statistics) TableName() string { return "statistics" }

// Aggregate is a row of the aggregate statistics query.
type Aggregate struct {
	TotalTrades   int64   `gorm:"column:total_trades" json:"total_trades"`
	WinningTrades int64   `gorm:"column:winning_trades" json:"winning_trades"`
	LosingTrades  int64   `gorm:"column:losing_trades" json:"losing_trades"`
	TotalProfit   float64 `gorm:"column:total_profit" json:"total_profit"`
	AvgProfit     float64 `gorm:"column:avg_profit" json:"avg_profit"`
	BestTrade     float64 `gorm:"column:best_trade" json:"best_trade"`
	WorstTrade    float64 `gorm:"column:worst_trade" json:"worst_trade"`
}
