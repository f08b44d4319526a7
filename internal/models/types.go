package models

// Direction is the directional bias of a signal or trade.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Valid reports whether d is LONG or SHORT.
func (d Direction) Valid() bool {
	return d == Long || d == Short
}

// TradeStatus is the lifecycle state of a trade.
// OPEN is the only non-final state.
type TradeStatus string

const (
	StatusOpen      TradeStatus = "OPEN"
	StatusClosed    TradeStatus = "CLOSED"
	StatusCancelled TradeStatus = "CANCELLED"
)

// Final reports whether no further transition is allowed from s.
func (s TradeStatus) Final() bool {
	return s == StatusClosed || s == StatusCancelled
}

// Close reasons written to trades.reason.
const (
	ReasonStopLoss   = "Stop loss"
	ReasonTakeProfit = "Take profit"
	ReasonManual     = "Manual"
)
