package signal

import (
	"gonum.org/v1/gonum/stat"
)

// Volatility is the standard deviation of period-over-period returns, in percent.
func Volatility(closes []float64) float64 {
	if len(closes) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	if len(returns) < 2 {
		return 0
	}
	_, std := stat.MeanStdDev(returns, nil)
	return round(std*100, 2)
}
