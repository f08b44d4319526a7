// Package report renders stored trading data as text tables.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Anhbaza/Bot-Binance/internal/models"
	"github.com/olekukonko/tablewriter"
)

const timeLayout = "2006-01-02 15:04:05"

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetFooterAlignment(tablewriter.ALIGN_RIGHT)
	return table
}

// Trades writes one row per trade. Open trades show blank exit and profit.
func Trades(w io.Writer, trades []models.Trade) {
	table := newTable(w, []string{"ID", "Symbol", "Type", "Status", "Entry", "Exit", "TP", "SL", "Qty", "Profit", "Reason", "Opened"})
	for _, t := range trades {
		table.Append([]string{
			strconv.FormatInt(t.ID, 10),
			t.Symbol,
			string(t.Type),
			string(t.Status),
			price(t.EntryPrice),
			optional(t.ExitPrice, price),
			price(t.TakeProfit),
			price(t.StopLoss),
			strconv.FormatFloat(t.Quantity, 'f', -1, 64),
			optional(t.Profit, money),
			t.Reason,
			t.OpenTime.UTC().Format(timeLayout),
		})
	}
	table.Render()
}

// ClosedTrades writes closed trades with their percentage return and a profit total.
func ClosedTrades(w io.Writer, trades []models.ClosedTrade) {
	table := newTable(w, []string{"ID", "Symbol", "Type", "Entry", "Exit", "Qty", "Profit", "%", "Reason", "Closed"})
	var total float64
	for _, t := range trades {
		total += t.Profit
		table.Append([]string{
			strconv.FormatInt(t.ID, 10),
			t.Symbol,
			string(t.Type),
			price(t.EntryPrice),
			price(t.ExitPrice),
			strconv.FormatFloat(t.Quantity, 'f', -1, 64),
			money(t.Profit),
			fmt.Sprintf("%.2f %%", t.ProfitPercent),
			t.Reason,
			t.CloseTime.UTC().Format(timeLayout),
		})
	}
	table.SetFooter([]string{"", "", "", "", "", "TOTAL", money(total), "", "", ""})
	table.Render()
}

// Signals writes one row per signal.
func Signals(w io.Writer, signals []models.Signal) {
	table := newTable(w, []string{"ID", "Time", "Symbol", "Type", "Entry", "TP", "SL", "Conf.", "RSI", "Vol x", "Processed", "Trade"})
	for _, s := range signals {
		trade := ""
		if s.TradeID != nil {
			trade = strconv.FormatInt(*s.TradeID, 10)
		}
		table.Append([]string{
			strconv.FormatInt(s.ID, 10),
			s.Time.UTC().Format(timeLayout),
			s.Symbol,
			string(s.Type),
			price(s.EntryPrice),
			price(s.TakeProfit),
			price(s.StopLoss),
			fmt.Sprintf("%.0f", s.Confidence),
			optional(s.RSI, oneDecimal),
			optional(s.VolumeRatio, money),
			strconv.FormatBool(s.Processed),
			trade,
		})
	}
	table.Render()
}

// Pairs writes pair metadata.
func Pairs(w io.Writer, pairs []models.Pair) {
	table := newTable(w, []string{"Symbol", "Base", "Quote", "Enabled", "Last", "Volume 24h", "Min Qty", "Min Notional", "Qty Prec."})
	for _, p := range pairs {
		table.Append([]string{
			p.Symbol,
			p.BaseAsset,
			p.QuoteAsset,
			strconv.FormatBool(p.Enabled),
			optional(p.LastPrice, price),
			optional(p.Volume24h, money),
			strconv.FormatFloat(p.MinQty, 'f', -1, 64),
			strconv.FormatFloat(p.MinNotional, 'f', -1, 64),
			strconv.Itoa(int(p.QtyPrecision)),
		})
	}
	table.Render()
}

// Statistics writes the summary row and, when given, the live aggregate.
func Statistics(w io.Writer, stats *models.Statistics, agg *models.Aggregate) {
	data := [][]string{
		{"Total trades", strconv.FormatInt(stats.TotalTrades, 10)},
		{"Winning", strconv.FormatInt(stats.WinningTrades, 10)},
		{"Losing", strconv.FormatInt(stats.LosingTrades, 10)},
		{"Win rate", fmt.Sprintf("%.1f %%", stats.WinRate)},
		{"Total profit", money(stats.TotalProfit)},
		{"Avg profit", money(stats.AvgProfit)},
		{"Max drawdown", money(stats.MaxDrawdown)},
	}
	if agg != nil {
		data = append(data,
			[]string{"Best trade", money(agg.BestTrade)},
			[]string{"Worst trade", money(agg.WorstTrade)},
		)
	}
	if !stats.UpdatedAt.IsZero() {
		data = append(data, []string{"Updated", stats.UpdatedAt.UTC().Format(time.RFC3339)})
	}

	table := tablewriter.NewWriter(w)
	table.AppendBulk(data)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.Render()
}

func price(v float64) string      { return strconv.FormatFloat(v, 'f', -1, 64) }
func money(v float64) string      { return fmt.Sprintf("%.2f", v) }
func oneDecimal(v float64) string { return fmt.Sprintf("%.1f", v) }

func optional(v *float64, format func(float64) string) string {
	if v == nil {
		return ""
	}
	return format(*v)
}
