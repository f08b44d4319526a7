package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Anhbaza/Bot-Binance/internal/database"
	"github.com/Anhbaza/Bot-Binance/internal/market"
	"github.com/Anhbaza/Bot-Binance/internal/models"
	"github.com/Anhbaza/Bot-Binance/internal/report"
	"github.com/Anhbaza/Bot-Binance/internal/risk"
	"github.com/Anhbaza/Bot-Binance/internal/signal"
	"github.com/spf13/cobra"
)

var errRiskRejected = errors.New("trade rejected by risk checks")

func buildRefreshPairsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-pairs",
		Short: "Reload pair metadata from the exchange",
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := a.policy()
			if err != nil {
				return err
			}
			res, err := market.NewRefresher(a.restClient(), a.store, policy, a.cfg.Trading.QuoteAsset, a.log).Refresh(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seen %d symbols, stored %d pairs, %d enabled, %d disabled\n", res.Seen, res.Upserted, res.Enabled, res.Disabled)
			return nil
		},
	}
}

func buildVolatilityCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "volatility SYMBOL",
		Short: "Show the daily return volatility of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := a.policy()
			if err != nil {
				return err
			}
			analyzer := signal.NewAnalyzer(signal.ParamsFrom(a.cfg.Signal, policy.Indicators), a.log)
			scanner, err := signal.NewScanner(a.restClient(), a.store, analyzer, policy, a.cfg.Trading.Timeframes, a.cfg.Signal.KlineLimit, a.log)
			if err != nil {
				return err
			}
			symbol := strings.ToUpper(args[0])
			v, err := scanner.Volatility(cmd.Context(), symbol, days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %dd volatility: %.2f%%\n", symbol, days, v)
			return nil
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 30, "Daily candles to use")
	return cmd
}

func buildOpenCmd(a *app) *cobra.Command {
	var (
		side  string
		price float64
		force bool
	)
	cmd := &cobra.Command{
		Use:   "open SYMBOL",
		Short: "Open a paper trade with the pair's default take-profit and stop-loss",
		Long: `Open a paper trade with the pair's default take-profit and stop-loss.

The trade goes through the same risk checks as bot signals: the pair must be
enabled and not excluded, and the open trade limits, daily loss limit and
trading hours apply. Use --force to skip these checks.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(args[0])
			dir := models.Direction(strings.ToUpper(side))
			if !dir.Valid() {
				return fmt.Errorf("invalid side %q, want LONG or SHORT", side)
			}

			policy, err := a.policy()
			if err != nil {
				return err
			}
			pair, err := a.store.GetPair(cmd.Context(), symbol)
			if err != nil {
				return err
			}
			if price <= 0 {
				if price, err = marketPrice(cmd, a, symbol); err != nil {
					return err
				}
			}

			manager := risk.NewManager(policy)
			tp, sl := manager.DefaultLevels(*pair, dir, price)
			qty, err := manager.PositionSize(*pair, price, sl)
			if err != nil {
				return err
			}

			trade := &models.Trade{
				Symbol:     symbol,
				Type:       dir,
				EntryPrice: price,
				TakeProfit: tp,
				StopLoss:   sl,
				Quantity:   qty,
				Reason:     models.ReasonManual,
			}
			err = a.store.WithTx(cmd.Context(), func(tx *database.Store) error {
				if !force {
					if err := checkRisk(cmd.Context(), tx, manager, *trade); err != nil {
						return err
					}
				}
				return tx.InsertTrade(cmd.Context(), trade)
			})
			if err != nil {
				return err
			}
			report.Trades(cmd.OutOrStdout(), []models.Trade{*trade})
			return nil
		},
	}
	cmd.Flags().StringVarP(&side, "side", "s", string(models.Long), "LONG or SHORT")
	cmd.Flags().Float64Var(&price, "price", 0, "Entry price (default: last market price)")
	cmd.Flags().BoolVar(&force, "force", false, "Skip the risk checks")
	return cmd
}

// checkRisk applies the bot's entry rules to a manual trade.
func checkRisk(ctx context.Context, tx *database.Store, manager *risk.Manager, t models.Trade) error {
	now := time.Now().UTC()
	state := risk.State{Now: now}

	pair, err := tx.GetPair(ctx, t.Symbol)
	if err != nil {
		return err
	}
	state.Pair = pair
	if state.OpenTrades, err = tx.CountOpenTrades(ctx, ""); err != nil {
		return err
	}
	if state.OpenForSymbol, err = tx.CountOpenTrades(ctx, t.Symbol); err != nil {
		return err
	}
	if state.RealizedToday, err = tx.RealizedProfitSince(ctx, now.Truncate(24*time.Hour)); err != nil {
		return err
	}

	sig := models.Signal{Symbol: t.Symbol, Type: t.Type, EntryPrice: t.EntryPrice, TakeProfit: t.TakeProfit, StopLoss: t.StopLoss}
	if ok, reason := manager.CanOpen(state, sig); !ok {
		return fmt.Errorf("%w: %s (use --force to open anyway)", errRiskRejected, reason)
	}
	return nil
}

func marketPrice(cmd *cobra.Command, a *app, symbol string) (float64, error) {
	prices, err := a.restClient().GetAllTickerPrices(cmd.Context())
	if err != nil {
		return 0, err
	}
	price, ok := prices[symbol]
	if !ok {
		return 0, fmt.Errorf("no market price for %s", symbol)
	}
	return price, nil
}
