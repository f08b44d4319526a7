package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Anhbaza/Bot-Binance/internal/database"
	"github.com/Anhbaza/Bot-Binance/internal/models"
	"github.com/Anhbaza/Bot-Binance/internal/report"
	"github.com/spf13/cobra"
)

func buildTradesCmd(a *app) *cobra.Command {
	var (
		status string
		symbol string
		limit  int
		offset int
		closed bool
	)
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List trades, open ones first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if closed {
				trades, err := a.store.ClosedTrades(cmd.Context(), limit)
				if err != nil {
					return err
				}
				report.ClosedTrades(cmd.OutOrStdout(), trades)
				return nil
			}
			trades, err := a.store.ListTrades(cmd.Context(), database.TradeFilter{
				Status: models.TradeStatus(strings.ToUpper(status)),
				Symbol: strings.ToUpper(symbol),
				Limit:  limit,
				Offset: offset,
			})
			if err != nil {
				return err
			}
			report.Trades(cmd.OutOrStdout(), trades)
			return nil
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status (OPEN, CLOSED, CANCELLED)")
	cmd.Flags().StringVarP(&symbol, "symbol", "p", "", "Filter by symbol (e.g. BTCUSDT)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 100, "Maximum rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
	cmd.Flags().BoolVar(&closed, "closed", false, "Show closed trades with profit percent")
	return cmd
}

func buildSignalsCmd(a *app) *cobra.Command {
	var (
		pending bool
		symbol  string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "signals",
		Short: "List signals, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pending {
				signals, err := a.store.UnprocessedSignals(cmd.Context())
				if err != nil {
					return err
				}
				report.Signals(cmd.OutOrStdout(), signals)
				return nil
			}
			signals, err := a.store.ListSignals(cmd.Context(), database.SignalFilter{
				Symbol: strings.ToUpper(symbol),
				Limit:  limit,
			})
			if err != nil {
				return err
			}
			report.Signals(cmd.OutOrStdout(), signals)
			return nil
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "Only unprocessed signals, most confident first")
	cmd.Flags().StringVarP(&symbol, "symbol", "p", "", "Filter by symbol")
	cmd.Flags().IntVarP(&limit, "limit", "l", 100, "Maximum rows")
	return cmd
}

func buildPairsCmd(a *app) *cobra.Command {
	var enabledOnly bool
	cmd := &cobra.Command{
		Use:   "pairs",
		Short: "List trading pairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled *bool
			if enabledOnly {
				enabled = &enabledOnly
			}
			pairs, err := a.store.ListPairs(cmd.Context(), enabled)
			if err != nil {
				return err
			}
			report.Pairs(cmd.OutOrStdout(), pairs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&enabledOnly, "enabled", false, "Only enabled pairs")
	return cmd
}

func buildStatsCmd(a *app) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show trading statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				stats *models.Statistics
				err   error
			)
			if refresh {
				stats, err = a.store.RefreshStatistics(cmd.Context())
			} else {
				stats, err = a.store.Statistics(cmd.Context())
			}
			if err != nil {
				return err
			}
			agg, err := a.store.AggregateStatistics(cmd.Context())
			if err != nil {
				return err
			}
			report.Statistics(cmd.OutOrStdout(), stats, agg)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&refresh, "refresh", "r", false, "Recompute statistics from closed trades first")
	return cmd
}

func buildCloseCmd(a *app) *cobra.Command {
	var price float64
	cmd := &cobra.Command{
		Use:   "close ID",
		Short: "Close an open trade at a price, or the current market price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid trade id %q", args[0])
			}
			if price <= 0 {
				trade, err := a.store.GetTrade(cmd.Context(), id)
				if err != nil {
					return err
				}
				if price, err = marketPrice(cmd, a, trade.Symbol); err != nil {
					return err
				}
			}
			trade, err := a.store.CloseTrade(cmd.Context(), id, price, models.ReasonManual)
			if err != nil {
				return err
			}
			report.Trades(cmd.OutOrStdout(), []models.Trade{*trade})
			return nil
		},
	}
	cmd.Flags().Float64Var(&price, "price", 0, "Exit price (default: last market price)")
	return cmd
}

func buildCancelCmd(a *app) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel an open trade without an exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid trade id %q", args[0])
			}
			if err := a.store.CancelTrade(cmd.Context(), id, reason); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Trade %d cancelled\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "Cancelled", "Reason stored on the trade")
	return cmd
}

func buildBackupCmd(a *app) *cobra.Command {
	var (
		dir  string
		keep int
	)
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a timestamped copy of the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = a.cfg.Database.BackupDir
			}
			if keep < 0 {
				keep = a.cfg.Database.KeepBackups
			}
			path, err := a.store.Backup(cmd.Context(), dir, keep)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Backup directory (default: database.backup_dir)")
	cmd.Flags().IntVarP(&keep, "keep", "k", -1, "Backups to keep, 0 keeps all (default: database.keep_backups)")
	return cmd
}

func buildVacuumCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "vacuum",
		Short: "Compact the database file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Vacuum(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database vacuumed")
			return nil
		},
	}
}
