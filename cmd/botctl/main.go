package main

import (
	"fmt"
	"os"

	"github.com/Anhbaza/Bot-Binance/internal/binance"
	"github.com/Anhbaza/Bot-Binance/internal/config"
	"github.com/Anhbaza/Bot-Binance/internal/database"
	"github.com/Anhbaza/Bot-Binance/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what every subcommand needs. It is filled in by the root
// command's pre-run hook.
type app struct {
	configDir string
	verbose   bool

	cfg    config.Config
	log    *zap.Logger
	store  *database.Store
	client binance.RestClientInterface
}

func main() {
	if err := newRootCmd(&app{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "botctl",
		Short:         "Inspect and maintain the trading bot database",
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.configDir, "config", "c", "./configs", "Configuration directory")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log at the configured level instead of warn")

	rootCmd.AddCommand(
		buildTradesCmd(a),
		buildSignalsCmd(a),
		buildPairsCmd(a),
		buildStatsCmd(a),
		buildCloseCmd(a),
		buildCancelCmd(a),
		buildBackupCmd(a),
		buildVacuumCmd(a),
		buildRefreshPairsCmd(a),
		buildVolatilityCmd(a),
		buildOpenCmd(a),
	)
	return rootCmd
}

func (a *app) open() error {
	cfg, err := config.LoadConfig(a.configDir)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	a.cfg = cfg

	level := "warn"
	if a.verbose {
		level = cfg.Logger.Level
	}
	if a.log, err = logger.NewLogger(level, cfg.Logger.Format, cfg.Logger.File); err != nil {
		return err
	}

	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		return err
	}
	a.store = database.NewStore(db, a.log)
	return nil
}

func (a *app) close() error {
	if a.log != nil {
		_ = a.log.Sync()
	}
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func (a *app) restClient() binance.RestClientInterface {
	if a.client == nil {
		a.client = binance.NewRestClient(&a.cfg.Binance, a.log)
	}
	return a.client
}

func (a *app) policy() (*config.Policy, error) {
	policy, _, err := config.LoadOrDefaultPolicy(a.cfg.Trading.PairsFile, a.cfg.Trading)
	return policy, err
}
