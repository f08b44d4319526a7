package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/xhit/go-str2duration/v2"
)

// Config holds all configuration for the application.
type Config struct {
	Binance   Binance   `mapstructure:"binance"`
	Telegram  Telegram  `mapstructure:"telegram"`
	WebSocket WebSocket `mapstructure:"websocket"`
	Trading   Trading   `mapstructure:"trading"`
	Signal    Signal    `mapstructure:"signal"`
	GUI       GUI       `mapstructure:"gui"`
	Logger    Logger    `mapstructure:"logger"`
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
}

// Binance holds the configuration for the Binance API.
type Binance struct {
	APIKey         string  `mapstructure:"api_key"`
	APISecret      string  `mapstructure:"api_secret"`
	Testnet        bool    `mapstructure:"testnet"`
	BaseURL        string  `mapstructure:"base_url"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	MaxRetries     int     `mapstructure:"max_retries"`
}

// Telegram is parsed for completeness; the bot does not send messages.
type Telegram struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	ChatID  string `mapstructure:"chat_id"`
}

// WebSocket is parsed for completeness; the bot does not open sockets.
type WebSocket struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Trading holds the configuration for the trading logic.
type Trading struct {
	QuoteAsset          string        `mapstructure:"quote_asset"`
	OrderSize           float64       `mapstructure:"order_size"`
	MaxTrades           int           `mapstructure:"max_trades"`
	Timeframes          []string      `mapstructure:"timeframes"`
	TickInterval        time.Duration `mapstructure:"tick_interval"`
	ScanInterval        time.Duration `mapstructure:"scan_interval"`
	PairRefreshInterval time.Duration `mapstructure:"pair_refresh_interval"`
	DefaultTPPercent    float64       `mapstructure:"default_tp_percent"`
	DefaultSLPercent    float64       `mapstructure:"default_sl_percent"`
	PairsFile           string        `mapstructure:"pairs_file"`
}

// Signal holds the signal detection thresholds.
type Signal struct {
	MinConfidence  float64 `mapstructure:"min_confidence"`
	VolumeRatioMin float64 `mapstructure:"volume_ratio_min"`
	RSIPeriod      int     `mapstructure:"rsi_period"`
	FastMA         int     `mapstructure:"fast_ma"`
	SlowMA         int     `mapstructure:"slow_ma"`
	VolumePeriod   int     `mapstructure:"volume_period"`
	BBPeriod       int     `mapstructure:"bb_period"`
	BBDeviation    float64 `mapstructure:"bb_deviation"`
	MinRiskReward  float64 `mapstructure:"min_risk_reward"`
	KlineLimit     int     `mapstructure:"kline_limit"`
}

// GUI is parsed for completeness; the bot has no graphical interface.
type GUI struct {
	Theme  string            `mapstructure:"theme"`
	Colors map[string]string `mapstructure:"colors"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Server holds the configuration for the status and UI servers.
type Server struct {
	Port   int `mapstructure:"port"`
	UIPort int `mapstructure:"ui_port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN            string        `mapstructure:"dsn"`
	BackupDir      string        `mapstructure:"backup_dir"`
	BackupInterval time.Duration `mapstructure:"backup_interval"`
	KeepBackups    int           `mapstructure:"keep_backups"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("binance.api_key", "")
	v.SetDefault("binance.api_secret", "")
	v.SetDefault("binance.testnet", false)
	v.SetDefault("binance.base_url", "https://api.binance.com")
	v.SetDefault("binance.rate_limit", 20)      // requests per second
	v.SetDefault("binance.rate_limit_burst", 5) // burst size
	v.SetDefault("binance.max_retries", 3)

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("websocket.host", "localhost")
	v.SetDefault("websocket.port", 8765)

	v.SetDefault("trading.quote_asset", "USDT")
	v.SetDefault("trading.order_size", 100)
	v.SetDefault("trading.max_trades", 5)
	v.SetDefault("trading.timeframes", []string{"1m", "5m", "15m", "1h", "4h"})
	v.SetDefault("trading.tick_interval", "10s")
	v.SetDefault("trading.scan_interval", "1m")
	v.SetDefault("trading.pair_refresh_interval", "1h")
	v.SetDefault("trading.default_tp_percent", 1.0)
	v.SetDefault("trading.default_sl_percent", 0.5)
	v.SetDefault("trading.pairs_file", "configs/pairs.yml")

	v.SetDefault("signal.min_confidence", 70)
	v.SetDefault("signal.volume_ratio_min", 1.5)
	v.SetDefault("signal.rsi_period", 14)
	v.SetDefault("signal.fast_ma", 12)
	v.SetDefault("signal.slow_ma", 26)
	v.SetDefault("signal.volume_period", 20)
	v.SetDefault("signal.bb_period", 20)
	v.SetDefault("signal.bb_deviation", 2.0)
	v.SetDefault("signal.min_risk_reward", 2.0)
	v.SetDefault("signal.kline_limit", 100)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.file", "")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.ui_port", 8081)

	v.SetDefault("database.dsn", "data/trading.db")
	v.SetDefault("database.backup_dir", "data/backups")
	v.SetDefault("database.backup_interval", "24h")
	v.SetDefault("database.keep_backups", 5)
}

// LoadConfig reads configuration from file or environment variables.
// A .env file next to the config or in the working directory is loaded first.
func LoadConfig(path string) (Config, error) {
	var config Config

	if err := loadDotEnv(filepath.Join(path, ".env"), ".env"); err != nil {
		return config, err
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("failed to decode config: %w", err)
	}
	return config, config.Validate()
}

func loadDotEnv(paths ...string) error {
	for _, p := range paths {
		err := godotenv.Load(p)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Validate rejects settings the bot cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Trading.QuoteAsset == "" {
		errs = append(errs, errors.New("trading.quote_asset is required"))
	}
	if c.Trading.OrderSize <= 0 {
		errs = append(errs, errors.New("trading.order_size must be positive"))
	}
	if c.Trading.MaxTrades <= 0 {
		errs = append(errs, errors.New("trading.max_trades must be positive"))
	}
	if len(c.Trading.Timeframes) == 0 {
		errs = append(errs, errors.New("trading.timeframes must not be empty"))
	}
	for _, tf := range c.Trading.Timeframes {
		if _, err := str2duration.ParseDuration(tf); err != nil {
			errs = append(errs, fmt.Errorf("trading.timeframes: invalid timeframe %q", tf))
		}
	}
	if c.Trading.TickInterval <= 0 {
		errs = append(errs, errors.New("trading.tick_interval must be positive"))
	}
	if c.Trading.ScanInterval <= 0 {
		errs = append(errs, errors.New("trading.scan_interval must be positive"))
	}
	if c.Trading.PairRefreshInterval <= 0 {
		errs = append(errs, errors.New("trading.pair_refresh_interval must be positive"))
	}
	if c.Trading.DefaultTPPercent <= 0 || c.Trading.DefaultSLPercent <= 0 {
		errs = append(errs, errors.New("trading default tp/sl percent must be positive"))
	}
	if c.Signal.MinConfidence < 0 || c.Signal.MinConfidence > 100 {
		errs = append(errs, errors.New("signal.min_confidence must be within 0..100"))
	}
	if c.Signal.FastMA <= 0 || c.Signal.SlowMA <= c.Signal.FastMA {
		errs = append(errs, errors.New("signal.slow_ma must be greater than signal.fast_ma"))
	}
	if c.Signal.RSIPeriod <= 1 || c.Signal.VolumePeriod <= 0 || c.Signal.BBPeriod <= 1 {
		errs = append(errs, errors.New("signal indicator periods must be positive"))
	}
	if c.Signal.KlineLimit < c.Signal.SlowMA+5 {
		errs = append(errs, fmt.Errorf("signal.kline_limit must be at least %d", c.Signal.SlowMA+5))
	}
	if c.Signal.MinRiskReward <= 0 {
		errs = append(errs, errors.New("signal.min_risk_reward must be positive"))
	}
	if c.Binance.RateLimit <= 0 || c.Binance.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("binance rate limit and burst must be positive"))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Database.KeepBackups < 0 {
		errs = append(errs, errors.New("database.keep_backups must not be negative"))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, errors.New("server.port is out of range"))
	}
	return errors.Join(errs...)
}
