package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "USDT", cfg.Trading.QuoteAsset)
	assert.Equal(t, 100.0, cfg.Trading.OrderSize)
	assert.Equal(t, 5, cfg.Trading.MaxTrades)
	assert.Equal(t, []string{"1m", "5m", "15m", "1h", "4h"}, cfg.Trading.Timeframes)
	assert.Equal(t, 10*time.Second, cfg.Trading.TickInterval)
	assert.Equal(t, 70.0, cfg.Signal.MinConfidence)
	assert.Equal(t, 24*time.Hour, cfg.Database.BackupInterval)
	assert.Equal(t, 5, cfg.Database.KeepBackups)
}

func TestLoadConfig_FileEnvAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yml", `
binance:
  api_key: from-file
trading:
  order_size: 50
  timeframes: ["15m"]
  scan_interval: 2m
gui:
  colors:
    profit: "#00ff00"
`)
	writeFile(t, dir, ".env", "BINANCE_API_SECRET=from-dotenv\n")
	t.Setenv("TRADING_MAX_TRADES", "3")
	t.Cleanup(func() { os.Unsetenv("BINANCE_API_SECRET") })

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Binance.APIKey)
	assert.Equal(t, "from-dotenv", cfg.Binance.APISecret)
	assert.Equal(t, 50.0, cfg.Trading.OrderSize)
	assert.Equal(t, 3, cfg.Trading.MaxTrades)
	assert.Equal(t, []string{"15m"}, cfg.Trading.Timeframes)
	assert.Equal(t, 2*time.Minute, cfg.Trading.ScanInterval)
	assert.Equal(t, "#00ff00", cfg.GUI.Colors["profit"])
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yml", `
trading:
  order_size: -1
  timeframes: ["7q"]
  scan_interval: 0s
  pair_refresh_interval: -1h
signal:
  fast_ma: 30
  slow_ma: 10
`)

	_, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trading.order_size must be positive")
	assert.Contains(t, err.Error(), `invalid timeframe "7q"`)
	assert.Contains(t, err.Error(), "signal.slow_ma must be greater")
	assert.Contains(t, err.Error(), "trading.scan_interval must be positive")
	assert.Contains(t, err.Error(), "trading.pair_refresh_interval must be positive")
}

func TestLoadConfig_ShippedFile(t *testing.T) {
	cfg, err := LoadConfig("../../configs")
	require.NoError(t, err)
	assert.Equal(t, "configs/pairs.yml", cfg.Trading.PairsFile)
	assert.Equal(t, 8765, cfg.WebSocket.Port)
}
