package database

// Canned queries. Named parameters are bound by gorm (@name).
const (
	QueryOpenTrades = `
SELECT id, symbol, type, entry_price, exit_price, take_profit, stop_loss,
       quantity, profit, status, reason, open_time, close_time, created_at, updated_at
FROM trades
WHERE status = 'OPEN'
ORDER BY open_time DESC`

	QueryClosedTrades = `
SELECT id, symbol, type, entry_price, exit_price, quantity, profit,
       CASE
           WHEN type = 'LONG' THEN (exit_price - entry_price) / entry_price * 100
           ELSE (entry_price - exit_price) / entry_price * 100
       END AS profit_percent,
       reason, open_time, close_time
FROM trades
WHERE status = 'CLOSED'
ORDER BY close_time DESC
LIMIT @limit`

	QueryAggregateStatistics = `
SELECT COUNT(*)                               AS total_trades,
       COUNT(CASE WHEN profit > 0 THEN 1 END) AS winning_trades,
       COUNT(CASE WHEN profit < 0 THEN 1 END) AS losing_trades,
       COALESCE(SUM(profit), 0)               AS total_profit,
       COALESCE(AVG(profit), 0)               AS avg_profit,
       COALESCE(MAX(profit), 0)               AS best_trade,
       COALESCE(MIN(profit), 0)               AS worst_trade
FROM trades
WHERE status = 'CLOSED'`

	QueryUnprocessedSignals = `
SELECT id, symbol, type, entry_price, take_profit, stop_loss, confidence,
       rsi, volume_ratio, reason, processed, trade_id, time
FROM signals
WHERE processed = 0
ORDER BY confidence DESC, time ASC`

	QueryActivePairs = `
SELECT p.symbol, p.base_asset, p.quote_asset, p.last_price, p.volume_24h,
       COUNT(t.id) AS open_trades
FROM pairs p
LEFT JOIN trades t ON t.symbol = p.symbol AND t.status = 'OPEN'
WHERE p.enabled = 1
GROUP BY p.symbol
HAVING open_trades < 5
ORDER BY p.volume_24h DESC`

	QueryRefreshStatistics = `
UPDATE statistics SET
    total_trades   = (SELECT COUNT(*) FROM trades WHERE status = 'CLOSED'),
    winning_trades = (SELECT COUNT(*) FROM trades WHERE status = 'CLOSED' AND profit > 0),
    losing_trades  = (SELECT COUNT(*) FROM trades WHERE status = 'CLOSED' AND profit < 0),
    total_profit   = (SELECT COALESCE(SUM(profit), 0) FROM trades WHERE status = 'CLOSED'),
    win_rate       = (SELECT CASE WHEN COUNT(*) > 0
                                  THEN COUNT(CASE WHEN profit > 0 THEN 1 END) * 100.0 / COUNT(*)
                                  ELSE 0 END
                      FROM trades WHERE status = 'CLOSED'),
    avg_profit     = (SELECT COALESCE(AVG(profit), 0) FROM trades WHERE status = 'CLOSED'),
    max_drawdown   = @max_drawdown,
    updated_at     = @now
WHERE id = 1`

	QueryCloseTrade = `
UPDATE trades SET
    status     = 'CLOSED',
    exit_price = @exit_price,
    profit     = CASE
                     WHEN type = 'LONG' THEN (@exit_price - entry_price) * quantity
                     ELSE (entry_price - @exit_price) * quantity
                 END,
    close_time = @close_time,
    reason     = @reason
WHERE id = @id AND status = 'OPEN'`

	QueryInsertTrade = `
INSERT INTO trades (symbol, type, entry_price, take_profit, stop_loss, quantity, status, reason, open_time)
VALUES (@symbol, @type, @entry_price, @take_profit, @stop_loss, @quantity, 'OPEN', @reason, @open_time)
RETURNING id`

	QueryUpsertPair = `
INSERT INTO pairs (symbol, base_asset, quote_asset, min_price, min_qty, min_notional,
                   price_precision, qty_precision, enabled, last_price, volume_24h, updated_at)
VALUES (@symbol, @base_asset, @quote_asset, @min_price, @min_qty, @min_notional,
        @price_precision, @qty_precision, @enabled, @last_price, @volume_24h, @updated_at)
ON CONFLICT(symbol) DO UPDATE SET
    base_asset      = excluded.base_asset,
    quote_asset     = excluded.quote_asset,
    min_price       = excluded.min_price,
    min_qty         = excluded.min_qty,
    min_notional    = excluded.min_notional,
    price_precision = excluded.price_precision,
    qty_precision   = excluded.qty_precision,
    enabled         = excluded.enabled,
    last_price      = excluded.last_price,
    volume_24h      = excluded.volume_24h`
)

const (
	queryCancelTrade = `
UPDATE trades SET
    status     = 'CANCELLED',
    close_time = @close_time,
    reason     = @reason
WHERE id = @id AND status = 'OPEN'`

	queryInsertSignal = `
INSERT INTO signals (symbol, type, entry_price, take_profit, stop_loss, confidence,
                     rsi, volume_ratio, reason, time)
VALUES (@symbol, @type, @entry_price, @take_profit, @stop_loss, @confidence,
        @rsi, @volume_ratio, @reason, @time)
RETURNING id`

	queryMarkSignalProcessed = `
UPDATE signals SET processed = 1, trade_id = @trade_id
WHERE id = @id AND processed = 0`

	queryClosedProfits = `
SELECT profit FROM trades
WHERE status = 'CLOSED'
ORDER BY close_time ASC, id ASC`

	queryRealizedProfitSince = `
SELECT COALESCE(SUM(profit), 0) FROM trades
WHERE status = 'CLOSED' AND close_time >= @since`
)
