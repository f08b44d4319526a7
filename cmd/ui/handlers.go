package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Anhbaza/Bot-Binance/internal/database"
	"github.com/Anhbaza/Bot-Binance/internal/models"
	"go.uber.org/zap"
)

const defaultLimit = 100

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log       *zap.Logger
	store     *database.Store
	startTime time.Time
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, store *database.Store) *APIHandler {
	return &APIHandler{log: log, store: store, startTime: time.Now()}
}

// Routes registers the API endpoints on mux.
func (h *APIHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", h.StatusHandler)
	mux.HandleFunc("/api/trades", h.TradesHandler)
	mux.HandleFunc("/api/trades/open", h.OpenTradesHandler)
	mux.HandleFunc("/api/trades/closed", h.ClosedTradesHandler)
	mux.HandleFunc("/api/signals", h.SignalsHandler)
	mux.HandleFunc("/api/pairs", h.PairsHandler)
	mux.HandleFunc("/api/pairs/active", h.ActivePairsHandler)
	mux.HandleFunc("/api/statistics", h.StatisticsHandler)
}

// StatusResponse is the structure for the /api/status endpoint.
type StatusResponse struct {
	Uptime     string `json:"uptime"`
	OpenTrades int64  `json:"open_trades"`
	Pending    int    `json:"pending_signals"`
}

// StatusHandler reports open trades and pending signals.
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	open, err := h.store.CountOpenTrades(r.Context(), "")
	if err != nil {
		h.fail(w, "Failed to count open trades", err)
		return
	}
	pending, err := h.store.UnprocessedSignals(r.Context())
	if err != nil {
		h.fail(w, "Failed to get pending signals", err)
		return
	}
	h.respond(w, StatusResponse{
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		OpenTrades: open,
		Pending:    len(pending),
	})
}

// TradesHandler lists trades, filtered by status and symbol.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"), defaultLimit)
	if err != nil {
		http.Error(w, "Invalid limit", http.StatusBadRequest)
		return
	}
	offset, err := queryInt(q.Get("offset"), 0)
	if err != nil {
		http.Error(w, "Invalid offset", http.StatusBadRequest)
		return
	}

	trades, err := h.store.ListTrades(r.Context(), database.TradeFilter{
		Status: models.TradeStatus(strings.ToUpper(q.Get("status"))),
		Symbol: strings.ToUpper(q.Get("symbol")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.fail(w, "Failed to get trades", err)
		return
	}
	h.respond(w, trades)
}

// OpenTradesHandler returns the open positions.
func (h *APIHandler) OpenTradesHandler(w http.ResponseWriter, r *http.Request) {
	trades, err := h.store.OpenTrades(r.Context())
	if err != nil {
		h.fail(w, "Failed to get open trades", err)
		return
	}
	h.respond(w, trades)
}

// ClosedTradesHandler returns the most recent closed trades with their profit percent.
func (h *APIHandler) ClosedTradesHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r.URL.Query().Get("limit"), defaultLimit)
	if err != nil {
		http.Error(w, "Invalid limit", http.StatusBadRequest)
		return
	}
	trades, err := h.store.ClosedTrades(r.Context(), limit)
	if err != nil {
		h.fail(w, "Failed to get closed trades", err)
		return
	}
	h.respond(w, trades)
}

// SignalsHandler lists signals; ?pending=true returns only unprocessed ones.
func (h *APIHandler) SignalsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"), defaultLimit)
	if err != nil {
		http.Error(w, "Invalid limit", http.StatusBadRequest)
		return
	}
	f := database.SignalFilter{Symbol: strings.ToUpper(q.Get("symbol")), Limit: limit}
	if v := q.Get("pending"); v != "" {
		pending, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "Invalid pending flag", http.StatusBadRequest)
			return
		}
		processed := !pending
		f.Processed = &processed
	}

	signals, err := h.store.ListSignals(r.Context(), f)
	if err != nil {
		h.fail(w, "Failed to get signals", err)
		return
	}
	h.respond(w, signals)
}

// PairsHandler lists pairs; ?enabled=true|false filters them.
func (h *APIHandler) PairsHandler(w http.ResponseWriter, r *http.Request) {
	var enabled *bool
	if v := r.URL.Query().Get("enabled"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "Invalid enabled flag", http.StatusBadRequest)
			return
		}
		enabled = &b
	}
	pairs, err := h.store.ListPairs(r.Context(), enabled)
	if err != nil {
		h.fail(w, "Failed to get pairs", err)
		return
	}
	h.respond(w, pairs)
}

// ActivePairsHandler returns the pairs the scanner will analyze.
func (h *APIHandler) ActivePairsHandler(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.store.ActivePairs(r.Context())
	if err != nil {
		h.fail(w, "Failed to get active pairs", err)
		return
	}
	h.respond(w, pairs)
}

// StatisticsResponse is the structure for the /api/statistics endpoint.
type StatisticsResponse struct {
	Summary   *models.Statistics `json:"summary"`
	Aggregate *models.Aggregate  `json:"aggregate"`
}

// StatisticsHandler returns the stored summary and a live aggregate of closed trades.
func (h *APIHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Statistics(r.Context())
	if err != nil {
		h.fail(w, "Failed to get statistics", err)
		return
	}
	agg, err := h.store.AggregateStatistics(r.Context())
	if err != nil {
		h.fail(w, "Failed to calculate statistics", err)
		return
	}
	h.respond(w, StatisticsResponse{Summary: stats, Aggregate: agg})
}

func (h *APIHandler) respond(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to write response", zap.Error(err))
	}
}

func (h *APIHandler) fail(w http.ResponseWriter, msg string, err error) {
	h.log.Error(msg, zap.Error(err))
	http.Error(w, msg, http.StatusInternalServerError)
}

func queryInt(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
