package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/components"
)

func (a *App) RootHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("RootHandler")
	a.renderCharts(w, time.Hour)
}

func (a *App) ChartHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("ChartHandler")
	period := r.URL.Query().Get("period")
	slog.Info("incoming request", "endpoint", "chart", "period", period)
	a.renderCharts(w, periodFor(period))
}

func (a *App) renderCharts(w http.ResponseWriter, window time.Duration) {
	w.Header().Set("Content-Type", "text/html")
	page := components.NewPage()
	page.SetPageTitle("fleetwatch")
	page.AddCharts(a.CreditChart(window), a.FleetChart(window))
	if err := page.Render(w); err != nil {
		slog.Error("error rendering charts", "error", err)
	}
}

func (a *App) TradesHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("TradesHandler")
	window := periodFor(r.URL.Query().Get("period"))
	trades, err := a.ledger.Trades(time.Now().Add(-window))
	if err != nil {
		slog.Error("error reading trades from ledger", "error", err)
		http.Error(w, "error reading trades", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(trades); err != nil {
		slog.Error("error encoding trades", "error", err)
	}
}
