package main

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/papaburgs/vigilant-umbrella/internal/ledger"
)

// CreditChart plots credits over the lookback window, one series per agent
// symbol found in the snapshots.
func (a *App) CreditChart(window time.Duration) *charts.Line {
	line := charts.NewLine()
	startMs := int(time.Now().Add(-window).UnixMilli())
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "dark",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Credits - last %s", window),
			Subtitle: "From fleet snapshots",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Min: 0,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "time",
			Min:  startMs,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
	)

	symbols, bySymbol := seriesBySymbol(a.snapshots(window))
	for _, symbol := range symbols {
		rows := bySymbol[symbol]
		items := make([]opts.LineData, 0, len(rows))
		for _, r := range rows {
			items = append(items, opts.LineData{Value: []interface{}{r.Timestamp, r.Credits}})
		}
		line.AddSeries(symbol, items)
	}
	return line
}

// FleetChart plots fleet size over the lookback window.
func (a *App) FleetChart(window time.Duration) *charts.Line {
	line := charts.NewLine()
	startMs := int(time.Now().Add(-window).UnixMilli())
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "dark",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("Fleet size - last %s", window),
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Min: 0,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "time",
			Min:  startMs,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
	)

	symbols, bySymbol := seriesBySymbol(a.snapshots(window))
	for _, symbol := range symbols {
		rows := bySymbol[symbol]
		items := make([]opts.LineData, 0, len(rows))
		for _, r := range rows {
			items = append(items, opts.LineData{Value: []interface{}{r.Timestamp, r.Ships}})
		}
		line.AddSeries(symbol, items)
	}
	return line
}

func (a *App) snapshots(window time.Duration) []ledger.SnapshotRow {
	rows, err := a.ledger.Snapshots(time.Now().Add(-window))
	if err != nil {
		slog.Error("error reading snapshots from ledger", "error", err)
		return nil
	}
	return rows
}

// seriesBySymbol groups snapshot rows per agent symbol. Symbols come back
// sorted so chart series order is stable between renders.
func seriesBySymbol(rows []ledger.SnapshotRow) ([]string, map[string][]ledger.SnapshotRow) {
	bySymbol := make(map[string][]ledger.SnapshotRow)
	for _, r := range rows {
		bySymbol[r.Symbol] = append(bySymbol[r.Symbol], r)
	}
	symbols := make([]string, 0, len(bySymbol))
	for s := range bySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols, bySymbol
}
