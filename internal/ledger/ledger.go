// Package ledger persists what the fleet did: every trade, every market
// observation, and periodic agent snapshots. Writes are best effort; the
// fleet never stalls because the database is away.
package ledger

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/papaburgs/vigilant-umbrella/internal/types"
)

type Ledger struct {
	db *sql.DB
}

// Connect establishes a connection to the Turso/libSQL database and makes
// sure the schema exists.
func Connect(url, token string) (*Ledger, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is not set")
	}
	if token != "" {
		url = fmt.Sprintf("%s?authToken=%s", url, token)
	}

	db, err := sql.Open("libsql", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.initSchema(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) Close() error { return l.db.Close() }

func (l *Ledger) initSchema() error {
	slog.Info("initializing database schema")

	queries := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			timestamp INTEGER,
			ship TEXT,
			waypoint TEXT,
			good TEXT,
			type TEXT,
			units INTEGER,
			priceperunit INTEGER,
			totalprice INTEGER,
			PRIMARY KEY (timestamp, ship, good)
		)`,
		`CREATE TABLE IF NOT EXISTS markets (
			timestamp INTEGER,
			waypoint TEXT,
			good TEXT,
			purchase INTEGER,
			sell INTEGER,
			volume INTEGER,
			PRIMARY KEY (waypoint, good)
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			timestamp INTEGER,
			symbol TEXT,
			credits INTEGER,
			ships INTEGER,
			PRIMARY KEY (timestamp, symbol)
		)`,
	}

	for _, q := range queries {
		if _, err := l.db.Exec(q); err != nil {
			return fmt.Errorf("failed to execute query %q: %w", q, err)
		}
	}

	slog.Info("database schema initialized")
	return nil
}

// RecordTrade stores one confirmed transaction.
func (l *Ledger) RecordTrade(tx types.Transaction) {
	ts := tx.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := l.db.Exec(
		`INSERT OR REPLACE INTO trades (timestamp, ship, waypoint, good, type, units, priceperunit, totalprice)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ts.Unix(), tx.ShipSymbol, tx.WaypointSymbol, tx.TradeSymbol, tx.Type,
		tx.Units, tx.PricePerUnit, tx.TotalPrice,
	)
	if err != nil {
		slog.Error("could not record trade", "ship", tx.ShipSymbol, "good", tx.TradeSymbol, "error", err)
	}
}

// RecordMarket stores the latest prices for every good at one market,
// replacing whatever was there before.
func (l *Ledger) RecordMarket(m types.Market, at time.Time) {
	for _, g := range m.TradeGoods {
		_, err := l.db.Exec(
			`INSERT OR REPLACE INTO markets (timestamp, waypoint, good, purchase, sell, volume)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			at.Unix(), m.Symbol, g.Symbol, g.PurchasePrice, g.SellPrice, g.TradeVolume,
		)
		if err != nil {
			slog.Error("could not record market good", "waypoint", m.Symbol, "good", g.Symbol, "error", err)
			return
		}
	}
}

// RecordSnapshot stores the agent's credits and fleet size at one instant.
func (l *Ledger) RecordSnapshot(agent types.Agent, ships int, at time.Time) {
	_, err := l.db.Exec(
		`INSERT OR REPLACE INTO snapshots (timestamp, symbol, credits, ships) VALUES (?, ?, ?, ?)`,
		at.Unix(), agent.Symbol, agent.Credits, ships,
	)
	if err != nil {
		slog.Error("could not record snapshot", "symbol", agent.Symbol, "error", err)
	}
}

// MarketObservation is a stored market with the time it was seen.
type MarketObservation struct {
	Market types.Market
	Seen   time.Time
}

// RecentMarkets loads every market observed since the cutoff, newest prices
// only. Used to warm the world view across restarts.
func (l *Ledger) RecentMarkets(since time.Time) ([]MarketObservation, error) {
	rows, err := l.db.Query(
		`SELECT timestamp, waypoint, good, purchase, sell, volume
		 FROM markets WHERE timestamp >= ? ORDER BY waypoint, good`,
		since.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query markets: %w", err)
	}
	defer rows.Close()

	var out []MarketObservation
	for rows.Next() {
		var ts int64
		var waypoint string
		var g types.TradeGood
		if err := rows.Scan(&ts, &waypoint, &g.Symbol, &g.PurchasePrice, &g.SellPrice, &g.TradeVolume); err != nil {
			return nil, fmt.Errorf("failed to scan market row: %w", err)
		}
		seen := time.Unix(ts, 0)
		if n := len(out); n > 0 && out[n-1].Market.Symbol == waypoint {
			m := &out[n-1]
			m.Market.TradeGoods = append(m.Market.TradeGoods, g)
			if seen.Before(m.Seen) {
				m.Seen = seen
			}
			continue
		}
		out = append(out, MarketObservation{
			Market: types.Market{Symbol: waypoint, TradeGoods: []types.TradeGood{g}},
			Seen:   seen,
		})
	}
	return out, rows.Err()
}

// SnapshotRow is one stored agent snapshot.
type SnapshotRow struct {
	Timestamp time.Time
	Symbol    string
	Credits   int64
	Ships     int
}

// Snapshots returns the agent snapshots since the cutoff in time order.
func (l *Ledger) Snapshots(since time.Time) ([]SnapshotRow, error) {
	rows, err := l.db.Query(
		`SELECT timestamp, symbol, credits, ships FROM snapshots
		 WHERE timestamp >= ? ORDER BY timestamp`,
		since.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotRow
	for rows.Next() {
		var r SnapshotRow
		var ts int64
		if err := rows.Scan(&ts, &r.Symbol, &r.Credits, &r.Ships); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		r.Timestamp = time.Unix(ts, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}

// TradeRow is one stored transaction.
type TradeRow struct {
	Timestamp time.Time
	Ship      string
	Waypoint  string
	Good      string
	Type      string
	Units     int
	Total     int
}

// Trades returns the transactions since the cutoff in time order.
func (l *Ledger) Trades(since time.Time) ([]TradeRow, error) {
	rows, err := l.db.Query(
		`SELECT timestamp, ship, waypoint, good, type, units, totalprice FROM trades
		 WHERE timestamp >= ? ORDER BY timestamp`,
		since.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var out []TradeRow
	for rows.Next() {
		var r TradeRow
		var ts int64
		if err := rows.Scan(&ts, &r.Ship, &r.Waypoint, &r.Good, &r.Type, &r.Units, &r.Total); err != nil {
			return nil, fmt.Errorf("failed to scan trade row: %w", err)
		}
		r.Timestamp = time.Unix(ts, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}
