package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/papaburgs/vigilant-umbrella/internal/config"
	"github.com/papaburgs/vigilant-umbrella/internal/ledger"
	"github.com/papaburgs/vigilant-umbrella/internal/logging"
)

func main() {
	logging.InitLogger()
	l := slog.With("function", "main")

	cfg := config.Load()
	if cfg.DBURL == "" {
		l.Error("VIGIL_DB_URL must be set for fleetwatch")
		os.Exit(1)
	}

	book, err := ledger.Connect(cfg.DBURL, cfg.DBToken)
	if err != nil {
		l.Error("failed to connect to ledger", "error", err)
		os.Exit(1)
	}
	defer book.Close()

	a := NewApp(book)

	http.HandleFunc("/", a.RootHandler)
	http.HandleFunc("/chart", a.ChartHandler)
	http.HandleFunc("/trades", a.TradesHandler)

	addr := ":8845"
	if v, ok := os.LookupEnv("VIGIL_WATCH_ADDR"); ok {
		addr = v
	}
	l.Info("starting fleetwatch", "addr", addr)
	slog.Warn("server done", "error", http.ListenAndServe(addr, nil))
}
