package logging

import (
	"log/slog"
	"os"
	"strings"
)

// InitLogger will make a new text logger based on VIGIL_LOG_LEVEL
func InitLogger() {
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	if logl, ok := os.LookupEnv("VIGIL_LOG_LEVEL"); ok {
		switch strings.ToLower(logl) {
		case "debug", "dbg":
			h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
		case "warn", "wrn":
			h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn})
		case "error", "err":
			h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
		}
	}

	l := slog.New(h)
	slog.SetDefault(l)
}
