package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/term"
)

// Logger returns a colour terminal logger when w is a terminal and a logfmt
// logger otherwise.
func Logger(w io.Writer, lvl slog.Level) log.Logger {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return log.NewLogger(log.NewTerminalHandlerWithLevel(w, lvl, true))
	}
	return log.NewLogger(log.LogfmtHandlerWithLevel(w, lvl))
}

// ParseLevel maps a level name to its log level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "info", "":
		return log.LevelInfo, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}

func loggerFromContext(w io.Writer, level string) (log.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return Logger(w, lvl), nil
}
