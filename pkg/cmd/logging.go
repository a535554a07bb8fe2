package cmd

import (
	"fmt"
	"log/slog"
	"os"
)

// initLogger configures the process-wide default slog logger from flags:
// a text handler for terminal use, or JSON when flags.TextFormat is false
// (set via --log-text=false, or automatically when running as a server).
func initLogger(flags *cmdFlags) error {
	level, err := parseLogLevel(flags.LogLevel)
	if err != nil {
		return err
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if flags.TextFormat {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))

	return nil
}

func parseLogLevel(name string) (slog.Level, error) {
	switch name {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}
