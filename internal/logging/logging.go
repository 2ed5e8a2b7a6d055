// Package logging builds the go-kit logger shared by the CLI and the driving
// loop. Output is logfmt or JSON with a UTC timestamp and a level filter.
package logging

import (
	"fmt"
	"io"
	"strings"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// New returns a logger writing to w. format is "logfmt" or "json"; lvl is one
// of debug, info, warn or error.
func New(w io.Writer, format, lvl string) (kitlog.Logger, error) {
	var logger kitlog.Logger
	switch strings.ToLower(format) {
	case "", "logfmt":
		logger = kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
	case "json":
		logger = kitlog.NewJSONLogger(kitlog.NewSyncWriter(w))
	default:
		return nil, fmt.Errorf("unknown log format: %s", format)
	}

	opt, err := levelOption(lvl)
	if err != nil {
		return nil, err
	}
	logger = level.NewFilter(logger, opt)
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC, "caller", kitlog.DefaultCaller)
	return logger, nil
}

func levelOption(lvl string) (level.Option, error) {
	switch strings.ToLower(lvl) {
	case "debug":
		return level.AllowDebug(), nil
	case "", "info":
		return level.AllowInfo(), nil
	case "warn", "warning":
		return level.AllowWarn(), nil
	case "error":
		return level.AllowError(), nil
	default:
		return nil, fmt.Errorf("unknown log level: %s", lvl)
	}
}

// Nop discards everything.
func Nop() kitlog.Logger {
	return kitlog.NewNopLogger()
}
