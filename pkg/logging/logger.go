// Package logging carries the zerolog logger of a reconciliation run.
//
// A run tags its logger once with its identifier and each step narrows it
// with what it works on, so every line can be traced back to a node:
//
//	ctx = logging.WithRunID(ctx, runID)
//	ctx = logging.WithReference(ctx, ref)
//	logging.FromContext(ctx).Debug().Msg("Merging fields")
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agentstation/geneasync/pkg/constants"
)

// Config selects where run logs go and how they look.
type Config struct {
	// Level is trace, debug, info, warn or error. Anything else is info.
	Level string
	// Format is json, console or auto. Auto picks console on a terminal.
	Format string
	// Output is stderr, stdout, discard or a file to append to.
	Output string
	// Caller adds file:line to each line.
	Caller bool
}

var defaultLogger = New(Config{Level: os.Getenv("LOG_LEVEL"), Format: os.Getenv("LOG_FORMAT")})

// Default returns the process-wide logger used when a context carries none.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// Configure replaces the process-wide logger.
func Configure(cfg Config) {
	defaultLogger = New(cfg)
	log.Logger = defaultLogger
}

// New builds a logger from cfg. An output file that cannot be opened falls
// back to stderr.
func New(cfg Config) zerolog.Logger {
	level := ParseLevel(cfg.Level)
	ctx := zerolog.New(writer(cfg)).Level(level).With().Timestamp()
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// ParseLevel maps a level name onto zerolog, defaulting to info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// LevelForVerbosity maps a repeated -v count onto a log level.
func LevelForVerbosity(verbosity int) zerolog.Level {
	switch {
	case verbosity >= 2:
		return zerolog.TraceLevel
	case verbosity == 1:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

func writer(cfg Config) io.Writer {
	var out io.Writer = os.Stderr
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
	case "stdout":
		out = os.Stdout
	case "discard", "none":
		return io.Discard
	default:
		if f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.FilePermissions); err == nil {
			out = f
		}
	}

	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
	case "", "auto":
		f, ok := out.(*os.File)
		if !ok || !isatty.IsTerminal(f.Fd()) {
			return out
		}
	default:
		return out
	}
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.Kitchen,
		NoColor:    os.Getenv("NO_COLOR") != "",
	}
}
