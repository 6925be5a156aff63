// Package vfslog provides the structured logging used across vfsengine,
// wrapping zerolog with component-scoped child loggers so every package logs
// with a consistent "component" field instead of wiring its own logger.
package vfslog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance. Init replaces it; packages that run
// before Init is called fall back to a quiet info-level console logger.
var Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
	With().Timestamp().Logger().Level(zerolog.InfoLevel)

// Level mirrors zerolog's levels without requiring callers to import zerolog
// directly just to configure vfsengine.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
	// SilentLevel disables logging entirely.
	SilentLevel Level = "silent"
)

// Config configures the global logger. JSONOutput selects structured JSON
// (suited for ingestion); the default is a human-readable console writer.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init (re)configures the global logger from cfg. Safe to call repeatedly,
// e.g. once per facade.New in tests that want a fresh, quiet logger.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	case SilentLevel:
		level = zerolog.Disabled
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
		return
	}
	Logger = zerolog.New(zerolog.ConsoleWriter{Out: output, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
}

// Component returns a child logger tagged with the given component name,
// e.g. vfslog.Component("storage").Debug().Msg("opened badger db").
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// WithModule returns a child logger additionally tagged with a module name.
func WithModule(base zerolog.Logger, module string) zerolog.Logger {
	return base.With().Str("module", module).Logger()
}

// WithNode returns a child logger additionally tagged with a node id.
func WithNode(base zerolog.Logger, nodeID string) zerolog.Logger {
	return base.With().Str("node_id", nodeID).Logger()
}
