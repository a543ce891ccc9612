// Package logging provides a zerolog wrapper with env-driven defaults shared
// by every pipeline step.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the process-wide logger.
type Options struct {
	Level   string
	Format  string // "console" or "json"
	Service string
	Writer  io.Writer
}

// FromEnv builds Options from LOG_* environment variables.
func FromEnv() Options {
	return Options{
		Level:   strings.ToLower(getenvDefault("LOG_LEVEL", "info")),
		Format:  strings.ToLower(getenvDefault("LOG_FORMAT", "console")),
		Service: getenvDefault("LOG_SERVICE", "datapulse"),
	}
}

var (
	once sync.Once
	root zerolog.Logger
)

// Init configures zerolog and builds the root logger. Safe to call once;
// later calls are no-ops.
func Init(opt Options) {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339

		var w io.Writer = os.Stdout
		if opt.Writer != nil {
			w = opt.Writer
		}
		if opt.Format == "console" {
			w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		}

		ctx := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp()
		if opt.Service != "" {
			ctx = ctx.Str("service", opt.Service)
		}
		root = ctx.Logger()
	})
}

// Get returns the process-wide root logger, initializing from env if needed.
func Get() *zerolog.Logger {
	Init(FromEnv())
	return &root
}

func parseLevel(s string) zerolog.Level {
	switch strings.TrimSpace(s) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
